package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"hilicita-backend/internal/blocks"
	"hilicita-backend/internal/checklists"
	"hilicita-backend/internal/documents"
	"hilicita-backend/internal/llm"
	"hilicita-backend/internal/parse"
	"hilicita-backend/internal/queue"
	"hilicita-backend/internal/shared/config"
)

// stubChat answers by schema name; unknown schemas get an empty object.
type stubChat struct {
	responses map[string]string
	calls     atomic.Int64
}

func (s *stubChat) ChatStructured(ctx context.Context, input llm.ChatInput) (json.RawMessage, error) {
	_ = ctx
	s.calls.Add(1)
	if resp, ok := s.responses[input.SchemaName]; ok {
		return json.RawMessage(resp), nil
	}
	return json.RawMessage(`{}`), nil
}

// stubEmbedder returns small deterministic vectors.
type stubEmbedder struct {
	batchCalls atomic.Int64
	queryCalls atomic.Int64
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	_ = ctx
	s.batchCalls.Add(1)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, float32(i % 7)}
	}
	return out, nil
}

func (s *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	_ = ctx
	_ = text
	s.queryCalls.Add(1)
	return []float32{1, 0.5}, nil
}

// stubFiles answers every block with a minimal valid object.
type stubFiles struct {
	uploads   atomic.Int64
	responses map[string]string
}

func (s *stubFiles) Upload(ctx context.Context, path, fileName string) (string, error) {
	_ = ctx
	_ = path
	_ = fileName
	s.uploads.Add(1)
	return "file-123", nil
}

func (s *stubFiles) Respond(ctx context.Context, input llm.FileInput) (json.RawMessage, error) {
	_ = ctx
	if resp, ok := s.responses[input.SchemaName]; ok {
		return json.RawMessage(resp), nil
	}
	return json.RawMessage(`{}`), nil
}

func csvBody(rows int) string {
	var b strings.Builder
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "item %d,Fornecimento de energia elétrica para a administração,linha %d\n", i, i)
	}
	return b.String()
}

func serveFile(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig() config.Config {
	return config.Config{
		UseChecklistBlocks: true,
		ChunkMinChars:      800,
		ChunkMaxChars:      1200,
		ChunkOverlapChars:  150,
		TopKRetrieval:      12,
		TopNForMMR:         40,
		MMRLambda:          0.7,
		BlockConcurrency:   2,
		DownloadTimeoutSec: 10,
		DownloadMaxBytes:   10 << 20,
	}
}

func newTestRunner(t *testing.T, chat llm.ChatClient, files llm.FileClient, embedder *stubEmbedder) (*Runner, *documents.MemoryRepo, *checklists.MemoryRepo) {
	t.Helper()
	docs := documents.NewMemoryRepo()
	checks := checklists.NewMemoryRepo()
	runner := &Runner{
		Docs:       docs,
		Checklists: checks,
		Chat:       chat,
		Files:      files,
		Embedder:   embedder,
		Parser:     parse.NewParser(),
		Cfg:        testConfig(),
	}
	return runner, docs, checks
}

func seedDocument(t *testing.T, docs *documents.MemoryRepo, status string) {
	t.Helper()
	err := docs.Create(context.Background(), documents.Document{
		ID:        "doc-1",
		UserID:    "user-1",
		FileName:  "edital.csv",
		Status:    status,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}
}

func happyPathResponses() map[string]string {
	return map[string]string{
		"checklist_block_edital": `{"edital": {
			"orgao": {"value": "Prefeitura Municipal de X", "evidence": {"trecho": "PREFEITURA MUNICIPAL DE X", "ref": "1.1", "page": 1}},
			"objeto": {"value": "Fornecimento de energia", "evidence": null},
			"totalReais": {"value": "1.234,56", "evidence": null}
		}}`,
		"checklist_block_analise": `{"responsavelAnalise": {"value": "", "evidence": null}, "pontuacao": 72, "recomendacao": {"value": "Recomenda-se participar.", "evidence": null}}`,
		"checklist_block_pagamento_contrato": `{"outrosEdital": {"mecanismoPagamento": {"value": "Pagamento em 30 dias', 'evidencia':{'trecho':'...'}}}", "evidence": null}}}`,
	}
}

func TestProcessJobHappyPathTextMode(t *testing.T) {
	server := serveFile(t, csvBody(200))
	chat := &stubChat{responses: happyPathResponses()}
	embedder := &stubEmbedder{}
	runner, docs, checks := newTestRunner(t, chat, nil, embedder)
	seedDocument(t, docs, documents.StatusPending)

	job := queue.Job{DocumentID: "doc-1", UserID: "user-1", FileURL: server.URL, FileName: "edital.csv"}
	if err := runner.ProcessJob(context.Background(), job); err != nil {
		t.Fatalf("process job: %v", err)
	}

	doc, err := docs.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if doc.Status != documents.StatusDone {
		t.Fatalf("document status = %s, want done", doc.Status)
	}

	row, err := checks.GetByDocumentID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("get checklist: %v", err)
	}
	edital := row.Data["edital"].(map[string]any)
	if edital["orgao"] != "Prefeitura Municipal de X" {
		t.Fatalf("edital.orgao = %v", edital["orgao"])
	}
	if edital["totalReais"] != "R$ 1.234,56" {
		t.Fatalf("totalReais not normalised: %v", edital["totalReais"])
	}
	if row.Data["pontuacao"] != 72 {
		t.Fatalf("pontuacao = %v", row.Data["pontuacao"])
	}
	if row.Data["schemaVersion"] != 2 {
		t.Fatalf("schemaVersion = %v, want 2", row.Data["schemaVersion"])
	}
	if row.Pontuacao == nil || *row.Pontuacao != 72 {
		t.Fatalf("scalar pontuacao column not extracted")
	}
	if row.Orgao == nil || *row.Orgao != "Prefeitura Municipal de X" {
		t.Fatalf("scalar orgao column not extracted")
	}

	outros := row.Data["outrosEdital"].(map[string]any)
	if outros["mecanismoPagamento"] != "Pagamento em 30 dias" {
		t.Fatalf("mecanismoPagamento not sanitised: %q", outros["mecanismoPagamento"])
	}

	evidence := row.Data["evidence"].(map[string]any)
	if _, ok := evidence[blocks.KeyEdital]; !ok {
		t.Fatalf("evidence for edital block missing")
	}

	if chat.calls.Load() != int64(len(blocks.Blocks)) {
		t.Fatalf("expected %d block calls, got %d", len(blocks.Blocks), chat.calls.Load())
	}
	if embedder.queryCalls.Load() != int64(len(blocks.Blocks)) {
		t.Fatalf("expected one query embedding per block")
	}
	if embedder.batchCalls.Load() == 0 {
		t.Fatalf("chunk embedding should run in text mode")
	}
}

type failingBlockChat struct {
	stub stubChat
}

func (f *failingBlockChat) ChatStructured(ctx context.Context, input llm.ChatInput) (json.RawMessage, error) {
	if input.SchemaName == "checklist_block_prazos" {
		return json.RawMessage(`{"prazos": "invalid"}`), nil
	}
	return f.stub.ChatStructured(ctx, input)
}

func TestProcessJobInvalidBlockResultFails(t *testing.T) {
	server := serveFile(t, csvBody(200))
	chat := &failingBlockChat{stub: stubChat{responses: happyPathResponses()}}
	runner, docs, checks := newTestRunner(t, chat, nil, &stubEmbedder{})
	seedDocument(t, docs, documents.StatusPending)

	job := queue.Job{DocumentID: "doc-1", UserID: "user-1", FileURL: server.URL, FileName: "edital.csv"}
	err := runner.ProcessJob(context.Background(), job)
	if err == nil {
		t.Fatalf("expected failure on invalid block result")
	}

	var se StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StageError, got %T", err)
	}
	if se.Stage != StageBlockGenerate || se.BlockKey != blocks.KeyPrazos {
		t.Fatalf("stage/block = %s/%s", se.Stage, se.BlockKey)
	}

	doc, _ := docs.GetByID(context.Background(), "doc-1")
	if doc.Status != documents.StatusFailed {
		t.Fatalf("document status = %s, want failed", doc.Status)
	}
	if _, err := checks.GetByDocumentID(context.Background(), "doc-1"); !errors.Is(err, checklists.ErrNotFound) {
		t.Fatalf("no checklist row should exist on failure")
	}
}

func TestProcessJobDuplicateDeliveryShortCircuits(t *testing.T) {
	chat := &stubChat{responses: happyPathResponses()}
	runner, docs, checks := newTestRunner(t, chat, nil, &stubEmbedder{})
	seedDocument(t, docs, documents.StatusDone)

	job := queue.Job{DocumentID: "doc-1", UserID: "user-1", FileURL: "http://unused.invalid", FileName: "edital.csv"}
	if err := runner.ProcessJob(context.Background(), job); err != nil {
		t.Fatalf("duplicate delivery should not error: %v", err)
	}
	if chat.calls.Load() != 0 {
		t.Fatalf("duplicate delivery must not reach the LLM")
	}
	if _, err := checks.GetByDocumentID(context.Background(), "doc-1"); !errors.Is(err, checklists.ErrNotFound) {
		t.Fatalf("duplicate delivery must not insert a checklist")
	}
	doc, _ := docs.GetByID(context.Background(), "doc-1")
	if doc.Status != documents.StatusDone {
		t.Fatalf("duplicate delivery mutated status to %s", doc.Status)
	}
}

func TestProcessJobDocumentAbsentDropped(t *testing.T) {
	runner, _, _ := newTestRunner(t, &stubChat{}, nil, &stubEmbedder{})
	job := queue.Job{DocumentID: "missing", UserID: "user-1", FileURL: "http://unused.invalid"}
	if err := runner.ProcessJob(context.Background(), job); err != nil {
		t.Fatalf("absent document should be dropped without error, got %v", err)
	}
}

func TestProcessJobPDFNativeMode(t *testing.T) {
	server := serveFile(t, "%PDF-1.7 fake body")
	files := &stubFiles{responses: happyPathResponses()}
	embedder := &stubEmbedder{}
	runner, docs, checks := newTestRunner(t, &stubChat{}, files, embedder)
	runner.Cfg.PDFBlockDelaySec = 0
	seedDocument(t, docs, documents.StatusPending)

	usePDF := true
	job := queue.Job{DocumentID: "doc-1", UserID: "user-1", FileURL: server.URL, FileName: "edital.pdf", UsePDFFile: &usePDF}
	if err := runner.ProcessJob(context.Background(), job); err != nil {
		t.Fatalf("process job: %v", err)
	}

	if files.uploads.Load() != 1 {
		t.Fatalf("expected one PDF upload, got %d", files.uploads.Load())
	}
	if embedder.batchCalls.Load() != 0 || embedder.queryCalls.Load() != 0 {
		t.Fatalf("PDF-native mode must not call the embedder")
	}

	row, err := checks.GetByDocumentID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("get checklist: %v", err)
	}
	if row.Data["schemaVersion"] != 2 {
		t.Fatalf("schemaVersion = %v, want 2", row.Data["schemaVersion"])
	}
	doc, _ := docs.GetByID(context.Background(), "doc-1")
	if doc.Status != documents.StatusDone {
		t.Fatalf("document status = %s, want done", doc.Status)
	}
}

func TestProcessJobDownloadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	runner, docs, _ := newTestRunner(t, &stubChat{}, nil, &stubEmbedder{})
	seedDocument(t, docs, documents.StatusPending)

	job := queue.Job{DocumentID: "doc-1", UserID: "user-1", FileURL: server.URL, FileName: "edital.csv"}
	err := runner.ProcessJob(context.Background(), job)
	if err == nil {
		t.Fatalf("expected download failure")
	}
	var se StageError
	if !errors.As(err, &se) || se.Stage != StageDownload {
		t.Fatalf("expected download stage error, got %v", err)
	}
	doc, _ := docs.GetByID(context.Background(), "doc-1")
	if doc.Status != documents.StatusFailed {
		t.Fatalf("document status = %s, want failed", doc.Status)
	}
}

func TestHandleMessageDropsInvalidPayload(t *testing.T) {
	chat := &stubChat{}
	runner, _, _ := newTestRunner(t, chat, nil, &stubEmbedder{})
	runner.HandleMessage(context.Background(), []byte(`{"userId": "u"}`))
	runner.HandleMessage(context.Background(), []byte(`{broken`))
	if chat.calls.Load() != 0 {
		t.Fatalf("invalid payloads must be dropped before processing")
	}
}
