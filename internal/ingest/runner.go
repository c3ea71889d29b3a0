package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"hilicita-backend/internal/blocks"
	"hilicita-backend/internal/checklist"
	"hilicita-backend/internal/checklists"
	"hilicita-backend/internal/chunk"
	"hilicita-backend/internal/documents"
	"hilicita-backend/internal/embed"
	"hilicita-backend/internal/llm"
	"hilicita-backend/internal/parse"
	"hilicita-backend/internal/queue"
	"hilicita-backend/internal/retrieve"
	"hilicita-backend/internal/shared/config"
	"hilicita-backend/internal/shared/metrics"
	"hilicita-backend/internal/shared/storage/object"
	"hilicita-backend/internal/shared/telemetry"
)

// Runner processes ingest jobs: download, parse, chunk, embed, block-wise
// retrieval + generation, merge, normalise, persist. One job at a time; all
// in-process state is owned by the job.
type Runner struct {
	Docs       documents.Repo
	Checklists checklists.Repo
	Chat       llm.ChatClient
	Files      llm.FileClient
	Embedder   embed.Embedder
	DebugStore object.ObjectStore
	Chunks     ChunkStore
	HTTPClient *http.Client
	Parser     *parse.Parser
	Cfg        config.Config
}

// HandleMessage decodes a raw queue payload and processes it. Invalid
// payloads are dropped (acknowledged) without retry.
func (r *Runner) HandleMessage(ctx context.Context, payload []byte) {
	metrics.IncIngestJobsReceived()
	job, err := queue.DecodeJob(payload)
	if err != nil {
		metrics.IncIngestJobsDropped()
		telemetry.Error("ingest.payload_decode_failed", map[string]any{
			"payload_len": len(payload),
			"error":       err.Error(),
		})
		return
	}
	if err := job.Validate(); err != nil {
		metrics.IncIngestJobsDropped()
		telemetry.Error("ingest.payload_invalid", map[string]any{
			"document_id": job.DocumentID,
			"user_id":     job.UserID,
		})
		return
	}
	if err := r.ProcessJob(ctx, job); err != nil {
		telemetry.Error("ingest.job_failed", jobFields(job, map[string]any{"error": err.Error()}))
	}
}

// ProcessJob runs one ingest job to a terminal document status. Duplicate
// deliveries for a document already done exit without mutation.
func (r *Runner) ProcessJob(ctx context.Context, job queue.Job) error {
	startedAt := time.Now().UTC()

	doc, err := r.Docs.GetByID(ctx, job.DocumentID)
	if errors.Is(err, documents.ErrNotFound) {
		telemetry.Warn("ingest.document_absent", jobFields(job, nil))
		return nil
	}
	if err != nil {
		return stageErr(StagePersist, fmt.Errorf("document lookup: %w", err))
	}
	if doc.Status == documents.StatusDone {
		metrics.IncIngestJobsSkippedDuplicate()
		telemetry.Info("ingest.duplicate_skipped", jobFields(job, map[string]any{"status": doc.Status}))
		return nil
	}

	ok, err := r.Docs.TransitionStatus(ctx, job.DocumentID, documents.StatusProcessing, documents.StatusPending)
	if err != nil {
		return stageErr(StagePersist, fmt.Errorf("set processing: %w", err))
	}
	if !ok {
		telemetry.Warn("ingest.processing_transition_lost", jobFields(job, map[string]any{"status": doc.Status}))
		return nil
	}
	r.logStatus(job, "pending->processing", documents.StatusProcessing, startedAt, nil)

	data, evidence, err := r.buildChecklist(ctx, job)
	if err != nil {
		r.failJob(job, startedAt, err)
		return err
	}

	data["evidence"] = evidence
	data = checklist.ApplyDefaults(data)
	data = checklist.Normalize(data)

	row := buildChecklistRow(job, data)
	if err := r.Checklists.Insert(ctx, row); err != nil {
		if errors.Is(err, checklists.ErrDuplicate) {
			telemetry.Warn("ingest.checklist_duplicate", jobFields(job, nil))
		} else {
			err = stageErr(StagePersist, fmt.Errorf("insert checklist: %w", err))
			r.failJob(job, startedAt, err)
			return err
		}
	}

	ok, err = r.Docs.TransitionStatus(ctx, job.DocumentID, documents.StatusDone, documents.StatusProcessing)
	if err != nil {
		err = stageErr(StagePersist, fmt.Errorf("set done: %w", err))
		r.failJob(job, startedAt, err)
		return err
	}
	if !ok {
		telemetry.Warn("ingest.done_transition_lost", jobFields(job, nil))
	}

	metrics.IncIngestJobsCompleted()
	metrics.ObserveIngestDurationMs(durationMs(startedAt))
	r.logStatus(job, "processing->done", documents.StatusDone, startedAt, nil)
	return nil
}

// buildChecklist downloads the file and runs the configured pipeline branch,
// returning the merged checklist data and the evidence accumulator.
func (r *Runner) buildChecklist(ctx context.Context, job queue.Job) (map[string]any, map[string]any, error) {
	if r.Chat == nil && !r.usePDFFile(job) {
		return nil, nil, stageErr(StageBlockGenerate, errors.New("llm client not configured"))
	}
	if r.Embedder == nil && !r.usePDFFile(job) && r.Cfg.UseChecklistBlocks {
		return nil, nil, stageErr(StageEmbed, errors.New("embedder not configured"))
	}
	tempPath, err := downloadToTemp(ctx, r.httpClient(), job.FileURL, job.FileName, r.Cfg.DownloadMaxBytes)
	if err != nil {
		return nil, nil, stageErr(StageDownload, err)
	}
	defer os.Remove(tempPath)

	if r.usePDFFile(job) {
		return r.runPDFNative(ctx, job, tempPath)
	}
	return r.runTextPipeline(ctx, job, tempPath)
}

func (r *Runner) usePDFFile(job queue.Job) bool {
	if job.UsePDFFile != nil {
		return *job.UsePDFFile
	}
	return r.Cfg.UsePDFAsFile
}

// runTextPipeline is the parsed-text branch: parse, chunk, embed, then
// block-wise retrieval + generation (or the legacy single call).
func (r *Runner) runTextPipeline(ctx context.Context, job queue.Job, tempPath string) (map[string]any, map[string]any, error) {
	segments, err := r.parser().Parse(tempPath, job.FileName)
	if err != nil {
		return nil, nil, stageErr(StageParse, err)
	}
	uploadDebugJSON(ctx, r.DebugStore, job.UserID, job.DocumentID, "parse-debug", map[string]any{
		"fileName":     job.FileName,
		"language":     r.parser().Language,
		"segmentCount": len(segments),
	})

	if !r.Cfg.UseChecklistBlocks {
		return r.runLegacySingleCall(ctx, job, segments)
	}

	chunks := chunk.Split(segments, chunk.Config{
		MinChars:     r.Cfg.ChunkMinChars,
		MaxChars:     r.Cfg.ChunkMaxChars,
		OverlapChars: r.Cfg.ChunkOverlapChars,
	})
	if len(chunks) == 0 {
		return nil, nil, stageErr(StageParse, errors.New("no chunks produced"))
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := r.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, nil, stageErr(StageEmbed, err)
	}
	if len(vectors) != len(chunks) {
		return nil, nil, stageErr(StageEmbed, fmt.Errorf("embedding count mismatch: got %d want %d", len(vectors), len(chunks)))
	}
	for i := range chunks {
		chunks[i].Vector = vectors[i]
	}

	r.persistChunks(ctx, job, chunks)

	return r.generateBlocks(ctx, job, chunks)
}

// persistChunks stores embedded chunks best-effort when enabled; failures
// never fail the job.
func (r *Runner) persistChunks(ctx context.Context, job queue.Job, chunks []chunk.Chunk) {
	if !r.Cfg.PersistChunks || r.Chunks == nil {
		return
	}
	if err := r.Chunks.SaveChunks(ctx, job.DocumentID, chunks); err != nil {
		telemetry.Warn("ingest.chunk_persist_failed", jobFields(job, map[string]any{"error": err.Error()}))
		return
	}
	if err := r.Docs.SetVectorStoreID(ctx, job.DocumentID, "pgvector:"+job.DocumentID); err != nil {
		telemetry.Warn("ingest.vector_store_mark_failed", jobFields(job, map[string]any{"error": err.Error()}))
	}
	telemetry.Info("ingest.chunks_persisted", jobFields(job, map[string]any{"chunks": len(chunks)}))
}

// generateBlocks runs the eight block calls with bounded fan-out and merges
// the results in the fixed block order regardless of completion order.
func (r *Runner) generateBlocks(ctx context.Context, job queue.Job, chunks []chunk.Chunk) (map[string]any, map[string]any, error) {
	opts := retrieve.Options{
		TopK:       r.Cfg.TopKRetrieval,
		TopNForMMR: r.Cfg.TopNForMMR,
		Lambda:     r.Cfg.MMRLambda,
	}

	flats := make([]map[string]any, len(blocks.Blocks))
	evs := make([]map[string]any, len(blocks.Blocks))
	raws := make([]json.RawMessage, len(blocks.Blocks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInt(1, r.Cfg.BlockConcurrency))
	for i, block := range blocks.Blocks {
		g.Go(func() error {
			queryVec, err := r.Embedder.EmbedQuery(gctx, block.SearchQuery())
			if err != nil {
				return blockErr(StageEmbed, block.Key, err)
			}
			top := retrieve.RetrieveForBlock(chunks, queryVec, block.Hints, opts)
			raw, err := r.Chat.ChatStructured(gctx, llm.ChatInput{
				System:     block.SystemPrompt,
				User:       blockUserPayload(job.FileName, contextFromChunks(top)),
				SchemaName: block.SchemaName,
				Schema:     block.Schema,
			})
			if err != nil {
				return blockErr(StageBlockGenerate, block.Key, err)
			}
			raws[i] = raw
			flat, ev, err := block.Flatten(raw)
			if err != nil {
				return blockErr(StageBlockGenerate, block.Key, err)
			}
			flats[i], evs[i] = flat, ev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	uploadDebugJSON(ctx, r.DebugStore, job.UserID, job.DocumentID, "openai-debug", rawByBlock(raws))

	return mergeBlockResults(flats, evs)
}

// runPDFNative uploads the raw PDF and runs the eight blocks against it
// directly, sequentially, with an optional pause between calls.
func (r *Runner) runPDFNative(ctx context.Context, job queue.Job, tempPath string) (map[string]any, map[string]any, error) {
	if r.Files == nil {
		return nil, nil, stageErr(StagePDFUpload, errors.New("multi-modal client not configured"))
	}
	fileRef, err := r.Files.Upload(ctx, tempPath, job.FileName)
	if err != nil {
		return nil, nil, stageErr(StagePDFUpload, err)
	}
	telemetry.Info("ingest.pdf_uploaded", jobFields(job, map[string]any{"file_ref": fileRef}))

	delay := time.Duration(r.Cfg.PDFBlockDelaySec) * time.Second
	flats := make([]map[string]any, len(blocks.Blocks))
	evs := make([]map[string]any, len(blocks.Blocks))
	raws := make([]json.RawMessage, len(blocks.Blocks))
	for i, block := range blocks.Blocks {
		if i > 0 && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, nil, blockErr(StageBlockGenerate, block.Key, ctx.Err())
			}
		}
		raw, err := r.Files.Respond(ctx, llm.FileInput{
			FileRef:     fileRef,
			System:      block.SystemPrompt,
			Instruction: pdfBlockInstruction,
			SchemaName:  block.SchemaName,
			Schema:      block.Schema,
		})
		if err != nil {
			return nil, nil, blockErr(StageBlockGenerate, block.Key, err)
		}
		raws[i] = raw
		flat, ev, err := block.Flatten(raw)
		if err != nil {
			return nil, nil, blockErr(StageBlockGenerate, block.Key, err)
		}
		flats[i], evs[i] = flat, ev
	}

	uploadDebugJSON(ctx, r.DebugStore, job.UserID, job.DocumentID, "openai-debug", rawByBlock(raws))

	return mergeBlockResults(flats, evs)
}

// runLegacySingleCall is the USE_CHECKLIST_BLOCKS=false path: one LLM call
// over the whole document context, flattened as a single pseudo-block.
func (r *Runner) runLegacySingleCall(ctx context.Context, job queue.Job, segments []parse.Segment) (map[string]any, map[string]any, error) {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	raw, err := r.Chat.ChatStructured(ctx, llm.ChatInput{
		System:     blocks.Full.SystemPrompt,
		User:       blockUserPayload(job.FileName, strings.Join(parts, "\n\n")),
		SchemaName: blocks.Full.SchemaName,
		Schema:     blocks.Full.Schema,
	})
	if err != nil {
		return nil, nil, blockErr(StageBlockGenerate, blocks.Full.Key, err)
	}
	flat, ev, err := blocks.Full.Flatten(raw)
	if err != nil {
		return nil, nil, blockErr(StageBlockGenerate, blocks.Full.Key, err)
	}
	evidence := map[string]any{}
	if len(ev) > 0 {
		evidence[blocks.Full.Key] = ev
	}
	return flat, evidence, nil
}

// mergeBlockResults deep-merges the flats in block order and accumulates the
// evidence trees keyed by block.
func mergeBlockResults(flats, evs []map[string]any) (map[string]any, map[string]any, error) {
	merged := map[string]any{}
	evidence := map[string]any{}
	for i, block := range blocks.Blocks {
		if flats[i] == nil {
			return nil, nil, blockErr(StageBlockGenerate, block.Key, errors.New("missing block result"))
		}
		checklist.DeepMerge(merged, flats[i])
		if len(evs[i]) > 0 {
			evidence[block.Key] = evs[i]
		}
	}
	return merged, evidence, nil
}

func (r *Runner) failJob(job queue.Job, startedAt time.Time, jobErr error) {
	// The terminal write still runs when the job context is gone.
	if _, err := r.Docs.TransitionStatus(context.Background(), job.DocumentID, documents.StatusFailed, documents.StatusProcessing); err != nil {
		telemetry.Error("ingest.failed_transition_error", jobFields(job, map[string]any{"error": err.Error()}))
	}
	metrics.IncIngestJobsFailed()
	metrics.ObserveIngestDurationMs(durationMs(startedAt))
	r.logStatus(job, "processing->failed", documents.StatusFailed, startedAt, jobErr)
}

func (r *Runner) logStatus(job queue.Job, transition, status string, startedAt time.Time, err error) {
	fields := jobFields(job, map[string]any{
		"status":            status,
		"status_transition": transition,
		"duration_ms":       durationMs(startedAt),
	})
	if err != nil {
		stage, blockKey, code := classify(err)
		fields["stage"] = stage
		if blockKey != "" {
			fields["block_key"] = blockKey
		}
		fields["error_code"] = code
		fields["error"] = sanitizeError(err)
		telemetry.Error("ingest.status", fields)
		return
	}
	telemetry.Info("ingest.status", fields)
}

func jobFields(job queue.Job, extra map[string]any) map[string]any {
	fields := map[string]any{
		"document_id": job.DocumentID,
		"user_id":     job.UserID,
		"file_name":   job.FileName,
	}
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}

func buildChecklistRow(job queue.Job, data map[string]any) checklists.Checklist {
	row := checklists.Checklist{
		ID:         uuid.NewString(),
		UserID:     job.UserID,
		FileName:   job.FileName,
		Data:       data,
		DocumentID: job.DocumentID,
		CreatedAt:  time.Now().UTC(),
	}
	if edital, ok := data["edital"].(map[string]any); ok {
		row.Orgao = nonEmptyString(edital["orgao"])
		row.Objeto = nonEmptyString(edital["objeto"])
		row.ValorTotal = nonEmptyString(edital["totalReais"])
		if row.ValorTotal == nil {
			row.ValorTotal = nonEmptyString(edital["valorTotal"])
		}
	}
	switch v := data["pontuacao"].(type) {
	case int:
		row.Pontuacao = &v
	case float64:
		n := int(v)
		row.Pontuacao = &n
	}
	return row
}

func nonEmptyString(v any) *string {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

const pdfBlockInstruction = "Com base no documento (edital de licitação) anexado, " +
	"extraia apenas a parte do checklist correspondente a este bloco e retorne em JSON conforme o schema."

func blockUserPayload(fileName, docContext string) string {
	if strings.TrimSpace(fileName) == "" {
		fileName = "document"
	}
	return fmt.Sprintf("Contexto do documento (%s):\n\n%s\n\nExtraia apenas a parte do checklist correspondente a este bloco e retorne em JSON.", fileName, docContext)
}

// contextFromChunks concatenates retrieved chunk texts, tagging each with its
// page when known.
func contextFromChunks(chunks []chunk.Chunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c.Page != nil {
			parts = append(parts, fmt.Sprintf("[página %d]\n%s", *c.Page, c.Text))
			continue
		}
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n\n")
}

func rawByBlock(raws []json.RawMessage) map[string]any {
	out := map[string]any{"mode": "blocks", "raw_by_block": map[string]json.RawMessage{}}
	byBlock := out["raw_by_block"].(map[string]json.RawMessage)
	for i, block := range blocks.Blocks {
		if raws[i] != nil {
			byBlock[block.Key] = raws[i]
		}
	}
	return out
}

func (r *Runner) httpClient() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	timeout := time.Duration(r.Cfg.DownloadTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	r.HTTPClient = &http.Client{Timeout: timeout}
	return r.HTTPClient
}

func (r *Runner) parser() *parse.Parser {
	if r.Parser == nil {
		r.Parser = parse.NewParser()
	}
	return r.Parser
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

func durationMs(startedAt time.Time) float64 {
	return float64(time.Since(startedAt).Microseconds()) / 1000.0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
