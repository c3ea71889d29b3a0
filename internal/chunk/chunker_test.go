package chunk

import (
	"strings"
	"testing"

	"hilicita-backend/internal/parse"
)

func makeSegments(t *testing.T, texts ...string) []parse.Segment {
	t.Helper()
	segments := make([]parse.Segment, 0, len(texts))
	for i, text := range texts {
		page := i + 1
		segments = append(segments, parse.Segment{Text: text, Page: &page})
	}
	return segments
}

func sentenceText(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("O edital define as regras do certame. ")
	}
	return strings.TrimSpace(b.String())
}

func TestSplitCoverage(t *testing.T) {
	segments := makeSegments(t, sentenceText(40), sentenceText(40), sentenceText(40))
	cfg := DefaultConfig()
	chunks := Split(segments, cfg)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	full := []rune(strings.Join([]string{segments[0].Text, segments[1].Text, segments[2].Text}, segmentSeparator))

	// Remove the overlap duplication: each chunk after the first repeats the
	// previous chunk's 150-rune suffix.
	var rebuilt []rune
	for i, c := range chunks {
		runes := []rune(c.Text)
		if i > 0 {
			runes = runes[cfg.OverlapChars:]
		}
		rebuilt = append(rebuilt, runes...)
	}
	if string(rebuilt) != string(full) {
		t.Fatalf("chunk concatenation does not cover the source text")
	}
}

func TestSplitBounds(t *testing.T) {
	segments := makeSegments(t, sentenceText(120))
	cfg := DefaultConfig()
	chunks := Split(segments, cfg)
	for i, c := range chunks {
		n := len([]rune(c.Text))
		if n > cfg.MaxChars {
			t.Fatalf("chunk %d has %d runes, above max %d", i, n, cfg.MaxChars)
		}
		if i < len(chunks)-1 && n < cfg.MinChars {
			t.Fatalf("chunk %d has %d runes, below min %d", i, n, cfg.MinChars)
		}
	}
}

func TestSplitOverlapLaw(t *testing.T) {
	segments := makeSegments(t, sentenceText(120))
	cfg := DefaultConfig()
	chunks := Split(segments, cfg)
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Text)
		curr := []rune(chunks[i].Text)
		if len(prev) < 300 || len(curr) < 300 {
			continue
		}
		suffix := string(prev[len(prev)-cfg.OverlapChars:])
		prefix := string(curr[:cfg.OverlapChars])
		if suffix != prefix {
			t.Fatalf("overlap law violated between chunks %d and %d", i-1, i)
		}
	}
}

func TestSplitShortInput(t *testing.T) {
	segments := makeSegments(t, "Pequeno trecho do edital.")
	chunks := Split(segments, DefaultConfig())
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != segments[0].Text {
		t.Fatalf("short input should be a single chunk")
	}
	if chunks[0].Page == nil || *chunks[0].Page != 1 {
		t.Fatalf("chunk should inherit the segment page")
	}
}

func TestSplitNeverMidWord(t *testing.T) {
	segments := makeSegments(t, sentenceText(120))
	cfg := DefaultConfig()
	chunks := Split(segments, cfg)
	for i := 0; i < len(chunks)-1; i++ {
		text := []rune(chunks[i].Text)
		last := text[len(text)-1]
		if last != '.' && last != ';' && last != ' ' && last != '\n' {
			t.Fatalf("chunk %d ends mid-word with %q", i, last)
		}
	}
}

func TestSplitPageInheritance(t *testing.T) {
	segments := makeSegments(t, sentenceText(50), sentenceText(50))
	chunks := Split(segments, DefaultConfig())
	if chunks[0].Page == nil || *chunks[0].Page != 1 {
		t.Fatalf("first chunk should start on page 1")
	}
	last := chunks[len(chunks)-1]
	if last.Page == nil {
		t.Fatalf("last chunk should carry a page")
	}
}

func TestDetectSectionHint(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"documentacao", "6. DOCUMENTAÇÃO DE HABILITAÇÃO\nitens...", HintDocumentos},
		{"habilitacao", "7.1 HABILITACAO JURIDICA\n...", HintDocumentos},
		{"prazos", "PRAZOS\nEnviar proposta até...", HintPrazos},
		{"impugnacao", "10. IMPUGNAÇÃO AO EDITAL\n...", HintPrazos},
		{"sessao", "SESSÃO PÚBLICA\n...", HintSessaoDisputa},
		{"lances", "9. LANCES\n...", HintSessaoDisputa},
		{"proposta", "PROPOSTA DE PREÇOS\n...", HintProposta},
		{"pagamento", "12. PAGAMENTO\n...", HintPagamento},
		{"analise", "ANÁLISE DE VIABILIDADE\n...", HintAnalise},
		{"modalidade", "MODALIDADE: PREGÃO ELETRÔNICO\n...", HintModalidade},
		{"edital", "EDITAL Nº 026/2025\n...", HintEdital},
		{"none", "texto corrido sem cabeçalho relevante", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectSectionHint(tc.text); got != tc.want {
				t.Fatalf("DetectSectionHint(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestDetectSectionHintFirstMatchWins(t *testing.T) {
	text := "PROPOSTA DE PREÇOS\n...\nDOCUMENTAÇÃO\n..."
	if got := DetectSectionHint(text); got != HintProposta {
		t.Fatalf("earliest heading should win, got %q", got)
	}
}

func TestSplitMidLineHeadingIgnored(t *testing.T) {
	text := "O fornecedor deve apresentar documentação conforme o edital."
	if got := DetectSectionHint(text); got != "" {
		t.Fatalf("lowercase mid-sentence words should not match, got %q", got)
	}
}
