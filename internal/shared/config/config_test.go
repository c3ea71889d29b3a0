package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.QueueName != "document:ingest" {
		t.Fatalf("queue name = %s", cfg.QueueName)
	}
	if !cfg.UseChecklistBlocks {
		t.Fatalf("USE_CHECKLIST_BLOCKS should default to true")
	}
	if cfg.UsePDFAsFile {
		t.Fatalf("USE_PDF_AS_FILE should default to false")
	}
	if cfg.ChunkMinChars != 800 || cfg.ChunkMaxChars != 1200 || cfg.ChunkOverlapChars != 150 {
		t.Fatalf("chunk defaults wrong: %d/%d/%d", cfg.ChunkMinChars, cfg.ChunkMaxChars, cfg.ChunkOverlapChars)
	}
	if cfg.TopKRetrieval != 12 || cfg.TopNForMMR != 40 || cfg.MMRLambda != 0.7 {
		t.Fatalf("retrieval defaults wrong")
	}
	if cfg.PDFBlockDelaySec != 0 {
		t.Fatalf("PDF_BLOCK_DELAY_SEC should default to 0")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("USE_CHECKLIST_BLOCKS", "false")
	t.Setenv("USE_PDF_AS_FILE", "1")
	t.Setenv("CHUNK_MAX_CHARS", "1500")
	t.Setenv("MMR_LAMBDA", "0.5")
	t.Setenv("PDF_BLOCK_DELAY_SEC", "2")

	cfg := Load()
	if cfg.UseChecklistBlocks {
		t.Fatalf("USE_CHECKLIST_BLOCKS=false not honoured")
	}
	if !cfg.UsePDFAsFile {
		t.Fatalf("USE_PDF_AS_FILE=1 not honoured")
	}
	if cfg.ChunkMaxChars != 1500 {
		t.Fatalf("CHUNK_MAX_CHARS override lost")
	}
	if cfg.MMRLambda != 0.5 {
		t.Fatalf("MMR_LAMBDA override lost")
	}
	if cfg.PDFBlockDelaySec != 2 {
		t.Fatalf("PDF_BLOCK_DELAY_SEC override lost")
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("CHUNK_MIN_CHARS", "muitos")
	t.Setenv("MMR_LAMBDA", "x")
	cfg := Load()
	if cfg.ChunkMinChars != 800 {
		t.Fatalf("invalid int should fall back to default")
	}
	if cfg.MMRLambda != 0.7 {
		t.Fatalf("invalid float should fall back to default")
	}
}
