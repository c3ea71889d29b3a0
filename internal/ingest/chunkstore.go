package ingest

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"

	"hilicita-backend/internal/chunk"
	"hilicita-backend/internal/shared/telemetry"
)

// persistedVectorDim is pinned by the DocumentChunk schema. Vectors of any
// other dimension are skipped, not resized: the retrieval path never reads
// persisted chunks back.
const persistedVectorDim = 1536

// ChunkStore persists embedded chunks for later semantic search outside the
// ingest path.
type ChunkStore interface {
	SaveChunks(ctx context.Context, documentID string, chunks []chunk.Chunk) error
}

// PGChunkStore implements ChunkStore on the DocumentChunk table with pgvector
// embeddings.
type PGChunkStore struct {
	DB *sql.DB
}

// SaveChunks replaces the document's chunk rows. Re-ingest after a crash
// rewrites the full set.
func (s *PGChunkStore) SaveChunks(ctx context.Context, documentID string, chunks []chunk.Chunk) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM "DocumentChunk" WHERE "documentId" = $1`, documentID); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}

	const query = `
INSERT INTO "DocumentChunk" (id, "documentId", chunk_index, page, section_hint, content, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, c := range chunks {
		var embedding any
		if len(c.Vector) == persistedVectorDim {
			embedding = pgvector.NewVector(c.Vector)
		} else if len(c.Vector) > 0 {
			telemetry.Warn("ingest.chunk_vector_dim_skipped", map[string]any{
				"document_id": documentID,
				"chunk_index": c.ID,
				"dim":         len(c.Vector),
			})
		}
		var hint any
		if c.SectionHint != "" {
			hint = c.SectionHint
		}
		var page any
		if c.Page != nil {
			page = *c.Page
		}
		if _, err := tx.ExecContext(ctx, query,
			uuid.NewString(), documentID, c.ID, page, hint, c.Text, embedding,
		); err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

var _ ChunkStore = (*PGChunkStore)(nil)
