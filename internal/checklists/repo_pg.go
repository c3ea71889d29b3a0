package checklists

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Insert writes a checklist row. A second insert for the same document maps
// the unique violation to ErrDuplicate.
func (r *PGRepo) Insert(ctx context.Context, checklist Checklist) error {
	const query = `
INSERT INTO "Checklist" (id, "userId", file_name, data, pontuacao, orgao, objeto, valor_total, "documentId", created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	payload, err := json.Marshal(checklist.Data)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		checklist.ID,
		checklist.UserID,
		checklist.FileName,
		payload,
		checklist.Pontuacao,
		checklist.Orgao,
		checklist.Objeto,
		checklist.ValorTotal,
		checklist.DocumentID,
		checklist.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByDocumentID returns the checklist linked to a document.
func (r *PGRepo) GetByDocumentID(ctx context.Context, documentID string) (Checklist, error) {
	const query = `
SELECT id, "userId", file_name, data, pontuacao, orgao, objeto, valor_total, "documentId", created_at
FROM "Checklist"
WHERE "documentId" = $1
LIMIT 1`
	var c Checklist
	var fileName sql.NullString
	var payload []byte
	var pontuacao sql.NullInt64
	var orgao sql.NullString
	var objeto sql.NullString
	var valorTotal sql.NullString
	err := r.DB.QueryRowContext(ctx, query, documentID).Scan(
		&c.ID,
		&c.UserID,
		&fileName,
		&payload,
		&pontuacao,
		&orgao,
		&objeto,
		&valorTotal,
		&c.DocumentID,
		&c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Checklist{}, ErrNotFound
	}
	if err != nil {
		return Checklist{}, err
	}
	c.FileName = fileName.String
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &c.Data); err != nil {
			return Checklist{}, err
		}
	}
	if pontuacao.Valid {
		v := int(pontuacao.Int64)
		c.Pontuacao = &v
	}
	if orgao.Valid {
		c.Orgao = &orgao.String
	}
	if objeto.Valid {
		c.Objeto = &objeto.String
	}
	if valorTotal.Valid {
		c.ValorTotal = &valorTotal.String
	}
	return c, nil
}

var _ Repo = (*PGRepo)(nil)
