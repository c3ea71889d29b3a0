package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// GetByID returns a document by ID.
func (r *PGRepo) GetByID(ctx context.Context, documentID string) (Document, error) {
	const query = `
SELECT id, "userId", file_name, status, "storageKey", "vectorStoreId", created_at
FROM "Document"
WHERE id = $1
LIMIT 1`
	var d Document
	var fileName sql.NullString
	var storageKey sql.NullString
	var vectorStoreID sql.NullString
	err := r.DB.QueryRowContext(ctx, query, documentID).Scan(
		&d.ID,
		&d.UserID,
		&fileName,
		&d.Status,
		&storageKey,
		&vectorStoreID,
		&d.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	d.FileName = fileName.String
	d.StorageKey = storageKey.String
	d.VectorStoreID = vectorStoreID.String
	return d, nil
}

// TransitionStatus updates status only when the current status is in from.
func (r *PGRepo) TransitionStatus(ctx context.Context, documentID, to string, from ...string) (bool, error) {
	if len(from) == 0 {
		return false, errors.New("transition requires at least one source status")
	}
	placeholders := make([]string, 0, len(from))
	args := []any{to, documentID}
	for i, status := range from {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+3))
		args = append(args, status)
	}
	query := fmt.Sprintf(
		`UPDATE "Document" SET status = $1 WHERE id = $2 AND status IN (%s)`,
		strings.Join(placeholders, ", "),
	)
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// SetVectorStoreID records the chunk-persistence marker on the document.
func (r *PGRepo) SetVectorStoreID(ctx context.Context, documentID, vectorStoreID string) error {
	const query = `UPDATE "Document" SET "vectorStoreId" = $1 WHERE id = $2`
	_, err := r.DB.ExecContext(ctx, query, vectorStoreID, documentID)
	return err
}

var _ Repo = (*PGRepo)(nil)
