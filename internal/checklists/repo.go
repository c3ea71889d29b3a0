package checklists

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no checklist row matches.
	ErrNotFound = errors.New("checklist not found")
	// ErrDuplicate is returned when a checklist already exists for the
	// document (UNIQUE "documentId" violation).
	ErrDuplicate = errors.New("checklist already exists for document")
)

// Repo defines persistence operations for checklists.
type Repo interface {
	Insert(ctx context.Context, checklist Checklist) error
	GetByDocumentID(ctx context.Context, documentID string) (Checklist, error)
}
