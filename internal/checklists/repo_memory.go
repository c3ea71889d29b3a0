package checklists

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory Repo used in tests and dev mode. It enforces the
// same one-checklist-per-document rule as the Postgres unique index.
type MemoryRepo struct {
	mu         sync.Mutex
	byDocument map[string]Checklist
}

// NewMemoryRepo creates an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byDocument: map[string]Checklist{}}
}

// Insert writes a checklist, rejecting a second row for the same document.
func (r *MemoryRepo) Insert(ctx context.Context, checklist Checklist) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byDocument[checklist.DocumentID]; ok {
		return ErrDuplicate
	}
	r.byDocument[checklist.DocumentID] = checklist
	return nil
}

// GetByDocumentID returns the checklist linked to a document.
func (r *MemoryRepo) GetByDocumentID(ctx context.Context, documentID string) (Checklist, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	checklist, ok := r.byDocument[documentID]
	if !ok {
		return Checklist{}, ErrNotFound
	}
	return checklist, nil
}

var _ Repo = (*MemoryRepo)(nil)
