package documents

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory Repo used in tests and dev mode.
type MemoryRepo struct {
	mu   sync.Mutex
	docs map[string]Document
}

// NewMemoryRepo creates an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{docs: map[string]Document{}}
}

// Create inserts a document, primarily for test setup.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = doc
	return nil
}

// GetByID returns a document by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, documentID string) (Document, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// TransitionStatus updates status only when the current status is in from.
func (r *MemoryRepo) TransitionStatus(ctx context.Context, documentID, to string, from ...string) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return false, nil
	}
	for _, status := range from {
		if doc.Status == status {
			doc.Status = to
			r.docs[documentID] = doc
			return true, nil
		}
	}
	return false, nil
}

// SetVectorStoreID records the chunk-persistence marker on the document.
func (r *MemoryRepo) SetVectorStoreID(ctx context.Context, documentID, vectorStoreID string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return ErrNotFound
	}
	doc.VectorStoreID = vectorStoreID
	r.docs[documentID] = doc
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
