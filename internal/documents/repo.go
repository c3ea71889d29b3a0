package documents

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a document row does not exist.
var ErrNotFound = errors.New("document not found")

// Repo defines persistence operations for documents.
type Repo interface {
	GetByID(ctx context.Context, documentID string) (Document, error)
	// TransitionStatus conditionally moves the document to the given status,
	// only when its current status is one of from. It reports whether a row
	// was updated, so callers can distinguish a lost race from success.
	TransitionStatus(ctx context.Context, documentID, to string, from ...string) (bool, error)
	// SetVectorStoreID records the chunk-persistence marker on the document.
	SetVectorStoreID(ctx context.Context, documentID, vectorStoreID string) error
}
