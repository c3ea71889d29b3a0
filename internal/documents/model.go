package documents

import "time"

// Status lifecycle for an uploaded document. Transitions are strictly
// pending -> processing -> (done | failed); a document never re-enters
// processing.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// Document represents an uploaded edital owned by a user.
type Document struct {
	ID            string
	UserID        string
	FileName      string
	Status        string
	StorageKey    string
	VectorStoreID string
	CreatedAt     time.Time
}
