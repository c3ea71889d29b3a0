package queue

import "context"

// Consumer pops raw job payloads from a queue backend. Pop blocks up to the
// backend's poll timeout and returns ok=false when no job arrived.
type Consumer interface {
	Pop(ctx context.Context) (payload []byte, ok bool, err error)
}

// Producer pushes job payloads onto the queue. The worker itself only
// consumes; the producer side is exercised by the upload API and by tests.
type Producer interface {
	Push(ctx context.Context, job Job) error
}
