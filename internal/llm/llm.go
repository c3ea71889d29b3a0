package llm

import (
	"context"
	"encoding/json"
)

// ChatClient abstracts schema-constrained chat completion providers.
type ChatClient interface {
	// ChatStructured returns the raw JSON object produced under the given
	// schema constraint.
	ChatStructured(ctx context.Context, input ChatInput) (json.RawMessage, error)
}

// ChatInput carries one structured chat request.
type ChatInput struct {
	System     string
	User       string
	SchemaName string
	Schema     json.RawMessage
}

// FileClient abstracts multi-modal providers that answer over an uploaded
// file.
type FileClient interface {
	// Upload stores the file with the provider and returns its reference.
	Upload(ctx context.Context, path, fileName string) (string, error)
	// Respond answers the instruction over the uploaded file under the given
	// schema constraint.
	Respond(ctx context.Context, input FileInput) (json.RawMessage, error)
}

// FileInput carries one structured file-grounded request.
type FileInput struct {
	FileRef     string
	System      string
	Instruction string
	SchemaName  string
	Schema      json.RawMessage
}
