package queue

import (
	"encoding/json"
	"errors"
	"strings"
)

// Job is the payload pushed to and popped from the ingest queue.
type Job struct {
	DocumentID string `json:"documentId"`
	UserID     string `json:"userId"`
	FileURL    string `json:"fileUrl"`
	FileName   string `json:"fileName,omitempty"`
	UsePDFFile *bool  `json:"usePdfFile,omitempty"`
}

// ErrInvalidJob indicates a payload missing one of the required fields.
var ErrInvalidJob = errors.New("invalid job payload")

// EncodeJob returns the JSON representation of a job.
func EncodeJob(job Job) ([]byte, error) {
	return json.Marshal(job)
}

// DecodeJob parses a JSON payload into a Job.
func DecodeJob(payload []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Validate checks the required fields. Callers drop invalid jobs without retry.
func (j Job) Validate() error {
	if strings.TrimSpace(j.DocumentID) == "" ||
		strings.TrimSpace(j.UserID) == "" ||
		strings.TrimSpace(j.FileURL) == "" {
		return ErrInvalidJob
	}
	return nil
}
