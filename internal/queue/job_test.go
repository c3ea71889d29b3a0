package queue

import (
	"errors"
	"testing"
)

func TestDecodeJobRoundTrip(t *testing.T) {
	usePDF := true
	job := Job{
		DocumentID: "doc-1",
		UserID:     "user-1",
		FileURL:    "https://example.com/edital.pdf?sig=abc",
		FileName:   "edital.pdf",
		UsePDFFile: &usePDF,
	}
	payload, err := EncodeJob(job)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeJob(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.DocumentID != job.DocumentID || decoded.FileURL != job.FileURL {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
	if decoded.UsePDFFile == nil || !*decoded.UsePDFFile {
		t.Fatalf("usePdfFile flag lost")
	}
}

func TestDecodeJobCamelCasePayload(t *testing.T) {
	payload := []byte(`{"documentId":"doc-1","userId":"user-1","fileUrl":"https://x/y.pdf","fileName":"y.pdf"}`)
	job, err := DecodeJob(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.DocumentID != "doc-1" || job.UserID != "user-1" {
		t.Fatalf("payload keys not mapped: %+v", job)
	}
	if job.UsePDFFile != nil {
		t.Fatalf("absent usePdfFile should stay nil")
	}
}

func TestDecodeJobInvalidJSON(t *testing.T) {
	if _, err := DecodeJob([]byte("{not-json")); err == nil {
		t.Fatalf("invalid JSON should fail")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		job     Job
		wantErr bool
	}{
		{"ok", Job{DocumentID: "d", UserID: "u", FileURL: "https://x"}, false},
		{"missing document", Job{UserID: "u", FileURL: "https://x"}, true},
		{"missing user", Job{DocumentID: "d", FileURL: "https://x"}, true},
		{"missing url", Job{DocumentID: "d", UserID: "u"}, true},
		{"blank url", Job{DocumentID: "d", UserID: "u", FileURL: "   "}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.job.Validate()
			if tc.wantErr && !errors.Is(err, ErrInvalidJob) {
				t.Fatalf("expected ErrInvalidJob, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
