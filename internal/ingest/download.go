package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// downloadToTemp streams the presigned URL to a temporary file and returns
// its path. The caller removes the file on every exit path. The copy is
// bounded by maxBytes to protect the disk quota.
func downloadToTemp(ctx context.Context, client *http.Client, fileURL, fileName string, maxBytes int64) (string, error) {
	tmp, err := os.CreateTemp("", "ingest-*"+tempSuffixFromName(fileName))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		cleanup()
		return "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		cleanup()
		return "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		cleanup()
		return "", fmt.Errorf("download file: http status %d", resp.StatusCode)
	}

	written, err := io.Copy(tmp, io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		cleanup()
		return "", fmt.Errorf("write download: %w", err)
	}
	if written > maxBytes {
		cleanup()
		return "", fmt.Errorf("download exceeds %d bytes", maxBytes)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}

// tempSuffixFromName mirrors the download suffix choice for tests.
func tempSuffixFromName(fileName string) string {
	if ext := filepath.Ext(strings.TrimSpace(fileName)); ext != "" {
		return ext
	}
	return ".bin"
}
