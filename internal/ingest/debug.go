package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"hilicita-backend/internal/shared/storage/object"
	"hilicita-backend/internal/shared/telemetry"
)

// uploadDebugJSON writes a debug artefact (parse dump, raw LLM responses) to
// the debug bucket, keyed by user and document. Best-effort: failures are
// logged and never fail the job.
func uploadDebugJSON(ctx context.Context, store object.ObjectStore, userID, documentID, suffix string, payload any) {
	if store == nil {
		return
	}
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		telemetry.Warn("ingest.debug_marshal_failed", map[string]any{
			"document_id": documentID,
			"suffix":      suffix,
			"error":       err.Error(),
		})
		return
	}
	key := fmt.Sprintf("%s/%s-%s.json", userID, documentID, suffix)
	if _, err := store.SaveWithKey(ctx, key, "application/json", bytes.NewReader(body)); err != nil {
		telemetry.Warn("ingest.debug_upload_failed", map[string]any{
			"document_id": documentID,
			"key":         key,
			"error":       err.Error(),
		})
		return
	}
	telemetry.Info("ingest.debug_uploaded", map[string]any{
		"document_id": documentID,
		"key":         key,
		"size_bytes":  len(body),
	})
}
