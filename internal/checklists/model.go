package checklists

import "time"

// Checklist is the persisted result of one ingested edital. Data holds the
// full schema-v2 checklist JSON; the scalar columns are extracted from it for
// listing without unpacking the JSONB payload.
type Checklist struct {
	ID         string
	UserID     string
	FileName   string
	Data       map[string]any
	Pontuacao  *int
	Orgao      *string
	Objeto     *string
	ValorTotal *string
	DocumentID string
	CreatedAt  time.Time
}
