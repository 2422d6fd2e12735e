package entity

import (
	"time"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/resource"
)

// DefaultAdorned is what a new rockie wears.
var DefaultAdorned = map[string]any{
	"head_accessory":       "head_acc001",
	"arms_accessory":       "arms_acc002",
	"body_accessory":       "body_acc003",
	"face_accessory":       "face_acc004",
	"background_accessory": "bg_acc005",
}

const DefaultEvolution = "Stage 1"

// Rockie is the pet owned by a student, one per (TenantID, StudentID).
// Data holds rockie_name, evolution, rockie_adorned and
// rockie_all_accessories_ids.
type Rockie struct {
	TenantID     string            `db:"tenant_id"`
	StudentID    string            `db:"student_id"`
	Level        int64             `db:"level"`
	Experience   int64             `db:"experience"`
	Data         resource.Document `db:"rockie_data"`
	Version      int64             `db:"version"`
	CreationDate time.Time         `db:"creation_date"`
	UpdatedAt    time.Time         `db:"updated_at"`
}

func (r *Rockie) View() map[string]any {
	return map[string]any{
		"tenant_id":     r.TenantID,
		"student_id":    r.StudentID,
		"level":         r.Level,
		"experience":    r.Experience,
		"rockie_data":   map[string]any(r.Data.Clone()),
		"creation_date": r.CreationDate.UTC().Format(time.RFC3339),
	}
}
