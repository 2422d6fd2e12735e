package entity

import (
	"time"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/resource"
)

// Activity is one play record of a student, keyed by
// (TenantID, StudentID, ActivityID). Data always carries "time".
type Activity struct {
	TenantID     string            `db:"tenant_id"`
	StudentID    string            `db:"student_id"`
	ActivityID   string            `db:"activity_id"`
	ActivityType string            `db:"activity_type"`
	Data         resource.Document `db:"activity_data"`
	Version      int64             `db:"version"`
	CreationDate time.Time         `db:"creation_date"`
	UpdatedAt    time.Time         `db:"updated_at"`
}

func (a *Activity) View() map[string]any {
	return map[string]any{
		"tenant_id":     a.TenantID,
		"student_id":    a.StudentID,
		"activity_id":   a.ActivityID,
		"activity_type": a.ActivityType,
		"activity_data": map[string]any(a.Data.Clone()),
		"creation_date": a.CreationDate.UTC().Format(time.RFC3339),
	}
}

// ListQuery selects one page of a student's activities ordered by
// ActivityID. After is the last id of the previous page.
type ListQuery struct {
	TenantID     string
	StudentID    string
	ActivityType string
	After        string
	Limit        int
}
