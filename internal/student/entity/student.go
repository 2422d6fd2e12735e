package entity

import (
	"time"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/resource"
)

// Student is a credential record plus the free-form student_data profile
// (student_name, birthday, gender, telephone, rockie_coins, rockie_gems...).
// (TenantID, StudentID) and (TenantID, StudentEmail) are both unique.
type Student struct {
	TenantID     string            `db:"tenant_id"`
	StudentID    string            `db:"student_id"`
	StudentEmail string            `db:"student_email"`
	PasswordHash string            `db:"password_hash"`
	PasswordAlgo string            `db:"password_algo"`
	Data         resource.Document `db:"student_data"`
	Version      int64             `db:"version"`
	CreationDate time.Time         `db:"creation_date"`
	UpdatedAt    time.Time         `db:"updated_at"`
}

// View is the public projection of a student. It never carries the
// password hash.
func (s *Student) View() map[string]any {
	data := s.Data.Clone()
	delete(data, "password")
	return map[string]any{
		"tenant_id":     s.TenantID,
		"student_id":    s.StudentID,
		"student_email": s.StudentEmail,
		"creation_date": s.CreationDate.UTC().Format(time.RFC3339),
		"student_data":  map[string]any(data),
	}
}
