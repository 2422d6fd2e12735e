package student

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/password"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/resource"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/student/entity"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/student/repo"
)

// Kind is the patch contract for student_data.
var Kind = resource.Kind{
	Name:      "student",
	Root:      "student_data",
	Forbidden: []string{"tenant_id", "student_id", "student_email", "password", "password_hash", "creation_date"},
}

// RegisterInput is the registration payload. StudentID is generated when empty.
type RegisterInput struct {
	TenantID     string `json:"tenant_id" validate:"required"`
	StudentID    string `json:"student_id"`
	StudentEmail string `json:"student_email" validate:"required,email"`
	Password     string `json:"password" validate:"required"`
	StudentName  string `json:"student_name"`
	Birthday     string `json:"birthday"`
	Gender       string `json:"gender"`
	Telephone    string `json:"telephone"`
	RockieCoins  *int64 `json:"rockie_coins"`
	RockieGems   *int64 `json:"rockie_gems"`
}

// Service orchestrates the student lifecycle.
type Service struct {
	repo   repo.Repository
	hasher password.Hasher
	newID  func() string
	now    func() time.Time
}

func NewService(r repo.Repository, hasher password.Hasher, newID func() string) *Service {
	if hasher == nil {
		hasher = password.BcryptHasher{Cost: 12}
	}
	return &Service{repo: r, hasher: hasher, newID: newID, now: time.Now}
}

// Register creates a student with a hashed password. It fails with
// common.ErrConflict when the id or the email is already taken in the tenant.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.Student, error) {
	in.TenantID = strings.TrimSpace(in.TenantID)
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.StudentEmail = entity.NormalizeEmail(in.StudentEmail)
	if err := common.ValidateStruct(in); err != nil {
		return nil, err
	}
	if in.StudentID == "" {
		in.StudentID = s.newID()
	}

	hash, algo, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	data := resource.Document{
		"student_name": "Unknown",
		"rockie_coins": int64(0),
		"rockie_gems":  int64(0),
	}
	if in.StudentName != "" {
		data["student_name"] = in.StudentName
	}
	if in.RockieCoins != nil {
		data["rockie_coins"] = *in.RockieCoins
	}
	if in.RockieGems != nil {
		data["rockie_gems"] = *in.RockieGems
	}
	for field, v := range map[string]string{"birthday": in.Birthday, "gender": in.Gender, "telephone": in.Telephone} {
		if v != "" {
			data[field] = v
		}
	}

	now := s.now().UTC()
	st := &entity.Student{
		TenantID:     in.TenantID,
		StudentID:    in.StudentID,
		StudentEmail: in.StudentEmail,
		PasswordHash: hash,
		PasswordAlgo: algo,
		Data:         data,
		Version:      1,
		CreationDate: now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Get returns the student the caller is authenticated as.
func (s *Service) Get(ctx context.Context, tenantID, studentID string) (*entity.Student, error) {
	st, err := s.repo.GetByID(ctx, tenantID, studentID)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return st, nil
}

// Update merges patch into student_data. Identity fields are rejected and
// nothing is written in that case.
func (s *Service) Update(ctx context.Context, tenantID, studentID string, patch map[string]any) (*entity.Student, error) {
	st, err := s.repo.GetByID(ctx, tenantID, studentID)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	data, err := Kind.Apply(st.Data, patch)
	if err != nil {
		return nil, err
	}
	st.Data = data
	if err := s.repo.Update(ctx, st, st.Version); err != nil {
		return nil, err
	}
	return st, nil
}

// ChangePassword requires the current password before storing a new hash.
func (s *Service) ChangePassword(ctx context.Context, tenantID, studentID, current, next string) error {
	if next == "" {
		return fmt.Errorf("%w: missing new_password", common.ErrValidation)
	}
	st, err := s.repo.GetByID(ctx, tenantID, studentID)
	if err != nil {
		return wrapNotFound(err)
	}
	if !s.hasher.Verify(st.PasswordHash, current) {
		return common.ErrUnauthorized
	}
	hash, algo, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, tenantID, studentID, hash, algo)
}

// Delete removes the student record. Sessions are not cascaded; the token
// validator rejects tokens whose principal no longer exists.
func (s *Service) Delete(ctx context.Context, tenantID, studentID string) error {
	return wrapNotFound(s.repo.Delete(ctx, tenantID, studentID))
}

func wrapNotFound(err error) error {
	if err == common.ErrNotFound {
		return fmt.Errorf("student %w", common.ErrNotFound)
	}
	return err
}
