// Package activity stores the play records of the authenticated student.
package activity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/activity/entity"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/activity/repo"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/resource"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Kind is the patch contract for activity_data. activity_type is a column
// and is handled before the document patch.
var Kind = resource.Kind{
	Name:      "activity",
	Root:      "activity_data",
	Forbidden: []string{"tenant_id", "student_id", "activity_id", "creation_date"},
}

// CreateInput is the body of POST /activities. activitie_type is the
// spelling older clients send.
type CreateInput struct {
	ActivityID   string         `json:"activity_id"`
	ActivityType string         `json:"activity_type" validate:"required"`
	LegacyType   string         `json:"activitie_type"`
	Time         *int64         `json:"time" validate:"omitempty,min=0"`
	Data         map[string]any `json:"activity_data"`
}

// Page is one slice of a listing. Next is empty on the last page.
type Page struct {
	Items []*entity.Activity
	Next  string
}

type Service struct {
	repo  repo.Repository
	newID func() string
	now   func() time.Time
}

// NewService wires the repository. newID mints activity ids the client did
// not choose.
func NewService(r repo.Repository, newID func() string) *Service {
	return &Service{repo: r, newID: newID, now: time.Now}
}

func (s *Service) Create(ctx context.Context, tenantID, studentID string, in CreateInput) (*entity.Activity, error) {
	in.ActivityID = strings.TrimSpace(in.ActivityID)
	in.ActivityType = strings.TrimSpace(in.ActivityType)
	if in.ActivityType == "" {
		in.ActivityType = strings.TrimSpace(in.LegacyType)
	}
	if err := common.ValidateStruct(in); err != nil {
		return nil, err
	}
	if in.ActivityID == "" {
		in.ActivityID = s.newID()
	}

	data := resource.Document{}
	if in.Data != nil {
		var err error
		if data, err = Kind.Apply(data, map[string]any{Kind.Root: in.Data}); err != nil {
			return nil, err
		}
	}
	switch {
	case in.Time != nil:
		data["time"] = *in.Time
	case data["time"] == nil:
		data["time"] = int64(0)
	}

	now := s.now().UTC()
	a := &entity.Activity{
		TenantID:     tenantID,
		StudentID:    studentID,
		ActivityID:   in.ActivityID,
		ActivityType: in.ActivityType,
		Data:         data,
		Version:      1,
		CreationDate: now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, tenantID, studentID, activityID string) (*entity.Activity, error) {
	a, err := s.repo.Get(ctx, tenantID, studentID, activityID)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return a, nil
}

// List returns the student's activities in activity_id order. A limit of 0
// means DefaultPageSize.
func (s *Service) List(ctx context.Context, q entity.ListQuery) (Page, error) {
	switch {
	case q.Limit == 0:
		q.Limit = DefaultPageSize
	case q.Limit < 0 || q.Limit > MaxPageSize:
		return Page{}, fmt.Errorf("%w: limit must be between 1 and %d", common.ErrValidation, MaxPageSize)
	}
	items, err := s.repo.List(ctx, q)
	if err != nil {
		return Page{}, err
	}
	p := Page{Items: items}
	if len(items) == q.Limit {
		p.Next = items[len(items)-1].ActivityID
	}
	return p, nil
}

// Update applies patch. "activity_type" sets the type, every other key is a
// path into activity_data. Nothing is written if any key is rejected.
func (s *Service) Update(ctx context.Context, tenantID, studentID, activityID string, patch map[string]any) (*entity.Activity, error) {
	if len(patch) == 0 {
		return nil, fmt.Errorf("%w: no values to update", common.ErrValidation)
	}
	a, err := s.repo.Get(ctx, tenantID, studentID, activityID)
	if err != nil {
		return nil, wrapNotFound(err)
	}

	rest := make(map[string]any, len(patch))
	for k, v := range patch {
		switch {
		case k == "activity_type":
			typ, ok := v.(string)
			if !ok || strings.TrimSpace(typ) == "" {
				return nil, fmt.Errorf("%w: activity_type must be a non-empty string", common.ErrValidation)
			}
			a.ActivityType = strings.TrimSpace(typ)
		case strings.HasPrefix(k, "activity_type."):
			return nil, fmt.Errorf("%w: activity_type is not an object", common.ErrValidation)
		default:
			rest[k] = v
		}
	}
	if len(rest) > 0 {
		data, err := Kind.Apply(a.Data, rest)
		if err != nil {
			return nil, err
		}
		a.Data = data
	}
	if err := s.repo.Update(ctx, a, a.Version); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, studentID, activityID string) error {
	return wrapNotFound(s.repo.Delete(ctx, tenantID, studentID, activityID))
}

func wrapNotFound(err error) error {
	if err == common.ErrNotFound {
		return fmt.Errorf("activity %w", common.ErrNotFound)
	}
	return err
}
