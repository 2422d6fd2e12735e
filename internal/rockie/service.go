package rockie

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/resource"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/rockie/entity"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/rockie/repo"
)

// Kind is the patch contract for rockie_data. level and experience are
// columns and are handled before the document patch.
var Kind = resource.Kind{
	Name:      "rockie",
	Root:      "rockie_data",
	Forbidden: []string{"tenant_id", "student_id", "creation_date"},
}

type CreateInput struct {
	RockieName     string   `json:"rockie_name" validate:"required"`
	Evolution      string   `json:"evolution"`
	Level          *int64   `json:"level" validate:"omitempty,min=1"`
	Experience     *int64   `json:"experience" validate:"omitempty,min=0"`
	AccessoriesIDs []string `json:"rockie_all_accessories_ids"`
}

type Service struct {
	repo repo.Repository
	now  func() time.Time
}

func NewService(r repo.Repository) *Service {
	return &Service{repo: r, now: time.Now}
}

// Create gives the student a rockie. A student owns at most one.
func (s *Service) Create(ctx context.Context, tenantID, studentID string, in CreateInput) (*entity.Rockie, error) {
	in.RockieName = strings.TrimSpace(in.RockieName)
	if err := common.ValidateStruct(in); err != nil {
		return nil, err
	}
	evolution := in.Evolution
	if evolution == "" {
		evolution = entity.DefaultEvolution
	}
	accessories := make([]any, 0, len(in.AccessoriesIDs))
	for _, id := range in.AccessoriesIDs {
		accessories = append(accessories, id)
	}

	now := s.now().UTC()
	rk := &entity.Rockie{
		TenantID:   tenantID,
		StudentID:  studentID,
		Level:      1,
		Experience: 0,
		Data: resource.Document{
			"rockie_name":                in.RockieName,
			"evolution":                  evolution,
			"rockie_adorned":             map[string]any(resource.Document(entity.DefaultAdorned).Clone()),
			"rockie_all_accessories_ids": accessories,
		},
		Version:      1,
		CreationDate: now,
		UpdatedAt:    now,
	}
	if in.Level != nil {
		rk.Level = *in.Level
	}
	if in.Experience != nil {
		rk.Experience = *in.Experience
	}
	if err := s.repo.Create(ctx, rk); err != nil {
		return nil, err
	}
	return rk, nil
}

func (s *Service) Get(ctx context.Context, tenantID, studentID string) (*entity.Rockie, error) {
	rk, err := s.repo.Get(ctx, tenantID, studentID)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return rk, nil
}

// Update applies patch. "level" and "experience" set the counters, every
// other key is a path into rockie_data. Nothing is written if any key is
// rejected.
func (s *Service) Update(ctx context.Context, tenantID, studentID string, patch map[string]any) (*entity.Rockie, error) {
	if len(patch) == 0 {
		return nil, fmt.Errorf("%w: no values to update", common.ErrValidation)
	}
	rk, err := s.repo.Get(ctx, tenantID, studentID)
	if err != nil {
		return nil, wrapNotFound(err)
	}

	rest := make(map[string]any, len(patch))
	for k, v := range patch {
		switch {
		case k == "level":
			n, ok := wholeNumber(v)
			if !ok || n < 1 {
				return nil, fmt.Errorf("%w: level must be an integer >= 1", common.ErrValidation)
			}
			rk.Level = n
		case k == "experience":
			n, ok := wholeNumber(v)
			if !ok || n < 0 {
				return nil, fmt.Errorf("%w: experience must be an integer >= 0", common.ErrValidation)
			}
			rk.Experience = n
		case strings.HasPrefix(k, "level.") || strings.HasPrefix(k, "experience."):
			return nil, fmt.Errorf("%w: %s is not an object", common.ErrValidation, strings.SplitN(k, ".", 2)[0])
		default:
			rest[k] = v
		}
	}
	if len(rest) > 0 {
		data, err := Kind.Apply(rk.Data, rest)
		if err != nil {
			return nil, err
		}
		rk.Data = data
	}
	if err := s.repo.Update(ctx, rk, rk.Version); err != nil {
		return nil, err
	}
	return rk, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, studentID string) error {
	return wrapNotFound(s.repo.Delete(ctx, tenantID, studentID))
}

func wholeNumber(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func wrapNotFound(err error) error {
	if err == common.ErrNotFound {
		return fmt.Errorf("rockie %w", common.ErrNotFound)
	}
	return err
}
