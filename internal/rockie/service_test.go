package rockie

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/rockie/repo"
	sessionentity "github.com/ovaphlow/pitchfork/service-rockie-go/internal/session/entity"
)

func TestCreateDefaults(t *testing.T) {
	svc := NewService(repo.NewMemoryRepo())
	rk, err := svc.Create(context.Background(), "t1", "s1", CreateInput{RockieName: " Rocky "})
	require.NoError(t, err)

	assert.EqualValues(t, 1, rk.Level)
	assert.EqualValues(t, 0, rk.Experience)
	assert.Equal(t, "Rocky", rk.Data["rockie_name"])
	assert.Equal(t, "Stage 1", rk.Data["evolution"])
	assert.Equal(t, "head_acc001", rk.Data["rockie_adorned"].(map[string]any)["head_accessory"])
	assert.Equal(t, "bg_acc005", rk.Data["rockie_adorned"].(map[string]any)["background_accessory"])
	assert.Equal(t, []any{}, rk.Data["rockie_all_accessories_ids"])
}

func TestCreateValidationAndConflict(t *testing.T) {
	svc := NewService(repo.NewMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, "t1", "s1", CreateInput{})
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "rockie_name")

	zero := int64(0)
	_, err = svc.Create(ctx, "t1", "s1", CreateInput{RockieName: "x", Level: &zero})
	assert.ErrorIs(t, err, common.ErrValidation)

	five := int64(5)
	rk, err := svc.Create(ctx, "t1", "s1", CreateInput{RockieName: "x", Level: &five, AccessoriesIDs: []string{"hat"}})
	require.NoError(t, err)
	assert.EqualValues(t, 5, rk.Level)
	assert.Equal(t, []any{"hat"}, rk.Data["rockie_all_accessories_ids"])

	_, err = svc.Create(ctx, "t1", "s1", CreateInput{RockieName: "y"})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestCreateConcurrentOneWinner(t *testing.T) {
	svc := NewService(repo.NewMemoryRepo())
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Create(context.Background(), "t1", "s1", CreateInput{RockieName: "r"}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestUpdate(t *testing.T) {
	svc := NewService(repo.NewMemoryRepo())
	ctx := context.Background()
	_, err := svc.Create(ctx, "t1", "s1", CreateInput{RockieName: "Rocky"})
	require.NoError(t, err)

	rk, err := svc.Update(ctx, "t1", "s1", map[string]any{
		"level":                         float64(3),
		"experience":                    float64(120),
		"rockie_adorned.head_accessory": "crown",
		"rockie_data.evolution":         "Stage 2",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, rk.Level)
	assert.EqualValues(t, 120, rk.Experience)
	assert.Equal(t, "crown", rk.Data["rockie_adorned"].(map[string]any)["head_accessory"])
	assert.Equal(t, "arms_acc002", rk.Data["rockie_adorned"].(map[string]any)["arms_accessory"])
	assert.Equal(t, "Stage 2", rk.Data["evolution"])
	assert.EqualValues(t, 2, rk.Version)
}

func TestUpdateRejects(t *testing.T) {
	svc := NewService(repo.NewMemoryRepo())
	ctx := context.Background()
	_, err := svc.Create(ctx, "t1", "s1", CreateInput{RockieName: "Rocky"})
	require.NoError(t, err)

	for _, patch := range []map[string]any{
		{},
		{"student_id": "s2"},
		{"level": float64(2), "tenant_id": "t2"},
		{"level": 1.5},
		{"experience": float64(-1)},
		{"level.x": float64(1)},
		{"rockie_data.creation_date": "x"},
	} {
		_, err := svc.Update(ctx, "t1", "s1", patch)
		assert.ErrorIs(t, err, common.ErrValidation, "%v", patch)
	}

	rk, err := svc.Get(ctx, "t1", "s1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, rk.Level)
	assert.EqualValues(t, 1, rk.Version)
	assert.Equal(t, "t1", rk.TenantID)

	_, err = svc.Update(ctx, "t1", "nobody", map[string]any{"level": float64(2)})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc := NewService(repo.NewMemoryRepo())
	ctx := context.Background()
	_, err := svc.Create(ctx, "t1", "s1", CreateInput{RockieName: "Rocky"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "t1", "s1"))
	assert.ErrorIs(t, svc.Delete(ctx, "t1", "s1"), common.ErrNotFound)
	_, err = svc.Get(ctx, "t1", "s1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestHandler(t *testing.T) {
	h := NewHandler(NewService(repo.NewMemoryRepo()), zap.NewNop().Sugar())
	ac := sessionentity.AuthContext{TenantID: "t1", StudentID: "s1"}

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/", nil), ac)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// identity in the body is ignored
	rec = httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rockie_name":"Rocky","tenant_id":"t9","student_id":"s9"}`)), ac)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tenant_id":"t1"`)
	assert.Contains(t, rec.Body.String(), `"student_id":"s1"`)

	rec = httptest.NewRecorder()
	h.Update(rec, httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"experience":40}`)), ac)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"experience":40`)

	rec = httptest.NewRecorder()
	h.Update(rec, httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"tenant_id":"t9"}`)), ac)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Delete(rec, httptest.NewRequest(http.MethodDelete, "/", nil), ac)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
