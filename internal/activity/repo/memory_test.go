package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/activity/entity"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/resource"
)

func TestMemoryListIsScopedAndPaged(t *testing.T) {
	m := NewMemoryRepo()
	ctx := context.Background()
	add := func(tenant, student, id, typ string) {
		require.NoError(t, m.Create(ctx, &entity.Activity{
			TenantID: tenant, StudentID: student, ActivityID: id, ActivityType: typ,
			Data: resource.Document{"time": 0}, Version: 1,
		}))
	}
	add("t1", "s1", "a3", "quiz")
	add("t1", "s1", "a1", "quiz")
	add("t1", "s1", "a2", "reading")
	add("t1", "s2", "a4", "quiz")
	add("t2", "s1", "a5", "quiz")

	err := m.Create(ctx, &entity.Activity{TenantID: "t1", StudentID: "s1", ActivityID: "a1"})
	assert.ErrorIs(t, err, common.ErrConflict)

	page, err := m.List(ctx, entity.ListQuery{TenantID: "t1", StudentID: "s1", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a1", page[0].ActivityID)
	assert.Equal(t, "a2", page[1].ActivityID)

	page, err = m.List(ctx, entity.ListQuery{TenantID: "t1", StudentID: "s1", After: "a2", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a3", page[0].ActivityID)

	page, err = m.List(ctx, entity.ListQuery{TenantID: "t1", StudentID: "s1", ActivityType: "quiz"})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	// returned records are copies
	page[0].Data["time"] = 99
	got, err := m.Get(ctx, "t1", "s1", "a1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.Data["time"])
}

func TestMemoryUpdateVersion(t *testing.T) {
	m := NewMemoryRepo()
	ctx := context.Background()
	a := &entity.Activity{TenantID: "t1", StudentID: "s1", ActivityID: "a1", ActivityType: "quiz", Data: resource.Document{}, Version: 1}
	require.NoError(t, m.Create(ctx, a))

	a.ActivityType = "reading"
	require.NoError(t, m.Update(ctx, a, 1))
	assert.EqualValues(t, 2, a.Version)
	assert.ErrorIs(t, m.Update(ctx, a, 1), common.ErrVersionConflict)

	require.NoError(t, m.Delete(ctx, "t1", "s1", "a1"))
	assert.ErrorIs(t, m.Delete(ctx, "t1", "s1", "a1"), common.ErrNotFound)
}
