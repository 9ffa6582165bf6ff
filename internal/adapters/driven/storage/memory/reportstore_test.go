package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
)

func TestReportStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewReportStore()

	report := &domain.Report{ID: "r1", Title: "Overview", Status: domain.ReportPending}
	require.NoError(t, store.Save(ctx, report))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Overview", got.Title)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReportStore_SaveUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	store := NewReportStore()

	require.NoError(t, store.Save(ctx, &domain.Report{ID: "r1", Status: domain.ReportPending}))
	require.NoError(t, store.Save(ctx, &domain.Report{ID: "r1", Status: domain.ReportCompleted}))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportCompleted, got.Status)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestReportStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewReportStore()
	now := time.Now()

	require.NoError(t, store.Save(ctx, &domain.Report{ID: "old", CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, store.Save(ctx, &domain.Report{ID: "new", CreatedAt: now}))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
}
