package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/survey-admin/internal/models"
)

func TestMemoryJournalPublications(t *testing.T) {
	ctx := context.Background()
	j := NewMemoryJournal()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, j.BeginPublication(ctx, &models.Publication{
			ID:        id,
			State:     models.PublicationPending,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	assert.Error(t, j.BeginPublication(ctx, &models.Publication{ID: "a"}))

	require.NoError(t, j.FinishPublication(ctx, &models.Publication{ID: "b", State: models.PublicationCommitted, CreatedAt: base.Add(time.Minute)}))
	err := j.FinishPublication(ctx, &models.Publication{ID: "zzz"})
	assert.True(t, errors.Is(err, ErrPublicationNotFound))

	all, err := j.ListPublications(ctx, models.PublicationFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "a", all[2].ID)

	committed, err := j.ListPublications(ctx, models.PublicationFilters{State: models.PublicationCommitted})
	require.NoError(t, err)
	require.Len(t, committed, 1)
	assert.Equal(t, "b", committed[0].ID)

	page, err := j.ListPublications(ctx, models.PublicationFilters{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].ID)

	p, err := j.GetPublication(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestMemoryJournalOrphanLifecycle(t *testing.T) {
	ctx := context.Background()
	j := NewMemoryJournal()

	require.NoError(t, j.BeginPublication(ctx, &models.Publication{ID: "p1", State: models.PublicationPending}))
	require.NoError(t, j.RecordOrphans(ctx, []models.Orphan{
		{PublicationID: "p1", Kind: models.OrphanTemplate, RemoteID: "t1", Attempts: 1},
		{PublicationID: "p1", Kind: models.OrphanQuestion, RemoteID: "q1", Attempts: 1},
	}))
	require.NoError(t, j.FinishPublication(ctx, &models.Publication{ID: "p1", State: models.PublicationCompensationPending}))

	assert.Error(t, j.RecordOrphans(ctx, []models.Orphan{{PublicationID: "nope"}}))

	pending, err := j.ListPendingOrphans(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, int64(1), pending[0].ID)
	assert.Equal(t, "t1", pending[0].RemoteID)

	require.NoError(t, j.MarkOrphanAttempt(ctx, pending[0].ID, "still failing"))
	require.NoError(t, j.ResolveOrphan(ctx, pending[1].ID))

	p, _ := j.GetPublication(ctx, "p1")
	assert.Equal(t, models.PublicationCompensationPending, p.State)

	require.NoError(t, j.ResolveOrphan(ctx, pending[0].ID))
	p, _ = j.GetPublication(ctx, "p1")
	assert.Equal(t, models.PublicationRolledBack, p.State)

	pending, err = j.ListPendingOrphans(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	err = j.ResolveOrphan(ctx, 1)
	assert.True(t, errors.Is(err, ErrOrphanNotFound))
	assert.True(t, errors.Is(j.MarkOrphanAttempt(ctx, 99, "x"), ErrOrphanNotFound))
}
