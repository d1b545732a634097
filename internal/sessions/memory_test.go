package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/survey-admin/internal/authoring"
)

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	b, err := GenerateToken()
	require.NoError(t, err)

	assert.Len(t, a, 48)
	assert.NotEqual(t, a, b)
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(16, time.Hour)

	s, err := store.Create(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, s.ID, 48)
	assert.Equal(t, authoring.StepNaming, s.Wizard.Step())

	updated, err := store.Update(ctx, s.ID, func(s *Session) error {
		s.Wizard.SetName("Exit interview")
		return s.Wizard.Next()
	})
	require.NoError(t, err)
	assert.Equal(t, authoring.StepEditing, updated.Wizard.Step())

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, authoring.StepEditing, got.Wizard.Step())
	assert.Equal(t, "Exit interview", got.Wizard.Draft().Name())

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Get(ctx, s.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.True(t, errors.Is(store.Delete(ctx, s.ID), ErrSessionNotFound))
}

func TestMemoryStoreFailedUpdateLeavesSessionUntouched(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(16, time.Hour)

	s, err := store.Create(ctx, nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = store.Update(ctx, s.ID, func(s *Session) error {
		s.Wizard.SetName("changed")
		return boom
	})
	assert.True(t, errors.Is(err, boom))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "", got.Wizard.Draft().Name())
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(16, time.Hour)
	s, _ := store.Create(ctx, nil)

	got, _ := store.Get(ctx, s.ID)
	got.Wizard.SetName("local only")

	again, _ := store.Get(ctx, s.ID)
	assert.Equal(t, "", again.Wizard.Draft().Name())
}

func TestMemoryStoreExpires(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(16, 50*time.Millisecond)

	s, err := store.Create(ctx, nil)
	require.NoError(t, err)

	time.Sleep(150 * time.Millisecond)

	_, err = store.Get(ctx, s.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	_, err = store.Update(ctx, s.ID, func(*Session) error { return nil })
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestMemoryStoreEvictsOldest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2, time.Hour)

	first, _ := store.Create(ctx, nil)
	_, _ = store.Create(ctx, nil)
	_, _ = store.Create(ctx, nil)

	assert.Equal(t, 2, store.Len())
	_, err := store.Get(ctx, first.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestMemoryStorePersistClaim(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(16, time.Hour)

	s, err := store.Create(ctx, nil)
	require.NoError(t, err)

	claim := func(s *Session) error {
		if s.Persisting {
			return ErrPersisting
		}
		s.Persisting = true
		return nil
	}

	_, err = store.Update(ctx, s.ID, claim)
	require.NoError(t, err)
	_, err = store.Update(ctx, s.ID, claim)
	assert.ErrorIs(t, err, ErrPersisting)
	assert.ErrorIs(t, err, ErrConflict)

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.Persisting)
}
