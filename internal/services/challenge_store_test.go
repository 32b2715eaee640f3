package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryChallengeStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallengeStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	require.NoError(t, store.Put(ctx, ChallengeRegistration, "s1", &Challenge{Code: "123456", IssuedAt: now}, 10*time.Minute))

	ch, err := store.Get(ctx, ChallengeRegistration, "s1")
	require.NoError(t, err)
	assert.Equal(t, "123456", ch.Code)

	// Namespaces do not collide.
	_, err = store.Get(ctx, ChallengeReset, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	ch.Attempts = 2
	require.NoError(t, store.Update(ctx, ChallengeRegistration, "s1", ch))
	ch, err = store.Get(ctx, ChallengeRegistration, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, ch.Attempts)

	now = now.Add(10 * time.Minute)
	_, err = store.Get(ctx, ChallengeRegistration, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Update(ctx, ChallengeRegistration, "s1", ch), ErrNotFound)
}

func TestMemoryChallengeStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallengeStore()

	assert.ErrorIs(t, store.Update(ctx, ChallengeReset, "missing", &Challenge{}), ErrNotFound)

	require.NoError(t, store.Put(ctx, ChallengeReset, "s2", &Challenge{Code: "000111"}, time.Minute))
	require.NoError(t, store.Delete(ctx, ChallengeReset, "s2"))
	_, err := store.Get(ctx, ChallengeReset, "s2")
	assert.ErrorIs(t, err, ErrNotFound)
}
