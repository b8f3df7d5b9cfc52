package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lifeledger/internal/schedule"
	"github.com/roach88/lifeledger/internal/store"
)

func TestMemoryStore_LoadMissing(t *testing.T) {
	m := NewMemoryStore()

	_, err := m.Load(context.Background(), "alice")
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))
	assert.Equal(t, 1, m.Loads("alice"))
}

func TestMemoryStore_SaveLoadList(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.Save(ctx, store.NewRecord("bob", 12)))
	require.NoError(t, m.Save(ctx, store.NewRecord("alice", 30)))

	got, err := m.Load(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 12, got.Resource)

	all, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, all)
	assert.Equal(t, 1, m.Saves("bob"))
}

func TestMemoryStore_FailSave(t *testing.T) {
	m := NewMemoryStore()
	m.SetFailSave(errors.New("disk full"))

	err := m.Save(context.Background(), store.NewRecord("bob", 12))
	require.Error(t, err)
	assert.True(t, store.IsPersistenceError(err))

	_, ok := m.Get("bob")
	assert.False(t, ok)
}

func TestRecordingScheduler(t *testing.T) {
	s := NewRecordingScheduler()

	var order []string
	s.RunAfter("arena", func() { order = append(order, "later") }, time.Second)
	s.RunNow("arena", func() { order = append(order, "now") })

	assert.Equal(t, []string{"now"}, order)
	require.Len(t, s.Delayed(), 1)
	assert.Equal(t, schedule.Locality("arena"), s.Delayed()[0].Locality)
	assert.Equal(t, time.Second, s.Delayed()[0].Delay)

	assert.Equal(t, 1, s.RunDelayed())
	assert.Equal(t, []string{"now", "later"}, order)
	assert.Empty(t, s.Delayed())
	assert.Len(t, s.Immediate(), 1)
}
