package lifesteal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lifeledger/internal/config"
	"github.com/roach88/lifeledger/internal/ledger"
	"github.com/roach88/lifeledger/internal/schedule"
	"github.com/roach88/lifeledger/internal/testutil"
)

func TestWithdraw(t *testing.T) {
	f := newFixture(t, config.Defaults())
	ctx := context.Background()
	f.handler.Join(ctx, alice)

	removed, err := f.handler.Withdraw(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 18, f.ledger.Get("alice"))
	assert.Equal(t, 18, f.host.Health("alice"))

	_, err = f.handler.Withdraw(ctx, alice)
	require.Error(t, err)
	require.True(t, IsOnCooldown(err))
	var ae *ActionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, int64(300), ae.RemainingSeconds)
	assert.Equal(t, 18, f.ledger.Get("alice"))

	f.clock.Advance(301 * time.Second)
	_, err = f.handler.Withdraw(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 16, f.ledger.Get("alice"))
}

func TestWithdraw_Insufficient(t *testing.T) {
	f := newFixture(t, config.Defaults())
	ctx := context.Background()
	f.handler.Join(ctx, alice)
	f.ledger.Set("alice", 3)

	_, err := f.handler.Withdraw(ctx, alice)
	require.Error(t, err)
	assert.True(t, IsInsufficient(err))
	assert.False(t, f.ledger.IsOnCooldown("alice", time.Hour), "a rejected withdraw starts no cooldown")
}

func TestWithdraw_Disabled(t *testing.T) {
	cfg := config.Defaults()
	cfg.Withdraw.Enabled = false
	f := newFixture(t, cfg)

	_, err := f.handler.Withdraw(context.Background(), alice)
	require.Error(t, err)
	assert.True(t, IsDisabled(err))
	assert.True(t, IsActionError(err))
}

func TestConsume(t *testing.T) {
	f := newFixture(t, config.Defaults())
	ctx := context.Background()
	f.handler.Join(ctx, alice)
	f.ledger.Set("alice", 37)

	after, err := f.handler.Consume(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 39, after)

	after, err = f.handler.Consume(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 40, after, "clamped at the maximum")

	_, err = f.handler.Consume(ctx, alice)
	require.Error(t, err)
	assert.True(t, IsAtCapacity(err))
	assert.Equal(t, 40, f.host.Health("alice"))
}

func TestConsume_Disabled(t *testing.T) {
	cfg := config.Defaults()
	cfg.Items.Enabled = false
	f := newFixture(t, cfg)

	_, err := f.handler.Consume(context.Background(), alice)
	assert.True(t, IsDisabled(err))
}

func TestStats(t *testing.T) {
	f := newFixture(t, config.Defaults())
	ctx := context.Background()
	f.handler.Join(ctx, alice)
	f.handler.Join(ctx, bob)

	f.handler.Elimination(ctx, alice, &bob)
	f.handler.Elimination(ctx, alice, &bob)
	f.handler.Elimination(ctx, bob, &alice)

	s, err := f.handler.Stats(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.InDelta(t, 2.0, s.KDRatio, 1e-9)
	assert.Equal(t, 22, s.Resource)
}

func TestWithdraw_ConcurrentWithTransfers(t *testing.T) {
	cfg := config.Defaults()
	cfg.Resource.Max = 100000
	cfg.Withdraw.CooldownSeconds = 0
	cfg.Elimination.Enabled = false
	f := newFixture(t, cfg)
	ctx := context.Background()
	f.handler.Join(ctx, alice)
	f.handler.Join(ctx, bob)
	f.ledger.Set("alice", 600)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					f.handler.engine.Transfer(alice.transferParty(), bob.transferParty())
				}
			}
		}()
	}

	for i := 0; i < 300; i++ {
		removed, err := f.handler.Withdraw(ctx, alice)
		if err != nil {
			require.True(t, IsInsufficient(err), "unexpected error: %v", err)
			continue
		}
		assert.Positive(t, removed)
		assert.LessOrEqual(t, removed, cfg.Withdraw.Amount)
	}
	close(stop)
	wg.Wait()

	assert.GreaterOrEqual(t, f.ledger.Get("alice"), cfg.Resource.Min)
}

func TestActions_WaitForQueuedEvents(t *testing.T) {
	cfg := config.NewLive(config.Defaults())
	l := ledger.New(testutil.NewMemoryStore(), cfg)
	worker := schedule.NewSerial()
	t.Cleanup(func() { _ = worker.Close(context.Background()) })
	h := NewHandler(l, cfg, worker, newFakeHost())
	ctx := context.Background()

	release := make(chan struct{})
	worker.RunNow(alice.Locality, func() { <-release })

	h.Join(ctx, alice)
	h.Join(ctx, bob)
	h.Elimination(ctx, bob, &alice)

	result := make(chan Stats, 1)
	go func() {
		st, err := h.Stats(ctx, alice)
		assert.NoError(t, err)
		result <- st
	}()

	select {
	case st := <-result:
		t.Fatalf("stats answered before earlier events ran: %+v", st)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case st := <-result:
		assert.Equal(t, 22, st.Resource)
		assert.Equal(t, 1, st.Wins)
	case <-time.After(5 * time.Second):
		t.Fatal("stats never answered")
	}
}

func TestActions_ContextEndsWait(t *testing.T) {
	cfg := config.NewLive(config.Defaults())
	l := ledger.New(testutil.NewMemoryStore(), cfg)
	worker := schedule.NewSerial()
	release := make(chan struct{})
	t.Cleanup(func() {
		close(release)
		_ = worker.Close(context.Background())
	})
	h := NewHandler(l, cfg, worker, newFakeHost())

	worker.RunNow(alice.Locality, func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.Consume(ctx, alice)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, IsActionError(err))
}
