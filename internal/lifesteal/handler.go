package lifesteal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/lifeledger/internal/config"
	"github.com/roach88/lifeledger/internal/ledger"
	"github.com/roach88/lifeledger/internal/schedule"
	"github.com/roach88/lifeledger/internal/transfer"
)

// Handler reacts to participant events.
//
// Every event runs on the context owning the participant's locality, so
// events for one participant apply in the order they were issued. Join,
// Leave and Elimination return immediately. Withdraw, Consume and Stats wait
// for their result and must not be called from a scheduled task.
type Handler struct {
	ledger    *ledger.Ledger
	config    config.Provider
	scheduler schedule.Scheduler
	engine    *transfer.Engine
	host      Host
	clock     ledger.Clock

	// actionMu serialises the cooldown check and mark of Withdraw across
	// localities.
	actionMu sync.Mutex
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithClock sets the clock used to stamp eliminations.
func WithClock(c ledger.Clock) HandlerOption {
	return func(h *Handler) {
		h.clock = c
	}
}

// NewHandler wires a handler over the ledger. The transfer engine is built
// here so eliminations reach host.
func NewHandler(l *ledger.Ledger, cfg config.Provider, s schedule.Scheduler, host Host, opts ...HandlerOption) *Handler {
	h := &Handler{
		ledger:    l,
		config:    cfg,
		scheduler: s,
		host:      host,
		clock:     ledger.SystemClock{},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.engine = transfer.NewEngine(l, cfg, s, transfer.EliminatorFunc(h.eliminate))
	return h
}

// Join loads p's record and applies it as p's health.
func (h *Handler) Join(ctx context.Context, p Participant) {
	h.scheduler.RunNow(p.Locality, func() {
		if err := h.ledger.EnsureLoaded(ctx, p.ID); err != nil {
			slog.Error("join: participant data unavailable, using defaults", "participant", p.ID, "error", err)
		}
		h.syncHealth(p)
	})
}

// Leave flushes p's record and evicts it from the cache.
func (h *Handler) Leave(ctx context.Context, p Participant) {
	h.scheduler.RunNow(p.Locality, func() {
		if err := h.ledger.Unload(ctx, p.ID); err != nil {
			slog.Error("leave: participant data not saved", "participant", p.ID, "error", err)
		}
	})
}

// Elimination handles loser being eliminated by winner. A nil winner or a
// self-elimination is ignored, as is an exempt loser or a loser in a zone
// where lifesteal is disabled.
func (h *Handler) Elimination(ctx context.Context, loser Participant, winner *Participant) {
	if winner == nil || winner.ID == loser.ID {
		slog.Debug("elimination without a rival, ignoring", "participant", loser.ID)
		return
	}
	if loser.Exempt {
		slog.Debug("exempt participant eliminated, ignoring", "participant", loser.ID)
		return
	}
	if !h.config.Current().LifestealEnabledIn(loser.Zone) {
		slog.Debug("lifesteal disabled in zone, ignoring", "participant", loser.ID, "zone", loser.Zone)
		return
	}

	w := *winner
	h.scheduler.RunNow(loser.Locality, func() {
		h.handleElimination(ctx, loser, w)
	})
}

func (h *Handler) handleElimination(ctx context.Context, loser, winner Participant) {
	for _, p := range []Participant{loser, winner} {
		if err := h.ledger.EnsureLoaded(ctx, p.ID); err != nil {
			slog.Error("elimination: participant data unavailable", "participant", p.ID, "error", err)
		}
	}

	out := h.engine.Transfer(loser.transferParty(), winner.transferParty())

	h.ledger.RecordWin(winner.ID)
	if transfer.Eliminates(out.LoserBefore, out.Amount) {
		h.ledger.RecordLoss(loser.ID, h.clock.Now())
	} else {
		h.ledger.CountLoss(loser.ID)
	}

	if !out.Applied() {
		return
	}

	h.host.Notify(loser, fmt.Sprintf("You lost %d resource to %s.", out.Amount, winner.DisplayName()))
	h.host.Notify(winner, fmt.Sprintf("You took %d resource from %s.", out.Amount, loser.DisplayName()))
	h.syncHealth(loser)
	h.syncHealth(winner)
}

// eliminate runs the configured elimination side effects for p.
func (h *Handler) eliminate(p transfer.Participant) {
	cfg := h.config.Current()
	h.host.Broadcast(cfg.EliminationMessage(p.Name))
	for _, cmd := range cfg.EliminationCommands(p.Name) {
		h.host.Dispatch(cmd)
	}
}

// await runs fn on the context owning loc and waits for it to finish, so it
// observes every event queued earlier for the same locality. If ctx ends
// first the wait is abandoned; fn may still run later.
func (h *Handler) await(ctx context.Context, loc schedule.Locality, fn func()) error {
	done := make(chan struct{})
	h.scheduler.RunNow(loc, func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// syncHealth pushes p's resource level to the host as maximum health.
func (h *Handler) syncHealth(p Participant) {
	h.host.SetMaxHealth(p, max(1, h.ledger.Get(p.ID)))
}
