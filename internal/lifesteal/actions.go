package lifesteal

import (
	"context"
	"fmt"
	"log/slog"
)

// Withdraw converts part of p's resource into an item and starts p's
// withdraw cooldown. It returns the resource removed.
//
// The participant must keep more than one half-unit above the minimum.
func (h *Handler) Withdraw(ctx context.Context, p Participant) (int, error) {
	var (
		removed int
		err     error
	)
	if werr := h.await(ctx, p.Locality, func() { removed, err = h.withdraw(ctx, p) }); werr != nil {
		return 0, fmt.Errorf("withdraw: %w", werr)
	}
	return removed, err
}

func (h *Handler) withdraw(ctx context.Context, p Participant) (int, error) {
	cfg := h.config.Current()
	if !cfg.Withdraw.Enabled {
		return 0, &ActionError{Code: ErrCodeDisabled, Participant: p.ID, Message: "withdrawing is disabled"}
	}
	if err := h.ledger.EnsureLoaded(ctx, p.ID); err != nil {
		return 0, fmt.Errorf("withdraw: %w", err)
	}

	h.actionMu.Lock()
	defer h.actionMu.Unlock()

	window := cfg.CooldownWindow()
	if h.ledger.IsOnCooldown(p.ID, window) {
		left := h.ledger.RemainingCooldown(p.ID, window)
		return 0, &ActionError{
			Code:             ErrCodeOnCooldown,
			Participant:      p.ID,
			Message:          fmt.Sprintf("wait %ds before withdrawing again", left),
			RemainingSeconds: left,
		}
	}

	removed, after, ok := h.ledger.Withdraw(p.ID, cfg.Withdraw.Amount, cfg.Resource.Min+1)
	if !ok {
		return 0, &ActionError{Code: ErrCodeInsufficient, Participant: p.ID, Message: "not enough resource to withdraw"}
	}
	h.ledger.MarkCooldown(p.ID)

	slog.Debug("resource withdrawn", "participant", p.ID, "amount", removed, "resource", after)
	h.host.Notify(p, fmt.Sprintf("You withdrew %d resource.", removed))
	h.syncHealth(p)
	return removed, nil
}

// Consume applies one item to p, raising p's resource by the configured item
// value up to the maximum. It returns the new level.
func (h *Handler) Consume(ctx context.Context, p Participant) (int, error) {
	var (
		after int
		err   error
	)
	if werr := h.await(ctx, p.Locality, func() { after, err = h.consume(ctx, p) }); werr != nil {
		return 0, fmt.Errorf("consume: %w", werr)
	}
	return after, err
}

func (h *Handler) consume(ctx context.Context, p Participant) (int, error) {
	cfg := h.config.Current()
	if !cfg.Items.Enabled {
		return 0, &ActionError{Code: ErrCodeDisabled, Participant: p.ID, Message: "items are disabled"}
	}
	if err := h.ledger.EnsureLoaded(ctx, p.ID); err != nil {
		return 0, fmt.Errorf("consume: %w", err)
	}

	after, ok := h.ledger.Refill(p.ID, cfg.Items.Value, cfg.Resource.Max)
	if !ok {
		return 0, &ActionError{Code: ErrCodeAtCapacity, Participant: p.ID, Message: "already at maximum resource"}
	}

	slog.Debug("item consumed", "participant", p.ID, "resource", after)
	h.host.Notify(p, fmt.Sprintf("Your resource is now %d.", after))
	h.syncHealth(p)
	return after, nil
}

// Stats is a participant's scoreboard line.
type Stats struct {
	ID       string
	Resource int
	Wins     int
	Losses   int
	KDRatio  float64
}

// Stats returns p's current scoreboard line, loading p if needed.
func (h *Handler) Stats(ctx context.Context, p Participant) (Stats, error) {
	var (
		st  Stats
		err error
	)
	if werr := h.await(ctx, p.Locality, func() { st, err = h.stats(ctx, p.ID) }); werr != nil {
		return Stats{}, fmt.Errorf("stats: %w", werr)
	}
	return st, err
}

func (h *Handler) stats(ctx context.Context, id string) (Stats, error) {
	if err := h.ledger.EnsureLoaded(ctx, id); err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	rec, _ := h.ledger.Snapshot(id)
	return Stats{
		ID:       id,
		Resource: rec.Resource,
		Wins:     rec.Wins,
		Losses:   rec.Losses,
		KDRatio:  rec.KDRatio(),
	}, nil
}
