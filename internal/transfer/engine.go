package transfer

import (
	"log/slog"

	"github.com/rs/xid"

	"github.com/roach88/lifeledger/internal/config"
	"github.com/roach88/lifeledger/internal/ledger"
	"github.com/roach88/lifeledger/internal/schedule"
)

// Participant is one side of a transfer.
type Participant struct {
	ID       string
	Name     string
	Locality schedule.Locality
}

// Eliminator performs the side effects of an elimination. It runs on the
// eliminated participant's locality.
type Eliminator interface {
	Eliminate(p Participant)
}

// EliminatorFunc adapts a function to Eliminator.
type EliminatorFunc func(p Participant)

// Eliminate calls f(p).
func (f EliminatorFunc) Eliminate(p Participant) { f(p) }

// Outcome describes one transfer attempt.
type Outcome struct {
	// ID correlates the transfer across log lines.
	ID xid.ID

	Loser  string
	Winner string

	// Amount is the resource moved; 0 when the transfer was a no-op.
	Amount int

	// Before and after levels of each side. After equals Before on a no-op.
	LoserBefore, LoserAfter   int
	WinnerBefore, WinnerAfter int

	// Eliminated is set when the elimination side effect was scheduled.
	Eliminated bool
}

// Applied reports whether any resource moved.
func (o Outcome) Applied() bool {
	return o.Amount > 0
}

// Engine applies transfers through a Ledger.
//
// Thread-safety: Transfer is safe for concurrent use. Both participants are
// locked for the whole read-modify-write, so concurrent transfers sharing a
// participant serialise and never lose updates.
type Engine struct {
	ledger     *ledger.Ledger
	config     config.Provider
	scheduler  schedule.Scheduler
	eliminator Eliminator
}

// NewEngine creates an engine. eliminator may be nil, in which case an
// elimination is only logged.
func NewEngine(l *ledger.Ledger, cfg config.Provider, s schedule.Scheduler, eliminator Eliminator) *Engine {
	return &Engine{
		ledger:     l,
		config:     cfg,
		scheduler:  s,
		eliminator: eliminator,
	}
}

// Transfer moves resource from loser to winner. A loser and winner with the
// same id is a no-op.
func (e *Engine) Transfer(loser, winner Participant) Outcome {
	out := Outcome{ID: xid.New(), Loser: loser.ID, Winner: winner.ID}
	if loser.ID == winner.ID {
		return out
	}

	cfg := e.config.Current()
	e.ledger.WithPair(loser.ID, winner.ID, func(p *ledger.Pair) {
		l, w := p.Get(loser.ID), p.Get(winner.ID)
		out.LoserBefore, out.LoserAfter = l, l
		out.WinnerBefore, out.WinnerAfter = w, w

		actual := Compute(l, w, cfg.Resource)
		if actual <= 0 {
			return
		}

		p.Set(loser.ID, l-actual)
		p.Set(winner.ID, w+actual)

		out.Amount = actual
		out.LoserAfter = l - actual
		out.WinnerAfter = w + actual
		out.Eliminated = cfg.Elimination.Enabled && Eliminates(l, actual)
	})

	if !out.Applied() {
		slog.Debug("transfer skipped",
			"transfer", out.ID, "loser", loser.ID, "winner", winner.ID,
			"loser_resource", out.LoserBefore, "winner_resource", out.WinnerBefore)
		return out
	}

	slog.Debug("transfer applied",
		"transfer", out.ID, "loser", loser.ID, "winner", winner.ID, "amount", out.Amount,
		"loser_resource", out.LoserAfter, "winner_resource", out.WinnerAfter)

	if out.Eliminated {
		e.scheduleElimination(out, loser, cfg)
	}
	return out
}

func (e *Engine) scheduleElimination(out Outcome, loser Participant, cfg config.Config) {
	slog.Info("participant eliminated", "transfer", out.ID, "participant", loser.ID, "delay", cfg.Elimination.Delay)
	if e.eliminator == nil {
		return
	}
	e.scheduler.RunAfter(loser.Locality, func() {
		e.eliminator.Eliminate(loser)
	}, cfg.Elimination.Delay)
}
