package harness

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/roach88/lifeledger/internal/config"
	"github.com/roach88/lifeledger/internal/ledger"
	"github.com/roach88/lifeledger/internal/lifesteal"
	"github.com/roach88/lifeledger/internal/schedule"
	"github.com/roach88/lifeledger/internal/store"
	"github.com/roach88/lifeledger/internal/testutil"
)

// Harness is the scenario execution environment.
type Harness struct {
	store     *testutil.MemoryStore
	clock     *testutil.ManualClock
	scheduler *testutil.RecordingScheduler
	ledger    *ledger.Ledger
	handler   *lifesteal.Handler

	participants map[string]lifesteal.Participant
	result       *Result
}

// Run executes a scenario and returns the result.
//
// Each scenario runs over a fresh in-memory store with a manual clock, so
// repeated runs produce identical traces.
//
// Execution flow:
// 1. Build the configuration from defaults plus the scenario's overrides
// 2. Seed the record store
// 3. Execute flow steps, checking expect clauses
// 4. Evaluate assertions against the final state and trace
func Run(scenario *Scenario) (*Result, error) {
	cfg, err := scenarioConfig(scenario)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:        testutil.NewMemoryStore(),
		clock:        testutil.NewManualClock(testutil.Epoch),
		scheduler:    testutil.NewRecordingScheduler(),
		participants: make(map[string]lifesteal.Participant, len(scenario.Participants)),
		result:       NewResult(),
	}
	provider := config.NewLive(cfg)
	h.ledger = ledger.New(h.store, provider, ledger.WithClock(h.clock))
	h.handler = lifesteal.NewHandler(h.ledger, provider, h.scheduler, &traceHost{result: h.result},
		lifesteal.WithClock(h.clock))

	for _, p := range scenario.Participants {
		h.participants[p.ID] = lifesteal.Participant{
			ID:       p.ID,
			Name:     p.Name,
			Zone:     p.Zone,
			Locality: schedule.Locality(p.Locality),
			Exempt:   p.Exempt,
		}
	}

	for _, seed := range scenario.Setup {
		h.store.Put(store.Record{ID: seed.ID, Resource: seed.Resource, Wins: seed.Wins, Losses: seed.Losses})
	}

	ctx := context.Background()
	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step); err != nil {
			return nil, fmt.Errorf("flow step %d: %w", i, err)
		}
	}

	actx := &AssertionContext{Ledger: h.ledger, Store: h.store}
	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions, actx) {
		h.result.AddError(msg)
	}

	return h.result, nil
}

// scenarioConfig applies the scenario's config block over the defaults.
// Any validation problem is an error: a scenario must say what it means.
func scenarioConfig(s *Scenario) (config.Config, error) {
	if s.Config.Kind == 0 {
		return config.Defaults(), nil
	}

	data, err := yaml.Marshal(&s.Config)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to encode scenario config: %w", err)
	}
	cfg, problems := config.Parse(data)
	if len(problems) > 0 {
		return config.Config{}, fmt.Errorf("invalid scenario config: %w", errors.Join(problems...))
	}
	return cfg, nil
}

func (h *Harness) executeStep(ctx context.Context, index int, step FlowStep) error {
	p := h.participants[step.Participant]

	switch step.Action {
	case ActionJoin:
		h.result.record(TraceEvent{Kind: ActionJoin, Participant: p.ID})
		h.handler.Join(ctx, p)

	case ActionLeave:
		h.result.record(TraceEvent{Kind: ActionLeave, Participant: p.ID})
		h.handler.Leave(ctx, p)

	case ActionEliminate:
		winner := h.participants[step.Winner]
		h.result.record(TraceEvent{Kind: ActionEliminate, Participant: p.ID, Message: "by " + winner.ID})
		h.handler.Elimination(ctx, p, &winner)

	case ActionWithdraw:
		h.result.record(TraceEvent{Kind: ActionWithdraw, Participant: p.ID})
		v, err := h.handler.Withdraw(ctx, p)
		return h.checkOutcome(index, step, p.ID, v, err)

	case ActionConsume:
		h.result.record(TraceEvent{Kind: ActionConsume, Participant: p.ID})
		v, err := h.handler.Consume(ctx, p)
		return h.checkOutcome(index, step, p.ID, v, err)

	case ActionSet:
		h.result.record(TraceEvent{Kind: ActionSet, Participant: p.ID, Value: step.Value})
		h.ledger.Set(p.ID, step.Value)

	case ActionAdvance:
		h.result.record(TraceEvent{Kind: ActionAdvance, Message: step.Duration.String()})
		h.clock.Advance(step.Duration)

	case ActionRunDelayed:
		h.result.record(TraceEvent{Kind: ActionRunDelayed})
		h.scheduler.RunDelayed()

	case ActionFlushAll:
		h.result.record(TraceEvent{Kind: ActionFlushAll})
		if err := h.ledger.FlushAll(ctx); err != nil {
			h.result.AddError(fmt.Sprintf("flow[%d]: flush_all failed: %v", index, err))
		}

	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
	return nil
}

// checkOutcome records a withdraw or consume outcome and checks it against
// the step's expect clause. Rejections are part of the trace; only
// unexpected infrastructure errors abort the run.
func (h *Harness) checkOutcome(index int, step FlowStep, id string, v int, err error) error {
	var ae *lifesteal.ActionError
	switch {
	case err == nil:
		h.result.record(TraceEvent{Kind: KindResult, Participant: id, Value: v})
	case errors.As(err, &ae):
		h.result.record(TraceEvent{Kind: KindRejected, Participant: id, Message: string(ae.Code)})
	default:
		return err
	}

	if step.Expect == nil {
		return nil
	}

	if step.Expect.Error != "" {
		if ae == nil || string(ae.Code) != step.Expect.Error {
			h.result.AddError(fmt.Sprintf("flow[%d]: expected %s to be rejected with %s, got %v",
				index, step.Action, step.Expect.Error, err))
		}
		return nil
	}

	if err != nil {
		h.result.AddError(fmt.Sprintf("flow[%d]: expected %s to succeed, got %v", index, step.Action, err))
		return nil
	}
	if step.Expect.Value != nil && *step.Expect.Value != v {
		h.result.AddError(fmt.Sprintf("flow[%d]: expected %s to return %d, got %d",
			index, step.Action, *step.Expect.Value, v))
	}
	return nil
}

// traceHost records host side effects into the result trace.
type traceHost struct {
	mu     sync.Mutex
	result *Result
}

func (t *traceHost) Broadcast(message string) {
	t.add(TraceEvent{Kind: KindBroadcast, Message: message})
}

func (t *traceHost) Dispatch(command string) {
	t.add(TraceEvent{Kind: KindDispatch, Message: command})
}

func (t *traceHost) Notify(p lifesteal.Participant, message string) {
	t.add(TraceEvent{Kind: KindNotify, Participant: p.ID, Message: message})
}

func (t *traceHost) SetMaxHealth(p lifesteal.Participant, halfUnits int) {
	t.add(TraceEvent{Kind: KindHealth, Participant: p.ID, Value: halfUnits})
}

func (t *traceHost) add(ev TraceEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.result.record(ev)
}
