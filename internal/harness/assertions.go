package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/lifeledger/internal/ledger"
	"github.com/roach88/lifeledger/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", ev.Seq, ev.String())
		}
	}

	return buf.String()
}

// AssertionContext gives assertions access to final state.
type AssertionContext struct {
	Ledger *ledger.Ledger
	Store  RecordReader
}

// RecordReader reads a stored record without side effects.
type RecordReader interface {
	Get(id string) (store.Record, bool)
}

// EvaluateAssertions runs every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result.Trace, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertResource:
		return assertResource(a, actx)
	case AssertWinLoss:
		return assertWinLoss(a, actx)
	case AssertStored:
		return assertStored(a, actx)
	case AssertTraceContains:
		return assertTraceContains(trace, a)
	case AssertTraceCount:
		return assertTraceCount(trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(trace, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertResource(a Assertion, actx *AssertionContext) error {
	got := actx.Ledger.Get(a.Participant)
	if got != a.Value {
		return &AssertionError{
			Type:     AssertResource,
			Expected: fmt.Sprintf("%s at %d", a.Participant, a.Value),
			Actual:   fmt.Sprintf("%s at %d", a.Participant, got),
		}
	}
	return nil
}

func assertWinLoss(a Assertion, actx *AssertionContext) error {
	wins, losses := actx.Ledger.GetWinLoss(a.Participant)
	if wins != a.Wins || losses != a.Losses {
		return &AssertionError{
			Type:     AssertWinLoss,
			Expected: fmt.Sprintf("%s %d/%d", a.Participant, a.Wins, a.Losses),
			Actual:   fmt.Sprintf("%s %d/%d", a.Participant, wins, losses),
		}
	}
	return nil
}

func assertStored(a Assertion, actx *AssertionContext) error {
	rec, ok := actx.Store.Get(a.Participant)
	if !ok {
		return &AssertionError{
			Type:     AssertStored,
			Expected: fmt.Sprintf("stored record for %s", a.Participant),
			Actual:   "no record",
		}
	}

	actual := map[string]int64{
		"resource":           int64(rec.Resource),
		"wins":               int64(rec.Wins),
		"losses":             int64(rec.Losses),
		"last_eliminated_at": rec.LastEliminatedAt,
	}

	fields := make([]string, 0, len(a.Expect))
	for field := range a.Expect {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var mismatches []string
	for _, field := range fields {
		if actual[field] != a.Expect[field] {
			mismatches = append(mismatches, fmt.Sprintf("%s=%d (want %d)", field, actual[field], a.Expect[field]))
		}
	}
	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertStored,
			Expected: fmt.Sprintf("%s matches %v", a.Participant, a.Expect),
			Actual:   strings.Join(mismatches, ", "),
		}
	}
	return nil
}

// matches reports whether ev satisfies the kind, participant and message
// filters of a. Empty filters match anything.
func matches(ev TraceEvent, a Assertion) bool {
	if ev.Kind != a.Kind {
		return false
	}
	if a.Participant != "" && ev.Participant != a.Participant {
		return false
	}
	if a.Message != "" && ev.Message != a.Message {
		return false
	}
	return true
}

// assertTraceContains checks if the trace contains a matching event.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if matches(ev, a) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s event %s", a.Kind, filterString(a)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceCount checks if matching events appear exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if matches(ev, a) {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s events %s", a.Count, a.Kind, filterString(a)),
			Actual:   fmt.Sprintf("%d", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks that the kinds appear in order. Other events may
// sit in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Kinds) && ev.Kind == a.Kinds[next] {
			next++
		}
	}

	if next < len(a.Kinds) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("kinds in order: %v", a.Kinds),
			Actual:   fmt.Sprintf("missing %s after position %d", a.Kinds[next], next),
			Trace:    trace,
		}
	}
	return nil
}

func filterString(a Assertion) string {
	var parts []string
	if a.Participant != "" {
		parts = append(parts, "participant="+a.Participant)
	}
	if a.Message != "" {
		parts = append(parts, fmt.Sprintf("message=%q", a.Message))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
