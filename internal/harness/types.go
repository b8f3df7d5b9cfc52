package harness

import "fmt"

// Trace event kinds produced by the host and by flow steps.
const (
	KindBroadcast = "broadcast"
	KindDispatch  = "dispatch"
	KindNotify    = "notify"
	KindHealth    = "health"
	KindResult    = "result"
	KindRejected  = "rejected"
)

// TraceEvent is one observable effect of a scenario run.
// Flow steps appear with their action name as Kind.
type TraceEvent struct {
	Seq         int    `json:"seq"`
	Kind        string `json:"kind"`
	Participant string `json:"participant,omitempty"`
	Message     string `json:"message,omitempty"`
	Value       int    `json:"value,omitempty"`
}

// String renders the event on one line, e.g. `notify alice "You lost 2 resource to Bob."`.
func (ev TraceEvent) String() string {
	s := ev.Kind
	if ev.Participant != "" {
		s += " " + ev.Participant
	}
	if ev.Message != "" {
		s += fmt.Sprintf(" %q", ev.Message)
	}
	if ev.Value != 0 {
		s += fmt.Sprintf(" %d", ev.Value)
	}
	return s
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds every step and host side effect in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed expectation.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// record appends an event with the next sequence number.
func (r *Result) record(ev TraceEvent) {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
}
