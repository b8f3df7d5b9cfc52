package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of participant events with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config overrides the default configuration. It uses the same keys as
	// the configuration file and must validate cleanly.
	Config yaml.Node `yaml:"config,omitempty"`

	// Participants declares everyone the flow refers to.
	Participants []ParticipantSpec `yaml:"participants"`

	// Setup seeds the record store before the flow starts.
	Setup []RecordSeed `yaml:"setup,omitempty"`

	// Flow is executed in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final state and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// ParticipantSpec declares a participant.
type ParticipantSpec struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name,omitempty"`
	Zone     string `yaml:"zone,omitempty"`
	Locality string `yaml:"locality,omitempty"`
	Exempt   bool   `yaml:"exempt,omitempty"`
}

// RecordSeed is a stored record present before the flow runs.
type RecordSeed struct {
	ID       string `yaml:"id"`
	Resource int    `yaml:"resource"`
	Wins     int    `yaml:"wins,omitempty"`
	Losses   int    `yaml:"losses,omitempty"`
}

// FlowStep is one event or control action.
type FlowStep struct {
	Action      string        `yaml:"action"`
	Participant string        `yaml:"participant,omitempty"`
	Winner      string        `yaml:"winner,omitempty"`
	Value       int           `yaml:"value,omitempty"`
	Duration    time.Duration `yaml:"duration,omitempty"`

	// Expect validates the step's outcome. Only withdraw and consume
	// produce one.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Error is the expected rejection code, e.g. ON_COOLDOWN. Empty means
	// the step must succeed.
	Error string `yaml:"error,omitempty"`

	// Value is the expected return value on success.
	Value *int `yaml:"value,omitempty"`
}

// Assertion validates final state or the trace.
type Assertion struct {
	Type string `yaml:"type"`

	// Participant is used by resource, win_loss and stored, and optionally
	// narrows trace matches.
	Participant string `yaml:"participant,omitempty"`

	// Value is the expected level (resource).
	Value int `yaml:"value,omitempty"`

	// Wins and Losses are the expected counters (win_loss).
	Wins   int `yaml:"wins,omitempty"`
	Losses int `yaml:"losses,omitempty"`

	// Expect holds expected record fields (stored).
	Expect map[string]int64 `yaml:"expect,omitempty"`

	// Kind and Message select trace events (trace_contains, trace_count).
	Kind    string `yaml:"kind,omitempty"`
	Message string `yaml:"message,omitempty"`

	// Count is the expected number of matches (trace_count).
	Count int `yaml:"count,omitempty"`

	// Kinds is the expected order of event kinds (trace_order).
	Kinds []string `yaml:"kinds,omitempty"`
}

// Flow action names.
const (
	ActionJoin       = "join"
	ActionLeave      = "leave"
	ActionEliminate  = "eliminate"
	ActionWithdraw   = "withdraw"
	ActionConsume    = "consume"
	ActionSet        = "set"
	ActionAdvance    = "advance"
	ActionRunDelayed = "run_delayed"
	ActionFlushAll   = "flush_all"
)

// Assertion type constants.
const (
	AssertResource      = "resource"
	AssertWinLoss       = "win_loss"
	AssertStored        = "stored"
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertTraceOrder    = "trace_order"
)

// Stored record field names accepted by the stored assertion.
var storedFields = map[string]bool{
	"resource":           true,
	"wins":               true,
	"losses":             true,
	"last_eliminated_at": true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Participants) == 0 {
		return fmt.Errorf("participants list is required and must be non-empty")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	known := make(map[string]bool, len(s.Participants))
	for i, p := range s.Participants {
		if p.ID == "" {
			return fmt.Errorf("participants[%d]: id is required", i)
		}
		if known[p.ID] {
			return fmt.Errorf("participants[%d]: duplicate id %q", i, p.ID)
		}
		known[p.ID] = true
	}

	for i, seed := range s.Setup {
		if !known[seed.ID] {
			return fmt.Errorf("setup[%d]: unknown participant %q", i, seed.ID)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(i, step, known); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, assertion, known); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step FlowStep, known map[string]bool) error {
	needsParticipant := true
	switch step.Action {
	case ActionJoin, ActionLeave, ActionWithdraw, ActionConsume, ActionSet:
	case ActionEliminate:
		if !known[step.Winner] {
			return fmt.Errorf("flow[%d]: eliminate needs a declared winner, got %q", index, step.Winner)
		}
	case ActionAdvance:
		needsParticipant = false
		if step.Duration <= 0 {
			return fmt.Errorf("flow[%d]: advance needs a positive duration", index)
		}
	case ActionRunDelayed, ActionFlushAll:
		needsParticipant = false
	case "":
		return fmt.Errorf("flow[%d]: action is required", index)
	default:
		return fmt.Errorf("flow[%d]: unknown action %q", index, step.Action)
	}

	if needsParticipant && !known[step.Participant] {
		return fmt.Errorf("flow[%d]: unknown participant %q", index, step.Participant)
	}
	if step.Expect != nil && step.Action != ActionWithdraw && step.Action != ActionConsume {
		return fmt.Errorf("flow[%d]: expect is only supported for withdraw and consume", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, known map[string]bool) error {
	switch a.Type {
	case AssertResource, AssertWinLoss:
		if !known[a.Participant] {
			return fmt.Errorf("assertions[%d]: unknown participant %q", index, a.Participant)
		}
	case AssertStored:
		if !known[a.Participant] {
			return fmt.Errorf("assertions[%d]: unknown participant %q", index, a.Participant)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for stored", index)
		}
		for field := range a.Expect {
			if !storedFields[field] {
				return fmt.Errorf("assertions[%d]: unknown stored field %q", index, field)
			}
		}
	case AssertTraceContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_contains", index)
		}
	case AssertTraceCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for trace_order", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
