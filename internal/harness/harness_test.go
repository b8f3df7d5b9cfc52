package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yml")
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "elimination.yml"))
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
}

func TestRun_FailedExpectations(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong_expectations
description: every expectation here is wrong
participants:
  - { id: alice }
flow:
  - { action: join, participant: alice }
  - { action: withdraw, participant: alice, expect: { value: 5 } }
  - { action: withdraw, participant: alice }
  - { action: consume, participant: alice, expect: { error: AT_CAPACITY } }
assertions:
  - { type: resource, participant: alice, value: 40 }
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "expected withdraw to return 5, got 2")
	assert.Contains(t, result.Errors[1], "expected consume to be rejected with AT_CAPACITY")
	assert.Contains(t, result.Errors[2], "Assertion failed: resource")
}

func TestRun_InvalidConfig(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: bad_config
description: config that fails validation
config:
  resource: { min: 50, max: 40 }
participants:
  - { id: alice }
flow:
  - { action: join, participant: alice }
assertions:
  - { type: resource, participant: alice, value: 20 }
`))
	require.NoError(t, err)

	_, err = Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scenario config")
}

func TestMarshalSnapshot(t *testing.T) {
	result := NewResult()
	result.record(TraceEvent{Kind: KindHealth, Participant: "alice", Value: 20})

	data, err := MarshalSnapshot("tiny", result)
	require.NoError(t, err)
	assert.Equal(t, `{
  "scenario_name": "tiny",
  "pass": true,
  "trace": [
    {
      "seq": 1,
      "kind": "health",
      "participant": "alice",
      "value": 20
    }
  ]
}
`, string(data))
}
