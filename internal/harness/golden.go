package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/kvrecord/internal/codec"
)

// Snapshot renders a scenario result as canonical JSON: the scenario name,
// the step trace and the final substrate layout.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, event := range result.Trace {
		eventMap := map[string]any{
			"seq":     event.Seq,
			"verb":    event.Verb,
			"outcome": event.Outcome,
		}
		if event.ID != "" {
			eventMap["id"] = event.ID
		}
		if event.Message != "" {
			eventMap["message"] = event.Message
		}
		if event.Result != nil {
			eventMap["result"] = event.Result
		}
		trace[i] = eventMap
	}

	layout := make(map[string]any, len(result.Layout))
	for _, e := range result.Layout {
		layout[e.Key] = e.Value
	}

	return codec.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"trace":         trace,
		"layout":        layout,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's snapshot against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
