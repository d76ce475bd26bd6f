package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/varsync/internal/canon"
)

// toCanonicalMap converts a result to the map form canon.Marshal accepts.
func toCanonicalMap(name string, result *Result) map[string]any {
	steps := make([]any, len(result.Steps))
	for i, s := range result.Steps {
		step := map[string]any{
			"action":    s.Kind,
			"status":    s.Status,
			"mutations": s.Mutations,
		}
		if s.Error != "" {
			step["error"] = s.Error
		}
		steps[i] = step
	}
	return map[string]any{
		"name":     name,
		"steps":    steps,
		"document": result.Document,
	}
}

// Snapshot renders the golden file content for a result: canonical JSON
// of the scenario name, per-step outcomes and the final document.
func Snapshot(name string, result *Result) ([]byte, error) {
	return canon.Marshal(toCanonicalMap(name, result))
}

// RunWithGolden executes a scenario and compares the step outcomes and the
// final document against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
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

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapshot)
	return nil
}
