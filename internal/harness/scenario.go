package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a document, a sequence of edits and passes, and assertions
// on the final document.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Document is the initial markup.
	Document string `yaml:"document"`

	// Focus is the id of the element holding the caret initially.
	Focus string `yaml:"focus,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one pass, optionally preceded by a user edit. Exactly one of
// Pass, Edit and Remove is set.
type Step struct {
	Pass   *PassStep   `yaml:"pass,omitempty"`
	Edit   *EditStep   `yaml:"edit,omitempty"`
	Remove *RemoveStep `yaml:"remove,omitempty"`

	// Changed lists the ids reported as changed. Defaults depend on the
	// step kind.
	Changed []string `yaml:"changed,omitempty"`

	// Origins are the originator tags of the notification. Default: user.
	Origins []string `yaml:"origins,omitempty"`

	Expect *StepExpect `yaml:"expect,omitempty"`
}

// PassStep notifies without editing first.
type PassStep struct{}

// EditStep replaces the inner markup of element ID and moves the caret
// into it.
type EditStep struct {
	ID   string `yaml:"id"`
	HTML string `yaml:"html"`
}

// RemoveStep removes element ID.
type RemoveStep struct {
	ID string `yaml:"id"`
}

// StepExpect checks the outcome of one step.
type StepExpect struct {
	// Status is completed, skipped or aborted.
	Status string `yaml:"status,omitempty"`
	// Mutations is the number of journaled mutations, if set.
	Mutations *int `yaml:"mutations,omitempty"`
}

// Kind returns "pass", "edit" or "remove".
func (s Step) Kind() string {
	switch {
	case s.Edit != nil:
		return "edit"
	case s.Remove != nil:
		return "remove"
	default:
		return "pass"
	}
}

// Assertion validates the final document or the journal.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// ID is the element or instance id (content, state, descriptor_absent).
	ID string `yaml:"id,omitempty"`

	// Text is the expected text content (content).
	Text string `yaml:"text,omitempty"`

	// State is the expected variable state (state). Empty means none.
	State string `yaml:"state,omitempty"`

	// Intention restricts descriptor_count to one intention uri.
	Intention string `yaml:"intention,omitempty"`

	// Count is the expected number (block_count, descriptor_count,
	// mutations).
	Count *int `yaml:"count,omitempty"`

	// Step restricts mutations to one step, by 0-based index.
	Step *int `yaml:"step,omitempty"`
}

// Assertion type constants.
const (
	AssertContent          = "content"
	AssertState            = "state"
	AssertBlockCount       = "block_count"
	AssertDescriptorCount  = "descriptor_count"
	AssertDescriptorAbsent = "descriptor_absent"
	AssertMutations        = "mutations"
)

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

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// strict: catches typos like "assertion:" vs "assertions:"
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
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		set := 0
		if step.Pass != nil {
			set++
		}
		if step.Edit != nil {
			set++
			if step.Edit.ID == "" {
				return fmt.Errorf("steps[%d].edit: id is required", i)
			}
		}
		if step.Remove != nil {
			set++
			if step.Remove.ID == "" {
				return fmt.Errorf("steps[%d].remove: id is required", i)
			}
		}
		if set != 1 {
			return fmt.Errorf("steps[%d]: exactly one of pass, edit, remove is required", i)
		}
		if step.Expect != nil && step.Expect.Status != "" {
			switch step.Expect.Status {
			case "completed", "skipped", "aborted":
			default:
				return fmt.Errorf("steps[%d].expect: unknown status %q", i, step.Expect.Status)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, len(s.Steps)); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, steps int) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertContent, AssertState, AssertDescriptorAbsent:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for %s", index, a.Type)
		}
	case AssertBlockCount, AssertDescriptorCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for %s", index, a.Type)
		}
	case AssertMutations:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for mutations", index)
		}
		if a.Step != nil && (*a.Step < 0 || *a.Step >= steps) {
			return fmt.Errorf("assertions[%d]: step %d out of range", index, *a.Step)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
