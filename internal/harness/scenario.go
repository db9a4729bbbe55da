package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/kvrecord/internal/dispatch"
)

// Scenario defines a sequence of persistence verbs and the expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Collection is the collection name the records are stored under.
	Collection string `yaml:"collection"`

	// IDAttribute names the identifier attribute. Default "id".
	IDAttribute string `yaml:"id_attribute,omitempty"`

	// IDs are handed out in order to records created without an id. Once
	// exhausted, sequential ids are used.
	IDs []string `yaml:"ids,omitempty"`

	// QuotaBytes caps the substrate. Zero disables the quota.
	QuotaBytes int64 `yaml:"quota_bytes,omitempty"`

	// Seed holds substrate entries written before the collection is opened.
	Seed map[string]string `yaml:"seed,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final substrate state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step issues one verb.
type Step struct {
	// Verb is read, create, update or delete.
	Verb string `yaml:"verb"`

	// ID is the target record's identifier. A read without an id targets
	// the whole collection.
	ID string `yaml:"id,omitempty"`

	// Attrs are the record's attributes.
	Attrs map[string]interface{} `yaml:"attrs,omitempty"`

	// Expect validates the step's outcome. Nil skips validation.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes a step's expected outcome.
type Expect struct {
	// Outcome is "success" or "error".
	Outcome string `yaml:"outcome"`

	// Message is the expected error message (error outcomes).
	Message string `yaml:"message,omitempty"`

	// Result is a subset match against a single-record result.
	Result map[string]interface{} `yaml:"result,omitempty"`

	// Count is the expected number of records in a collection read.
	Count *int `yaml:"count,omitempty"`
}

// Assertion validates final substrate state.
type Assertion struct {
	// Type is one of index, entry, absent, size.
	Type string `yaml:"type"`

	// Records is the expected persisted index (index).
	Records []string `yaml:"records,omitempty"`

	// ID identifies the record (entry, absent).
	ID string `yaml:"id,omitempty"`

	// Expect is a subset match against the stored payload (entry).
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected substrate key count (size).
	Count int `yaml:"count,omitempty"`
}

// Outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Assertion type constants.
const (
	AssertIndex  = "index"
	AssertEntry  = "entry"
	AssertAbsent = "absent"
	AssertSize   = "size"
)

var knownVerbs = []string{
	string(dispatch.VerbRead),
	string(dispatch.VerbCreate),
	string(dispatch.VerbUpdate),
	string(dispatch.VerbDelete),
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

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
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
	if s.Collection == "" {
		return fmt.Errorf("collection is required")
	}
	if s.QuotaBytes < 0 {
		return fmt.Errorf("quota_bytes must not be negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if !slices.Contains(knownVerbs, step.Verb) {
			return fmt.Errorf("steps[%d]: unknown verb %q (must be one of %v)", i, step.Verb, knownVerbs)
		}
		if (step.Verb == string(dispatch.VerbUpdate) || step.Verb == string(dispatch.VerbDelete)) && step.ID == "" {
			return fmt.Errorf("steps[%d]: %s requires id", i, step.Verb)
		}
		if step.Expect == nil {
			continue
		}
		if step.Expect.Outcome != OutcomeSuccess && step.Expect.Outcome != OutcomeError {
			return fmt.Errorf("steps[%d]: expect.outcome must be %q or %q", i, OutcomeSuccess, OutcomeError)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertIndex, AssertSize:
		return nil
	case AssertEntry:
		if a.ID == "" {
			return fmt.Errorf("entry requires id")
		}
		if a.Expect == nil {
			return fmt.Errorf("entry requires expect")
		}
		return nil
	case AssertAbsent:
		if a.ID == "" {
			return fmt.Errorf("absent requires id")
		}
		return nil
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}
