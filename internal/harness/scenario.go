package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/docguard/internal/doc"
)

// Scenario defines an analysis scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Builtin lists built-in checks to enable by name.
	Builtin []string `yaml:"builtin,omitempty"`

	// Checks defines scripted checks with fixed output.
	Checks []CheckDef `yaml:"checks,omitempty"`

	// Documents are saved before the first step.
	Documents []DocumentDef `yaml:"documents"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`
}

// CheckDef is a scripted check.
type CheckDef struct {
	Name       string         `yaml:"name"`
	Violations []ViolationDef `yaml:"violations"`
}

// ViolationDef describes a violation or, in document slots, a tombstone.
type ViolationDef struct {
	Message   string `yaml:"message,omitempty"`
	Context   string `yaml:"context,omitempty"`
	Severity  string `yaml:"severity,omitempty"`
	Tombstone bool   `yaml:"tombstone,omitempty"`
}

// DocumentDef seeds a document.
type DocumentDef struct {
	ID      string `yaml:"id"`
	Title   string `yaml:"title,omitempty"`
	Target  string `yaml:"target,omitempty"`
	Content string `yaml:"content,omitempty"`

	// Slots pre-populate the violation arena, indexed in order.
	Slots []ViolationDef `yaml:"slots,omitempty"`
}

// Step is one scenario action. Exactly one of Save, Analyze, Settle or
// SetCheck is set.
type Step struct {
	Save     *DocumentDef `yaml:"save,omitempty"`
	Analyze  string       `yaml:"analyze,omitempty"`
	Settle   string       `yaml:"settle,omitempty"`
	SetCheck *CheckDef    `yaml:"set_check,omitempty"`

	// Expect is checked against the document after the step.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is a subset match on a step's outcome. Nil fields are ignored.
type Expect struct {
	Changed    *bool  `yaml:"changed,omitempty"`
	Version    *int64 `yaml:"version,omitempty"`
	Active     *int   `yaml:"active,omitempty"`
	Tombstones *int   `yaml:"tombstones,omitempty"`
	Passes     *int   `yaml:"passes,omitempty"`
}

// Step action names used in traces.
const (
	ActionSave     = "save"
	ActionAnalyze  = "analyze"
	ActionSettle   = "settle"
	ActionSetCheck = "set_check"
)

// Action returns the step's action name.
func (s Step) Action() string {
	switch {
	case s.Save != nil:
		return ActionSave
	case s.Analyze != "":
		return ActionAnalyze
	case s.Settle != "":
		return ActionSettle
	case s.SetCheck != nil:
		return ActionSetCheck
	default:
		return ""
	}
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

// ParseScenario parses scenario YAML with strict field validation.
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
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	scripted := make(map[string]bool, len(s.Checks))
	for i, c := range s.Checks {
		if c.Name == "" {
			return fmt.Errorf("checks[%d]: name is required", i)
		}
		if scripted[c.Name] {
			return fmt.Errorf("checks[%d]: duplicate check %q", i, c.Name)
		}
		scripted[c.Name] = true
		if err := validateViolations(fmt.Sprintf("checks[%d]", i), c.Violations, false); err != nil {
			return err
		}
	}

	for i, d := range s.Documents {
		if d.ID == "" {
			return fmt.Errorf("documents[%d]: id is required", i)
		}
		if err := validateViolations(fmt.Sprintf("documents[%d].slots", i), d.Slots, true); err != nil {
			return err
		}
	}

	for i, step := range s.Steps {
		set := 0
		for _, on := range []bool{step.Save != nil, step.Analyze != "", step.Settle != "", step.SetCheck != nil} {
			if on {
				set++
			}
		}
		if set != 1 {
			return fmt.Errorf("steps[%d]: exactly one of save, analyze, settle, set_check is required", i)
		}
		if step.Save != nil && step.Save.ID == "" {
			return fmt.Errorf("steps[%d].save: id is required", i)
		}
		if step.SetCheck != nil {
			if !scripted[step.SetCheck.Name] {
				return fmt.Errorf("steps[%d].set_check: unknown scripted check %q", i, step.SetCheck.Name)
			}
			if err := validateViolations(fmt.Sprintf("steps[%d].set_check", i), step.SetCheck.Violations, false); err != nil {
				return err
			}
		}
	}

	return nil
}

func validateViolations(where string, defs []ViolationDef, allowTombstones bool) error {
	for i, v := range defs {
		if v.Tombstone {
			if !allowTombstones {
				return fmt.Errorf("%s[%d]: tombstone not allowed here", where, i)
			}
			continue
		}
		if _, err := doc.ParseSeverity(v.Severity); err != nil {
			return fmt.Errorf("%s[%d]: %w", where, i, err)
		}
	}
	return nil
}

// violations converts definitions to domain violations. Call only after
// validation.
func violations(defs []ViolationDef) []doc.Violation {
	out := make([]doc.Violation, 0, len(defs))
	for _, d := range defs {
		sev, _ := doc.ParseSeverity(d.Severity)
		out = append(out, doc.NewViolation(d.Message, d.Context, sev))
	}
	return out
}

// slots converts definitions to a dense slot arena.
func slots(defs []ViolationDef) []doc.Slot {
	out := make([]doc.Slot, 0, len(defs))
	for i, d := range defs {
		if d.Tombstone {
			out = append(out, doc.Slot{Index: i, Tombstone: true})
			continue
		}
		sev, _ := doc.ParseSeverity(d.Severity)
		out = append(out, doc.Slot{Index: i, Violation: doc.NewViolation(d.Message, d.Context, sev)})
	}
	return out
}
