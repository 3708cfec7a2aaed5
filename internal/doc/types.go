package doc

import "fmt"

// Severity ranks a violation. The zero value is invalid.
type Severity int

const (
	// SeverityError is a high importance violation.
	SeverityError Severity = iota + 1
	// SeverityWarning is a medium or low importance violation.
	SeverityWarning
)

// Label returns the stable display label persisted with each slot.
func (s Severity) Label() string {
	switch s {
	case SeverityError:
		return "Error"
	case SeverityWarning:
		return "Warning"
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (s Severity) String() string {
	if l := s.Label(); l != "" {
		return l
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// ParseSeverity maps a persisted label back to a Severity.
func ParseSeverity(label string) (Severity, error) {
	switch label {
	case "Error":
		return SeverityError, nil
	case "Warning":
		return SeverityWarning, nil
	default:
		return 0, fmt.Errorf("unknown severity label %q", label)
	}
}

// MarshalText implements encoding.TextMarshaler so severities render as labels.
func (s Severity) MarshalText() ([]byte, error) {
	if s.Label() == "" {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.Label()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Violation is a finding produced by a check against document content.
//
// Violation is comparable; two violations are the same finding when all
// three fields are equal. There is no identity field.
type Violation struct {
	Message  string   `json:"message"`
	Context  string   `json:"context"`
	Severity Severity `json:"severity"`
}

// NewViolation builds a Violation.
func NewViolation(message, context string, severity Severity) Violation {
	return Violation{Message: message, Context: context, Severity: severity}
}

// String renders the violation for logs and text output.
func (v Violation) String() string {
	if v.Context == "" {
		return fmt.Sprintf("[%s] %s", v.Severity, v.Message)
	}
	return fmt.Sprintf("[%s] %s (%s)", v.Severity, v.Message, v.Context)
}

// Slot is a persisted container for at most one violation.
//
// A tombstoned slot has lost its violation but keeps its index forever.
type Slot struct {
	Index     int       `json:"index"`
	Violation Violation `json:"violation"`
	Tombstone bool      `json:"tombstone"`
}

// DocumentationInfo marks a document as a documentation page.
// Target names the audience whose navigation panel must list the page.
type DocumentationInfo struct {
	Target string `json:"target"`
}

// Document is a snapshot of a stored page.
type Document struct {
	ID          string
	Version     int64
	Title       string
	Content     string
	ContentHash string
	Author      string
	Comment     string

	// Documentation is nil for pages that are not documentation pages.
	Documentation *DocumentationInfo

	// Slots is the violation arena, ordered by index.
	Slots []Slot
}

// Clone returns a deep copy so callers can mutate slots without touching
// a cached snapshot.
func (d Document) Clone() Document {
	out := d
	if d.Documentation != nil {
		info := *d.Documentation
		out.Documentation = &info
	}
	if d.Slots != nil {
		out.Slots = make([]Slot, len(d.Slots))
		copy(out.Slots, d.Slots)
	}
	return out
}

// IsDocumentation reports whether the page carries documentation metadata.
func (d Document) IsDocumentation() bool {
	return d.Documentation != nil
}

// ActiveViolations returns the violations held by non-tombstone slots,
// in index order.
func (d Document) ActiveViolations() []Violation {
	out := []Violation{}
	for _, s := range d.Slots {
		if !s.Tombstone {
			out = append(out, s.Violation)
		}
	}
	return out
}

// NextIndex returns the index the next appended slot receives: one past
// the last slot's index, so it never collides even when slots are sparse.
func NextIndex(slots []Slot) int {
	if len(slots) == 0 {
		return 0
	}
	return slots[len(slots)-1].Index + 1
}

// ValidateSlots checks the arena invariant: Slots[i].Index == i.
func ValidateSlots(slots []Slot) error {
	for i, s := range slots {
		if s.Index != i {
			return fmt.Errorf("%w: position %d holds index %d", ErrInvalidSlots, i, s.Index)
		}
		if !s.Tombstone && s.Violation.Severity.Label() == "" {
			return fmt.Errorf("%w: slot %d has invalid severity", ErrInvalidSlots, i)
		}
	}
	return nil
}

// Revision is one persisted save of a document.
type Revision struct {
	ID          string `json:"id"`
	DocumentID  string `json:"document_id"`
	Version     int64  `json:"version"`
	Author      string `json:"author"`
	Comment     string `json:"comment"`
	ContentHash string `json:"content_hash"`
}
