package doc

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverity_Labels(t *testing.T) {
	assert.Equal(t, "Error", SeverityError.Label())
	assert.Equal(t, "Warning", SeverityWarning.Label())
	assert.Equal(t, "", Severity(0).Label())
	assert.Equal(t, "Severity(9)", Severity(9).String())

	s, err := ParseSeverity("Warning")
	require.NoError(t, err)
	assert.Equal(t, SeverityWarning, s)

	_, err = ParseSeverity("existing error")
	assert.Error(t, err)
}

func TestSeverity_JSONUsesLabel(t *testing.T) {
	data, err := json.Marshal(NewViolation("m", "c", SeverityError))
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"m","context":"c","severity":"Error"}`, string(data))

	var v Violation
	require.NoError(t, json.Unmarshal([]byte(`{"message":"m","context":"","severity":"Warning"}`), &v))
	assert.Equal(t, NewViolation("m", "", SeverityWarning), v)
}

func TestViolation_StructuralEquality(t *testing.T) {
	a := NewViolation("msg", "ctx", SeverityError)
	b := NewViolation("msg", "ctx", SeverityError)
	c := NewViolation("msg", "ctx", SeverityWarning)

	assert.True(t, a == b)
	assert.False(t, a == c)
}

func TestDocument_CloneIsolatesSlots(t *testing.T) {
	original := Document{
		ID:            "Space.Page",
		Documentation: &DocumentationInfo{Target: "user"},
		Slots: []Slot{
			{Index: 0, Violation: NewViolation("m", "c", SeverityError)},
		},
	}

	clone := original.Clone()
	clone.Slots[0].Tombstone = true
	clone.Slots = append(clone.Slots, Slot{Index: 1, Violation: NewViolation("n", "", SeverityWarning)})
	clone.Documentation.Target = "admin"

	assert.False(t, original.Slots[0].Tombstone)
	assert.Len(t, original.Slots, 1)
	assert.Equal(t, "user", original.Documentation.Target)
}

func TestDocument_ActiveViolations(t *testing.T) {
	d := Document{Slots: []Slot{
		{Index: 0, Tombstone: true},
		{Index: 1, Violation: NewViolation("m2", "c2", SeverityWarning)},
	}}

	assert.Equal(t, []Violation{NewViolation("m2", "c2", SeverityWarning)}, d.ActiveViolations())
	assert.Empty(t, Document{}.ActiveViolations())
}

func TestNextIndex(t *testing.T) {
	assert.Equal(t, 0, NextIndex(nil))
	assert.Equal(t, 2, NextIndex([]Slot{{Index: 0}, {Index: 1, Tombstone: true}}))
	assert.Equal(t, 8, NextIndex([]Slot{{Index: 3}, {Index: 7}}), "sparse slots continue past the last index")
}

func TestValidateSlots(t *testing.T) {
	ok := []Slot{
		{Index: 0, Tombstone: true},
		{Index: 1, Violation: NewViolation("m", "", SeverityError)},
	}
	assert.NoError(t, ValidateSlots(ok))

	gap := []Slot{{Index: 1, Violation: NewViolation("m", "", SeverityError)}}
	err := ValidateSlots(gap)
	assert.True(t, errors.Is(err, ErrInvalidSlots))

	badSeverity := []Slot{{Index: 0, Violation: Violation{Message: "m"}}}
	assert.ErrorIs(t, ValidateSlots(badSeverity), ErrInvalidSlots)
}

func TestContentHash_IgnoresSlotsAndAuthor(t *testing.T) {
	a := Document{ID: "A", Title: "T", Content: "body"}
	b := a.Clone()
	b.Author = "someone"
	b.Slots = []Slot{{Index: 0, Violation: NewViolation("m", "", SeverityError)}}

	ha, err := ContentHash(a)
	require.NoError(t, err)
	hb, err := ContentHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)

	c := a.Clone()
	c.Documentation = &DocumentationInfo{Target: "user"}
	hc, err := ContentHash(c)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
	assert.Len(t, ha, 64)
}
