package doc

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally
// wrapped) so callers can branch with errors.Is.
var (
	ErrNotFound     = errors.New("document not found")
	ErrConflict     = errors.New("document version conflict")
	ErrInvalidSlots = errors.New("invalid violation slots")
)
