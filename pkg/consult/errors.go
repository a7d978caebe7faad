package consult

import (
	"errors"
	"fmt"
)

// ErrInvalidInput rejects empty or malformed queries before any backend
// call is made. It is one of the few hard errors surfaced to the caller.
var ErrInvalidInput = errors.New("invalid input")

// GenerationFailure records that one specialty's backend generation failed.
// It is scoped to its specialty and never aborts sibling consultations.
type GenerationFailure struct {
	Specialty Specialty
	Err       error
}

// Error implements the error interface.
func (g *GenerationFailure) Error() string {
	return fmt.Sprintf("generation failed for %s: %v", g.Specialty, g.Err)
}

// Unwrap returns the underlying backend error.
func (g *GenerationFailure) Unwrap() error {
	return g.Err
}
