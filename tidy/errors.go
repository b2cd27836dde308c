/*
errors.go - Centralized error types for the tidy engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The pipeline distinguishes fatal conditions (abort the run, no outputs
  published) from recoverable ones (logged into the run log, processing
  continues).

ERROR CATEGORIES:
  1. Input errors   - The document cannot be understood at all (fatal)
  2. Registry errors - The item/construct configuration is invalid (fatal)
  3. Record warnings - Per-record problems, accumulated, never raised

USAGE:
  if errors.Is(err, tidy.ErrUnrecognizedShape) {
      // input document shape is not one of the accepted variants
  }

SEE ALSO:
  - extract.go: Returns input errors
  - registry.go: Returns registry errors
  - runlog.go: Accumulates record warnings
*/
package tidy

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnrecognizedShape is returned when the input document is valid JSON
	// but matches none of the accepted top-level shapes. Fatal.
	ErrUnrecognizedShape = errors.New("unrecognized input document shape")

	// ErrInvalidJSON is returned when the input document is not JSON at all.
	ErrInvalidJSON = errors.New("input is not valid JSON")

	// ErrEmptyConstruct is returned when a construct references no items.
	ErrEmptyConstruct = errors.New("construct has no member items")

	// ErrUnknownMember is returned when a construct references an item that
	// has no definition.
	ErrUnknownMember = errors.New("construct member has no item definition")

	// ErrNonNumericMember is returned when a construct includes an item whose
	// value domain is not numeric-ordinal.
	ErrNonNumericMember = errors.New("construct member is not numeric-ordinal")

	// ErrDuplicateItem is returned when two item definitions share an id.
	ErrDuplicateItem = errors.New("duplicate item definition")

	// ErrDuplicateConstruct is returned when two constructs share an id.
	ErrDuplicateConstruct = errors.New("duplicate construct definition")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RegistryError identifies which definition failed validation.
type RegistryError struct {
	Construct ConstructID
	Item      ItemID
	Err       error
}

func (e *RegistryError) Error() string {
	switch {
	case e.Construct != "" && e.Item != "":
		return fmt.Sprintf("registry: construct %q, item %q: %v", e.Construct, e.Item, e.Err)
	case e.Construct != "":
		return fmt.Sprintf("registry: construct %q: %v", e.Construct, e.Err)
	default:
		return fmt.Sprintf("registry: item %q: %v", e.Item, e.Err)
	}
}

func (e *RegistryError) Unwrap() error { return e.Err }

// ShapeError reports what the extractor actually found at the top level.
type ShapeError struct {
	Found string // e.g. "string", "number", "object without record list"
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("unrecognized input document shape: found %s", e.Found)
}

func (e *ShapeError) Unwrap() error { return ErrUnrecognizedShape }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsFatal returns true if the error must abort the run before any output
// is published. Everything else is accumulated as a run-log warning.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnrecognizedShape) ||
		errors.Is(err, ErrInvalidJSON) ||
		errors.Is(err, ErrEmptyConstruct) ||
		errors.Is(err, ErrUnknownMember) ||
		errors.Is(err, ErrNonNumericMember) ||
		errors.Is(err, ErrDuplicateItem) ||
		errors.Is(err, ErrDuplicateConstruct)
}
