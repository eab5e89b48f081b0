package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks malformed coordinate text.
	ErrInvalidInput = errors.New("invalid coordinate input")
	// ErrEmptyIndex marks a query against a category with no known hazards.
	ErrEmptyIndex = errors.New("no hazards available")
	// ErrUnknownCategory marks a hazard category name that is not tracked.
	ErrUnknownCategory = errors.New("unknown hazard category")
)

// InvalidInputError describes the first token that failed validation.
// Index is -1 when the failure concerns the token list as a whole.
type InvalidInputError struct {
	Index  int
	Token  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", ErrInvalidInput, e.Reason)
	}
	return fmt.Sprintf("%s: token %d (%q): %s", ErrInvalidInput, e.Index, e.Token, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// EmptyIndexError reports the category that had no hazards at query time.
type EmptyIndexError struct {
	Category HazardCategory
}

func (e *EmptyIndexError) Error() string {
	return fmt.Sprintf("%s: category %s is empty", ErrEmptyIndex, e.Category)
}

func (e *EmptyIndexError) Is(target error) bool { return target == ErrEmptyIndex }
