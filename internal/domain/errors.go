package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidPattern = errors.New("invalid scope pattern")
	ErrDuplicateID    = errors.New("duplicate document id")
	ErrMatch          = errors.New("pattern match failed")
	ErrEmptyID        = errors.New("document id is empty")
	ErrParse          = errors.New("guideline file could not be parsed")
)

// InvalidPatternError reports a scope pattern that does not compile.
type InvalidPatternError struct {
	DocumentID string
	Pattern    string
	Err        error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("document %s: invalid scope pattern %q: %v", e.DocumentID, e.Pattern, e.Err)
}

func (e *InvalidPatternError) Unwrap() error { return e.Err }

func (e *InvalidPatternError) Is(target error) bool { return target == ErrInvalidPattern }

// DuplicateIdError reports two or more documents sharing an id.
type DuplicateIdError struct {
	ID      string
	Sources []string
}

func (e *DuplicateIdError) Error() string {
	if len(e.Sources) == 0 {
		return fmt.Sprintf("duplicate document id %q", e.ID)
	}
	return fmt.Sprintf("duplicate document id %q (sources: %s)", e.ID, strings.Join(e.Sources, ", "))
}

func (e *DuplicateIdError) Is(target error) bool { return target == ErrDuplicateID }

// MatchError wraps a failure of the underlying matcher for one candidate.
type MatchError struct {
	DocumentID string
	Pattern    string
	Path       string
	Err        error
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("document %s: matching %q against %q: %v", e.DocumentID, e.Pattern, e.Path, e.Err)
}

func (e *MatchError) Unwrap() error { return e.Err }

func (e *MatchError) Is(target error) bool { return target == ErrMatch }

// ParseError reports a guideline file that could not be read or parsed.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }
