package domain

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports malformed client input. Missing lists every
// offending field so the user sees one combined message.
type ValidationError struct {
	Missing []string
}

func (e ValidationError) Error() string {
	if len(e.Missing) == 0 {
		return "invalid input"
	}
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}

// Is enables errors.Is matching on ValidationError.
func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

// ErrValidation is the sentinel error for malformed input.
var ErrValidation = ValidationError{}

// NotFoundError reports that no record matched the searched barcode.
type NotFoundError struct {
	Barcode string
}

func (e NotFoundError) Error() string {
	if e.Barcode == "" {
		return "record not found"
	}
	return fmt.Sprintf("no record found for barcode %s", e.Barcode)
}

func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing records.
var ErrNotFound = NotFoundError{}

// AlreadyDiscardedError is the expected business conflict: the scanned
// barcode was discarded before. It carries the prior stamp for display and
// never indicates a system fault.
type AlreadyDiscardedError struct {
	Barcode     string
	DiscardedAt *time.Time
	DiscardedBy string
}

func (e AlreadyDiscardedError) Error() string {
	msg := fmt.Sprintf("barcode %s is already discarded", e.Barcode)
	if e.DiscardedBy != "" {
		msg += " by " + e.DiscardedBy
	}
	if e.DiscardedAt != nil {
		msg += " at " + e.DiscardedAt.Format(time.RFC3339)
	}
	return msg
}

func (e AlreadyDiscardedError) Is(target error) bool {
	_, ok := target.(AlreadyDiscardedError)
	if ok {
		return true
	}
	_, ok = target.(*AlreadyDiscardedError)
	return ok
}

// ErrAlreadyDiscarded is the sentinel error for duplicate discards.
var ErrAlreadyDiscarded = AlreadyDiscardedError{}

// NotDiscardedError rejects an unmark of a record that was never discarded.
// Explicit rejection, not a no-op.
type NotDiscardedError struct {
	Barcode string
}

func (e NotDiscardedError) Error() string {
	return fmt.Sprintf("barcode %s is not discarded", e.Barcode)
}

func (e NotDiscardedError) Is(target error) bool {
	_, ok := target.(NotDiscardedError)
	if ok {
		return true
	}
	_, ok = target.(*NotDiscardedError)
	return ok
}

// ErrNotDiscarded is the sentinel error for unmarking a pending record.
var ErrNotDiscarded = NotDiscardedError{}

// PersistenceError wraps a failed store write. Retrying is allowed.
type PersistenceError struct {
	Err error
}

func (e PersistenceError) Error() string {
	if e.Err == nil {
		return "persistence failed"
	}
	return fmt.Sprintf("persistence failed: %v", e.Err)
}

func (e PersistenceError) Unwrap() error { return e.Err }

func (e PersistenceError) Is(target error) bool {
	_, ok := target.(PersistenceError)
	if ok {
		return true
	}
	_, ok = target.(*PersistenceError)
	return ok
}

// ErrPersistence is the sentinel error for failed store writes.
var ErrPersistence = PersistenceError{}

// DependencyUnavailableError reports a missing required collaborator.
// Fatal for the operation, surfaced once, never retried automatically.
type DependencyUnavailableError struct {
	Dependency string
}

func (e DependencyUnavailableError) Error() string {
	if e.Dependency == "" {
		return "required dependency unavailable"
	}
	return fmt.Sprintf("required dependency unavailable: %s", e.Dependency)
}

func (e DependencyUnavailableError) Is(target error) bool {
	_, ok := target.(DependencyUnavailableError)
	if ok {
		return true
	}
	_, ok = target.(*DependencyUnavailableError)
	return ok
}

// ErrDependencyUnavailable is the sentinel error for absent collaborators.
var ErrDependencyUnavailable = DependencyUnavailableError{}
