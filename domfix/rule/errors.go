package rule

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateRule is returned when registering an ID twice.
	ErrDuplicateRule = errors.New("rule: duplicate rule id")
	// ErrRegistryFrozen is returned when registering after Freeze.
	ErrRegistryFrozen = errors.New("rule: registry is frozen")
	// ErrInvalidRule is returned for rules missing an ID, selector or Apply.
	ErrInvalidRule = errors.New("rule: invalid rule")
)

// DuplicateRuleError carries the conflicting rule ID.
type DuplicateRuleError struct {
	ID string
}

func (e *DuplicateRuleError) Error() string {
	return fmt.Sprintf("rule: duplicate rule id %q", e.ID)
}

func (e *DuplicateRuleError) Unwrap() error { return ErrDuplicateRule }
