package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrReentrancy is returned when a pass starts while another is active.
	// The offending pass is aborted.
	ErrReentrancy = errors.New("reconcile: reentrant pass")
	// ErrMissingElement marks selectors or screen roots matching nothing.
	ErrMissingElement = errors.New("reconcile: missing element")
	// ErrRuleApplication marks a rule whose Apply (or AppliesWhen) failed.
	ErrRuleApplication = errors.New("reconcile: rule application failed")
)

// MissingElementError names what could not be found. Non-fatal.
type MissingElementError struct {
	RuleID   string
	Selector string
}

func (e *MissingElementError) Error() string {
	if e.RuleID == "" {
		return fmt.Sprintf("reconcile: no element matches %q", e.Selector)
	}
	return fmt.Sprintf("reconcile: rule %s: no element matches %q", e.RuleID, e.Selector)
}

func (e *MissingElementError) Unwrap() error { return ErrMissingElement }

// RuleApplicationError wraps the error or panic raised by one rule on one
// element.
type RuleApplicationError struct {
	RuleID string
	XPath  string
	Err    error
	Panic  bool
}

func (e *RuleApplicationError) Error() string {
	return fmt.Sprintf("reconcile: rule %s at %s: %v", e.RuleID, e.XPath, e.Err)
}

func (e *RuleApplicationError) Unwrap() error { return e.Err }

// Is matches ErrRuleApplication.
func (e *RuleApplicationError) Is(target error) bool { return target == ErrRuleApplication }
