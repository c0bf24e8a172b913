package onboarding

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound             = errors.New("onboarding: application not found")
	ErrValidation           = errors.New("onboarding: validation failed")
	ErrInvalidTransition    = errors.New("onboarding: invalid transition")
	ErrDuplicateApplication = errors.New("onboarding: an active application already exists for this email")
	ErrNotEditable          = errors.New("onboarding: application can only be edited while in draft")
	ErrHumanRequired        = errors.New("onboarding: this decision requires a human reviewer")
)

// ValidationError lists missing or malformed fields. It matches ErrValidation.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "missing required fields"
	}
	if len(e.Fields) == 0 {
		return "onboarding: " + reason
	}
	return fmt.Sprintf("onboarding: %s: %s", reason, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalidField(field, reason string) *ValidationError {
	return &ValidationError{Fields: []string{field}, Reason: reason}
}

// TransitionError reports an operation attempted from a status that does not
// permit it. It matches ErrInvalidTransition.
type TransitionError struct {
	Workflow  string
	Operation string
	From      string
	To        string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("onboarding: %s %s: cannot move from %s to %s", e.Workflow, e.Operation, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// ProvisioningError wraps a failed activation step. The application keeps its
// previous status and activation can be retried.
type ProvisioningError struct {
	Step string
	Err  error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("onboarding: provisioning %s failed: %v", e.Step, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }
