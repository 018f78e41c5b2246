package schedule

import (
	"errors"
	"fmt"
)

// ErrNoSlot is the normal outcome of an exhausted slot search. It is not a
// failure and must not be logged as one.
var ErrNoSlot = errors.New("no slot satisfies the search constraints")

// ErrConflict means a concurrent commit won the slot. The allocator retries
// the search once against fresh state before surfacing this.
var ErrConflict = errors.New("slot commit lost to a concurrent booking")

// Policy violation reason codes.
const (
	PolicyRescheduleLocked  = "reschedule_locked"
	PolicyCapacityExhausted = "capacity_exhausted"
	PolicySystemPaused      = "system_paused"
	PolicyInvalidTransition = "invalid_transition"
	PolicyCycleInFlight     = "cycle_in_flight"
)

// PolicyError rejects an operation with a reason code. Policy violations are
// expected outcomes, never fatal.
type PolicyError struct {
	Code    string
	Message string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy violation (%s): %s", e.Code, e.Message)
}

func policyf(code, format string, args ...any) *PolicyError {
	return &PolicyError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsPolicy reports whether err is a policy violation, optionally matching a
// specific code.
func IsPolicy(err error, code string) bool {
	var pe *PolicyError
	if !errors.As(err, &pe) {
		return false
	}
	return code == "" || pe.Code == code
}

// IntegrityError marks a booking or queue entry referencing state that does
// not exist. Fatal for the single operation, logged, never silently dropped.
type IntegrityError struct {
	Entity string
	Ref    string
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("data integrity: %s %q %s", e.Entity, e.Ref, e.Reason)
}

func IsIntegrity(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
