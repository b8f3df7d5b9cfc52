package lifesteal

import (
	"errors"
	"fmt"
)

// ActionErrorCode categorizes rejected participant actions.
type ActionErrorCode string

const (
	// ErrCodeDisabled indicates the action is turned off in configuration.
	ErrCodeDisabled ActionErrorCode = "DISABLED"

	// ErrCodeOnCooldown indicates the participant must wait.
	ErrCodeOnCooldown ActionErrorCode = "ON_COOLDOWN"

	// ErrCodeInsufficient indicates the participant holds too little resource.
	ErrCodeInsufficient ActionErrorCode = "INSUFFICIENT_RESOURCE"

	// ErrCodeAtCapacity indicates the participant is already at the maximum.
	ErrCodeAtCapacity ActionErrorCode = "AT_CAPACITY"
)

// ActionError reports why a withdraw or consume was rejected.
type ActionError struct {
	Code        ActionErrorCode
	Participant string
	Message     string

	// RemainingSeconds is set for ErrCodeOnCooldown.
	RemainingSeconds int64
}

// Error implements the error interface.
func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %s (participant=%s)", e.Code, e.Message, e.Participant)
}

// IsActionError checks if err is an ActionError.
func IsActionError(err error) bool {
	var ae *ActionError
	return errors.As(err, &ae)
}

// IsOnCooldown checks if err is an ActionError with ErrCodeOnCooldown.
func IsOnCooldown(err error) bool {
	return hasCode(err, ErrCodeOnCooldown)
}

// IsDisabled checks if err is an ActionError with ErrCodeDisabled.
func IsDisabled(err error) bool {
	return hasCode(err, ErrCodeDisabled)
}

// IsInsufficient checks if err is an ActionError with ErrCodeInsufficient.
func IsInsufficient(err error) bool {
	return hasCode(err, ErrCodeInsufficient)
}

// IsAtCapacity checks if err is an ActionError with ErrCodeAtCapacity.
func IsAtCapacity(err error) bool {
	return hasCode(err, ErrCodeAtCapacity)
}

func hasCode(err error, code ActionErrorCode) bool {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
