package service

import (
	"errors"
	"fmt"

	"example.com/baletrack/internal/models"
)

// Common service errors
var (
	ErrNotFound          = errors.New("bale not found")
	ErrForbidden         = errors.New("actor role does not permit this operation")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrTransient         = errors.New("concurrent update conflict, retry the request")
	ErrInvalidCount      = errors.New("allocation count out of range")
	ErrBadConfirmation   = errors.New("wipe confirmation token mismatch")
)

// TransitionError reports an illegal transition together with the
// record's current status, so offline clients replaying queued intents
// can tell "already applied" from a genuine conflict.
type TransitionError struct {
	Current models.BaleStatus
	Target  models.BaleStatus
}

// Error implements the error interface
func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition to %q: record is %q", e.Target, e.Current)
}

// Is makes errors.Is(err, ErrIllegalTransition) match
func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}
