package service

import (
	"example.com/baletrack/internal/auth"
	"example.com/baletrack/internal/models"
)

// transitionRule is one edge of the bale lifecycle
type transitionRule struct {
	from     models.BaleStatus
	required auth.Role
}

// The lifecycle is strictly linear: field → yard → processed. There is
// no reverse edge; once yarded a bale cannot return to the field
// through this API.
var transitions = map[models.BaleStatus]transitionRule{
	models.StatusYard:      {from: models.StatusField, required: auth.RoleTransport},
	models.StatusProcessed: {from: models.StatusYard, required: auth.RoleProcessing},
}

// RequiredRole returns the role gating a transition into target
func RequiredRole(target models.BaleStatus) (auth.Role, bool) {
	rule, ok := transitions[target]
	if !ok {
		return "", false
	}
	return rule.required, true
}

// ValidateTransition checks that a record at current may move to target
func ValidateTransition(current, target models.BaleStatus) error {
	rule, ok := transitions[target]
	if !ok || rule.from != current {
		return &TransitionError{Current: current, Target: target}
	}
	return nil
}
