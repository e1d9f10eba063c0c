// Package attendance owns the check-in/check-out state machine on top of
// the ledger. The resolver answers what action is currently legal for an
// employee today; the service is the only writer and re-verifies the
// state inside the ledger's atomic primitives at commit time, so the
// outcome is correct regardless of how many capture devices race.
package attendance

import (
	"errors"
	"fmt"
)

// Action is the intent carried by a recognition attempt or mark request.
type Action string

const (
	ActionCheckIn  Action = "checkin"
	ActionCheckOut Action = "checkout"
	ActionAuto     Action = "auto"
)

// ParseAction validates a wire-level action string.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionCheckIn, ActionCheckOut, ActionAuto:
		return Action(s), nil
	case "":
		return ActionAuto, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// ConflictKind identifies which state-machine rule a mutation violated.
type ConflictKind string

const (
	ConflictAlreadyCheckedIn ConflictKind = "alreadyCheckedIn"
	ConflictNotCheckedIn     ConflictKind = "notCheckedIn"
	ConflictAlreadyCompleted ConflictKind = "alreadyCompleted"
)

// ConflictError is a state-machine violation caught at commit time.
// Conflicts are terminal for the attempt: retrying with the same state
// cannot succeed, so they are never classified as retryable.
type ConflictError struct {
	Kind ConflictKind
}

func (e *ConflictError) Error() string {
	switch e.Kind {
	case ConflictAlreadyCheckedIn:
		return "already checked in today"
	case ConflictNotCheckedIn:
		return "not checked in today"
	case ConflictAlreadyCompleted:
		return "attendance already completed today"
	default:
		return string(e.Kind)
	}
}

// ErrCheckOutTooEarly rejects a check-out timestamp at or before the
// recorded check-in time.
var ErrCheckOutTooEarly = errors.New("check-out time must be after check-in time")

// AsConflict extracts a ConflictError from an error chain.
func AsConflict(err error) (*ConflictError, bool) {
	var c *ConflictError
	if errors.As(err, &c) {
		return c, true
	}
	return nil, false
}
