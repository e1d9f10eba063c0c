// Package recognizer talks to the external face matching service. The
// matching algorithm itself lives behind that service; this package only
// ships frames to it and classifies the answer.
package recognizer

import (
	"context"
	"errors"
)

// ErrNoMatch means the service found no confident identity for the frame.
// It is terminal for the attempt: retrying with the same frame will not help.
var ErrNoMatch = errors.New("no confident face match")

// Match is a resolved identity.
type Match struct {
	EmployeeID string  `json:"employee_id"`
	Confidence float64 `json:"confidence"`
}

// Matcher resolves a frame to an employee identity.
type Matcher interface {
	Name() string
	Match(ctx context.Context, frame []byte) (*Match, error)
}
