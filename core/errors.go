package core

import (
	"errors"
	"fmt"
)

// ErrDriverStopped is returned when work is posted to, or waited on, a
// TickDriver that has been stopped.
var ErrDriverStopped = errors.New("tick driver is stopped")

// ArgumentError reports an invalid argument to Run. No task is created.
type ArgumentError struct {
	Arg    string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Arg, e.Reason)
}
