package callback

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoAvailablePort = errors.New("no available port")
	ErrCallbackTimeout = errors.New("authentication timed out, please try again")
	ErrListenerClosed  = errors.New("callback listener closed")
	ErrNotStarted      = errors.New("callback listener not started")
)

// NoAvailablePortError lists the candidate ports that were all taken.
type NoAvailablePortError struct {
	Ports []int
}

func (e *NoAvailablePortError) Error() string {
	ports := make([]string, 0, len(e.Ports))
	for _, p := range e.Ports {
		ports = append(ports, fmt.Sprint(p))
	}
	return fmt.Sprintf("no available ports in range: [%s]", strings.Join(ports, ", "))
}

func (e *NoAvailablePortError) Is(target error) bool {
	return target == ErrNoAvailablePort
}

// Result is the outcome of the redirect: either Code (with optional State) or
// Error (with optional ErrorDescription) is set.
type Result struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

func (r Result) Failed() bool {
	return r.Error != ""
}

// State is the lifecycle of a Listener.
type State int

const (
	StateIdle State = iota
	StateListening
	StateCaptured
	StateTimedOut
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateCaptured:
		return "captured"
	case StateTimedOut:
		return "timed-out"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
