package link

import (
	"errors"
	"time"
)

// Errors
var (
	// ErrMissingToken is returned by Start when the endpoint requires a
	// credential and none is configured. No dial is attempted.
	ErrMissingToken = errors.New("stream token required but not configured")

	// ErrBootstrapTimeout is surfaced when the very first connection
	// attempt has not reached open within the bootstrap deadline. The
	// supervisor keeps retrying underneath.
	ErrBootstrapTimeout = errors.New("stream did not open before bootstrap deadline")
)

// State is the externally observable lifecycle state of the link.
type State string

const (
	StateIdle       State = "idle"       // created, Start not yet called
	StateConnecting State = "connecting" // dial in progress
	StateOpen       State = "open"       // connected, frames flowing
	StateBackoff    State = "backoff"    // waiting for the reconnect timer
	StateClosed     State = "closed"     // stopped, or remote closed normally
	StateFailed     State = "failed"     // terminal configuration error
)

// Status is a point-in-time snapshot of the link.
type Status struct {
	State   State
	Attempt int // consecutive failed attempts; 0 after a successful open
	LastErr error
}

// Frame is one raw inbound text frame, forwarded verbatim in arrival order.
type Frame struct {
	Data       []byte
	ReceivedAt time.Time
}

// Config configures a Supervisor.
type Config struct {
	URL          string // stream endpoint (ws:// or wss://)
	Token        string // credential appended as a query parameter
	TokenParam   string // query parameter name for the credential
	AuthRequired bool   // when true, an empty Token is a configuration error

	ReconnectBaseWait time.Duration // first backoff delay
	ReconnectMaxWait  time.Duration // backoff cap
	BootstrapTimeout  time.Duration // deadline for the first open; 0 disables
	HandshakeTimeout  time.Duration // websocket handshake deadline
	QueueSize         int           // initial frame queue capacity
}

// DefaultConfig returns the production delay schedule.
func DefaultConfig() Config {
	return Config{
		TokenParam:        "token",
		ReconnectBaseWait: time.Second,
		ReconnectMaxWait:  15 * time.Second,
		BootstrapTimeout:  10 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		QueueSize:         1024,
	}
}

// backoffDelay returns the wait before the attempt-th consecutive retry:
// min(max, base·2^(attempt-1)).
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
