package link

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/floatdeck/datasync/internal/queue"
)

// Supervisor owns the lifecycle of one streaming connection: connect,
// detect failure, reconnect with capped exponential backoff, and expose
// link status. It knows nothing about message semantics; raw frames are
// forwarded verbatim to the frame queue in arrival order.
//
// The connect/read/backoff cycle runs on a single goroutine, so at most
// one reconnect timer is ever pending and a new attempt implicitly
// supersedes the previous schedule.
type Supervisor struct {
	cfg    Config
	logger *slog.Logger
	frames *queue.Queue[Frame]

	mu       sync.Mutex
	state    State
	attempt  int
	lastErr  error
	started  bool
	conn     *websocket.Conn
	onChange func(Status)

	bootstrapCh    chan error
	bootstrapOnce  sync.Once
	bootstrapTimer *time.Timer

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSupervisor creates a supervisor for the given endpoint. Zero config
// fields fall back to DefaultConfig values.
func NewSupervisor(cfg Config, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}

	def := DefaultConfig()
	if cfg.TokenParam == "" {
		cfg.TokenParam = def.TokenParam
	}
	if cfg.ReconnectBaseWait <= 0 {
		cfg.ReconnectBaseWait = def.ReconnectBaseWait
	}
	if cfg.ReconnectMaxWait <= 0 {
		cfg.ReconnectMaxWait = def.ReconnectMaxWait
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Supervisor{
		cfg:         cfg,
		logger:      logger,
		frames:      queue.New[Frame](cfg.QueueSize),
		state:       StateIdle,
		bootstrapCh: make(chan error, 1),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// OnStateChange registers a callback invoked synchronously on every state
// transition. Must be set before Start.
func (s *Supervisor) OnStateChange(fn func(Status)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Frames returns the ordered queue of raw inbound frames.
func (s *Supervisor) Frames() *queue.Queue[Frame] {
	return s.frames
}

// Status returns the current link status.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{State: s.state, Attempt: s.attempt, LastErr: s.lastErr}
}

// Bootstrap returns a channel that receives exactly one value: nil once
// the link first reaches open, or ErrBootstrapTimeout if the deadline
// passes first. This distinguishes "never worked" from "temporarily
// dropped" on first load.
func (s *Supervisor) Bootstrap() <-chan error {
	return s.bootstrapCh
}

// Start opens the connection. Calling Start while already started is a
// no-op. When the endpoint requires a credential and none is configured,
// Start fails immediately without dialing and the link is left in the
// terminal failed state.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if s.cfg.AuthRequired && s.cfg.Token == "" {
		s.lastErr = ErrMissingToken
		s.mu.Unlock()
		s.transition(StateFailed, ErrMissingToken)
		s.deliverBootstrap(ErrMissingToken)
		return ErrMissingToken
	}
	s.started = true
	if s.cfg.BootstrapTimeout > 0 {
		s.bootstrapTimer = time.AfterFunc(s.cfg.BootstrapTimeout, func() {
			s.deliverBootstrap(ErrBootstrapTimeout)
		})
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()
	return nil
}

// Stop closes the connection with a normal closure code and cancels any
// pending reconnect and bootstrap timers. No automatic reconnect fires
// afterwards, and frames arriving mid-teardown are discarded.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()

		s.mu.Lock()
		if s.bootstrapTimer != nil {
			s.bootstrapTimer.Stop()
		}
		conn := s.conn
		s.mu.Unlock()

		if conn != nil {
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			conn.Close()
		}

		s.wg.Wait()
		s.frames.Close()

		// The failed state is terminal; Stop must not mask it.
		s.mu.Lock()
		failed := s.state == StateFailed
		s.mu.Unlock()
		if !failed {
			s.transition(StateClosed, nil)
		}

		s.logger.Info("link stopped")
	})
}

// run is the connect/read/backoff state machine. One goroutine, one timer.
func (s *Supervisor) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		s.transition(StateConnecting, nil)

		conn, err := s.dial()
		if err != nil {
			s.logger.Warn("dial failed", "error", err)
			if !s.backoffWait(err) {
				return
			}
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.attempt = 0
		s.mu.Unlock()
		s.transition(StateOpen, nil)
		s.openBootstrap()

		s.logger.Info("link open", "url", s.cfg.URL)

		err = s.readFrames(conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()

		select {
		case <-s.ctx.Done():
			return
		default:
		}

		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			// Clean remote close: not a failure, no reconnect.
			s.logger.Info("remote closed link normally")
			s.transition(StateClosed, nil)
			return
		}

		s.logger.Warn("link lost", "error", err)
		if !s.backoffWait(err) {
			return
		}
	}
}

// dial resolves the endpoint and performs the websocket handshake.
func (s *Supervisor) dial() (*websocket.Conn, error) {
	target, err := s.endpoint()
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(s.ctx, target, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// endpoint appends the credential as a query parameter when configured.
func (s *Supervisor) endpoint() (string, error) {
	if s.cfg.Token == "" {
		return s.cfg.URL, nil
	}

	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse stream url: %w", err)
	}
	q := u.Query()
	q.Set(s.cfg.TokenParam, s.cfg.Token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// readFrames forwards inbound frames until the connection breaks.
func (s *Supervisor) readFrames(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.frames.Send(Frame{Data: data, ReceivedAt: time.Now()})
	}
}

// backoffWait records the failure and sleeps for the scheduled delay.
// Returns false if the supervisor was stopped while waiting.
func (s *Supervisor) backoffWait(cause error) bool {
	s.mu.Lock()
	s.attempt++
	attempt := s.attempt
	s.mu.Unlock()

	delay := backoffDelay(s.cfg.ReconnectBaseWait, s.cfg.ReconnectMaxWait, attempt)
	s.transition(StateBackoff, cause)

	s.logger.Info("scheduling reconnect",
		"attempt", attempt,
		"delay", delay,
	)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-s.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// transition updates the observable state and notifies the listener.
func (s *Supervisor) transition(state State, cause error) {
	s.mu.Lock()
	s.state = state
	if cause != nil {
		s.lastErr = cause
	}
	status := Status{State: s.state, Attempt: s.attempt, LastErr: s.lastErr}
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(status)
	}
}

// openBootstrap resolves the bootstrap deadline with success.
func (s *Supervisor) openBootstrap() {
	s.mu.Lock()
	if s.bootstrapTimer != nil {
		s.bootstrapTimer.Stop()
	}
	s.mu.Unlock()
	s.deliverBootstrap(nil)
}

// deliverBootstrap sends the one-shot bootstrap outcome.
func (s *Supervisor) deliverBootstrap(err error) {
	s.bootstrapOnce.Do(func() {
		s.bootstrapCh <- err
	})
}
