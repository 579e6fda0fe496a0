package classify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/floatdeck/datasync/internal/link"
	"github.com/floatdeck/datasync/internal/queue"
)

// Message kinds carried in the envelope discriminant.
const (
	KindBuySignal     = "BUY_SIGNAL"
	KindFloatList     = "FLOAT_LIST_VALIDATED"
	KindFloatNewMatch = "FLOAT_LIST_NEW_MATCH"
	KindToplist       = "TOPLIST_UPDATE"
)

// Handler receives the payload of one substantive frame. A non-nil error
// means the payload was unusable and the frame was skipped; the error
// never propagates further.
type Handler func(payload json.RawMessage) error

// Stats counts classifier outcomes.
type Stats struct {
	Received    int64
	Dispatched  int64
	Control     int64
	ParseErrors int64
	Skipped     int64
	Unknown     int64
}

// envelope matches every inbound frame shape at once: control markers,
// kind-discriminated domain messages, and the bare order shape that has
// no discriminant at all.
type envelope struct {
	Heartbeat    bool            `json:"Heartbeat"`
	StreamStatus json.RawMessage `json:"StreamStatus"`
	Type         string          `json:"type"`
	Data         json.RawMessage `json:"data"`
	OrderID      string          `json:"OrderID"`
}

// Classifier parses inbound frames, discards control frames, and
// dispatches the rest to the handler registered for their kind. Frames
// are consumed from the link queue on one goroutine in arrival order, so
// store mutations happen in the exact order the transport delivered them.
type Classifier struct {
	logger *slog.Logger
	in     *queue.Queue[link.Frame]

	handlers     map[string]Handler
	orderHandler Handler // fallback for the shape-inferred order family

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	stats Stats
}

// New creates a classifier reading from the given frame queue. Handlers
// must be registered before Start.
func New(in *queue.Queue[link.Frame], logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		logger:   logger,
		in:       in,
		handlers: make(map[string]Handler),
	}
}

// Handle registers the handler for one message kind.
func (c *Classifier) Handle(kind string, fn Handler) {
	c.handlers[kind] = fn
}

// HandleOrder registers the fallback handler for frames identified solely
// by the presence of an OrderID field. The handler receives the whole
// frame as its payload.
func (c *Classifier) HandleOrder(fn Handler) {
	c.orderHandler = fn
}

// Start begins consuming frames.
func (c *Classifier) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.dispatchLoop()

	c.logger.Info("classifier started", "kinds", len(c.handlers))
	return nil
}

// Stop shuts down the dispatch loop. Frames still queued are discarded.
func (c *Classifier) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	c.in.Close()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("classifier stopped")
		return nil
	case <-ctx.Done():
		c.logger.Warn("classifier stop timed out")
		return ctx.Err()
	}
}

// Stats returns current counters.
func (c *Classifier) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Classifier) dispatchLoop() {
	defer c.wg.Done()

	for {
		frame, ok := c.in.Receive()
		if !ok {
			return
		}
		select {
		case <-c.ctx.Done():
			// Mid-teardown frame: discard without applying.
			return
		default:
		}
		c.classify(frame.Data)
	}
}

// classify handles a single raw frame. Every failure path is absorbed
// locally; a malformed frame from a partially-failed peer must never
// crash the consumer.
func (c *Classifier) classify(data []byte) {
	c.count(func(s *Stats) { s.Received++ })

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.count(func(s *Stats) { s.ParseErrors++ })
		return
	}

	// Pure control frames carry no actionable payload.
	if env.Heartbeat || len(env.StreamStatus) > 0 {
		c.count(func(s *Stats) { s.Control++ })
		return
	}

	if env.Type != "" {
		fn, ok := c.handlers[env.Type]
		if !ok {
			// Unknown kinds are dropped for forward compatibility.
			c.count(func(s *Stats) { s.Unknown++ })
			c.logger.Debug("skipping message kind", "kind", env.Type)
			return
		}
		if err := fn(env.Data); err != nil {
			c.count(func(s *Stats) { s.Skipped++ })
			c.logger.Debug("skipped frame", "kind", env.Type, "error", err)
			return
		}
		c.count(func(s *Stats) { s.Dispatched++ })
		return
	}

	// No discriminant: infer the order family from payload shape.
	if env.OrderID != "" && c.orderHandler != nil {
		if err := c.orderHandler(data); err != nil {
			c.count(func(s *Stats) { s.Skipped++ })
			c.logger.Debug("skipped order frame", "error", err)
			return
		}
		c.count(func(s *Stats) { s.Dispatched++ })
		return
	}

	c.count(func(s *Stats) { s.Unknown++ })
}

func (c *Classifier) count(apply func(*Stats)) {
	c.mu.Lock()
	apply(&c.stats)
	c.mu.Unlock()
}
