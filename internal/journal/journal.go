package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floatdeck/datasync/internal/model"
	"github.com/floatdeck/datasync/internal/queue"
)

// Config holds journal writer settings.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: 2 * time.Second,
	}
}

// Metrics counts journal activity.
type Metrics struct {
	SignalsWritten int64
	Batches        int64
	WriteErrors    int64
}

// signalRow is the buy_signals table shape.
type signalRow struct {
	ID         string
	Ticker     string
	Price      float64
	Reason     string
	FiredAt    int64 // µs since epoch
	AcceptedAt int64 // µs since epoch
}

// Writer persists accepted buy signals to PostgreSQL in batches. It is an
// optional sink: feed reconciliation never depends on the journal, and a
// write failure only drops that batch from the journal, never from the
// in-memory feed.
type Writer struct {
	cfg    Config
	logger *slog.Logger

	input *queue.Queue[model.BuySignal]
	db    *pgxpool.Pool

	batch       []signalRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// NewWriter creates a journal writer consuming from input.
func NewWriter(cfg Config, input *queue.Queue[model.BuySignal], db *pgxpool.Pool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]signalRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming signals and writing batches.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("signal journal started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains and flushes whatever is pending.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping signal journal")

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}
	w.input.Close()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("signal journal stop timed out")
	}

	w.flush()
	w.logger.Info("signal journal stopped")
	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() Metrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop reads signals from the input queue and accumulates batches.
func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		sig, ok := w.input.Receive()
		if !ok {
			return
		}

		w.batchMu.Lock()
		w.batch = append(w.batch, w.transform(sig))
		full := len(w.batch) >= w.cfg.BatchSize
		w.batchMu.Unlock()

		if full {
			w.flush()
		}
	}
}

// flushLoop flushes on the ticker so slow feeds still land.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush()
		}
	}
}

// transform converts a signal to its row shape.
func (w *Writer) transform(sig model.BuySignal) signalRow {
	return signalRow{
		ID:         sig.ID.String(),
		Ticker:     sig.Ticker,
		Price:      sig.Price,
		Reason:     sig.Reason,
		FiredAt:    sig.FiredAt.UnixMicro(),
		AcceptedAt: time.Now().UnixMicro(),
	}
}

// flush writes the pending batch with COPY.
func (w *Writer) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}
	batch := w.batch
	w.batch = make([]signalRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	if w.db == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows := make([][]any, len(batch))
	for i, r := range batch {
		rows[i] = []any{r.ID, r.Ticker, r.Price, r.Reason, r.FiredAt, r.AcceptedAt}
	}

	_, err := w.db.CopyFrom(
		ctx,
		pgx.Identifier{"buy_signals"},
		[]string{"id", "ticker", "price", "reason", "fired_at", "accepted_at"},
		pgx.CopyFromRows(rows),
	)

	w.batchMu.Lock()
	if err != nil {
		w.metrics.WriteErrors++
		w.batchMu.Unlock()
		w.logger.Warn("journal flush failed",
			"signals", len(batch),
			"error", err,
		)
		return
	}
	w.metrics.SignalsWritten += int64(len(batch))
	w.metrics.Batches++
	w.batchMu.Unlock()

	w.logger.Debug("journal flushed", "signals", len(batch))
}
