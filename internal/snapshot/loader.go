package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/floatdeck/datasync/internal/api"
	"github.com/floatdeck/datasync/internal/reconcile"
)

// Loader performs the one-time REST bootstrap: it fetches the initial
// state for every store plus the auxiliary trigger-mode flag, and installs
// each snapshot exactly once.
//
// The caller must run Load to completion before starting classifier
// dispatch. Frames arriving meanwhile sit in the link's growable queue, so
// nothing is dropped, and a slow snapshot can never overwrite newer stream
// data for the group-replace stores: the snapshot always applies first.
type Loader struct {
	client *api.Client
	stores reconcile.Stores
	logger *slog.Logger

	mu     sync.Mutex
	loaded bool
	mode   string
}

// New creates a loader that installs into the given stores.
func New(client *api.Client, stores reconcile.Stores, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		client: client,
		stores: stores,
		logger: logger,
	}
}

// Load fetches every snapshot endpoint and installs the results. Each
// store that fetched cleanly is installed even when another endpoint
// failed; the combined error is returned one-shot so the caller can show
// it. Calling Load again after a successful load is a no-op.
func (l *Loader) Load(ctx context.Context) error {
	l.mu.Lock()
	if l.loaded {
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	var errs []error

	orders, err := l.client.GetOrders(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("orders snapshot: %w", err))
	} else if err := l.stores.Orders.UpsertAll(orders); err != nil {
		errs = append(errs, fmt.Errorf("install orders: %w", err))
	}

	floats, err := l.client.GetFloatLists(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("float lists snapshot: %w", err))
	} else if err := l.stores.Floats.ReplaceAll(floats); err != nil {
		errs = append(errs, fmt.Errorf("install float lists: %w", err))
	}

	toplists, err := l.client.GetToplists(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("toplists snapshot: %w", err))
	} else if err := l.stores.Toplists.ReplaceAll(toplists); err != nil {
		errs = append(errs, fmt.Errorf("install toplists: %w", err))
	}

	feed, err := l.client.GetBuyFeed(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("buy feed snapshot: %w", err))
	} else if err := l.stores.Signals.SetFeed(feed); err != nil {
		errs = append(errs, fmt.Errorf("install buy feed: %w", err))
	}

	mode, err := l.client.GetTriggerMode(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("trigger mode: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	l.mu.Lock()
	l.loaded = true
	l.mode = mode
	l.mu.Unlock()

	l.logger.Info("snapshot installed",
		"orders", l.stores.Orders.Len(),
		"float_groups", l.stores.Floats.Len(),
		"toplist_groups", l.stores.Toplists.Len(),
		"feed", l.stores.Signals.Len(),
		"trigger_mode", mode,
	)

	return nil
}

// TriggerMode returns the trigger-mode flag captured during Load.
func (l *Loader) TriggerMode() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}
