package reconcile

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/floatdeck/datasync/internal/classify"
	"github.com/floatdeck/datasync/internal/model"
	"github.com/floatdeck/datasync/internal/store"
)

// Payload validation errors. They cause the single frame to be skipped;
// the stores are never left partially mutated.
var (
	errMissingOrderID = errors.New("order payload missing OrderID")
	errMissingTicker  = errors.New("payload missing ticker")
	errMissingGroup   = errors.New("payload missing config_id")
)

// Stores bundles one reconciling store per logical data set.
type Stores struct {
	Orders   *store.Store[model.Order]       // orders by OrderID
	Floats   *store.Store[model.FloatResult] // validated lists by group
	Toplists *store.Store[model.ToplistRow]  // toplist rows by group
	Signals  *store.Store[model.BuySignal]   // buy-signal feed
}

// NewStores creates the four stores with their merge policies.
func NewStores() Stores {
	return Stores{
		Orders:   store.New(store.UpsertByKey, model.Order.Key),
		Floats:   store.New(store.ReplaceGroup, model.FloatResult.Key),
		Toplists: store.New(store.ReplaceGroup, model.ToplistRow.Key),
		Signals:  store.New(store.PrependDedup, model.BuySignal.Key),
	}
}

// Reconciler decodes classified payloads and applies them to the stores.
type Reconciler struct {
	stores Stores
	logger *slog.Logger

	// onSignal fires for each signal actually inserted into the feed
	// (duplicates suppressed by the feed's dedup never fire it).
	onSignal func(model.BuySignal)
}

// New creates a reconciler over the given stores.
func New(stores Stores, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{stores: stores, logger: logger}
}

// OnSignalAccepted registers a sink for signals newly inserted into the
// feed, e.g. the journal. Must be set before frames flow.
func (r *Reconciler) OnSignalAccepted(fn func(model.BuySignal)) {
	r.onSignal = fn
}

// Bind registers the reconciler's handlers on a classifier.
func (r *Reconciler) Bind(c *classify.Classifier) {
	c.Handle(classify.KindBuySignal, r.handleBuySignal)
	c.Handle(classify.KindFloatList, r.handleFloatList)
	c.Handle(classify.KindFloatNewMatch, r.handleFloatNewMatch)
	c.Handle(classify.KindToplist, r.handleToplist)
	c.HandleOrder(r.handleOrder)
}

// handleOrder upserts a bare order object. The payload is the whole frame.
func (r *Reconciler) handleOrder(payload json.RawMessage) error {
	var o model.Order
	if err := json.Unmarshal(payload, &o); err != nil {
		return err
	}
	if o.OrderID == "" {
		return errMissingOrderID
	}
	return r.stores.Orders.Upsert(o)
}

// handleBuySignal prepends a signal onto the feed.
func (r *Reconciler) handleBuySignal(payload json.RawMessage) error {
	var sig model.BuySignal
	if err := json.Unmarshal(payload, &sig); err != nil {
		return err
	}
	if sig.Ticker == "" {
		return errMissingTicker
	}

	inserted, err := r.stores.Signals.Prepend(sig)
	if err != nil {
		return err
	}
	if inserted {
		r.accepted(sig)
	}
	return nil
}

// floatListPayload is the FLOAT_LIST_VALIDATED data shape.
type floatListPayload struct {
	ConfigID string              `json:"config_id"`
	Results  []model.FloatResult `json:"results"`
}

// handleFloatList replaces a screening group's validated list wholesale.
// The broadcast is authoritative for the group.
func (r *Reconciler) handleFloatList(payload json.RawMessage) error {
	var p floatListPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	if p.ConfigID == "" {
		return errMissingGroup
	}
	return r.stores.Floats.Replace(p.ConfigID, p.Results)
}

// newMatchPayload is the FLOAT_LIST_NEW_MATCH data shape.
type newMatchPayload struct {
	ConfigID string            `json:"config_id"`
	Result   model.FloatResult `json:"result"`
}

// handleFloatNewMatch appends a single new match to its group when not
// already present, and surfaces it on the buy feed. The feed's dedup
// absorbs the case where the same ticker already arrived as BUY_SIGNAL.
func (r *Reconciler) handleFloatNewMatch(payload json.RawMessage) error {
	var p newMatchPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	if p.ConfigID == "" {
		return errMissingGroup
	}
	if p.Result.Ticker == "" {
		return errMissingTicker
	}

	if _, err := r.stores.Floats.Append(p.ConfigID, p.Result); err != nil {
		return err
	}

	sig := model.BuySignal{
		ID:      uuid.New(),
		Ticker:  p.Result.Ticker,
		Price:   p.Result.Price,
		Reason:  "float_list_match",
		FiredAt: time.Now().UTC(),
	}
	inserted, err := r.stores.Signals.Prepend(sig)
	if err != nil {
		return err
	}
	if inserted {
		r.accepted(sig)
	}
	return nil
}

// toplistPayload is the TOPLIST_UPDATE data shape.
type toplistPayload struct {
	ConfigID string            `json:"config_id"`
	Rows     []model.ToplistRow `json:"rows"`
}

// handleToplist replaces a group's toplist rows wholesale.
func (r *Reconciler) handleToplist(payload json.RawMessage) error {
	var p toplistPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	if p.ConfigID == "" {
		return errMissingGroup
	}
	return r.stores.Toplists.Replace(p.ConfigID, p.Rows)
}

func (r *Reconciler) accepted(sig model.BuySignal) {
	if r.onSignal != nil {
		r.onSignal(sig)
	}
}
