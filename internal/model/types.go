package model

import (
	"time"

	"github.com/google/uuid"
)

// Order is one working order on the dashboard's orders feed.
// OrderID is the natural key; a later record with the same OrderID fully
// replaces the earlier one.
type Order struct {
	OrderID   string  `json:"OrderID"`
	Ticker    string  `json:"ticker"`
	Side      string  `json:"side"` // "buy" or "sell"
	Qty       int64   `json:"qty"`
	Price     float64 `json:"price"`
	Status    string  `json:"status"`     // e.g. "NEW", "PAR", "DON", "CAN"
	PlacedAt  int64   `json:"placed_at"`  // µs since epoch
	UpdatedAt int64   `json:"updated_at"` // µs since epoch
}

// Key returns the natural key for order reconciliation.
func (o Order) Key() string { return o.OrderID }

// FloatResult is one row of a validated float-screening result set.
type FloatResult struct {
	Ticker      string  `json:"ticker"`
	Price       float64 `json:"price"`
	FloatShares int64   `json:"float_shares"`
	ChangePct   float64 `json:"change_pct"`
	Volume      int64   `json:"volume"`
	ValidatedAt int64   `json:"validated_at"` // µs since epoch
}

// Key returns the natural key for dedup inside a screening group.
func (r FloatResult) Key() string { return r.Ticker }

// ToplistRow is one row of a momentum toplist for a screening group.
type ToplistRow struct {
	Ticker    string  `json:"ticker"`
	Rank      int     `json:"rank"`
	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"`
	Volume    int64   `json:"volume"`
}

// Key returns the natural key for a toplist row.
func (r ToplistRow) Key() string { return r.Ticker }

// BuySignal is one entry on the buy-signal feed. The feed is deduplicated
// by Ticker (case-insensitive), not by ID, because the same signal can
// arrive through more than one message kind.
type BuySignal struct {
	ID      uuid.UUID `json:"id"`
	Ticker  string    `json:"ticker"`
	Price   float64   `json:"price"`
	Reason  string    `json:"reason"`
	FiredAt time.Time `json:"fired_at"`
}

// Key returns the natural key for feed deduplication.
func (s BuySignal) Key() string { return s.Ticker }
