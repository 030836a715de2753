// Package catalog defines the observed item model and the change detection
// that turns two catalog snapshots into discrete change events.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Item is one product as observed during a single walk.
type Item struct {
	StoreName string
	// ExternalKey identifies the item across runs. Derived from the item
	// link when present, otherwise the item name. Change detection is
	// purely structural, so an unstable key shows up as Removed+NewItem
	// churn; key stability is a precondition, not something detection
	// compensates for.
	ExternalKey string
	Name        string
	Prices      map[string]float64 // currency -> amount
	Link        string
	ImageURL    string
	SoldOut     bool
	ObservedAt  time.Time
}

// ItemState is the persisted snapshot of an item, keyed by
// (store name, external key).
type ItemState struct {
	StoreName   string
	ExternalKey string
	Name        string
	Prices      map[string]float64
	Link        string
	ImageURL    string
	SoldOut     bool
	FirstSeen   time.Time
	LastSeen    time.Time
}

// EventKind discriminates change events.
type EventKind string

const (
	NewItem            EventKind = "new_item"
	PriceChanged       EventKind = "price_changed"
	RestockedOrSoldOut EventKind = "restocked_or_sold_out"
	Removed            EventKind = "removed"
)

// ChangeEvent is an immutable fact about a difference between the previous
// and current catalog snapshot of one store.
type ChangeEvent struct {
	ID          uuid.UUID
	StoreName   string
	ExternalKey string
	ItemName    string
	Kind        EventKind
	EmittedAt   time.Time

	// PriceChanged payload.
	Currency string
	OldPrice float64
	NewPrice float64

	// RestockedOrSoldOut payload.
	OldSoldOut bool
	NewSoldOut bool
}
