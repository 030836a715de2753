package catalog

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Diff compares the current walk result against the persisted state of one
// store and produces the change events plus the next state to persist.
//
// Events for surviving and new items come out in extraction order; Removed
// events follow, in previous-state order. A single item may emit several
// event kinds in one run (a price change and a restock are independent
// facts). Price comparison is exact: source prices are discrete currency
// units, so no epsilon is involved.
func Diff(storeName string, current []Item, previous []ItemState) ([]ChangeEvent, []ItemState) {
	now := time.Now()

	prevByKey := make(map[string]ItemState, len(previous))
	for _, state := range previous {
		prevByKey[state.ExternalKey] = state
	}

	var events []ChangeEvent
	next := make([]ItemState, 0, len(current))
	seen := make(map[string]bool, len(current))

	for _, item := range current {
		if item.ExternalKey == "" || seen[item.ExternalKey] {
			// Listings occasionally repeat an item across pages; the first
			// occurrence wins.
			continue
		}
		seen[item.ExternalKey] = true

		prev, existed := prevByKey[item.ExternalKey]
		if !existed {
			events = append(events, newEvent(storeName, item, NewItem, now))
		} else {
			events = append(events, compareItem(storeName, item, prev, now)...)
		}

		state := ItemState{
			StoreName:   storeName,
			ExternalKey: item.ExternalKey,
			Name:        item.Name,
			Prices:      item.Prices,
			Link:        item.Link,
			ImageURL:    item.ImageURL,
			SoldOut:     item.SoldOut,
			FirstSeen:   item.ObservedAt,
			LastSeen:    item.ObservedAt,
		}
		if existed {
			state.FirstSeen = prev.FirstSeen
		}
		next = append(next, state)
	}

	for _, prev := range previous {
		if !seen[prev.ExternalKey] {
			ev := ChangeEvent{
				ID:          uuid.New(),
				StoreName:   storeName,
				ExternalKey: prev.ExternalKey,
				ItemName:    prev.Name,
				Kind:        Removed,
				EmittedAt:   now,
			}
			events = append(events, ev)
		}
	}

	return events, next
}

// compareItem emits the events for an item present in both snapshots.
func compareItem(storeName string, item Item, prev ItemState, now time.Time) []ChangeEvent {
	var events []ChangeEvent

	for _, currency := range sharedCurrencies(item.Prices, prev.Prices) {
		oldPrice := prev.Prices[currency]
		newPrice := item.Prices[currency]
		if oldPrice != newPrice {
			ev := newEvent(storeName, item, PriceChanged, now)
			ev.Currency = currency
			ev.OldPrice = oldPrice
			ev.NewPrice = newPrice
			events = append(events, ev)
		}
	}

	if item.SoldOut != prev.SoldOut {
		ev := newEvent(storeName, item, RestockedOrSoldOut, now)
		ev.OldSoldOut = prev.SoldOut
		ev.NewSoldOut = item.SoldOut
		events = append(events, ev)
	}

	return events
}

// sharedCurrencies returns the currencies present in both price maps, in a
// stable order so event order is deterministic.
func sharedCurrencies(a, b map[string]float64) []string {
	var shared []string
	for currency := range a {
		if _, ok := b[currency]; ok {
			shared = append(shared, currency)
		}
	}
	sort.Strings(shared)
	return shared
}

func newEvent(storeName string, item Item, kind EventKind, now time.Time) ChangeEvent {
	return ChangeEvent{
		ID:          uuid.New(),
		StoreName:   storeName,
		ExternalKey: item.ExternalKey,
		ItemName:    item.Name,
		Kind:        kind,
		EmittedAt:   now,
	}
}
