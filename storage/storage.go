// Package storage persists the last-known catalog state per store and an
// append-only record of emitted change events, backed by SQLite.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"storewatch/catalog"
)

// Store wraps the SQLite connection holding item state and event history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS stores (
		name TEXT PRIMARY KEY,
		initial_fetch TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		store_name TEXT NOT NULL,
		external_key TEXT NOT NULL,
		name TEXT NOT NULL,
		link TEXT,
		image_url TEXT,
		prices TEXT NOT NULL DEFAULT '{}',
		sold_out INTEGER NOT NULL DEFAULT 0,
		first_seen TIMESTAMP NOT NULL,
		last_seen TIMESTAMP NOT NULL,
		UNIQUE (store_name, external_key)
	);
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		store_name TEXT NOT NULL,
		external_key TEXT NOT NULL,
		item_name TEXT NOT NULL,
		kind TEXT NOT NULL,
		currency TEXT,
		old_price REAL,
		new_price REAL,
		old_sold_out INTEGER,
		new_sold_out INTEGER,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_store_time
		ON events (store_name, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// FirstRun reports whether the store has never had a successful commit.
// The first walk of a store seeds its state without emitting events.
func (s *Store) FirstRun(storeName string) (bool, error) {
	var initialFetch sql.NullTime
	err := s.db.QueryRow(
		"SELECT initial_fetch FROM stores WHERE name = ?", storeName,
	).Scan(&initialFetch)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query store %s: %w", storeName, err)
	}
	return !initialFetch.Valid, nil
}

// State returns the persisted item states for a store, ordered by first
// observation so diff removal order is deterministic.
func (s *Store) State(storeName string) ([]catalog.ItemState, error) {
	rows, err := s.db.Query(`
		SELECT external_key, name, link, image_url, prices, sold_out, first_seen, last_seen
		FROM items WHERE store_name = ? ORDER BY id`, storeName)
	if err != nil {
		return nil, fmt.Errorf("failed to query items for %s: %w", storeName, err)
	}
	defer rows.Close()

	var states []catalog.ItemState
	for rows.Next() {
		var (
			state     catalog.ItemState
			pricesRaw string
			soldOut   int
		)
		state.StoreName = storeName
		err := rows.Scan(&state.ExternalKey, &state.Name, &state.Link, &state.ImageURL,
			&pricesRaw, &soldOut, &state.FirstSeen, &state.LastSeen)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		if err := json.Unmarshal([]byte(pricesRaw), &state.Prices); err != nil {
			return nil, fmt.Errorf("corrupt price data for %s/%s: %w",
				storeName, state.ExternalKey, err)
		}
		state.SoldOut = soldOut != 0
		states = append(states, state)
	}
	return states, rows.Err()
}

// Commit replaces the store's item snapshot and appends the run's events in
// a single transaction. A crash before the commit leaves the previous
// state fully intact; a walk is therefore all-or-nothing as far as
// persistence is concerned. The store's initial_fetch is stamped on its
// first successful commit.
func (s *Store) Commit(storeName string, states []catalog.ItemState, events []catalog.ChangeEvent) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.Exec(`
		INSERT INTO stores (name, initial_fetch) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET
			initial_fetch = COALESCE(initial_fetch, excluded.initial_fetch)`,
		storeName, now); err != nil {
		return fmt.Errorf("failed to upsert store %s: %w", storeName, err)
	}

	if _, err := tx.Exec("DELETE FROM items WHERE store_name = ?", storeName); err != nil {
		return fmt.Errorf("failed to clear previous state for %s: %w", storeName, err)
	}

	insertItem, err := tx.Prepare(`
		INSERT INTO items (store_name, external_key, name, link, image_url,
			prices, sold_out, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare item insert: %w", err)
	}
	defer insertItem.Close()

	for _, state := range states {
		prices, err := json.Marshal(state.Prices)
		if err != nil {
			return fmt.Errorf("failed to marshal prices for %s: %w", state.ExternalKey, err)
		}
		_, err = insertItem.Exec(storeName, state.ExternalKey, state.Name,
			state.Link, state.ImageURL, string(prices), boolInt(state.SoldOut),
			state.FirstSeen, state.LastSeen)
		if err != nil {
			return fmt.Errorf("failed to insert item %s: %w", state.ExternalKey, err)
		}
	}

	insertEvent, err := tx.Prepare(`
		INSERT INTO events (id, store_name, external_key, item_name, kind,
			currency, old_price, new_price, old_sold_out, new_sold_out, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer insertEvent.Close()

	for _, ev := range events {
		_, err = insertEvent.Exec(ev.ID.String(), storeName, ev.ExternalKey,
			ev.ItemName, string(ev.Kind), ev.Currency, ev.OldPrice, ev.NewPrice,
			boolInt(ev.OldSoldOut), boolInt(ev.NewSoldOut), ev.EmittedAt)
		if err != nil {
			return fmt.Errorf("failed to insert event %s: %w", ev.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run for %s: %w", storeName, err)
	}
	return nil
}

// EventRecord is one persisted change event row.
type EventRecord struct {
	ID          string
	StoreName   string
	ExternalKey string
	ItemName    string
	Kind        catalog.EventKind
	Currency    string
	OldPrice    float64
	NewPrice    float64
	OldSoldOut  bool
	NewSoldOut  bool
	CreatedAt   time.Time
}

// Events returns the events recorded for a store within [from, to), oldest
// first, for historical reporting.
func (s *Store) Events(storeName string, from, to time.Time) ([]EventRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, external_key, item_name, kind, currency,
			old_price, new_price, old_sold_out, new_sold_out, created_at
		FROM events
		WHERE store_name = ? AND created_at >= ? AND created_at < ?
		ORDER BY created_at, rowid`, storeName, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for %s: %w", storeName, err)
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		var (
			rec      EventRecord
			currency sql.NullString
			oldSold  int
			newSold  int
		)
		rec.StoreName = storeName
		err := rows.Scan(&rec.ID, &rec.ExternalKey, &rec.ItemName, &rec.Kind,
			&currency, &rec.OldPrice, &rec.NewPrice, &oldSold, &newSold, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		rec.Currency = currency.String
		rec.OldSoldOut = oldSold != 0
		rec.NewSoldOut = newSold != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
