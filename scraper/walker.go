package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"storewatch/catalog"
	"storewatch/config"
	"storewatch/useragent"
)

// Walker traverses a store's paginated listing and produces the full
// current item list for one run. Pagination within a store is strictly
// sequential: each page's next-page target comes from parsing the page
// before it.
type Walker struct {
	fetcher  *Fetcher
	rotator  *useragent.Rotator
	maxPages int
	attempts int
	backoff  time.Duration
	log      *zap.Logger
}

// NewWalker builds a walker from the process settings. The rotator is the
// shared one; the walker never constructs its own.
func NewWalker(fetcher *Fetcher, rotator *useragent.Rotator, settings config.Settings, log *zap.Logger) *Walker {
	return &Walker{
		fetcher:  fetcher,
		rotator:  rotator,
		maxPages: settings.MaxPages,
		attempts: settings.FetchAttempts,
		backoff:  settings.Backoff(),
		log:      log,
	}
}

// Walk fetches every page of the store starting at base_url. It returns
// the complete item list or a WalkError; there is no partial result. A
// previously visited URL ends the walk normally (sites sometimes point the
// last page's next link at itself), while exceeding the page cap aborts
// it: a cap hit means the catalog's true extent is unknown.
func (w *Walker) Walk(ctx context.Context, store *config.StoreConfig) ([]catalog.Item, error) {
	opts := store.Options
	visited := make(map[string]bool)
	var items []catalog.Item

	current := opts.BaseURL
	for page := 0; current != ""; page++ {
		if page >= w.maxPages {
			return nil, &WalkError{
				StoreName: store.Name,
				Page:      current,
				Err:       errors.New("page cap exceeded"),
			}
		}
		if visited[current] {
			w.log.Debug("pagination loop detected, stopping walk",
				zap.String("store", store.Name),
				zap.String("url", current))
			break
		}
		visited[current] = true

		if page > 0 {
			if err := sleep(ctx, opts.Delay()); err != nil {
				return nil, &WalkError{StoreName: store.Name, Page: current, Err: err}
			}
		}

		markup, err := w.fetchWithRetry(ctx, current, opts.Encoding)
		if err != nil {
			return nil, &WalkError{StoreName: store.Name, Page: current, Err: err}
		}

		raw, next, err := Extract(markup, current, opts)
		if err != nil {
			return nil, &WalkError{StoreName: store.Name, Page: current, Err: err}
		}

		observed := time.Now()
		for _, r := range raw {
			items = append(items, catalog.Item{
				StoreName:   store.Name,
				ExternalKey: externalKey(r),
				Name:        r.Name,
				Prices:      r.Prices,
				Link:        r.Link,
				ImageURL:    r.ImageURL,
				SoldOut:     r.SoldOut,
				ObservedAt:  observed,
			})
		}

		w.log.Debug("page walked",
			zap.String("store", store.Name),
			zap.String("url", current),
			zap.Int("items", len(raw)),
			zap.Bool("has_next", next != ""))
		current = next
	}

	return items, nil
}

// fetchWithRetry retries network and 5xx failures with exponential backoff
// and gives up immediately on everything else.
func (w *Walker) fetchWithRetry(ctx context.Context, url, encoding string) (string, error) {
	var markup string

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = w.backoff

	operation := func() error {
		var err error
		markup, err = w.fetcher.Fetch(ctx, url, w.rotator.Next(), encoding)
		if err == nil {
			return nil
		}

		var fetchErr *FetchError
		if errors.As(err, &fetchErr) && fetchErr.Retryable() {
			w.log.Warn("fetch failed, will retry",
				zap.String("url", url),
				zap.Error(err))
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(w.attempts-1)), ctx))
	if err != nil {
		return "", err
	}
	return markup, nil
}

// externalKey derives the stable cross-run identity for an item: the link
// when present, otherwise the name. Stability of this key is a
// precondition for meaningful change detection.
func externalKey(r RawItem) string {
	if r.Link != "" {
		return r.Link
	}
	return r.Name
}

// sleep waits for the inter-request delay, aborting early on cancellation.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
