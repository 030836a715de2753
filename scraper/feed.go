package scraper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"storewatch/catalog"
	"storewatch/config"
)

// FeedWalker produces a store's item list from an RSS or Atom product feed
// instead of scraped listing pages. Downstream change detection is
// identical; a feed entry simply carries no prices and no sold-out signal.
type FeedWalker struct {
	parser *gofeed.Parser
}

// NewFeedWalker creates a feed walker with the given per-fetch timeout.
func NewFeedWalker(timeout time.Duration) *FeedWalker {
	fp := gofeed.NewParser()
	fp.Client = &http.Client{Timeout: timeout}
	return &FeedWalker{parser: fp}
}

// Walk fetches and maps the store's feed. gofeed detects and normalizes
// both RSS and Atom, so one mapping covers both formats.
func (w *FeedWalker) Walk(ctx context.Context, store *config.StoreConfig) ([]catalog.Item, error) {
	feed, err := w.parser.ParseURLWithContext(store.Options.FeedURL, ctx)
	if err != nil {
		return nil, &WalkError{
			StoreName: store.Name,
			Page:      store.Options.FeedURL,
			Err:       fmt.Errorf("failed to parse feed: %w", err),
		}
	}

	observed := time.Now()
	items := make([]catalog.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry.Title == "" {
			continue
		}
		item := catalog.Item{
			StoreName:  store.Name,
			Name:       entry.Title,
			Link:       entry.Link,
			Prices:     map[string]float64{},
			ObservedAt: observed,
		}
		if entry.Image != nil {
			item.ImageURL = entry.Image.URL
		} else if len(entry.Enclosures) > 0 {
			item.ImageURL = entry.Enclosures[0].URL
		}
		if item.Link != "" {
			item.ExternalKey = item.Link
		} else {
			item.ExternalKey = item.Name
		}
		items = append(items, item)
	}

	return items, nil
}
