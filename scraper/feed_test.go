package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storewatch/catalog"
	"storewatch/config"
)

const productFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Shop Products</title>
    <link>https://shop.example.com</link>
    <item>
      <title>Model Kit Alpha</title>
      <link>https://shop.example.com/items/alpha</link>
      <enclosure url="https://cdn.example.com/alpha.jpg" type="image/jpeg" length="1024"/>
    </item>
    <item>
      <title>Model Kit Beta</title>
    </item>
    <item>
      <link>https://shop.example.com/items/untitled</link>
    </item>
  </channel>
</rss>`

func feedStore(feedURL string) *config.StoreConfig {
	return &config.StoreConfig{
		Name:    "feedshop",
		Options: config.Options{FeedURL: feedURL},
	}
}

func TestFeedWalker_MapsEntriesToItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, productFeed)
	}))
	defer srv.Close()

	w := NewFeedWalker(5 * time.Second)
	items, err := w.Walk(context.Background(), feedStore(srv.URL))
	require.NoError(t, err)

	// The titleless entry is unusable without an identifying name and is
	// skipped, like a nameless container in a scraped listing.
	require.Len(t, items, 2)

	alpha := items[0]
	assert.Equal(t, "feedshop", alpha.StoreName)
	assert.Equal(t, "Model Kit Alpha", alpha.Name)
	assert.Equal(t, "https://shop.example.com/items/alpha", alpha.Link)
	assert.Equal(t, "https://shop.example.com/items/alpha", alpha.ExternalKey,
		"key derives from the link, as for scraped items")
	assert.Equal(t, "https://cdn.example.com/alpha.jpg", alpha.ImageURL,
		"enclosure supplies the image when no feed image is present")
	assert.Empty(t, alpha.Prices)
	assert.False(t, alpha.SoldOut)
	assert.False(t, alpha.ObservedAt.IsZero())

	beta := items[1]
	assert.Equal(t, "Model Kit Beta", beta.Name)
	assert.Equal(t, "Model Kit Beta", beta.ExternalKey,
		"linkless entries fall back to the name as key")
	assert.Empty(t, beta.ImageURL)
}

func TestFeedWalker_ItemsFlowThroughDiff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productFeed)
	}))
	defer srv.Close()

	w := NewFeedWalker(5 * time.Second)
	items, err := w.Walk(context.Background(), feedStore(srv.URL))
	require.NoError(t, err)

	// Feed items diff exactly like scraped items: new against empty state,
	// then silent against the committed snapshot.
	events, next := catalog.Diff("feedshop", items, nil)
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, catalog.NewItem, ev.Kind)
	}

	again, _ := catalog.Diff("feedshop", items, next)
	assert.Empty(t, again)
}

func TestFeedWalker_FetchFailureIsWalkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	w := NewFeedWalker(5 * time.Second)
	items, err := w.Walk(context.Background(), feedStore(srv.URL))

	var walkErr *WalkError
	require.ErrorAs(t, err, &walkErr)
	assert.Equal(t, "feedshop", walkErr.StoreName)
	assert.Nil(t, items)
}

func TestFeedWalker_MalformedFeedIsWalkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not a feed</html>")
	}))
	defer srv.Close()

	w := NewFeedWalker(5 * time.Second)
	_, err := w.Walk(context.Background(), feedStore(srv.URL))

	var walkErr *WalkError
	require.ErrorAs(t, err, &walkErr)
}
