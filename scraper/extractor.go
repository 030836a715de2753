package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"storewatch/config"
)

// RawItem holds the fields extracted for one item container before the
// walker attaches store identity and observation time.
type RawItem struct {
	Name     string
	Link     string
	ImageURL string
	Prices   map[string]float64
	SoldOut  bool
}

// Extract resolves the store's selector set against one page of markup and
// returns the items found plus the next-page URL, or "" when pagination
// ends here.
//
// Individual malformed containers are skipped, never fatal: a container
// without a resolvable name has no usable identity and is dropped, an
// unparseable price is omitted from that item's price map. Only a
// container selector that matches nothing across the entire page is an
// error, since that usually means the site layout changed.
func Extract(markup, pageURL string, opts config.Options) ([]RawItem, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, "", err
	}

	containers := doc.Find(opts.ItemContainerSelector)
	if containers.Length() == 0 {
		return nil, "", &SelectorError{URL: pageURL, Selector: opts.ItemContainerSelector}
	}

	var items []RawItem
	containers.Each(func(_ int, sel *goquery.Selection) {
		item, ok := extractItem(sel, opts)
		if ok {
			items = append(items, item)
		}
	})

	return items, nextPageURL(doc, opts), nil
}

func extractItem(sel *goquery.Selection, opts config.Options) (RawItem, bool) {
	name := strings.TrimSpace(sel.Find(opts.ItemNameSelector).First().Text())
	if name == "" {
		return RawItem{}, false
	}

	item := RawItem{
		Name:   name,
		Prices: make(map[string]float64),
	}

	if link, ok := sel.Find(opts.ItemLinkSelector).First().Attr("href"); ok {
		item.Link = absoluteURL(opts.SiteMainURL, link)
	}
	if opts.ItemImageSelector != "" {
		if src, ok := sel.Find(opts.ItemImageSelector).First().Attr("src"); ok {
			item.ImageURL = absoluteURL(opts.SiteMainURL, src)
		}
	}

	for _, ps := range opts.ItemPriceSelectors {
		text := sel.Find(ps.Selector).First().Text()
		if amount, ok := ParsePrice(text, ps.Currency); ok {
			item.Prices[ps.Currency] = amount
		}
	}

	if opts.SoldOutSelector != "" {
		item.SoldOut = sel.Find(opts.SoldOutSelector).Length() > 0
	}

	return item, true
}

// nextPageURL resolves the pagination target. Candidates match the
// next-page selector; when next_page_selector_text is set, only candidates
// with that exact trimmed text qualify. The last qualifying candidate wins
// (sites commonly render the next link both above and below the listing).
func nextPageURL(doc *goquery.Document, opts config.Options) string {
	if opts.NextPageSelector == "" {
		return ""
	}

	attribute := opts.NextPageAttribute
	if attribute == "" {
		attribute = "href"
	}

	var target string
	doc.Find(opts.NextPageSelector).Each(func(_ int, sel *goquery.Selection) {
		if opts.NextPageSelectorText != "" &&
			strings.TrimSpace(sel.Text()) != opts.NextPageSelectorText {
			return
		}
		if value, ok := sel.Attr(attribute); ok && value != "" {
			target = value
		}
	})

	if target == "" {
		return ""
	}
	return absoluteURL(opts.SiteMainURL, target)
}

// absoluteURL resolves ref against base, returning ref unchanged when it is
// already absolute or when either URL fails to parse.
func absoluteURL(base, ref string) string {
	refURL, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	if refURL.IsAbs() {
		return refURL.String()
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
