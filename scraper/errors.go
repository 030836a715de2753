package scraper

import "fmt"

// FetchKind classifies a failed page fetch.
type FetchKind int

const (
	// KindNetwork covers connection and timeout failures. Retryable.
	KindNetwork FetchKind = iota
	// KindHTTP covers non-2xx responses. Retryable only for 5xx.
	KindHTTP
	// KindDecode means the body could not be decoded with the store's
	// declared encoding. Not retryable; it signals misconfiguration.
	KindDecode
)

func (k FetchKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindDecode:
		return "decode"
	}
	return "unknown"
}

// FetchError describes a failed fetch of a single page.
type FetchError struct {
	Kind   FetchKind
	URL    string
	Status int // set for KindHTTP
	Err    error
}

func (e *FetchError) Error() string {
	if e.Kind == KindHTTP {
		return fmt.Sprintf("%s error fetching %s: status %d", e.Kind, e.URL, e.Status)
	}
	return fmt.Sprintf("%s error fetching %s: %v", e.Kind, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether retrying the same fetch can plausibly succeed.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case KindNetwork:
		return true
	case KindHTTP:
		return e.Status >= 500
	}
	return false
}

// SelectorError means the container selector matched nothing on a page that
// was fetched successfully. Reported loudly: it almost always means the
// site layout changed, and silently returning an empty catalog every run
// would mask that.
type SelectorError struct {
	URL      string
	Selector string
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("container selector %q matched nothing at %s", e.Selector, e.URL)
}

// WalkError aborts a whole walk. Partial results are discarded, never
// committed: committing a partial catalog would manufacture spurious
// removal events on the next diff.
type WalkError struct {
	StoreName string
	Page      string
	Err       error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("walk of %s aborted at %s: %v", e.StoreName, e.Page, e.Err)
}

func (e *WalkError) Unwrap() error { return e.Err }
