package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestFetcher_SetsUserAgent(t *testing.T) {
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	markup, err := f.Fetch(context.Background(), srv.URL, "test-agent/1.0", "")
	require.NoError(t, err)
	assert.Equal(t, "test-agent/1.0", gotAgent)
	assert.Equal(t, "<html></html>", markup)
}

func TestFetcher_ClassifiesHTTPErrors(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusNotFound, false},
		{http.StatusForbidden, false},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		f := NewFetcher(5 * time.Second)
		_, err := f.Fetch(context.Background(), srv.URL, "agent", "")
		srv.Close()

		var fetchErr *FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, KindHTTP, fetchErr.Kind)
		assert.Equal(t, tt.status, fetchErr.Status)
		assert.Equal(t, tt.retryable, fetchErr.Retryable())
	}
}

func TestFetcher_ConnectionFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	f := NewFetcher(time.Second)
	_, err := f.Fetch(context.Background(), srv.URL, "agent", "")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindNetwork, fetchErr.Kind)
	assert.True(t, fetchErr.Retryable())
}

func TestFetcher_DecodesDeclaredEncoding(t *testing.T) {
	// "Attaché" with an ISO-8859-1 encoded é.
	encoded, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte("Attaché"))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(encoded)
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	markup, err := f.Fetch(context.Background(), srv.URL, "agent", "iso-8859-1")
	require.NoError(t, err)
	assert.Equal(t, "Attaché", markup)
}

func TestFetcher_UnknownEncodingIsDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("body"))
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	_, err := f.Fetch(context.Background(), srv.URL, "agent", "no-such-charset")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindDecode, fetchErr.Kind)
	assert.False(t, fetchErr.Retryable())
}
