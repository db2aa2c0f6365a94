package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://books.toscrape.com/path", "books.toscrape.com"},
		{"standard https", "https://Books.ToScrape.com/path", "books.toscrape.com"},
		{"no scheme", "books.toscrape.com/path", "books.toscrape.com"},
		{"host with port", "localhost:8080", "localhost"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, SanitizeSite(tc.input))
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	first := scraperRecordsTotal
	Init()
	require.NotNil(t, first)
	require.Same(t, first, scraperRecordsTotal)
}

func TestObservers(t *testing.T) {
	Init()

	pages := testutil.ToFloat64(scraperPagesTotal.WithLabelValues("detail"))
	ObservePage("detail")
	require.InDelta(t, pages+1, testutil.ToFloat64(scraperPagesTotal.WithLabelValues("detail")), 0)

	accepted := testutil.ToFloat64(scraperRecordsTotal.WithLabelValues("ProductItem", OutcomeAccepted))
	ObserveRecord("ProductItem", OutcomeAccepted)
	require.InDelta(t, accepted+1, testutil.ToFloat64(scraperRecordsTotal.WithLabelValues("ProductItem", OutcomeAccepted)), 0)

	isbn := testutil.ToFloat64(scraperRejectionsTotal.WithLabelValues("isbn"))
	tax := testutil.ToFloat64(scraperRejectionsTotal.WithLabelValues("tax"))
	ObserveRejection([]string{"isbn", "tax"})
	require.InDelta(t, isbn+1, testutil.ToFloat64(scraperRejectionsTotal.WithLabelValues("isbn")), 0)
	require.InDelta(t, tax+1, testutil.ToFloat64(scraperRejectionsTotal.WithLabelValues("tax")), 0)

	ok := testutil.ToFloat64(scraperSinkWritesTotal.WithLabelValues("jsonl", StatusOK))
	failed := testutil.ToFloat64(scraperSinkWritesTotal.WithLabelValues("jsonl", StatusError))
	ObserveSinkWrite("jsonl", nil)
	ObserveSinkWrite("jsonl", errors.New("disk full"))
	require.InDelta(t, ok+1, testutil.ToFloat64(scraperSinkWritesTotal.WithLabelValues("jsonl", StatusOK)), 0)
	require.InDelta(t, failed+1, testutil.ToFloat64(scraperSinkWritesTotal.WithLabelValues("jsonl", StatusError)), 0)

	fetches := testutil.ToFloat64(scraperFetchesTotal.WithLabelValues("books.toscrape.com", "200"))
	bytes := testutil.ToFloat64(scraperFetchBytesTotal.WithLabelValues("books.toscrape.com"))
	ObserveFetch("https://books.toscrape.com/index.html", 200, 512)
	require.InDelta(t, fetches+1, testutil.ToFloat64(scraperFetchesTotal.WithLabelValues("books.toscrape.com", "200")), 0)
	require.InDelta(t, bytes+512, testutil.ToFloat64(scraperFetchBytesTotal.WithLabelValues("books.toscrape.com")), 0)
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://books.toscrape.com", "https://example.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeSite(orig) == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
