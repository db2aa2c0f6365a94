package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type roundTripResult struct {
	resp *http.Response
	err  error
}

type stubRoundTripper struct {
	results []roundTripResult
	calls   int
}

func (s *stubRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	idx := s.calls
	s.calls++
	if idx >= len(s.results) {
		return nil, errors.New("unexpected call")
	}
	return s.results[idx].resp, s.results[idx].err
}

func okResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func noBackoff() []time.Duration {
	return []time.Duration{0, 0, 0}
}

func TestRobotsRetryFallsBackToAllowAll(t *testing.T) {
	t.Parallel()

	base := &stubRoundTripper{results: []roundTripResult{
		{err: context.DeadlineExceeded},
		{err: context.DeadlineExceeded},
		{err: context.DeadlineExceeded},
		{err: context.DeadlineExceeded},
	}}
	transport := &robotsTransport{next: base, backoff: noBackoff()}

	resp, err := transport.RoundTrip(httptest.NewRequest(http.MethodGet, "https://books.toscrape.com/robots.txt", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, allowAllPolicy, string(body))
	require.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	require.Equal(t, 4, base.calls)
}

func TestRobotsRetryRecovers(t *testing.T) {
	t.Parallel()

	base := &stubRoundTripper{results: []roundTripResult{
		{err: errors.New("tls: handshake timeout")},
		{resp: okResponse("User-agent: *\nDisallow: /admin")},
	}}
	transport := &robotsTransport{next: base, backoff: noBackoff()}

	resp, err := transport.RoundTrip(httptest.NewRequest(http.MethodGet, "https://books.toscrape.com/robots.txt", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 2, base.calls)
}

func TestRobotsNonTransientErrorFails(t *testing.T) {
	t.Parallel()

	base := &stubRoundTripper{results: []roundTripResult{{err: errors.New("connection refused")}}}
	transport := &robotsTransport{next: base, backoff: noBackoff()}

	_, err := transport.RoundTrip(httptest.NewRequest(http.MethodGet, "https://books.toscrape.com/robots.txt", nil))
	require.ErrorContains(t, err, "non-transient")
	require.Equal(t, 1, base.calls)
}

func TestPageRequestsAreNotRetried(t *testing.T) {
	t.Parallel()

	base := &stubRoundTripper{results: []roundTripResult{{err: context.DeadlineExceeded}}}
	transport := &robotsTransport{next: base, backoff: noBackoff()}

	_, err := transport.RoundTrip(httptest.NewRequest(http.MethodGet, "https://books.toscrape.com/index.html", nil))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, base.calls)

	_, err = transport.RoundTrip(nil)
	require.Error(t, err)
}

func TestWait(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, wait(ctx, time.Hour), context.Canceled)
	require.ErrorIs(t, wait(ctx, 0), context.Canceled)
	require.NoError(t, wait(context.Background(), 0))
}

func TestTimedOut(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("dial: %w", context.DeadlineExceeded), true},
		{"tls", errors.New("net/http: TLS handshake timeout"), true},
		{"refused", errors.New("connection refused"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, timedOut(tc.err))
		})
	}
}
