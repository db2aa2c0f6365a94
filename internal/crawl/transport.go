package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-scraper/internal/metrics"
)

const allowAllPolicy = "User-agent: *\nAllow: /"

var robotsBackoff = []time.Duration{
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
}

// robotsTransport is the round tripper handed to colly. Page requests pass
// straight through. A robots.txt probe that times out is retried once per
// backoff step; if the last attempt also times out the probe is answered with
// an allow-all policy.
type robotsTransport struct {
	next    http.RoundTripper
	backoff []time.Duration
	logger  *zap.Logger
}

func newRobotsTransport(logger *zap.Logger) *robotsTransport {
	return &robotsTransport{
		next:    newHTTPTransport(),
		backoff: robotsBackoff,
		logger:  logger,
	}
}

func (t *robotsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil || req.URL == nil {
		return nil, errors.New("round trip: request has no url")
	}
	if !strings.EqualFold(req.URL.Path, "/robots.txt") {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", req.URL, err)
		}
		return resp, nil
	}

	var lastErr error
	for attempt := 0; attempt <= len(t.backoff); attempt++ {
		if attempt > 0 {
			if err := wait(req.Context(), t.backoff[attempt-1]); err != nil {
				return nil, fmt.Errorf("robots.txt backoff: %w", err)
			}
		}
		resp, err := t.next.RoundTrip(req.Clone(req.Context()))
		if err == nil {
			return resp, nil
		}
		if !timedOut(err) {
			return nil, fmt.Errorf("fetch robots.txt (non-transient): %w", err)
		}
		lastErr = err
	}

	metrics.ObserveRobotsFallback()
	t.log().Warn("robots.txt unreachable, assuming allow-all",
		zap.String("host", req.URL.Host),
		zap.Int("attempts", len(t.backoff)+1),
		zap.Error(lastErr),
	)
	return &http.Response{
		StatusCode:    http.StatusOK,
		Status:        "200 OK",
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Body:          io.NopCloser(strings.NewReader(allowAllPolicy)),
		ContentLength: int64(len(allowAllPolicy)),
		Header:        http.Header{"Content-Type": []string{"text/plain"}},
		Request:       req,
	}, nil
}

func (t *robotsTransport) log() *zap.Logger {
	if t.logger == nil {
		return zap.NewNop()
	}
	return t.logger
}

// wait blocks for d or until ctx ends.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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

func timedOut(err error) bool {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.As(err, &netErr) && netErr.Timeout():
		return true
	default:
		return strings.Contains(err.Error(), "handshake timeout")
	}
}

func newHTTPTransport() *http.Transport {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: time.Second,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
	}
}
