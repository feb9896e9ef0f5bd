package telegram

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/m3rciful/juliabot/core/logger"
	"github.com/m3rciful/juliabot/core/telegram/netutil"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultTLSHandshake      = 5 * time.Second
	defaultIdleConnTimeout   = 30 * time.Second
	defaultClientTimeout     = 75 * time.Second
	defaultKeepAliveInterval = 30 * time.Second
	defaultRetryAttempts     = 3
	defaultRetryBackoff      = 2 * time.Second
)

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// ErrCircuitOpen is returned while the Bot API breaker rejects outbound calls.
var ErrCircuitOpen = netutil.ErrCircuitOpen

// BuildHTTPClient returns an HTTP client tuned for Telegram API calls.
// The client timeout exceeds the long-poll timeout so getUpdates is not cut short.
func BuildHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ExpectContinueTimeout: 1 * time.Second,
	}

	retry := &retryTransport{
		base:       transport,
		maxRetries: defaultRetryAttempts,
		backoff:    defaultRetryBackoff,
		breaker:    newBreaker(),
	}

	return &http.Client{
		Timeout:   defaultClientTimeout,
		Transport: retry,
	}
}

func newBreaker() *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "telegram-api",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 3 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.TG.Warn("circuit breaker state changed",
				slog.String("event", "tg.breaker"),
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
}

type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
	// breaker guards every method except getUpdates, whose poller retries in a tight loop.
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

func (t *retryTransport) roundTrip(base http.RoundTripper, req *http.Request) (*http.Response, error) {
	if t.breaker == nil || strings.HasSuffix(req.URL.Path, "/getUpdates") {
		return base.RoundTrip(req)
	}
	resp, err := t.breaker.Execute(func() (*http.Response, error) {
		return base.RoundTrip(req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	return resp, err
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	attempts := t.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		currReq := req
		if attempt > 1 {
			currReq = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				currReq.Body = body
			} else if req.Body != nil && req.Body != http.NoBody {
				return nil, lastErr
			}
		}

		start := time.Now()
		resp, err := t.roundTrip(base, currReq)
		logAccess(req, resp, err, attempt, time.Since(start))
		if err == nil && (!netutil.RetryableStatus(resp.StatusCode) || attempt == attempts) {
			return resp, nil
		}
		if err == nil {
			if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
				return resp, nil
			}
			lastErr = fmt.Errorf("telegram: bot api answered %d", resp.StatusCode)
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		} else {
			lastErr = err
			if !netutil.ShouldRetry(req.Context(), err) || attempt == attempts {
				break
			}
		}

		delay := netutil.Backoff(t.backoff, attempt)
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}

// CloseIdleConnections lets http.Client.CloseIdleConnections reach the base transport.
func (t *retryTransport) CloseIdleConnections() {
	type closeIdler interface{ CloseIdleConnections() }
	if ci, ok := t.base.(closeIdler); ok {
		ci.CloseIdleConnections()
	}
}

func logAccess(req *http.Request, resp *http.Response, err error, attempt int, took time.Duration) {
	attrs := []slog.Attr{
		slog.String("event", "http.request"),
		slog.String("method", req.Method),
		slog.String("url", redactToken(req.URL.Path)),
		slog.Int("attempts", attempt),
		slog.Duration("duration", logger.RoundMS(took)),
	}
	if resp != nil {
		attrs = append(attrs, slog.Int("http_code", resp.StatusCode))
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", redactToken(err.Error())))
	}
	logger.HTTPAccess.LogAttrs(req.Context(), slog.LevelDebug, "bot api request", attrs...)
}

func redactToken(s string) string {
	return tokenRe.ReplaceAllString(s, "bot<redacted>")
}
