// Package netutil holds the retry policy for outbound Bot API calls.
package netutil

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

// ErrCircuitOpen marks a call rejected by the Bot API breaker without touching the network.
var ErrCircuitOpen = errors.New("telegram: circuit breaker open")

// maxBackoff caps the delay between attempts.
const maxBackoff = 30 * time.Second

// ShouldRetry reports whether a failed Bot API round trip may be repeated.
// Nothing is retried once ctx is done or the breaker has opened.
func ShouldRetry(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCircuitOpen) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// RetryableStatus reports whether the Bot API answered with a transient gateway error.
// 429 is left to the caller since Telegram sends retry_after in the body.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Backoff returns the linear delay before the given attempt, starting at 1.
func Backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 || attempt < 1 {
		return 0
	}
	d := base * time.Duration(attempt)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
