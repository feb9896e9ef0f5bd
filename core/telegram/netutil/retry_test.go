package netutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	ctx := context.Background()

	assert.False(t, ShouldRetry(ctx, nil))
	assert.False(t, ShouldRetry(ctx, errors.New("bad request")))
	assert.True(t, ShouldRetry(ctx, timeoutErr{}))
	assert.True(t, ShouldRetry(ctx, &net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.True(t, ShouldRetry(ctx, &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: timeoutErr{}}))
	assert.True(t, ShouldRetry(ctx, &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: io.ErrUnexpectedEOF}))
	assert.True(t, ShouldRetry(ctx, &net.OpError{Op: "read", Err: syscall.ECONNRESET}))
}

func TestShouldRetryStopsOnBreakerAndCancel(t *testing.T) {
	ctx := context.Background()
	assert.False(t, ShouldRetry(ctx, fmt.Errorf("%w: open", ErrCircuitOpen)))
	assert.False(t, ShouldRetry(ctx, &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: context.Canceled}))

	done, cancel := context.WithCancel(ctx)
	cancel()
	assert.False(t, ShouldRetry(done, timeoutErr{}))
}

func TestRetryableStatus(t *testing.T) {
	assert.True(t, RetryableStatus(http.StatusBadGateway))
	assert.True(t, RetryableStatus(http.StatusGatewayTimeout))
	assert.False(t, RetryableStatus(http.StatusTooManyRequests))
	assert.False(t, RetryableStatus(http.StatusOK))
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Duration(0), Backoff(0, 3))
	assert.Equal(t, 4*time.Second, Backoff(2*time.Second, 2))
	assert.Equal(t, maxBackoff, Backoff(time.Minute, 1))
}
