package httputil

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// RetryableError wraps an error to indicate it should trigger a retry.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Policy bounds the attempts of [Retry]. The delay doubles after each
// failed attempt.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultPolicy makes three attempts starting with a 250ms delay.
var DefaultPolicy = Policy{Attempts: 3, Delay: 250 * time.Millisecond}

// NoRetry makes a single attempt.
var NoRetry = Policy{Attempts: 1}

// Retry executes fn up to p.Attempts times. It only retries errors wrapped
// with [RetryableError]; other errors are returned immediately. The last
// error is returned unwrapped if all attempts fail, or ctx.Err() if the
// context ends while waiting.
func Retry(ctx context.Context, p Policy, fn func() error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay
	var lastErr error

	for i := range attempts {
		err := fn()
		if err == nil {
			return nil
		}
		var re *RetryableError
		if !errors.As(err, &re) {
			return err
		}
		lastErr = re.Err

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

// RetryableStatus reports whether a response status is worth retrying.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
