// Package httputil provides the retry policy used by the SpecSync API client.
//
// Only idempotent reads are retried. Writes, and in particular committed
// marker positions, are sent exactly once: a failed commit is rolled back by
// the placement controller rather than replayed.
//
// Wrap transient failures (network errors, 429 and 502-504 responses) in
// [RetryableError] so that [Retry] attempts them again:
//
//	err := httputil.Retry(ctx, httputil.DefaultPolicy, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    defer resp.Body.Close()
//	    if httputil.RetryableStatus(resp.StatusCode) {
//	        return &httputil.RetryableError{Err: fmt.Errorf("status %d", resp.StatusCode)}
//	    }
//	    return decode(resp)
//	})
package httputil
