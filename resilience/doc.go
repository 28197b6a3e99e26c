// Package resilience provides the fault-tolerance primitives behind the
// HTTP client.
//
//   - CircuitBreaker: fails fast while a service keeps failing. Outcomes are
//     classified against the application error codes, so cancellations and
//     caller mistakes never trip it.
//   - Retry: re-sends idempotent buffered requests with exponential backoff
//     and honours AppError.Retryable.
//   - Bulkhead: caps concurrent streaming transfers and hands out releasable
//     slots.
//   - RateLimiter: token bucket in front of every request, reporting how long
//     each request waited.
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("api"))
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 100, Burst: 20})
//
//	resp, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() (*Response, error) {
//	    if _, err := rl.Wait(ctx); err != nil {
//	        return nil, err
//	    }
//	    var resp *Response
//	    err := cb.Execute(func() error {
//	        var err error
//	        resp, err = send(ctx)
//	        return err
//	    })
//	    return resp, err
//	})
package resilience
