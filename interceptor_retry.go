package fins

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetryInterceptor creates an interceptor that retries requests the socket
// failed to send. It will retry up to maxRetries times with the specified
// delay between attempts. Each attempt uses a fresh SID. Context errors
// (Canceled, DeadlineExceeded) and errors raised before sending, such as a
// bad address, are not retried.
//
// Example:
//
//	// Retry up to 3 times with 100ms delay
//	client.SetInterceptor(fins.RetryInterceptor(3, 100*time.Millisecond))
func RetryInterceptor(maxRetries int, delay time.Duration) Interceptor {
	return retry(maxRetries, delay, delay, IsSendError)
}

// RetryInterceptorWithBackoff creates a retry interceptor with exponential backoff
// The delay is doubled after each retry, up to a maximum delay.
//
// Example:
//
//	// Retry with exponential backoff: 100ms, 200ms, 400ms, max 1s
//	client.SetInterceptor(fins.RetryInterceptorWithBackoff(3, 100*time.Millisecond, 1*time.Second))
func RetryInterceptorWithBackoff(maxRetries int, initialDelay, maxDelay time.Duration) Interceptor {
	return retry(maxRetries, initialDelay, maxDelay, IsSendError)
}

// RetryInterceptorConditional creates a retry interceptor that only retries certain errors
// The shouldRetry function determines whether an error should be retried.
//
// Example:
//
//	shouldRetry := func(err error) bool {
//		return errors.Is(err, syscall.ECONNREFUSED)
//	}
//	client.SetInterceptor(fins.RetryInterceptorConditional(3, 100*time.Millisecond, shouldRetry))
func RetryInterceptorConditional(maxRetries int, delay time.Duration, shouldRetry func(error) bool) Interceptor {
	return retry(maxRetries, delay, delay, shouldRetry)
}

// IsSendError reports whether err is a socket send failure.
func IsSendError(err error) bool {
	var sendErr *SendError
	return errors.As(err, &sendErr)
}

func retry(maxRetries int, delay, maxDelay time.Duration, shouldRetry func(error) bool) Interceptor {
	return func(c *InterceptorCtx) (interface{}, error) {
		var result interface{}
		var err error
		ctx := c.Context()
		info := c.Info()
		wait := delay

		for attempt := 0; attempt <= maxRetries; attempt++ {
			result, err = c.Invoke(ctx)
			if err == nil {
				return result, nil
			}

			// Don't retry on context errors
			if ctx.Err() != nil {
				return nil, err
			}
			if shouldRetry != nil && !shouldRetry(err) {
				return result, err
			}

			// Don't retry on last attempt
			if attempt < maxRetries {
				zap.L().Named("FINS").Warn("retrying",
					zap.String("operation", string(info.Operation)),
					zap.Int("attempt", attempt+1),
					zap.Int("attempts", maxRetries+1),
					zap.Duration("delay", wait),
					zap.Error(err),
				)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(wait):
				}

				wait *= 2
				if wait > maxDelay {
					wait = maxDelay
				}
			}
		}

		return result, fmt.Errorf("operation failed after %d attempts: %w", maxRetries+1, err)
	}
}
