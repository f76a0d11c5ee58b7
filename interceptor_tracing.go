package fins

import (
	"fmt"

	"go.uber.org/zap"
)

// TracingInterceptor creates an interceptor that extracts and logs trace IDs from context
// The trace ID is extracted from the context using the provided key and
// logged through the global zap logger.
//
// Example:
//
//	client.SetInterceptor(fins.TracingInterceptor(traceKey{}))
//
//	// Use with context
//	ctx := context.WithValue(context.Background(), traceKey{}, "trace-12345")
//	client.Read(ctx, "D00100", 5)
//	// Output: DEBUG FINS trace {"trace_id": "trace-12345", "operation": "Read", "address": "D00100"}
func TracingInterceptor(traceIDKey interface{}) Interceptor {
	return TracingInterceptorWithLogger(traceIDKey, nil)
}

// TracingInterceptorWithLogger creates a tracing interceptor with a custom logger
func TracingInterceptorWithLogger(traceIDKey interface{}, logger *zap.Logger) Interceptor {
	return func(c *InterceptorCtx) (interface{}, error) {
		traceID := c.Context().Value(traceIDKey)
		if traceID == nil {
			return c.Invoke(nil)
		}

		l := logger
		if l == nil {
			l = zap.L()
		}
		info := c.Info()
		l.Named("FINS").Debug("trace",
			zap.String("trace_id", fmt.Sprint(traceID)),
			zap.String("operation", string(info.Operation)),
			zap.String("address", info.Address),
		)

		result, err := c.Invoke(nil)
		if f, ok := result.(Frame); ok && err == nil {
			l.Named("FINS").Debug("trace sent",
				zap.String("trace_id", fmt.Sprint(traceID)),
				zap.Uint8("sid", f.SID),
			)
		}
		return result, err
	}
}
