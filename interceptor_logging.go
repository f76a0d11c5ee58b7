package fins

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// LoggingInterceptor creates an interceptor that logs all operations.
// Rejected operations log at error level, failed sends at warn.
//
// Example:
//
//	logger, _ := zap.NewProduction()
//	client.SetInterceptor(fins.LoggingInterceptor(logger))
//
// Output:
//
//	INFO	FINS	starting	{"operation": "Read", "address": "D00100", "count": 5}
//	INFO	FINS	sent	{"operation": "Read", "sid": 7, "duration": "41µs"}
func LoggingInterceptor(logger *zap.Logger) Interceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Named logger keeps consistent component label.
	logger = logger.Named("FINS")

	return func(c *InterceptorCtx) (interface{}, error) {
		info := c.Info()
		start := time.Now()

		fields := []zap.Field{zap.String("operation", string(info.Operation))}
		if info.Address != "" {
			fields = append(fields, zap.String("address", info.Address))
		}
		if len(info.Addresses) > 0 {
			fields = append(fields, zap.String("addresses", strings.Join(info.Addresses, ",")))
		}
		if info.Count > 0 {
			fields = append(fields, zap.Uint16("count", info.Count))
		}
		if len(info.Data) > 0 {
			fields = append(fields, zap.Int("values", len(info.Data)))
		}
		logger.Info("starting", fields...)

		result, err := c.Invoke(nil)

		duration := time.Since(start)
		switch {
		case IsSendError(err):
			// the client reports it again as an error event
			logger.Warn("send failed",
				zap.String("operation", string(info.Operation)),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		case err != nil:
			logger.Error("failed",
				zap.String("operation", string(info.Operation)),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		default:
			done := []zap.Field{
				zap.String("operation", string(info.Operation)),
				zap.Duration("duration", duration),
			}
			if f, ok := result.(Frame); ok {
				done = append(done, zap.Uint8("sid", f.SID))
			}
			logger.Info("sent", done...)
		}

		return result, err
	}
}
