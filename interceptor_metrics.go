package fins

import (
	"sync"
	"time"
)

// MetricsCollector collects operation metrics including counts, errors, and
// durations, plus reply and timeout counts when its Handler is registered
// for client events. It is safe for concurrent use.
//
// Example:
//
//	metrics := fins.NewMetricsCollector()
//	client.SetInterceptor(metrics.Interceptor())
//	client.On(fins.EventReply, metrics.Handler())
//	client.On(fins.EventTimeout, metrics.Handler())
//
//	// Perform operations...
//	client.Read(ctx, "D00100", 5)
//
//	// Get statistics
//	count, errors, avgDuration := metrics.GetStats(fins.OpRead)
//	log.Printf("Read: %d sent, %d failed, avg: %v", count, errors, avgDuration)
//
// Durations cover building and sending the request only; replies arrive as
// events and are counted by response code.
type MetricsCollector struct {
	mu             sync.RWMutex
	OperationCount map[OperationType]int64
	ErrorCount     map[OperationType]int64
	TotalDuration  map[OperationType]time.Duration
	ReplyCount     map[string]int64 // by response code
	Timeouts       int64
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	m := &MetricsCollector{}
	m.Reset()
	return m
}

// Interceptor returns an interceptor that collects metrics
func (m *MetricsCollector) Interceptor() Interceptor {
	return func(c *InterceptorCtx) (interface{}, error) {
		start := time.Now()

		result, err := c.Invoke(nil)

		duration := time.Since(start)

		m.mu.Lock()
		op := c.Info().Operation
		m.OperationCount[op]++
		m.TotalDuration[op] += duration
		if err != nil {
			m.ErrorCount[op]++
		}
		m.mu.Unlock()

		return result, err
	}
}

// Handler returns an event handler counting replies and timeouts.
func (m *MetricsCollector) Handler() Handler {
	return func(e Event) {
		m.mu.Lock()
		defer m.mu.Unlock()
		switch e.Type {
		case EventReply:
			if e.Reply != nil {
				m.ReplyCount[e.Reply.ResponseCode]++
			}
		case EventTimeout:
			m.Timeouts++
		}
	}
}

// GetStats returns statistics for a specific operation
// Returns: count, errors, avgDuration
func (m *MetricsCollector) GetStats(op OperationType) (count int64, errors int64, avgDuration time.Duration) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count = m.OperationCount[op]
	errors = m.ErrorCount[op]
	if count > 0 {
		avgDuration = m.TotalDuration[op] / time.Duration(count)
	}
	return
}

// Replies returns how many replies carried the given response code.
func (m *MetricsCollector) Replies(code string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ReplyCount[code]
}

// Reset clears all collected metrics
func (m *MetricsCollector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.OperationCount = make(map[OperationType]int64)
	m.ErrorCount = make(map[OperationType]int64)
	m.TotalDuration = make(map[OperationType]time.Duration)
	m.ReplyCount = make(map[string]int64)
	m.Timeouts = 0
}

// OperationStats is one row of GetAllStats.
type OperationStats struct {
	Count       int64
	Errors      int64
	AvgDuration time.Duration
}

// GetAllStats returns statistics for all operations
func (m *MetricsCollector) GetAllStats() map[OperationType]OperationStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[OperationType]OperationStats, len(m.OperationCount))
	for op, count := range m.OperationCount {
		var avgDuration time.Duration
		if count > 0 {
			avgDuration = m.TotalDuration[op] / time.Duration(count)
		}
		stats[op] = OperationStats{
			Count:       count,
			Errors:      m.ErrorCount[op],
			AvgDuration: avgDuration,
		}
	}
	return stats
}
