package fins

import (
	"net"
	"time"

	"go.uber.org/zap"
)

type clientOptions struct {
	port          int
	timeout       time.Duration
	header        Header
	local         *net.UDPAddr
	logger        *zap.Logger
	socketFactory SocketFactory
	legacyArea    bool
	rearmOnSend   bool
	interceptors  []Interceptor
}

func defaultClientOptions() clientOptions {
	return clientOptions{
		port:          DEFAULT_PORT,
		timeout:       DEFAULT_TIMEOUT,
		header:        DefaultHeader(),
		logger:        zap.NewNop(),
		socketFactory: NewUDPSocket,
	}
}

// Option configures a Client.
type Option func(*clientOptions)

// WithPort sets the controller's UDP port. Default 9600.
func WithPort(port int) Option {
	return func(o *clientOptions) {
		if port > 0 {
			o.port = port
		}
	}
}

// WithTimeout sets the liveness window. Default 2000ms, 0 disables it.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		if d >= 0 {
			o.timeout = d
		}
	}
}

// WithHeader replaces the default header. Its SID seeds the sequence.
func WithHeader(h Header) Option {
	return func(o *clientOptions) {
		o.header = h
	}
}

// WithDestination sets the DNA/DA1/DA2 fields of the header.
func WithDestination(a FinsAddress) Option {
	return func(o *clientOptions) {
		o.header.Dst = a
	}
}

// WithSource sets the SNA/SA1/SA2 fields of the header.
func WithSource(a FinsAddress) Option {
	return func(o *clientOptions) {
		o.header.Src = a
	}
}

// WithLocalAddr binds the client socket to addr.
func WithLocalAddr(addr *net.UDPAddr) Option {
	return func(o *clientOptions) {
		o.local = addr
	}
}

// WithLogger sets the logger. Default zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *clientOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSocketFactory replaces the UDP socket, mostly for tests.
func WithSocketFactory(f SocketFactory) Option {
	return func(o *clientOptions) {
		if f != nil {
			o.socketFactory = f
		}
	}
}

// WithLegacyAreaFallback sends unknown area letters as Data memory words
// instead of rejecting the operation.
func WithLegacyAreaFallback(enabled bool) Option {
	return func(o *clientOptions) {
		o.legacyArea = enabled
	}
}

// WithRearmOnSend restarts the liveness window on every request, turning the
// single client-lifetime check into a per-request one.
func WithRearmOnSend(enabled bool) Option {
	return func(o *clientOptions) {
		o.rearmOnSend = enabled
	}
}

// WithInterceptors chains interceptors around every operation.
func WithInterceptors(interceptors ...Interceptor) Option {
	return func(o *clientOptions) {
		o.interceptors = append(o.interceptors, interceptors...)
	}
}
