package fins

import "context"

// Event subscription.
type ClientEvents interface {
	On(t EventType, h Handler)
	Done() <-chan struct{}
}

// Interceptor/plugin hooks.
type ClientHooks interface {
	SetInterceptor(interceptor Interceptor)
	Use(plugins ...Plugin) error
}

// Lifecycle controls.
type ClientLifecycle interface {
	Open() error
	IsClosed() bool
	Close() error
}

// Read operations. Each returns the SID of the request; the data arrives
// with the matching reply event.
type ClientReader interface {
	Read(ctx context.Context, address string, count uint16) (byte, error)
	ReadMultiple(ctx context.Context, addresses ...string) (byte, error)
	Status(ctx context.Context) (byte, error)
}

// Write operations.
type ClientWriter interface {
	Write(ctx context.Context, address string, values ...uint16) (byte, error)
	Fill(ctx context.Context, address string, value uint16, count uint16) (byte, error)
	Transfer(ctx context.Context, src, dst string, count uint16) (byte, error)
}

// Run mode control.
type ClientController interface {
	Run(ctx context.Context) (byte, error)
	Stop(ctx context.Context) (byte, error)
}

// FINSClient defines the public contract of Client for easier testing/mocking.
type FINSClient interface {
	ClientEvents
	ClientHooks
	ClientLifecycle
	ClientReader
	ClientWriter
	ClientController
}

// Ensure Client implements the interface.
var _ FINSClient = (*Client)(nil)
