package fins

import "context"

// OperationType represents the type of FINS operation
type OperationType string

const (
	OpRead         OperationType = "Read"
	OpWrite        OperationType = "Write"
	OpFill         OperationType = "Fill"
	OpTransfer     OperationType = "Transfer"
	OpReadMultiple OperationType = "ReadMultiple"
	OpRun          OperationType = "Run"
	OpStop         OperationType = "Stop"
	OpStatus       OperationType = "Status"
)

// InterceptorInfo contains information about the operation being performed
type InterceptorInfo struct {
	Operation OperationType
	Address   string   // target address; source for Transfer
	Addresses []string // ReadMultiple addresses, Transfer destination
	Count     uint16   // Read, Fill and Transfer element count
	Data      []uint16 // Write values, Fill value
}

// Invoker is a function that executes the actual operation. On success the
// result is the Frame that was sent.
type Invoker func(ctx context.Context) (interface{}, error)

// InterceptorCtx is handed to an Interceptor.
type InterceptorCtx struct {
	ctx     context.Context
	info    *InterceptorInfo
	invoker Invoker
}

// Context returns the operation context.
func (c *InterceptorCtx) Context() context.Context {
	return c.ctx
}

// Info describes the operation.
func (c *InterceptorCtx) Info() *InterceptorInfo {
	return c.info
}

// Invoke runs the next interceptor or the operation itself. A nil ctx
// reuses the operation context.
func (c *InterceptorCtx) Invoke(ctx context.Context) (interface{}, error) {
	if ctx == nil {
		ctx = c.ctx
	}
	return c.invoker(ctx)
}

// Interceptor is a function that can intercept and wrap FINS operations.
// It can log the operation, measure timing, add tracing, validate or
// short-circuit it by returning without calling Invoke.
//
// Example:
//
//	func loggingInterceptor(c *fins.InterceptorCtx) (interface{}, error) {
//	    start := time.Now()
//	    log.Printf("Starting %s at %s", c.Info().Operation, c.Info().Address)
//
//	    result, err := c.Invoke(nil)
//
//	    log.Printf("Finished %s in %v, err: %v", c.Info().Operation, time.Since(start), err)
//	    return result, err
//	}
type Interceptor func(c *InterceptorCtx) (interface{}, error)

// ChainInterceptors chains multiple interceptors into a single interceptor
// Interceptors are executed in order: first interceptor wraps second, second wraps third, etc.
func ChainInterceptors(interceptors ...Interceptor) Interceptor {
	var chain []Interceptor
	for _, i := range interceptors {
		if i != nil {
			chain = append(chain, i)
		}
	}
	if len(chain) == 0 {
		return nil
	}

	if len(chain) == 1 {
		return chain[0]
	}

	return func(c *InterceptorCtx) (interface{}, error) {
		return chain[0](&InterceptorCtx{
			ctx:  c.ctx,
			info: c.info,
			invoker: func(ctx context.Context) (interface{}, error) {
				return ChainInterceptors(chain[1:]...)(&InterceptorCtx{ctx: ctx, info: c.info, invoker: c.invoker})
			},
		})
	}
}
