package fins

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Client is a FINS/UDP client for one controller.
//
// Operations are fire-and-forget: they build a frame, hand it to the socket
// and return the SID used. Replies, send failures and the liveness timeout
// are delivered as events to handlers registered with On. Register handlers
// before Open so the open event is not missed.
//
// The liveness timer is armed once, when the socket opens. If no reply at
// all has arrived when it expires, a timeout event carrying the host is
// emitted. It is a coarse liveness check shared by every request on the
// client, not a per-request timer, unless WithRearmOnSend is set.
type Client struct {
	host   string
	remote *net.UDPAddr
	opts   clientOptions
	logger *zap.Logger

	seq     *SequenceTracker
	builder *FrameBuilder
	bus     *eventBus

	sendMu sync.Mutex // serializes SID advance, build and send

	stateMu sync.RWMutex
	socket  Socket
	opened  bool
	closed  bool
	cancel  context.CancelFunc

	timerMu   sync.Mutex
	timer     *time.Timer
	responded atomic.Bool

	interceptorMu sync.RWMutex
	interceptor   Interceptor
	plugins       pluginManager
}

// NewClient creates a client for the controller at host. A "host:port" form
// overrides the port option. The socket is not opened until Open.
func NewClient(host string, opts ...Option) (*Client, error) {
	o := defaultClientOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if host == "" {
		host = DEFAULT_HOST
	}
	port := o.port
	if h, p, err := net.SplitHostPort(host); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid port in %q: %w", host, err)
		}
		host, port = h, n
	}
	remote, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", host, err)
	}

	c := &Client{
		host:   host,
		remote: remote,
		opts:   o,
		logger: o.logger.Named("FINS").With(zap.String("host", host)),
	}
	c.seq = NewSequenceTracker(o.header.SID)
	c.builder = NewFrameBuilder(o.header, c.seq)
	c.bus = newEventBus(c.IsClosed)
	c.interceptor = ChainInterceptors(o.interceptors...)
	return c, nil
}

// Host returns the target host.
func (c *Client) Host() string { return c.host }

// RemoteAddr returns the controller's UDP address.
func (c *Client) RemoteAddr() *net.UDPAddr { return c.remote }

// Header returns the current header, SID included.
func (c *Client) Header() Header { return c.builder.Header() }

// On registers h for events of type t. Handlers for one type run in
// registration order.
func (c *Client) On(t EventType, h Handler) {
	c.bus.on(t, h)
}

// SetInterceptor installs an interceptor, chained after any already set.
func (c *Client) SetInterceptor(interceptor Interceptor) {
	c.interceptorMu.Lock()
	defer c.interceptorMu.Unlock()
	c.interceptor = ChainInterceptors(c.interceptor, interceptor)
}

// Use registers and initializes plugins in order. It stops at the first
// failure; plugins before it stay registered.
func (c *Client) Use(plugins ...Plugin) error {
	return c.plugins.use(c, plugins...)
}

// Plugin returns the registered plugin called name.
func (c *Client) Plugin(name string) (Plugin, bool) {
	return c.plugins.get(name)
}

// Plugins lists registered plugin names in registration order.
func (c *Client) Plugins() []string {
	return c.plugins.names()
}

// Open binds the socket, emits open and arms the liveness timer. A socket
// failure is emitted as an error event and returned; the client then never
// becomes open.
func (c *Client) Open() error {
	c.stateMu.Lock()
	if c.closed {
		c.stateMu.Unlock()
		return ClientClosedError{}
	}
	if c.opened {
		c.stateMu.Unlock()
		return nil
	}
	c.bus.start()

	sock, err := c.opts.socketFactory(c.opts.local)
	if err != nil {
		c.closed = true
		c.stateMu.Unlock()
		err = fmt.Errorf("open socket: %w", err)
		c.logger.Error("open failed", zap.Error(err))
		// no close event follows a failed open; the error is final
		c.bus.finish(&Event{Type: EventError, Host: c.host, Err: err})
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.socket = sock
	c.cancel = cancel
	c.opened = true
	c.stateMu.Unlock()

	c.logger.Debug("open", zap.Stringer("local", sock.LocalAddr()), zap.Stringer("remote", c.remote))
	c.bus.publish(Event{Type: EventOpen, Host: c.host})
	c.armTimer()
	go c.listenLoop(ctx, sock)
	return nil
}

// IsClosed returns true if the client has been closed
func (c *Client) IsClosed() bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.closed
}

// Done is closed once the final event has been delivered.
func (c *Client) Done() <-chan struct{} {
	return c.bus.done
}

// Close clears the liveness timer and releases the socket. After Close
// returns the only event still delivered is close; replies arriving later
// are dropped.
func (c *Client) Close() error {
	return c.shutdown(nil)
}

func (c *Client) shutdown(cause error) error {
	c.stateMu.Lock()
	if c.closed {
		c.stateMu.Unlock()
		return nil
	}
	c.closed = true
	sock := c.socket
	cancel := c.cancel
	c.stateMu.Unlock()

	c.stopTimer()
	if cancel != nil {
		cancel()
	}
	var err error
	if sock != nil {
		err = sock.Close()
	}
	if cause != nil {
		c.logger.Warn("socket closed", zap.Error(cause))
	} else {
		c.logger.Debug("close")
	}
	c.bus.finish(&Event{Type: EventClose, Host: c.host})
	return err
}

func (c *Client) armTimer() {
	if c.opts.timeout <= 0 {
		return
	}
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.timer == nil {
		c.timer = time.AfterFunc(c.opts.timeout, c.onTimeout)
		return
	}
	c.timer.Stop()
	c.timer.Reset(c.opts.timeout)
}

func (c *Client) stopTimer() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
}

func (c *Client) onTimeout() {
	if c.IsClosed() || c.responded.Load() {
		return
	}
	c.logger.Debug("timeout", zap.Duration("timeout", c.opts.timeout))
	c.bus.publish(Event{Type: EventTimeout, Host: c.host})
}

func (c *Client) listenLoop(ctx context.Context, sock Socket) {
	for {
		buf, from, err := sock.Recv(ctx)
		if err != nil {
			if c.IsClosed() {
				return
			}
			if errors.Is(err, net.ErrClosed) {
				_ = c.shutdown(err)
				return
			}
			c.logger.Error("receive failed", zap.Error(err))
			c.bus.publish(Event{Type: EventError, Host: c.host, Err: fmt.Errorf("receive: %w", err)})
			continue
		}

		c.responded.Store(true)
		if !c.opts.rearmOnSend {
			c.stopTimer()
		}

		remoteHost := ""
		if from != nil {
			remoteHost = from.IP.String()
		}
		c.logger.Debug("recv", zap.String("from", remoteHost), zap.String("frame", hex.EncodeToString(buf)))
		reply, err := DecodeReply(buf, remoteHost, c.seq)
		if err != nil {
			c.bus.publish(Event{Type: EventError, Host: c.host, Err: err})
			continue
		}
		c.bus.publish(Event{Type: EventReply, Host: c.host, Reply: reply})
	}
}

func (c *Client) parse(address string) (MemoryAddress, error) {
	addr, err := ParseAddress(address)
	if err == nil {
		return addr, nil
	}
	var unknown *UnknownMemoryAreaError
	if errors.As(err, &unknown) && c.opts.legacyArea {
		c.logger.Warn("unknown memory area, using default",
			zap.String("address", address),
			zap.String("area", fmt.Sprintf("0x%02X", addr.Code)))
		return addr, nil
	}
	return MemoryAddress{}, err
}

func (c *Client) parseAll(addresses []string) ([]MemoryAddress, error) {
	out := make([]MemoryAddress, len(addresses))
	for i, a := range addresses {
		addr, err := c.parse(a)
		if err != nil {
			return nil, err
		}
		out[i] = addr
	}
	return out, nil
}

// invoke runs build+send through the interceptor chain. Send failures are
// emitted as error events and not returned.
func (c *Client) invoke(ctx context.Context, info *InterceptorInfo, build func() (Frame, error)) (byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	invoker := func(ctx context.Context) (interface{}, error) {
		return c.send(ctx, build)
	}

	c.interceptorMu.RLock()
	interceptor := c.interceptor
	c.interceptorMu.RUnlock()

	var result interface{}
	var err error
	if interceptor != nil {
		result, err = interceptor(&InterceptorCtx{ctx: ctx, info: info, invoker: invoker})
	} else {
		result, err = invoker(ctx)
	}

	var sendErr *SendError
	if errors.As(err, &sendErr) {
		c.bus.publish(Event{Type: EventError, Host: c.host, Err: err})
		return sendErr.SID, nil
	}
	if err != nil {
		return 0, err
	}
	if f, ok := result.(Frame); ok {
		return f.SID, nil
	}
	return 0, nil
}

func (c *Client) send(ctx context.Context, build func() (Frame, error)) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	c.stateMu.RLock()
	sock, opened, closed := c.socket, c.opened, c.closed
	c.stateMu.RUnlock()
	if closed {
		return Frame{}, ClientClosedError{}
	}
	if !opened {
		return Frame{}, ErrNotOpen
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	frame, err := build()
	if err != nil {
		return Frame{}, err
	}
	if c.opts.rearmOnSend {
		c.responded.Store(false)
		c.armTimer()
	}
	c.logger.Debug("send",
		zap.Uint8("sid", frame.SID),
		zap.Stringer("command", frame.Command),
		zap.String("frame", hex.EncodeToString(frame.Bytes)))
	if err := sock.Send(ctx, frame.Bytes, c.remote); err != nil {
		c.logger.Error("send failed", zap.Uint8("sid", frame.SID), zap.Error(err))
		if c.opts.rearmOnSend {
			c.stopTimer()
		}
		return frame, &SendError{SID: frame.SID, Err: err}
	}
	return frame, nil
}

// Read requests count elements starting at address, e.g. "D00000" or
// "CB1:00".
func (c *Client) Read(ctx context.Context, address string, count uint16) (byte, error) {
	info := &InterceptorInfo{Operation: OpRead, Address: address, Count: count}
	return c.invoke(ctx, info, func() (Frame, error) {
		addr, err := c.parse(address)
		if err != nil {
			return Frame{}, err
		}
		return c.builder.Read(addr, count), nil
	})
}

// Write writes values starting at address. Bit addresses accept only 0 and
// 1; anything else fails with ErrInvalidBitValue before a frame is built.
func (c *Client) Write(ctx context.Context, address string, values ...uint16) (byte, error) {
	info := &InterceptorInfo{Operation: OpWrite, Address: address, Count: uint16(len(values)), Data: values}
	return c.invoke(ctx, info, func() (Frame, error) {
		addr, err := c.parse(address)
		if err != nil {
			return Frame{}, err
		}
		return c.builder.Write(addr, values)
	})
}

// Fill writes value to count elements starting at address.
func (c *Client) Fill(ctx context.Context, address string, value uint16, count uint16) (byte, error) {
	info := &InterceptorInfo{Operation: OpFill, Address: address, Count: count, Data: []uint16{value}}
	return c.invoke(ctx, info, func() (Frame, error) {
		addr, err := c.parse(address)
		if err != nil {
			return Frame{}, err
		}
		return c.builder.Fill(addr, value, count)
	})
}

// Transfer copies count words from src to dst inside the controller.
func (c *Client) Transfer(ctx context.Context, src, dst string, count uint16) (byte, error) {
	info := &InterceptorInfo{Operation: OpTransfer, Address: src, Addresses: []string{dst}, Count: count}
	return c.invoke(ctx, info, func() (Frame, error) {
		s, err := c.parse(src)
		if err != nil {
			return Frame{}, err
		}
		d, err := c.parse(dst)
		if err != nil {
			return Frame{}, err
		}
		return c.builder.Transfer(s, d, count), nil
	})
}

// ReadMultiple reads one element from each address in a single request.
// The reply's Items follow the order of addresses.
func (c *Client) ReadMultiple(ctx context.Context, addresses ...string) (byte, error) {
	info := &InterceptorInfo{Operation: OpReadMultiple, Addresses: addresses, Count: uint16(len(addresses))}
	return c.invoke(ctx, info, func() (Frame, error) {
		if len(addresses) == 0 {
			return Frame{}, ErrNoAddresses
		}
		addrs, err := c.parseAll(addresses)
		if err != nil {
			return Frame{}, err
		}
		return c.builder.ReadMultiple(addrs), nil
	})
}

// Run switches the controller to RUN.
func (c *Client) Run(ctx context.Context) (byte, error) {
	return c.control(ctx, OpRun, CommandRun)
}

// Stop switches the controller to PROGRAM.
func (c *Client) Stop(ctx context.Context) (byte, error) {
	return c.control(ctx, OpStop, CommandStop)
}

// Status requests the controller status.
func (c *Client) Status(ctx context.Context) (byte, error) {
	return c.control(ctx, OpStatus, CommandControllerStatusRead)
}

func (c *Client) control(ctx context.Context, op OperationType, cmd Command) (byte, error) {
	return c.invoke(ctx, &InterceptorInfo{Operation: op}, func() (Frame, error) {
		return c.builder.Control(cmd), nil
	})
}
