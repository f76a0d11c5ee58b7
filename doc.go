/*
Package fins implements an asynchronous client for the Omron FINS (Factory
Interface Network Service) protocol over UDP, plus a PLC simulator for
testing.

Requests are fire-and-forget: every operation encodes a frame, sends it and
returns the SID (service ID) it used. Replies arrive later as events and are
matched to requests by that SID.

# Features

  - Textual addresses (D00100, W10, CB1:00) for every memory area
  - Memory area read, write, fill, transfer and multiple read
  - Controller run, stop and status read
  - Event delivery of replies, send errors and the liveness timeout
  - Interceptors and plugins around every operation
  - YAML configuration and structured logging with zap
  - PLC simulator for testing

# Quick Start

	client, err := fins.NewClient("192.168.250.1",
		fins.WithTimeout(time.Second),
		fins.WithDestination(fins.FinsAddress{Node: 1}),
		fins.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}

	client.On(fins.EventReply, func(e fins.Event) {
		log.Printf("sid %d: %s %v", e.Reply.SID, e.Reply.ResponseText(), e.Reply.Values)
	})
	client.On(fins.EventTimeout, func(fins.Event) {
		log.Println("controller is not answering")
	})

	if err := client.Open(); err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	sid, err := client.Read(ctx, "D00100", 5)

The host may carry a port ("10.0.0.1:9601"); otherwise WithPort or the
default 9600 is used.

# Events

Handlers registered with On run one at a time on a dispatcher goroutine,
in the order the events happened:

  - EventOpen - the socket is bound
  - EventReply - a reply was decoded; Reply.SID names the request
  - EventError - a send failed or an inbound datagram could not be decoded
  - EventTimeout - no reply arrived within the liveness window
  - EventClose - the client closed; nothing follows it

Handlers may call back into the client, including Close. Once Close is
called, events still queued are dropped and EventClose is delivered last.
If Open fails the only event is EventError.

# Liveness Timeout

A single timer starts at Open. If no reply of any kind arrives before it
expires an EventTimeout is emitted, once. A zero WithTimeout disables it.
WithRearmOnSend restarts the window on every request instead.

# Addresses

An address is an area prefix, a word number and for bit areas a bit
number:

	D00100   DM word 100
	W10      WR word 10
	CB1:00   CIO word 1, bit 0
	DM100:07 DM word 100, bit 7

Unknown prefixes are rejected with UnknownMemoryAreaError.
WithLegacyAreaFallback sends them as DM words with a warning instead.

# Interceptors

Interceptors wrap every operation. They see an InterceptorInfo, may call
Invoke to continue, and may stop the operation by returning early:

	metrics := fins.NewMetricsCollector()
	client.SetInterceptor(fins.ChainInterceptors(
		fins.LoggingInterceptor(logger),
		metrics.Interceptor(),
		fins.ValidationInterceptor(),
		fins.RetryInterceptor(3, 50*time.Millisecond),
	))
	client.On(fins.EventReply, metrics.Handler())

	// Custom interceptor
	client.SetInterceptor(func(c *fins.InterceptorCtx) (interface{}, error) {
		start := time.Now()
		result, err := c.Invoke(nil)
		log.Printf("%s took %v", c.Info().Operation, time.Since(start))
		return result, err
	})

Plugins bundle interceptors and handlers; LivenessWatchdog turns the event
stream into alive/dead transitions:

	wd := fins.NewLivenessWatchdog(16)
	_ = client.Use(wd)

# Error Handling

Operations return an error only when nothing was sent:

  - ClientClosedError - the client is closed
  - ErrNotOpen - Open has not been called
  - AddressError / UnknownMemoryAreaError - the address could not be parsed
  - the context's error when it is already done

A failed send is not returned. It is emitted as EventError carrying a
*SendError and the operation returns the SID it consumed. A reply with a
non-zero end code is still a reply; Reply.Err returns an EndCodeError.

# Configuration

Config mirrors the options in YAML:

	host: 192.168.250.1
	port: 9600
	timeout: 1s
	destination: {network: 0, node: 1, unit: 0}

	cfg, err := fins.LoadConfig("fins.yaml")
	client, err := cfg.NewClient(fins.WithLogger(logger))

# Testing with PLC Simulator

	sim, err := fins.NewPLCSimulator("127.0.0.1:0")
	if err != nil {
		log.Fatal(err)
	}
	defer sim.Close()

	_ = sim.SetWords(fins.MemoryAreaDMWord, 100, 1, 2, 3)
	client, _ := fins.NewClient(sim.Addr().String())

The simulator answers every command this package sends, and SetMuted makes
it drop requests to exercise the liveness timeout.
*/
package fins
