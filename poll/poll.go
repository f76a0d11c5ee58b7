// Package poll reads the same address from many controllers at once.
//
// Each host gets its own client; requests run on a bounded ants worker pool
// and a host that does not answer inside its client's liveness window is
// reported as timed out.
package poll

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	fins "github.com/bronystylecrazy/finsudp"
)

const DEFAULT_WORKERS = 8

// Config is the YAML form of a poll run. Client settings are shared by every
// host.
//
//	timeout: 1s
//	hosts: [10.0.0.1, 10.0.0.2:9601]
//	address: D00100
//	count: 4
type Config struct {
	fins.Config `yaml:",inline"`

	Hosts   []string `yaml:"hosts"`
	Address string   `yaml:"address"`
	Count   uint16   `yaml:"count"`
	Workers int      `yaml:"workers"`
}

// LoadConfig reads a poll Config from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the poll settings and the shared client settings.
func (c *Config) Validate() error {
	if len(c.Hosts) == 0 {
		return errors.New("no hosts configured")
	}
	if _, err := fins.ParseAddress(c.Address); err != nil && !c.LegacyAreaFallback {
		return fmt.Errorf("address: %w", err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative: %d", c.Workers)
	}
	return c.Config.Validate()
}

// Result is the outcome for one host.
type Result struct {
	Host     string
	SID      byte
	Reply    *fins.Reply
	TimedOut bool
	Err      error
	Elapsed  time.Duration
}

// OK reports a reply with a normal completion code.
func (r Result) OK() bool {
	return r.Reply != nil && r.Reply.OK()
}

// Poller runs poll rounds.
type Poller struct {
	cfg    Config
	opts   []fins.Option
	pool   *ants.Pool
	logger *zap.Logger
}

// New creates a poller. opts are appended to every client's options.
func New(cfg Config, logger *zap.Logger, opts ...fins.Option) (*Poller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Count == 0 {
		cfg.Count = 1
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = DEFAULT_WORKERS
	}
	p := &Poller{cfg: cfg, opts: opts, logger: logger.Named("POLL")}

	pool, err := ants.NewPool(workers, ants.WithOptions(ants.Options{
		ExpiryDuration: time.Minute,
		Nonblocking:    false,
		PanicHandler: func(e interface{}) {
			p.logger.Error("poll task panicked", zap.Any("panic", e))
		},
	}))
	if err != nil {
		return nil, fmt.Errorf("worker pool: %w", err)
	}
	p.pool = pool
	return p, nil
}

// Release stops the worker pool.
func (p *Poller) Release() {
	p.pool.Release()
}

// Poll reads the configured address from every host and returns one result
// per host. It returns early with ctx's error if ctx ends first; results
// gathered so far are still returned.
func (p *Poller) Poll(ctx context.Context) (map[string]Result, error) {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]Result, len(p.cfg.Hosts))
	)

	for _, host := range p.cfg.Hosts {
		host := host
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			r := p.pollHost(ctx, host)
			mu.Lock()
			results[host] = r
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			results[host] = Result{Host: host, Err: fmt.Errorf("submit: %w", err)}
			mu.Unlock()
		}
	}
	wg.Wait()

	p.logger.Info("poll round finished", zap.Int("hosts", len(results)))
	return results, ctx.Err()
}

func (p *Poller) pollHost(ctx context.Context, host string) Result {
	start := time.Now()
	res := Result{Host: host}

	cfg := p.cfg.Config
	cfg.Host = host
	client, err := cfg.NewClient(append([]fins.Option{fins.WithLogger(p.logger)}, p.opts...)...)
	if err != nil {
		res.Err = err
		return res
	}

	// each client carries a single request, so any reply belongs to it
	done := make(chan Result, 1)
	finish := func(r Result) {
		select {
		case done <- r:
		default:
		}
	}
	client.On(fins.EventReply, func(e fins.Event) {
		finish(Result{Host: host, SID: e.Reply.SID, Reply: e.Reply})
	})
	client.On(fins.EventTimeout, func(fins.Event) {
		finish(Result{Host: host, TimedOut: true})
	})
	client.On(fins.EventError, func(e fins.Event) {
		finish(Result{Host: host, Err: e.Err})
	})

	if err := client.Open(); err != nil {
		res.Err = err
		return res
	}
	defer client.Close()

	sid, err := client.Read(ctx, p.cfg.Address, p.cfg.Count)
	if err != nil {
		res.Err = err
		return res
	}
	res.SID = sid

	select {
	case r := <-done:
		r.SID = sid
		r.Elapsed = time.Since(start)
		p.logger.Debug("polled",
			zap.String("host", host),
			zap.Bool("timed_out", r.TimedOut),
			zap.Error(r.Err))
		return r
	case <-ctx.Done():
		res.Err = ctx.Err()
		res.Elapsed = time.Since(start)
		return res
	}
}
