package poll

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	fins "github.com/bronystylecrazy/finsudp"
)

func startSimulator(t *testing.T, words ...uint16) *fins.Server {
	t.Helper()
	srv, err := fins.NewPLCSimulator("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	require.NoError(t, srv.SetWords(fins.MemoryAreaDMWord, 100, words...))
	return srv
}

func pollConfig(hosts ...string) Config {
	timeout := 200 * time.Millisecond
	return Config{
		Config:  fins.Config{Timeout: &timeout},
		Hosts:   hosts,
		Address: "D00100",
		Count:   2,
		Workers: 2,
	}
}

func TestPollReadsEveryHost(t *testing.T) {
	a := startSimulator(t, 1, 2)
	b := startSimulator(t, 3, 4)
	muted := startSimulator(t, 5, 6)
	muted.SetMuted(true)

	cfg := pollConfig(a.Addr().String(), b.Addr().String(), muted.Addr().String())
	p, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer p.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	results, err := p.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 3)

	ra := results[a.Addr().String()]
	require.NoError(t, ra.Err)
	require.True(t, ra.OK())
	assert.Equal(t, []int16{1, 2}, ra.Reply.Values)
	assert.Equal(t, ra.SID, ra.Reply.SID)

	rb := results[b.Addr().String()]
	require.True(t, rb.OK())
	assert.Equal(t, []int16{3, 4}, rb.Reply.Values)

	rm := results[muted.Addr().String()]
	assert.True(t, rm.TimedOut)
	assert.Nil(t, rm.Reply)
	assert.False(t, rm.OK())
	assert.GreaterOrEqual(t, rm.Elapsed, 200*time.Millisecond)
}

func TestPollReportsEndCodes(t *testing.T) {
	srv := startSimulator(t, 7)
	cfg := pollConfig(srv.Addr().String())
	// the simulator rejects reads past the end of its word area
	cfg.Address = "D32767"
	p, err := New(cfg, nil)
	require.NoError(t, err)
	defer p.Release()

	results, err := p.Poll(context.Background())
	require.NoError(t, err)

	r := results[srv.Addr().String()]
	require.NotNil(t, r.Reply)
	assert.Equal(t, "1103", r.Reply.ResponseCode)
	assert.False(t, r.OK())
}

func TestPollContextCanceled(t *testing.T) {
	srv := startSimulator(t)
	srv.SetMuted(true)

	cfg := pollConfig(srv.Addr().String())
	zero := time.Duration(0)
	cfg.Timeout = &zero
	p, err := New(cfg, nil)
	require.NoError(t, err)
	defer p.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	results, err := p.Poll(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, results[srv.Addr().String()].Err, context.DeadlineExceeded)
}

func TestNewValidates(t *testing.T) {
	_, err := New(Config{Address: "D0"}, nil)
	assert.Error(t, err)

	_, err = New(Config{Hosts: []string{"127.0.0.1"}, Address: "Z100"}, nil)
	assert.Error(t, err)

	_, err = New(Config{Hosts: []string{"127.0.0.1"}, Address: "D0", Workers: -1}, nil)
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poll.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
timeout: 500ms
port: 9601
hosts: [10.0.0.1, 10.0.0.2]
address: W10
count: 3
workers: 4
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Hosts)
	assert.Equal(t, "W10", cfg.Address)
	assert.Equal(t, uint16(3), cfg.Count)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 9601, cfg.Port)
	require.NotNil(t, cfg.Timeout)
	assert.Equal(t, 500*time.Millisecond, *cfg.Timeout)

	require.NoError(t, os.WriteFile(path, []byte("address: D0\n"), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}
