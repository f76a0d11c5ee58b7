package fins

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSimulator(t *testing.T) *Server {
	t.Helper()
	srv, err := NewPLCSimulator("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func simRequest(t *testing.T, srv *Server, f Frame) response {
	t.Helper()
	req, err := decodeRequest(f.Bytes)
	require.NoError(t, err)
	return srv.handler(req)
}

func TestSimulatorReadWrite(t *testing.T) {
	srv := newTestSimulator(t)
	b := NewFrameBuilder(DefaultHeader(), nil)

	f, err := b.Write(mustParse(t, "W10"), []uint16{0xABCD, 0x0102})
	require.NoError(t, err)
	resp := simRequest(t, srv, f)
	assert.Equal(t, EndCodeNormalCompletion, resp.endCode)
	assert.Equal(t, f.SID, resp.header.SID)
	assert.True(t, resp.header.IsResponse())

	resp = simRequest(t, srv, b.Read(mustParse(t, "W10"), 2))
	assert.Equal(t, []byte{0xAB, 0xCD, 0x01, 0x02}, resp.data)

	// bit view of the same word
	resp = simRequest(t, srv, b.Read(mustParse(t, "WB10:00"), 4))
	assert.Equal(t, []byte{1, 0, 1, 1}, resp.data)
}

func TestSimulatorBitWriteSpansWords(t *testing.T) {
	srv := newTestSimulator(t)
	b := NewFrameBuilder(DefaultHeader(), nil)

	f, err := b.Write(mustParse(t, "HB0:15"), []uint16{1, 1})
	require.NoError(t, err)
	assert.Equal(t, EndCodeNormalCompletion, simRequest(t, srv, f).endCode)

	words, err := srv.Words(MemoryAreaHRWord, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x8000, 0x0001}, words)
}

func TestSimulatorFillAndTransfer(t *testing.T) {
	srv := newTestSimulator(t)
	b := NewFrameBuilder(DefaultHeader(), nil)

	f, err := b.Fill(mustParse(t, "D0"), 42, 3)
	require.NoError(t, err)
	assert.Equal(t, EndCodeNormalCompletion, simRequest(t, srv, f).endCode)

	resp := simRequest(t, srv, b.Transfer(mustParse(t, "D0"), mustParse(t, "E100"), 3))
	assert.Equal(t, EndCodeNormalCompletion, resp.endCode)
	words, err := srv.Words(MemoryAreaEMWord, 100, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint16{42, 42, 42}, words)

	resp = simRequest(t, srv, b.Transfer(mustParse(t, "CB0:00"), mustParse(t, "D0"), 1))
	assert.Equal(t, EndCodeParameterError, resp.endCode)
}

func TestSimulatorReadMultiple(t *testing.T) {
	srv := newTestSimulator(t)
	require.NoError(t, srv.SetWords(MemoryAreaWRWord, 0, 5))
	require.NoError(t, srv.SetWords(MemoryAreaHRWord, 1, 0x0002))
	b := NewFrameBuilder(DefaultHeader(), nil)

	resp := simRequest(t, srv, b.ReadMultiple([]MemoryAddress{mustParse(t, "HB1:01"), mustParse(t, "W0")}))
	assert.Equal(t, []byte{0x32, 0x01, 0xB1, 0x00, 0x05}, resp.data)
}

func TestSimulatorRunStopStatus(t *testing.T) {
	srv, err := NewPLCSimulator("127.0.0.1:0", WithInitialState(StatusCPUStandby, ModeMonitor))
	require.NoError(t, err)
	defer srv.Close()
	b := NewFrameBuilder(DefaultHeader(), nil)

	resp := simRequest(t, srv, b.Control(CommandControllerStatusRead))
	assert.Equal(t, []byte{StatusCPUStandby, ModeMonitor, 0, 0, 0, 0}, resp.data)

	simRequest(t, srv, b.Control(CommandRun))
	status, mode := srv.State()
	assert.Equal(t, StatusRun, status)
	assert.Equal(t, ModeRun, mode)

	simRequest(t, srv, b.Control(CommandStop))
	status, mode = srv.State()
	assert.Equal(t, StatusStop, status)
	assert.Equal(t, ModeProgram, mode)
}

func TestSimulatorErrors(t *testing.T) {
	srv := newTestSimulator(t)
	b := NewFrameBuilder(DefaultHeader(), nil)

	resp := simRequest(t, srv, b.Read(mustParse(t, "D32760"), 10))
	assert.Equal(t, EndCodeAddressRangeExceeded, resp.endCode)

	resp = simRequest(t, srv, b.Control(Command(0x0701)))
	assert.Equal(t, EndCodeUndefinedCommand, resp.endCode)

	resp = simRequest(t, srv, b.build(CommandMemoryAreaRead, WidthWord, []byte{0x82, 0x00}))
	assert.Equal(t, EndCodeCommandTooShort, resp.endCode)

	resp = simRequest(t, srv, b.build(CommandMemoryAreaRead, WidthWord, []byte{0x99, 0x00, 0x00, 0x00, 0x00, 0x01}))
	assert.Equal(t, EndCodeAreaClassificationMissing, resp.endCode)

	_, err := srv.Words(0x99, 0, 1)
	assert.Error(t, err)
	assert.Error(t, srv.SetWords(MemoryAreaDMWord, 32767, 1, 2))
}

func TestSimulatorUDP(t *testing.T) {
	srv := newTestSimulator(t)
	conn, err := net.DialUDP("udp4", nil, srv.Addr())
	require.NoError(t, err)
	defer conn.Close()

	f := NewFrameBuilder(DefaultHeader(), nil).Control(CommandControllerStatusRead)
	_, err = conn.Write(f.Bytes)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, READ_BUFFER_SIZE)
	n, err := conn.Read(buf)
	require.NoError(t, err)

	r, err := DecodeReply(buf[:n], "", nil)
	require.NoError(t, err)
	assert.Equal(t, f.SID, r.SID)
	assert.Equal(t, "STOP", r.Status)
	assert.Equal(t, "PROGRAM", r.Mode)

	// garbage is reported, not answered
	_, err = conn.Write([]byte{0x01})
	require.NoError(t, err)
	select {
	case err := <-srv.Err():
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("expected decode error")
	}
}

func TestSimulatorClose(t *testing.T) {
	srv, err := NewPLCSimulator("127.0.0.1:0")
	require.NoError(t, err)
	assert.False(t, srv.IsClosed())
	assert.NoError(t, srv.Close())
	assert.NoError(t, srv.Close())
	assert.True(t, srv.IsClosed())

	// Err is closed once the loop exits
	select {
	case _, ok := <-srv.Err():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("error channel not closed")
	}
}
