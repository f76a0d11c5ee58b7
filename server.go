package fins

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
)

const (
	WORD_AREA_SIZE      = 32768 // words per simulated memory area
	SERVER_BUFFER_SIZE  = 1024  // UDP receive buffer size
	SERVER_ERROR_BUFFER = 8     // Err() channel capacity
)

type serverConfig struct {
	logger *zap.Logger
	status byte
	mode   byte
}

// ServerOption configures the PLC simulator.
type ServerOption func(*serverConfig)

// WithServerLogger sets the simulator logger. Default zap.NewNop().
func WithServerLogger(logger *zap.Logger) ServerOption {
	return func(cfg *serverConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithInitialState sets the status and mode reported before any RUN or STOP.
func WithInitialState(status, mode byte) ServerOption {
	return func(cfg *serverConfig) {
		cfg.status = status
		cfg.mode = mode
	}
}

// Server Omron FINS server (PLC emulator)
//
// It answers every command the client issues against in-memory word areas
// E, C, W, H, A and D. Bit-access area codes address bits of the matching
// word area.
type Server struct {
	conn   *net.UDPConn
	logger *zap.Logger

	memMu    sync.RWMutex
	areas    map[byte][]uint16
	status   byte
	mode     byte
	fatal    uint16
	nonFatal uint16

	muted      bool
	closed     bool
	closeMutex sync.RWMutex
	errChan    chan error
	done       chan struct{}
}

// NewPLCSimulator creates a new PLC simulator listening on the UDP address
// listen, e.g. "127.0.0.1:9600" or "127.0.0.1:0" for an ephemeral port.
func NewPLCSimulator(listen string, opts ...ServerOption) (*Server, error) {
	cfg := serverConfig{logger: zap.NewNop(), status: StatusStop, mode: ModeProgram}
	for _, opt := range opts {
		opt(&cfg)
	}

	addr, err := net.ResolveUDPAddr("udp4", listen)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", listen, err)
	}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		conn:    conn,
		logger:  cfg.logger.Named("PLC"),
		areas:   make(map[byte][]uint16),
		status:  cfg.status,
		mode:    cfg.mode,
		errChan: make(chan error, SERVER_ERROR_BUFFER),
		done:    make(chan struct{}),
	}
	for _, code := range []byte{MemoryAreaEMWord, MemoryAreaCIOWord, MemoryAreaWRWord, MemoryAreaHRWord, MemoryAreaARWord, MemoryAreaDMWord} {
		s.areas[code] = make([]uint16, WORD_AREA_SIZE)
	}
	s.logger.Info("listening", zap.Stringer("addr", conn.LocalAddr()))

	go s.udpLoop()
	return s, nil
}

// Addr returns the address the simulator listens on.
func (s *Server) Addr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// IsClosed returns true if the server has been closed
func (s *Server) IsClosed() bool {
	s.closeMutex.RLock()
	defer s.closeMutex.RUnlock()
	return s.closed
}

// Err returns the error channel for server errors
// Errors from the server loop are sent to this channel; when it is full
// further errors are only logged.
func (s *Server) Err() <-chan error {
	return s.errChan
}

// Close closes the FINS server
func (s *Server) Close() error {
	s.closeMutex.Lock()
	if s.closed {
		s.closeMutex.Unlock()
		return nil
	}
	s.closed = true
	s.closeMutex.Unlock()

	close(s.done)
	return s.conn.Close()
}

// SetMuted makes the simulator swallow requests without answering, to
// exercise client timeouts.
func (s *Server) SetMuted(muted bool) {
	s.closeMutex.Lock()
	s.muted = muted
	s.closeMutex.Unlock()
}

func (s *Server) isMuted() bool {
	s.closeMutex.RLock()
	defer s.closeMutex.RUnlock()
	return s.muted
}

// SetErrorFlags sets the fatal and non-fatal error words reported by
// CONTROLLER_STATUS_READ.
func (s *Server) SetErrorFlags(fatal, nonFatal uint16) {
	s.memMu.Lock()
	s.fatal, s.nonFatal = fatal, nonFatal
	s.memMu.Unlock()
}

// State returns the current status and mode bytes.
func (s *Server) State() (status, mode byte) {
	s.memMu.RLock()
	defer s.memMu.RUnlock()
	return s.status, s.mode
}

// Words returns a copy of count words of area starting at word.
func (s *Server) Words(area byte, word, count uint16) ([]uint16, error) {
	mem, ok := s.wordArea(area)
	if !ok {
		return nil, fmt.Errorf("unsupported memory area 0x%02X", area)
	}
	if int(word)+int(count) > len(mem) {
		return nil, fmt.Errorf("range %d+%d exceeds area size %d", word, count, len(mem))
	}
	s.memMu.RLock()
	defer s.memMu.RUnlock()
	return append([]uint16(nil), mem[word:word+count]...), nil
}

// SetWords writes values into area starting at word.
func (s *Server) SetWords(area byte, word uint16, values ...uint16) error {
	mem, ok := s.wordArea(area)
	if !ok {
		return fmt.Errorf("unsupported memory area 0x%02X", area)
	}
	if int(word)+len(values) > len(mem) {
		return fmt.Errorf("range %d+%d exceeds area size %d", word, len(values), len(mem))
	}
	s.memMu.Lock()
	copy(mem[word:], values)
	s.memMu.Unlock()
	return nil
}

func (s *Server) wordArea(code byte) ([]uint16, bool) {
	if w, ok := wordAreaOf[code]; ok {
		code = w
	}
	mem, ok := s.areas[code]
	return mem, ok
}

func (s *Server) reportErr(err error) {
	s.logger.Error("server error", zap.Error(err))
	select {
	case s.errChan <- err:
	default:
	}
}

func (s *Server) udpLoop() {
	defer close(s.errChan)

	var buf [SERVER_BUFFER_SIZE]byte
	for {
		select {
		case <-s.done:
			// Graceful shutdown
			return
		default:
		}

		rlen, remote, err := s.conn.ReadFromUDP(buf[:])
		if err != nil {
			// Check if this is expected closure
			if s.IsClosed() {
				return
			}
			s.reportErr(fmt.Errorf("server read error: %w", err))
			return
		}
		if rlen == 0 {
			continue
		}

		req, err := decodeRequest(buf[:rlen])
		if err != nil {
			s.reportErr(err)
			continue
		}
		s.logger.Debug("request",
			zap.Stringer("from", remote),
			zap.Stringer("command", req.commandCode),
			zap.Uint8("sid", req.header.SID),
			zap.String("frame", hex.EncodeToString(buf[:rlen])))
		if s.isMuted() {
			continue
		}

		resp := s.handler(req)
		if _, err = s.conn.WriteToUDP(encodeResponse(resp), remote); err != nil {
			if s.IsClosed() {
				return
			}
			s.reportErr(fmt.Errorf("server write error: %w", err))
		}
	}
}

func (s *Server) handler(r request) response {
	var endCode uint16
	var data []byte
	switch r.commandCode {
	case CommandMemoryAreaRead:
		data, endCode = s.memoryAreaRead(r.data)
	case CommandMemoryAreaWrite:
		endCode = s.memoryAreaWrite(r.data)
	case CommandMemoryAreaFill:
		endCode = s.memoryAreaFill(r.data)
	case CommandMemoryAreaReadMulti:
		data, endCode = s.memoryAreaReadMulti(r.data)
	case CommandMemoryAreaTransfer:
		endCode = s.memoryAreaTransfer(r.data)
	case CommandControllerStatusRead:
		data, endCode = s.controllerStatus(), EndCodeNormalCompletion
	case CommandRun:
		s.setState(StatusRun, ModeRun)
		endCode = EndCodeNormalCompletion
	case CommandStop:
		s.setState(StatusStop, ModeProgram)
		endCode = EndCodeNormalCompletion
	default:
		endCode = EndCodeUndefinedCommand
	}
	return response{r.header.response(), r.commandCode, endCode, data}
}

func (s *Server) setState(status, mode byte) {
	s.memMu.Lock()
	s.status, s.mode = status, mode
	s.memMu.Unlock()
}

func (s *Server) controllerStatus() []byte {
	s.memMu.RLock()
	defer s.memMu.RUnlock()
	data := []byte{s.status, s.mode, 0, 0, 0, 0}
	binary.BigEndian.PutUint16(data[2:4], s.fatal)
	binary.BigEndian.PutUint16(data[4:6], s.nonFatal)
	return data
}

// locate resolves an address block to its word area. For bit codes the
// returned index counts bits from bit 0 of word 0.
func (s *Server) locate(block []byte) (mem []uint16, index int, bit bool, endCode uint16) {
	code := block[0]
	mem, ok := s.wordArea(code)
	if !ok {
		return nil, 0, false, EndCodeAreaClassificationMissing
	}
	word := int(binary.BigEndian.Uint16(block[1:3]))
	if IsBitArea(code) {
		return mem, word*16 + int(block[3]&0x0f), true, EndCodeNormalCompletion
	}
	return mem, word, false, EndCodeNormalCompletion
}

func inRange(mem []uint16, index, count int, bit bool) bool {
	size := len(mem)
	if bit {
		size *= 16
	}
	return index+count <= size
}

func getBit(mem []uint16, index int) byte {
	return byte(mem[index/16] >> (index % 16) & 1)
}

func setBit(mem []uint16, index int, v bool) {
	mask := uint16(1) << (index % 16)
	if v {
		mem[index/16] |= mask
	} else {
		mem[index/16] &^= mask
	}
}

// data: address(4) count(2)
func (s *Server) memoryAreaRead(data []byte) ([]byte, uint16) {
	if len(data) < FINS_MEMORY_ADDR_SIZE+FINS_ITEM_COUNT_SIZE {
		return nil, EndCodeCommandTooShort
	}
	mem, index, bit, endCode := s.locate(data)
	if endCode != EndCodeNormalCompletion {
		return nil, endCode
	}
	count := int(binary.BigEndian.Uint16(data[4:6]))
	if !inRange(mem, index, count, bit) {
		return nil, EndCodeAddressRangeExceeded
	}

	s.memMu.RLock()
	defer s.memMu.RUnlock()
	if bit {
		out := make([]byte, count)
		for i := range out {
			out[i] = getBit(mem, index+i)
		}
		return out, EndCodeNormalCompletion
	}
	return wordsToBytes(mem[index : index+count]), EndCodeNormalCompletion
}

// data: address(4) count(2) values(2 each)
func (s *Server) memoryAreaWrite(data []byte) uint16 {
	if len(data) < FINS_MEMORY_ADDR_SIZE+FINS_ITEM_COUNT_SIZE {
		return EndCodeCommandTooShort
	}
	mem, index, bit, endCode := s.locate(data)
	if endCode != EndCodeNormalCompletion {
		return endCode
	}
	count := int(binary.BigEndian.Uint16(data[4:6]))
	values := data[6:]
	if len(values) < count*2 {
		return EndCodeCommandTooShort
	}
	if !inRange(mem, index, count, bit) {
		return EndCodeAddressRangeExceeded
	}

	s.memMu.Lock()
	defer s.memMu.Unlock()
	for i := 0; i < count; i++ {
		v := binary.BigEndian.Uint16(values[i*2 : i*2+2])
		if bit {
			setBit(mem, index+i, v&0xff != 0)
		} else {
			mem[index+i] = v
		}
	}
	return EndCodeNormalCompletion
}

// data: address(4) count(2) value(2)
func (s *Server) memoryAreaFill(data []byte) uint16 {
	if len(data) < FINS_MEMORY_ADDR_SIZE+FINS_ITEM_COUNT_SIZE+2 {
		return EndCodeCommandTooShort
	}
	mem, index, bit, endCode := s.locate(data)
	if endCode != EndCodeNormalCompletion {
		return endCode
	}
	count := int(binary.BigEndian.Uint16(data[4:6]))
	value := binary.BigEndian.Uint16(data[6:8])
	if !inRange(mem, index, count, bit) {
		return EndCodeAddressRangeExceeded
	}

	s.memMu.Lock()
	defer s.memMu.Unlock()
	for i := 0; i < count; i++ {
		if bit {
			setBit(mem, index+i, value&0xff != 0)
		} else {
			mem[index+i] = value
		}
	}
	return EndCodeNormalCompletion
}

// data: source(4) destination(4) count(2); words only
func (s *Server) memoryAreaTransfer(data []byte) uint16 {
	if len(data) < 2*FINS_MEMORY_ADDR_SIZE+FINS_ITEM_COUNT_SIZE {
		return EndCodeCommandTooShort
	}
	src, si, srcBit, endCode := s.locate(data[0:4])
	if endCode != EndCodeNormalCompletion {
		return endCode
	}
	dst, di, dstBit, endCode := s.locate(data[4:8])
	if endCode != EndCodeNormalCompletion {
		return endCode
	}
	if srcBit || dstBit {
		return EndCodeParameterError
	}
	count := int(binary.BigEndian.Uint16(data[8:10]))
	if !inRange(src, si, count, false) || !inRange(dst, di, count, false) {
		return EndCodeAddressRangeExceeded
	}

	s.memMu.Lock()
	copy(dst[di:di+count], src[si:si+count])
	s.memMu.Unlock()
	return EndCodeNormalCompletion
}

// data: address(4) repeated; reply: code ++ 1 byte (bit) or 2 bytes (word)
func (s *Server) memoryAreaReadMulti(data []byte) ([]byte, uint16) {
	if len(data) < FINS_MEMORY_ADDR_SIZE || len(data)%FINS_MEMORY_ADDR_SIZE != 0 {
		return nil, EndCodeCommandTooShort
	}
	s.memMu.RLock()
	defer s.memMu.RUnlock()

	out := make([]byte, 0, len(data)/FINS_MEMORY_ADDR_SIZE*3)
	for i := 0; i < len(data); i += FINS_MEMORY_ADDR_SIZE {
		block := data[i : i+FINS_MEMORY_ADDR_SIZE]
		mem, index, bit, endCode := s.locate(block)
		if endCode != EndCodeNormalCompletion {
			return nil, endCode
		}
		if !inRange(mem, index, 1, bit) {
			return nil, EndCodeAddressRangeExceeded
		}
		out = append(out, block[0])
		if bit {
			out = append(out, getBit(mem, index))
		} else {
			out = append(out, uint16Bytes(mem[index])...)
		}
	}
	return out, EndCodeNormalCompletion
}
