package fins

import (
	"encoding/binary"
	"fmt"
	"sync"
)

const (
	// FINS protocol frame structure constants
	FINS_HEADER_SIZE       = 10 // FINS header is always 10 bytes
	FINS_COMMAND_CODE_SIZE = 2  // Command code field size
	FINS_END_CODE_SIZE     = 2  // End code field size
	FINS_MEMORY_ADDR_SIZE  = 4  // Memory address field size
	FINS_ITEM_COUNT_SIZE   = 2  // Item count field size
	FINS_REQUEST_MIN_SIZE  = FINS_HEADER_SIZE + FINS_COMMAND_CODE_SIZE
	FINS_REPLY_MIN_SIZE    = FINS_REQUEST_MIN_SIZE + FINS_END_CODE_SIZE

	// Header and frame byte offsets
	ICF_INDEX               = 0
	RSV_INDEX               = 1
	GATEWAY_COUNT_INDEX     = 2
	DST_NETWORK_INDEX       = 3
	DST_NODE_INDEX          = 4
	DST_UNIT_INDEX          = 5
	SRC_NETWORK_INDEX       = 6
	SRC_NODE_INDEX          = 7
	SRC_UNIT_INDEX          = 8
	SERVICE_ID_INDEX        = 9
	COMMAND_CODE_INDEX      = 10
	RESPONSE_END_CODE_INDEX = 12
	RESPONSE_DATA_INDEX     = 14
)

// Frame is one serialized outbound request.
type Frame struct {
	SID     byte
	Command Command
	Bytes   []byte
}

// FrameBuilder assembles request frames. Every build advances the SID,
// writes it into header byte 9 and records the request width for it.
type FrameBuilder struct {
	mu     sync.Mutex
	header Header
	seq    *SequenceTracker
}

// NewFrameBuilder returns a builder stamping frames with h. A nil seq gets a
// fresh tracker.
func NewFrameBuilder(h Header, seq *SequenceTracker) *FrameBuilder {
	if seq == nil {
		seq = NewSequenceTracker(h.SID)
	}
	return &FrameBuilder{header: h, seq: seq}
}

// Header returns a copy of the current header, including the last SID.
func (b *FrameBuilder) Header() Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.header
}

func (b *FrameBuilder) build(cmd Command, width Width, payload ...[]byte) Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	sid := b.seq.Next()
	b.header.SID = sid
	if width != WidthUnknown {
		b.seq.Record(sid, width)
	}

	size := FINS_REQUEST_MIN_SIZE
	for _, p := range payload {
		size += len(p)
	}
	bytes := make([]byte, 0, size)
	bytes = append(bytes, b.header.Bytes()...)
	bytes = append(bytes, cmd.Bytes()...)
	for _, p := range payload {
		bytes = append(bytes, p...)
	}
	return Frame{SID: sid, Command: cmd, Bytes: bytes}
}

func widthOf(addr MemoryAddress) Width {
	if addr.IsBit() {
		return WidthBit
	}
	return WidthWord
}

func uint16Bytes(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func wordsToBytes(words []uint16) []byte {
	b := make([]byte, 2*len(words))
	for i, w := range words {
		binary.BigEndian.PutUint16(b[i*2:i*2+2], w)
	}
	return b
}

func checkBitValues(addr MemoryAddress, values ...uint16) error {
	if !addr.IsBit() {
		return nil
	}
	for _, v := range values {
		if v > 1 {
			return fmt.Errorf("%w: %d for bit address %s", ErrInvalidBitValue, v, addr)
		}
	}
	return nil
}

// Read builds MEMORY_AREA_READ: address ++ count.
func (b *FrameBuilder) Read(addr MemoryAddress, count uint16) Frame {
	return b.build(CommandMemoryAreaRead, widthOf(addr), addr.Bytes(), uint16Bytes(count))
}

// Write builds MEMORY_AREA_WRITE: address ++ count ++ values. Bit targets
// only accept 0 and 1; values are encoded as one word each either way.
func (b *FrameBuilder) Write(addr MemoryAddress, values []uint16) (Frame, error) {
	if err := checkBitValues(addr, values...); err != nil {
		return Frame{}, err
	}
	return b.build(CommandMemoryAreaWrite, widthOf(addr),
		addr.Bytes(), uint16Bytes(uint16(len(values))), wordsToBytes(values)), nil
}

// Fill builds MEMORY_AREA_FILL: address ++ count ++ value.
func (b *FrameBuilder) Fill(addr MemoryAddress, value uint16, count uint16) (Frame, error) {
	if err := checkBitValues(addr, value); err != nil {
		return Frame{}, err
	}
	return b.build(CommandMemoryAreaFill, widthOf(addr), addr.Bytes(), uint16Bytes(count), uint16Bytes(value)), nil
}

// Transfer builds MEMORY_AREA_TRANSFER: source ++ destination ++ count.
func (b *FrameBuilder) Transfer(src, dst MemoryAddress, count uint16) Frame {
	return b.build(CommandMemoryAreaTransfer, widthOf(src), src.Bytes(), dst.Bytes(), uint16Bytes(count))
}

// ReadMultiple builds MEMORY_AREA_READ_MULTI: one address block per entry
// and no count; the controller derives element widths from the area codes.
func (b *FrameBuilder) ReadMultiple(addrs []MemoryAddress) Frame {
	blocks := make([][]byte, len(addrs))
	for i, a := range addrs {
		blocks[i] = a.Bytes()
	}
	return b.build(CommandMemoryAreaReadMulti, WidthUnknown, blocks...)
}

// Control builds a payload-less frame (RUN, STOP, CONTROLLER_STATUS_READ).
func (b *FrameBuilder) Control(cmd Command) Frame {
	return b.build(cmd, WidthUnknown)
}

// request A FINS command request, as seen by the simulator
type request struct {
	header      Header
	commandCode Command
	data        []byte
}

// response A FINS command response, as produced by the simulator
type response struct {
	header      Header
	commandCode Command
	endCode     uint16
	data        []byte
}

func decodeRequest(bytes []byte) (request, error) {
	if len(bytes) < FINS_REQUEST_MIN_SIZE {
		return request{}, fmt.Errorf("short FINS request: %d bytes", len(bytes))
	}
	return request{
		decodeHeader(bytes[0:FINS_HEADER_SIZE]),
		Command(binary.BigEndian.Uint16(bytes[COMMAND_CODE_INDEX : COMMAND_CODE_INDEX+FINS_COMMAND_CODE_SIZE])),
		bytes[FINS_REQUEST_MIN_SIZE:],
	}, nil
}

func encodeResponse(resp response) []byte {
	bytes := make([]byte, 0, FINS_REPLY_MIN_SIZE+len(resp.data))
	bytes = append(bytes, resp.header.Bytes()...)
	bytes = append(bytes, resp.commandCode.Bytes()...)
	bytes = append(bytes, uint16Bytes(resp.endCode)...)
	bytes = append(bytes, resp.data...)
	return bytes
}
