package fins

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	DEFAULT_HOST    = "127.0.0.1"
	DEFAULT_PORT    = 9600
	DEFAULT_TIMEOUT = 2000 * time.Millisecond
	MAX_SID         = 254
)

// Command is a 2-byte FINS command code.
type Command uint16

const (
	CommandControllerStatusRead Command = 0x0601
	CommandMemoryAreaRead       Command = 0x0101
	CommandMemoryAreaWrite      Command = 0x0102
	CommandMemoryAreaFill       Command = 0x0103
	CommandMemoryAreaReadMulti  Command = 0x0104
	CommandMemoryAreaTransfer   Command = 0x0105
	CommandRun                  Command = 0x0401
	CommandStop                 Command = 0x0402
)

var commandNames = map[Command]string{
	CommandControllerStatusRead: "CONTROLLER_STATUS_READ",
	CommandMemoryAreaRead:       "MEMORY_AREA_READ",
	CommandMemoryAreaWrite:      "MEMORY_AREA_WRITE",
	CommandMemoryAreaFill:       "MEMORY_AREA_FILL",
	CommandMemoryAreaReadMulti:  "MEMORY_AREA_READ_MULTI",
	CommandMemoryAreaTransfer:   "MEMORY_AREA_TRANSFER",
	CommandRun:                  "RUN",
	CommandStop:                 "STOP",
}

// Bytes returns the command as it appears on the wire.
func (c Command) Bytes() []byte {
	b := make([]byte, FINS_COMMAND_CODE_SIZE)
	binary.BigEndian.PutUint16(b, uint16(c))
	return b
}

// Hex returns the lower-case 4 digit form used in replies, e.g. "0101".
func (c Command) Hex() string {
	return fmt.Sprintf("%04x", uint16(c))
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "0x" + c.Hex()
}

// Memory area codes. Word codes address 16-bit words, bit codes address a
// single bit and are answered with one byte per element.
const (
	MemoryAreaEMWord  byte = 0xA0
	MemoryAreaCIOWord byte = 0xB0
	MemoryAreaCIOBit  byte = 0x30
	MemoryAreaWRWord  byte = 0xB1
	MemoryAreaWRBit   byte = 0x31
	MemoryAreaHRWord  byte = 0xB2
	MemoryAreaHRBit   byte = 0x32
	MemoryAreaARWord  byte = 0xB3
	MemoryAreaARBit   byte = 0x33
	MemoryAreaDMWord  byte = 0x82
	MemoryAreaDMBit   byte = 0x02

	// DefaultMemoryArea is used for unrecognised area letters when the
	// legacy fallback is enabled.
	DefaultMemoryArea = MemoryAreaDMWord
)

// MemoryAreas maps address letters to area codes.
var MemoryAreas = map[string]byte{
	"E":  MemoryAreaEMWord,
	"C":  MemoryAreaCIOWord,
	"CB": MemoryAreaCIOBit,
	"W":  MemoryAreaWRWord,
	"WB": MemoryAreaWRBit,
	"H":  MemoryAreaHRWord,
	"HB": MemoryAreaHRBit,
	"A":  MemoryAreaARWord,
	"AB": MemoryAreaARBit,
	"D":  MemoryAreaDMWord,
	"DM": MemoryAreaDMBit,
}

var areaLetters = func() map[byte]string {
	m := make(map[byte]string, len(MemoryAreas))
	for letters, code := range MemoryAreas {
		m[code] = letters
	}
	return m
}()

// bitAreas answer memory reads with one byte per element.
var bitAreas = map[byte]struct{}{
	MemoryAreaCIOBit: {},
	MemoryAreaWRBit:  {},
	MemoryAreaHRBit:  {},
	MemoryAreaARBit:  {},
	MemoryAreaDMBit:  {},
}

// IsBitArea reports whether code is one of the bit-access area codes.
func IsBitArea(code byte) bool {
	_, ok := bitAreas[code]
	return ok
}

// wordAreaOf maps a bit-access code to the word area it addresses.
var wordAreaOf = map[byte]byte{
	MemoryAreaCIOBit: MemoryAreaCIOWord,
	MemoryAreaWRBit:  MemoryAreaWRWord,
	MemoryAreaHRBit:  MemoryAreaHRWord,
	MemoryAreaARBit:  MemoryAreaARWord,
	MemoryAreaDMBit:  MemoryAreaDMWord,
}

// Controller status byte values.
const (
	StatusStop       byte = 0x00
	StatusRun        byte = 0x01
	StatusCPUStandby byte = 0x80
)

// Controller mode byte values.
const (
	ModeProgram byte = 0x00
	ModeDebug   byte = 0x01
	ModeMonitor byte = 0x02
	ModeRun     byte = 0x04
)

var statusNames = map[byte]string{
	StatusCPUStandby: "CPU_STANDBY",
	StatusStop:       "STOP",
	StatusRun:        "RUN",
}

var modeNames = map[byte]string{
	ModeProgram: "PROGRAM",
	ModeDebug:   "DEBUG",
	ModeMonitor: "MONITOR",
	ModeRun:     "RUN",
}

type errorFlag struct {
	name string
	mask uint16
}

// Fatal error data bits, in reporting order.
var fatalErrorFlags = []errorFlag{
	{"SYSTEM_ERROR", 1 << 6},
	{"IO_SETTING_ERROR", 1 << 10},
	{"IO_POINT_OVERFLOW", 1 << 11},
	{"CPU_BUS_ERROR", 1 << 14},
	{"MEMORY_ERROR", 1 << 15},
}

// Non-fatal error data bits, in reporting order.
var nonFatalErrorFlags = []errorFlag{
	{"PC_LINK_ERROR", 1 << 0},
	{"HOST_LINK_ERROR", 1 << 1},
	{"BATTERY_ERROR", 1 << 4},
	{"REMOTE_IO_ERROR", 1 << 5},
	{"SPECIAL_IO_UNIT_ERROR", 1 << 8},
	{"IO_COLLATE_ERROR", 1 << 9},
	{"SYSTEM_ERROR", 1 << 15},
}

func expandFlags(word uint16, flags []errorFlag) []string {
	names := []string{}
	for _, f := range flags {
		if word&f.mask != 0 {
			names = append(names, f.name)
		}
	}
	return names
}

func lookupName(names map[byte]string, v byte) string {
	if n, ok := names[v]; ok {
		return n
	}
	return "UNKNOWN"
}
