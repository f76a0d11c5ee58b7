package fins

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// MemoryAddress is a parsed controller memory address.
type MemoryAddress struct {
	Area   string // area letters as written, e.g. "D" or "CB"
	Code   byte   // area code sent on the wire
	Word   uint16
	Bit    byte // 0..15
	HasBit bool // an explicit :bit suffix was given
}

// ParseAddress parses <AREA><WORD>[:<BIT>], e.g. "D00100", "CB1:00" or
// "HB50:03". Area letters are case-insensitive and the bit is masked to
// 4 bits.
//
// Unknown area letters yield an *UnknownMemoryAreaError together with an
// address carrying DefaultMemoryArea, so callers that need the legacy
// behaviour can still use the result.
func ParseAddress(s string) (MemoryAddress, error) {
	in := strings.ToUpper(strings.TrimSpace(s))
	i := 0
	for i < len(in) && in[i] >= 'A' && in[i] <= 'Z' {
		i++
	}
	area := in[:i]

	j := i
	for j < len(in) && in[j] >= '0' && in[j] <= '9' {
		j++
	}
	if j == i {
		return MemoryAddress{}, &AddressError{Address: s, Reason: "missing word address"}
	}
	word, err := strconv.ParseUint(in[i:j], 10, 16)
	if err != nil {
		return MemoryAddress{}, &AddressError{Address: s, Reason: "word address out of range"}
	}

	addr := MemoryAddress{Area: area, Word: uint16(word)}
	if j < len(in) {
		if in[j] != ':' {
			return MemoryAddress{}, &AddressError{Address: s, Reason: fmt.Sprintf("unexpected %q", in[j])}
		}
		k := j + 1
		if k == len(in) {
			return MemoryAddress{}, &AddressError{Address: s, Reason: "missing bit after ':'"}
		}
		for p := k; p < len(in); p++ {
			if in[p] < '0' || in[p] > '9' {
				return MemoryAddress{}, &AddressError{Address: s, Reason: fmt.Sprintf("unexpected %q", in[p])}
			}
		}
		bit, err := strconv.ParseUint(in[k:], 10, 8)
		if err != nil {
			return MemoryAddress{}, &AddressError{Address: s, Reason: "bit out of range"}
		}
		addr.Bit = byte(bit) & 0x0f
		addr.HasBit = true
	}

	code, ok := MemoryAreas[area]
	if !ok {
		addr.Code = DefaultMemoryArea
		return addr, &UnknownMemoryAreaError{Area: area}
	}
	addr.Code = code
	return addr, nil
}

// IsBit reports whether requests against the address are bit-typed: replies
// carry one byte per element instead of one word.
func (a MemoryAddress) IsBit() bool {
	return a.HasBit || IsBitArea(a.Code)
}

// Bytes encodes the address as {area, word hi, word lo, bit}.
func (a MemoryAddress) Bytes() []byte {
	bytes := make([]byte, FINS_MEMORY_ADDR_SIZE)
	bytes[0] = a.Code
	binary.BigEndian.PutUint16(bytes[1:3], a.Word)
	bytes[3] = a.Bit & 0x0f
	return bytes
}

func (a MemoryAddress) String() string {
	if a.HasBit {
		return fmt.Sprintf("%s%d:%02d", a.Area, a.Word, a.Bit)
	}
	return fmt.Sprintf("%s%d", a.Area, a.Word)
}

// DecodeAddress decodes a 4 byte address block.
func DecodeAddress(data []byte) (MemoryAddress, error) {
	if len(data) < FINS_MEMORY_ADDR_SIZE {
		return MemoryAddress{}, fmt.Errorf("memory address needs %d bytes, got %d", FINS_MEMORY_ADDR_SIZE, len(data))
	}
	code := data[0]
	letters, ok := areaLetters[code]
	if !ok {
		return MemoryAddress{}, fmt.Errorf("unknown memory area code 0x%02X", code)
	}
	return MemoryAddress{
		Area:   letters,
		Code:   code,
		Word:   binary.BigEndian.Uint16(data[1:3]),
		Bit:    data[3] & 0x0f,
		HasBit: IsBitArea(code),
	}, nil
}
