package fins

import (
	"encoding/binary"
	"encoding/hex"
)

// AreaValue is one element of a multiple memory area read.
type AreaValue struct {
	Code  byte
	Bit   bool
	Value int16
}

// Reply is a decoded inbound frame.
type Reply struct {
	RemoteHost   string
	Header       Header
	SID          byte
	CommandCode  Command
	Command      string // echoed command, hex
	ResponseCode string // end code, hex

	// CONTROLLER_STATUS_READ
	Status         string
	Mode           string
	FatalErrors    []string
	NonFatalErrors []string

	// MEMORY_AREA_READ and MEMORY_AREA_READ_MULTI. A read answered with a
	// single byte sets Scalar and holds the value in Values[0].
	Values []int16
	Scalar bool
	Width  Width

	// MEMORY_AREA_READ_MULTI, in request order
	Items []AreaValue
}

// OK reports a normal completion response code.
func (r *Reply) OK() bool {
	return r.ResponseCode == "0000"
}

// ResponseText describes the response code.
func (r *Reply) ResponseText() string {
	return ResponseText(r.ResponseCode)
}

// Value returns the scalar of a single-element read.
func (r *Reply) Value() (int16, bool) {
	if !r.Scalar || len(r.Values) != 1 {
		return 0, false
	}
	return r.Values[0], true
}

// Err returns an EndCodeError for a non-normal response code.
func (r *Reply) Err() error {
	if r.OK() {
		return nil
	}
	return EndCodeError{EndCode: r.ResponseCode}
}

// DecodeReply decodes a reply datagram received from remoteHost. seq, when
// not nil, supplies the width recorded for the echoed SID; that entry is
// consumed.
func DecodeReply(buf []byte, remoteHost string, seq *SequenceTracker) (*Reply, error) {
	if len(buf) < FINS_REPLY_MIN_SIZE {
		return nil, &ShortFrameError{Length: len(buf)}
	}
	r := decodeDefault(buf, remoteHost)
	var width Width
	if seq != nil {
		width = seq.Consume(r.SID)
	}

	payload := buf[RESPONSE_DATA_INDEX:]
	switch r.CommandCode {
	case CommandControllerStatusRead:
		decodeStatusRead(r, payload)
	case CommandMemoryAreaRead:
		decodeMemoryAreaRead(r, payload, width)
	case CommandMemoryAreaReadMulti:
		decodeMemoryAreaReadMulti(r, payload)
	}
	return r, nil
}

func decodeDefault(buf []byte, remoteHost string) *Reply {
	header := decodeHeader(buf[:FINS_HEADER_SIZE])
	cmd := buf[COMMAND_CODE_INDEX : COMMAND_CODE_INDEX+FINS_COMMAND_CODE_SIZE]
	code := buf[RESPONSE_END_CODE_INDEX : RESPONSE_END_CODE_INDEX+FINS_END_CODE_SIZE]
	return &Reply{
		RemoteHost:   remoteHost,
		Header:       header,
		SID:          header.SID,
		CommandCode:  Command(binary.BigEndian.Uint16(cmd)),
		Command:      hex.EncodeToString(cmd),
		ResponseCode: hex.EncodeToString(code),
	}
}

// payload: status, mode, fatal error word, non-fatal error word
func decodeStatusRead(r *Reply, payload []byte) {
	r.FatalErrors = []string{}
	r.NonFatalErrors = []string{}
	if len(payload) < 2 {
		return
	}
	r.Status = lookupName(statusNames, payload[0])
	r.Mode = lookupName(modeNames, payload[1])
	if len(payload) >= 4 {
		r.FatalErrors = expandFlags(binary.BigEndian.Uint16(payload[2:4]), fatalErrorFlags)
	}
	if len(payload) >= 6 {
		r.NonFatalErrors = expandFlags(binary.BigEndian.Uint16(payload[4:6]), nonFatalErrorFlags)
	}
}

func decodeMemoryAreaRead(r *Reply, payload []byte, width Width) {
	if width == WidthUnknown {
		width = WidthWord
		if len(payload) == 1 {
			width = WidthBit
		}
	}
	r.Width = width

	if len(payload) == 1 {
		r.Values = []int16{int16(int8(payload[0]))}
		r.Scalar = true
		return
	}

	if width == WidthBit {
		r.Values = make([]int16, len(payload))
		for i, b := range payload {
			r.Values[i] = int16(int8(b))
		}
		return
	}
	// an odd trailing byte cannot form a word and is dropped
	r.Values = make([]int16, len(payload)/2)
	for i := range r.Values {
		r.Values[i] = int16(binary.BigEndian.Uint16(payload[i*2 : i*2+2]))
	}
}

func decodeMemoryAreaReadMulti(r *Reply, payload []byte) {
	r.Items = []AreaValue{}
	r.Values = []int16{}
	for i := 0; i < len(payload); {
		code := payload[i]
		i++
		item := AreaValue{Code: code, Bit: IsBitArea(code)}
		if item.Bit {
			if i+1 > len(payload) {
				return
			}
			item.Value = int16(int8(payload[i]))
			i++
		} else {
			if i+2 > len(payload) {
				return
			}
			item.Value = int16(binary.BigEndian.Uint16(payload[i : i+2]))
			i += 2
		}
		r.Items = append(r.Items, item)
		r.Values = append(r.Values, item.Value)
	}
}
