package fins

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replyFor answers f the way a controller would.
func replyFor(t *testing.T, f Frame, endCode uint16, data ...byte) []byte {
	t.Helper()
	req, err := decodeRequest(f.Bytes)
	require.NoError(t, err)
	return encodeResponse(response{req.header.response(), req.commandCode, endCode, data})
}

func TestDecodeReplyWordRead(t *testing.T) {
	seq := NewSequenceTracker(0)
	b := NewFrameBuilder(DefaultHeader(), seq)
	f := b.Read(mustParse(t, "D00000"), 10)

	want := []int16{0, 1, -1, 100, 32767, -32768, 7, 8, 9, 10}
	data := make([]byte, 0, 20)
	for _, v := range want {
		data = append(data, uint16Bytes(uint16(v))...)
	}

	r, err := DecodeReply(replyFor(t, f, EndCodeNormalCompletion, data...), "10.0.0.1", seq)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", r.RemoteHost)
	assert.Equal(t, f.SID, r.SID)
	assert.Equal(t, "0101", r.Command)
	assert.Equal(t, "0000", r.ResponseCode)
	assert.True(t, r.OK())
	assert.NoError(t, r.Err())
	assert.Equal(t, WidthWord, r.Width)
	assert.False(t, r.Scalar)
	assert.Equal(t, want, r.Values)

	// the width entry has been retired
	assert.Equal(t, WidthUnknown, seq.Consume(f.SID))
}

func TestDecodeReplyScalarVersusSequence(t *testing.T) {
	seq := NewSequenceTracker(0)
	b := NewFrameBuilder(DefaultHeader(), seq)

	// one byte payload: scalar
	f := b.Read(mustParse(t, "CB1:00"), 1)
	r, err := DecodeReply(replyFor(t, f, EndCodeNormalCompletion, 0x01), "", seq)
	require.NoError(t, err)
	assert.True(t, r.Scalar)
	v, ok := r.Value()
	assert.True(t, ok)
	assert.Equal(t, int16(1), v)

	// one word payload: a single element sequence
	f = b.Read(mustParse(t, "D10"), 1)
	r, err = DecodeReply(replyFor(t, f, EndCodeNormalCompletion, 0x00, 0x05), "", seq)
	require.NoError(t, err)
	assert.False(t, r.Scalar)
	assert.Equal(t, []int16{5}, r.Values)
	_, ok = r.Value()
	assert.False(t, ok)
}

func TestDecodeReplyBitRead(t *testing.T) {
	seq := NewSequenceTracker(0)
	b := NewFrameBuilder(DefaultHeader(), seq)
	f := b.Read(mustParse(t, "CB1:00"), 2)

	r, err := DecodeReply(replyFor(t, f, EndCodeNormalCompletion, 0x01, 0x00), "", seq)
	require.NoError(t, err)
	assert.Equal(t, WidthBit, r.Width)
	assert.False(t, r.Scalar)
	assert.Equal(t, []int16{1, 0}, r.Values)

	// the same bytes against a word request decode as one word
	f = b.Read(mustParse(t, "C1"), 1)
	r, err = DecodeReply(replyFor(t, f, EndCodeNormalCompletion, 0x01, 0x00), "", seq)
	require.NoError(t, err)
	assert.Equal(t, []int16{256}, r.Values)
}

func TestDecodeReplyUnknownWidth(t *testing.T) {
	f := NewFrameBuilder(DefaultHeader(), nil).Read(mustParse(t, "D1"), 2)

	r, err := DecodeReply(replyFor(t, f, EndCodeNormalCompletion, 0x00, 0x02, 0x00, 0x03, 0x09), "", nil)
	require.NoError(t, err)
	assert.Equal(t, WidthWord, r.Width)
	assert.Equal(t, []int16{2, 3}, r.Values, "odd trailing byte is dropped")

	r, err = DecodeReply(replyFor(t, f, EndCodeNormalCompletion, 0xFF), "", nil)
	require.NoError(t, err)
	assert.Equal(t, WidthBit, r.Width)
	assert.Equal(t, []int16{-1}, r.Values)
}

func TestDecodeReplyReadMultiple(t *testing.T) {
	seq := NewSequenceTracker(0)
	b := NewFrameBuilder(DefaultHeader(), seq)
	f := b.ReadMultiple([]MemoryAddress{mustParse(t, "HB1:00"), mustParse(t, "W0")})

	r, err := DecodeReply(replyFor(t, f, EndCodeNormalCompletion, 0x32, 0x01, 0xB1, 0x00, 0x05), "", seq)
	require.NoError(t, err)
	assert.Equal(t, []AreaValue{
		{Code: MemoryAreaHRBit, Bit: true, Value: 1},
		{Code: MemoryAreaWRWord, Bit: false, Value: 5},
	}, r.Items)
	assert.Equal(t, []int16{1, 5}, r.Values)
}

func TestDecodeReplyReadMultipleTruncated(t *testing.T) {
	f := NewFrameBuilder(DefaultHeader(), nil).ReadMultiple([]MemoryAddress{mustParse(t, "D0"), mustParse(t, "D1")})

	r, err := DecodeReply(replyFor(t, f, EndCodeNormalCompletion, 0x82, 0x00, 0x01, 0x82, 0x00), "", nil)
	require.NoError(t, err)
	assert.Equal(t, []AreaValue{{Code: MemoryAreaDMWord, Value: 1}}, r.Items)

	r, err = DecodeReply(replyFor(t, f, EndCodeNormalCompletion), "", nil)
	require.NoError(t, err)
	assert.Empty(t, r.Items)
	assert.NotNil(t, r.Items)
}

func TestDecodeReplyStatus(t *testing.T) {
	f := NewFrameBuilder(DefaultHeader(), nil).Control(CommandControllerStatusRead)

	r, err := DecodeReply(replyFor(t, f, EndCodeNormalCompletion, 0x01, 0x04, 0x00, 0x00, 0x00, 0x00), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "RUN", r.Status)
	assert.Equal(t, "RUN", r.Mode)
	assert.Empty(t, r.FatalErrors)
	assert.Empty(t, r.NonFatalErrors)

	r, err = DecodeReply(replyFor(t, f, EndCodeNormalCompletion, 0x80, 0x02, 0x80, 0x40, 0x00, 0x11), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "CPU_STANDBY", r.Status)
	assert.Equal(t, "MONITOR", r.Mode)
	assert.Equal(t, []string{"SYSTEM_ERROR", "MEMORY_ERROR"}, r.FatalErrors)
	assert.Equal(t, []string{"PC_LINK_ERROR", "BATTERY_ERROR"}, r.NonFatalErrors)

	r, err = DecodeReply(replyFor(t, f, EndCodeNormalCompletion, 0x42, 0x42), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "UNKNOWN", r.Status)
	assert.Equal(t, "UNKNOWN", r.Mode)
}

func TestDecodeReplyDefault(t *testing.T) {
	b := NewFrameBuilder(DefaultHeader(), nil)
	f, err := b.Write(mustParse(t, "D1"), []uint16{1})
	require.NoError(t, err)

	r, err := DecodeReply(replyFor(t, f, EndCodeAddressRangeExceeded), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "0102", r.Command)
	assert.Equal(t, "1103", r.ResponseCode)
	assert.False(t, r.OK())
	assert.Nil(t, r.Values)

	var endErr EndCodeError
	require.True(t, errors.As(r.Err(), &endErr))
	assert.Equal(t, "1103", endErr.EndCode)
	assert.Contains(t, r.Err().Error(), ResponseText("1103"))
}

func TestDecodeReplyShortFrame(t *testing.T) {
	_, err := DecodeReply([]byte{0xC0, 0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x01, 0x01, 0x00}, "", nil)
	var short *ShortFrameError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, 13, short.Length)
}

func TestResponseText(t *testing.T) {
	assert.Equal(t, "Completed normally", ResponseText("0000"))
	assert.Equal(t, "First address in inaccessible area", ResponseText("1103"))
	assert.Equal(t, "An incorrect parameter code has been specified", ResponseText("110C"))
	// relay error flags are ignored
	assert.Equal(t, "First address in inaccessible area", ResponseText("1143"))
	assert.Contains(t, ResponseText("beef"), "Unknown response code")
}
