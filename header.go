package fins

// FinsAddress A FINS device address
type FinsAddress struct {
	Network byte `yaml:"network"`
	Node    byte `yaml:"node"`
	Unit    byte `yaml:"unit"`
}

// Header A FINS frame header
type Header struct {
	ICF byte
	RSV byte
	GCT byte
	Dst FinsAddress
	Src FinsAddress
	SID byte
}

const (
	icfBridgesBit          byte = 7
	icfMessageTypeBit      byte = 6
	icfResponseRequiredBit byte = 0
)

// DefaultHeader returns the command header used when none is configured:
// gateway count 2, destination 0.0.0 and source node 0x22.
func DefaultHeader() Header {
	return Header{
		ICF: 1 << icfBridgesBit,
		RSV: 0x00,
		GCT: 0x02,
		Dst: FinsAddress{0x00, 0x00, 0x00},
		Src: FinsAddress{0x00, 0x22, 0x00},
		SID: 0x00,
	}
}

// IsResponse reports whether the ICF marks the frame as a response.
func (h Header) IsResponse() bool {
	return h.ICF&(1<<icfMessageTypeBit) != 0
}

// Bytes encodes the header in wire order.
func (h Header) Bytes() []byte {
	return []byte{
		h.ICF, h.RSV, h.GCT,
		h.Dst.Network, h.Dst.Node, h.Dst.Unit,
		h.Src.Network, h.Src.Node, h.Src.Unit,
		h.SID,
	}
}

// response returns the header a controller answers h with.
func (h Header) response() Header {
	return Header{
		ICF: h.ICF | 1<<icfMessageTypeBit,
		RSV: h.RSV,
		GCT: h.GCT,
		Dst: h.Src,
		Src: h.Dst,
		SID: h.SID,
	}
}

func decodeHeader(bytes []byte) Header {
	return Header{
		ICF: bytes[ICF_INDEX],
		RSV: bytes[RSV_INDEX],
		GCT: bytes[GATEWAY_COUNT_INDEX],
		Dst: FinsAddress{bytes[DST_NETWORK_INDEX], bytes[DST_NODE_INDEX], bytes[DST_UNIT_INDEX]},
		Src: FinsAddress{bytes[SRC_NETWORK_INDEX], bytes[SRC_NODE_INDEX], bytes[SRC_UNIT_INDEX]},
		SID: bytes[SERVICE_ID_INDEX],
	}
}
