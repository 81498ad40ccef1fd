package wire

import "encoding/binary"

// HeaderSize is the fixed, compile-time-known size of an encoded Header:
// two NodeIDs (20 bytes each), two ActorIDs (4 bytes each), a payload
// length (4 bytes), an operation byte, and an 8-byte operation_data.
const HeaderSize = 20 + 20 + 4 + 4 + 4 + 1 + 8

// Header is the fixed-size BASP framing header. Field order here is the
// on-the-wire order: source_node, dest_node, source_actor, dest_actor,
// payload_len, operation, operation_data.
type Header struct {
	SourceNode    NodeID
	DestNode      NodeID
	SourceActor   ActorID
	DestActor     ActorID
	PayloadLen    uint32
	Operation     MessageType
	OperationData uint64
}

// EncodeHeader serializes h into a freshly allocated HeaderSize-byte slice.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	EncodeHeaderInto(buf, h)
	return buf
}

// EncodeHeaderInto writes h into buf, which must be at least HeaderSize
// bytes. EncodeHeader is built on it; WriteFrame back-patches its
// reserved region with EncodeHeader and Buffer.WriteAt.
func EncodeHeaderInto(buf []byte, h Header) {
	_ = buf[HeaderSize-1]
	off := 0
	off += encodeNodeID(buf[off:], h.SourceNode)
	off += encodeNodeID(buf[off:], h.DestNode)
	binary.BigEndian.PutUint32(buf[off:], uint32(h.SourceActor))
	off += 4
	binary.BigEndian.PutUint32(buf[off:], uint32(h.DestActor))
	off += 4
	binary.BigEndian.PutUint32(buf[off:], h.PayloadLen)
	off += 4
	buf[off] = byte(h.Operation)
	off++
	binary.BigEndian.PutUint64(buf[off:], h.OperationData)
}

// DecodeHeader parses a HeaderSize-byte record.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) != HeaderSize {
		return Header{}, ErrInvalidHeader
	}
	var h Header
	off := 0
	off += decodeNodeID(b[off:], &h.SourceNode)
	off += decodeNodeID(b[off:], &h.DestNode)
	h.SourceActor = ActorID(binary.BigEndian.Uint32(b[off:]))
	off += 4
	h.DestActor = ActorID(binary.BigEndian.Uint32(b[off:]))
	off += 4
	h.PayloadLen = binary.BigEndian.Uint32(b[off:])
	off += 4
	h.Operation = MessageType(b[off])
	off++
	h.OperationData = binary.BigEndian.Uint64(b[off:])
	return h, nil
}

func encodeNodeID(buf []byte, n NodeID) int {
	copy(buf[0:16], n.Digest[:])
	binary.BigEndian.PutUint32(buf[16:20], n.Instance)
	return 20
}

func decodeNodeID(buf []byte, out *NodeID) int {
	copy(out.Digest[:], buf[0:16])
	out.Instance = binary.BigEndian.Uint32(buf[16:20])
	return 20
}

// Valid reports whether h names a known MessageType and satisfies that
// type's structural constraints (spec §4.1).
func Valid(h Header) bool {
	if !h.Operation.valid() {
		return false
	}
	if h.PayloadLen > MaxPayload {
		return false
	}
	switch h.Operation {
	case ServerHandshake:
		return h.OperationData == ProtocolVersion
	case ClientHandshake, AnnounceProxy, Heartbeat:
		return h.PayloadLen == 0
	case DispatchMessage, KillProxyInstance:
		return true
	default:
		return false
	}
}
