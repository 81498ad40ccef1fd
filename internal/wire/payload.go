package wire

import "encoding/binary"

// HandshakePayload is the optional body of a server_handshake frame:
// the handshaking node's published actor (if any) and the interface
// names it advertises for it.
type HandshakePayload struct {
	Actor      ActorID
	Interfaces []string
}

// EncodeHandshakePayload serializes p as: actor_id(u32), count(u16), then
// count repetitions of len(u16)+bytes.
func EncodeHandshakePayload(p HandshakePayload) []byte {
	size := 4 + 2
	for _, s := range p.Interfaces {
		size += 2 + len(s)
	}
	buf := make([]byte, size)
	off := 0
	binary.BigEndian.PutUint32(buf[off:], uint32(p.Actor))
	off += 4
	binary.BigEndian.PutUint16(buf[off:], uint16(len(p.Interfaces)))
	off += 2
	for _, s := range p.Interfaces {
		binary.BigEndian.PutUint16(buf[off:], uint16(len(s)))
		off += 2
		copy(buf[off:], s)
		off += len(s)
	}
	return buf
}

// DecodeHandshakePayload parses an empty-or-present handshake payload. An
// empty slice decodes to the zero value: ActorID invalid, no interfaces.
func DecodeHandshakePayload(b []byte) (HandshakePayload, error) {
	if len(b) == 0 {
		return HandshakePayload{Actor: InvalidActorID}, nil
	}
	if len(b) < 6 {
		return HandshakePayload{}, ErrPayloadMalformed
	}
	var p HandshakePayload
	off := 0
	p.Actor = ActorID(binary.BigEndian.Uint32(b[off:]))
	off += 4
	count := int(binary.BigEndian.Uint16(b[off:]))
	off += 2
	p.Interfaces = make([]string, 0, count)
	for i := 0; i < count; i++ {
		if len(b)-off < 2 {
			return HandshakePayload{}, ErrPayloadMalformed
		}
		l := int(binary.BigEndian.Uint16(b[off:]))
		off += 2
		if len(b)-off < l {
			return HandshakePayload{}, ErrPayloadMalformed
		}
		p.Interfaces = append(p.Interfaces, string(b[off:off+l]))
		off += l
	}
	if off != len(b) {
		return HandshakePayload{}, ErrPayloadMalformed
	}
	return p, nil
}

// DispatchPayload is the body of a dispatch_message frame: the forwarding
// stack accumulated so far plus the opaque serialized application
// message.
type DispatchPayload struct {
	ForwardingStack []ActorAddr
	Message         []byte
}

// EncodeDispatchPayload serializes p as: count(u16) of ActorAddr records
// (each actor u32 + node 20 bytes), then msg_len(u32) + the message bytes.
func EncodeDispatchPayload(p DispatchPayload) []byte {
	size := 2 + len(p.ForwardingStack)*(4+20) + 4 + len(p.Message)
	buf := make([]byte, size)
	off := 0
	binary.BigEndian.PutUint16(buf[off:], uint16(len(p.ForwardingStack)))
	off += 2
	for _, addr := range p.ForwardingStack {
		binary.BigEndian.PutUint32(buf[off:], uint32(addr.Actor))
		off += 4
		off += encodeNodeID(buf[off:], addr.Node)
	}
	binary.BigEndian.PutUint32(buf[off:], uint32(len(p.Message)))
	off += 4
	copy(buf[off:], p.Message)
	return buf
}

// DecodeDispatchPayload parses a dispatch_message payload.
func DecodeDispatchPayload(b []byte) (DispatchPayload, error) {
	if len(b) < 2 {
		return DispatchPayload{}, ErrPayloadMalformed
	}
	off := 0
	count := int(binary.BigEndian.Uint16(b[off:]))
	off += 2
	stack := make([]ActorAddr, 0, count)
	for i := 0; i < count; i++ {
		if len(b)-off < 4+20 {
			return DispatchPayload{}, ErrPayloadMalformed
		}
		var addr ActorAddr
		addr.Actor = ActorID(binary.BigEndian.Uint32(b[off:]))
		off += 4
		off += decodeNodeID(b[off:], &addr.Node)
		stack = append(stack, addr)
	}
	if len(b)-off < 4 {
		return DispatchPayload{}, ErrPayloadMalformed
	}
	msgLen := int(binary.BigEndian.Uint32(b[off:]))
	off += 4
	if len(b)-off != msgLen {
		return DispatchPayload{}, ErrPayloadMalformed
	}
	msg := make([]byte, msgLen)
	copy(msg, b[off:])
	return DispatchPayload{ForwardingStack: stack, Message: msg}, nil
}
