package engine

import "github.com/basp-mesh/basp/internal/wire"

// WriteServerHandshake appends a server_handshake frame to buf. If port
// names a published actor, the payload carries that actor's id and
// interface set; otherwise the payload is empty. Sent by the accepting
// side first after a new connection is established (spec §3).
func (e *Engine) WriteServerHandshake(buf *wire.Buffer, port *uint16) {
	hdr := wire.Header{
		SourceNode:    e.Self,
		DestNode:      wire.InvalidNodeID,
		Operation:     wire.ServerHandshake,
		OperationData: wire.ProtocolVersion,
	}
	wire.WriteFrame(buf, hdr, func(b *wire.Buffer) {
		if port == nil {
			return
		}
		entry, ok := e.pub.Lookup(*port)
		if !ok {
			return
		}
		interfaces := make([]string, 0, len(entry.Interface))
		for i := range entry.Interface {
			interfaces = append(interfaces, i)
		}
		b.Append(wire.EncodeHandshakePayload(wire.HandshakePayload{Actor: entry.Actor, Interfaces: interfaces}))
	})
}

// WriteClientHandshake appends the connecting side's empty-payload reply
// to a server_handshake.
func WriteClientHandshake(buf *wire.Buffer, self, remote wire.NodeID) {
	hdr := wire.Header{SourceNode: self, DestNode: remote, Operation: wire.ClientHandshake}
	wire.WriteFrame(buf, hdr, nil)
}

// WriteDispatchError appends a kill_proxy_instance frame used as a
// routing-failure reply: operation_data carries ec, and the payload is
// the original header followed by the original payload, verbatim (spec
// §4.5 step 3, §9).
func WriteDispatchError(buf *wire.Buffer, source, dest wire.NodeID, ec wire.ErrorCode, originalHeader, originalPayload []byte) {
	hdr := wire.Header{
		SourceNode:    source,
		DestNode:      dest,
		Operation:     wire.KillProxyInstance,
		OperationData: uint64(ec),
	}
	wire.WriteFrame(buf, hdr, func(b *wire.Buffer) {
		b.Append(originalHeader)
		b.Append(originalPayload)
	})
}

// WriteKillProxyInstance appends a local proxy-kill notification.
func WriteKillProxyInstance(buf *wire.Buffer, self, dest wire.NodeID, aid wire.ActorID, reason wire.ExitReason) {
	hdr := wire.Header{
		SourceNode:    self,
		DestNode:      dest,
		SourceActor:   aid,
		Operation:     wire.KillProxyInstance,
		OperationData: uint64(reason),
	}
	wire.WriteFrame(buf, hdr, nil)
}

// WriteHeartbeat appends an empty-payload liveness probe.
func WriteHeartbeat(buf *wire.Buffer, self, remote wire.NodeID) {
	hdr := wire.Header{SourceNode: self, DestNode: remote, Operation: wire.Heartbeat}
	wire.WriteFrame(buf, hdr, nil)
}
