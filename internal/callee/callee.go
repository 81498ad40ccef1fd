// Package callee declares the upcall contract the engine requires from the
// local actor system's adapter. The engine treats it as an opaque
// capability set supplied at construction; it never reaches into the
// proxy registry the callee owns.
package callee

import "github.com/basp-mesh/basp/internal/wire"

// Callee is the local actor-system adapter that receives decoded BASP
// events. Every method is synchronous and must not block the caller's
// receive loop (spec §4.6, §5).
type Callee interface {
	// LearnedNewNodeDirectly fires after promoting a peer from unknown or
	// indirect to direct. wasIndirect reports whether n had a prior
	// indirect route.
	LearnedNewNodeDirectly(n wire.NodeID, wasIndirect bool)

	// LearnedNewNodeIndirectly fires on the first indirect discovery of n
	// via a dispatch message.
	LearnedNewNodeIndirectly(n wire.NodeID)

	// FinalizeHandshake fires on every server_handshake, regardless of
	// whether it was accepted or deduplicated.
	FinalizeHandshake(peer wire.NodeID, aid wire.ActorID, interfaces []string)

	// ProxyAnnounced fires on announce_proxy_instance.
	ProxyAnnounced(src wire.NodeID, aid wire.ActorID)

	// KillProxy fires on every kill_proxy_instance addressed to this node,
	// with operation_data passed as reason. The wire does not distinguish a
	// local kill notification from a routing-failure reply, so both arrive
	// here.
	KillProxy(src wire.NodeID, aid wire.ActorID, reason wire.ExitReason)

	// Deliver fires on dispatch_message: a fully decoded actor-to-actor
	// message addressed to this node.
	Deliver(srcNode wire.NodeID, srcActor wire.ActorID, dstNode wire.NodeID, dstActor wire.ActorID, mid wire.MessageID, fstack []wire.ActorAddr, msg []byte)

	// HandleHeartbeat fires on an inbound heartbeat frame.
	HandleHeartbeat(src wire.NodeID)

	// PurgeState fires once per node rendered unreachable by an erase
	// cascade.
	PurgeState(n wire.NodeID)
}
