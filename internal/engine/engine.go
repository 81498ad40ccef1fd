// Package engine implements the BASP instance protocol engine: the
// per-connection receive state machine, the handshake protocol, message
// forwarding, and the outbound frame writers (spec §4.5).
package engine

import (
	"context"
	"errors"

	"github.com/basp-mesh/basp/internal/callee"
	"github.com/basp-mesh/basp/internal/hooks"
	"github.com/basp-mesh/basp/internal/registry"
	"github.com/basp-mesh/basp/internal/routing"
	"github.com/basp-mesh/basp/internal/wire"
	"github.com/rs/zerolog"
)

// errRouteVanished signals the invariant break where a route just added
// via AddDirect fails to resolve on the very next Lookup.
var errRouteVanished = errors.New("engine: route vanished immediately after being added")

// Broker is the capability the engine requires from the out-of-scope byte
// transport (spec §5, §6): per-connection write buffers and a flush
// signal. The broker owns the buffers; the engine only borrows them
// during a call.
type Broker interface {
	WriteBuffer(h wire.ConnectionHandle) *wire.Buffer
	Flush(h wire.ConnectionHandle)
}

// Engine is the BASP instance protocol engine. It is single-threaded
// cooperative (spec §5): every exported method must run on the broker's
// event-loop goroutine. It holds no internal locking of its own beyond
// what routing.Table and registry.PublishedActors already provide for
// read-only cross-goroutine inspection.
type Engine struct {
	Self   wire.NodeID
	broker Broker
	routes *routing.Table
	pub    *registry.PublishedActors
	callee callee.Callee
	hooks  *hooks.Notifier
	log    zerolog.Logger
}

// New builds an Engine over the given self NodeID, broker, callee, and
// hook notifier. It always starts with a fresh, empty routing table and
// published-actor registry.
func New(self wire.NodeID, broker Broker, c callee.Callee, h *hooks.Notifier, log zerolog.Logger) *Engine {
	return &Engine{
		Self:   self,
		broker: broker,
		routes: routing.New(),
		pub:    registry.New(),
		callee: c,
		hooks:  h,
		log:    log,
	}
}

// SetBroker attaches the broker the engine writes through. Broker and
// Engine are mutually referential (the broker drives the engine's Handle,
// the engine writes through the broker's buffers), so construction is
// two-phase: New the engine with a nil broker, New the broker over the
// engine, then SetBroker to close the loop.
func (e *Engine) SetBroker(b Broker) { e.broker = b }

// Routes exposes the engine's routing table for read-only inspection
// (cmd/baspctl, the admin HTTP surface).
func (e *Engine) Routes() *routing.Table { return e.routes }

// Published exposes the engine's published-actor registry for read-only
// inspection and for add_published_actor/remove_published_actor wiring.
func (e *Engine) Published() *registry.PublishedActors { return e.pub }

// AddPublishedActor registers actor at port, overwriting any prior entry,
// and notifies the actor_published hook.
func (e *Engine) AddPublishedActor(port uint16, actor wire.ActorID, interfaces []string) {
	e.pub.Add(port, actor, interfaces)
	e.hooks.ActorPublished(hooks.ActorPublishedEvent{Port: port, Actor: actor})
}

func (e *Engine) bufFor(h wire.ConnectionHandle) *wire.Buffer {
	return e.broker.WriteBuffer(h)
}

// fail is the single cleanup path (spec §4.5 step 1, §7): log why, erase
// the direct route for h (idempotent), purge the nodes that fall out of
// the routing table as a result, and tell the broker to drop the
// connection.
func (e *Engine) fail(h wire.ConnectionHandle, reason error) ConnectionState {
	e.log.Warn().Err(reason).Uint64("handle", uint64(h)).Msg("connection failed, closing")
	e.routes.EraseDirect(h, e.callee.PurgeState)
	return CloseConnection
}

// closeConnection erases the direct route for h without logging it as a
// failure: used for handshake paths where the far end behaved correctly
// but the connection still cannot continue (a self-handshake loopback
// probe, a re-announced already-known peer).
func (e *Engine) closeConnection(h wire.ConnectionHandle) ConnectionState {
	e.routes.EraseDirect(h, e.callee.PurgeState)
	return CloseConnection
}

// Handle is the broker-facing entry point (spec §4.5, §6). chunk is
// exactly the number of bytes Handle last asked for: wire.HeaderSize when
// isPayload is false, or slot.PayloadLen when isPayload is true. slot is
// the caller-preserved per-connection header cell.
func (e *Engine) Handle(ctx context.Context, chunk []byte, h wire.ConnectionHandle, slot *wire.Header, isPayload bool) ConnectionState {
	var payload []byte
	if !isPayload {
		hdr, err := wire.DecodeHeader(chunk)
		if err != nil {
			return e.fail(h, err)
		}
		if !wire.Valid(hdr) {
			return e.fail(h, wire.ErrInvalidHeader)
		}
		*slot = hdr
		if hdr.PayloadLen > 0 {
			return AwaitPayload
		}
	} else {
		if uint32(len(chunk)) != slot.PayloadLen {
			return e.fail(h, wire.ErrPayloadLenMismatch)
		}
		payload = chunk
	}

	hdr := *slot
	return e.dispatch(ctx, hdr, payload, h)
}

func (e *Engine) dispatch(ctx context.Context, hdr wire.Header, payload []byte, h wire.ConnectionHandle) ConnectionState {
	if e.shouldForward(hdr) {
		return e.forward(hdr, payload, h)
	}

	switch hdr.Operation {
	case wire.ServerHandshake:
		return e.handleServerHandshake(hdr, payload, h)
	case wire.ClientHandshake:
		return e.handleClientHandshake(hdr, h)
	case wire.DispatchMessage:
		return e.handleDispatchMessage(hdr, payload, h)
	case wire.AnnounceProxy:
		e.callee.ProxyAnnounced(hdr.SourceNode, hdr.DestActor)
		return AwaitHeader
	case wire.KillProxyInstance:
		e.callee.KillProxy(hdr.SourceNode, hdr.SourceActor, wire.ExitReason(hdr.OperationData))
		return AwaitHeader
	case wire.Heartbeat:
		e.callee.HandleHeartbeat(hdr.SourceNode)
		return AwaitHeader
	default:
		return e.fail(h, wire.ErrUnknownOperation)
	}
}

func (e *Engine) shouldForward(hdr wire.Header) bool {
	if hdr.Operation == wire.ServerHandshake || hdr.Operation == wire.ClientHandshake || hdr.Operation == wire.Heartbeat {
		return false
	}
	return hdr.DestNode != e.Self
}

// forward implements spec §4.5 step 3: look up a route to hdr.DestNode
// and either relay the frame unchanged or report the failure.
func (e *Engine) forward(hdr wire.Header, payload []byte, from wire.ConnectionHandle) ConnectionState {
	route, ok := e.routes.Lookup(hdr.DestNode, e.bufFor)
	if ok {
		wire.WriteFrame(route.Buffer, hdr, func(b *wire.Buffer) { b.Append(payload) })
		e.broker.Flush(route.Handle)
		e.hooks.MessageForwarded(hooks.MessageForwardedEvent{
			Source: hdr.SourceNode, Dest: hdr.DestNode, NextHop: route.NextHop, Operation: hdr.Operation,
		})
		return AwaitHeader
	}

	repliedTo := wire.InvalidNodeID
	if hdr.SourceNode == e.Self {
		e.log.Warn().Str("dest", hdr.DestNode.String()).Msg("dropping spoofed-source frame with no route")
	} else if rev, ok := e.routes.Lookup(hdr.SourceNode, e.bufFor); ok {
		original := wire.EncodeHeader(hdr)
		WriteDispatchError(rev.Buffer, e.Self, hdr.SourceNode, wire.NoRouteToDestination, original, payload)
		e.broker.Flush(rev.Handle)
		repliedTo = hdr.SourceNode
	} else {
		e.log.Warn().Str("source", hdr.SourceNode.String()).Str("dest", hdr.DestNode.String()).Msg("no route to destination or source, dropping")
	}
	e.hooks.MessageForwardingFailed(hooks.MessageForwardingFailedEvent{
		Source: hdr.SourceNode, Dest: hdr.DestNode, RepliedTo: repliedTo,
	})
	return AwaitHeader
}

func (e *Engine) handleServerHandshake(hdr wire.Header, payload []byte, h wire.ConnectionHandle) ConnectionState {
	hp, err := wire.DecodeHandshakePayload(payload)
	if err != nil {
		return e.fail(h, err)
	}

	if hdr.SourceNode == e.Self {
		e.callee.FinalizeHandshake(hdr.SourceNode, hp.Actor, hp.Interfaces)
		return e.closeConnection(h)
	}
	if e.routes.LookupDirectByNode(hdr.SourceNode) != wire.InvalidHandle {
		e.callee.FinalizeHandshake(hdr.SourceNode, hp.Actor, hp.Interfaces)
		return e.closeConnection(h)
	}

	e.routes.AddDirect(h, hdr.SourceNode)
	wasIndirect := e.routes.EraseIndirect(hdr.SourceNode)
	route, ok := e.routes.Lookup(hdr.SourceNode, e.bufFor)
	if !ok {
		return e.fail(h, errRouteVanished)
	}
	WriteClientHandshake(route.Buffer, e.Self, hdr.SourceNode)
	e.callee.LearnedNewNodeDirectly(hdr.SourceNode, wasIndirect)
	e.callee.FinalizeHandshake(hdr.SourceNode, hp.Actor, hp.Interfaces)
	e.broker.Flush(route.Handle)
	return AwaitHeader
}

func (e *Engine) handleClientHandshake(hdr wire.Header, h wire.ConnectionHandle) ConnectionState {
	if e.routes.LookupDirectByNode(hdr.SourceNode) != wire.InvalidHandle {
		return AwaitHeader
	}
	e.routes.AddDirect(h, hdr.SourceNode)
	wasIndirect := e.routes.EraseIndirect(hdr.SourceNode)
	e.callee.LearnedNewNodeDirectly(hdr.SourceNode, wasIndirect)
	return AwaitHeader
}

func (e *Engine) handleDispatchMessage(hdr wire.Header, payload []byte, h wire.ConnectionHandle) ConnectionState {
	dp, err := wire.DecodeDispatchPayload(payload)
	if err != nil {
		return e.fail(h, err)
	}

	lastHop := e.routes.LookupDirectByHandle(h)
	if hdr.SourceNode != wire.InvalidNodeID && hdr.SourceNode != e.Self && hdr.SourceNode != lastHop &&
		e.routes.LookupDirectByNode(hdr.SourceNode) == wire.InvalidHandle {
		if e.routes.AddIndirect(lastHop, hdr.SourceNode) {
			e.callee.LearnedNewNodeIndirectly(hdr.SourceNode)
		}
	}

	e.callee.Deliver(hdr.SourceNode, hdr.SourceActor, hdr.DestNode, hdr.DestActor, wire.MessageID(hdr.OperationData), dp.ForwardingStack, dp.Message)
	return AwaitHeader
}

// HandleHeartbeat emits a heartbeat frame on every direct peer's write
// buffer and flushes each (spec §4.5, scenario S5).
func (e *Engine) HandleHeartbeat(ctx context.Context) {
	for _, peer := range e.routes.DirectPeers() {
		buf := e.bufFor(peer.Handle)
		WriteHeartbeat(buf, e.Self, peer.Node)
		e.broker.Flush(peer.Handle)
	}
}

// HandleNodeShutdown runs the erase cascade for node, ignoring an invalid
// node.
func (e *Engine) HandleNodeShutdown(node wire.NodeID) {
	if node == wire.InvalidNodeID {
		return
	}
	e.routes.Erase(node, e.callee.PurgeState)
}

// Dispatch is the outbound application-traffic entry point (spec §4.5).
// It requires receiver.Node != e.Self; violating the precondition is
// reported as a failed send rather than a panic.
func (e *Engine) Dispatch(ctx context.Context, sender wire.ActorAddr, forwardingStack []wire.ActorAddr, receiver wire.ActorAddr, mid wire.MessageID, msg []byte) bool {
	if receiver.Node == e.Self {
		e.log.Error().Msg("dispatch: receiver must not be the local node")
		return false
	}
	route, ok := e.routes.Lookup(receiver.Node, e.bufFor)
	if !ok {
		e.hooks.MessageSendingFailed(hooks.MessageSendingFailedEvent{Dest: receiver.Node, MID: mid})
		return false
	}

	hdr := wire.Header{
		SourceNode:    e.Self,
		DestNode:      receiver.Node,
		SourceActor:   sender.Actor,
		DestActor:     receiver.Actor,
		Operation:     wire.DispatchMessage,
		OperationData: uint64(mid),
	}
	wire.WriteFrame(route.Buffer, hdr, func(b *wire.Buffer) {
		b.Append(wire.EncodeDispatchPayload(wire.DispatchPayload{ForwardingStack: forwardingStack, Message: msg}))
	})
	e.broker.Flush(route.Handle)
	e.hooks.MessageSent(hooks.MessageSentEvent{Dest: receiver.Node, MID: mid})
	return true
}
