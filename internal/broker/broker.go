// Package broker is the reference byte-transport collaborator the engine
// requires but does not implement itself (spec §5, §6): socket I/O,
// per-connection write buffering, and flush. It is intentionally the
// thinnest component in the tree — correctness here is "frames go out
// and come in", not protocol semantics.
//
// Every call into the engine (Handle, the outbound writers, Dispatch)
// happens on a single dispatcher goroutine, matching the engine's
// single-threaded-cooperative concurrency model: per-connection readers
// only ever push raw chunks onto a channel and wait to be told how many
// bytes to read next.
package broker

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/basp-mesh/basp/internal/engine"
	"github.com/basp-mesh/basp/internal/wire"
)

type inboundEvent struct {
	handle    wire.ConnectionHandle
	chunk     []byte
	isPayload bool
}

type readResult struct {
	needLen   int
	isPayload bool
	closed    bool
}

type connState struct {
	conn   net.Conn
	wrBuf  *wire.Buffer
	slot   wire.Header
	respCh chan readResult
}

// Broker is the TCP reference implementation of the engine's Broker
// capability (internal/engine.Broker).
type Broker struct {
	log zerolog.Logger
	eng *engine.Engine

	mu    sync.Mutex
	conns map[wire.ConnectionHandle]*connState
	next  wire.ConnectionHandle

	inbound chan inboundEvent
	jobs    chan func()
}

// New builds a Broker that drives eng. Run must be called to start the
// dispatcher loop before any connection is accepted or dialed.
func New(eng *engine.Engine, log zerolog.Logger) *Broker {
	return &Broker{
		log:     log,
		eng:     eng,
		conns:   make(map[wire.ConnectionHandle]*connState),
		inbound: make(chan inboundEvent, 64),
		jobs:    make(chan func(), 64),
	}
}

// WriteBuffer implements engine.Broker.
func (b *Broker) WriteBuffer(h wire.ConnectionHandle) *wire.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	cs, ok := b.conns[h]
	if !ok {
		return wire.NewBuffer(nil)
	}
	return cs.wrBuf
}

// Flush implements engine.Broker: it writes the accumulated bytes to the
// connection's socket and drains the buffer. Flush always runs on the
// dispatcher goroutine, so writes for a single connection are strictly
// FIFO ordered; a slow peer blocks only the write of its own frame, the
// dispatcher resumes once the kernel accepts the bytes.
func (b *Broker) Flush(h wire.ConnectionHandle) {
	b.mu.Lock()
	cs, ok := b.conns[h]
	b.mu.Unlock()
	if !ok {
		return
	}
	data := cs.wrBuf.Bytes()
	if len(data) == 0 {
		return
	}
	if _, err := cs.conn.Write(data); err != nil {
		b.log.Warn().Err(err).Msg("flush write failed, closing connection")
		b.closeConn(h)
	}
	cs.wrBuf.Reset()
}

// RunOnLoop schedules fn to run on the dispatcher goroutine, serializing
// it with every inbound Handle call. Use this for anything that touches
// the engine from outside the dispatcher: a heartbeat ticker, an admin
// HTTP handler issuing Dispatch, cmd/baspctl-style local calls.
func (b *Broker) RunOnLoop(fn func()) {
	b.jobs <- fn
}

// Run drives the dispatcher loop until ctx is cancelled.
func (b *Broker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-b.inbound:
			b.dispatch(ctx, ev)
		case fn := <-b.jobs:
			fn()
		}
	}
}

func (b *Broker) dispatch(ctx context.Context, ev inboundEvent) {
	b.mu.Lock()
	cs, ok := b.conns[ev.handle]
	b.mu.Unlock()
	if !ok {
		return
	}

	state := b.eng.Handle(ctx, ev.chunk, ev.handle, &cs.slot, ev.isPayload)
	var result readResult
	switch state {
	case engine.AwaitHeader:
		result = readResult{needLen: wire.HeaderSize, isPayload: false}
	case engine.AwaitPayload:
		result = readResult{needLen: int(cs.slot.PayloadLen), isPayload: true}
	case engine.CloseConnection:
		result = readResult{closed: true}
		b.closeConn(ev.handle)
	}
	select {
	case cs.respCh <- result:
	case <-ctx.Done():
	}
}

func (b *Broker) registerConn(conn net.Conn) (wire.ConnectionHandle, *connState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	h := b.next
	cs := &connState{conn: conn, wrBuf: wire.NewBuffer(nil), respCh: make(chan readResult, 1)}
	b.conns[h] = cs
	return h, cs
}

// closeConn drops h's connection state and schedules the engine's
// shutdown cascade for the node behind it, if any. This is the only place
// an ungraceful disconnect (a raw socket error, not a protocol violation
// the engine already cleaned up via fail) is fed back into the routing
// table — without it, direct_by_handle/direct_by_node would keep pointing
// at a dead handle forever (spec §7). closeConn is called from both the
// dispatcher goroutine (a CloseConnection verdict) and per-connection
// reader goroutines (a read error), so the shutdown call is routed
// through RunOnLoop rather than invoked directly, preserving the rule
// that only the dispatcher goroutine ever touches the engine.
func (b *Broker) closeConn(h wire.ConnectionHandle) {
	b.mu.Lock()
	cs, ok := b.conns[h]
	if ok {
		delete(b.conns, h)
	}
	b.mu.Unlock()
	if !ok {
		return
	}
	_ = cs.conn.Close()
	b.RunOnLoop(func() {
		if node := b.eng.Routes().LookupDirectByHandle(h); node != wire.InvalidNodeID {
			b.eng.HandleNodeShutdown(node)
		}
	})
}

// readLoop reads exactly the number of bytes the dispatcher last asked
// for, pushes the chunk onto the inbound channel, and blocks for the
// dispatcher's verdict before reading again.
func (b *Broker) readLoop(h wire.ConnectionHandle, cs *connState) {
	needLen := wire.HeaderSize
	isPayload := false
	for {
		buf := make([]byte, needLen)
		if _, err := io.ReadFull(cs.conn, buf); err != nil {
			b.closeConn(h)
			return
		}
		b.inbound <- inboundEvent{handle: h, chunk: buf, isPayload: isPayload}
		result, ok := <-cs.respCh
		if !ok || result.closed {
			return
		}
		needLen = result.needLen
		isPayload = result.isPayload
	}
}

// Listen binds addr without serving it yet.
func (b *Broker) Listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// ListenAndServe binds addr and serves it until ctx is cancelled.
func (b *Broker) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return b.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. Each accepted
// connection is sent a server_handshake before its read loop starts,
// matching spec §3's "accepting side first" rule. Splitting Listen from
// Serve lets a caller bind an ephemeral port (":0") and read back the
// actual address before serving.
func (b *Broker) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				b.log.Warn().Err(err).Msg("accept failed")
				return err
			}
		}
		h, cs := b.registerConn(conn)
		b.RunOnLoop(func() {
			b.eng.WriteServerHandshake(cs.wrBuf, nil)
			b.Flush(h)
		})
		go b.readLoop(h, cs)
	}
}

// Connect dials addr and starts its read loop. The remote side is
// expected to send the first server_handshake frame.
func (b *Broker) Connect(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return err
	}
	h, cs := b.registerConn(conn)
	go b.readLoop(h, cs)
	return nil
}
