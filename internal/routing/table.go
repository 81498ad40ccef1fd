// Package routing owns the BASP instance's view of which nodes are
// directly connected and which are only reachable by forwarding through a
// direct peer.
package routing

import (
	"sync"

	"github.com/basp-mesh/basp/internal/wire"
)

// Route is the result of a successful lookup: the next hop to write to,
// the direct connection handle that owns the write buffer, and the
// buffer itself.
type Route struct {
	NextHop wire.NodeID
	Handle  wire.ConnectionHandle
	Buffer  *wire.Buffer
}

// BufferFunc resolves a connection handle to its write buffer. The table
// itself never owns buffers — the broker does (spec §5) — so lookups take
// this resolver rather than storing buffers directly.
type BufferFunc func(wire.ConnectionHandle) *wire.Buffer

// Table is the routing table described in spec §4.2: a bijection between
// direct connection handles and nodes, plus a set-valued next-hop index
// for indirectly reachable nodes. The two direct maps share one lock and
// the indirect index has its own, matching the teacher's per-map mutex
// texture (internal/protocol/session.EventOutbox).
type Table struct {
	directMu     sync.RWMutex
	directByNode map[wire.NodeID]wire.ConnectionHandle
	directByHdl  map[wire.ConnectionHandle]wire.NodeID

	indirectMu sync.RWMutex
	indirect   map[wire.NodeID]map[wire.NodeID]struct{}
}

// New returns an empty routing table.
func New() *Table {
	return &Table{
		directByNode: make(map[wire.NodeID]wire.ConnectionHandle),
		directByHdl:  make(map[wire.ConnectionHandle]wire.NodeID),
		indirect:     make(map[wire.NodeID]map[wire.NodeID]struct{}),
	}
}

// AddDirect records a new direct route. The caller must already have
// established that neither h nor n has an existing direct entry.
func (t *Table) AddDirect(h wire.ConnectionHandle, n wire.NodeID) {
	t.directMu.Lock()
	defer t.directMu.Unlock()
	t.directByNode[n] = h
	t.directByHdl[h] = n
}

// AddIndirect adds hop to n's next-hop set. It returns true iff n was not
// previously reachable by any indirect route — the caller should then
// notify the callee of a newly learned node.
func (t *Table) AddIndirect(hop, n wire.NodeID) bool {
	t.indirectMu.Lock()
	defer t.indirectMu.Unlock()
	hops, existed := t.indirect[n]
	if !existed {
		hops = make(map[wire.NodeID]struct{})
		t.indirect[n] = hops
	}
	hops[hop] = struct{}{}
	return !existed
}

// LookupDirectByNode returns the connection handle for a directly
// reachable node, or wire.InvalidHandle.
func (t *Table) LookupDirectByNode(n wire.NodeID) wire.ConnectionHandle {
	t.directMu.RLock()
	defer t.directMu.RUnlock()
	return t.directByNode[n]
}

// LookupDirectByHandle returns the node behind a connection handle, or
// wire.InvalidNodeID.
func (t *Table) LookupDirectByHandle(h wire.ConnectionHandle) wire.NodeID {
	t.directMu.RLock()
	defer t.directMu.RUnlock()
	return t.directByHdl[h]
}

// Lookup resolves a route to n: direct if available, otherwise any
// element of n's indirect next-hop set whose own direct route still
// resolves. Returns false if no route exists.
func (t *Table) Lookup(n wire.NodeID, bufFor BufferFunc) (Route, bool) {
	if h := t.LookupDirectByNode(n); h != wire.InvalidHandle {
		return Route{NextHop: n, Handle: h, Buffer: bufFor(h)}, true
	}
	t.indirectMu.RLock()
	hops := t.indirect[n]
	candidates := make([]wire.NodeID, 0, len(hops))
	for hop := range hops {
		candidates = append(candidates, hop)
	}
	t.indirectMu.RUnlock()
	for _, hop := range candidates {
		if h := t.LookupDirectByNode(hop); h != wire.InvalidHandle {
			return Route{NextHop: hop, Handle: h, Buffer: bufFor(h)}, true
		}
	}
	return Route{}, false
}

// DirectNodes returns every node currently reachable by a direct route,
// in no particular order.
func (t *Table) DirectNodes() []wire.NodeID {
	t.directMu.RLock()
	defer t.directMu.RUnlock()
	nodes := make([]wire.NodeID, 0, len(t.directByNode))
	for n := range t.directByNode {
		nodes = append(nodes, n)
	}
	return nodes
}

// DirectPeer pairs a directly reachable node with the handle it was
// reached on.
type DirectPeer struct {
	Node   wire.NodeID
	Handle wire.ConnectionHandle
}

// DirectPeers returns every (node, handle) direct pair, in no particular
// order. Used by heartbeat fanout, which needs both to write a frame and
// to ask the broker to flush it.
func (t *Table) DirectPeers() []DirectPeer {
	t.directMu.RLock()
	defer t.directMu.RUnlock()
	peers := make([]DirectPeer, 0, len(t.directByNode))
	for n, h := range t.directByNode {
		peers = append(peers, DirectPeer{Node: n, Handle: h})
	}
	return peers
}

// IndirectSnapshot returns a copy of the indirect target -> next-hop-set
// index, for read-only inspection (cmd/baspctl, the admin HTTP surface).
func (t *Table) IndirectSnapshot() map[wire.NodeID][]wire.NodeID {
	t.indirectMu.RLock()
	defer t.indirectMu.RUnlock()
	out := make(map[wire.NodeID][]wire.NodeID, len(t.indirect))
	for target, hops := range t.indirect {
		list := make([]wire.NodeID, 0, len(hops))
		for hop := range hops {
			list = append(list, hop)
		}
		out[target] = list
	}
	return out
}

// EraseIndirect drops any indirect entry for n (called once n becomes
// directly reachable). Returns true iff an entry existed.
func (t *Table) EraseIndirect(n wire.NodeID) bool {
	t.indirectMu.Lock()
	defer t.indirectMu.Unlock()
	if _, ok := t.indirect[n]; ok {
		delete(t.indirect, n)
		return true
	}
	return false
}

// EraseDirect removes the direct entry for h, sweeps that node out of
// every indirect next-hop set, and reports (via onLostNode) every node
// that becomes unreachable as a result — at most once per node.
func (t *Table) EraseDirect(h wire.ConnectionHandle, onLostNode func(wire.NodeID)) {
	t.directMu.Lock()
	n, ok := t.directByHdl[h]
	if !ok {
		t.directMu.Unlock()
		return
	}
	delete(t.directByHdl, h)
	delete(t.directByNode, n)
	t.directMu.Unlock()
	t.sweep(n, true, onLostNode)
}

// Erase removes the direct entry for n (if any) and runs the same
// cascade as EraseDirect, keyed by node instead of handle.
func (t *Table) Erase(n wire.NodeID, onLostNode func(wire.NodeID)) {
	t.directMu.Lock()
	h, hadDirect := t.directByNode[n]
	if hadDirect {
		delete(t.directByNode, n)
		delete(t.directByHdl, h)
	}
	t.directMu.Unlock()
	t.sweep(n, hadDirect, onLostNode)
}

// sweep removes lost from every indirect next-hop set and reports each
// node whose set becomes empty as a result, exactly once. lost itself is
// reported only if it actually held a direct route (hadDirect) — erasing
// an already-unknown node is a no-op, not a cascade.
func (t *Table) sweep(lost wire.NodeID, hadDirect bool, onLostNode func(wire.NodeID)) {
	t.indirectMu.Lock()
	var emptied []wire.NodeID
	for target, hops := range t.indirect {
		if _, ok := hops[lost]; !ok {
			continue
		}
		delete(hops, lost)
		if len(hops) == 0 {
			delete(t.indirect, target)
			emptied = append(emptied, target)
		}
	}
	t.indirectMu.Unlock()

	if onLostNode == nil {
		return
	}
	if hadDirect {
		onLostNode(lost)
	}
	for _, target := range emptied {
		onLostNode(target)
	}
}
