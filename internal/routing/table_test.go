package routing

import (
	"testing"

	"github.com/basp-mesh/basp/internal/wire"
)

func node(b byte) wire.NodeID {
	var n wire.NodeID
	n.Digest[0] = b
	return n
}

func bufFor(h wire.ConnectionHandle) *wire.Buffer { return wire.NewBuffer(nil) }

func TestAddDirectAndLookupBothDirections(t *testing.T) {
	tb := New()
	tb.AddDirect(wire.ConnectionHandle(1), node(1))
	if tb.LookupDirectByNode(node(1)) != wire.ConnectionHandle(1) {
		t.Fatalf("expected handle 1")
	}
	if tb.LookupDirectByHandle(wire.ConnectionHandle(1)) != node(1) {
		t.Fatalf("expected node(1)")
	}
}

func TestAddIndirectReturnsTrueOnlyOnce(t *testing.T) {
	tb := New()
	if !tb.AddIndirect(node(2), node(3)) {
		t.Fatalf("expected first AddIndirect to return true")
	}
	if tb.AddIndirect(node(4), node(3)) {
		t.Fatalf("expected second AddIndirect (additional hop) to return false")
	}
}

func TestLookupPrefersDirectOverIndirect(t *testing.T) {
	tb := New()
	tb.AddDirect(wire.ConnectionHandle(1), node(1))
	tb.AddIndirect(node(1), node(9))
	tb.AddDirect(wire.ConnectionHandle(9), node(9))

	route, ok := tb.Lookup(node(9), bufFor)
	if !ok || route.Handle != wire.ConnectionHandle(9) {
		t.Fatalf("expected direct route to win, got %+v ok=%v", route, ok)
	}
}

func TestLookupFallsBackToIndirect(t *testing.T) {
	tb := New()
	tb.AddDirect(wire.ConnectionHandle(1), node(1))
	tb.AddIndirect(node(1), node(9))

	route, ok := tb.Lookup(node(9), bufFor)
	if !ok || route.NextHop != node(1) || route.Handle != wire.ConnectionHandle(1) {
		t.Fatalf("expected indirect route via node(1), got %+v ok=%v", route, ok)
	}
}

func TestLookupMissing(t *testing.T) {
	tb := New()
	if _, ok := tb.Lookup(node(42), bufFor); ok {
		t.Fatalf("expected no route")
	}
}

func TestEraseIndirect(t *testing.T) {
	tb := New()
	tb.AddIndirect(node(1), node(9))
	if !tb.EraseIndirect(node(9)) {
		t.Fatalf("expected EraseIndirect to report an existing entry")
	}
	if tb.EraseIndirect(node(9)) {
		t.Fatalf("expected second EraseIndirect to report nothing")
	}
}

func TestEraseDirectCascadesToIndirectNextHops(t *testing.T) {
	tb := New()
	tb.AddDirect(wire.ConnectionHandle(1), node(1))
	tb.AddIndirect(node(1), node(2))
	tb.AddIndirect(node(1), node(3))

	var purged []wire.NodeID
	tb.EraseDirect(wire.ConnectionHandle(1), func(n wire.NodeID) { purged = append(purged, n) })

	got := map[wire.NodeID]bool{}
	for _, n := range purged {
		got[n] = true
	}
	if len(got) != 3 || !got[node(1)] || !got[node(2)] || !got[node(3)] {
		t.Fatalf("expected purge of {1,2,3}, got %+v", purged)
	}
	if tb.LookupDirectByNode(node(1)) != wire.InvalidHandle {
		t.Fatalf("expected direct route erased")
	}
	if _, ok := tb.Lookup(node(2), bufFor); ok {
		t.Fatalf("expected node(2) unreachable")
	}
}

func TestEraseDirectPreservesSurvivingIndirectHops(t *testing.T) {
	tb := New()
	tb.AddDirect(wire.ConnectionHandle(1), node(1))
	tb.AddDirect(wire.ConnectionHandle(2), node(2))
	tb.AddIndirect(node(1), node(9))
	tb.AddIndirect(node(2), node(9))

	var purged []wire.NodeID
	tb.EraseDirect(wire.ConnectionHandle(1), func(n wire.NodeID) { purged = append(purged, n) })

	if len(purged) != 1 || purged[0] != node(1) {
		t.Fatalf("expected only node(1) purged (its own direct route lost), got %+v", purged)
	}
	route, ok := tb.Lookup(node(9), bufFor)
	if !ok || route.NextHop != node(2) {
		t.Fatalf("expected node(9) still reachable via node(2), got %+v ok=%v", route, ok)
	}
}

func TestEraseByNode(t *testing.T) {
	tb := New()
	tb.AddDirect(wire.ConnectionHandle(5), node(5))
	tb.AddIndirect(node(5), node(6))

	var purged []wire.NodeID
	tb.Erase(node(5), func(n wire.NodeID) { purged = append(purged, n) })

	if len(purged) != 2 {
		t.Fatalf("expected both node(5) and node(6) purged, got %+v", purged)
	}
	if tb.LookupDirectByHandle(wire.ConnectionHandle(5)) != wire.InvalidNodeID {
		t.Fatalf("expected handle 5 entry erased")
	}
}

func TestEraseUnknownNodeIsNoop(t *testing.T) {
	tb := New()
	var purged []wire.NodeID
	tb.Erase(node(99), func(n wire.NodeID) { purged = append(purged, n) })
	if len(purged) != 0 {
		t.Fatalf("expected no purge for unknown node, got %+v", purged)
	}
}

func TestDirectPeersAndNodes(t *testing.T) {
	tb := New()
	tb.AddDirect(wire.ConnectionHandle(1), node(1))
	tb.AddDirect(wire.ConnectionHandle(2), node(2))

	nodes := tb.DirectNodes()
	if len(nodes) != 2 {
		t.Fatalf("expected 2 direct nodes, got %d", len(nodes))
	}
	peers := tb.DirectPeers()
	if len(peers) != 2 {
		t.Fatalf("expected 2 direct peers, got %d", len(peers))
	}
}
