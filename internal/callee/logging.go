package callee

import (
	"github.com/rs/zerolog"

	"github.com/basp-mesh/basp/internal/wire"
)

// LoggingCallee is the reference Callee the daemon runs with when no real
// actor system is attached: every upcall is logged and otherwise ignored.
// cmd/baspd uses it so the engine and broker can be exercised standalone;
// a real deployment swaps it for an adapter into its own actor runtime.
type LoggingCallee struct {
	log zerolog.Logger
}

// NewLoggingCallee returns a Callee that only logs.
func NewLoggingCallee(log zerolog.Logger) *LoggingCallee {
	return &LoggingCallee{log: log}
}

func (c *LoggingCallee) LearnedNewNodeDirectly(n wire.NodeID, wasIndirect bool) {
	c.log.Info().Str("node", n.String()).Bool("was_indirect", wasIndirect).Msg("learned_new_node_directly")
}

func (c *LoggingCallee) LearnedNewNodeIndirectly(n wire.NodeID) {
	c.log.Info().Str("node", n.String()).Msg("learned_new_node_indirectly")
}

func (c *LoggingCallee) FinalizeHandshake(peer wire.NodeID, aid wire.ActorID, interfaces []string) {
	c.log.Info().Str("peer", peer.String()).Uint32("actor", uint32(aid)).Strs("interfaces", interfaces).Msg("finalize_handshake")
}

func (c *LoggingCallee) ProxyAnnounced(src wire.NodeID, aid wire.ActorID) {
	c.log.Info().Str("src", src.String()).Uint32("actor", uint32(aid)).Msg("proxy_announced")
}

func (c *LoggingCallee) KillProxy(src wire.NodeID, aid wire.ActorID, reason wire.ExitReason) {
	c.log.Info().Str("src", src.String()).Uint32("actor", uint32(aid)).Uint32("reason", uint32(reason)).Msg("kill_proxy")
}

func (c *LoggingCallee) Deliver(srcNode wire.NodeID, srcActor wire.ActorID, dstNode wire.NodeID, dstActor wire.ActorID, mid wire.MessageID, fstack []wire.ActorAddr, msg []byte) {
	c.log.Info().
		Str("src_node", srcNode.String()).Uint32("src_actor", uint32(srcActor)).
		Str("dst_node", dstNode.String()).Uint32("dst_actor", uint32(dstActor)).
		Uint64("mid", uint64(mid)).Int("hops", len(fstack)).Int("msg_len", len(msg)).
		Msg("deliver")
}

func (c *LoggingCallee) HandleHeartbeat(src wire.NodeID) {
	c.log.Debug().Str("src", src.String()).Msg("heartbeat")
}

func (c *LoggingCallee) PurgeState(n wire.NodeID) {
	c.log.Info().Str("node", n.String()).Msg("purge_state")
}
