// Package hooks is a side-effect-only observation fan-out for the engine:
// telemetry of actor-publish, send, forward, and failure events. Hook
// failures never affect the protocol (spec §4.7).
package hooks

import (
	"github.com/basp-mesh/basp/internal/wire"
	"github.com/rs/zerolog"
)

// ActorPublishedEvent fires from registry.Add via the engine wiring.
type ActorPublishedEvent struct {
	Port  uint16
	Actor wire.ActorID
}

// MessageSentEvent fires after a successful Dispatch.
type MessageSentEvent struct {
	Dest wire.NodeID
	MID  wire.MessageID
}

// MessageForwardedEvent fires after a frame is appended to a next hop's
// write buffer.
type MessageForwardedEvent struct {
	Source, Dest, NextHop wire.NodeID
	Operation             wire.MessageType
}

// MessageSendingFailedEvent fires when Dispatch finds no route.
type MessageSendingFailedEvent struct {
	Dest wire.NodeID
	MID  wire.MessageID
}

// MessageForwardingFailedEvent fires when forwarding finds no route (and
// no reverse route, or a reverse-route reply was sent).
type MessageForwardingFailedEvent struct {
	Source, Dest wire.NodeID
	RepliedTo    wire.NodeID
}

// Listener receives hook events. Every method is optional: a Listener
// embeds NopListener to pick up no-op implementations for the events it
// doesn't care about, matching the small-named-listener shape of the
// teacher's eventbus rather than a single monolithic interface.
type Listener interface {
	ActorPublished(ActorPublishedEvent)
	MessageSent(MessageSentEvent)
	MessageForwarded(MessageForwardedEvent)
	MessageSendingFailed(MessageSendingFailedEvent)
	MessageForwardingFailed(MessageForwardingFailedEvent)
}

// NopListener implements Listener with no-op methods. Real listeners
// embed it and override only the events they care about.
type NopListener struct{}

func (NopListener) ActorPublished(ActorPublishedEvent)                   {}
func (NopListener) MessageSent(MessageSentEvent)                         {}
func (NopListener) MessageForwarded(MessageForwardedEvent)               {}
func (NopListener) MessageSendingFailed(MessageSendingFailedEvent)       {}
func (NopListener) MessageForwardingFailed(MessageForwardingFailedEvent) {}

// Notifier fans an event out to every registered listener in order.
// Listener panics are recovered and logged — a misbehaving hook must
// never take down the receive loop.
type Notifier struct {
	log       zerolog.Logger
	listeners []Listener
}

// New returns an empty notifier that logs recovered listener panics
// through log.
func New(log zerolog.Logger) *Notifier {
	return &Notifier{log: log}
}

// Register adds l to the fan-out list.
func (n *Notifier) Register(l Listener) {
	n.listeners = append(n.listeners, l)
}

func (n *Notifier) invoke(name string, fn func(Listener)) {
	for _, l := range n.listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					n.log.Error().Interface("panic", r).Str("hook", name).Msg("hook_panic_recovered")
				}
			}()
			fn(l)
		}()
	}
}

func (n *Notifier) ActorPublished(e ActorPublishedEvent) {
	n.invoke("actor_published", func(l Listener) { l.ActorPublished(e) })
}

func (n *Notifier) MessageSent(e MessageSentEvent) {
	n.invoke("message_sent", func(l Listener) { l.MessageSent(e) })
}

func (n *Notifier) MessageForwarded(e MessageForwardedEvent) {
	n.invoke("message_forwarded", func(l Listener) { l.MessageForwarded(e) })
}

func (n *Notifier) MessageSendingFailed(e MessageSendingFailedEvent) {
	n.invoke("message_sending_failed", func(l Listener) { l.MessageSendingFailed(e) })
}

func (n *Notifier) MessageForwardingFailed(e MessageForwardingFailedEvent) {
	n.invoke("message_forwarding_failed", func(l Listener) { l.MessageForwardingFailed(e) })
}
