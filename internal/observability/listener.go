package observability

import (
	"strconv"

	"github.com/basp-mesh/basp/internal/hooks"
)

// MetricsListener feeds engine hook events into the Prometheus collectors
// defined in metrics.go. It embeds hooks.NopListener so new hook events added later don't
// require touching this type until a metric is actually wanted for them.
type MetricsListener struct {
	hooks.NopListener
}

func (MetricsListener) ActorPublished(e hooks.ActorPublishedEvent) {
	RecordActorPublished(strconv.Itoa(int(e.Port)))
}

func (MetricsListener) MessageSent(e hooks.MessageSentEvent) {
	RecordMessageSent(e.Dest.String())
}

func (MetricsListener) MessageForwarded(e hooks.MessageForwardedEvent) {
	RecordMessageForwarded(e.Source.String(), e.Dest.String(), e.NextHop.String(), e.Operation.String())
}

func (MetricsListener) MessageSendingFailed(e hooks.MessageSendingFailedEvent) {
	RecordMessageSendingFailed(e.Dest.String())
}

func (MetricsListener) MessageForwardingFailed(e hooks.MessageForwardingFailedEvent) {
	RecordMessageForwardingFailed(e.Source.String(), e.Dest.String())
}
