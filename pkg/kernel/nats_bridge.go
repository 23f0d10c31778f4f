package kernel

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
)

// BridgeNATS relays every event emitted on the bus to a NATS subject
// derived from the event name (SPEC_FULL §4.1/§4.9), so an out-of-process
// collaborator such as an analytics pipeline can observe engine activity
// without the core taking on an HTTP or LSP dependency. Publish failures
// are logged and otherwise ignored: the bridge never causes a runtime
// step to fail.
func (b *Bus) BridgeNATS(conn *nats.Conn, subjectPrefix string) {
	if conn == nil {
		return
	}
	b.Bridge(func(event string, payload any) {
		subject := subjectPrefix + "." + strings.ReplaceAll(event, ":", ".")
		data, err := json.Marshal(payload)
		if err != nil {
			b.log.Warn("nats bridge: marshal event payload failed", slog.String("event", event), slog.Any("error", err))
			return
		}
		if err := conn.Publish(subject, data); err != nil {
			b.log.Warn("nats bridge: publish failed", slog.String("subject", subject), slog.Any("error", err))
		}
	})
}
