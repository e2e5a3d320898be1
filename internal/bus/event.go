package bus

import "time"

// Event kinds published inside the daemon. Subscribers filter by prefix, so
// the part before the first dot is the namespace.
const (
	KindSessionStatus       = "session.status_changed"
	KindSessionUnauthorized = "session.unauthorized"
	KindChannelState        = "channel.state_changed"
	KindDirectoryRefreshed  = "directory.refreshed"
	KindDiagMarkReadFailed  = "diag.mark_read_failed"
	KindDiagChannelError    = "diag.channel_error"
	KindDiagSendFailed      = "diag.send_failed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Diagnostic is the payload carried by every diag.* event.
type Diagnostic struct {
	PartnerID string
	Op        string
	Err       string
}

// ViewNamespace returns the namespace that a chat view publishes its updates under.
func ViewNamespace(viewID string) string {
	return "view." + viewID + "."
}
