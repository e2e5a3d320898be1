package channel

import "github.com/matheus3301/vitalchat/internal/status"

// Channel session states.
const (
	Disconnected status.State = "DISCONNECTED"
	Connecting   status.State = "CONNECTING"
	Joined       status.State = "JOINED"
	Backoff      status.State = "BACKOFF"
)

// Transitions is the channel session state table. BACKOFF sits between a
// failed or dropped connection and the next attempt.
var Transitions = status.Table{
	Disconnected: {Connecting},
	Connecting:   {Joined, Backoff, Disconnected},
	Joined:       {Backoff, Disconnected},
	Backoff:      {Connecting, Disconnected},
}
