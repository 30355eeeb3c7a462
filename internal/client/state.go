package client

// State is the connection lifecycle state of a Client.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateReconnectScheduled
	// StateFailed is entered when the attempt ceiling is reached. Connect is
	// refused here; Reconnect or Disconnect leave it.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateReconnectScheduled:
		return "reconnect_scheduled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var transitions = map[State][]State{
	StateDisconnected:       {StateConnecting},
	StateConnecting:         {StateOpen, StateReconnectScheduled, StateDisconnected, StateFailed, StateClosing},
	StateOpen:               {StateReconnectScheduled, StateDisconnected, StateFailed, StateClosing},
	StateClosing:            {StateDisconnected},
	StateReconnectScheduled: {StateConnecting, StateClosing},
	StateFailed:             {StateDisconnected},
}

// CanTransition reports whether the controller may move from one state to
// another.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
