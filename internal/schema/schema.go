package schema

import (
	"encoding/json"
	"time"

	"github.com/bytedance/sonic"
)

// Outbound is one message sent to the hub.
type Outbound struct {
	Type      string `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
}

// Inbound is one decoded hub message.
type Inbound struct {
	Kind      Kind
	// Type is the raw wire type; it differs from Kind.String() only for KindUnknown.
	Type      string
	Payload   json.RawMessage
	// GateID is the channel hint, empty when the message carried none.
	GateID    string
	Timestamp time.Time
}

// Event is what subscribers receive. Wire events fill the envelope fields;
// lifecycle events fill the rest.
type Event struct {
	Kind      Kind
	Type      string
	Channel   string
	GateID    string
	Payload   json.RawMessage
	Timestamp time.Time

	Code        int
	Reason      string
	Attempt     int
	MaxAttempts int
	Delay       time.Duration
	Err         error
	Session     string
}

// FromInbound builds the event dispatched for a hub message.
func FromInbound(channel string, in Inbound) Event {
	return Event{
		Kind:      in.Kind,
		Type:      in.Type,
		Channel:   channel,
		GateID:    in.GateID,
		Payload:   in.Payload,
		Timestamp: in.Timestamp,
	}
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return sonic.ConfigFastest.Unmarshal(e.Payload, v)
}
