// Package codec converts between hub envelopes and their JSON wire form.
package codec

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"gatewatch/internal/schema"
)

// TimestampLayout is the outbound timestamp form: ISO-8601, UTC, milliseconds.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var (
	// ErrMalformedFrame is wrapped by every Decode failure.
	ErrMalformedFrame = errors.New("codec: malformed frame")
	// ErrEmptyType is returned by Encode for an empty message type.
	ErrEmptyType = errors.New("codec: empty message type")
)

var emptyObject = json.RawMessage("{}")

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts RFC3339 with or without a zone and fractional
// seconds. Values without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Encode builds the outbound frame for msgType. A nil payload is sent as {}.
func Encode(msgType string, payload any, now time.Time) ([]byte, error) {
	if msgType == "" {
		return nil, ErrEmptyType
	}
	if payload == nil {
		payload = emptyObject
	}
	buf, err := sonic.ConfigFastest.Marshal(schema.Outbound{
		Type:      msgType,
		Payload:   payload,
		Timestamp: FormatTimestamp(now),
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode "+msgType)
	}
	return buf, nil
}

type wireInbound struct {
	Type      *json.RawMessage `json:"type"`
	Payload   json.RawMessage  `json:"payload"`
	GateID    *json.RawMessage `json:"gate_id"`
	Timestamp json.RawMessage  `json:"timestamp"`
}

type payloadHint struct {
	GateID json.RawMessage `json:"gate_id"`
	Gate   json.RawMessage `json:"gate"`
}

// Decode parses one inbound frame.
func Decode(frame []byte) (schema.Inbound, error) {
	trimmed := bytes.TrimSpace(frame)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return schema.Inbound{}, malformed("root is not an object")
	}
	// ConfigFastest copies raw fields through unchecked, so the whole frame is
	// validated first.
	if !sonic.Valid(trimmed) {
		return schema.Inbound{}, malformed("invalid json")
	}
	var wire wireInbound
	if err := sonic.ConfigFastest.Unmarshal(trimmed, &wire); err != nil {
		return schema.Inbound{}, malformed(err.Error())
	}
	if wire.Type == nil {
		return schema.Inbound{}, malformed("missing type")
	}
	msgType, ok := stringValue(*wire.Type)
	if !ok {
		return schema.Inbound{}, malformed("type is not a string")
	}
	if msgType == "" {
		return schema.Inbound{}, malformed("empty type")
	}

	in := schema.Inbound{
		Kind:    schema.ParseKind(msgType),
		Type:    msgType,
		Payload: wire.Payload,
	}

	if wire.GateID != nil && !isNull(*wire.GateID) {
		gate, ok := stringValue(*wire.GateID)
		if !ok {
			return schema.Inbound{}, malformed("gate_id is not a string")
		}
		in.GateID = gate
	}
	if in.GateID == "" {
		in.GateID = nestedHint(wire.Payload)
	}

	if ts, ok := stringValue(wire.Timestamp); ok {
		in.Timestamp, _ = ParseTimestamp(ts)
	}
	return in, nil
}

func malformed(reason string) error {
	return errors.Errorf("%w: %s", ErrMalformedFrame, reason)
}

func nestedHint(payload json.RawMessage) string {
	if len(payload) == 0 || payload[0] != '{' {
		return ""
	}
	var hint payloadHint
	if err := sonic.ConfigFastest.Unmarshal(payload, &hint); err != nil {
		return ""
	}
	if s, ok := stringValue(hint.GateID); ok && s != "" {
		return s
	}
	if s, ok := stringValue(hint.Gate); ok {
		return s
	}
	return ""
}

func stringValue(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := sonic.ConfigFastest.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}
