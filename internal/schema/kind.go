package schema

// Kind is the closed set of message types the client understands. Wire types
// outside the set decode to KindUnknown and keep their raw name in Inbound.Type.
type Kind uint16

const (
	KindUnknown Kind = iota

	// Synthetic lifecycle kinds emitted by the client itself.
	KindMessage
	KindConnected
	KindDisconnected
	KindReconnecting
	KindReconnectFailed

	// Control and outbound request kinds.
	KindError
	KindPing
	KindPong
	KindRequestStatus
	KindRequestSystemStatus
	KindGateControl
	KindCameraControl
	KindParkingEntry
	KindParkingExit

	// Inbound domain kinds published by the hub.
	KindSystemStatus
	KindAllStatus
	KindParkingCapacity
	KindParkingEvent
	KindParkingEntryResult
	KindParkingExitResult
	KindGateControlResult
	KindGateControlResponse
	KindEmergencyEvent
	KindSystemLogs
	KindHardwareStatus
	KindImageCaptured
	KindCameraStreamURL
	KindForceExitResult

	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown:             "unknown",
	KindMessage:             "message",
	KindConnected:           "connected",
	KindDisconnected:        "disconnected",
	KindReconnecting:        "reconnecting",
	KindReconnectFailed:     "reconnect_failed",
	KindError:               "error",
	KindPing:                "ping",
	KindPong:                "pong",
	KindRequestStatus:       "request_status",
	KindRequestSystemStatus: "request_system_status",
	KindGateControl:         "gate_control",
	KindCameraControl:       "camera_control",
	KindParkingEntry:        "parking_entry",
	KindParkingExit:         "parking_exit",
	KindSystemStatus:        "system_status",
	KindAllStatus:           "all_status",
	KindParkingCapacity:     "parking_capacity",
	KindParkingEvent:        "parking_event",
	KindParkingEntryResult:  "parking_entry_result",
	KindParkingExitResult:   "parking_exit_result",
	KindGateControlResult:   "gate_control_result",
	KindGateControlResponse: "gate_control_response",
	KindEmergencyEvent:      "emergency_event",
	KindSystemLogs:          "system_logs",
	KindHardwareStatus:      "hardware_status",
	KindImageCaptured:       "image_captured",
	KindCameraStreamURL:     "camera_stream_url",
	KindForceExitResult:     "force_exit_result",
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, kindCount)
	for k := KindUnknown + 1; k < kindCount; k++ {
		m[kindNames[k]] = k
	}
	return m
}()

func (k Kind) String() string {
	if k >= kindCount {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// Valid reports whether k is a member of the enum.
func (k Kind) Valid() bool {
	return k < kindCount
}

// ParseKind maps a wire type to its Kind.
func ParseKind(name string) Kind {
	if k, ok := kindByName[name]; ok {
		return k
	}
	return KindUnknown
}

// Kinds returns every known kind except KindUnknown.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := KindUnknown + 1; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// Class groups kinds for channel filtering.
type Class uint8

const (
	ClassDomain Class = iota
	ClassLifecycle
	ClassStatus
	ClassError
	ClassControl
)

// Class returns the filtering class of k.
func (k Kind) Class() Class {
	switch k {
	case KindMessage, KindConnected, KindDisconnected, KindReconnecting, KindReconnectFailed:
		return ClassLifecycle
	case KindError:
		return ClassError
	case KindSystemStatus, KindAllStatus, KindParkingCapacity, KindHardwareStatus, KindSystemLogs:
		return ClassStatus
	case KindPing, KindPong, KindRequestStatus, KindRequestSystemStatus,
		KindGateControl, KindCameraControl, KindParkingEntry, KindParkingExit:
		return ClassControl
	case KindParkingEvent, KindParkingEntryResult, KindParkingExitResult,
		KindGateControlResult, KindGateControlResponse, KindEmergencyEvent,
		KindImageCaptured, KindCameraStreamURL, KindForceExitResult, KindUnknown:
		return ClassDomain
	default:
		return ClassDomain
	}
}

// Synthetic reports whether k is produced by the client rather than the hub.
func (k Kind) Synthetic() bool {
	return k.Class() == ClassLifecycle
}
