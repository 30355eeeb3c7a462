package schema

// Gate actions understood by the hub.
const (
	GateActionOpen  = "open"
	GateActionClose = "close"
)

// Camera commands understood by the hub.
const (
	CameraCapture   = "capture"
	CameraStreamURL = "get_stream_url"
)

// GateControl asks a gate controller to move its barrier.
type GateControl struct {
	Action   string `json:"action"`
	GateID   string `json:"gate_id,omitempty"`
	Duration int    `json:"duration,omitempty"`
}

// CameraControl asks a gate camera to capture or expose its stream.
type CameraControl struct {
	Command string `json:"command"`
	GateID  string `json:"gate_id,omitempty"`
}

// StatusRequest asks the hub for a status snapshot.
type StatusRequest struct {
	GateID string `json:"gate_id,omitempty"`
}

// Ping carries the send time of a liveness ping.
type Ping struct {
	Timestamp string `json:"timestamp"`
}

// ParkingEntryRequest reports a card presented at an entry gate.
type ParkingEntryRequest struct {
	CardID       string `json:"card_id"`
	LicensePlate string `json:"license_plate,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// ParkingExitRequest reports a card presented at an exit gate.
type ParkingExitRequest struct {
	CardID        string `json:"card_id"`
	PaymentMethod string `json:"payment_method,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// ParkingCapacity is the payload of KindParkingCapacity.
type ParkingCapacity struct {
	Total     int `json:"total"`
	Occupied  int `json:"occupied"`
	Available int `json:"available"`
}

// ParkingResult is the payload of entry and exit results.
type ParkingResult struct {
	Success      bool    `json:"success"`
	Message      string  `json:"message,omitempty"`
	CardID       string  `json:"card_id,omitempty"`
	LicensePlate string  `json:"license_plate,omitempty"`
	Fee          float64 `json:"fee,omitempty"`
	GateID       string  `json:"gate_id,omitempty"`
}

// ErrorPayload is the payload of hub error messages.
type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
