package client

import (
	"time"

	"github.com/yanun0323/logs"

	"gatewatch/internal/codec"
	"gatewatch/internal/schema"
	"gatewatch/pkg/websocket"
)

const statusThrottleKey = "status"

// Send envelopes payload as msgType and writes it. It returns false without
// queueing when the connection is not open or the write fails.
func (c *Client) Send(msgType string, payload any) bool {
	c.mu.Lock()
	open := c.state == StateOpen
	c.mu.Unlock()
	if !open {
		c.metrics.IncSend(false)
		logs.Warnf("%s: send %s while not connected", c.label, msgType)
		return false
	}

	frame, err := codec.Encode(msgType, payload, c.sched.Now())
	if err != nil {
		c.metrics.IncSend(false)
		logs.Errorf("%s: %s", c.label, err)
		return false
	}
	if err := c.writer.Send(websocket.MessageText, frame); err != nil {
		c.metrics.IncSend(false)
		logs.Warnf("%s: send %s: %s", c.label, msgType, err)
		return false
	}
	c.metrics.IncSend(true)
	return true
}

func (c *Client) sendPing(at time.Time) bool {
	return c.Send(schema.KindPing.String(), schema.Ping{Timestamp: codec.FormatTimestamp(at)})
}

// RequestStatus asks the hub for a status snapshot of this client's gate, or
// of every gate on the broadcast channel. Requests inside the status throttle
// window are suppressed and return false.
func (c *Client) RequestStatus() bool {
	if !c.guard.Attempt(statusThrottleKey, c.cfg.StatusThrottle) {
		logs.Debugf("%s: status request throttled", c.label)
		return false
	}
	req := schema.StatusRequest{}
	if !c.id.IsBroadcast() {
		req.GateID = c.id.String()
	}
	return c.Send(c.cfg.StatusRequestType, req)
}

// OpenGate opens this client's gate barrier for duration seconds. Broadcast
// clients cannot address a single gate and get false.
func (c *Client) OpenGate(duration int) bool {
	if !c.gateSpecific("gate control") {
		return false
	}
	if duration <= 0 {
		duration = DefaultGateOpenDuration
	}
	return c.Send(schema.KindGateControl.String(), schema.GateControl{
		Action:   schema.GateActionOpen,
		GateID:   c.id.String(),
		Duration: duration,
	})
}

// CloseGate closes this client's gate barrier.
func (c *Client) CloseGate() bool {
	if !c.gateSpecific("gate control") {
		return false
	}
	return c.Send(schema.KindGateControl.String(), schema.GateControl{
		Action: schema.GateActionClose,
		GateID: c.id.String(),
	})
}

// CaptureImage asks this client's gate camera for a snapshot.
func (c *Client) CaptureImage() bool {
	if !c.gateSpecific("camera control") {
		return false
	}
	return c.Send(schema.KindCameraControl.String(), schema.CameraControl{
		Command: schema.CameraCapture,
		GateID:  c.id.String(),
	})
}

// RequestCameraStream asks for this client's gate camera stream URL.
func (c *Client) RequestCameraStream() bool {
	if !c.gateSpecific("camera control") {
		return false
	}
	return c.Send(schema.KindCameraControl.String(), schema.CameraControl{
		Command: schema.CameraStreamURL,
		GateID:  c.id.String(),
	})
}

// ControlGate drives any gate. Only the broadcast client may use it.
func (c *Client) ControlGate(gateID, action string, duration int) bool {
	if !c.id.IsBroadcast() {
		logs.Warnf("%s: gate control for %s is only available on the broadcast channel", c.label, gateID)
		return false
	}
	if duration <= 0 && action == schema.GateActionOpen {
		duration = DefaultGateOpenDuration
	}
	return c.Send(schema.KindGateControl.String(), schema.GateControl{
		Action:   action,
		GateID:   gateID,
		Duration: duration,
	})
}

// RequestParkingEntry reports a card presented at the entry gate.
func (c *Client) RequestParkingEntry(cardID, licensePlate string) bool {
	return c.Send(schema.KindParkingEntry.String(), schema.ParkingEntryRequest{
		CardID:       cardID,
		LicensePlate: licensePlate,
		Timestamp:    codec.FormatTimestamp(c.sched.Now()),
	})
}

// RequestParkingExit reports a card presented at the exit gate.
func (c *Client) RequestParkingExit(cardID, paymentMethod string) bool {
	if paymentMethod == "" {
		paymentMethod = DefaultPaymentMethod
	}
	return c.Send(schema.KindParkingExit.String(), schema.ParkingExitRequest{
		CardID:        cardID,
		PaymentMethod: paymentMethod,
		Timestamp:     codec.FormatTimestamp(c.sched.Now()),
	})
}

func (c *Client) gateSpecific(what string) bool {
	if c.id.IsBroadcast() {
		logs.Warnf("%s: %s is not available on the broadcast channel", c.label, what)
		return false
	}
	return true
}
