package client

import (
	"net/url"
	"time"

	"github.com/yanun0323/errors"

	"gatewatch/internal/liveness"
	"gatewatch/internal/obs"
	"gatewatch/internal/schema"
	"gatewatch/pkg/websocket"
)

const (
	DefaultEndpoint            = "ws://localhost:8000"
	DefaultInitialRequestDelay = 500 * time.Millisecond
	DefaultStatusThrottle      = 2 * time.Second
	DefaultGateOpenDuration    = 10
	DefaultPaymentMethod       = "card"
)

var (
	ErrBadConfig   = errors.New("client: invalid config")
	ErrBadEndpoint = errors.New("client: invalid endpoint")
)

// Config describes one channel client. Zero values select defaults.
type Config struct {
	// Locator is the page URL or path the channel identity is resolved from.
	Locator  string
	// Endpoint is the hub base URL; the channel path is appended to it.
	Endpoint string

	Backoff             websocket.Backoff
	PingInterval        time.Duration
	InitialRequestDelay time.Duration
	StatusThrottle      time.Duration
	// StatusRequestType is request_status or request_system_status.
	StatusRequestType   string

	Dialer    websocket.Dialer
	Scheduler websocket.Scheduler
	Metrics   *obs.Metrics

	// OnStateChange observes every state transition. It runs outside the
	// client lock.
	OnStateChange func(from, to State)
}

func (cfg *Config) normalize() error {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return errors.Errorf("%w: %s", ErrBadEndpoint, err.Error())
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return errors.Errorf("%w: scheme %q", ErrBadEndpoint, u.Scheme)
	}
	if u.Host == "" {
		return errors.Errorf("%w: missing host", ErrBadEndpoint)
	}

	if cfg.Backoff.IsZero() {
		cfg.Backoff = websocket.DefaultBackoff()
	}
	if cfg.Backoff.Base < 0 || cfg.Backoff.Ceiling < 0 || cfg.Backoff.MaxAttempts < 0 {
		return errors.Errorf("%w: negative backoff", ErrBadConfig)
	}
	if cfg.PingInterval < 0 || cfg.InitialRequestDelay < 0 || cfg.StatusThrottle < 0 {
		return errors.Errorf("%w: negative interval", ErrBadConfig)
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = liveness.DefaultInterval
	}
	if cfg.InitialRequestDelay == 0 {
		cfg.InitialRequestDelay = DefaultInitialRequestDelay
	}
	if cfg.StatusThrottle == 0 {
		cfg.StatusThrottle = DefaultStatusThrottle
	}

	switch schema.ParseKind(cfg.StatusRequestType) {
	case schema.KindRequestStatus, schema.KindRequestSystemStatus:
	default:
		if cfg.StatusRequestType != "" {
			return errors.Errorf("%w: status request type %q", ErrBadConfig, cfg.StatusRequestType)
		}
		cfg.StatusRequestType = schema.KindRequestStatus.String()
	}

	if cfg.Dialer == nil {
		cfg.Dialer = websocket.NewDialer()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = websocket.SystemScheduler()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = obs.NewMetrics()
	}
	return nil
}
