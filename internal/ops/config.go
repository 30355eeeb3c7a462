package ops

import (
	"os"
	"time"

	"github.com/yanun0323/errors"
	"gopkg.in/yaml.v3"

	"gatewatch/internal/chaos"
	"gatewatch/internal/client"
	"gatewatch/internal/schema"
	"gatewatch/pkg/websocket"
)

var ErrInvalid = errors.New("ops: invalid config")

// FileConfig mirrors the YAML config layout.
type FileConfig struct {
	Hub       HubConfig          `yaml:"hub"`
	Reconnect ReconnectConfig    `yaml:"reconnect"`
	Requests  RequestsConfig     `yaml:"requests"`
	Metrics   MetricsConfig      `yaml:"metrics"`
	Profiling ProfilingConfig    `yaml:"profiling"`
	Journal   JournalConfig      `yaml:"journal"`
	Chaos     chaos.Config       `yaml:"chaos"`
	Features  FeatureFlagsConfig `yaml:"features"`
}

// HubConfig locates the hub and the channel to watch.
type HubConfig struct {
	Endpoint string `yaml:"endpoint"`
	Locator  string `yaml:"locator"`
}

// ReconnectConfig describes the backoff policy.
type ReconnectConfig struct {
	Base        time.Duration `yaml:"base"`
	Ceiling     time.Duration `yaml:"ceiling"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// RequestsConfig tunes the outbound request cadence.
type RequestsConfig struct {
	PingInterval      time.Duration `yaml:"ping_interval"`
	InitialDelay      time.Duration `yaml:"initial_delay"`
	StatusThrottle    time.Duration `yaml:"status_throttle"`
	StatusRequestType string        `yaml:"status_request_type"`
}

// MetricsConfig describes the Prometheus listener.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// ProfilingConfig describes continuous profiling.
type ProfilingConfig struct {
	ServerAddress string `yaml:"server_address"`
	AppName       string `yaml:"app_name"`
}

// JournalConfig describes the PostgreSQL activity journal.
type JournalConfig struct {
	DSN    string `yaml:"dsn"`
	Buffer int    `yaml:"buffer"`
}

// FeatureFlagsConfig captures optional runtime flags.
type FeatureFlagsConfig struct {
	EnableMetrics *bool `yaml:"enable_metrics"`
	EnableJournal *bool `yaml:"enable_journal"`
	EnableChaos   *bool `yaml:"enable_chaos"`
}

// FeatureFlags are resolved runtime flags.
type FeatureFlags struct {
	EnableMetrics bool
	EnableJournal bool
	EnableChaos   bool
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Client    client.Config
	Metrics   MetricsConfig
	Profiling ProfilingConfig
	Journal   JournalConfig
	Chaos     chaos.Config
	Features  FeatureFlags
}

const (
	DefaultMetricsAddr   = ":9108"
	DefaultAppName       = "gatewatch"
	DefaultJournalBuffer = 1024
)

// Load reads a YAML config file and resolves it.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrap(err, "read config")
	}
	return Parse(data)
}

// Parse resolves YAML config bytes. Empty input yields the defaults.
func Parse(data []byte) (Loaded, error) {
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, errors.Errorf("%w: %s", ErrInvalid, err.Error())
	}
	return cfg.Resolve()
}

// Resolve validates cfg and fills defaults.
func (cfg FileConfig) Resolve() (Loaded, error) {
	if err := validateReconnect(cfg.Reconnect); err != nil {
		return Loaded{}, err
	}
	if t := cfg.Requests.StatusRequestType; t != "" {
		switch schema.ParseKind(t) {
		case schema.KindRequestStatus, schema.KindRequestSystemStatus:
		default:
			return Loaded{}, errors.Errorf("%w: status_request_type %q", ErrInvalid, t)
		}
	}
	if err := cfg.Chaos.Validate(); err != nil {
		return Loaded{}, errors.Errorf("%w: chaos: %s", ErrInvalid, err.Error())
	}
	if cfg.Journal.Buffer < 0 {
		return Loaded{}, errors.Errorf("%w: journal buffer must be >= 0", ErrInvalid)
	}

	features := resolveFeatures(cfg.Features, cfg.Journal)
	if features.EnableJournal && cfg.Journal.DSN == "" {
		return Loaded{}, errors.Errorf("%w: journal enabled without dsn", ErrInvalid)
	}

	metrics := cfg.Metrics
	if metrics.Addr == "" {
		metrics.Addr = DefaultMetricsAddr
	}
	profiling := cfg.Profiling
	if profiling.AppName == "" {
		profiling.AppName = DefaultAppName
	}
	journal := cfg.Journal
	if journal.Buffer == 0 {
		journal.Buffer = DefaultJournalBuffer
	}

	return Loaded{
		Client: client.Config{
			Locator:  cfg.Hub.Locator,
			Endpoint: cfg.Hub.Endpoint,
			Backoff: websocket.Backoff{
				Base:        cfg.Reconnect.Base,
				Ceiling:     cfg.Reconnect.Ceiling,
				MaxAttempts: cfg.Reconnect.MaxAttempts,
			},
			PingInterval:        cfg.Requests.PingInterval,
			InitialRequestDelay: cfg.Requests.InitialDelay,
			StatusThrottle:      cfg.Requests.StatusThrottle,
			StatusRequestType:   cfg.Requests.StatusRequestType,
		},
		Metrics:   metrics,
		Profiling: profiling,
		Journal:   journal,
		Chaos:     cfg.Chaos,
		Features:  features,
	}, nil
}

func validateReconnect(cfg ReconnectConfig) error {
	if cfg.Base < 0 || cfg.Ceiling < 0 || cfg.MaxAttempts < 0 {
		return errors.Errorf("%w: reconnect values must be >= 0", ErrInvalid)
	}
	if cfg.Base > 0 && cfg.Ceiling > 0 && cfg.Ceiling < cfg.Base {
		return errors.Errorf("%w: reconnect ceiling below base", ErrInvalid)
	}
	return nil
}

func resolveFeatures(cfg FeatureFlagsConfig, journal JournalConfig) FeatureFlags {
	flags := FeatureFlags{
		EnableMetrics: true,
		EnableJournal: journal.DSN != "",
		EnableChaos:   false,
	}
	if cfg.EnableMetrics != nil {
		flags.EnableMetrics = *cfg.EnableMetrics
	}
	if cfg.EnableJournal != nil {
		flags.EnableJournal = *cfg.EnableJournal
	}
	if cfg.EnableChaos != nil {
		flags.EnableChaos = *cfg.EnableChaos
	}
	return flags
}
