package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"gatewatch/internal/chaos"
	"gatewatch/internal/client"
	"gatewatch/internal/journal"
	"gatewatch/internal/obs"
	"gatewatch/internal/ops"
	"gatewatch/internal/schema"
	"gatewatch/pkg/conn"
	"gatewatch/pkg/websocket"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	endpoint := flag.String("endpoint", "", "Hub base URL (overrides config)")
	locator := flag.String("locator", "", "Page path or URL the channel is resolved from (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus listen address (overrides config)")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=disabled)")
	journalDSN := flag.String("journal-dsn", "", "PostgreSQL DSN for the event journal (overrides config)")
	flag.Parse()

	loaded, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %s", err)
	}
	if *endpoint != "" {
		loaded.Client.Endpoint = *endpoint
	}
	if *locator != "" {
		loaded.Client.Locator = *locator
	}
	if *metricsAddr != "" {
		loaded.Metrics.Addr = *metricsAddr
	}
	if *pyroscopeAddr != "" {
		loaded.Profiling.ServerAddress = *pyroscopeAddr
	}
	if *journalDSN != "" {
		loaded.Journal.DSN = *journalDSN
		loaded.Features.EnableJournal = true
	}

	if err := run(loaded); err != nil {
		log.Fatalf("gatewatch failed: %s", err)
	}
}

func loadConfig(path string) (ops.Loaded, error) {
	if path == "" {
		return ops.Parse(nil)
	}
	return ops.Load(path)
}

func run(loaded ops.Loaded) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if loaded.Profiling.ServerAddress != "" {
		profiler, err := startProfiler(loaded.Profiling)
		if err != nil {
			return err
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	cfg := loaded.Client
	cfg.Metrics = obs.NewMetrics()
	cfg.OnStateChange = func(from, to client.State) {
		logs.Infof("state %s -> %s", from, to)
	}
	if loaded.Features.EnableChaos {
		engine, err := chaos.NewEngine(loaded.Chaos)
		if err != nil {
			return err
		}
		logs.Warnf("chaos enabled, seed %d", engine.Seed())
		cfg.Dialer = engine.Dialer(websocket.NewDialer())
	}

	c, err := client.New(cfg)
	if err != nil {
		return err
	}
	logs.Infof("watching %s at %s", c.Identity(), c.URL())

	c.On(schema.KindMessage, func(ev schema.Event) {
		logs.Infof("%s gate=%s %s", ev.Type, ev.GateID, string(ev.Payload))
	})
	c.On(schema.KindReconnectFailed, func(ev schema.Event) {
		logs.Errorf("hub unreachable after %d attempts, waiting for shutdown", ev.Attempt)
	})

	if loaded.Features.EnableJournal {
		pg, err := conn.New(ctx, conn.Option{ConnString: loaded.Journal.DSN})
		if err != nil {
			return err
		}
		defer pg.Close()

		sink, err := journal.NewGormSink(pg.DB())
		if err != nil {
			return err
		}
		j := journal.New(sink, loaded.Journal.Buffer)
		j.Attach(c)
		done := make(chan struct{})
		go func() {
			defer close(done)
			j.Run(ctx)
		}()
		defer func() {
			j.Close()
			<-done
			logs.Infof("journal: %d written, %d failed, %d dropped", j.Written(), j.Failed(), j.Dropped())
		}()
	}

	if loaded.Features.EnableMetrics {
		srv, err := serveMetrics(loaded.Metrics.Addr, cfg.Metrics, c.Identity().String())
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	c.Connect()
	<-sys.Shutdown()
	logs.Infof("shutting down")
	c.Disconnect()
	return nil
}

func serveMetrics(addr string, m *obs.Metrics, channel string) (*http.Server, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	if err := obs.Register(reg, m, channel); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logs.Errorf("metrics server: %s", err)
		}
	}()
	logs.Infof("metrics on %s/metrics", addr)
	return srv, nil
}

func startProfiler(cfg ops.ProfilingConfig) (*pyroscope.Profiler, error) {
	return pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.AppName,
		ServerAddress:   cfg.ServerAddress,
		Logger:          profilerLogger{},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
}

type profilerLogger struct{}

func (profilerLogger) Infof(format string, args ...interface{})  { logs.Debugf(format, args...) }
func (profilerLogger) Debugf(format string, args ...interface{}) { logs.Debugf(format, args...) }
func (profilerLogger) Errorf(format string, args ...interface{}) { logs.Errorf(format, args...) }
