// Package chaos injects transport faults between a channel client and the
// hub: dropped, duplicated and corrupted frames, abrupt disconnects and
// refused dials.
package chaos

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/yanun0323/errors"

	"gatewatch/pkg/websocket"
)

// ErrInjectedDial is returned by dials the engine refuses.
var ErrInjectedDial = errors.New("chaos: injected dial failure")

// Config controls fault injection. Rates are probabilities per frame or per
// dial.
type Config struct {
	Seed           int64   `yaml:"seed"`
	DropRate       float64 `yaml:"drop_rate"`
	DuplicateRate  float64 `yaml:"duplicate_rate"`
	CorruptRate    float64 `yaml:"corrupt_rate"`
	DisconnectRate float64 `yaml:"disconnect_rate"`
	DialFailRate   float64 `yaml:"dial_fail_rate"`
}

// Validate ensures the config is within supported ranges.
func (c Config) Validate() error {
	rates := []struct {
		name string
		v    float64
	}{
		{"dropRate", c.DropRate},
		{"duplicateRate", c.DuplicateRate},
		{"corruptRate", c.CorruptRate},
		{"disconnectRate", c.DisconnectRate},
		{"dialFailRate", c.DialFailRate},
	}
	for _, r := range rates {
		if r.v < 0 || r.v > 1 {
			return fmt.Errorf("%s must be between 0 and 1", r.name)
		}
	}
	return nil
}

// Stats counts injected faults.
type Stats struct {
	Dropped     uint64
	Duplicated  uint64
	Corrupted   uint64
	Disconnects uint64
	DialFails   uint64
}

// Engine decides which faults to inject. It is safe for concurrent use.
type Engine struct {
	cfg Config

	mu    sync.Mutex
	rng   *rand.Rand
	stats Stats
}

// NewEngine creates a chaos engine with validation. A zero seed picks one
// from the clock.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	return &Engine{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Seed returns the seed in use, for reproducing a run.
func (e *Engine) Seed() int64 {
	return e.cfg.Seed
}

// Stats returns a copy of the fault counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Dialer wraps inner so that dials and the connections they return are
// subject to the engine.
func (e *Engine) Dialer(inner websocket.Dialer) websocket.Dialer {
	return websocket.DialerFunc(func(ctx context.Context, url string) (websocket.Conn, error) {
		if e.roll(e.cfg.DialFailRate, &e.stats.DialFails) {
			return nil, ErrInjectedDial
		}
		conn, err := inner.Dial(ctx, url)
		if err != nil {
			return nil, err
		}
		return &faultyConn{Conn: conn, e: e}, nil
	})
}

func (e *Engine) roll(rate float64, counter *uint64) bool {
	if rate <= 0 {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rng.Float64() >= rate {
		return false
	}
	*counter++
	return true
}

func (e *Engine) corrupt(payload []byte) []byte {
	out := make([]byte, len(payload))
	copy(out, payload)
	if len(out) == 0 {
		return []byte{0xff}
	}
	e.mu.Lock()
	cut := e.rng.Intn(len(out))
	e.mu.Unlock()
	return out[:cut]
}

type faultyConn struct {
	websocket.Conn
	e *Engine

	mu      sync.Mutex
	pending []byte
}

// Read applies inbound faults. A duplicated frame is returned again by the
// next Read.
func (c *faultyConn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	c.mu.Lock()
	if dup := c.pending; dup != nil {
		c.pending = nil
		c.mu.Unlock()
		return websocket.MessageText, dup, nil
	}
	c.mu.Unlock()

	for {
		if c.e.roll(c.e.cfg.DisconnectRate, &c.e.stats.Disconnects) {
			_ = c.Conn.Close(0, "")
			return 0, nil, &websocket.CloseError{Code: websocket.CloseAbnormal, Reason: "chaos: injected disconnect"}
		}

		msgType, payload, err := c.Conn.Read(ctx)
		if err != nil || !msgType.IsData() {
			return msgType, payload, err
		}
		if c.e.roll(c.e.cfg.DropRate, &c.e.stats.Dropped) {
			continue
		}
		if c.e.roll(c.e.cfg.CorruptRate, &c.e.stats.Corrupted) {
			payload = c.e.corrupt(payload)
		}
		if c.e.roll(c.e.cfg.DuplicateRate, &c.e.stats.Duplicated) {
			c.mu.Lock()
			c.pending = payload
			c.mu.Unlock()
		}
		return msgType, payload, nil
	}
}
