package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	coder "github.com/coder/websocket"
	"github.com/yanun0323/logs"

	"gatewatch/internal/chaos"
	"gatewatch/internal/client"
	"gatewatch/internal/schema"
	"gatewatch/pkg/websocket"
)

// soak runs a client against a local hub that keeps dropping it, with
// transport faults injected between the two, and reports whether the client
// kept recovering.
func main() {
	duration := flag.Duration("duration", 30*time.Second, "Soak duration")
	locator := flag.String("locator", "/gate-in", "Channel locator")
	seed := flag.Int64("seed", 0, "RNG seed (0=now)")
	dropRate := flag.Float64("drop-rate", 0.05, "Frame drop probability [0-1]")
	dupRate := flag.Float64("dup-rate", 0.05, "Frame duplicate probability [0-1]")
	corruptRate := flag.Float64("corrupt-rate", 0.02, "Frame corruption probability [0-1]")
	disconnectRate := flag.Float64("disconnect-rate", 0.01, "Abrupt disconnect probability per read [0-1]")
	dialFailRate := flag.Float64("dial-fail-rate", 0.2, "Dial failure probability [0-1]")
	hubDropEvery := flag.Duration("hub-drop-every", 3*time.Second, "Hub closes the connection this often (0=never)")
	publishEvery := flag.Duration("publish-every", 20*time.Millisecond, "Hub publish interval")
	flag.Parse()

	engine, err := chaos.NewEngine(chaos.Config{
		Seed:           *seed,
		DropRate:       *dropRate,
		DuplicateRate:  *dupRate,
		CorruptRate:    *corruptRate,
		DisconnectRate: *disconnectRate,
		DialFailRate:   *dialFailRate,
	})
	if err != nil {
		log.Fatalf("chaos config invalid: %s", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("listen failed: %s", err)
	}
	h := &hub{publishEvery: *publishEvery, dropEvery: *hubDropEvery}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = srv.Serve(ln)
	}()
	defer srv.Close()

	var received, opened atomic.Uint64
	c, err := client.New(client.Config{
		Locator:  *locator,
		Endpoint: "ws://" + ln.Addr().String(),
		Backoff:  websocket.Backoff{Base: 100 * time.Millisecond, Ceiling: time.Second, MaxAttempts: 50},
		Dialer:   engine.Dialer(websocket.NewDialer()),
	})
	if err != nil {
		log.Fatalf("client init failed: %s", err)
	}
	c.On(schema.KindMessage, func(schema.Event) { received.Add(1) })
	c.On(schema.KindConnected, func(schema.Event) { opened.Add(1) })
	c.On(schema.KindReconnectFailed, func(ev schema.Event) {
		logs.Errorf("client gave up after %d attempts", ev.Attempt)
	})

	logs.Infof("soak %s on %s, seed %d", *duration, c.URL(), engine.Seed())
	c.Connect()
	time.Sleep(*duration)
	final := c.State()
	c.Disconnect()

	st := engine.Stats()
	snap := c.Metrics().Snapshot()
	fmt.Printf("hub sent:        %d\n", h.sent.Load())
	fmt.Printf("hub drops:       %d\n", h.drops.Load())
	fmt.Printf("client opens:    %d\n", opened.Load())
	fmt.Printf("dispatched:      %d\n", received.Load())
	fmt.Printf("decode errors:   %d\n", snap.DecodeErrors)
	fmt.Printf("filtered:        %d\n", snap.Filtered)
	fmt.Printf("reconnects:      %d\n", snap.Reconnects)
	fmt.Printf("injected:        drop=%d dup=%d corrupt=%d disconnect=%d dial=%d\n",
		st.Dropped, st.Duplicated, st.Corrupted, st.Disconnects, st.DialFails)
	fmt.Printf("final state:     %s\n", final)

	if final == client.StateFailed {
		log.Fatalf("client did not recover")
	}
}

var gates = []string{"gate_in", "gate_out", ""}

type hub struct {
	publishEvery time.Duration
	dropEvery    time.Duration

	sent  atomic.Uint64
	drops atomic.Uint64
}

func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := coder.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer c.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := c.Read(ctx); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.publishEvery)
	defer ticker.Stop()
	var drop <-chan time.Time
	if h.dropEvery > 0 {
		t := time.NewTimer(h.dropEvery)
		defer t.Stop()
		drop = t.C
	}

	var seq int
	for {
		select {
		case <-ctx.Done():
			return
		case <-drop:
			h.drops.Add(1)
			_ = c.Close(coder.StatusGoingAway, "hub restart")
			return
		case <-ticker.C:
			seq++
			frame := fmt.Sprintf(`{"type":"parking_event","gate_id":%q,"payload":{"seq":%d}}`, gates[seq%len(gates)], seq)
			if err := c.Write(ctx, coder.MessageText, []byte(frame)); err != nil {
				return
			}
			h.sent.Add(1)
		}
	}
}
