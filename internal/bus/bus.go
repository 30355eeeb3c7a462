// Package bus is the in-process event registry between the client and its
// subscribers.
package bus

import (
	"sync"
	"sync/atomic"

	"github.com/yanun0323/logs"

	"gatewatch/internal/schema"
)

// Handler receives one dispatched event.
type Handler func(schema.Event)

// Subscription identifies one registered handler.
type Subscription struct {
	Kind schema.Kind
	id   uint64
}

// Valid reports whether s was returned by On.
func (s Subscription) Valid() bool {
	return s.id != 0
}

type entry struct {
	id uint64
	fn Handler
}

// Option customizes a Bus.
type Option func(*Bus)

// WithPanicHook is called after a handler panic has been recovered.
func WithPanicHook(hook func(kind schema.Kind, recovered any)) Option {
	return func(b *Bus) {
		b.onPanic = hook
	}
}

// Bus dispatches events to handlers registered per kind.
//
// Handler lists are copy-on-write: Emit iterates the list as it was when
// Emit was called, so handlers may call On and Off freely.
type Bus struct {
	mu       sync.RWMutex
	handlers map[schema.Kind][]entry
	nextID   atomic.Uint64
	panics   atomic.Uint64
	onPanic  func(schema.Kind, any)
}

// New creates an empty Bus.
func New(opts ...Option) *Bus {
	b := &Bus{handlers: make(map[schema.Kind][]entry)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// On registers fn for kind. Handlers run in registration order.
func (b *Bus) On(kind schema.Kind, fn Handler) Subscription {
	if fn == nil {
		return Subscription{}
	}
	id := b.nextID.Add(1)

	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.handlers[kind]
	next := make([]entry, len(list), len(list)+1)
	copy(next, list)
	b.handlers[kind] = append(next, entry{id: id, fn: fn})
	return Subscription{Kind: kind, id: id}
}

// Off removes the handler behind sub. It reports whether anything was removed.
func (b *Bus) Off(sub Subscription) bool {
	if !sub.Valid() {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.handlers[sub.Kind]
	for i, e := range list {
		if e.id != sub.id {
			continue
		}
		if len(list) == 1 {
			delete(b.handlers, sub.Kind)
			return true
		}
		next := make([]entry, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		b.handlers[sub.Kind] = next
		return true
	}
	return false
}

// Emit delivers ev to every handler registered for kind and returns how many
// ran to completion. ev.Kind is set to kind when unset.
func (b *Bus) Emit(kind schema.Kind, ev schema.Event) int {
	b.mu.RLock()
	list := b.handlers[kind]
	b.mu.RUnlock()
	if len(list) == 0 {
		return 0
	}
	if ev.Kind == schema.KindUnknown && ev.Type == "" {
		ev.Kind = kind
	}

	delivered := 0
	for _, e := range list {
		if b.call(kind, e.fn, ev) {
			delivered++
		}
	}
	return delivered
}

// Len returns the number of handlers registered for kind.
func (b *Bus) Len(kind schema.Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[kind])
}

// Panics returns how many handler panics were recovered.
func (b *Bus) Panics() uint64 {
	return b.panics.Load()
}

func (b *Bus) call(kind schema.Kind, fn Handler, ev schema.Event) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			b.panics.Add(1)
			logs.Errorf("bus: %s handler panic: %v", kind, r)
			if b.onPanic != nil {
				b.onPanic(kind, r)
			}
		}
	}()
	fn(ev)
	return true
}
