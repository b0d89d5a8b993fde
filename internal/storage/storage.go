// Package storage provides the durable key-value surface the stores persist into.
//
// Every store performs a full read-modify-write of a single key. There are no
// cross-key transactions and no merge: when two processes write the same key,
// the last writer wins.
package storage

import (
	"errors"
	"sync"
)

// ErrUnavailable is returned by Write when the backend cannot accept the value.
var ErrUnavailable = errors.New("storage unavailable")

// Surface is a string key-value store. Read reports false for absent keys and
// for backend read failures alike.
type Surface interface {
	Read(key string) (string, bool)
	Write(key, value string) error
}

// Notifier lets observers learn that the value under key has changed.
// The returned cancel function removes the subscription.
type Notifier interface {
	Subscribe(key string, fn func()) (cancel func())
}

// Store is a Surface that also delivers change notifications.
type Store interface {
	Surface
	Notifier
}

// hub fans change notifications out to per-key subscribers.
type hub struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]func()
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[int]func())}
}

func (h *hub) Subscribe(key string, fn func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	if h.subs[key] == nil {
		h.subs[key] = make(map[int]func())
	}
	h.subs[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[key], id)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
			}
		})
	}
}

func (h *hub) keys() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	keys := make([]string, 0, len(h.subs))
	for k := range h.subs {
		keys = append(keys, k)
	}
	return keys
}

// notify runs the callbacks outside the lock so they may re-enter the store.
func (h *hub) notify(key string) {
	h.mu.Lock()
	fns := make([]func(), 0, len(h.subs[key]))
	for _, fn := range h.subs[key] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
