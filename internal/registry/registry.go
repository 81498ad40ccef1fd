// Package registry owns the mapping from a published port to the local
// actor it fronts, plus the interface names that actor advertises.
package registry

import (
	"sync"

	"github.com/basp-mesh/basp/internal/wire"
)

// Entry is one published-actor record.
type Entry struct {
	Actor     wire.ActorID
	Interface map[string]struct{}
}

// NotifyFunc is invoked once per removal. Callers pass it per call rather
// than registering a baked-in observer list.
type NotifyFunc func(port uint16, e Entry)

// PublishedActors is the port -> (actor, interface) map of spec §4.4.
type PublishedActors struct {
	mu    sync.RWMutex
	items map[uint16]Entry
}

// New returns an empty published-actor registry.
func New() *PublishedActors {
	return &PublishedActors{items: make(map[uint16]Entry)}
}

// Add overwrites any prior entry for port.
func (r *PublishedActors) Add(port uint16, actor wire.ActorID, interfaces []string) {
	set := make(map[string]struct{}, len(interfaces))
	for _, s := range interfaces {
		set[s] = struct{}{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[port] = Entry{Actor: actor, Interface: set}
}

// Snapshot returns a copy of the port -> entry map, for read-only
// inspection (cmd/baspctl, the admin HTTP surface).
func (r *PublishedActors) Snapshot() map[uint16]Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uint16]Entry, len(r.items))
	for p, e := range r.items {
		out[p] = e
	}
	return out
}

// Lookup returns the entry published at port, if any.
func (r *PublishedActors) Lookup(port uint16) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[port]
	return e, ok
}

// RemoveByPort removes the entry at port, notifying cb once if one
// existed. Returns the number of entries removed (0 or 1).
func (r *PublishedActors) RemoveByPort(port uint16, cb NotifyFunc) int {
	r.mu.Lock()
	e, ok := r.items[port]
	if ok {
		delete(r.items, port)
	}
	r.mu.Unlock()
	if !ok {
		return 0
	}
	if cb != nil {
		cb(port, e)
	}
	return 1
}

// RemoveByActor removes entries by actor. If port != 0, only the entry at
// that port is removed (and only if its actor matches). If port == 0,
// every entry whose actor matches is removed. cb is invoked once per
// removal.
func (r *PublishedActors) RemoveByActor(actor wire.ActorID, port uint16, cb NotifyFunc) int {
	if port != 0 {
		r.mu.Lock()
		e, ok := r.items[port]
		if ok && e.Actor == actor {
			delete(r.items, port)
		} else {
			ok = false
		}
		r.mu.Unlock()
		if !ok {
			return 0
		}
		if cb != nil {
			cb(port, e)
		}
		return 1
	}

	r.mu.Lock()
	var removed []struct {
		port uint16
		e    Entry
	}
	for p, e := range r.items {
		if e.Actor == actor {
			removed = append(removed, struct {
				port uint16
				e    Entry
			}{p, e})
			delete(r.items, p)
		}
	}
	r.mu.Unlock()

	for _, rm := range removed {
		if cb != nil {
			cb(rm.port, rm.e)
		}
	}
	return len(removed)
}
