// Package cache implements the daemon's in-memory mirror of market data:
// three fixed, independently-updated slots, each holding one payload and
// the wall-clock time it was last replaced. Writers come exclusively from
// the subscription manager; readers come from the IPC server.
//
// Each slot is an atomic pointer swap rather than a mutex-guarded map, so
// a reader never blocks a writer and always observes a complete prior
// snapshot (the cache is intentionally not copy-on-read).
package cache

import (
	"sync/atomic"
	"time"
)

// Slot identifies one of the three fixed cache slots.
type Slot string

const (
	Mids       Slot = "mids"
	AssetCtxs  Slot = "assetCtxs"
	PerpMetas  Slot = "perpMetas"
)

// entry is the immutable value behind a slot's atomic pointer.
type entry struct {
	payload   any
	updatedAt time.Time
}

// SlotStatus is the per-slot summary returned by Status.
type SlotStatus struct {
	Present bool
	AgeMS   int64 // only meaningful when Present is true
}

// Cache holds the three fixed market-data slots.
type Cache struct {
	mids      atomic.Pointer[entry]
	assetCtxs atomic.Pointer[entry]
	perpMetas atomic.Pointer[entry]
}

// New returns an empty cache; every slot starts absent.
func New() *Cache {
	return &Cache{}
}

func (c *Cache) slot(s Slot) *atomic.Pointer[entry] {
	switch s {
	case Mids:
		return &c.mids
	case AssetCtxs:
		return &c.assetCtxs
	case PerpMetas:
		return &c.perpMetas
	default:
		return nil
	}
}

// Put replaces slot's value and stamps it with the current time.
// Put on an unknown slot is a no-op — the cache has exactly three slots.
func (c *Cache) Put(s Slot, payload any) {
	p := c.slot(s)
	if p == nil {
		return
	}
	p.Store(&entry{payload: payload, updatedAt: time.Now()})
}

// Get returns slot's payload and the time it was stamped, or ok == false
// if the slot has never been populated.
func (c *Cache) Get(s Slot) (payload any, updatedAt time.Time, ok bool) {
	p := c.slot(s)
	if p == nil {
		return nil, time.Time{}, false
	}
	e := p.Load()
	if e == nil {
		return nil, time.Time{}, false
	}
	return e.payload, e.updatedAt, true
}

// Status returns a point-in-time summary of every slot.
func (c *Cache) Status() map[Slot]SlotStatus {
	now := time.Now()
	status := make(map[Slot]SlotStatus, 3)
	for _, s := range []Slot{Mids, AssetCtxs, PerpMetas} {
		if _, updatedAt, ok := c.Get(s); ok {
			status[s] = SlotStatus{Present: true, AgeMS: now.Sub(updatedAt).Milliseconds()}
		} else {
			status[s] = SlotStatus{Present: false}
		}
	}
	return status
}
