package cache

import (
	"github.com/roach88/kitchensync/internal/model"
)

// View is a read-only window onto a Cache.
type View[T model.Entity] struct {
	cache *Cache[T]
}

// Items returns a copy of the entries in insertion order.
func (v *View[T]) Items() []T {
	c := v.cache
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Get returns the entry with the given id.
func (v *View[T]) Get(id string) (T, bool) {
	c := v.cache
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return c.items[i], true
}

// Len returns the number of entries.
func (v *View[T]) Len() int {
	c := v.cache
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Version increases every time the collection may have changed.
func (v *View[T]) Version() uint64 {
	c := v.cache
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Watch returns a channel that receives a signal after changes, and a
// function that stops the watch. Signals coalesce, so a receiver should
// re-read the view rather than count signals.
func (v *View[T]) Watch() (<-chan struct{}, func()) {
	c := v.cache
	ch := make(chan struct{}, 1)

	c.mu.Lock()
	c.watchers[ch] = struct{}{}
	c.mu.Unlock()

	var stopped bool
	stop := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if stopped {
			return
		}
		stopped = true
		delete(c.watchers, ch)
	}
	return ch, stop
}
