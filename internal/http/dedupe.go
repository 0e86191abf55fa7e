package http

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// updateDeduper remembers recently accepted update ids so a redelivered update
// is acknowledged without a second reply.
type updateDeduper struct {
	mu   sync.Mutex
	seen *expirable.LRU[int64, struct{}]
}

func newUpdateDeduper(size int, ttl time.Duration) *updateDeduper {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &updateDeduper{seen: expirable.NewLRU[int64, struct{}](size, nil, ttl)}
}

// firstSeen records id and reports whether it was new. Peek honours the TTL;
// Contains would still report an expired id until the background sweep.
func (d *updateDeduper) firstSeen(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen.Peek(id); ok {
		return false
	}
	d.seen.Add(id, struct{}{})
	return true
}

// forget drops id so a redelivery of an update whose turn failed is processed.
func (d *updateDeduper) forget(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen.Remove(id)
}
