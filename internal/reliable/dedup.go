package reliable

import (
	"container/list"
	"sync"
)

// dedupKey identifies one (session, requestId, type) triple.
type dedupKey struct {
	sessionID string
	requestID uint32
	msgType   byte
}

// dedupSet is a bounded recently-seen set. Once it grows past its cap it
// evicts its oldest entries down to half the cap, rather than evicting one at a
// time, to avoid thrashing under sustained load right at the boundary.
type dedupSet struct {
	mu       sync.Mutex
	cap      int
	order    *list.List
	elements map[dedupKey]*list.Element
}

func newDedupSet(cap int) *dedupSet {
	return &dedupSet{
		cap:      cap,
		order:    list.New(),
		elements: make(map[dedupKey]*list.Element),
	}
}

// seenBefore reports whether key was already recorded, recording it if
// not.
func (d *dedupSet) seenBefore(key dedupKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.elements[key]; ok {
		return true
	}

	elem := d.order.PushBack(key)
	d.elements[key] = elem

	if d.order.Len() > d.cap {
		d.evictToHalf()
	}
	return false
}

func (d *dedupSet) evictToHalf() {
	target := d.cap / 2
	for d.order.Len() > target {
		front := d.order.Front()
		if front == nil {
			return
		}
		d.order.Remove(front)
		delete(d.elements, front.Value.(dedupKey))
	}
}

func (d *dedupSet) size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}
