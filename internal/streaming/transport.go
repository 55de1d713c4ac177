package streaming

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/muurk/bridge/internal/logging"
)

// SendFunc attempts a direct write to a session, returning an error if it
// failed (queue full, connection gone, etc).
type SendFunc func(sessionID string, frame []byte) error

// ShedFunc reports whether a frame should be dropped under the current
// overload policy before it is ever attempted. It is nil-safe: a nil
// ShedFunc never sheds.
type ShedFunc func(frame []byte) bool

// Config bounds the streaming transport's rate limiting, queueing, and
// cleanup behavior.
type Config struct {
	RateLimitEnabled  bool
	MessagesPerSecond int
	QueueCap          int
	DropOldMessages   bool

	DropTTL        time.Duration
	RequeueFreshness time.Duration
	BatchSize      int
	BatchInterval  time.Duration
	CleanupInterval time.Duration
	IdleLimiterTTL time.Duration
}

// Stats tallies streaming-transport outcomes.
type Stats struct {
	Sent          uint64
	RateLimited   uint64
	Queued        uint64
	Requeued      uint64
	DroppedStale  uint64
	DroppedOverflow uint64
	Shed          uint64
}

// Transport delivers frames to sessions without blocking the caller: it
// rate-limits, retries transient failures via a bounded queue, and sheds
// load under an externally supplied policy.
type Transport struct {
	cfg  Config
	send SendFunc
	shed ShedFunc

	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	lastSeen  map[string]time.Time
	queues    map[string]*sessionQueue

	stats Stats
}

// New returns a Transport that writes frames via send, applying shed (if
// non-nil) before every attempt.
func New(cfg Config, send SendFunc, shed ShedFunc) *Transport {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.BatchInterval <= 0 {
		cfg.BatchInterval = 10 * time.Millisecond
	}
	if cfg.DropTTL <= 0 {
		cfg.DropTTL = time.Second
	}
	if cfg.RequeueFreshness <= 0 {
		cfg.RequeueFreshness = 500 * time.Millisecond
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 2 * time.Second
	}
	if cfg.IdleLimiterTTL <= 0 {
		cfg.IdleLimiterTTL = 5 * time.Second
	}

	return &Transport{
		cfg:      cfg,
		send:     send,
		shed:     shed,
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		queues:   make(map[string]*sessionQueue),
	}
}

func (t *Transport) limiterFor(sessionID string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastSeen[sessionID] = time.Now()

	lim, ok := t.limiters[sessionID]
	if !ok {
		limit := rate.Limit(t.cfg.MessagesPerSecond)
		lim = rate.NewLimiter(limit, t.cfg.MessagesPerSecond)
		t.limiters[sessionID] = lim
	}
	return lim
}

func (t *Transport) queueFor(sessionID string) *sessionQueue {
	t.mu.Lock()
	defer t.mu.Unlock()

	q, ok := t.queues[sessionID]
	if !ok {
		q = newSessionQueue(t.cfg.QueueCap, t.cfg.DropOldMessages)
		t.queues[sessionID] = q
	}
	return q
}

// SendUnreliable attempts to deliver frame to sessionID without blocking:
// it sheds, rate-limits, attempts a direct write, and on failure enqueues
// the frame for a background retry.
func (t *Transport) SendUnreliable(sessionID string, frame []byte) {
	if t.shed != nil && t.shed(frame) {
		t.mu.Lock()
		t.stats.Shed++
		t.mu.Unlock()
		return
	}

	if t.cfg.RateLimitEnabled && !t.limiterFor(sessionID).Allow() {
		t.mu.Lock()
		t.stats.RateLimited++
		t.mu.Unlock()
		return
	}

	if err := t.send(sessionID, frame); err != nil {
		q := t.queueFor(sessionID)
		before := q.droppedCount()
		q.push(queuedMessage{frame: frame, createdAt: time.Now()})
		overflow := q.droppedCount() - before
		t.mu.Lock()
		t.stats.Queued++
		t.stats.DroppedOverflow += overflow
		t.mu.Unlock()
		return
	}

	t.mu.Lock()
	t.stats.Sent++
	t.mu.Unlock()
}

// BroadcastUnreliable sends frame to every session in sessionIDs
// independently; it never waits for a slow session to finish before
// moving to the next.
func (t *Transport) BroadcastUnreliable(sessionIDs []string, frame []byte) {
	var wg sync.WaitGroup
	wg.Add(len(sessionIDs))
	for _, id := range sessionIDs {
		go func(sessionID string) {
			defer wg.Done()
			t.SendUnreliable(sessionID, frame)
		}(id)
	}
	wg.Wait()
}

// RunProcessingLoop drains each session's retry queue in small batches
// until stop is closed.
func (t *Transport) RunProcessingLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(t.cfg.BatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.processBatches()
		case <-stop:
			return
		}
	}
}

func (t *Transport) processBatches() {
	t.mu.Lock()
	sessionIDs := make([]string, 0, len(t.queues))
	for id := range t.queues {
		sessionIDs = append(sessionIDs, id)
	}
	t.mu.Unlock()

	for _, sessionID := range sessionIDs {
		q := t.queueFor(sessionID)
		batch := q.drainBatch(t.cfg.BatchSize)

		for _, item := range batch {
			age := time.Since(item.createdAt)
			if age > t.cfg.DropTTL {
				t.mu.Lock()
				t.stats.DroppedStale++
				t.mu.Unlock()
				continue
			}

			if err := t.send(sessionID, item.frame); err != nil {
				if !item.requeued && age < t.cfg.RequeueFreshness {
					q.requeue(item)
					t.mu.Lock()
					t.stats.Requeued++
					t.mu.Unlock()
				} else {
					t.mu.Lock()
					t.stats.DroppedStale++
					t.mu.Unlock()
				}
				continue
			}

			t.mu.Lock()
			t.stats.Sent++
			t.mu.Unlock()
		}
	}
}

// RunCleanupLoop evicts idle per-session limiter state and queued
// messages older than cfg.DropTTL*2 (the spec's "2s" default given a 1s
// drop-ttl) until stop is closed.
func (t *Transport) RunCleanupLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(t.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.cleanup()
		case <-stop:
			return
		}
	}
}

func (t *Transport) cleanup() {
	t.mu.Lock()
	cutoff := time.Now().Add(-t.cfg.IdleLimiterTTL)
	for id, seen := range t.lastSeen {
		if seen.Before(cutoff) {
			delete(t.limiters, id)
			delete(t.lastSeen, id)
		}
	}
	queues := make(map[string]*sessionQueue, len(t.queues))
	for id, q := range t.queues {
		queues[id] = q
	}
	t.mu.Unlock()

	for _, q := range queues {
		evicted := q.evictOlderThan(2 * t.cfg.DropTTL)
		if evicted > 0 {
			logging.Debug("streaming cleanup evicted stale queued messages")
		}
	}
}

// QueueDepth returns the total number of queued (not-yet-delivered)
// messages across all sessions.
func (t *Transport) QueueDepth() int {
	t.mu.Lock()
	queues := make([]*sessionQueue, 0, len(t.queues))
	for _, q := range t.queues {
		queues = append(queues, q)
	}
	t.mu.Unlock()

	total := 0
	for _, q := range queues {
		total += q.len()
	}
	return total
}

// SnapshotStats returns a copy of the transport's current counters.
func (t *Transport) SnapshotStats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}
