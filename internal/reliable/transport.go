package reliable

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/muurk/bridge/internal/bridgeerr"
	"github.com/muurk/bridge/internal/logging"
	"github.com/muurk/bridge/internal/wire"
)

// SendFunc delivers an encoded frame to a session. It mirrors
// session.Session.Send so Transport does not need to import the session
// package directly.
type SendFunc func(sessionID string, frame []byte) error

// Config bounds the transport's retry and cleanup behavior.
type Config struct {
	Timeout       time.Duration
	MaxRetries    int
	BackoffBase   time.Duration
	BackoffCeil   time.Duration
	SweepInterval time.Duration
}

type pendingKey struct {
	sessionID string
	requestID uint32
}

type pendingEntry struct {
	createdAt  time.Time
	timeout    time.Duration
	maxRetries int
	resultCh   chan *wire.Message
	once       sync.Once
}

// resolve delivers msg to the waiter, if no terminal action has happened
// yet for this entry.
func (e *pendingEntry) resolve(msg *wire.Message) {
	e.once.Do(func() {
		e.resultCh <- msg
		close(e.resultCh)
	})
}

// reject closes the waiter's channel without a value, if no terminal
// action has happened yet for this entry.
func (e *pendingEntry) reject() {
	e.once.Do(func() {
		close(e.resultCh)
	})
}

// Transport correlates outbound reliable requests with their responses
// and absorbs duplicate re-delivery of inbound requests.
type Transport struct {
	cfg  Config
	send SendFunc

	mu       sync.Mutex
	pending  map[pendingKey]*pendingEntry
	counters map[string]*uint32

	dedup *dedupSet

	stats Stats
}

// Stats tallies reliable-transport outcomes, useful for the status port.
type Stats struct {
	Sent        uint64
	Resolved    uint64
	Retried     uint64
	Expired     uint64
	Duplicates  uint64
	Rejected    uint64
}

// New returns a Transport that writes frames via send.
func New(cfg Config, send SendFunc) *Transport {
	return &Transport{
		cfg:      cfg,
		send:     send,
		pending:  make(map[pendingKey]*pendingEntry),
		counters: make(map[string]*uint32),
		dedup:    newDedupSet(1000),
	}
}

// NextRequestID returns the next monotone request id for sessionID,
// wrapping at 2^32 per the protocol invariant.
func (t *Transport) NextRequestID(sessionID string) uint32 {
	t.mu.Lock()
	counter, ok := t.counters[sessionID]
	if !ok {
		var zero uint32
		counter = &zero
		t.counters[sessionID] = counter
	}
	t.mu.Unlock()
	return atomic.AddUint32(counter, 1)
}

// SendReliable assigns a fresh request id to msg, writes it to
// sessionID, and retries with exponential backoff until a matching
// response arrives (delivered via HandleResponse), the retry budget is
// exhausted, or ctx is canceled.
func (t *Transport) SendReliable(ctx context.Context, sessionID string, msg *wire.Message) (*wire.Message, error) {
	msg.RequestID = t.NextRequestID(sessionID)
	msg.Timestamp = float64(time.Now().UnixMilli())

	frame, err := wire.Encode(msg)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.CodeInvalidMessage, "failed to encode reliable request", err)
	}

	key := pendingKey{sessionID: sessionID, requestID: msg.RequestID}
	entry := &pendingEntry{
		createdAt:  time.Now(),
		timeout:    t.cfg.Timeout,
		maxRetries: t.cfg.MaxRetries,
		resultCh:   make(chan *wire.Message, 1),
	}

	t.mu.Lock()
	t.pending[key] = entry
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, key)
		t.mu.Unlock()
	}()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = t.cfg.BackoffBase
	bo.MaxInterval = t.cfg.BackoffCeil
	bo.MaxElapsedTime = 0

	attempt := 0
	for {
		if err := t.send(sessionID, frame); err != nil {
			t.mu.Lock()
			t.stats.Rejected++
			t.mu.Unlock()
			return nil, bridgeerr.Wrap(bridgeerr.CodeConnectionFailed, "failed to write reliable request", err)
		}
		t.mu.Lock()
		t.stats.Sent++
		t.mu.Unlock()

		select {
		case resp, ok := <-entry.resultCh:
			if !ok {
				return nil, bridgeerr.New(bridgeerr.CodeSessionClosed, "session closed while awaiting reliable response")
			}
			t.mu.Lock()
			t.stats.Resolved++
			t.mu.Unlock()
			return resp, nil

		case <-time.After(t.cfg.Timeout):
			if attempt >= t.cfg.MaxRetries {
				t.mu.Lock()
				t.stats.Expired++
				t.mu.Unlock()
				return nil, bridgeerr.New(bridgeerr.CodeTimeout, "reliable request timed out after final attempt")
			}
			attempt++
			delay := bo.NextBackOff()
			t.mu.Lock()
			t.stats.Retried++
			t.mu.Unlock()
			logging.LogRetry(sessionID, msg.RequestID, attempt, delay.String())

			select {
			case resp, ok := <-entry.resultCh:
				if !ok {
					return nil, bridgeerr.New(bridgeerr.CodeSessionClosed, "session closed while awaiting reliable response")
				}
				t.mu.Lock()
				t.stats.Resolved++
				t.mu.Unlock()
				return resp, nil
			case <-time.After(delay):
				// fall through and resend
			case <-ctx.Done():
				return nil, bridgeerr.Wrap(bridgeerr.CodeTimeout, "reliable request canceled", ctx.Err())
			}

		case <-ctx.Done():
			return nil, bridgeerr.Wrap(bridgeerr.CodeTimeout, "reliable request canceled", ctx.Err())
		}
	}
}

// HandleResponse delivers msg to the pending entry it answers, returning
// true if one was found (in which case the router should not dispatch it
// further). It returns false for every message with requestId 0 or with
// no matching pending entry.
func (t *Transport) HandleResponse(sessionID string, msg *wire.Message) bool {
	if msg.RequestID == 0 {
		return false
	}

	key := pendingKey{sessionID: sessionID, requestID: msg.RequestID}
	t.mu.Lock()
	entry, ok := t.pending[key]
	t.mu.Unlock()
	if !ok {
		return false
	}

	entry.resolve(msg)
	return true
}

// IsDuplicate reports whether (sessionID, requestId, type) was already
// observed, recording it if not. Callers use this to absorb a client's
// retried request without re-running side effects.
func (t *Transport) IsDuplicate(sessionID string, requestID uint32, msgType wire.MessageType) bool {
	dup := t.dedup.seenBefore(dedupKey{sessionID: sessionID, requestID: requestID, msgType: byte(msgType)})
	if dup {
		t.mu.Lock()
		t.stats.Duplicates++
		t.mu.Unlock()
	}
	return dup
}

// DropSession rejects every pending entry for sessionID with
// session-closed, as required when a session disconnects.
func (t *Transport) DropSession(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, entry := range t.pending {
		if key.sessionID != sessionID {
			continue
		}
		entry.reject()
		delete(t.pending, key)
		t.stats.Rejected++
	}
}

// Sweep removes pending entries whose total lifetime budget (with a 2x
// safety margin) has elapsed, and is meant to be called periodically by
// a background goroutine at cfg.SweepInterval.
func (t *Transport) Sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for key, entry := range t.pending {
		maxLifetime := entry.timeout * time.Duration(entry.maxRetries+1) * 2
		if now.Sub(entry.createdAt) > maxLifetime {
			entry.reject()
			delete(t.pending, key)
			t.stats.Expired++
		}
	}
}

// RunSweepLoop runs Sweep on cfg.SweepInterval until ctx is canceled.
func (t *Transport) RunSweepLoop(ctx context.Context) {
	interval := t.cfg.SweepInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// SnapshotStats returns a copy of the transport's current counters.
func (t *Transport) SnapshotStats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}
