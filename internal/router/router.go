package router

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/muurk/bridge/internal/bridgeerr"
	"github.com/muurk/bridge/internal/logging"
	"github.com/muurk/bridge/internal/wire"
)

// Processor handles every message in one domain, delegating to an
// external port for the real work. A nil response means "nothing to send
// back" (e.g. a broadcast already fanned out by the processor itself).
type Processor interface {
	Domain() wire.Domain
	Process(ctx context.Context, msg *wire.Message, sessionID string) (*wire.Message, error)
}

// Stats tallies router outcomes, all independently resettable.
type Stats struct {
	TotalProcessed uint64
	TotalErrors    uint64
	PerDomain      map[wire.Domain]uint64
}

// Router classifies, times out, and dispatches to domain processors.
type Router struct {
	mu         sync.RWMutex
	processors map[wire.Domain]Processor
	timeouts   map[wire.MessageType]time.Duration
	defaultTO  time.Duration

	stats Stats
}

// New returns an empty Router. Register processors with Register before
// routing any messages.
func New(defaultTimeout time.Duration) *Router {
	if defaultTimeout <= 0 {
		defaultTimeout = 5 * time.Second
	}
	return &Router{
		processors: make(map[wire.Domain]Processor),
		timeouts:   defaultTimeouts(),
		defaultTO:  defaultTimeout,
		stats:      Stats{PerDomain: make(map[wire.Domain]uint64)},
	}
}

// defaultTimeouts mirrors the specification's per-type soft timeouts.
func defaultTimeouts() map[wire.MessageType]time.Duration {
	return map[wire.MessageType]time.Duration{
		wire.MsgBLEScanRequest:     15 * time.Second,
		wire.MsgBLEConnectRequest:  15 * time.Second,
		wire.MsgRecordStartRequest: 30 * time.Second,
		wire.MsgRecordStopRequest:  10 * time.Second,
		wire.MsgHeartbeat:          5 * time.Second,
		wire.MsgStatusRequest:      5 * time.Second,
		wire.MsgPing:               5 * time.Second,
	}
}

// Register installs a processor for the domain it declares, overwriting
// any previous registration for that domain.
func (r *Router) Register(p Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[p.Domain()] = p
}

// SetTimeout overrides the soft timeout for a specific message type.
func (r *Router) SetTimeout(t wire.MessageType, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeouts[t] = d
}

// Route classifies msg, dispatches it to the registered processor for its
// domain, and returns the processor's response (or a well-formed error
// frame on any failure). Route returns nil only when the processor returns
// a nil *wire.Message and a nil error, which signals that nothing is sent
// back; Route passes that nil through unchanged.
func (r *Router) Route(ctx context.Context, msg *wire.Message, sessionID string) *wire.Message {
	domain, ok := wire.ClassifyDomain(msg.Type)
	if !ok {
		r.recordError("")
		logging.LogDispatch(sessionID, "unknown", byte(msg.Type), bridgeerr.New(bridgeerr.CodeInvalidMessage, "unrecognized message type"))
		return errorFrame(msg.RequestID, bridgeerr.CodeInvalidMessage, "unrecognized message type")
	}

	r.mu.RLock()
	proc, ok := r.processors[domain]
	r.mu.RUnlock()
	if !ok {
		r.recordError(domain)
		logging.LogDispatch(sessionID, string(domain), byte(msg.Type), bridgeerr.New(bridgeerr.CodeInvalidMessage, "no processor registered for domain"))
		return errorFrame(msg.RequestID, bridgeerr.CodeInvalidMessage, "no processor registered for domain "+string(domain))
	}

	timeout := r.timeoutFor(msg.Type)
	procCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := proc.Process(procCtx, msg, sessionID)

	r.mu.Lock()
	r.stats.TotalProcessed++
	r.mu.Unlock()

	if err != nil {
		r.recordError(domain)
		logging.LogDispatch(sessionID, string(domain), byte(msg.Type), err)
		code, ok := bridgeerr.CodeOf(err)
		switch {
		case ok:
		case errors.Is(err, context.DeadlineExceeded):
			code = bridgeerr.CodeTimeout
		default:
			code = bridgeerr.CodeInvalidMessage
		}
		return errorFrame(msg.RequestID, code, err.Error())
	}

	logging.LogDispatch(sessionID, string(domain), byte(msg.Type), nil)
	return resp
}

func (r *Router) timeoutFor(t wire.MessageType) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.timeouts[t]; ok {
		return d
	}
	return r.defaultTO
}

func (r *Router) recordError(domain wire.Domain) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.TotalErrors++
	if domain != "" {
		r.stats.PerDomain[domain]++
	}
}

// SnapshotStats returns a copy of the router's current counters.
func (r *Router) SnapshotStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	perDomain := make(map[wire.Domain]uint64, len(r.stats.PerDomain))
	for k, v := range r.stats.PerDomain {
		perDomain[k] = v
	}
	return Stats{
		TotalProcessed: r.stats.TotalProcessed,
		TotalErrors:    r.stats.TotalErrors,
		PerDomain:      perDomain,
	}
}

// ResetStats zeroes every counter.
func (r *Router) ResetStats() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = Stats{PerDomain: make(map[wire.Domain]uint64)}
}

func errorFrame(requestID uint32, code bridgeerr.Code, message string) *wire.Message {
	return &wire.Message{
		Type:      wire.MsgError,
		RequestID: requestID,
		Timestamp: float64(time.Now().UnixMilli()),
		Fields: map[string]interface{}{
			"code":    string(code),
			"message": message,
		},
	}
}
