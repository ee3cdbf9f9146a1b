package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neogan74/vigil/internal/logger"
	"github.com/neogan74/vigil/internal/metrics"
)

// DropPolicy determines how the manager handles a full channel.
type DropPolicy string

const (
	DropPolicyDrop  DropPolicy = "drop"
	DropPolicyBlock DropPolicy = "block"
)

const (
	// DefaultQueryLimit applies when callers pass a non-positive limit.
	DefaultQueryLimit = 100
	// MaxQueryLimit caps a single page.
	MaxQueryLimit = 1000

	defaultBufferSize = 1024
)

// Config mirrors the public audit configuration.
type Config struct {
	Enabled    bool
	Sink       string // file, badger, memory
	FilePath   string
	DataDir    string
	SyncWrites bool
	BufferSize int
	DropPolicy DropPolicy
}

type request struct {
	event *Event
	ack   chan struct{}
}

// Manager buffers audit events and appends them to a Store from a single
// writer goroutine, in the order they were recorded.
type Manager struct {
	cfg   Config
	log   logger.Logger
	store Store
	now   func() time.Time

	queue     chan request
	wg        sync.WaitGroup
	stopOnce  sync.Once
	closeOnce sync.Once
	closeErr  error

	enabled bool
	closed  bool
	mu      sync.RWMutex
}

// NewManager builds the store described by cfg and starts the writer. When
// disabled, it falls back to a no-op manager.
func NewManager(cfg Config, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.GetDefault()
	}
	if !cfg.Enabled {
		return &Manager{cfg: cfg, log: log, now: utcNow}, nil
	}

	store, err := newStore(cfg, log)
	if err != nil {
		return nil, err
	}
	return NewManagerWithStore(store, cfg, log), nil
}

// NewManagerWithStore starts a manager writing to an already opened store.
func NewManagerWithStore(store Store, cfg Config, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetDefault()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.DropPolicy == "" {
		cfg.DropPolicy = DropPolicyDrop
	}
	cfg.Enabled = true
	cfg.Sink = store.Name()

	m := &Manager{
		cfg:     cfg,
		log:     log.WithFields(logger.String("component", "audit"), logger.String("sink", cfg.Sink)),
		store:   store,
		now:     utcNow,
		queue:   make(chan request, cfg.BufferSize),
		enabled: true,
	}

	m.wg.Add(1)
	go m.run()

	return m
}

func utcNow() time.Time { return time.Now().UTC() }

// Enabled indicates whether audit logging is active.
func (m *Manager) Enabled() bool {
	return m != nil && m.enabled
}

// Sink returns the configured sink name.
func (m *Manager) Sink() string {
	if m == nil {
		return ""
	}
	return m.cfg.Sink
}

// Record stamps the event with an ID and the current time and queues it for
// durable append. It never waits for the write itself. Failures are logged
// and counted here; callers on a request path may ignore the error.
func (m *Manager) Record(ctx context.Context, event *Event) (string, error) {
	if !m.Enabled() {
		return "", nil
	}
	if event == nil {
		return "", ErrNilEvent
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		m.dropped(event, "manager_closed")
		return "", ErrManagerClosed
	}

	event.ID = uuid.NewString()
	event.Timestamp = m.now()
	if event.Status == "" {
		event.Status = StatusSuccess
	}

	req := request{event: event}
	select {
	case m.queue <- req:
		return event.ID, nil
	default:
	}

	if m.cfg.DropPolicy == DropPolicyDrop {
		m.dropped(event, "buffer_full")
		return "", ErrBufferFull
	}
	select {
	case m.queue <- req:
		return event.ID, nil
	case <-ctx.Done():
		m.dropped(event, "context_cancelled")
		return "", ctx.Err()
	}
}

func (m *Manager) dropped(event *Event, reason string) {
	metrics.AuditEventsDroppedTotal.WithLabelValues(m.cfg.Sink, reason).Inc()
	m.log.Warn("Audit event dropped",
		logger.String("reason", reason),
		logger.String("event_type", string(event.Type)))
}

// Flush blocks until every event recorded before the call has been appended.
func (m *Manager) Flush(ctx context.Context) error {
	if !m.Enabled() {
		return nil
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrManagerClosed
	}
	ack := make(chan struct{})
	select {
	case m.queue <- request{ack: ack}:
		m.mu.RUnlock()
	case <-ctx.Done():
		m.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) run() {
	defer m.wg.Done()

	for req := range m.queue {
		if req.event != nil {
			m.write(req.event)
		}
		if req.ack != nil {
			close(req.ack)
		}
	}
}

func (m *Manager) write(event *Event) {
	start := time.Now()
	if err := m.store.Append(context.Background(), event); err != nil {
		m.log.Error("Failed to append audit event",
			logger.String("event_id", event.ID),
			logger.String("event_type", string(event.Type)),
			logger.Error(err))
		metrics.AuditEventsTotal.WithLabelValues(m.cfg.Sink, "error").Inc()
		return
	}
	metrics.AuditAppendDuration.WithLabelValues(m.cfg.Sink).Observe(time.Since(start).Seconds())
	metrics.AuditEventsTotal.WithLabelValues(m.cfg.Sink, "written").Inc()
}

// Shutdown drains the queue and closes the store.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.Enabled() {
		return nil
	}

	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		close(m.queue)
		m.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.closeOnce.Do(func() {
		m.closeErr = m.store.Close()
	})
	return m.closeErr
}

// Query reads the store directly with an arbitrary filter. The limit is not
// normalised. Store failures are wrapped in ErrQueryFailed.
func (m *Manager) Query(ctx context.Context, filter Filter) ([]Event, error) {
	if !m.Enabled() {
		return []Event{}, nil
	}
	events, err := m.store.Query(ctx, filter)
	if err != nil {
		metrics.AuditQueryFailuresTotal.WithLabelValues(m.cfg.Sink).Inc()
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return events, nil
}

// EventCount returns the number of stored events. ok is false when the
// manager is disabled or its sink cannot count without a full scan.
func (m *Manager) EventCount(ctx context.Context) (n int, ok bool, err error) {
	if !m.Enabled() {
		return 0, false, nil
	}
	counter, ok := m.store.(Counter)
	if !ok {
		return 0, false, nil
	}
	n, err = counter.Count(ctx)
	if err != nil {
		return 0, true, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return n, true, nil
}

// QueryAll returns the most recent events.
func (m *Manager) QueryAll(ctx context.Context, limit int) ([]Event, error) {
	return m.Query(ctx, Filter{Limit: normalizeLimit(limit)})
}

// QueryByUser returns the most recent events of one user.
func (m *Manager) QueryByUser(ctx context.Context, userID string, limit int) ([]Event, error) {
	return m.Query(ctx, Filter{UserID: userID, Limit: normalizeLimit(limit)})
}

// QueryByType returns the most recent events of one type.
func (m *Manager) QueryByType(ctx context.Context, eventType EventType, limit int) ([]Event, error) {
	return m.Query(ctx, Filter{Type: eventType, Limit: normalizeLimit(limit)})
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultQueryLimit
	case limit > MaxQueryLimit:
		return MaxQueryLimit
	default:
		return limit
	}
}
