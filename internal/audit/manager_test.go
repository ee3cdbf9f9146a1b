package audit

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/neogan74/vigil/internal/logger"
	"github.com/neogan74/vigil/internal/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steppingClock returns t0, t0+step, t0+2*step, ...
func steppingClock(t0 time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := t0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		ts := next
		next = next.Add(step)
		return ts
	}
}

func newMemoryManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	engine, err := persistence.NewEngine(persistence.Config{Type: "memory"}, logger.Nop())
	require.NoError(t, err)
	m := NewManagerWithStore(NewEngineStore("memory", engine), cfg, logger.Nop())
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m
}

func TestManagerDisabledIsNoop(t *testing.T) {
	mgr, err := NewManager(Config{Enabled: false}, logger.Nop())
	require.NoError(t, err)

	id, err := mgr.Record(context.Background(), NewEvent(EventLoginSuccess, StatusSuccess))
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.False(t, mgr.Enabled())

	events, err := mgr.QueryAll(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mgr.Flush(context.Background()))
	assert.NoError(t, mgr.Shutdown(context.Background()))
}

func TestManagerUnknownSink(t *testing.T) {
	_, err := NewManager(Config{Enabled: true, Sink: "kafka"}, logger.Nop())
	require.Error(t, err)
}

func TestManagerAssignsIDAndTimestamp(t *testing.T) {
	m := newMemoryManager(t, Config{})
	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	m.now = steppingClock(t0, time.Second)

	ev := NewEvent(EventLogout, "").WithUser("u1", "u1@example.com")
	id, err := m.Record(context.Background(), ev)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NoError(t, m.Flush(context.Background()))

	events, err := m.QueryAll(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].ID)
	assert.True(t, t0.Equal(events[0].Timestamp))
	assert.Equal(t, StatusSuccess, events[0].Status)
	assert.Equal(t, "u1@example.com", events[0].UserEmail)
}

func TestManagerNilEvent(t *testing.T) {
	m := newMemoryManager(t, Config{})
	_, err := m.Record(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilEvent)
}

func TestManagerNewestFirst(t *testing.T) {
	sinks := map[string]func(t *testing.T) *Manager{
		"memory": func(t *testing.T) *Manager { return newMemoryManager(t, Config{}) },
		"file": func(t *testing.T) *Manager {
			m, err := NewManager(Config{
				Enabled:    true,
				Sink:       "file",
				FilePath:   filepath.Join(t.TempDir(), "audit.log"),
				SyncWrites: true,
			}, logger.Nop())
			require.NoError(t, err)
			t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
			return m
		},
		"badger": func(t *testing.T) *Manager {
			m, err := NewManager(Config{
				Enabled: true,
				Sink:    "badger",
				DataDir: t.TempDir(),
			}, logger.Nop())
			require.NoError(t, err)
			t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
			return m
		},
	}

	for name, build := range sinks {
		t.Run(name, func(t *testing.T) {
			m := build(t)
			assert.Equal(t, name, m.Sink())

			t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
			m.now = steppingClock(t0, time.Minute)

			for _, user := range []string{"t1", "t2", "t3"} {
				_, err := m.Record(context.Background(), NewEvent(EventLoginSuccess, StatusSuccess).WithUser(user, ""))
				require.NoError(t, err)
			}
			require.NoError(t, m.Flush(context.Background()))

			events, err := m.QueryAll(context.Background(), 10)
			require.NoError(t, err)
			require.Len(t, events, 3)
			assert.Equal(t, "t3", events[0].UserID)
			assert.Equal(t, "t2", events[1].UserID)
			assert.Equal(t, "t1", events[2].UserID)

			page, err := m.QueryAll(context.Background(), 2)
			require.NoError(t, err)
			require.Len(t, page, 2)
			assert.Equal(t, "t3", page[0].UserID)
		})
	}
}

func TestManagerQueryByUserAndType(t *testing.T) {
	m := newMemoryManager(t, Config{})
	m.now = steppingClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), time.Second)

	record := func(ev *Event) {
		_, err := m.Record(context.Background(), ev)
		require.NoError(t, err)
	}
	record(NewEvent(EventLoginSuccess, StatusSuccess).WithUser("alice", ""))
	record(NewEvent(EventLoginFailed, StatusFailed).WithUser("bob", ""))
	record(NewEvent(EventPasswordChanged, StatusSuccess).WithUser("alice", ""))
	record(NewEvent(EventLoginFailed, StatusFailed).WithUser("alice", ""))
	require.NoError(t, m.Flush(context.Background()))

	byUser, err := m.QueryByUser(context.Background(), "alice", 0)
	require.NoError(t, err)
	require.Len(t, byUser, 3)
	assert.Equal(t, EventLoginFailed, byUser[0].Type)
	assert.Equal(t, EventLoginSuccess, byUser[2].Type)

	byType, err := m.QueryByType(context.Background(), EventLoginFailed, 0)
	require.NoError(t, err)
	require.Len(t, byType, 2)
	assert.Equal(t, "alice", byType[0].UserID)
	assert.Equal(t, "bob", byType[1].UserID)

	none, err := m.QueryByUser(context.Background(), "carol", 0)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultQueryLimit, normalizeLimit(0))
	assert.Equal(t, DefaultQueryLimit, normalizeLimit(-5))
	assert.Equal(t, 50, normalizeLimit(50))
	assert.Equal(t, MaxQueryLimit, normalizeLimit(MaxQueryLimit+1))
}

// gatedStore blocks every Append until release is closed.
type gatedStore struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once

	mu     sync.Mutex
	events []Event
}

func newGatedStore() *gatedStore {
	return &gatedStore{started: make(chan struct{}), release: make(chan struct{})}
}

func (s *gatedStore) Append(_ context.Context, event *Event) error {
	s.once.Do(func() { close(s.started) })
	<-s.release
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

func (s *gatedStore) Query(context.Context, Filter) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newestFirst(append([]Event(nil), s.events...), 0), nil
}

func (s *gatedStore) Name() string { return "gated" }
func (s *gatedStore) Close() error { return nil }

func TestManagerDropPolicy(t *testing.T) {
	store := newGatedStore()
	m := NewManagerWithStore(store, Config{BufferSize: 1, DropPolicy: DropPolicyDrop}, logger.Nop())

	_, err := m.Record(context.Background(), NewEvent(EventLogout, StatusSuccess))
	require.NoError(t, err)
	<-store.started

	_, err = m.Record(context.Background(), NewEvent(EventLogout, StatusSuccess))
	require.NoError(t, err)

	_, err = m.Record(context.Background(), NewEvent(EventLogout, StatusSuccess))
	assert.ErrorIs(t, err, ErrBufferFull)

	close(store.release)
	require.NoError(t, m.Shutdown(context.Background()))
	assert.Len(t, store.events, 2)
}

func TestManagerBlockPolicyHonoursContext(t *testing.T) {
	store := newGatedStore()
	m := NewManagerWithStore(store, Config{BufferSize: 1, DropPolicy: DropPolicyBlock}, logger.Nop())

	_, err := m.Record(context.Background(), NewEvent(EventLogout, StatusSuccess))
	require.NoError(t, err)
	<-store.started
	_, err = m.Record(context.Background(), NewEvent(EventLogout, StatusSuccess))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Record(ctx, NewEvent(EventLogout, StatusSuccess))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	close(store.release)
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestManagerRejectsWritesAfterShutdown(t *testing.T) {
	m, err := NewManager(Config{
		Enabled:  true,
		Sink:     "file",
		FilePath: filepath.Join(t.TempDir(), "audit.log"),
	}, logger.Nop())
	require.NoError(t, err)

	_, err = m.Record(context.Background(), NewEvent(EventBackupCreated, StatusSuccess))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))
	require.NoError(t, m.Shutdown(ctx))

	_, err = m.Record(context.Background(), NewEvent(EventBackupCreated, StatusSuccess))
	assert.ErrorIs(t, err, ErrManagerClosed)
	assert.ErrorIs(t, m.Flush(context.Background()), ErrManagerClosed)
}

type failingStore struct{}

func (failingStore) Append(context.Context, *Event) error { return errors.New("disk full") }
func (failingStore) Query(context.Context, Filter) ([]Event, error) {
	return nil, errors.New("disk on fire")
}
func (failingStore) Name() string { return "failing" }
func (failingStore) Close() error { return nil }

func TestManagerWrapsQueryFailures(t *testing.T) {
	m := NewManagerWithStore(failingStore{}, Config{}, logger.Nop())
	defer func() { _ = m.Shutdown(context.Background()) }()

	// Append failures are logged by the writer, never surfaced to Record.
	_, err := m.Record(context.Background(), NewEvent(EventLogout, StatusSuccess))
	require.NoError(t, err)
	require.NoError(t, m.Flush(context.Background()))

	_, err = m.QueryAll(context.Background(), 10)
	require.ErrorIs(t, err, ErrQueryFailed)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestManagerEventCount(t *testing.T) {
	m := newMemoryManager(t, Config{})
	for i := 0; i < 3; i++ {
		_, err := m.Record(context.Background(), NewEvent(EventLogout, StatusSuccess))
		require.NoError(t, err)
	}
	require.NoError(t, m.Flush(context.Background()))

	n, ok, err := m.EventCount(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	// The file sink keeps no index, so it reports no count.
	store, err := NewFileStore(filepath.Join(t.TempDir(), "audit.log"), false)
	require.NoError(t, err)
	fm := NewManagerWithStore(store, Config{}, logger.Nop())
	defer func() { _ = fm.Shutdown(context.Background()) }()
	_, ok, err = fm.EventCount(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	var disabled *Manager
	_, ok, err = disabled.EventCount(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManagerConcurrentRecord(t *testing.T) {
	m := newMemoryManager(t, Config{BufferSize: 16, DropPolicy: DropPolicyBlock})

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Record(context.Background(), NewEvent(EventDataAccessed, StatusSuccess))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	require.NoError(t, m.Flush(context.Background()))

	events, err := m.Query(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, events, 200)
}
