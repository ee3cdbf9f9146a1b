package audit

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/neogan74/vigil/internal/persistence"
)

var eventKeyPrefix = []byte("audit:")

// EngineStore keeps the audit trail in an ordered persistence.Engine. Keys are
// the prefix, the big-endian unix-nano timestamp and a sequence number, so a
// reverse scan yields newest-first order directly.
type EngineStore struct {
	name   string
	engine persistence.Engine
	seq    atomic.Uint64
}

// NewEngineStore wraps engine. name is reported as the sink label.
func NewEngineStore(name string, engine persistence.Engine) *EngineStore {
	return &EngineStore{name: name, engine: engine}
}

func (s *EngineStore) Name() string { return s.name }

func (s *EngineStore) Append(_ context.Context, event *Event) error {
	if event == nil {
		return ErrNilEvent
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling audit event: %w", err)
	}
	if len(payload) > MaxEventSize {
		return fmt.Errorf("%w: %d bytes", ErrEventTooLarge, len(payload))
	}
	if err := s.engine.Put(s.key(event), payload); err != nil {
		return fmt.Errorf("writing audit event: %w", err)
	}
	return nil
}

// Count returns the number of stored events.
func (s *EngineStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.engine.Count(eventKeyPrefix)
}

func (s *EngineStore) key(event *Event) []byte {
	key := make([]byte, 0, len(eventKeyPrefix)+16)
	key = append(key, eventKeyPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(event.Timestamp.UnixNano()))
	key = binary.BigEndian.AppendUint64(key, s.seq.Add(1))
	return key
}

func (s *EngineStore) Query(ctx context.Context, filter Filter) ([]Event, error) {
	events := []Event{}
	var scanErr error

	err := s.engine.ReverseScan(eventKeyPrefix, func(_, value []byte) bool {
		if scanErr = ctx.Err(); scanErr != nil {
			return false
		}
		var event Event
		if err := json.Unmarshal(value, &event); err != nil {
			return true
		}
		// Keys are time ordered, nothing older can match.
		if !filter.Since.IsZero() && event.Timestamp.Before(filter.Since) {
			return false
		}
		if filter.matches(&event) {
			events = append(events, event)
		}
		return filter.Limit <= 0 || len(events) < filter.Limit
	})
	if err != nil {
		return nil, fmt.Errorf("scanning audit store: %w", err)
	}
	if scanErr != nil {
		return nil, scanErr
	}
	return events, nil
}

func (s *EngineStore) Close() error {
	return s.engine.Close()
}
