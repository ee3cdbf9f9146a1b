package audit

import (
	"context"
	"fmt"

	"github.com/neogan74/vigil/internal/logger"
	"github.com/neogan74/vigil/internal/persistence"
)

// Store is the durable append-only backend of the audit trail.
//
// Append must be a complete, independent durable write: once it returns nil
// the event survives a process crash. Query returns matches sorted by
// timestamp descending, later insertions first among equal timestamps.
type Store interface {
	Append(ctx context.Context, event *Event) error
	Query(ctx context.Context, filter Filter) ([]Event, error)
	Name() string
	Close() error
}

// Counter is implemented by stores that keep a cheap event count.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

func newStore(cfg Config, log logger.Logger) (Store, error) {
	switch cfg.Sink {
	case "file":
		return NewFileStore(cfg.FilePath, cfg.SyncWrites)
	case "badger", "memory":
		engine, err := persistence.NewEngine(persistence.Config{
			Type:       cfg.Sink,
			DataDir:    cfg.DataDir,
			SyncWrites: cfg.SyncWrites,
		}, log)
		if err != nil {
			return nil, err
		}
		return NewEngineStore(cfg.Sink, engine), nil
	default:
		return nil, fmt.Errorf("unsupported audit sink: %s", cfg.Sink)
	}
}
