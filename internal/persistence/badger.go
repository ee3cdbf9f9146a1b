package persistence

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/neogan74/vigil/internal/logger"
)

const (
	gcInterval = 5 * time.Minute
	seekPad    = 64
)

// BadgerEngine implements Engine using BadgerDB
type BadgerEngine struct {
	db       *badger.DB
	log      logger.Logger
	stopGC   chan struct{}
	stopOnce sync.Once
}

// NewBadgerEngine creates a new BadgerDB persistence engine
func NewBadgerEngine(dataDir string, syncWrites bool, log logger.Logger) (*BadgerEngine, error) {
	if dataDir == "" {
		return nil, errors.New("badger data directory cannot be empty")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	opts := badger.DefaultOptions(dataDir)
	opts.SyncWrites = syncWrites
	opts.Logger = nil
	opts.ValueLogFileSize = 64 << 20
	opts.MemTableSize = 16 << 20
	opts.NumMemtables = 3
	opts.NumLevelZeroTables = 5
	opts.NumLevelZeroTablesStall = 10

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	engine := &BadgerEngine{
		db:     db,
		log:    log,
		stopGC: make(chan struct{}),
	}

	go engine.runGarbageCollection()

	log.Info("BadgerDB persistence engine initialized",
		logger.String("data_dir", dataDir),
		logger.Bool("sync_writes", syncWrites))

	return engine, nil
}

func (b *BadgerEngine) runGarbageCollection() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				b.log.Warn("BadgerDB garbage collection failed", logger.Error(err))
			}
		case <-b.stopGC:
			return
		}
	}
}

func (b *BadgerEngine) Put(key, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (b *BadgerEngine) ReverseScan(prefix []byte, fn func(key, value []byte) bool) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// In reverse mode Seek lands on the largest key <= the seek key.
		seek := append(append([]byte(nil), prefix...), bytes.Repeat([]byte{0xFF}, seekPad)...)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !fn(item.KeyCopy(nil), value) {
				return nil
			}
		}
		return nil
	})
}

func (b *BadgerEngine) Count(prefix []byte) (int, error) {
	n := 0
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (b *BadgerEngine) Close() error {
	b.stopOnce.Do(func() { close(b.stopGC) })
	return b.db.Close()
}
