package audit

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/goccy/go-json"
)

// MaxEventSize bounds one encoded event, and so one line of the file sink.
const MaxEventSize = 1 << 20

// FileStore keeps the audit trail as JSON lines in a single append-only file.
type FileStore struct {
	mu   sync.Mutex
	path string
	file *os.File
	sync bool
}

// NewFileStore opens (or creates) the log file at path. With syncWrites each
// Append is fsynced before it returns.
func NewFileStore(path string, syncWrites bool) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("audit file path cannot be empty")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create audit log directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	return &FileStore{path: path, file: file, sync: syncWrites}, nil
}

func (s *FileStore) Name() string { return "file" }

// Append writes one event as a single line.
func (s *FileStore) Append(_ context.Context, event *Event) error {
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
	payload = append(payload, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Write(payload); err != nil {
		return fmt.Errorf("writing audit event: %w", err)
	}
	if s.sync {
		if err := s.file.Sync(); err != nil {
			return fmt.Errorf("syncing audit log: %w", err)
		}
	}
	return nil
}

// Query scans the whole file. Malformed and oversized lines are skipped.
func (s *FileStore) Query(ctx context.Context, filter Filter) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Event{}, nil
		}
		return nil, fmt.Errorf("opening audit log for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []Event
	reader := bufio.NewReaderSize(f, 64*1024)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line, oversized, readErr := readLine(reader)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, fmt.Errorf("reading audit log: %w", readErr)
		}
		if !oversized && len(line) > 0 {
			var event Event
			if err := json.Unmarshal(line, &event); err == nil && filter.matches(&event) {
				events = append(events, event)
			}
		}
		if readErr != nil {
			break
		}
	}

	return newestFirst(events, filter.Limit), nil
}

// readLine returns the next line without its newline. A line longer than
// MaxEventSize is consumed to its end and reported as oversized.
func readLine(r *bufio.Reader) (line []byte, oversized bool, err error) {
	for {
		chunk, err := r.ReadSlice('\n')
		if !oversized {
			if len(line)+len(chunk) > MaxEventSize+1 {
				oversized, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return bytes.TrimSuffix(line, []byte{'\n'}), oversized, err
	}
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// newestFirst orders events read in insertion order by timestamp descending,
// later insertions first on ties, and truncates to limit when positive.
func newestFirst(events []Event, limit int) []Event {
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	if events == nil {
		events = []Event{}
	}
	return events
}
