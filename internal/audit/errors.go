package audit

import "errors"

var (
	// ErrManagerClosed is returned when writes occur after shutdown.
	ErrManagerClosed = errors.New("audit manager closed")
	// ErrNilEvent is returned when callers attempt to record a nil event.
	ErrNilEvent = errors.New("audit event is nil")
	// ErrBufferFull is returned when the drop policy rejects an event.
	ErrBufferFull = errors.New("audit buffer full")
	// ErrEventTooLarge is returned when an encoded event exceeds MaxEventSize.
	ErrEventTooLarge = errors.New("audit event too large")
	// ErrQueryFailed wraps any failure to read the underlying store.
	ErrQueryFailed = errors.New("audit query failed")
)
