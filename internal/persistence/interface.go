package persistence

// Engine is an ordered, durable key-value backend. Keys are compared as raw
// bytes, so callers that need time ordering encode timestamps big-endian.
type Engine interface {
	// Put stores value under key, replacing any previous value.
	Put(key, value []byte) error

	// ReverseScan visits every key with the given prefix from the largest to
	// the smallest. Returning false from fn stops the scan.
	ReverseScan(prefix []byte, fn func(key, value []byte) bool) error

	// Count returns the number of keys with the given prefix.
	Count(prefix []byte) (int, error)

	Close() error
}

// Config holds persistence configuration
type Config struct {
	Type       string // "memory", "badger"
	DataDir    string
	SyncWrites bool
}
