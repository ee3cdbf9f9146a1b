package audit

import "time"

// EventType is the closed set of security and activity events.
type EventType string

const (
	EventLoginSuccess       EventType = "login_success"
	EventLoginFailed        EventType = "login_failed"
	EventLogout             EventType = "logout"
	EventRegistration       EventType = "registration"
	EventEmailVerified      EventType = "email_verified"
	EventPasswordChanged    EventType = "password_changed"
	EventPasswordReset      EventType = "password_reset"
	EventRoleChanged        EventType = "role_changed"
	EventStatusChanged      EventType = "status_changed"
	EventAccountDeleted     EventType = "account_deleted"
	EventDataAccessed       EventType = "data_accessed"
	EventDataExported       EventType = "data_exported"
	EventSessionCreated     EventType = "session_created"
	EventSessionExpired     EventType = "session_expired"
	EventSessionRevoked     EventType = "session_revoked"
	EventBackupCreated      EventType = "backup_created"
	EventBackupRestored     EventType = "backup_restored"
	EventSuspiciousActivity EventType = "suspicious_activity"
	EventBruteForceAttempt  EventType = "brute_force_attempt"
)

var knownEventTypes = map[EventType]struct{}{
	EventLoginSuccess:       {},
	EventLoginFailed:        {},
	EventLogout:             {},
	EventRegistration:       {},
	EventEmailVerified:      {},
	EventPasswordChanged:    {},
	EventPasswordReset:      {},
	EventRoleChanged:        {},
	EventStatusChanged:      {},
	EventAccountDeleted:     {},
	EventDataAccessed:       {},
	EventDataExported:       {},
	EventSessionCreated:     {},
	EventSessionExpired:     {},
	EventSessionRevoked:     {},
	EventBackupCreated:      {},
	EventBackupRestored:     {},
	EventSuspiciousActivity: {},
	EventBruteForceAttempt:  {},
}

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	_, ok := knownEventTypes[t]
	return ok
}

// Status is the outcome attached to an audit event.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusWarning Status = "WARNING"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusWarning:
		return true
	}
	return false
}

// Event captures a single auditable occurrence. Events are never modified
// once written.
type Event struct {
	ID        string         `json:"event_id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"event_type"`
	Status    Status         `json:"status"`
	UserID    string         `json:"user_id,omitempty"`
	UserEmail string         `json:"user_email,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Resource  string         `json:"resource,omitempty"`
	Action    string         `json:"action,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Filter selects events from a Store. Zero fields match everything and a
// zero Limit returns all matches.
type Filter struct {
	UserID string
	Type   EventType
	Since  time.Time
	Limit  int
}

func (f Filter) matches(e *Event) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	return true
}
