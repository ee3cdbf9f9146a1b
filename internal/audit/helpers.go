package audit

import (
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ClientIP resolves the originating client address. The first hop of
// X-Forwarded-For wins, then X-Real-IP, then the socket peer.
func ClientIP(c *fiber.Ctx) string {
	if fwd := c.Get(fiber.HeaderXForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if real := strings.TrimSpace(c.Get("X-Real-IP")); real != "" {
		return real
	}
	return PeerIP(c)
}

// PeerIP is the socket address of the connection, ignoring any forwarding
// headers the client sent.
func PeerIP(c *fiber.Ctx) string {
	remote := c.Context().RemoteAddr()
	if remote == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(remote.String())
	if err != nil {
		host = remote.String()
	}
	return strings.TrimPrefix(host, "::ffff:")
}

// NewEvent starts an event of the given type and status.
func NewEvent(eventType EventType, status Status) *Event {
	return &Event{Type: eventType, Status: status}
}

// WithUser sets the acting user.
func (e *Event) WithUser(userID, email string) *Event {
	e.UserID = userID
	e.UserEmail = email
	return e
}

// WithResource sets the resource and the action performed on it.
func (e *Event) WithResource(resource, action string) *Event {
	e.Resource = resource
	e.Action = action
	return e
}

func (e *Event) WithSession(sessionID string) *Event {
	e.SessionID = sessionID
	return e
}

func (e *Event) WithDetail(key string, value any) *Event {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// FromRequest copies the client address, user agent, and, when not already
// set, the identity placed in the request locals by the identity middleware.
func (e *Event) FromRequest(c *fiber.Ctx) *Event {
	e.IPAddress = ClientIP(c)
	e.UserAgent = c.Get(fiber.HeaderUserAgent)

	if e.UserID == "" {
		if uid, ok := c.Locals("user_id").(string); ok {
			e.UserID = uid
		}
	}
	if e.UserEmail == "" {
		if email, ok := c.Locals("email").(string); ok {
			e.UserEmail = email
		}
	}
	return e
}
