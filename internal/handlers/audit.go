package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/neogan74/vigil/internal/audit"
	"github.com/neogan74/vigil/internal/logger"
	"github.com/neogan74/vigil/internal/middleware"
)

// AuditHandler exposes the audit trail over HTTP
type AuditHandler struct {
	manager *audit.Manager
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(manager *audit.Manager) *AuditHandler {
	return &AuditHandler{manager: manager}
}

// MaxIngestBodySize bounds a reported event, keeping every accepted event
// well under audit.MaxEventSize once connection details are added.
const MaxIngestBodySize = 64 << 10

type auditPage struct {
	Events []audit.Event `json:"events"`
	Count  int           `json:"count"`
}

// IngestRequest is the body accepted by Ingest. ID and timestamp are always
// assigned server side.
type IngestRequest struct {
	Type      audit.EventType `json:"event_type" validate:"required,audit_type"`
	Status    audit.Status    `json:"status" validate:"omitempty,audit_status"`
	UserID    string          `json:"user_id" validate:"max=256"`
	UserEmail string          `json:"user_email" validate:"omitempty,email,max=320"`
	IPAddress string          `json:"ip_address" validate:"omitempty,ip"`
	UserAgent string          `json:"user_agent" validate:"max=1024"`
	SessionID string          `json:"session_id" validate:"max=256"`
	Resource  string          `json:"resource" validate:"max=512"`
	Action    string          `json:"action" validate:"max=256"`
	Details   map[string]any  `json:"details"`
}

// List returns the most recent events
func (h *AuditHandler) List(c *fiber.Ctx) error {
	events, err := h.manager.QueryAll(c.UserContext(), c.QueryInt("limit", audit.DefaultQueryLimit))
	return h.page(c, events, err)
}

// ByUser returns the most recent events of one user
func (h *AuditHandler) ByUser(c *fiber.Ctx) error {
	userID := c.Params("id")
	if userID == "" {
		return middleware.BadRequest(c, "user id is required")
	}
	events, err := h.manager.QueryByUser(c.UserContext(), userID, c.QueryInt("limit", audit.DefaultQueryLimit))
	return h.page(c, events, err)
}

// ByType returns the most recent events of one type
func (h *AuditHandler) ByType(c *fiber.Ctx) error {
	eventType := audit.EventType(c.Params("type"))
	if !eventType.Valid() {
		return middleware.BadRequest(c, "unknown event type: "+string(eventType))
	}
	events, err := h.manager.QueryByType(c.UserContext(), eventType, c.QueryInt("limit", audit.DefaultQueryLimit))
	return h.page(c, events, err)
}

func (h *AuditHandler) page(c *fiber.Ctx, events []audit.Event, err error) error {
	if err != nil {
		middleware.GetLogger(c).Error("Audit query failed", logger.Error(err))
		return middleware.InternalServerError(c, "Failed to query audit trail")
	}
	return c.JSON(auditPage{Events: events, Count: len(events)})
}

// Ingest records an event reported by another service. The client address
// and user agent of this request fill any the caller left empty.
func (h *AuditHandler) Ingest(c *fiber.Ctx) error {
	if !h.manager.Enabled() {
		return middleware.ServiceUnavailable(c, "Audit trail is disabled")
	}

	if len(c.Body()) > MaxIngestBodySize {
		return middleware.PayloadTooLarge(c, fmt.Sprintf("event body exceeds %d bytes", MaxIngestBodySize))
	}

	var req IngestRequest
	if err := c.BodyParser(&req); err != nil {
		return middleware.BadRequest(c, "Invalid JSON body")
	}
	if err := validateStruct(&req); err != nil {
		return middleware.BadRequest(c, err.Error())
	}
	if req.Status == "" {
		req.Status = audit.StatusSuccess
	}

	event := audit.NewEvent(req.Type, req.Status).
		WithUser(req.UserID, req.UserEmail).
		WithResource(req.Resource, req.Action).
		WithSession(req.SessionID)
	event.Details = req.Details

	event.IPAddress = req.IPAddress
	if event.IPAddress == "" {
		event.IPAddress = audit.ClientIP(c)
	}
	event.UserAgent = req.UserAgent
	if event.UserAgent == "" {
		event.UserAgent = c.Get(fiber.HeaderUserAgent)
	}

	id, err := h.manager.Record(c.UserContext(), event)
	switch {
	case errors.Is(err, audit.ErrBufferFull), errors.Is(err, audit.ErrManagerClosed):
		return middleware.ServiceUnavailable(c, "Audit trail is not accepting events")
	case err != nil:
		middleware.GetLogger(c).Error("Failed to record audit event", logger.Error(err))
		return middleware.InternalServerError(c, "Failed to record audit event")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"event_id": id,
	})
}
