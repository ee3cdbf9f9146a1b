package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/neogan74/vigil/internal/audit"
	"github.com/neogan74/vigil/internal/handlers"
	"github.com/neogan74/vigil/internal/telemetry"
)

type VigilClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type HourlyResponse struct {
	Buckets     []telemetry.HourlyBucket `json:"buckets"`
	GeneratedAt time.Time                `json:"generated_at"`
}

type AlertsResponse struct {
	Alerts []telemetry.Alert `json:"alerts"`
	Count  int               `json:"count"`
}

type AuditPage struct {
	Events []audit.Event `json:"events"`
	Count  int           `json:"count"`
}

type IngestResponse struct {
	EventID string `json:"event_id"`
}

func NewVigilClient(baseURL, token string) *VigilClient {
	return &VigilClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *VigilClient) SystemMetrics() (*telemetry.SystemMetrics, error) {
	var out telemetry.SystemMetrics
	if err := c.get("/admin/metrics/system", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *VigilClient) HourlyMetrics() (*HourlyResponse, error) {
	var out HourlyResponse
	if err := c.get("/admin/metrics/hourly", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *VigilClient) Alerts() (*AlertsResponse, error) {
	var out AlertsResponse
	if err := c.get("/admin/metrics/alerts", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *VigilClient) Activity() (*audit.UserActivity, error) {
	var out audit.UserActivity
	if err := c.get("/admin/metrics/activity", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *VigilClient) Overview() (*handlers.Overview, error) {
	var out handlers.Overview
	if err := c.get("/admin/metrics/overview", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *VigilClient) Health() (*handlers.HealthStatus, error) {
	var out handlers.HealthStatus
	if err := c.get("/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *VigilClient) AuditEvents(limit int) (*AuditPage, error) {
	return c.auditPage("/admin/audit", limit)
}

func (c *VigilClient) AuditEventsByUser(userID string, limit int) (*AuditPage, error) {
	return c.auditPage("/admin/audit/user/"+url.PathEscape(userID), limit)
}

func (c *VigilClient) AuditEventsByType(eventType string, limit int) (*AuditPage, error) {
	return c.auditPage("/admin/audit/type/"+url.PathEscape(eventType), limit)
}

func (c *VigilClient) SendAuditEvent(req handlers.IngestRequest) (string, error) {
	var out IngestResponse
	if err := c.post("/admin/audit/events", req, http.StatusAccepted, &out); err != nil {
		return "", err
	}
	return out.EventID, nil
}

func (c *VigilClient) auditPage(path string, limit int) (*AuditPage, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var out AuditPage
	if err := c.get(path, query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *VigilClient) get(path string, query url.Values, out any) error {
	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, http.StatusOK, out)
}

func (c *VigilClient) post(path string, body any, wantStatus int, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, c.BaseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, wantStatus, out)
}

func (c *VigilClient) do(req *http.Request, wantStatus int, out any) error {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("server error: %s - %s", errResp.Error, errResp.Message)
		}
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
