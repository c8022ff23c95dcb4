// Package ai wraps the external prioritization and evaluation backend. The
// backend is treated as unreliable: calls are bounded by timeouts and every
// failure mode (timeout, non-2xx, malformed payload) surfaces as an
// ExternalServiceError the caller records rather than propagates.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/config"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// TechnicianID tolerates the backend returning ids as JSON numbers or
// strings.
type TechnicianID string

// UnmarshalJSON accepts "7", 7 and null.
func (id *TechnicianID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = TechnicianID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = TechnicianID(n.String())
	return nil
}

// AssignmentTicket is the ticket snapshot sent to the prioritization backend.
type AssignmentTicket struct {
	Subject     string   `json:"subject"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Impact      string   `json:"impact"`
	Urgency     string   `json:"urgency"`
	Tags        []string `json:"tags"`
	RequesterID string   `json:"requester_id"`
}

type assignmentRequest struct {
	Ticket AssignmentTicket `json:"ticket"`
}

// AssignmentResult is the prioritization backend's decision.
type AssignmentResult struct {
	Success              bool         `json:"success"`
	AssignedTechnicianID TechnicianID `json:"assigned_technician_id"`
	SelectedTechnicianID TechnicianID `json:"selected_technician_id"`
	Justification        string       `json:"justification"`
	ExistingSkills       []string     `json:"existing_skills"`
	ErrorMessage         string       `json:"error_message"`
}

// TechnicianID returns whichever id field the backend populated.
func (r *AssignmentResult) TechnicianIDValue() string {
	if r.AssignedTechnicianID != "" {
		return string(r.AssignedTechnicianID)
	}
	return string(r.SelectedTechnicianID)
}

// EvaluationTicket is the resolution context sent for skill evaluation.
type EvaluationTicket struct {
	ID                   string   `json:"id"`
	Subject              string   `json:"subject"`
	Description          string   `json:"description"`
	Resolution           string   `json:"resolution"`
	Status               string   `json:"status"`
	Priority             string   `json:"priority"`
	Impact               string   `json:"impact"`
	Urgency              string   `json:"urgency"`
	RequiredSkills       []string `json:"required_skills"`
	AssignedTechnicianID string   `json:"assigned_technician_id"`
	Tasks                []string `json:"tasks"`
	WorkLogs             []string `json:"work_logs"`
	Feedback             string   `json:"feedback"`
	SatisfactionRating   *int     `json:"satisfaction_rating"`
}

type evaluationRequest struct {
	Ticket EvaluationTicket `json:"ticket"`
}

// EvaluatedSkill is an updated proficiency for one skill.
type EvaluatedSkill struct {
	SkillID     TechnicianID `json:"skill_id"`
	Name        string       `json:"name"`
	Proficiency int          `json:"score"`
}

// EvaluationResult carries updated technician proficiencies plus free-form
// metrics.
type EvaluationResult struct {
	Metrics    map[string]any `json:"metrics"`
	Technician struct {
		TechnicianID TechnicianID     `json:"technician_id"`
		Skills       []EvaluatedSkill `json:"skills"`
	} `json:"technician"`
}

// Client calls the AI backend over HTTP.
type Client struct {
	baseURL           string
	assignmentTimeout time.Duration
	evaluationTimeout time.Duration
	httpClient        *http.Client
	logger            *zap.Logger
}

// NewClient builds a client from config. Enabled() is false when no base URL
// is configured.
func NewClient(cfg config.AIConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:           strings.TrimRight(cfg.BaseURL, "/"),
		assignmentTimeout: cfg.AssignmentTimeout(),
		evaluationTimeout: cfg.EvaluationTimeout(),
		httpClient:        &http.Client{},
		logger:            logger,
	}
}

// Enabled reports whether a backend URL is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// AssignTicket asks the prioritization backend for a technician. One blocking
// request-response; a timeout is a terminal outcome for this attempt.
func (c *Client) AssignTicket(ctx context.Context, ticket AssignmentTicket) (*AssignmentResult, error) {
	var result AssignmentResult
	if err := c.post(ctx, "/api/ticket-assignment", c.assignmentTimeout, assignmentRequest{Ticket: ticket}, &result); err != nil {
		return nil, err
	}
	if !result.Success && result.ErrorMessage != "" {
		return nil, apperrors.NewExternalServiceError("ticket assignment rejected", map[string]any{
			"error_message": result.ErrorMessage,
		}, nil)
	}
	return &result, nil
}

// EvaluateSkills asks the evaluation backend to re-score the assigned
// technician after resolution.
func (c *Client) EvaluateSkills(ctx context.Context, ticket EvaluationTicket) (*EvaluationResult, error) {
	var result EvaluationResult
	if err := c.post(ctx, "/api/evaluate-skills", c.evaluationTimeout, evaluationRequest{Ticket: ticket}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, timeout time.Duration, payload, out any) error {
	if !c.Enabled() {
		return apperrors.NewExternalServiceError("ai backend not configured", nil, nil)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("ai backend call failed",
			zap.String("path", path),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return apperrors.NewExternalServiceError("ai backend unreachable", map[string]any{
			"path": path,
			"code": "REQUEST_FAILED",
		}, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.NewExternalServiceError("ai backend response unreadable", map[string]any{
			"path":   path,
			"status": resp.StatusCode,
		}, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.NewExternalServiceError(
			fmt.Sprintf("ai backend returned %s", strconv.Itoa(resp.StatusCode)),
			map[string]any{
				"path":    path,
				"status":  resp.StatusCode,
				"payload": truncate(string(raw), 512),
			}, nil)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.NewExternalServiceError("ai backend returned malformed payload", map[string]any{
			"path":    path,
			"status":  resp.StatusCode,
			"payload": truncate(string(raw), 512),
		}, err)
	}

	c.logger.Debug("ai backend call completed",
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(started)))
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
