package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/config"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(config.AIConfig{
		BaseURL:                  server.URL,
		AssignmentTimeoutMinutes: 1,
		EvaluationTimeoutSeconds: 5,
	}, zap.NewNop())
	return client, server
}

func TestEnabled(t *testing.T) {
	assert.False(t, NewClient(config.AIConfig{}, zap.NewNop()).Enabled())
	assert.True(t, NewClient(config.AIConfig{BaseURL: "http://localhost:9999"}, zap.NewNop()).Enabled())
}

func TestAssignTicketSuccess(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ticket-assignment", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if ticket, ok := req["ticket"].(map[string]any); assert.True(t, ok) {
			assert.Equal(t, "printer on fire", ticket["subject"])
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":                true,
			"assigned_technician_id": "tech-7",
			"justification":          "best skill overlap",
		})
	})

	result, err := client.AssignTicket(context.Background(), AssignmentTicket{Subject: "printer on fire"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "tech-7", result.TechnicianIDValue())
	assert.Equal(t, "best skill overlap", result.Justification)
}

func TestAssignTicketSelectedIDNumber(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":                true,
			"selected_technician_id": 42,
		})
	})

	result, err := client.AssignTicket(context.Background(), AssignmentTicket{})
	require.NoError(t, err)
	assert.Equal(t, "42", result.TechnicianIDValue())
}

func TestAssignTicketNoAssignment(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":                true,
			"assigned_technician_id": nil,
		})
	})

	result, err := client.AssignTicket(context.Background(), AssignmentTicket{})
	require.NoError(t, err)
	assert.Equal(t, "", result.TechnicianIDValue())
}

func TestAssignTicketBackendRejection(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":       false,
			"error_message": "model overloaded",
		})
	})

	_, err := client.AssignTicket(context.Background(), AssignmentTicket{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeExternalService))
}

func TestAssignTicketNon2xx(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := client.AssignTicket(context.Background(), AssignmentTicket{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeExternalService))
}

func TestAssignTicketMalformedJSON(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	})

	_, err := client.AssignTicket(context.Background(), AssignmentTicket{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeExternalService))
}

func TestAssignTicketUnreachable(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	_, err := client.AssignTicket(context.Background(), AssignmentTicket{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeExternalService))
}

func TestEvaluateSkills(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/evaluate-skills", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"metrics": map[string]any{"resolution_quality": 0.9},
			"technician": map[string]any{
				"technician_id": 7,
				"skills": []map[string]any{
					{"skill_id": "linux", "name": "Linux", "score": 85},
					{"skill_id": 12, "name": "Networking", "score": 60},
				},
			},
		})
	})

	result, err := client.EvaluateSkills(context.Background(), EvaluationTicket{ID: "tk-1"})
	require.NoError(t, err)
	assert.Equal(t, "7", string(result.Technician.TechnicianID))
	require.Len(t, result.Technician.Skills, 2)
	assert.Equal(t, "linux", string(result.Technician.Skills[0].SkillID))
	assert.Equal(t, 85, result.Technician.Skills[0].Proficiency)
	assert.Equal(t, "12", string(result.Technician.Skills[1].SkillID))
}

func TestDisabledClientErrors(t *testing.T) {
	client := NewClient(config.AIConfig{}, zap.NewNop())
	_, err := client.AssignTicket(context.Background(), AssignmentTicket{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeExternalService))
}
