package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentrelay/config"
	"github.com/BaSui01/agentrelay/handoff"
)

// newTestServer builds a server with router and registry wired but no
// listeners or journal; handlers are exercised via httptest.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	s := NewServer(cfg, zap.NewNop())
	s.registry = cfg.Registry()
	s.router = handoff.NewRouter(s.registry, handoff.NewWorkflowState(), zap.NewNop())
	return s
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleCreateHandoff_Valid(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.routes(), http.MethodPost, "/v1/handoffs", `{
		"from_agent": "requirements_analyst",
		"to_agent": "architecture_designer",
		"task_description": "Design system architecture",
		"payload": {"requirements": ["r1"], "project_context": "demo"}
	}`)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp createHandoffResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Validation.Valid)
	assert.Equal(t, handoff.StatusPending, resp.Request.Status)
	assert.Equal(t, 1, s.router.QueueLen())
}

func TestHandleCreateHandoff_MissingPayloadKeys(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.routes(), http.MethodPost, "/v1/handoffs", `{
		"from_agent": "requirements_analyst",
		"to_agent": "architecture_designer",
		"task_description": "Design system architecture",
		"payload": {}
	}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp createHandoffResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Validation.Valid)
	assert.Contains(t, resp.Validation.Reason, "requirements")
	assert.Contains(t, resp.Validation.Reason, "project_context")
	assert.Equal(t, 0, s.router.QueueLen())
}

func TestHandleCreateHandoff_BadJSON(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.routes(), http.MethodPost, "/v1/handoffs", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCreateHandoff_MissingFields(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.routes(), http.MethodPost, "/v1/handoffs", `{"from_agent": "a"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleProcessQueue(t *testing.T) {
	s := newTestServer(t)

	s.router.Submit("requirements_analyst", "architecture_designer", "Design system architecture",
		map[string]any{"requirements": []string{"r"}, "project_context": "demo"})
	s.router.Submit("requirements_analyst", "ghost_agent", "anything", nil)

	rec := doJSON(t, s.routes(), http.MethodPost, "/v1/queue/process", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Processed int `json:"processed"`
		Completed int `json:"completed"`
		Failed    int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Processed)
	assert.Equal(t, 1, resp.Completed)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, 0, s.router.QueueLen())
}

func TestHandleSuggestions(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.routes(), http.MethodGet,
		"/v1/suggestions?task=Design+system+architecture&exclude=test_generator", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Suggestions []handoff.AgentScore `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Suggestions)
	assert.Equal(t, "architecture_designer", resp.Suggestions[0].AgentName)
	for _, sc := range resp.Suggestions {
		assert.NotEqual(t, "test_generator", sc.AgentName)
	}
}

func TestHandleSuggestions_MissingTask(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.routes(), http.MethodGet, "/v1/suggestions", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSetAvailability(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.routes(), http.MethodPut,
		"/v1/agents/architecture_designer/availability", `{"available": false}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The unavailable agent now rejects handoffs.
	result := s.router.Validate(handoff.NewRequest("requirements_analyst", "architecture_designer",
		"Design system architecture",
		map[string]any{"requirements": []string{"r"}, "project_context": "demo"}))
	assert.False(t, result.Valid)
	assert.Contains(t, result.Reason, "not available")
}

func TestHandleSetAvailability_UnknownAgent(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.routes(), http.MethodPut, "/v1/agents/ghost/availability", `{"available": true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "AGENT_NOT_FOUND")
}

func TestHandleGetHandoff_FromHistory(t *testing.T) {
	s := newTestServer(t)

	req := s.router.Submit("requirements_analyst", "architecture_designer", "Design system architecture",
		map[string]any{"requirements": []string{"r"}, "project_context": "demo"})
	doJSON(t, s.routes(), http.MethodPost, "/v1/queue/process", "")

	rec := doJSON(t, s.routes(), http.MethodGet, "/v1/handoffs/"+req.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got handoff.Request
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, req.ID, got.ID)
	assert.Equal(t, handoff.StatusCompleted, got.Status)
}

func TestHandleGetHandoff_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.routes(), http.MethodGet, "/v1/handoffs/handoff_missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListAgents(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.routes(), http.MethodGet, "/v1/agents", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Agents []handoff.AgentCapability `json:"agents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Agents, 6)
}

func TestHandleState(t *testing.T) {
	s := newTestServer(t)

	s.router.Submit("requirements_analyst", "architecture_designer", "Design system architecture",
		map[string]any{"requirements": []string{"r"}, "project_context": "demo"})

	rec := doJSON(t, s.routes(), http.MethodGet, "/v1/state", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap handoff.StateSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 1, snap.QueueDepth)
	assert.Equal(t, 0, snap.HistoryLen)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.routes(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
