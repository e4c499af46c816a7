package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forecastdesk/internal/domain"
	"forecastdesk/internal/modules/workspace"
)

func testRouter(t *testing.T) (*chi.Mux, *workspace.Manager) {
	t.Helper()
	m := workspace.NewManager(workspace.ManagerConfig{Log: zerolog.Nop()})
	h := NewHandler(m, zerolog.Nop())
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		h.RegisterRoutes(r)
	})
	return r, m
}

func testIntakeBody() []byte {
	baseline := make([]float64, domain.HoursPerDay)
	confidence := make([]domain.ConfidenceBound, domain.HoursPerDay)
	for h := range baseline {
		baseline[h] = 4000 + float64(h)*30
		confidence[h] = domain.ConfidenceBound{Lower: baseline[h] * 0.92, Upper: baseline[h] * 1.08}
	}
	payload, _ := json.Marshal(domain.ForecastIntake{
		TargetDate: "2026-08-24",
		Baseline:   baseline,
		Confidence: confidence,
	})
	return payload
}

func doRequest(t *testing.T, router http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createWorkspace(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := doRequest(t, router, http.MethodPost, "/api/workspaces", testIntakeBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	var response struct {
		WorkspaceID string `json:"workspace_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.NotEmpty(t, response.WorkspaceID)
	return response.WorkspaceID
}

func createDecision(t *testing.T, router http.Handler, workspaceID string) string {
	t.Helper()
	body := []byte(`{"label":"Evening peak","rationale":"Grid operator confirmed higher evening load"}`)
	rec := doRequest(t, router, http.MethodPost, "/api/workspaces/"+workspaceID+"/decisions", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var decision domain.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	return decision.ID
}

func TestCreateWorkspace(t *testing.T) {
	router, _ := testRouter(t)

	t.Run("valid intake", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/api/workspaces", testIntakeBody())
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), "snapshot")
	})

	t.Run("bad target date", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/api/workspaces",
			[]byte(`{"target_date":"24-08-2026","baseline":[]}`))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "validation_error")
	})

	t.Run("malformed json", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/api/workspaces", []byte(`{not json`))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestSnapshotUnknownWorkspace(t *testing.T) {
	router, _ := testRouter(t)
	rec := doRequest(t, router, http.MethodGet, "/api/workspaces/nope/snapshot", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}

func TestDecisionLifecycle(t *testing.T) {
	router, _ := testRouter(t)
	id := createWorkspace(t, router)

	t.Run("rationale too short", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/api/workspaces/"+id+"/decisions",
			[]byte(`{"label":"Peak","rationale":"short"}`))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	decisionID := createDecision(t, router, id)

	t.Run("list shows active decision", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/workspaces/"+id+"/decisions", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var response struct {
			Decisions        []domain.Decision `json:"decisions"`
			ActiveDecisionID string            `json:"active_decision_id"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Len(t, response.Decisions, 1)
		assert.Equal(t, decisionID, response.ActiveDecisionID)
	})

	t.Run("complete", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost,
			"/api/workspaces/"+id+"/decisions/"+decisionID+"/complete", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var decision domain.Decision
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
		assert.Equal(t, domain.DecisionCompleted, decision.Status)
	})

	t.Run("complete twice conflicts", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost,
			"/api/workspaces/"+id+"/decisions/"+decisionID+"/complete", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid_state_transition")
	})
}

func TestAdjustmentEndpoints(t *testing.T) {
	router, _ := testRouter(t)
	id := createWorkspace(t, router)

	t.Run("adjustment without decision conflicts", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/api/workspaces/"+id+"/adjustments/global",
			[]byte(`{"start_hour":0,"end_hour":23,"direction":"increase","percentage":10}`))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "no_active_decision")
	})

	createDecision(t, router, id)

	t.Run("global adjustment", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/api/workspaces/"+id+"/adjustments/global",
			[]byte(`{"start_hour":0,"end_hour":23,"direction":"increase","percentage":10}`))
		require.Equal(t, http.StatusOK, rec.Code)

		var snapshot domain.Snapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
		assert.InDelta(t, 4400, snapshot.Points[0].Current, 0.001)
		assert.True(t, snapshot.Points[0].IsAdjusted)
	})

	t.Run("percentage above cap rejected", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/api/workspaces/"+id+"/adjustments/global",
			[]byte(`{"start_hour":0,"end_hour":23,"direction":"increase","percentage":80}`))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("local adjustment", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/api/workspaces/"+id+"/adjustments/local",
			[]byte(`[{"hour":10,"new_value":5000}]`))
		require.Equal(t, http.StatusOK, rec.Code)

		var snapshot domain.Snapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
		assert.InDelta(t, 5000, snapshot.Points[10].Current, 0.001)
	})

	t.Run("mixed adjustment", func(t *testing.T) {
		body := []byte(`{
			"global": {"start_hour": 0, "end_hour": 11, "direction": "decrease", "percentage": 5},
			"locals": [{"hour": 20, "new_value": 4950}]
		}`)
		rec := doRequest(t, router, http.MethodPost, "/api/workspaces/"+id+"/adjustments/mixed", body)
		require.Equal(t, http.StatusOK, rec.Code)

		var snapshot domain.Snapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
		assert.InDelta(t, 4000*0.95, snapshot.Points[0].Current, 0.001)
		assert.InDelta(t, 4950, snapshot.Points[20].Current, 0.001)
	})

	t.Run("reset", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/api/workspaces/"+id+"/adjustments/reset", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var snapshot domain.Snapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
		for h, p := range snapshot.Points {
			assert.InDelta(t, p.Baseline, p.Current, 0.001, "hour %d should be back to baseline", h)
			assert.False(t, p.IsAdjusted)
		}
	})
}

func TestOptimizeEndpoint(t *testing.T) {
	router, _ := testRouter(t)
	id := createWorkspace(t, router)

	// Baseline sum for hours 0..23 is 24*4000 + 30*(0+...+23) = 104280
	rec := doRequest(t, router, http.MethodPost, "/api/workspaces/"+id+"/optimize",
		[]byte(`{"target_total":114708,"hours":[0,1,2,3,4,5,6,7,8,9,10,11,12,13,14,15,16,17,18,19,20,21,22,23]}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.OptimizeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Exact)
	assert.Equal(t, domain.DirectionIncrease, result.Direction)
	assert.InDelta(t, 10.0, result.Percentage, 0.001)

	t.Run("invalid hours", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/api/workspaces/"+id+"/optimize",
			[]byte(`{"target_total":110000,"hours":[25]}`))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestHistoryEndpoint(t *testing.T) {
	router, _ := testRouter(t)
	id := createWorkspace(t, router)
	decisionID := createDecision(t, router, id)

	rec := doRequest(t, router, http.MethodPost, "/api/workspaces/"+id+"/adjustments/local",
		[]byte(`[{"hour":10,"new_value":5000}]`))
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("all entries", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/workspaces/"+id+"/history", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var response struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		// decision_created + point_override
		assert.Equal(t, 2, response.Count)
	})

	t.Run("filter by kind", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet,
			"/api/workspaces/"+id+"/history?kind=point_override", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var response struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, 1, response.Count)
	})

	t.Run("filter by decision", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet,
			fmt.Sprintf("/api/workspaces/%s/history?decision_id=%s", id, decisionID), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var response struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, 2, response.Count)
	})
}

func TestExportEndpoint(t *testing.T) {
	router, _ := testRouter(t)
	id := createWorkspace(t, router)
	createDecision(t, router, id)

	rec := doRequest(t, router, http.MethodPost, "/api/workspaces/"+id+"/adjustments/local",
		[]byte(`[{"hour":10,"new_value":5000}]`))
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("json", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/workspaces/"+id+"/export?format=json", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "point_override")
	})

	t.Run("csv", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/workspaces/"+id+"/export?format=csv", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		assert.True(t, strings.HasPrefix(lines[0], "sequence,timestamp,kind"))
		assert.GreaterOrEqual(t, len(lines), 3)
	})

	t.Run("unknown format", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/workspaces/"+id+"/export?format=xml", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}
