package rest

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/errors"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/features"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/training"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/service/insider"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorResponse  `json:"error"`
	Meta    ResponseMeta    `json:"meta"`
}

func newTestRouter(t *testing.T, svc *MockService) http.Handler {
	t.Helper()
	h, err := NewRouter(RouterConfig{Service: svc, Version: "test"})
	require.NoError(t, err)
	return h
}

func do(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func scoredRecords() []features.Record {
	return []features.Record{
		{"user": "bob", "files_per_day": 12.0, "isolation_forest": 1.7, "rank": 1, "anomalous": true},
		{"user": "alice", "files_per_day": 2.0, "isolation_forest": -0.4, "rank": 2, "anomalous": false},
	}
}

func TestRiskyUsers(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		setup      func(*MockService)
		wantStatus int
		wantCount  int
		wantCode   string
	}{
		{
			name:  "default top_n",
			query: "",
			setup: func(m *MockService) {
				m.On("RiskyUsers", mock.Anything, insider.DefaultTopN).Return(scoredRecords())
			},
			wantStatus: http.StatusOK,
			wantCount:  2,
		},
		{
			name:  "explicit top_n",
			query: "?top_n=1",
			setup: func(m *MockService) {
				m.On("RiskyUsers", mock.Anything, 1).Return(scoredRecords()[:1])
			},
			wantStatus: http.StatusOK,
			wantCount:  1,
		},
		{
			name:  "untrained yields empty list",
			query: "?top_n=5",
			setup: func(m *MockService) {
				m.On("RiskyUsers", mock.Anything, 5).Return([]features.Record{})
			},
			wantStatus: http.StatusOK,
			wantCount:  0,
		},
		{
			name:       "non integer",
			query:      "?top_n=abc",
			setup:      func(m *MockService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_PARAMETER",
		},
		{
			name:       "negative",
			query:      "?top_n=-3",
			setup:      func(m *MockService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_PARAMETER",
		},
		{
			name:       "too large",
			query:      "?top_n=10001",
			setup:      func(m *MockService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_PARAMETER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setup(svc)
			rec, env := do(t, newTestRouter(t, svc), http.MethodGet, "/risky_users"+tt.query)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotEmpty(t, env.Meta.RequestID)
			assert.Equal(t, "test", env.Meta.Version)
			if tt.wantCode != "" {
				assert.False(t, env.Success)
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.wantCode, env.Error.Code)
				svc.AssertNotCalled(t, "RiskyUsers", mock.Anything, mock.Anything)
				return
			}
			assert.True(t, env.Success)
			var got []map[string]any
			require.NoError(t, json.Unmarshal(env.Data, &got))
			assert.Len(t, got, tt.wantCount)
			require.NotNil(t, env.Meta.Count)
			assert.Equal(t, tt.wantCount, *env.Meta.Count)
			svc.AssertExpectations(t)
		})
	}
}

func TestRiskyUsersPreservesRankOrder(t *testing.T) {
	svc := new(MockService)
	svc.On("RiskyUsers", mock.Anything, insider.DefaultTopN).Return(scoredRecords())

	_, env := do(t, newTestRouter(t, svc), http.MethodGet, "/risky_users")

	var got []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "bob", got[0]["user"])
	assert.EqualValues(t, 1, got[0]["rank"])
	assert.Equal(t, true, got[0]["anomalous"])
	assert.Equal(t, "alice", got[1]["user"])
}

func TestRiskyUsersTable(t *testing.T) {
	svc := new(MockService)
	svc.On("RiskyUsers", mock.Anything, 2).Return(scoredRecords())

	rec, _ := do(t, newTestRouter(t, svc), http.MethodGet, "/risky_users/table?top_n=2")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "<table>")
	assert.Contains(t, body, "<th>isolation_forest</th>")
	assert.Contains(t, body, `<tr class="anomalous">`)
	assert.Contains(t, body, "1.7000")
	assert.Less(t, strings.Index(body, ">bob<"), strings.Index(body, ">alice<"))
}

func TestRiskyUsersTableEscapesUserNames(t *testing.T) {
	svc := new(MockService)
	svc.On("RiskyUsers", mock.Anything, insider.DefaultTopN).Return([]features.Record{
		{"user": "<script>x</script>", "isolation_forest": 0.5, "rank": 1, "anomalous": true},
	})

	rec, _ := do(t, newTestRouter(t, svc), http.MethodGet, "/risky_users/table")

	assert.NotContains(t, rec.Body.String(), "<script>x</script>")
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;")
}

func TestRiskyUsersTableEmpty(t *testing.T) {
	svc := new(MockService)
	svc.On("RiskyUsers", mock.Anything, insider.DefaultTopN).Return([]features.Record{})

	rec, _ := do(t, newTestRouter(t, svc), http.MethodGet, "/risky_users/table")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<table>")
	assert.Contains(t, rec.Body.String(), "No model has been trained yet.")
}

func TestUserEndpointsRequireUser(t *testing.T) {
	for _, path := range []string{"/user/features", "/user/raw", "/user/features?user=", "/user/raw?user=%20"} {
		t.Run(path, func(t *testing.T) {
			svc := new(MockService)
			rec, env := do(t, newTestRouter(t, svc), http.MethodGet, path)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, "MISSING_USER", env.Error.Code)
			assert.Equal(t, "validation", env.Error.Type)
			svc.AssertExpectations(t)
		})
	}
}

func TestUserFeatures(t *testing.T) {
	svc := new(MockService)
	days := []insider.DailyFeatures{
		{Date: "2024-01-01", Logons: 2, Files: 1, USB: 0, Emails: 3, MeanRisk: 1.2, User: "bob"},
		{Date: "2024-01-02", Logons: 1, Files: 0, USB: 1, Emails: 0, MeanRisk: 1.2, User: "bob"},
	}
	svc.On("UserFeatures", mock.Anything, "bob").Return(days)

	rec, env := do(t, newTestRouter(t, svc), http.MethodGet, "/user/features?user=bob")

	require.Equal(t, http.StatusOK, rec.Code)
	var got []insider.DailyFeatures
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, days, got)
}

func TestUserFeaturesUnknownUser(t *testing.T) {
	svc := new(MockService)
	svc.On("UserFeatures", mock.Anything, "nobody").Return([]insider.DailyFeatures{})

	rec, env := do(t, newTestRouter(t, svc), http.MethodGet, "/user/features?user=nobody")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestUserRaw(t *testing.T) {
	svc := new(MockService)
	raw := map[string][]map[string]any{
		"logon":  {{"user": "bob", "activity": "Logon", "timestamp": "2024-01-01 08:00:00", "date": "2024-01-01"}},
		"device": {},
		"email":  {},
		"file":   {},
	}
	svc.On("UserRaw", mock.Anything, "bob").Return(raw)

	rec, env := do(t, newTestRouter(t, svc), http.MethodGet, "/user/raw?user=bob")

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string][]map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Len(t, got, 4)
	assert.Len(t, got["logon"], 1)
	assert.NotNil(t, got["file"])
	assert.Empty(t, got["file"])
}

func TestRefresh(t *testing.T) {
	svc := new(MockService)
	m := &features.Matrix{
		Columns:   []string{features.ColumnFilesPerDay},
		Users:     []string{"alice", "bob"},
		Values:    [][]float64{{1}, {9}},
		Scores:    []float64{-0.5, 1.5},
		Ranks:     []int{2, 1},
		Anomalous: []bool{false, true},
	}
	runID := uuid.New()
	svc.On("Refresh", mock.Anything).Return(m, nil)
	svc.On("Status", mock.Anything).Return(insider.Status{Loaded: true, Trained: true, Users: 2, Anomalies: 1, RunID: runID.String()})

	rec, env := do(t, newTestRouter(t, svc), http.MethodPost, "/refresh")

	require.Equal(t, http.StatusOK, rec.Code)
	var got RefreshResult
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 2, got.Users)
	assert.Equal(t, 1, got.Anomalies)
	assert.True(t, got.Status.Trained)
	assert.Equal(t, runID.String(), got.Status.RunID)
}

func TestRefreshFailures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "persistence",
			err:        errors.NewPersistenceError("failed to save snapshot").WithCause(stderrors.New("disk full")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "PERSISTENCE_ERROR",
		},
		{
			name:       "empty matrix",
			err:        errors.NewValidationError("EMPTY_MATRIX", "no users to score"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "EMPTY_MATRIX",
		},
		{
			name:       "app error without status",
			err:        &errors.AppError{Type: errors.ErrorTypeInternal, Code: "SCORER_FAILED", Message: "scorer failed"},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "SCORER_FAILED",
		},
		{
			name:       "plain error",
			err:        stderrors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("Refresh", mock.Anything).Return(nil, tt.err)

			rec, env := do(t, newTestRouter(t, svc), http.MethodPost, "/refresh")

			assert.Equal(t, tt.wantStatus, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.NotEmpty(t, env.Error.Message)
		})
	}
}

func TestRefreshRejectsGet(t *testing.T) {
	svc := new(MockService)
	rec, _ := do(t, newTestRouter(t, svc), http.MethodGet, "/refresh")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	svc.AssertNotCalled(t, "Refresh", mock.Anything)
}

func TestRuns(t *testing.T) {
	svc := new(MockService)
	runs := []*training.Run{
		{ID: uuid.New(), StartedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), Users: 3, Anomalies: 1, TopUser: "bob", TopScore: 1.4},
	}
	svc.On("Runs", mock.Anything, 5).Return(runs, nil)

	rec, env := do(t, newTestRouter(t, svc), http.MethodGet, "/runs?limit=5")

	require.Equal(t, http.StatusOK, rec.Code)
	var got []training.Run
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "bob", got[0].TopUser)
}

func TestRunsDefaultLimitAndErrors(t *testing.T) {
	svc := new(MockService)
	svc.On("Runs", mock.Anything, insider.DefaultRunLimit).
		Return(nil, errors.NewInternalError("failed to list training runs"))

	rec, env := do(t, newTestRouter(t, svc), http.MethodGet, "/runs")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
	assert.True(t, env.Error.Retryable)

	rec, env = do(t, newTestRouter(t, svc), http.MethodGet, "/runs?limit=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAMETER", env.Error.Code)
}

func TestOpenAPIDocument(t *testing.T) {
	svc := new(MockService)
	rec, _ := do(t, newTestRouter(t, svc), http.MethodGet, "/openapi.json")

	require.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])
	assert.Equal(t, "test", doc["info"].(map[string]any)["version"])
	paths := doc["paths"].(map[string]any)
	for _, p := range []string{"/risky_users", "/risky_users/table", "/user/features", "/user/raw", "/refresh", "/runs", "/health"} {
		assert.Contains(t, paths, p)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	svc := new(MockService)
	svc.On("RiskyUsers", mock.Anything, insider.DefaultTopN).Return([]features.Record{})
	router := newTestRouter(t, svc)
	do(t, router, http.MethodGet, "/risky_users")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "itd_api_http_requests_total")
}

func TestNewRouterRequiresService(t *testing.T) {
	_, err := NewRouter(RouterConfig{})
	assert.Error(t, err)
}
