package worker

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/readlens/internal/snippet"
)

// newTestService builds a service with routes wired but no database, to
// exercise the endpoints that work before initialization completes.
func newTestService() *Service {
	svc := &Service{
		version:          "test",
		analyzer:         snippet.NewAnalyzer(),
		reprocessLimiter: NewBulkOperationLimiter(ReprocessCooldownSeconds),
		router:           chi.NewRouter(),
		startTime:        time.Now(),
	}
	svc.setupMiddleware()
	svc.setupRoutes()
	return svc
}

func doJSON(t *testing.T, svc *Service, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	svc.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth_DuringInit(t *testing.T) {
	svc := newTestService()

	rec := doJSON(t, svc, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "starting", resp["status"])
	assert.Equal(t, "test", resp["version"])
}

func TestHandleHealth_Ready(t *testing.T) {
	svc := newTestService()
	svc.ready.Store(true)

	rec := doJSON(t, svc, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp["status"])
}

func TestHandleReady_NotReady(t *testing.T) {
	svc := newTestService()

	rec := doJSON(t, svc, http.MethodGet, "/api/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequireReady_BlocksDataRoutes(t *testing.T) {
	svc := newTestService()

	rec := doJSON(t, svc, http.MethodGet, "/api/users/"+uuid.NewString()+"/stats", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleVersion(t *testing.T) {
	svc := newTestService()

	rec := doJSON(t, svc, http.MethodGet, "/api/version", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"test"`)
}

func TestHandleAnalyzeSnippet(t *testing.T) {
	svc := newTestService()

	rec := doJSON(t, svc, http.MethodPost, "/api/snippets/analyze",
		`{"text": "ACT NOW! This SHOCKING deal ends soon! Buy today! Don't wait!"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Insights []snippet.Insight `json:"insights"`
		Count    int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.GreaterOrEqual(t, resp.Count, 1)
	assert.Equal(t, snippet.TypePersuasion, resp.Insights[0].Type)
}

func TestHandleAnalyzeSnippet_WorksBeforeReady(t *testing.T) {
	svc := newTestService()
	// ready is false; analysis has no database dependency

	rec := doJSON(t, svc, http.MethodPost, "/api/snippets/analyze", `{"text": "plain text"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleAnalyzeSnippet_InvalidBody(t *testing.T) {
	svc := newTestService()

	rec := doJSON(t, svc, http.MethodPost, "/api/snippets/analyze", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidUUIDParam(t *testing.T) {
	svc := newTestService()
	svc.ready.Store(true)

	rec := doJSON(t, svc, http.MethodGet, "/api/documents/not-a-uuid/score", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimilarDocuments_InvalidUUID(t *testing.T) {
	svc := newTestService()
	svc.ready.Store(true)

	rec := doJSON(t, svc, http.MethodGet, "/api/documents/not-a-uuid/similar", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteJSONStatus_KeepsContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSONStatus(rec, http.StatusCreated, map[string]string{"status": "created"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"created"`)
}
