package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "github.com/fairyhunter13/khbroker/internal/adapter/httpserver"
	"github.com/fairyhunter13/khbroker/internal/config"
	"github.com/fairyhunter13/khbroker/internal/domain"
	"github.com/fairyhunter13/khbroker/internal/engine"
	"github.com/fairyhunter13/khbroker/internal/persistence"
)

type fakeRegistry struct{}

func (fakeRegistry) ParameterCount(context.Context, string) (float64, error) { return 1.0, nil }

func newTestServer(t *testing.T) *httpserver.Server {
	t.Helper()
	eng := engine.New(nil, domain.RealClock{}, fakeRegistry{}, true)
	eng.EnsureAnonymousUser(time.Now())
	store, err := persistence.NewStore(t.TempDir())
	require.NoError(t, err)
	return httpserver.NewServer(config.Config{AllowAnonymous: true}, eng, store)
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestPromptsHandler_NoEligibleWorker(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv.PromptsHandler(), http.MethodPost, "/v1/prompts", map[string]any{
		"prompt": "hello there", "n": 1, "max_length": 80, "max_content_length": 2048,
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestPromptsHandler_SanitizesControlCharacters(t *testing.T) {
	srv := newTestServer(t)
	_, err := srv.Eng.CheckIn(context.Background(), "worker-1", domain.AnonymousOAuthID, "llama", 80, 2048, []string{""})
	require.NoError(t, err)

	rr := doJSON(t, srv.PromptsHandler(), http.MethodPost, "/v1/prompts", map[string]any{
		"prompt": "hello\x00there", "n": 1, "max_length": 80, "max_content_length": 2048,
	})
	require.Equal(t, http.StatusOK, rr.Code)

	dispatch, err := srv.Eng.CheckInForWork("worker-1")
	require.NoError(t, err)
	require.NotNil(t, dispatch)
	assert.Equal(t, "hellothere", dispatch.Payload["prompt"])
}

func TestWorkerCheckInHandler_RejectsInvalidBody(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv.WorkerCheckInHandler(), http.MethodPost, "/v1/workers/check-in", map[string]any{
		"name": "worker-1",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWorkerCheckInHandler_WaitsWithNoWork(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv.WorkerCheckInHandler(), http.MethodPost, "/v1/workers/check-in", map[string]any{
		"name": "worker-1", "model": "llama", "max_length": 80, "max_content_length": 2048,
	})
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, true, body["wait"])
}

func TestKudosTransferHandler_InsufficientKudosReportedInBody(t *testing.T) {
	srv := newTestServer(t)
	srv.Eng.CreateUser("alice", "owner-src", "key-src", "")
	dst := srv.Eng.CreateUser("bob", "owner-dst", "key-dst", "")

	req := httptest.NewRequest(http.MethodPost, "/v1/kudos/transfer", bytes.NewBufferString(
		`{"username":"`+dst.Alias()+`","amount":10}`))
	req.Header.Set("X-Api-Key", "key-src")
	rr := httptest.NewRecorder()
	srv.KudosTransferHandler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 0.0, body["granted"])
	assert.Equal(t, "Not enough kudos.", body["reason"])
}

func TestReadyzHandler_PersistenceWritable(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv.ReadyzHandler(), http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPromptStatusHandler_NotFound(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/prompts/missing/status", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "missing")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rr := httptest.NewRecorder()
	srv.PromptStatusHandler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
