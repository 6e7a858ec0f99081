package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"council/internal/config"
	"council/internal/council"
	"council/internal/conversation"
	"council/internal/upstream"
	"council/internal/voting"
)

func newTestResolver(t *testing.T) *config.Resolver {
	t.Helper()
	dataDir := t.TempDir()
	defaultsDir := filepath.Join(dataDir, "defaults", "personalities")
	require.NoError(t, os.MkdirAll(defaultsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(defaultsDir, "analyst.yaml"), []byte(`id: analyst
name: Analyst
model: openai/gpt-4o
enabled: true
personality_prompt:
  identity_and_role: You are the analyst.
`), 0o644))
	r, err := config.NewResolver(dataDir)
	require.NoError(t, err)
	return r
}

func newTestServer(t *testing.T) *Server {
	resolver := newTestResolver(t)
	engine := &council.Engine{Resolver: resolver, Upstream: fakeUpstream{}}
	store := conversation.NewMemoryStore()
	votes := voting.NewMemoryStore()
	return NewServer(engine, store, votes)
}

type fakeUpstream struct{}

func (fakeUpstream) Query(ctx context.Context, req upstream.Request) *upstream.Result { return nil }

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateAndGetConversation_RequiresIdentity(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/conversations", nil)
	req.Header.Set("X-Org-Id", "acme")
	req.Header.Set("X-User-Id", "user-1")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created conversation.Conversation
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/"+created.ID, nil)
	getReq.Header.Set("X-Org-Id", "acme")
	getReq.Header.Set("X-User-Id", "user-1")
	getRec := httptest.NewRecorder()
	srv.ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)
}

func TestGetConversation_ForeignUserForbidden(t *testing.T) {
	srv := newTestServer(t)

	createReq := httptest.NewRequest(http.MethodPost, "/api/v1/conversations", nil)
	createReq.Header.Set("X-Org-Id", "acme")
	createReq.Header.Set("X-User-Id", "owner")
	createRec := httptest.NewRecorder()
	srv.ServeHTTP(createRec, createReq)
	var created conversation.Conversation
	require.NoError(t, json.NewDecoder(createRec.Body).Decode(&created))

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/"+created.ID, nil)
	getReq.Header.Set("X-Org-Id", "acme")
	getReq.Header.Set("X-User-Id", "intruder")
	getRec := httptest.NewRecorder()
	srv.ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusForbidden, getRec.Code)
}

func TestLeague_EmptyWhenNoVotesRecorded(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/league", nil)
	req.Header.Set("X-Org-Id", "acme")
	req.Header.Set("X-User-Id", "user-1")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Empty(t, body["league"])
}

func TestLeague_InstanceScopeRequiresInstanceAdmin(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/league?scope=instance", nil)
	req.Header.Set("X-Org-Id", "acme")
	req.Header.Set("X-User-Id", "user-1")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMessage_UnknownConversationNotFound(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(messageRequest{Message: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/missing/message", bytes.NewReader(body))
	req.Header.Set("X-Org-Id", "acme")
	req.Header.Set("X-User-Id", "user-1")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
