// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/tomtom215/waymark/internal/auth"
	"github.com/tomtom215/waymark/internal/config"
	"github.com/tomtom215/waymark/internal/models"
	"github.com/tomtom215/waymark/internal/store"
)

const (
	testSecret      = "test-session-secret-0123456789"
	testEditorID    = "80351110224678912"
	testViewerID    = "11111111111111111"
	testAccessToken = "discord-access-token-do-not-leak"
	testAuthURL     = "https://identity.example/oauth2/authorize?client_id=abc"
)

// fakeIdentity is an in-process IdentityProvider. Any code other than
// validCode fails the exchange the way the provider rejects a bad grant.
type fakeIdentity struct {
	mu          sync.Mutex
	validCode   string
	profile     *auth.Profile
	roles       []string
	profileErr  error
	memberCalls int
	exchanges   int
}

func newFakeIdentity(userID string) *fakeIdentity {
	return &fakeIdentity{
		validCode: "good-code",
		profile:   &auth.Profile{ID: userID, Username: "cartographer", GlobalName: "Map Maker"},
	}
}

func (f *fakeIdentity) BuildAuthorizationURL() string {
	return testAuthURL
}

func (f *fakeIdentity) ExchangeCode(_ context.Context, code string) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges++
	if code != f.validCode {
		return nil, &models.UpstreamError{
			Service:   models.ServiceIdentity,
			Operation: "token_exchange",
			Status:    http.StatusBadRequest,
			Message:   "invalid_grant",
		}
	}
	return &oauth2.Token{AccessToken: testAccessToken, TokenType: "Bearer"}, nil
}

func (f *fakeIdentity) FetchProfile(_ context.Context, accessToken string) (*auth.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	if accessToken != testAccessToken {
		return nil, &models.UpstreamError{Service: models.ServiceIdentity, Operation: "fetch_profile", Status: http.StatusUnauthorized}
	}
	p := *f.profile
	return &p, nil
}

func (f *fakeIdentity) FetchMembership(_ context.Context, _, _ string) (*auth.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memberCalls++
	return &auth.Membership{Roles: append([]string(nil), f.roles...)}, nil
}

func (f *fakeIdentity) membershipCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.memberCalls
}

// countingStore wraps a MapStore and counts calls, so tests can assert that
// rejected requests never reach the store.
type countingStore struct {
	next   MapStore
	reads  atomic.Int32
	writes atomic.Int32
}

func (s *countingStore) Read(ctx context.Context, mapID string) (*store.ReadResult, error) {
	s.reads.Add(1)
	return s.next.Read(ctx, mapID)
}

func (s *countingStore) Write(ctx context.Context, req store.WriteRequest) (*store.WriteResult, error) {
	s.writes.Add(1)
	return s.next.Write(ctx, req)
}

func (s *countingStore) Health() store.Health {
	return s.next.Health()
}

// failingStore fails every read and write with err.
type failingStore struct {
	err    error
	health store.Health
}

func (s *failingStore) Read(context.Context, string) (*store.ReadResult, error) {
	return nil, s.err
}

func (s *failingStore) Write(context.Context, store.WriteRequest) (*store.WriteResult, error) {
	return nil, s.err
}

func (s *failingStore) Health() store.Health {
	return s.health
}

type testEnv struct {
	handler  *Handler
	router   http.Handler
	sessions *auth.SessionManager
	identity *fakeIdentity
	maps     *countingStore
}

type testEnvOptions struct {
	access       config.AccessConfig
	security     *config.SecurityConfig
	maxBodyBytes int64
	maps         MapStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, testEnvOptions{})
}

func newTestEnvWith(t *testing.T, opts testEnvOptions) *testEnv {
	t.Helper()

	sessions, err := auth.NewSessionManager(config.SessionConfig{
		Secret:       testSecret,
		CookieName:   "session",
		MaxAge:       7 * 24 * time.Hour,
		CookieSecure: true,
	})
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}

	if opts.access.AllowedUserIDs == nil {
		opts.access.AllowedUserIDs = []string{testEditorID}
	}

	maps := opts.maps
	if maps == nil {
		backend, err := store.OpenBadgerBackend(config.StoreConfig{Backend: "badger", InMemory: true})
		if err != nil {
			t.Fatalf("OpenBadgerBackend() error = %v", err)
		}
		t.Cleanup(func() { _ = backend.Close() })
		maps = store.NewDocumentStore(backend, "data/maps")
	}
	counting := &countingStore{next: maps}

	identity := newFakeIdentity(testEditorID)
	handler := NewHandler(sessions, identity, auth.NewPolicy(opts.access), counting, config.ServerConfig{
		PostLoginPath: "/",
		MaxBodyBytes:  opts.maxBodyBytes,
	})

	security := opts.security
	if security == nil {
		security = &config.SecurityConfig{RateLimitDisabled: true, CORSOrigins: []string{"https://map.example"}}
	}
	router := NewRouter(handler, sessions, NewChiMiddlewareConfig(*security))

	return &testEnv{
		handler:  handler,
		router:   router.SetupChi(),
		sessions: sessions,
		identity: identity,
		maps:     counting,
	}
}

// sessionCookie issues a real session cookie for userID.
func (e *testEnv) sessionCookie(t *testing.T, userID string, canEdit bool) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	decision := auth.AuthorizationDecision{IdentityID: userID, IDAllowed: canEdit, RoleAllowed: true, CanEdit: canEdit}
	if _, err := e.sessions.Issue(rec, decision, &auth.Profile{ID: userID, Username: "user-" + userID}, testAccessToken); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("Issue() set %d cookies, want 1", len(cookies))
	}
	return cookies[0]
}

// do sends a request through the full router.
func (e *testEnv) do(t *testing.T, method, target string, body []byte, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json (body %s)", ct, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	decodeBody(t, rec, &resp)
	if resp.OK {
		t.Errorf("error body has ok=true: %s", rec.Body.String())
	}
	return resp
}

func sessionCookieFrom(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	return nil
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}
