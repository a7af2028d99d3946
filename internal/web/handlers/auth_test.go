package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/makerforge/printdesk/internal/auth/oidc"
	"github.com/makerforge/printdesk/internal/auth/state"
	"github.com/makerforge/printdesk/internal/domain/services"
	"github.com/makerforge/printdesk/internal/infrastructure/database/memory"
	"github.com/makerforge/printdesk/internal/printer"
	"github.com/makerforge/printdesk/internal/web/session"
)

// testEnv wires a handler against a fake provider and an in-memory store
type testEnv struct {
	provider *providerStub
	repo     *memory.UserRepository
	sessions *session.Manager
	handler  *Handler
}

// providerStub serves discovery, token and userinfo endpoints
type providerStub struct {
	srv          *httptest.Server
	userinfoBody string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	stub := &providerStub{
		userinfoBody: `{"sub":"u1","email":"a@b.com","email_verified":true,"name":"Ada","picture":"http://x/p.png"}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/discovery", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"authorization_endpoint": %q,
			"token_endpoint": %q,
			"userinfo_endpoint": %q
		}`, stub.srv.URL+"/auth", stub.srv.URL+"/token", stub.srv.URL+"/userinfo")
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"test-access-token","token_type":"bearer"}`)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, stub.userinfoBody)
	})

	stub.srv = httptest.NewServer(mux)
	t.Cleanup(stub.srv.Close)

	secret := []byte("0123456789abcdef0123456789abcdef")
	repo := memory.NewUserRepository()
	sessions := session.NewManager(secret, repo)

	h := New(
		oidc.NewDiscoveryClient(stub.srv.URL+"/discovery", stub.srv.Client(), time.Hour),
		oidc.NewFlow(oidc.ClientConfig{ClientID: "test-client", ClientSecret: "test-secret"}, stub.srv.Client()),
		services.NewUserService(repo),
		sessions,
		state.NewSigner(secret),
		printer.OfflineSource{},
		[]string{"Xerox", "Gutenberg"},
		"http://portal.example/login/callback",
		slog.Default(),
	)

	return &testEnv{provider: stub, repo: repo, sessions: sessions, handler: h}
}

// startLogin runs the /login handler and returns the state parameter sent
// to the provider along with the cookies to carry into the callback
func (env *testEnv) startLogin(t *testing.T) (stateParam string, cookies []*http.Cookie) {
	t.Helper()

	rec := httptest.NewRecorder()
	env.handler.Login(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect to provider, got %d: %s", rec.Code, rec.Body.String())
	}

	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("failed to parse redirect location: %v", err)
	}

	return loc.Query().Get("state"), rec.Result().Cookies()
}

// finishLogin runs the callback with the given code and state
func (env *testEnv) finishLogin(t *testing.T, code, stateParam string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	target := "/login/callback?code=" + url.QueryEscape(code) + "&state=" + url.QueryEscape(stateParam)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	env.handler.AuthCallback(rec, req)
	return rec
}

func TestLoginRedirect(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.Login(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}

	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("failed to parse location: %v", err)
	}

	q := loc.Query()
	if q.Get("client_id") != "test-client" {
		t.Errorf("expected configured client id, got %q", q.Get("client_id"))
	}
	if q.Get("response_type") != "code" {
		t.Errorf("expected response_type=code, got %q", q.Get("response_type"))
	}
	if q.Get("redirect_uri") != "http://portal.example/login/callback" {
		t.Errorf("expected callback URL, got %q", q.Get("redirect_uri"))
	}
	if q.Get("state") == "" {
		t.Error("expected a state parameter")
	}
}

// Scenario: first login provisions a user and establishes the session
func TestCallback_FirstLogin(t *testing.T) {
	env := newTestEnv(t)

	stateParam, cookies := env.startLogin(t)
	rec := env.finishLogin(t, "abc123", stateParam, cookies)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect home, got %d: %s", rec.Code, rec.Body.String())
	}

	user, err := env.repo.GetByExternalID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected provisioned user, got %v", err)
	}
	if user.DisplayName != "Ada" || user.Email != "a@b.com" || user.ProfilePictureURL != "http://x/p.png" {
		t.Errorf("unexpected user record: %+v", user)
	}

	// The response cookies now carry an authenticated session
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	current, ok := env.sessions.CurrentUser(context.Background(), req)
	if !ok || current.ExternalID != "u1" {
		t.Errorf("expected session authenticated as u1, got %+v ok=%v", current, ok)
	}
}

// Scenario: a repeat login with changed claims keeps the original record
func TestCallback_SecondLoginFirstWriteWins(t *testing.T) {
	env := newTestEnv(t)

	stateParam, cookies := env.startLogin(t)
	env.finishLogin(t, "abc123", stateParam, cookies)

	env.provider.userinfoBody = `{"sub":"u1","email":"a@b.com","email_verified":true,"name":"Ada Lovelace","picture":"http://x/p.png"}`

	stateParam, cookies = env.startLogin(t)
	rec := env.finishLogin(t, "def456", stateParam, cookies)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect home, got %d", rec.Code)
	}

	user, err := env.repo.GetByExternalID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected user, got %v", err)
	}
	if user.DisplayName != "Ada" {
		t.Errorf("expected display name to stay Ada, got %q", user.DisplayName)
	}

	users, _ := env.repo.List(context.Background())
	if len(users) != 1 {
		t.Errorf("expected exactly one record, got %d", len(users))
	}
}

// Scenario: email_verified sent as a string is not verified
func TestCallback_StringEmailVerifiedRejected(t *testing.T) {
	env := newTestEnv(t)
	env.provider.userinfoBody = `{"sub":"u1","email":"a@b.com","email_verified":"true","name":"Ada","picture":"http://x/p.png"}`

	stateParam, cookies := env.startLogin(t)
	rec := env.finishLogin(t, "abc123", stateParam, cookies)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not verified") {
		t.Errorf("expected the unverified-email message, got %q", rec.Body.String())
	}

	// No store mutation and no session
	if users, _ := env.repo.List(context.Background()); len(users) != 0 {
		t.Errorf("expected no provisioned users, got %d", len(users))
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	if _, ok := env.sessions.CurrentUser(context.Background(), req); ok {
		t.Error("expected session to stay anonymous after failed login")
	}
}

func TestCallback_UnverifiedEmailRejected(t *testing.T) {
	env := newTestEnv(t)
	env.provider.userinfoBody = `{"sub":"u1","email":"a@b.com","email_verified":false,"name":"Ada","picture":"http://x/p.png"}`

	stateParam, cookies := env.startLogin(t)
	rec := env.finishLogin(t, "abc123", stateParam, cookies)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if users, _ := env.repo.List(context.Background()); len(users) != 0 {
		t.Errorf("expected no provisioned users, got %d", len(users))
	}
}

func TestCallback_MissingCode(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.AuthCallback(rec, httptest.NewRequest(http.MethodGet, "/login/callback", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing code, got %d", rec.Code)
	}
}

func TestCallback_ProviderError(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.AuthCallback(rec, httptest.NewRequest(http.MethodGet, "/login/callback?error=access_denied", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for provider error, got %d", rec.Code)
	}
}

func TestCallback_ForgedState(t *testing.T) {
	env := newTestEnv(t)

	// Callback arrives with a state the portal never issued for this
	// session
	_, cookies := env.startLogin(t)
	rec := env.finishLogin(t, "abc123", "forged-state", cookies)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for forged state, got %d", rec.Code)
	}
	if users, _ := env.repo.List(context.Background()); len(users) != 0 {
		t.Errorf("expected no provisioned users, got %d", len(users))
	}
}

func TestCallback_ReplayedState(t *testing.T) {
	env := newTestEnv(t)

	stateParam, cookies := env.startLogin(t)
	first := env.finishLogin(t, "abc123", stateParam, cookies)
	if first.Code != http.StatusSeeOther {
		t.Fatalf("expected first callback to succeed, got %d", first.Code)
	}

	// The nonce was consumed; replaying the same state must fail
	second := env.finishLogin(t, "abc123", stateParam, first.Result().Cookies())
	if second.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for replayed state, got %d", second.Code)
	}
}

func TestLogout_EndsSession(t *testing.T) {
	env := newTestEnv(t)

	stateParam, cookies := env.startLogin(t)
	loginRec := env.finishLogin(t, "abc123", stateParam, cookies)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	for _, c := range loginRec.Result().Cookies() {
		req.AddCookie(c)
	}
	logoutRec := httptest.NewRecorder()
	env.handler.Logout(logoutRec, req)

	if logoutRec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect after logout, got %d", logoutRec.Code)
	}

	check := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range logoutRec.Result().Cookies() {
		check.AddCookie(c)
	}
	if _, ok := env.sessions.CurrentUser(context.Background(), check); ok {
		t.Error("expected anonymous session after logout")
	}
}
