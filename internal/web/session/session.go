package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"sync"

	"github.com/gorilla/sessions"

	"github.com/makerforge/printdesk/internal/domain/entities"
	"github.com/makerforge/printdesk/internal/domain/repositories"
)

const (
	// SessionName is the name of the session cookie
	SessionName = "printdesk_session"

	// sessionIDKey is the session key for the opaque session identifier
	sessionIDKey = "sid"

	// stateNonceKey is the session key for the pending OAuth state nonce
	stateNonceKey = "oauth_state_nonce"
)

// Manager wraps gorilla/sessions for the portal. The signed cookie carries
// only an unguessable session ID; the ID is mapped to an external user ID
// server side, so logout invalidates the credential even if a stale copy
// of the cookie is replayed. Resolution goes through the injected user
// repository and any failure degrades to anonymous, never an error.
type Manager struct {
	store *sessions.CookieStore
	users repositories.UserRepository

	mu     sync.Mutex
	active map[string]string // session ID -> external ID
}

// NewManager creates a new session manager
// secretKey should be 32 bytes
func NewManager(secretKey []byte, users repositories.UserRepository) *Manager {
	store := sessions.NewCookieStore(secretKey)

	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60, // 30 days
		HttpOnly: true,
		Secure:   false, // Set to true in production with HTTPS
		SameSite: http.SameSiteLaxMode,
	}

	return &Manager{
		store:  store,
		users:  users,
		active: make(map[string]string),
	}
}

// Login binds the request's session to the given external ID. Any prior
// session identity is invalidated first, so a login with a different
// identity cannot ride an old credential.
func (m *Manager) Login(r *http.Request, w http.ResponseWriter, externalID string) error {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		session, _ = m.store.New(r, SessionName)
	}

	if old, ok := session.Values[sessionIDKey].(string); ok {
		m.revoke(old)
	}

	sid, err := generateSessionID()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.active[sid] = externalID
	m.mu.Unlock()

	// Drop everything from the previous session state
	session.Values = make(map[any]any)
	session.Values[sessionIDKey] = sid
	return session.Save(r, w)
}

// Logout clears the session unconditionally. Calling it when already
// anonymous is a no-op.
func (m *Manager) Logout(r *http.Request, w http.ResponseWriter) error {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		return nil
	}

	if sid, ok := session.Values[sessionIDKey].(string); ok {
		m.revoke(sid)
	}

	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// CurrentUser resolves the request's session to a user. The second return
// is false for anonymous requests, including sessions referencing a user
// the store no longer knows.
func (m *Manager) CurrentUser(ctx context.Context, r *http.Request) (*entities.User, bool) {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		return nil, false
	}

	sid, ok := session.Values[sessionIDKey].(string)
	if !ok || sid == "" {
		return nil, false
	}

	m.mu.Lock()
	externalID, ok := m.active[sid]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}

	user, err := m.users.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, false
	}

	return user, true
}

// SetPendingNonce stores the OAuth state nonce for the redirect round-trip
func (m *Manager) SetPendingNonce(r *http.Request, w http.ResponseWriter, nonce string) error {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		session, _ = m.store.New(r, SessionName)
	}

	session.Values[stateNonceKey] = nonce
	return session.Save(r, w)
}

// ConsumePendingNonce returns the stored state nonce and removes it from the
// request's session, making each issued state single-use. The removal is not
// saved here: a successful login replaces the session wholesale, and a failed
// callback sets no cookie at all.
func (m *Manager) ConsumePendingNonce(r *http.Request) string {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		return ""
	}

	nonce, _ := session.Values[stateNonceKey].(string)
	delete(session.Values, stateNonceKey)
	return nonce
}

func (m *Manager) revoke(sid string) {
	m.mu.Lock()
	delete(m.active, sid)
	m.mu.Unlock()
}

func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
