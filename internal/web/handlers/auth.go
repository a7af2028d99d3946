package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/makerforge/printdesk/internal/auth/oidc"
)

// unverifiedEmailMessage is the distinct user-visible outcome for a login
// whose email the provider has not verified
const unverifiedEmailMessage = "User email not available or not verified by provider."

// Login initiates the OAuth authorization code flow
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	// Already logged in, nothing to do
	if _, ok := h.sessions.CurrentUser(r.Context(), r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	md, err := h.discovery.Metadata(r.Context())
	if err != nil {
		h.log.Error("provider discovery failed", slog.Any("error", err))
		http.Error(w, "Failed to start login", http.StatusInternalServerError)
		return
	}

	stateToken, nonce, err := h.stateSigner.Issue()
	if err != nil {
		h.log.Error("failed to issue state token", slog.Any("error", err))
		http.Error(w, "Failed to start login", http.StatusInternalServerError)
		return
	}

	// The nonce survives the redirect round-trip in the session; the
	// signed token rides the state query parameter.
	if err := h.sessions.SetPendingNonce(r, w, nonce); err != nil {
		h.log.Error("failed to save session", slog.Any("error", err))
		http.Error(w, "Failed to start login", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, h.flow.AuthCodeURL(md, h.callbackURL, stateToken), http.StatusFound)
}

// AuthCallback handles the provider's redirect back with the authorization
// code
func (h *Handler) AuthCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		h.log.Warn("provider returned error on callback",
			slog.String("error", errParam),
			slog.String("description", query.Get("error_description")))
		http.Error(w, "Authentication failed", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	// Validate the signed state against the single-use nonce saved before
	// the redirect went out
	nonce := h.sessions.ConsumePendingNonce(r)
	if err := h.stateSigner.Verify(query.Get("state"), nonce); err != nil {
		h.log.Warn("invalid state parameter on callback",
			slog.String("remote", r.RemoteAddr))
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	md, err := h.discovery.Metadata(r.Context())
	if err != nil {
		h.log.Error("provider discovery failed", slog.Any("error", err))
		http.Error(w, "Failed to complete authentication", http.StatusInternalServerError)
		return
	}

	identity, err := h.flow.CompleteLogin(r.Context(), md, code, h.callbackURL)
	if err != nil {
		if errors.Is(err, oidc.ErrUnverifiedEmail) {
			http.Error(w, unverifiedEmailMessage, http.StatusBadRequest)
			return
		}
		h.log.Error("login flow failed", slog.Any("error", err))
		http.Error(w, "Failed to complete authentication", http.StatusInternalServerError)
		return
	}

	user, err := h.users.ProvisionIfAbsent(r.Context(), identity)
	if err != nil {
		h.log.Error("failed to provision user", slog.Any("error", err))
		http.Error(w, "Failed to complete authentication", http.StatusInternalServerError)
		return
	}

	if err := h.sessions.Login(r, w, user.ExternalID); err != nil {
		h.log.Error("failed to establish session", slog.Any("error", err))
		http.Error(w, "Failed to complete authentication", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout ends the session and returns to the welcome page
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r, w); err != nil {
		h.log.Warn("failed to clear session", slog.Any("error", err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
