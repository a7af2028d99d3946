package handlers

import (
	"log/slog"

	"github.com/makerforge/printdesk/internal/auth/oidc"
	"github.com/makerforge/printdesk/internal/auth/state"
	"github.com/makerforge/printdesk/internal/domain/services"
	"github.com/makerforge/printdesk/internal/printer"
	"github.com/makerforge/printdesk/internal/web/session"
)

// Handler holds the collaborators for all HTTP handlers
type Handler struct {
	discovery   *oidc.DiscoveryClient
	flow        *oidc.Flow
	users       *services.UserService
	sessions    *session.Manager
	stateSigner *state.Signer
	printers    printer.StatusSource
	printerSet  []string
	callbackURL string
	log         *slog.Logger
}

// New creates a handler with all its dependencies injected
func New(
	discovery *oidc.DiscoveryClient,
	flow *oidc.Flow,
	users *services.UserService,
	sessions *session.Manager,
	stateSigner *state.Signer,
	printers printer.StatusSource,
	printerNames []string,
	callbackURL string,
	log *slog.Logger,
) *Handler {
	return &Handler{
		discovery:   discovery,
		flow:        flow,
		users:       users,
		sessions:    sessions,
		stateSigner: stateSigner,
		printers:    printers,
		printerSet:  printerNames,
		callbackURL: callbackURL,
		log:         log,
	}
}
