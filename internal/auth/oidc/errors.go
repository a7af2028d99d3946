package oidc

import "errors"

// Errors surfaced by the login flow. Handlers map all of them to a generic
// login failure except ErrUnverifiedEmail, which gets its own user-visible
// message.
var (
	// ErrDiscovery is returned when the provider metadata document cannot
	// be fetched or is incomplete
	ErrDiscovery = errors.New("provider discovery failed")

	// ErrTokenExchange is returned when the authorization code cannot be
	// exchanged for tokens
	ErrTokenExchange = errors.New("token exchange failed")

	// ErrUserInfoFetch is returned when the userinfo endpoint call fails
	// or returns malformed JSON
	ErrUserInfoFetch = errors.New("userinfo fetch failed")

	// ErrUnverifiedEmail is returned when the email_verified claim is
	// absent or not the boolean true
	ErrUnverifiedEmail = errors.New("email not verified by provider")

	// ErrMalformedClaims is returned when a required identity claim is
	// absent or empty
	ErrMalformedClaims = errors.New("malformed identity claims")
)
