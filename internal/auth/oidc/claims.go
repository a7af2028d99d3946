package oidc

import "fmt"

// Identity is the verified principal extracted from userinfo claims. It
// carries no tokens and creating one has no persistent side effect;
// provisioning into the user store is a separate step.
type Identity struct {
	// Subject is the provider's stable unique identifier ("sub")
	Subject string

	// Email address verified by the provider
	Email string

	// Name is the user's display name
	Name string

	// Picture is the URL to the user's profile picture
	Picture string
}

// userinfoClaims is the raw userinfo document. EmailVerified is kept
// untyped so a provider sending the string "true" instead of a JSON
// boolean is detected rather than coerced.
type userinfoClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// identity validates the claims and converts them to an Identity
func (c *userinfoClaims) identity() (*Identity, error) {
	verified, ok := c.EmailVerified.(bool)
	if !ok || !verified {
		return nil, ErrUnverifiedEmail
	}

	required := map[string]string{
		"sub":     c.Subject,
		"email":   c.Email,
		"name":    c.Name,
		"picture": c.Picture,
	}
	for claim, value := range required {
		if value == "" {
			return nil, fmt.Errorf("%w: missing %s claim", ErrMalformedClaims, claim)
		}
	}

	return &Identity{
		Subject: c.Subject,
		Email:   c.Email,
		Name:    c.Name,
		Picture: c.Picture,
	}, nil
}
