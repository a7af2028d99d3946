package entities

import "time"

// User is a portal member provisioned from a verified OIDC identity.
// ExternalID is the provider's stable subject ("sub") claim and is the
// primary key; it is opaque and case sensitive. Records are written once
// on first login and never refreshed from later claims.
type User struct {
	ExternalID        string    `json:"external_id" db:"external_id"`
	DisplayName       string    `json:"display_name" db:"display_name"`
	Email             string    `json:"email" db:"email"`
	ProfilePictureURL string    `json:"profile_picture_url" db:"profile_picture_url"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}
