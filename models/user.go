package models

import (
	"strings"
	"time"
)

// User mirrors an identity-provider account. ExternalID is the provider's
// key and uniquely maps to at most one local record.
type User struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	ImageURL   string    `json:"image_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DeriveDisplayName builds a display name from provider profile fields:
// first/last name, then the primary email, then the literal "User".
func DeriveDisplayName(firstName, lastName, email string) string {
	name := strings.TrimSpace(firstName + " " + lastName)
	if name != "" {
		return name
	}
	if email != "" {
		return email
	}
	return "User"
}
