package models

// Webhook event kinds pushed by the identity provider.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// WebhookEvent is the identity provider's lifecycle event payload.
type WebhookEvent struct {
	Type string           `json:"type"`
	Data WebhookEventData `json:"data"`
}

type WebhookEventData struct {
	ID             string         `json:"id"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	EmailAddresses []EmailAddress `json:"email_addresses"`
	ImageURL       string         `json:"image_url"`
}

type EmailAddress struct {
	EmailAddress string `json:"email_address"`
}

// PrimaryEmail returns the first reported address, or "".
func (d WebhookEventData) PrimaryEmail() string {
	if len(d.EmailAddresses) == 0 {
		return ""
	}
	return d.EmailAddresses[0].EmailAddress
}

// DisplayName applies the standard name derivation to the event payload.
func (d WebhookEventData) DisplayName() string {
	return DeriveDisplayName(d.FirstName, d.LastName, d.PrimaryEmail())
}
