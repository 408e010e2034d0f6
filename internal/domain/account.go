package domain

import "time"

// AccountStatus represents the provider-side state of a sender account.
type AccountStatus string

const (
	AccountStatusActive       AccountStatus = "ACTIVE"
	AccountStatusDisconnected AccountStatus = "DISCONNECTED"
)

// ConnectedAccount is a sender account connected to the outreach
// provider. Its metadata carries the sender-wide connection-request
// cooldown applied when the provider signals cannot_resend_yet.
type ConnectedAccount struct {
	ID                string        `json:"id"              validate:"required"`
	OrganizationID    string        `json:"organization_id" validate:"required"`
	Provider          string        `json:"provider"        validate:"required"`
	ProviderAccountID string        `json:"provider_account_id" validate:"required"`
	Status            AccountStatus `json:"status"          validate:"required,oneof=ACTIVE DISCONNECTED"`

	ConnectionRequestBlockedUntil *time.Time `json:"connection_request_blocked_until,omitempty"`
	DailyUsage                    int        `json:"daily_usage"`
	UsageResetAt                  *time.Time `json:"usage_reset_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsConnectionRequestBlocked reports whether now is still within the
// sender-wide cooldown window.
func (a *ConnectedAccount) IsConnectionRequestBlocked(now time.Time) bool {
	return a.ConnectionRequestBlockedUntil != nil && now.Before(*a.ConnectionRequestBlockedUntil)
}
