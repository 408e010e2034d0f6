package domain

import "time"

// Lead is a prospect imported into exactly one campaign for the purposes
// of the workflow engine.
type Lead struct {
	ID             string `json:"id"              validate:"required"`
	OrganizationID string `json:"organization_id" validate:"required"`
	CampaignID     string `json:"campaign_id"     validate:"required"`

	LinkedInURL      string `json:"linkedin_url"       validate:"required"`
	PublicIdentifier string `json:"public_identifier"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Title     string `json:"title"`
	Company   string `json:"company"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Location  string `json:"location"`
	LinkedInID string `json:"linkedin_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EnrichedAttributes is the subset of Lead fields a profile_visit step may
// populate from the provider's response.
type EnrichedAttributes struct {
	FirstName  string
	LastName   string
	Title      string
	Company    string
	Email      string
	Phone      string
	Location   string
	LinkedInID string
}

// ApplyEnrichment merges non-empty enriched attributes onto the lead,
// leaving already-known fields untouched when the new value is empty.
func (l *Lead) ApplyEnrichment(e EnrichedAttributes) {
	if e.FirstName != "" {
		l.FirstName = e.FirstName
	}

	if e.LastName != "" {
		l.LastName = e.LastName
	}

	if e.Title != "" {
		l.Title = e.Title
	}

	if e.Company != "" {
		l.Company = e.Company
	}

	if e.Email != "" {
		l.Email = e.Email
	}

	if e.Phone != "" {
		l.Phone = e.Phone
	}

	if e.Location != "" {
		l.Location = e.Location
	}

	if e.LinkedInID != "" {
		l.LinkedInID = e.LinkedInID
	}
}
