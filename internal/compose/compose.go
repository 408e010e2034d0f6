// Package compose abstracts message and comment text generation for
// send_followup, send_connection_request, and comment_post steps. AI
// generation is an out-of-scope external collaborator; only the
// interface and a deterministic StaticComposer ship here.
package compose

import (
	"context"

	"github.com/outreachflow/campaignflow/internal/template"
)

// DefaultConnectionMessage is used when a send_connection_request step
// has neither useAI nor a customMessage configured.
const DefaultConnectionMessage = "Hi {{first_name}}, I'd like to connect."

// DefaultFollowupMessage is used when a send_followup step has neither
// configureWithAI nor a customMessage configured.
const DefaultFollowupMessage = "Hi {{first_name}}, just following up!"

// DefaultComment is used when a comment_post step has neither
// configureWithAI nor a customComment configured.
const DefaultComment = "Great post, {{first_name}}!"

// Composer produces outbound text for a step, given whatever template
// values are available for the target lead or post author.
type Composer interface {
	Compose(ctx context.Context, useAI bool, custom, fallback string, values template.Values) (string, error)
}

// StaticComposer renders `custom` (or `fallback` if empty) through the
// template package; useAI is accepted for interface symmetry with a
// future AI-backed implementation but always ignored here.
type StaticComposer struct{}

// NewStaticComposer builds the only Composer this module ships.
func NewStaticComposer() *StaticComposer {
	return &StaticComposer{}
}

func (StaticComposer) Compose(_ context.Context, _ bool, custom, fallback string, values template.Values) (string, error) {
	text := custom
	if text == "" {
		text = fallback
	}

	return template.Render(text, values), nil
}
