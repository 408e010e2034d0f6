// Package provider declares the outreach provider client contract the
// step executor depends on. The concrete LinkedIn-facing implementation
// is an external collaborator outside this module's scope; only the
// interface and its typed errors live here.
package provider

import (
	"context"
	"errors"

	"github.com/outreachflow/campaignflow/internal/domain"
)

// ReactionType enumerates the reactions like_post may apply.
type ReactionType string

const (
	ReactionLike       ReactionType = "like"
	ReactionCelebrate  ReactionType = "celebrate"
	ReactionSupport    ReactionType = "support"
	ReactionLove       ReactionType = "love"
	ReactionInsightful ReactionType = "insightful"
	ReactionFunny      ReactionType = "funny"
)

// Profile is the subset of provider profile data the engine enriches a
// lead from.
type Profile struct {
	ProviderID string
	FirstName  string
	LastName   string
	Headline   string
	Company    string
	Emails     []string
	Phones     []string
	Location   string
}

// Post is a recent post surfaced by ListRecentPosts, used by like_post
// and comment_post.
type Post struct {
	ID         string
	AuthorID   string
	AuthorName string
}

// Invitation is a sent connection invitation, used by withdraw_request.
type Invitation struct {
	ID         string
	ProviderID string
}

// Client is the nine-method outreach provider contract (spec §6).
// Implementations wrap the third-party LinkedIn API; callers only ever
// see ProviderError on failure.
type Client interface {
	VisitProfile(ctx context.Context, sender *domain.ConnectedAccount, identifier string, notify bool) (*Profile, error)
	SendInvitation(ctx context.Context, sender *domain.ConnectedAccount, providerID, message string) error
	IsConnected(ctx context.Context, sender *domain.ConnectedAccount, identifier string) (bool, error)
	StartOrContinueChat(ctx context.Context, sender *domain.ConnectedAccount, providerIDs []string, message string) error
	ListRecentPosts(ctx context.Context, sender *domain.ConnectedAccount, identifier string, sinceDays, limit int) ([]Post, error)
	ReactToPost(ctx context.Context, sender *domain.ConnectedAccount, postID string, reaction ReactionType) error
	CommentPost(ctx context.Context, sender *domain.ConnectedAccount, postID, comment string) error
	ListInvitationsSent(ctx context.Context, sender *domain.ConnectedAccount) ([]Invitation, error)
	CancelInvitation(ctx context.Context, sender *domain.ConnectedAccount, invitationID string) error
}

// Sentinel provider error codes reacted to by the step executor.
var (
	ErrCannotResendYet     = errors.New("cannot_resend_yet")
	ErrDisconnectedAccount = errors.New("disconnected_account")
	ErrNotConfigured       = errors.New("not_configured")
)

// ProviderError is the structured error every Client method returns on
// failure: Code is one of the sentinels above (for errors.Is), Detail is
// the provider's human-readable message, kept for logs.
type ProviderError struct {
	Code   error
	Detail string
}

func (e *ProviderError) Error() string {
	return e.Code.Error() + ": " + e.Detail
}

func (e *ProviderError) Unwrap() error {
	return e.Code
}

// NewCannotResendYet builds the ProviderError the step executor reacts
// to by applying a sender-wide send_connection_request cooldown.
func NewCannotResendYet(detail string) *ProviderError {
	return &ProviderError{Code: ErrCannotResendYet, Detail: detail}
}
