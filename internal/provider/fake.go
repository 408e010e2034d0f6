package provider

import (
	"context"

	"github.com/outreachflow/campaignflow/internal/domain"
)

// Fake is a scripted, hand-written Client implementation for tests —
// no external network calls, no mocking framework, just recorded calls
// and canned responses (mirrors the teacher's pkg/mocks fakes).
type Fake struct {
	Profiles      map[string]*Profile
	Connected     map[string]bool
	Posts         []Post
	Invitations   []Invitation
	SendInviteErr error
	Calls         []string
}

// NewFake builds an empty Fake ready for per-test configuration.
func NewFake() *Fake {
	return &Fake{
		Profiles:  make(map[string]*Profile),
		Connected: make(map[string]bool),
	}
}

func (f *Fake) VisitProfile(_ context.Context, _ *domain.ConnectedAccount, identifier string, _ bool) (*Profile, error) {
	f.Calls = append(f.Calls, "VisitProfile:"+identifier)

	if p, ok := f.Profiles[identifier]; ok {
		return p, nil
	}

	return &Profile{ProviderID: identifier}, nil
}

func (f *Fake) SendInvitation(_ context.Context, _ *domain.ConnectedAccount, providerID, _ string) error {
	f.Calls = append(f.Calls, "SendInvitation:"+providerID)

	return f.SendInviteErr
}

func (f *Fake) IsConnected(_ context.Context, _ *domain.ConnectedAccount, identifier string) (bool, error) {
	f.Calls = append(f.Calls, "IsConnected:"+identifier)

	return f.Connected[identifier], nil
}

func (f *Fake) StartOrContinueChat(_ context.Context, _ *domain.ConnectedAccount, providerIDs []string, _ string) error {
	f.Calls = append(f.Calls, "StartOrContinueChat")
	_ = providerIDs

	return nil
}

func (f *Fake) ListRecentPosts(_ context.Context, _ *domain.ConnectedAccount, identifier string, _, _ int) ([]Post, error) {
	f.Calls = append(f.Calls, "ListRecentPosts:"+identifier)

	return f.Posts, nil
}

func (f *Fake) ReactToPost(_ context.Context, _ *domain.ConnectedAccount, postID string, _ ReactionType) error {
	f.Calls = append(f.Calls, "ReactToPost:"+postID)

	return nil
}

func (f *Fake) CommentPost(_ context.Context, _ *domain.ConnectedAccount, postID, _ string) error {
	f.Calls = append(f.Calls, "CommentPost:"+postID)

	return nil
}

func (f *Fake) ListInvitationsSent(_ context.Context, _ *domain.ConnectedAccount) ([]Invitation, error) {
	f.Calls = append(f.Calls, "ListInvitationsSent")

	return f.Invitations, nil
}

func (f *Fake) CancelInvitation(_ context.Context, _ *domain.ConnectedAccount, invitationID string) error {
	f.Calls = append(f.Calls, "CancelInvitation:"+invitationID)

	return nil
}
