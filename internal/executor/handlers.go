package executor

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/outreachflow/campaignflow/internal/domain"
	"github.com/outreachflow/campaignflow/internal/provider"
	"github.com/outreachflow/campaignflow/internal/template"
)

func configString(cfg map[string]any, key string) string {
	if cfg == nil {
		return ""
	}

	v, _ := cfg[key].(string)

	return v
}

func configBool(cfg map[string]any, key string) bool {
	if cfg == nil {
		return false
	}

	v, _ := cfg[key].(bool)

	return v
}

func configInt(cfg map[string]any, key string, def int) int {
	if cfg == nil {
		return def
	}

	switch v := cfg[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

func leadIdentifier(lead *domain.Lead) string {
	if lead.PublicIdentifier != "" {
		return lead.PublicIdentifier
	}

	return lead.LinkedInURL
}

func templateValuesFor(lead *domain.Lead) template.Values {
	return template.Values{FirstName: lead.FirstName, LastName: lead.LastName, Company: lead.Company}
}

func (e *Executor) handleProfileVisit(hc *handlerCtx) (execResult, error) {
	profile, err := e.deps.Provider.VisitProfile(hc.ctx, hc.sender, leadIdentifier(hc.lead), false)
	if err != nil {
		return execResult{}, fmt.Errorf("visit profile: %w", err)
	}

	applyProfileEnrichment(hc.lead, profile)

	if err := e.deps.Leads.Update(hc.ctx, hc.lead); err != nil {
		return execResult{}, fmt.Errorf("persist lead enrichment: %w", err)
	}

	return execResult{rawResponse: map[string]any{"provider_id": profile.ProviderID}}, nil
}

func applyProfileEnrichment(lead *domain.Lead, p *provider.Profile) {
	enrichment := domain.EnrichedAttributes{
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Title:      p.Headline,
		Company:    p.Company,
		Location:   p.Location,
		LinkedInID: p.ProviderID,
	}

	if len(p.Emails) > 0 {
		enrichment.Email = p.Emails[0]
	}

	if len(p.Phones) > 0 {
		enrichment.Phone = p.Phones[0]
	}

	lead.ApplyEnrichment(enrichment)
}

// handleSendConnectionRequest is the most constrained kind: sender
// cooldown gate, then rate-limit gate, then the actual invitation
// (spec §4.4).
func (e *Executor) handleSendConnectionRequest(hc *handlerCtx) (execResult, error) {
	if hc.sender.IsConnectionRequestBlocked(hc.now) {
		if err := e.deps.Steps.Rearm(hc.ctx, hc.step.ID, *hc.sender.ConnectionRequestBlockedUntil); err != nil {
			return execResult{}, fmt.Errorf("rearm step behind sender cooldown: %w", err)
		}

		return execResult{}, errDeferred
	}

	rl := e.deps.RateLimiter.Check(hc.campaign, hc.now)
	if !rl.Update.IsEmpty() {
		if err := e.deps.Campaigns.ApplyCounterUpdate(hc.ctx, hc.campaign.ID, rl.Update); err != nil {
			return execResult{}, fmt.Errorf("persist rate-limit counter reset: %w", err)
		}
	}

	if !rl.CanProceed {
		if err := e.deps.Steps.Rearm(hc.ctx, hc.step.ID, rl.WaitUntil); err != nil {
			return execResult{}, fmt.Errorf("rearm rate-limited step: %w", err)
		}

		return execResult{}, errDeferred
	}

	profile, err := e.deps.Provider.VisitProfile(hc.ctx, hc.sender, leadIdentifier(hc.lead), false)
	if err != nil {
		return execResult{}, fmt.Errorf("visit profile before invite: %w", err)
	}

	cfg := hc.node.Data.Config
	message, err := e.deps.Composer.Compose(
		hc.ctx, configBool(cfg, "useAI"), configString(cfg, "customMessage"),
		"Hi {{first_name}}, I'd like to connect.", templateValuesFor(hc.lead),
	)
	if err != nil {
		return execResult{}, fmt.Errorf("compose connection message: %w", err)
	}

	if err := e.deps.Provider.SendInvitation(hc.ctx, hc.sender, profile.ProviderID, message); err != nil {
		return execResult{}, fmt.Errorf("send invitation: %w", err)
	}

	incrementedDay := rl.RequestsSentThisDay + 1
	incrementedWeek := rl.RequestsSentThisWeek + 1
	increment := domain.CounterUpdate{RequestsSentThisDay: &incrementedDay, RequestsSentThisWeek: &incrementedWeek}

	if err := e.deps.Campaigns.ApplyCounterUpdate(hc.ctx, hc.campaign.ID, rl.Update.Merge(increment)); err != nil {
		return execResult{}, fmt.Errorf("persist sent-counter increment: %w", err)
	}

	return execResult{
		rawResponse: map[string]any{"providerId": profile.ProviderID, "pollingStartedAt": hc.now.Unix()},
		shouldPoll:  true,
		pollType:    domain.NodeTypeCheckConnectionStatus,
	}, nil
}

func (e *Executor) handleLikePost(hc *handlerCtx) (execResult, error) {
	cfg := hc.node.Data.Config
	sinceDays := configInt(cfg, "recentDays", 7)

	posts, err := e.deps.Provider.ListRecentPosts(hc.ctx, hc.sender, leadIdentifier(hc.lead), sinceDays, configInt(cfg, "limit", 5))
	if err != nil {
		return execResult{}, fmt.Errorf("list recent posts: %w", err)
	}

	if len(posts) == 0 {
		return execResult{rawResponse: map[string]any{"status": "no_qualifying_post"}}, nil
	}

	post := posts[rand.Intn(len(posts))] //nolint:gosec // reaction choice has no security relevance

	reaction := provider.ReactionType(configString(cfg, "reactionType"))
	if reaction == "" {
		reaction = provider.ReactionLike
	}

	if err := e.deps.Provider.ReactToPost(hc.ctx, hc.sender, post.ID, reaction); err != nil {
		return execResult{}, fmt.Errorf("react to post: %w", err)
	}

	return execResult{rawResponse: map[string]any{"post_id": post.ID, "reaction": string(reaction)}}, nil
}

func (e *Executor) handleCommentPost(hc *handlerCtx) (execResult, error) {
	cfg := hc.node.Data.Config

	posts, err := e.deps.Provider.ListRecentPosts(hc.ctx, hc.sender, leadIdentifier(hc.lead), configInt(cfg, "recentDays", 7), configInt(cfg, "limit", 5))
	if err != nil {
		return execResult{}, fmt.Errorf("list recent posts: %w", err)
	}

	if len(posts) == 0 {
		return execResult{rawResponse: map[string]any{"status": "no_qualifying_post"}}, nil
	}

	post := posts[rand.Intn(len(posts))] //nolint:gosec // comment target choice has no security relevance

	authorFirst, _, _ := strings.Cut(post.AuthorName, " ")

	comment, err := e.deps.Composer.Compose(
		hc.ctx, configBool(cfg, "configureWithAI"), configString(cfg, "customComment"),
		"Great post, {{first_name}}!", template.Values{FirstName: authorFirst},
	)
	if err != nil {
		return execResult{}, fmt.Errorf("compose comment: %w", err)
	}

	if err := e.deps.Provider.CommentPost(hc.ctx, hc.sender, post.ID, comment); err != nil {
		return execResult{}, fmt.Errorf("comment on post: %w", err)
	}

	return execResult{rawResponse: map[string]any{"post_id": post.ID}}, nil
}

func (e *Executor) handleSendFollowup(hc *handlerCtx) (execResult, error) {
	profile, err := e.deps.Provider.VisitProfile(hc.ctx, hc.sender, leadIdentifier(hc.lead), false)
	if err != nil {
		return execResult{}, fmt.Errorf("visit profile before followup: %w", err)
	}

	cfg := hc.node.Data.Config
	message, err := e.deps.Composer.Compose(
		hc.ctx, configBool(cfg, "configureWithAI"), configString(cfg, "customMessage"),
		"Hi {{first_name}}, just following up!", templateValuesFor(hc.lead),
	)
	if err != nil {
		return execResult{}, fmt.Errorf("compose followup message: %w", err)
	}

	if err := e.deps.Provider.StartOrContinueChat(hc.ctx, hc.sender, []string{profile.ProviderID}, message); err != nil {
		return execResult{}, fmt.Errorf("send followup message: %w", err)
	}

	return execResult{
		rawResponse: map[string]any{"providerId": profile.ProviderID, "pollingStartedAt": hc.now.Unix()},
		shouldPoll:  true,
		pollType:    domain.NodeTypeCheckMessageReply,
	}, nil
}

func (e *Executor) handleWithdrawRequest(hc *handlerCtx) (execResult, error) {
	profile, err := e.deps.Provider.VisitProfile(hc.ctx, hc.sender, leadIdentifier(hc.lead), false)
	if err != nil {
		return execResult{}, fmt.Errorf("visit profile before withdraw: %w", err)
	}

	invitations, err := e.deps.Provider.ListInvitationsSent(hc.ctx, hc.sender)
	if err != nil {
		return execResult{}, fmt.Errorf("list sent invitations: %w", err)
	}

	for _, inv := range invitations {
		if inv.ProviderID == profile.ProviderID {
			if err := e.deps.Provider.CancelInvitation(hc.ctx, hc.sender, inv.ID); err != nil {
				return execResult{}, fmt.Errorf("cancel invitation: %w", err)
			}

			return execResult{rawResponse: map[string]any{"invitation_id": inv.ID, "withdrawn": true}}, nil
		}
	}

	return execResult{rawResponse: map[string]any{"withdrawn": false}}, nil
}
