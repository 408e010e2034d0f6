package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/outreachflow/campaignflow/internal/domain"
	"github.com/outreachflow/campaignflow/internal/graph"
)

// nextStepInfo is the denormalized branch context a polling step's
// raw_response carries so a later poll completion never needs to
// re-read the workflow document to pick its successor (spec §4.5, §9).
type nextStepInfo struct {
	NodeID          string                 `json:"nodeId"`
	EdgeID          string                 `json:"edgeId"`
	ConditionalType domain.ConditionalType `json:"conditionalType"`
	DelayMs         int64                  `json:"delayMs"`
}

// planSuccessors applies the two successor-planning rules: polling-step
// re-arm-or-branch, and regular-step polling-creation-or-per-edge-fanout.
func (e *Executor) planSuccessors(ctx context.Context, wf *domain.Workflow, hc *handlerCtx, result execResult) error {
	if hc.step.IsPolling() {
		return e.planPollingSuccessor(ctx, wf, hc)
	}

	return e.planRegularSuccessor(ctx, wf, hc, result)
}

func (e *Executor) planPollingSuccessor(ctx context.Context, wf *domain.Workflow, hc *handlerCtx) error {
	raw := hc.step.RawResponse

	if shouldContinue, _ := raw["shouldContinuePolling"].(bool); shouldContinue {
		return e.deps.Steps.Create(ctx, &domain.WorkflowStep{
			ID:             uuid.NewString(),
			OrganizationID: hc.step.OrganizationID,
			LeadID:         hc.step.LeadID,
			CampaignID:     hc.step.CampaignID,
			IDInWorkflow:   hc.step.IDInWorkflow,
			StepIndex:      hc.step.StepIndex,
			StepType:       hc.step.StepType,
			Status:         domain.StepStatusPending,
			Retries:        hc.step.Retries + 1,
			ExecuteAfter:   hc.now.Add(time.Hour),
			RawResponse: map[string]any{
				"providerId":       raw["providerId"],
				"nextSteps":        raw["nextSteps"],
				"pollingStartedAt": raw["pollingStartedAt"],
			},
		})
	}

	if hc.step.StepType == domain.NodeTypeCheckMessageReply {
		if hasReplied, _ := raw["hasReplied"].(bool); hasReplied {
			return nil
		}
	}

	isConnected, _ := raw["isConnected"].(bool)
	hasReplied, _ := raw["hasReplied"].(bool)

	wantType := domain.ConditionalNotAccepted
	if isConnected || hasReplied {
		wantType = domain.ConditionalAccepted
	}

	target, ok := matchingNextStep(raw["nextSteps"], wantType)
	if !ok {
		return nil
	}

	node, ok := graph.NodeByID(wf, target.NodeID)
	if !ok {
		return nil
	}

	return e.deps.Steps.Create(ctx, &domain.WorkflowStep{
		ID:             uuid.NewString(),
		OrganizationID: hc.step.OrganizationID,
		LeadID:         hc.step.LeadID,
		CampaignID:     hc.step.CampaignID,
		IDInWorkflow:   target.NodeID,
		StepIndex:      hc.step.StepIndex + 1,
		StepType:       node.Data.Type,
		Status:         domain.StepStatusPending,
		ExecuteAfter:   hc.now,
	})
}

func (e *Executor) planRegularSuccessor(ctx context.Context, wf *domain.Workflow, hc *handlerCtx, result execResult) error {
	successors := graph.Outgoing(wf, hc.node.ID)
	if len(successors) == 0 {
		return nil
	}

	if result.shouldPoll {
		return e.deps.Steps.Create(ctx, &domain.WorkflowStep{
			ID:             uuid.NewString(),
			OrganizationID: hc.step.OrganizationID,
			LeadID:         hc.step.LeadID,
			CampaignID:     hc.step.CampaignID,
			IDInWorkflow:   hc.node.ID,
			StepIndex:      hc.step.StepIndex + 1,
			StepType:       result.pollType,
			Status:         domain.StepStatusPending,
			ExecuteAfter:   hc.now.Add(time.Hour),
			RawResponse: map[string]any{
				"providerId":       result.rawResponse["providerId"],
				"pollingStartedAt": result.rawResponse["pollingStartedAt"],
				"nextSteps":        buildNextSteps(wf, successors),
			},
		})
	}

	for _, s := range successors {
		node, ok := graph.NodeByID(wf, s.NodeID)
		if !ok {
			continue
		}

		if err := e.deps.Steps.Create(ctx, &domain.WorkflowStep{
			ID:             uuid.NewString(),
			OrganizationID: hc.step.OrganizationID,
			LeadID:         hc.step.LeadID,
			CampaignID:     hc.step.CampaignID,
			IDInWorkflow:   node.ID,
			StepIndex:      hc.step.StepIndex + 1,
			StepType:       node.Data.Type,
			Status:         domain.StepStatusPending,
			ExecuteAfter:   hc.now.Add(s.Delay),
		}); err != nil {
			return fmt.Errorf("create successor for edge %s: %w", s.EdgeID, err)
		}
	}

	return nil
}

func buildNextSteps(wf *domain.Workflow, successors []graph.Successor) []nextStepInfo {
	out := make([]nextStepInfo, 0, len(successors))

	for _, s := range successors {
		out = append(out, nextStepInfo{
			NodeID:          s.NodeID,
			EdgeID:          s.EdgeID,
			ConditionalType: s.ConditionalType,
			DelayMs:         s.Delay.Milliseconds(),
		})
	}

	return out
}

// matchingNextStep finds the nextStepInfo whose conditionalType matches want.
func matchingNextStep(raw any, want domain.ConditionalType) (nextStepInfo, bool) {
	infos, ok := decodeNextSteps(raw)
	if !ok {
		return nextStepInfo{}, false
	}

	for _, info := range infos {
		if info.ConditionalType == want {
			return info, true
		}
	}

	return nextStepInfo{}, false
}

// decodeNextSteps accepts both the native []nextStepInfo shape produced
// in-process and the []map[string]any/[]any shape a JSON round trip
// through a durable store would yield.
func decodeNextSteps(raw any) ([]nextStepInfo, bool) {
	switch v := raw.(type) {
	case []nextStepInfo:
		return v, true
	case []any:
		out := make([]nextStepInfo, 0, len(v))

		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}

			out = append(out, nextStepInfo{
				NodeID:          stringField(m, "nodeId"),
				EdgeID:          stringField(m, "edgeId"),
				ConditionalType: domain.ConditionalType(stringField(m, "conditionalType")),
				DelayMs:         int64Field(m, "delayMs"),
			})
		}

		return out, true
	default:
		return nil, false
	}
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)

	return v
}

func int64Field(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
