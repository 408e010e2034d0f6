package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outreachflow/campaignflow/internal/domain"
	"github.com/outreachflow/campaignflow/internal/graph"
)

func simpleWorkflow() *domain.Workflow {
	return &domain.Workflow{
		Nodes: []domain.WorkflowNode{
			{ID: "a", Type: domain.ActionSendConnectionRequest},
			{ID: "b", Type: domain.ActionSendFollowup},
			{ID: "c", Type: domain.ActionWithdrawRequest},
			{ID: "ph", Type: domain.ActionAddStep},
		},
		Edges: []domain.WorkflowEdge{
			{
				ID: "e1", Source: "a", Target: "b",
				Data: domain.WorkflowEdgeData{
					IsConditionalPath: true, IsPositive: true,
					DelayData: &domain.DelayData{Delay: "2", Unit: domain.DelayUnitDays},
				},
			},
			{
				ID: "e2", Source: "a", Target: "c",
				Data: domain.WorkflowEdgeData{
					IsConditionalPath: true, IsPositive: false,
					DelayData: &domain.DelayData{Delay: "2", Unit: domain.DelayUnitDays},
				},
			},
			{ID: "e3", Source: "ph", Target: "a"},
		},
	}
}

func TestEntryNode_ResolvesZeroIncoming(t *testing.T) {
	wf := simpleWorkflow()

	entry, ok := graph.EntryNode(wf)

	require.True(t, ok)
	assert.Equal(t, "a", entry.ID)
}

func TestOutgoing_ClassifiesConditionalBranches(t *testing.T) {
	wf := simpleWorkflow()

	successors := graph.Outgoing(wf, "a")

	require.Len(t, successors, 2)

	accepted, ok := graph.MatchConditional(successors, domain.ConditionalAccepted)
	require.True(t, ok)
	assert.Equal(t, "b", accepted.NodeID)

	notAccepted, ok := graph.MatchConditional(successors, domain.ConditionalNotAccepted)
	require.True(t, ok)
	assert.Equal(t, "c", notAccepted.NodeID)
}

func TestEntryNode_FallsBackToFirstNodeWhenAllHaveIncoming(t *testing.T) {
	wf := &domain.Workflow{
		Nodes: []domain.WorkflowNode{
			{ID: "x", Type: domain.ActionProfileVisit},
			{ID: "y", Type: domain.ActionSendFollowup},
		},
		Edges: []domain.WorkflowEdge{
			{ID: "e1", Source: "x", Target: "y"},
			{ID: "e2", Source: "y", Target: "x"},
		},
	}

	entry, ok := graph.EntryNode(wf)

	require.True(t, ok)
	assert.Equal(t, "x", entry.ID)
}
