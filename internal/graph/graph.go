// Package graph implements the campaign workflow engine's graph
// navigator: pure functions over a workflow document's nodes and edges
// that resolve the entry node and classify a node's outgoing edges. It
// holds no traversal state — callers walk the graph one hop at a time.
package graph

import (
	"time"

	"github.com/outreachflow/campaignflow/internal/clock"
	"github.com/outreachflow/campaignflow/internal/domain"
)

// Successor is one outgoing-edge resolution from Outgoing:
// the target node, the edge that reaches it, its delay, and (if
// conditional) which branch it represents.
type Successor struct {
	EdgeID          string
	NodeID          string
	IsConditional   bool
	ConditionalType domain.ConditionalType
	Delay           time.Duration
}

// retained filters out addStep placeholder nodes (spec §3) and returns
// the surviving nodes plus a lookup set of their IDs.
func retained(nodes []domain.WorkflowNode) ([]domain.WorkflowNode, map[string]bool) {
	ids := make(map[string]bool, len(nodes))
	out := make([]domain.WorkflowNode, 0, len(nodes))

	for _, n := range nodes {
		if n.IsPlaceholder() {
			continue
		}

		out = append(out, n)
		ids[n.ID] = true
	}

	return out, ids
}

// EntryNode resolves the workflow's starting node: the retained node
// with zero incoming edges (counting only edges between retained
// nodes), first by node order on ties, falling back to the first
// retained node if every node has an incoming edge.
func EntryNode(wf *domain.Workflow) (*domain.WorkflowNode, bool) {
	nodes, ids := retained(wf.Nodes)
	if len(nodes) == 0 {
		return nil, false
	}

	incoming := make(map[string]int, len(nodes))
	for _, n := range nodes {
		incoming[n.ID] = 0
	}

	for _, e := range wf.Edges {
		if ids[e.Source] && ids[e.Target] {
			incoming[e.Target]++
		}
	}

	for i := range nodes {
		if incoming[nodes[i].ID] == 0 {
			return &nodes[i], true
		}
	}

	return &nodes[0], true
}

// Outgoing resolves all edges leaving nodeID whose target is a retained
// node, classifying each as unconditional or accepted/not_accepted.
func Outgoing(wf *domain.Workflow, nodeID string) []Successor {
	_, ids := retained(wf.Nodes)

	out := make([]Successor, 0)

	for _, e := range wf.Edges {
		if e.Source != nodeID || !ids[e.Target] {
			continue
		}

		s := Successor{
			EdgeID: e.ID,
			NodeID: e.Target,
		}

		delay, err := clock.ResolveDelay(e.Data.DelayData)
		if err == nil {
			s.Delay = delay
		}

		if e.Data.IsConditionalPath {
			s.IsConditional = true

			if e.Data.IsPositive {
				s.ConditionalType = domain.ConditionalAccepted
			} else {
				s.ConditionalType = domain.ConditionalNotAccepted
			}
		}

		out = append(out, s)
	}

	return out
}

// NodeByID finds a retained node by ID.
func NodeByID(wf *domain.Workflow, id string) (*domain.WorkflowNode, bool) {
	for i := range wf.Nodes {
		if wf.Nodes[i].ID == id && !wf.Nodes[i].IsPlaceholder() {
			return &wf.Nodes[i], true
		}
	}

	return nil, false
}

// MatchConditional returns the first successor of the given conditional
// type, or false if the branch does not exist.
func MatchConditional(successors []Successor, want domain.ConditionalType) (Successor, bool) {
	for _, s := range successors {
		if s.IsConditional && s.ConditionalType == want {
			return s, true
		}
	}

	return Successor{}, false
}

