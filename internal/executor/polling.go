package executor

import (
	"time"

	"github.com/outreachflow/campaignflow/internal/domain"
)

// handleCheckConnectionStatus asks the provider whether the invitation
// sent earlier has been accepted, and decides whether the lead's
// polling wait should continue, time out, or resolve (spec §4.4).
func (e *Executor) handleCheckConnectionStatus(hc *handlerCtx) (execResult, error) {
	raw := hc.step.RawResponse

	providerID := stringField(raw, "providerId")

	isConnected, err := e.deps.Provider.IsConnected(hc.ctx, hc.sender, providerID)
	if err != nil {
		return execResult{}, err
	}

	return e.resolvePoll(hc, raw, isConnected, false)
}

// handleCheckMessageReply resolves purely from raw_response.hasReplied,
// which is written by the inbound reply webhook; the poller never asks
// the provider directly for this kind (spec §4.4).
func (e *Executor) handleCheckMessageReply(hc *handlerCtx) (execResult, error) {
	raw := hc.step.RawResponse

	hasReplied, _ := raw["hasReplied"].(bool)

	return e.resolvePoll(hc, raw, false, hasReplied)
}

func (e *Executor) resolvePoll(hc *handlerCtx, raw map[string]any, isConnected, hasReplied bool) (execResult, error) {
	pollingStartedAt := unixField(raw, "pollingStartedAt")
	timeoutMs := timeoutFromNextSteps(raw["nextSteps"])

	elapsed := hc.now.Sub(pollingStartedAt)
	hasTimedOut := elapsed > time.Duration(timeoutMs)*time.Millisecond

	shouldContinuePolling := !isConnected && !hasReplied && !hasTimedOut

	return execResult{
		rawResponse: map[string]any{
			"isConnected":           isConnected,
			"hasReplied":            hasReplied,
			"providerId":            raw["providerId"],
			"nextSteps":             raw["nextSteps"],
			"pollingStartedAt":      raw["pollingStartedAt"],
			"shouldContinuePolling": shouldContinuePolling,
			"hasTimedOut":           hasTimedOut,
		},
	}, nil
}

// timeoutFromNextSteps reads the accepted branch's delay as the polling
// timeout window; 0 when absent.
func timeoutFromNextSteps(raw any) int64 {
	infos, ok := decodeNextSteps(raw)
	if !ok {
		return 0
	}

	for _, info := range infos {
		if info.ConditionalType == domain.ConditionalAccepted {
			return info.DelayMs
		}
	}

	return 0
}

func unixField(m map[string]any, key string) time.Time {
	switch v := m[key].(type) {
	case time.Time:
		return v
	case int64:
		return time.Unix(v, 0)
	case float64:
		return time.Unix(int64(v), 0)
	default:
		return time.Time{}
	}
}
