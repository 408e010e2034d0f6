package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/outreachflow/campaignflow/internal/domain"
)

func TestCampaign_EffectiveLeadsPerDay_DefaultsWhenUnset(t *testing.T) {
	c := &domain.Campaign{}
	assert.Equal(t, domain.DefaultLeadsPerDay, c.EffectiveLeadsPerDay())

	c.LeadsPerDay = 25
	assert.Equal(t, 25, c.EffectiveLeadsPerDay())
}

func TestCounterUpdate_Merge_OtherTakesPrecedence(t *testing.T) {
	day := 3
	otherDay := 4
	reset := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	base := domain.CounterUpdate{RequestsSentThisDay: &day}
	other := domain.CounterUpdate{RequestsSentThisDay: &otherDay, LastDailyRequestsReset: &reset}

	merged := base.Merge(other)

	assert.Equal(t, &otherDay, merged.RequestsSentThisDay)
	assert.Equal(t, &reset, merged.LastDailyRequestsReset)
}

func TestCounterUpdate_IsEmpty(t *testing.T) {
	assert.True(t, domain.CounterUpdate{}.IsEmpty())

	day := 1
	assert.False(t, domain.CounterUpdate{RequestsSentThisDay: &day}.IsEmpty())
}
