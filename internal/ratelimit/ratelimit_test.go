package ratelimit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outreachflow/campaignflow/internal/domain"
	"github.com/outreachflow/campaignflow/internal/ratelimit"
)

func TestController_Check_UnderCap(t *testing.T) {
	c := ratelimit.NewController(60, 200, time.UTC)

	now := time.Date(2026, 8, 6, 9, 0, 0, 0, time.UTC)
	campaign := &domain.Campaign{
		RequestsSentThisDay:     10,
		RequestsSentThisWeek:    30,
		LastDailyRequestsReset:  now,
		LastWeeklyRequestsReset: now,
	}

	result := c.Check(campaign, now)

	assert.True(t, result.CanProceed)
	assert.True(t, result.Update.IsEmpty())
}

func TestController_Check_DailyLimitDeferral(t *testing.T) {
	c := ratelimit.NewController(1, 200, time.UTC)

	now := time.Date(2026, 8, 6, 9, 0, 0, 0, time.UTC)
	campaign := &domain.Campaign{
		RequestsSentThisDay:     1,
		RequestsSentThisWeek:    1,
		LastDailyRequestsReset:  now,
		LastWeeklyRequestsReset: now,
	}

	result := c.Check(campaign, now)

	require.False(t, result.CanProceed)
	expected := time.Date(2026, 8, 7, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, expected, result.WaitUntil)
}

func TestController_Check_DayBoundaryResetsCounter(t *testing.T) {
	c := ratelimit.NewController(1, 200, time.UTC)

	yesterday := time.Date(2026, 8, 5, 23, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 6, 1, 0, 0, 0, time.UTC)

	campaign := &domain.Campaign{
		RequestsSentThisDay:     1,
		RequestsSentThisWeek:    1,
		LastDailyRequestsReset:  yesterday,
		LastWeeklyRequestsReset: yesterday,
	}

	result := c.Check(campaign, now)

	assert.True(t, result.CanProceed)
	require.NotNil(t, result.Update.RequestsSentThisDay)
	assert.Equal(t, 0, *result.Update.RequestsSentThisDay)
	assert.Equal(t, 0, result.RequestsSentThisDay)
}

func TestController_Check_WeekBoundaryIsISOMondayUTC(t *testing.T) {
	c := ratelimit.NewController(60, 1, time.UTC)

	// 2026-08-03 is a Monday.
	lastWeek := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 3, 1, 0, 0, 0, time.UTC)

	campaign := &domain.Campaign{
		RequestsSentThisWeek:    1,
		LastDailyRequestsReset:  now,
		LastWeeklyRequestsReset: lastWeek,
	}

	result := c.Check(campaign, now)

	assert.True(t, result.CanProceed)
	require.NotNil(t, result.Update.RequestsSentThisWeek)
	assert.Equal(t, 0, *result.Update.RequestsSentThisWeek)
}

func TestCounterUpdate_MergeKeepsResetAlongsideIncrement(t *testing.T) {
	resetDay := 0
	inc := 1

	resetPatch := domain.CounterUpdate{RequestsSentThisDay: &resetDay}
	incrementPatch := domain.CounterUpdate{RequestsSentThisDay: &inc}

	merged := resetPatch.Merge(incrementPatch)

	require.NotNil(t, merged.RequestsSentThisDay)
	assert.Equal(t, 1, *merged.RequestsSentThisDay)
}
