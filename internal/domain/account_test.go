package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/outreachflow/campaignflow/internal/domain"
)

func TestConnectedAccount_IsConnectionRequestBlocked(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	a := &domain.ConnectedAccount{}
	assert.False(t, a.IsConnectionRequestBlocked(now))

	future := now.Add(time.Hour)
	a.ConnectionRequestBlockedUntil = &future
	assert.True(t, a.IsConnectionRequestBlocked(now))

	past := now.Add(-time.Hour)
	a.ConnectionRequestBlockedUntil = &past
	assert.False(t, a.IsConnectionRequestBlocked(now))
}
