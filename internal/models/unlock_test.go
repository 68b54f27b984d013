package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUnlockRequestExpiry(t *testing.T) {
	grantedAt := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	duration := 60
	request := UnlockRequest{
		GrantedAt:       &grantedAt,
		DurationMinutes: &duration,
	}

	exp := request.ExpiresAt()
	require.NotNil(t, exp)
	require.Equal(t, grantedAt.Add(time.Hour), *exp)

	require.True(t, request.ActiveAt(grantedAt.Add(59*time.Minute)))
	require.False(t, request.ActiveAt(grantedAt.Add(time.Hour)))
	require.False(t, request.ActiveAt(grantedAt.Add(2*time.Hour)))
}

func TestUnlockRequestOutstanding(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	pending := UnlockRequest{}
	require.True(t, pending.Pending())
	require.Nil(t, pending.ExpiresAt())
	require.True(t, pending.OutstandingAt(now))

	grantedAt := now.Add(-30 * time.Minute)
	duration := 60
	active := UnlockRequest{GrantedAt: &grantedAt, DurationMinutes: &duration}
	require.False(t, active.Pending())
	require.True(t, active.OutstandingAt(now))

	expiredAt := now.Add(-2 * time.Hour)
	expired := UnlockRequest{GrantedAt: &expiredAt, DurationMinutes: &duration}
	require.False(t, expired.OutstandingAt(now))
}
