package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextStatusTransitionTable(t *testing.T) {
	cases := []struct {
		from   LogbookStatus
		action WorkflowAction
		to     LogbookStatus
		ok     bool
	}{
		{StatusDraft, ActionSubmit, StatusSubmitted, true},
		{StatusRejected, ActionSubmit, StatusSubmitted, true},
		{StatusRejected, ActionResubmit, StatusSubmitted, true},
		{StatusChangesRequested, ActionResubmit, StatusSubmitted, true},
		{StatusSubmitted, ActionClaimReview, StatusUnderReview, true},
		{StatusSubmitted, ActionApprove, StatusApproved, true},
		{StatusUnderReview, ActionApprove, StatusApproved, true},
		{StatusSubmitted, ActionReject, StatusRejected, true},
		{StatusUnderReview, ActionReject, StatusRejected, true},
		{StatusSubmitted, ActionRequestChanges, StatusChangesRequested, true},
		{StatusUnderReview, ActionRequestChanges, StatusChangesRequested, true},
		{StatusApproved, ActionLock, StatusLocked, true},

		{StatusDraft, ActionApprove, StatusDraft, false},
		{StatusDraft, ActionResubmit, StatusDraft, false},
		{StatusApproved, ActionSubmit, StatusApproved, false},
		{StatusApproved, ActionApprove, StatusApproved, false},
		{StatusLocked, ActionSubmit, StatusLocked, false},
		{StatusLocked, ActionLock, StatusLocked, false},
		{StatusSubmitted, ActionLock, StatusSubmitted, false},
		{StatusChangesRequested, ActionSubmit, StatusChangesRequested, false},
	}
	for _, tc := range cases {
		next, ok := NextStatus(tc.from, tc.action)
		require.Equal(t, tc.ok, ok, "%s from %s", tc.action, tc.from)
		if tc.ok {
			require.Equal(t, tc.to, next, "%s from %s", tc.action, tc.from)
		}
	}
}

func TestNextStatusNonMutatingActions(t *testing.T) {
	for _, action := range []WorkflowAction{ActionCommentAdded, ActionUnlockRequested, ActionUnlockGranted} {
		for _, status := range []LogbookStatus{StatusDraft, StatusSubmitted, StatusUnderReview, StatusApproved, StatusLocked} {
			next, ok := NextStatus(status, action)
			require.True(t, ok)
			require.Equal(t, status, next)
		}
	}
}

func TestReplayStatusFullLifecycle(t *testing.T) {
	status, err := ReplayStatus([]WorkflowAction{
		ActionSubmit,
		ActionClaimReview,
		ActionRequestChanges,
		ActionCommentAdded,
		ActionResubmit,
		ActionApprove,
		ActionLock,
		ActionUnlockRequested,
		ActionUnlockGranted,
	})
	require.NoError(t, err)
	require.Equal(t, StatusLocked, status)
}

func TestReplayStatusIllegalSequence(t *testing.T) {
	_, err := ReplayStatus([]WorkflowAction{ActionSubmit, ActionLock})
	require.Error(t, err)
	require.Contains(t, err.Error(), "LOCK")
}

func TestReplayStatusEmptyTrail(t *testing.T) {
	status, err := ReplayStatus(nil)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, status)
}

func TestOwnerEditable(t *testing.T) {
	editable := []LogbookStatus{StatusDraft, StatusRejected, StatusChangesRequested}
	frozen := []LogbookStatus{StatusSubmitted, StatusUnderReview, StatusApproved, StatusLocked}
	for _, status := range editable {
		require.True(t, (&Logbook{Status: status}).OwnerEditable(), string(status))
	}
	for _, status := range frozen {
		require.False(t, (&Logbook{Status: status}).OwnerEditable(), string(status))
	}
}

func TestSectionTotalsRoundTrip(t *testing.T) {
	totals := SectionTotals{
		SectionA: SectionHours{WeeklyHours: 12.5, EntryCount: 4},
		SectionC: SectionHours{WeeklyHours: 1, EntryCount: 1},
	}
	value, err := totals.Value()
	require.NoError(t, err)

	var scanned SectionTotals
	require.NoError(t, scanned.Scan(value))
	require.Equal(t, totals, scanned)

	var fromNil SectionTotals
	require.NoError(t, fromNil.Scan(nil))
	require.Equal(t, SectionTotals{}, fromNil)
}
