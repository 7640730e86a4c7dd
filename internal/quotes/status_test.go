package quotes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusDraft, StatusSent},
		{StatusSent, StatusViewed},
		{StatusSent, StatusAccepted},
		{StatusViewed, StatusAccepted},
		{StatusAccepted, StatusDepositPaid},
		{StatusDepositPaid, StatusBalanceDue},
		{StatusDepositPaid, StatusCompleted},
		{StatusBalanceDue, StatusFullyPaid},
		{StatusFullyPaid, StatusCompleted},
		{StatusDraft, StatusCancelled},
		{StatusBalanceDue, StatusCancelled},
		{StatusSent, StatusExpired},
		{StatusAccepted, StatusExpired},
	}
	for _, tc := range allowed {
		require.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to Status }{
		{StatusDraft, StatusAccepted},
		{StatusDraft, StatusDepositPaid},
		{StatusAccepted, StatusBalanceDue},
		{StatusAccepted, StatusFullyPaid},
		{StatusBalanceDue, StatusDepositPaid},
		{StatusFullyPaid, StatusCancelled},
		{StatusDepositPaid, StatusExpired},
	}
	for _, tc := range denied {
		require.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestTerminalStatesAreAbsorbing(t *testing.T) {
	all := []Status{
		StatusDraft, StatusSent, StatusViewed, StatusAccepted, StatusDepositPaid,
		StatusBalanceDue, StatusFullyPaid, StatusCompleted, StatusCancelled, StatusExpired,
	}
	for _, term := range []Status{StatusCompleted, StatusCancelled, StatusExpired} {
		require.True(t, IsTerminal(term))
		for _, to := range all {
			require.False(t, CanTransition(term, to), "%s must not leave terminal state", term)
		}
	}
	for _, s := range []Status{StatusDraft, StatusSent, StatusViewed, StatusAccepted, StatusDepositPaid, StatusBalanceDue, StatusFullyPaid} {
		require.False(t, IsTerminal(s))
	}
}

func TestRetailTransitions(t *testing.T) {
	require.True(t, CanTransitionRetail(RetailPending, RetailProcessing))
	require.True(t, CanTransitionRetail(RetailProcessing, RetailShipped))
	require.True(t, CanTransitionRetail(RetailShipped, RetailDelivered))
	require.True(t, CanTransitionRetail(RetailDelivered, RetailRefunded))
	require.True(t, CanTransitionRetail(RetailPending, RetailCancelled))

	require.False(t, CanTransitionRetail(RetailShipped, RetailCancelled))
	require.False(t, CanTransitionRetail(RetailDelivered, RetailShipped))
	require.False(t, CanTransitionRetail(RetailCancelled, RetailPending))
	require.False(t, CanTransitionRetail(RetailRefunded, RetailPending))
}
