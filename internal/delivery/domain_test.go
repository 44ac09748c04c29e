package delivery

import (
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/stocklane-erp/stocklane/testing"
)

func TestStatusLifecycle(t *testing.T) {
	require.Equal(t, StatusInTransit, StatusPending.next())
	require.Equal(t, StatusDelivered, StatusInTransit.next())
	require.Equal(t, Status(""), StatusDelivered.next())
	require.Equal(t, Status(""), Status("BOGUS").next())
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusInTransit, StatusDelivered} {
		require.True(t, s.Valid(), string(s))
	}
	require.False(t, Status("SHIPPED").Valid())
	require.False(t, Status("").Valid())
}
