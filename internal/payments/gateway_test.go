package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seoulmarket/marketplace-backend/internal/testutil"
)

func TestSimulatedGatewayRecordsCalls(t *testing.T) {
	gw := NewSimulatedGateway(testutil.Logger())

	require.NoError(t, gw.Cancel(context.Background(), "pk_1", "OUT_OF_STOCK"))
	calls := gw.Calls()
	require.Equal(t, []CancelCall{{PaymentKey: "pk_1", Reason: "OUT_OF_STOCK"}}, calls)

	calls[0].PaymentKey = "mutated"
	require.Equal(t, "pk_1", gw.Calls()[0].PaymentKey)
}

func TestSimulatedGatewayFailure(t *testing.T) {
	gw := NewSimulatedGateway(nil)
	gw.FailWith(errors.New("boom"))

	require.EqualError(t, gw.Cancel(context.Background(), "pk_2", "VARIANT_NOT_FOUND"), "boom")
	require.Len(t, gw.Calls(), 1)
}
