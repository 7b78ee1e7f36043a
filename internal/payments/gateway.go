package payments

import (
	"context"
	"sync"

	"github.com/seoulmarket/marketplace-backend/pkg/logger"
)

// Gateway is the external payment provider. Cancel reverses an authorized
// charge; callers do not retry on error.
type Gateway interface {
	Cancel(ctx context.Context, paymentKey, reason string) error
}

// CancelCall records one Cancel invocation.
type CancelCall struct {
	PaymentKey string
	Reason     string
}

// SimulatedGateway accepts every cancellation unless FailWith installed an error.
type SimulatedGateway struct {
	mu    sync.Mutex
	calls []CancelCall
	err   error
	logg  *logger.Logger
}

func NewSimulatedGateway(logg *logger.Logger) *SimulatedGateway {
	return &SimulatedGateway{logg: logg}
}

// FailWith makes subsequent Cancel calls return err. A nil err restores success.
func (g *SimulatedGateway) FailWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

func (g *SimulatedGateway) Cancel(ctx context.Context, paymentKey, reason string) error {
	g.mu.Lock()
	g.calls = append(g.calls, CancelCall{PaymentKey: paymentKey, Reason: reason})
	err := g.err
	g.mu.Unlock()

	if g.logg != nil {
		logCtx := g.logg.WithFields(ctx, map[string]any{"payment_key": paymentKey, "reason": reason})
		g.logg.Info(logCtx, "simulated gateway cancel")
	}
	return err
}

// Calls returns a copy of the recorded cancellations.
func (g *SimulatedGateway) Calls() []CancelCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]CancelCall, len(g.calls))
	copy(out, g.calls)
	return out
}
