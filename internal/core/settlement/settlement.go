// Package settlement abstracts the external payment rails (card network,
// bank transfer, Lightning node) behind a single authorize call. The
// orchestrator only cares about three outcomes: authorized, declined, or
// timed out.
package settlement

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ibrahimkeyboad/billpay/internal/core/domain"
)

// AuthRequest carries what the rail needs to move the funds.
type AuthRequest struct {
	UserID uuid.UUID
	BillID uuid.UUID
	Amount decimal.Decimal
	Method domain.PaymentMethod
}

// Auth is a successful authorization.
type Auth struct {
	Reference    string
	AuthorizedAt time.Time
}

// Gateway is implemented by the production network adapter and by test
// fakes. Authorize returns domain.ErrSettlementDeclined when the rail
// rejects the payment and domain.ErrSettlementTimeout when it does not
// answer before ctx expires.
type Gateway interface {
	Authorize(ctx context.Context, req AuthRequest) (Auth, error)
}

// NetworkGateway simulates the settlement rails. Latency delays every
// authorization; Decide, when set, gets the final say (return nil to
// approve, domain.ErrSettlementDeclined to reject).
type NetworkGateway struct {
	Latency time.Duration
	Decide  func(AuthRequest) error
}

func NewNetworkGateway(latency time.Duration) *NetworkGateway {
	return &NetworkGateway{Latency: latency}
}

func (g *NetworkGateway) Authorize(ctx context.Context, req AuthRequest) (Auth, error) {
	if g.Latency > 0 {
		timer := time.NewTimer(g.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Auth{}, domain.ErrSettlementTimeout
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return Auth{}, domain.ErrSettlementTimeout
	}

	if g.Decide != nil {
		if err := g.Decide(req); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return Auth{}, domain.ErrSettlementTimeout
			}
			return Auth{}, err
		}
	}

	raw := make([]byte, 8)
	if _, err := rand.Read(raw); err != nil {
		return Auth{}, err
	}
	return Auth{
		Reference:    "auth_" + hex.EncodeToString(raw),
		AuthorizedAt: time.Now().UTC(),
	}, nil
}
