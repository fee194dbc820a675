package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/config"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/errors"
)

// Card is the payment instrument supplied with a charge request.
type Card struct {
	Number string `json:"number"`
	CVV    string `json:"cvv"`
}

// Authorization is a successful gateway response.
type Authorization struct {
	Ref       string
	MaskedPan string
}

// Gateway authorizes card charges. The production build talks to a processor;
// this service ships with a deterministic simulator.
type Gateway interface {
	Authorize(ctx context.Context, card Card, amount decimal.Decimal) (*Authorization, error)
}

// declineCents is the deterministic decline hook: any charge whose fractional
// cents equal .13 is refused, which gives tests a way to force a decline.
var declineCents = decimal.RequireFromString("0.13")

type simulatedGateway struct {
	latency time.Duration
	timeout time.Duration
}

// NewSimulatedGateway builds the stand-in gateway with the configured latency
// and timeout. A timeout is reported as a decline, never as indeterminate.
func NewSimulatedGateway(cfg config.GatewayConfig) Gateway {
	return &simulatedGateway{latency: cfg.Latency, timeout: cfg.Timeout}
}

func (g *simulatedGateway) Authorize(ctx context.Context, card Card, amount decimal.Decimal) (*Authorization, error) {
	if len(strings.TrimSpace(card.CVV)) < 3 {
		return nil, errors.New(errors.CodeDeclined, "Mock decline")
	}
	if amount.Mod(decimal.New(1, 0)).Equal(declineCents) {
		return nil, errors.New(errors.CodeDeclined, "Mock decline")
	}

	if g.latency > 0 {
		wait := g.latency
		if g.timeout > 0 && wait > g.timeout {
			return nil, errors.New(errors.CodeDeclined, "gateway timed out")
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(errors.CodeDeclined, ctx.Err(), "gateway timed out")
		case <-timer.C:
		}
	}

	return &Authorization{
		Ref:       fmt.Sprintf("sim-%s", uuid.NewString()),
		MaskedPan: MaskPan(card.Number),
	}, nil
}

// MaskPan reduces a card number to its last four digits for storage.
func MaskPan(number string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if len(digits) < 4 {
		return "****"
	}
	return "****" + digits[len(digits)-4:]
}
