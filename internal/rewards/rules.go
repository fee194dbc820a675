package rewards

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/config"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/enums"
)

// Rates carries the per-kg reward and charge rates. Injected from config so
// they stay testable instead of living as package globals.
type Rates struct {
	StarPointsPerKg decimal.Decimal
	ChargePerKg     decimal.Decimal
}

// RatesFromConfig lifts the configured reward rates into the engine's input.
func RatesFromConfig(cfg config.RewardsConfig) Rates {
	return Rates{
		StarPointsPerKg: cfg.StarPointsPerKg,
		ChargePerKg:     cfg.ChargePerKg,
	}
}

// Result is the reward-or-charge outcome of one collection event. Exactly one
// of StarPoints/Charge is nonzero for a countable event; both are zero when
// the pickup did not happen or the weight is not positive.
type Result struct {
	StarPoints int
	Charge     decimal.Decimal
}

// Compute maps a collection's weight and waste type to its reward or charge.
// Recyclable waste earns round(weight * star rate) points and no charge;
// non-recyclable waste earns no points and a charge of weight * charge rate
// rounded to cents. A non-positive weight or a not_collected status zeroes
// both outputs regardless of type.
func Compute(rates Rates, weightKg decimal.Decimal, wasteType enums.WasteType, status enums.CollectionStatus) (Result, error) {
	if !wasteType.IsValid() {
		return Result{}, fmt.Errorf("invalid waste type %q", wasteType)
	}
	if !status.IsValid() {
		return Result{}, fmt.Errorf("invalid collection status %q", status)
	}

	zero := Result{Charge: decimal.Zero}
	if status == enums.CollectionStatusNotCollected {
		return zero, nil
	}
	if !weightKg.IsPositive() {
		return zero, nil
	}

	switch wasteType {
	case enums.WasteTypeRecyclable:
		points := weightKg.Mul(rates.StarPointsPerKg).Round(0)
		return Result{StarPoints: int(points.IntPart()), Charge: decimal.Zero}, nil
	default:
		charge := weightKg.Mul(rates.ChargePerKg).Round(2)
		return Result{StarPoints: 0, Charge: charge}, nil
	}
}
