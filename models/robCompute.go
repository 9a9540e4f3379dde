package models

import (
	"github.com/seadatafocus/memp_backend/utils"
	"github.com/shopspring/decimal"
)

// DefaultDensityKgM3 is assumed when a bunker operation does not carry a
// density reading (fresh water basis, 1000 kg/m3 makes volume == quantity).
var DefaultDensityKgM3 = decimal.NewFromInt(1000)

// RobComputation holds the server-side derived quantities for one bunker
// operation. All values are rounded to the canonical 3-decimal scale.
type RobComputation struct {
	InitialQuantityMt decimal.Decimal `json:"initial_quantity_mt"`
	FinalQuantityMt   decimal.Decimal `json:"final_quantity_mt"`
	DeltaQuantityMt   decimal.Decimal `json:"delta_quantity_mt"`
	InitialVolumeM3   decimal.Decimal `json:"initial_volume_m3"`
	FinalVolumeM3     decimal.Decimal `json:"final_volume_m3"`
	DeltaVolumeM3     decimal.Decimal `json:"delta_volume_m3"`
	DensityAt15C      decimal.Decimal `json:"density_at_15c"`
}

// ComputeRob derives Initial/Final quantity and volume for one operation from
// the prior ledger balance. Pure function, no side effects; persistence-level
// checks (BDN uniqueness, catalog existence) live in the create path.
//
// Rules:
//   - delta must be >= 0; zero is only permitted for CORRECTION
//   - a negative density is an error; zero/absent falls back to 1000 kg/m3
//   - CORRECTION requires a sign, all other types must not carry one
//   - a negative resulting final quantity is rejected, never clamped
func ComputeRob(priorFinalMt decimal.Decimal, deltaMt decimal.Decimal, opType BunkerOperationType, sign *CorrectionSign, densityKgM3 decimal.Decimal) (*RobComputation, error) {

	if !opType.IsValid() {
		return nil, validationErrorf("invalid operation type %q", string(opType))
	}
	if deltaMt.IsNegative() {
		return nil, validationErrorf("delta quantity must not be negative (got %s)", deltaMt)
	}
	if deltaMt.IsZero() && opType != OperationTypeCorrection {
		return nil, validationErrorf("delta quantity is required for %s", string(opType))
	}
	if densityKgM3.IsNegative() {
		return nil, validationErrorf("density must be positive (got %s)", densityKgM3)
	}
	if densityKgM3.IsZero() {
		densityKgM3 = DefaultDensityKgM3
	}

	if opType == OperationTypeCorrection {
		if sign == nil || !sign.IsValid() {
			return nil, validationErrorf("correction sign is required for CORRECTION")
		}
	} else if sign != nil {
		return nil, validationErrorf("correction sign is only valid for CORRECTION")
	}

	var finalMt decimal.Decimal
	switch opType {
	case OperationTypeBunker, OperationTypeLoTopup, OperationTypeInitialFill:
		finalMt = priorFinalMt.Add(deltaMt)
	case OperationTypeDebunker:
		finalMt = priorFinalMt.Sub(deltaMt)
	case OperationTypeCorrection:
		if *sign == CorrectionSignPlus {
			finalMt = priorFinalMt.Add(deltaMt)
		} else {
			finalMt = priorFinalMt.Sub(deltaMt)
		}
	case OperationTypeLoTransfer:
		// Transfer is balance-neutral at this tank; the paired debit/credit is
		// recorded on the counterpart ledger key.
		finalMt = priorFinalMt
	}

	if finalMt.IsNegative() {
		return nil, validationErrorf("operation would leave %s remaining on board (cannot remove more than is aboard)", finalMt.Round(utils.QuantityScale))
	}

	volumeFactor := densityKgM3.Div(decimal.NewFromInt(1000))

	comp := &RobComputation{
		InitialQuantityMt: utils.RoundQuantity(priorFinalMt),
		FinalQuantityMt:   utils.RoundQuantity(finalMt),
		DeltaQuantityMt:   utils.RoundQuantity(deltaMt),
		InitialVolumeM3:   utils.RoundQuantity(priorFinalMt.Div(volumeFactor)),
		FinalVolumeM3:     utils.RoundQuantity(finalMt.Div(volumeFactor)),
		DeltaVolumeM3:     utils.RoundQuantity(deltaMt.Div(volumeFactor)),
		DensityAt15C:      densityKgM3,
	}
	return comp, nil
}
