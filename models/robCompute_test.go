package models_test

import (
	"errors"
	"testing"

	"github.com/seadatafocus/memp_backend/models"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func sign(s models.CorrectionSign) *models.CorrectionSign {
	return &s
}

// HFO 500 MT at density 991 kg/m3 on an empty tank, then debunker 100, then a
// negative correction of 50. Each row's Initial must equal the prior Final.
func TestComputeRobChaining(t *testing.T) {
	density := d("991")

	first, err := models.ComputeRob(decimal.Zero, d("500"), models.OperationTypeBunker, nil, density)
	if err != nil {
		t.Fatalf("bunker: %v", err)
	}
	if !first.InitialQuantityMt.Equal(d("0")) || !first.FinalQuantityMt.Equal(d("500")) {
		t.Fatalf("bunker: initial=%s final=%s", first.InitialQuantityMt, first.FinalQuantityMt)
	}
	if !first.FinalVolumeM3.Equal(d("504.541")) {
		t.Fatalf("bunker: final volume=%s, want 504.541", first.FinalVolumeM3)
	}

	second, err := models.ComputeRob(first.FinalQuantityMt, d("100"), models.OperationTypeDebunker, nil, density)
	if err != nil {
		t.Fatalf("debunker: %v", err)
	}
	if !second.InitialQuantityMt.Equal(first.FinalQuantityMt) {
		t.Fatalf("debunker initial=%s, want prior final %s", second.InitialQuantityMt, first.FinalQuantityMt)
	}
	if !second.FinalQuantityMt.Equal(d("400")) {
		t.Fatalf("debunker final=%s, want 400", second.FinalQuantityMt)
	}

	third, err := models.ComputeRob(second.FinalQuantityMt, d("50"), models.OperationTypeCorrection, sign(models.CorrectionSignMinus), density)
	if err != nil {
		t.Fatalf("correction: %v", err)
	}
	if !third.InitialQuantityMt.Equal(d("400")) || !third.FinalQuantityMt.Equal(d("350")) {
		t.Fatalf("correction: initial=%s final=%s, want 400/350", third.InitialQuantityMt, third.FinalQuantityMt)
	}
}

// Volume = Quantity / (Density/1000) must hold for Initial, Final and Delta
// simultaneously, at 3-decimal rounding.
func TestComputeRobVolumeConsistency(t *testing.T) {
	density := d("983.2")
	comp, err := models.ComputeRob(d("123.456"), d("78.9"), models.OperationTypeBunker, nil, density)
	if err != nil {
		t.Fatal(err)
	}

	factor := density.Div(d("1000"))
	cases := []struct {
		name   string
		qty    decimal.Decimal
		volume decimal.Decimal
	}{
		{"initial", comp.InitialQuantityMt, comp.InitialVolumeM3},
		{"final", comp.FinalQuantityMt, comp.FinalVolumeM3},
		{"delta", comp.DeltaQuantityMt, comp.DeltaVolumeM3},
	}
	for _, tc := range cases {
		want := tc.qty.Div(factor).Round(3)
		if !tc.volume.Equal(want) {
			t.Errorf("%s: volume=%s, want %s", tc.name, tc.volume, want)
		}
	}
}

func TestComputeRobDefaultDensity(t *testing.T) {
	comp, err := models.ComputeRob(decimal.Zero, d("250"), models.OperationTypeInitialFill, nil, decimal.Zero)
	if err != nil {
		t.Fatal(err)
	}
	// 1000 kg/m3 makes volume numerically equal to quantity.
	if !comp.FinalVolumeM3.Equal(comp.FinalQuantityMt) {
		t.Fatalf("default density: volume=%s quantity=%s", comp.FinalVolumeM3, comp.FinalQuantityMt)
	}
	if !comp.DensityAt15C.Equal(d("1000")) {
		t.Fatalf("default density recorded as %s", comp.DensityAt15C)
	}
}

func TestComputeRobLoTransferIsBalanceNeutral(t *testing.T) {
	comp, err := models.ComputeRob(d("80"), d("20"), models.OperationTypeLoTransfer, nil, d("920"))
	if err != nil {
		t.Fatal(err)
	}
	if !comp.FinalQuantityMt.Equal(d("80")) {
		t.Fatalf("transfer final=%s, want unchanged 80", comp.FinalQuantityMt)
	}
}

func TestComputeRobValidation(t *testing.T) {
	cases := []struct {
		name    string
		prior   decimal.Decimal
		delta   decimal.Decimal
		opType  models.BunkerOperationType
		sign    *models.CorrectionSign
		density decimal.Decimal
	}{
		{"negative delta", d("100"), d("-1"), models.OperationTypeBunker, nil, d("991")},
		{"zero delta non-correction", d("100"), decimal.Zero, models.OperationTypeBunker, nil, d("991")},
		{"negative density", d("100"), d("10"), models.OperationTypeBunker, nil, d("-5")},
		{"correction without sign", d("100"), d("10"), models.OperationTypeCorrection, nil, d("991")},
		{"sign on non-correction", d("100"), d("10"), models.OperationTypeBunker, sign(models.CorrectionSignPlus), d("991")},
		{"debunker below zero", d("100"), d("150"), models.OperationTypeDebunker, nil, d("991")},
		{"negative correction below zero", d("40"), d("50"), models.OperationTypeCorrection, sign(models.CorrectionSignMinus), d("991")},
		{"unknown operation type", d("100"), d("10"), models.BunkerOperationType("REFUEL"), nil, d("991")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := models.ComputeRob(tc.prior, tc.delta, tc.opType, tc.sign, tc.density)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, models.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

// Zero delta is legal for CORRECTION only; the balance is restated unchanged.
func TestComputeRobZeroCorrection(t *testing.T) {
	comp, err := models.ComputeRob(d("75"), decimal.Zero, models.OperationTypeCorrection, sign(models.CorrectionSignPlus), d("991"))
	if err != nil {
		t.Fatal(err)
	}
	if !comp.FinalQuantityMt.Equal(d("75")) {
		t.Fatalf("zero correction final=%s, want 75", comp.FinalQuantityMt)
	}
}
