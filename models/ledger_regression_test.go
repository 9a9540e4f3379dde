package models_test

import (
	"errors"
	"testing"

	"github.com/seadatafocus/memp_backend/models"
	"github.com/shopspring/decimal"
)

// End-to-end ledger posting: BUNKER 500 HFO at 991 kg/m3, DEBUNKER 100,
// CORRECTION -50. Checks chaining, volume derivation, BDN rules and the
// balance row along the way.
func TestLedgerPostingChain(t *testing.T) {
	ctx, fleetId := setupLedgerTestEnv(t)
	fixture := seedFleetFixture(t, fleetId)

	density := d("991")
	first, err := models.CreateBunkerOperation(ctx, &models.NewBunkerOperation{
		ShipId:          fixture.Ship.ID,
		BunkerCategory:  models.BunkerCategoryFuel,
		ItemTypeKey:     "HFO",
		OperationType:   models.OperationTypeBunker,
		BdnNumber:       "B1",
		OperationDate:   "2026-03-01T10:00:00",
		TimeZoneOffset:  "+02:00",
		DeltaQuantityMt: d("500"),
		DensityAt15C:    &density,
	})
	if err != nil {
		t.Fatalf("bunker: %v", err)
	}
	if first.LedgerSequence != 1 {
		t.Fatalf("first sequence=%d", first.LedgerSequence)
	}
	if !first.InitialQuantityMt.Equal(d("0")) || !first.FinalQuantityMt.Equal(d("500")) {
		t.Fatalf("bunker initial=%s final=%s", first.InitialQuantityMt, first.FinalQuantityMt)
	}
	if !first.FinalVolumeM3.Equal(d("504.541")) {
		t.Fatalf("bunker final volume=%s", first.FinalVolumeM3)
	}

	// Reusing the BDN for another stock-creating row must be rejected.
	_, err = models.CreateBunkerOperation(ctx, &models.NewBunkerOperation{
		ShipId:          fixture.Ship.ID,
		BunkerCategory:  models.BunkerCategoryFuel,
		ItemTypeKey:     "HFO",
		OperationType:   models.OperationTypeBunker,
		BdnNumber:       "B1",
		OperationDate:   "2026-03-02T10:00:00",
		DeltaQuantityMt: d("10"),
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("duplicate BDN: expected ErrValidation, got %v", err)
	}

	second, err := models.CreateBunkerOperation(ctx, &models.NewBunkerOperation{
		ShipId:          fixture.Ship.ID,
		BunkerCategory:  models.BunkerCategoryFuel,
		ItemTypeKey:     "HFO",
		OperationType:   models.OperationTypeDebunker,
		BdnNumber:       "B1",
		OperationDate:   "2026-03-03T10:00:00",
		DeltaQuantityMt: d("100"),
		DensityAt15C:    &density,
	})
	if err != nil {
		t.Fatalf("debunker: %v", err)
	}
	if !second.InitialQuantityMt.Equal(first.FinalQuantityMt) || !second.FinalQuantityMt.Equal(d("400")) {
		t.Fatalf("debunker initial=%s final=%s", second.InitialQuantityMt, second.FinalQuantityMt)
	}

	minus := models.CorrectionSignMinus
	third, err := models.CreateBunkerOperation(ctx, &models.NewBunkerOperation{
		ShipId:          fixture.Ship.ID,
		BunkerCategory:  models.BunkerCategoryFuel,
		ItemTypeKey:     "HFO",
		OperationType:   models.OperationTypeCorrection,
		CorrectionSign:  &minus,
		BdnNumber:       "B1",
		OperationDate:   "2026-03-04T10:00:00",
		DeltaQuantityMt: d("50"),
		DensityAt15C:    &density,
	})
	if err != nil {
		t.Fatalf("correction: %v", err)
	}
	if !third.InitialQuantityMt.Equal(d("400")) || !third.FinalQuantityMt.Equal(d("350")) {
		t.Fatalf("correction initial=%s final=%s", third.InitialQuantityMt, third.FinalQuantityMt)
	}
	if third.LedgerSequence != 3 {
		t.Fatalf("correction sequence=%d", third.LedgerSequence)
	}

	// Over-debunkering is rejected and leaves the ledger tail untouched.
	_, err = models.CreateBunkerOperation(ctx, &models.NewBunkerOperation{
		ShipId:          fixture.Ship.ID,
		BunkerCategory:  models.BunkerCategoryFuel,
		ItemTypeKey:     "HFO",
		OperationType:   models.OperationTypeDebunker,
		BdnNumber:       "B1",
		OperationDate:   "2026-03-05T10:00:00",
		DeltaQuantityMt: d("999"),
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("over-debunker: expected ErrValidation, got %v", err)
	}

	lastRob, err := models.GetLastRob(ctx, fixture.Ship.ID, models.BunkerCategoryFuel, "HFO")
	if err != nil {
		t.Fatalf("GetLastRob: %v", err)
	}
	if !lastRob.FinalQuantityMt.Equal(d("350")) || lastRob.LastSequence != 3 {
		t.Fatalf("last rob=%s sequence=%d, want 350/3", lastRob.FinalQuantityMt, lastRob.LastSequence)
	}
}

func TestLedgerRejectsReferenceToUnknownBdn(t *testing.T) {
	ctx, fleetId := setupLedgerTestEnv(t)
	fixture := seedFleetFixture(t, fleetId)

	_, err := models.CreateBunkerOperation(ctx, &models.NewBunkerOperation{
		ShipId:          fixture.Ship.ID,
		BunkerCategory:  models.BunkerCategoryFuel,
		ItemTypeKey:     "HFO",
		OperationType:   models.OperationTypeDebunker,
		BdnNumber:       "NO-SUCH-BDN",
		OperationDate:   "2026-03-01T10:00:00",
		DeltaQuantityMt: d("5"),
	})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// An empty key has a zero seed, not an error.
	lastRob, err := models.GetLastRob(ctx, fixture.Ship.ID, models.BunkerCategoryFuel, "MGO")
	if err != nil {
		t.Fatalf("GetLastRob on empty key: %v", err)
	}
	if !lastRob.FinalQuantityMt.Equal(decimal.Zero) || lastRob.LastSequence != 0 {
		t.Fatalf("empty key seed=%s sequence=%d", lastRob.FinalQuantityMt, lastRob.LastSequence)
	}
}

func TestSupplementaryUpdateDoesNotTouchQuantities(t *testing.T) {
	ctx, fleetId := setupLedgerTestEnv(t)
	fixture := seedFleetFixture(t, fleetId)

	op, err := models.CreateBunkerOperation(ctx, &models.NewBunkerOperation{
		ShipId:          fixture.Ship.ID,
		BunkerCategory:  models.BunkerCategoryFuel,
		ItemTypeKey:     "HFO",
		OperationType:   models.OperationTypeBunker,
		BdnNumber:       "B-SUPP",
		OperationDate:   "2026-03-01T10:00:00",
		DeltaQuantityMt: d("120"),
	})
	if err != nil {
		t.Fatalf("bunker: %v", err)
	}

	sulphur := d("0.48")
	docRef := "bdn-scan-001.pdf"
	updated, err := models.UpdateBunkerOperationSupplementary(ctx, op.ID, &models.SupplementaryUpdate{
		SulphurPercent: &sulphur,
		DocumentRef:    &docRef,
	})
	if err != nil {
		t.Fatalf("supplementary update: %v", err)
	}
	if updated.SulphurPercent == nil || !updated.SulphurPercent.Equal(sulphur) {
		t.Fatal("sulphur percent not persisted")
	}
	if !updated.FinalQuantityMt.Equal(op.FinalQuantityMt) || updated.LedgerSequence != op.LedgerSequence {
		t.Fatal("supplementary update altered ledger quantities")
	}
}
