package models_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/seadatafocus/memp_backend/config"
	"github.com/seadatafocus/memp_backend/models"
)

// The dosing reference is minted from MAX(id)+1, so a racer that commits
// between the mint and the insert produces a unique-index collision. The
// create path retries once with a fresh sequence and, if the reference is
// still taken, reports a ledger conflict instead of a raw database error.
func TestDosingReferenceCollisionSurfacesAsConflict(t *testing.T) {
	ctx, fleetId := setupLedgerTestEnv(t)
	fixture := seedFleetFixture(t, fleetId)
	bunkerB1(t, ctx, fixture.Ship.ID)

	event, err := models.CreateDosingEvent(ctx, &models.NewDosingEvent{
		ShipId:              fixture.Ship.ID,
		AdditiveTypeId:      fixture.Additive.ID,
		DosingQuantityL:     d("25"),
		FuelTypeKey:         "HFO",
		DosingDate:          "2026-03-10T08:00:00",
		TreatedMachineryIds: machineryIds(fixture),
		BdnEntries:          []models.BdnEntry{{BdnNumber: "B1", QtyBlendedMt: d("100")}},
	})
	if err != nil {
		t.Fatalf("seed dosing event: %v", err)
	}

	// Plant the reference the next create will mint. Because the planted row
	// already exists, both the first mint and the retry produce the same
	// colliding reference.
	var maxId int64
	db := config.GetDB()
	if err := db.Model(&models.DosingEvent{}).Select("COALESCE(MAX(id), 0)").Scan(&maxId).Error; err != nil {
		t.Fatalf("max id: %v", err)
	}
	planted := fmt.Sprintf("ADT-%d-%04d", fixture.Ship.ID, maxId+1)
	if err := db.Model(&models.DosingEvent{}).Where("id = ?", event.ID).
		Update("dosing_reference_id", planted).Error; err != nil {
		t.Fatalf("plant reference: %v", err)
	}

	_, err = models.CreateDosingEvent(ctx, &models.NewDosingEvent{
		ShipId:              fixture.Ship.ID,
		AdditiveTypeId:      fixture.Additive.ID,
		DosingQuantityL:     d("10"),
		FuelTypeKey:         "HFO",
		DosingDate:          "2026-03-11T08:00:00",
		TreatedMachineryIds: machineryIds(fixture),
		BdnEntries:          []models.BdnEntry{{BdnNumber: "B1", QtyBlendedMt: d("50")}},
	})
	if !errors.Is(err, models.ErrLedgerConflict) {
		t.Fatalf("expected ErrLedgerConflict, got %v", err)
	}

	// The rejected attempts must not leave partial rows behind.
	var count int64
	if err := db.Model(&models.DosingEvent{}).Where("ship_id = ?", fixture.Ship.ID).Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 dosing event, got %d", count)
	}
}
