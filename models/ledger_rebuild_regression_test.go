package models_test

import (
	"testing"

	"github.com/seadatafocus/memp_backend/config"
	"github.com/seadatafocus/memp_backend/models"
	"github.com/seadatafocus/memp_backend/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Simulates operator row surgery (a delta fixed directly in the database) and
// verifies the rebuild re-derives every downstream row and the balance.
func TestLedgerRebuildAfterRowSurgery(t *testing.T) {
	ctx, fleetId := setupLedgerTestEnv(t)
	fixture := seedFleetFixture(t, fleetId)

	deltas := []string{"500", "100", "40"}
	types := []models.BunkerOperationType{
		models.OperationTypeBunker,
		models.OperationTypeDebunker,
		models.OperationTypeDebunker,
	}
	var firstId int
	for i := range deltas {
		op, err := models.CreateBunkerOperation(ctx, &models.NewBunkerOperation{
			ShipId:          fixture.Ship.ID,
			BunkerCategory:  models.BunkerCategoryFuel,
			ItemTypeKey:     "HFO",
			OperationType:   types[i],
			BdnNumber:       "B1",
			OperationDate:   "2026-03-0" + string(rune('1'+i)) + "T10:00:00",
			DeltaQuantityMt: d(deltas[i]),
		})
		if err != nil {
			t.Fatalf("post %d: %v", i, err)
		}
		if i == 0 {
			firstId = op.ID
		}
	}

	db := config.GetDB()
	// The delivered quantity on the first row was recorded wrong; ops fix the
	// delta directly and re-chain.
	if err := db.Model(&models.BunkerOperation{}).Where("id = ?", firstId).
		Update("delta_quantity_mt", d("480")).Error; err != nil {
		t.Fatalf("row surgery: %v", err)
	}

	key := workflow.LedgerKey{
		ShipId:         fixture.Ship.ID,
		BunkerCategory: models.BunkerCategoryFuel,
		ItemTypeKey:    "HFO",
	}
	if err := db.Transaction(func(tx *gorm.DB) error {
		_, err := workflow.RebuildLedgerForKey(tx, logrus.New(), fleetId, key)
		return err
	}); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	lastRob, err := models.GetLastRob(ctx, fixture.Ship.ID, models.BunkerCategoryFuel, "HFO")
	if err != nil {
		t.Fatalf("GetLastRob: %v", err)
	}
	// 480 - 100 - 40
	if !lastRob.FinalQuantityMt.Equal(d("340")) {
		t.Fatalf("rebuilt balance=%s, want 340", lastRob.FinalQuantityMt)
	}

	ops, err := models.ListBunkerOperations(ctx, fixture.Ship.ID, models.BunkerCategoryFuel, "HFO", 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i := len(ops) - 1; i > 0; i-- {
		// newest first; each row's Initial must equal the next-older Final
		if !ops[i-1].InitialQuantityMt.Equal(ops[i].FinalQuantityMt) {
			t.Fatalf("chain broken at sequence %d: initial=%s prior final=%s",
				ops[i-1].LedgerSequence, ops[i-1].InitialQuantityMt, ops[i].FinalQuantityMt)
		}
	}
}
