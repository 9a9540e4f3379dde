package workflow

import (
	"fmt"
	"time"

	"github.com/seadatafocus/memp_backend/config"
	"github.com/seadatafocus/memp_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LedgerKey identifies one ROB chain.
type LedgerKey struct {
	ShipId         int
	BunkerCategory models.BunkerCategory
	ItemTypeKey    string
}

// DiscoverLedgerKeys lists every (ship, category, item) chain a fleet has
// written to, for full-fleet rebuilds.
func DiscoverLedgerKeys(tx *gorm.DB, fleetId string) ([]LedgerKey, error) {
	type row struct {
		ShipId         int
		BunkerCategory models.BunkerCategory
		ItemTypeKey    string
	}
	var rows []row
	if err := tx.Raw(`
		SELECT ship_id, bunker_category, item_type_key
		FROM bunker_operations
		WHERE fleet_id = ?
		GROUP BY ship_id, bunker_category, item_type_key
	`, fleetId).Scan(&rows).Error; err != nil {
		return nil, err
	}
	keys := make([]LedgerKey, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, LedgerKey{ShipId: r.ShipId, BunkerCategory: r.BunkerCategory, ItemTypeKey: r.ItemTypeKey})
	}
	return keys, nil
}

// RebuildLedgerForKey re-chains one ROB ledger from sequence 1: Initial/Final
// quantity and volume are recomputed row by row in insertion order and the
// balance row is rewritten from the resulting tail. Operator repair tool for
// after manual row surgery (e.g. an approved backdated correction); normal
// posting never needs it.
//
// Returns the number of rows whose derived values changed.
func RebuildLedgerForKey(
	tx *gorm.DB,
	logger *logrus.Logger,
	fleetId string,
	key LedgerKey,
) (int, error) {
	if tx == nil {
		return 0, fmt.Errorf("rebuild ledger: tx is nil")
	}
	if logger == nil {
		logger = config.GetLogger()
	}
	if fleetId == "" || key.ShipId <= 0 || key.ItemTypeKey == "" || !key.BunkerCategory.IsValid() {
		return 0, fmt.Errorf("rebuild ledger: invalid scope")
	}

	if err := models.AcquireLedgerPostingLock(tx, key.ShipId, key.BunkerCategory, key.ItemTypeKey); err != nil {
		return 0, err
	}
	defer models.ReleaseLedgerPostingLock(tx, key.ShipId, key.BunkerCategory, key.ItemTypeKey)

	var ops []*models.BunkerOperation
	if err := tx.Where("fleet_id = ? AND ship_id = ? AND bunker_category = ? AND item_type_key = ?",
		fleetId, key.ShipId, key.BunkerCategory, key.ItemTypeKey).
		Order("ledger_sequence ASC, id ASC").
		Find(&ops).Error; err != nil {
		return 0, err
	}

	logger.WithFields(logrus.Fields{
		"fleet_id":        fleetId,
		"ship_id":         key.ShipId,
		"bunker_category": key.BunkerCategory,
		"item_type_key":   key.ItemTypeKey,
		"row_count":       len(ops),
	}).Info("ledger.rebuild.start")

	changed := 0
	running := decimal.Zero
	for i, op := range ops {
		comp, err := models.ComputeRob(running, op.DeltaQuantityMt, op.OperationType, op.CorrectionSign, op.DensityAt15C)
		if err != nil {
			return changed, fmt.Errorf("rebuild ledger: row id=%d sequence=%d: %w", op.ID, op.LedgerSequence, err)
		}

		wantSequence := i + 1
		if op.LedgerSequence == wantSequence &&
			op.InitialQuantityMt.Equal(comp.InitialQuantityMt) &&
			op.FinalQuantityMt.Equal(comp.FinalQuantityMt) &&
			op.InitialVolumeM3.Equal(comp.InitialVolumeM3) &&
			op.FinalVolumeM3.Equal(comp.FinalVolumeM3) {
			running = comp.FinalQuantityMt
			continue
		}

		if err := tx.Model(&models.BunkerOperation{}).Where("id = ?", op.ID).Updates(map[string]interface{}{
			"ledger_sequence":     wantSequence,
			"initial_quantity_mt": comp.InitialQuantityMt,
			"final_quantity_mt":   comp.FinalQuantityMt,
			"initial_volume_m3":   comp.InitialVolumeM3,
			"final_volume_m3":     comp.FinalVolumeM3,
			"delta_volume_m3":     comp.DeltaVolumeM3,
		}).Error; err != nil {
			return changed, err
		}
		op.LedgerSequence = wantSequence
		op.FinalQuantityMt = comp.FinalQuantityMt
		op.FinalVolumeM3 = comp.FinalVolumeM3
		changed++
		running = comp.FinalQuantityMt
	}

	if len(ops) > 0 {
		tail := ops[len(ops)-1]
		balance, err := models.FirstOrCreateBunkerBalance(tx, fleetId, key.ShipId, key.BunkerCategory, key.ItemTypeKey)
		if err != nil {
			return changed, err
		}
		if err := tx.Model(&models.BunkerBalance{}).Where("id = ?", balance.ID).Updates(map[string]interface{}{
			"final_quantity_mt": tail.FinalQuantityMt,
			"final_volume_m3":   tail.FinalVolumeM3,
			"last_sequence":     tail.LedgerSequence,
			"last_operation_id": tail.ID,
		}).Error; err != nil {
			return changed, err
		}
	}

	logger.WithFields(logrus.Fields{
		"fleet_id":        fleetId,
		"ship_id":         key.ShipId,
		"bunker_category": key.BunkerCategory,
		"item_type_key":   key.ItemTypeKey,
		"rows_changed":    changed,
		"finished_at":     time.Now().UTC().Format(time.RFC3339),
	}).Info("ledger.rebuild.end")

	return changed, nil
}
