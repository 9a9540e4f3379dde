package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BunkerBalance is the denormalized "current ROB" row per ledger key
// (ship, category, item type). It is only ever written inside the same
// transaction as the ledger insert, after taking a row lock, so it can never
// drift from the append-only bunker_operations chain.
type BunkerBalance struct {
	ID              int             `gorm:"primary_key" json:"id"`
	FleetId         string          `gorm:"index;not null" json:"fleet_id"`
	ShipId          int             `gorm:"uniqueIndex:uniq_bunker_balance_key,priority:1;not null" json:"ship_id"`
	BunkerCategory  BunkerCategory  `gorm:"type:enum('FUEL','LUBE_OIL');default:FUEL;uniqueIndex:uniq_bunker_balance_key,priority:2" json:"bunker_category"`
	ItemTypeKey     string          `gorm:"size:50;uniqueIndex:uniq_bunker_balance_key,priority:3;not null" json:"item_type_key"`
	FinalQuantityMt decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"final_quantity_mt"`
	FinalVolumeM3   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"final_volume_m3"`
	LastSequence    int             `gorm:"default:0" json:"last_sequence"`
	LastOperationId int             `gorm:"default:0" json:"last_operation_id"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// FirstOrCreateBunkerBalance fetches the balance row for a ledger key under a
// row lock, creating it (zero balance) when the key has never been written.
// Must be called inside the posting transaction.
func FirstOrCreateBunkerBalance(tx *gorm.DB, fleetId string, shipId int, category BunkerCategory, itemTypeKey string) (*BunkerBalance, error) {
	balance := BunkerBalance{
		FleetId:        fleetId,
		ShipId:         shipId,
		BunkerCategory: category,
		ItemTypeKey:    itemTypeKey,
	}
	result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("fleet_id = ? AND ship_id = ? AND bunker_category = ? AND item_type_key = ?",
			fleetId, shipId, category, itemTypeKey).
		FirstOrCreate(&balance)
	if result.Error != nil {
		return nil, result.Error
	}
	return &balance, nil
}

func updateBunkerBalance(tx *gorm.DB, balanceId int, op *BunkerOperation) error {
	return tx.Model(&BunkerBalance{}).Where("id = ?", balanceId).Updates(map[string]interface{}{
		"final_quantity_mt": op.FinalQuantityMt,
		"final_volume_m3":   op.FinalVolumeM3,
		"last_sequence":     op.LedgerSequence,
		"last_operation_id": op.ID,
	}).Error
}
