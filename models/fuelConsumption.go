package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FuelConsumption is the per-BDN consumption ledger written by the daily
// reporting subsystem. This service only reads it for the consumption audit;
// rows are never created or modified here.
type FuelConsumption struct {
	ID          int             `gorm:"primary_key" json:"id"`
	FleetId     string          `gorm:"index;not null" json:"fleet_id"`
	ShipId      int             `gorm:"index:idx_fuel_consumptions_key,priority:1;not null" json:"ship_id"`
	BdnNumber   string          `gorm:"size:100;index:idx_fuel_consumptions_key,priority:2;not null" json:"bdn_number"`
	MachineryId int             `gorm:"index;not null" json:"machinery_id"`
	EntryDate   time.Time       `gorm:"index;not null" json:"entry_date"`
	ConsumedMt  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"consumed_mt"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
