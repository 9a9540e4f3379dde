package models

import (
	"context"
	"sort"
	"time"

	"github.com/seadatafocus/memp_backend/config"
	"github.com/seadatafocus/memp_backend/utils"
	"github.com/shopspring/decimal"
)

// ConsumptionAuditRow is one line of the derived audit trail: how much of a
// dosing event's blended quantity one machinery has burned from one BDN.
type ConsumptionAuditRow struct {
	EntryDate       time.Time       `json:"entry_date"`
	BdnNumber       string          `json:"bdn_number"`
	MachineryId     int             `json:"machinery_id"`
	MachineryName   string          `json:"machinery_name"`
	InitialQuantity decimal.Decimal `json:"initial_quantity"`
	ConsumedMt      decimal.Decimal `json:"consumed_mt"`
	FinalQuantity   decimal.Decimal `json:"final_quantity"`
}

// ConsumptionEntry is the slice of the fuel-consumption ledger the audit
// chains over, with the machinery name already resolved.
type ConsumptionEntry struct {
	ID            int
	BdnNumber     string
	MachineryId   int
	MachineryName string
	EntryDate     time.Time
	ConsumedMt    decimal.Decimal
}

// BuildConsumptionAudit chains consumption entries against a dosing event's
// allocations. Per (BDN, machinery) the first row opens at the allocated
// blended quantity; every later row opens at the previous row's closing
// balance. Pure function: writes nothing, and an event with no consumption
// yet yields an empty (not nil-error) trail.
func BuildConsumptionAudit(allocations []*BdnAllocation, entries []*ConsumptionEntry, dosingDate time.Time) []*ConsumptionAuditRow {
	blendedByBdn := make(map[string]decimal.Decimal, len(allocations))
	bdnOrder := make([]string, 0, len(allocations))
	for _, allocation := range allocations {
		if _, ok := blendedByBdn[allocation.BdnNumber]; !ok {
			bdnOrder = append(bdnOrder, allocation.BdnNumber)
		}
		blendedByBdn[allocation.BdnNumber] = blendedByBdn[allocation.BdnNumber].Add(allocation.QtyBlendedMt)
	}

	type chainKey struct {
		bdn         string
		machineryId int
	}
	grouped := make(map[chainKey][]*ConsumptionEntry)
	for _, entry := range entries {
		if _, ok := blendedByBdn[entry.BdnNumber]; !ok {
			continue
		}
		if entry.EntryDate.Before(dosingDate) {
			continue
		}
		key := chainKey{bdn: entry.BdnNumber, machineryId: entry.MachineryId}
		grouped[key] = append(grouped[key], entry)
	}

	keys := make([]chainKey, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	bdnRank := make(map[string]int, len(bdnOrder))
	for i, bdn := range bdnOrder {
		bdnRank[bdn] = i
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].bdn != keys[j].bdn {
			return bdnRank[keys[i].bdn] < bdnRank[keys[j].bdn]
		}
		return keys[i].machineryId < keys[j].machineryId
	})

	var rows []*ConsumptionAuditRow
	for _, key := range keys {
		chain := grouped[key]
		sort.Slice(chain, func(i, j int) bool {
			if !chain[i].EntryDate.Equal(chain[j].EntryDate) {
				return chain[i].EntryDate.Before(chain[j].EntryDate)
			}
			return chain[i].ID < chain[j].ID
		})

		opening := blendedByBdn[key.bdn]
		for _, entry := range chain {
			closing := utils.RoundQuantity(opening.Sub(entry.ConsumedMt))
			rows = append(rows, &ConsumptionAuditRow{
				EntryDate:       entry.EntryDate,
				BdnNumber:       entry.BdnNumber,
				MachineryId:     entry.MachineryId,
				MachineryName:   entry.MachineryName,
				InitialQuantity: utils.RoundQuantity(opening),
				ConsumedMt:      utils.RoundQuantity(entry.ConsumedMt),
				FinalQuantity:   closing,
			})
			opening = closing
		}
	}
	if rows == nil {
		rows = []*ConsumptionAuditRow{}
	}
	return rows
}

// GetConsumptionAudit loads the event and its allocations, pulls the matching
// consumption ledger slice, and chains it.
func GetConsumptionAudit(ctx context.Context, dosingEventId int) ([]*ConsumptionAuditRow, error) {
	event, err := GetDosingEvent(ctx, dosingEventId)
	if err != nil {
		return nil, err
	}
	if len(event.Allocations) == 0 {
		return []*ConsumptionAuditRow{}, nil
	}

	bdns := make([]string, 0, len(event.Allocations))
	for _, allocation := range event.Allocations {
		bdns = append(bdns, allocation.BdnNumber)
	}

	db := config.GetDB()
	var entries []*ConsumptionEntry
	err = db.WithContext(ctx).
		Model(&FuelConsumption{}).
		Select("fuel_consumptions.id, fuel_consumptions.bdn_number, fuel_consumptions.machinery_id, machineries.name AS machinery_name, fuel_consumptions.entry_date, fuel_consumptions.consumed_mt").
		Joins("LEFT JOIN machineries ON machineries.id = fuel_consumptions.machinery_id").
		Where("fuel_consumptions.fleet_id = ? AND fuel_consumptions.ship_id = ? AND fuel_consumptions.bdn_number IN ? AND fuel_consumptions.entry_date >= ?",
			event.FleetId, event.ShipId, bdns, event.DosingDate).
		Order("fuel_consumptions.entry_date ASC, fuel_consumptions.id ASC").
		Scan(&entries).Error
	if err != nil {
		return nil, err
	}

	return BuildConsumptionAudit(event.Allocations, entries, event.DosingDate), nil
}
