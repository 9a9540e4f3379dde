package models

import (
	"context"
	"time"

	"github.com/seadatafocus/memp_backend/config"
	"github.com/seadatafocus/memp_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// stockCreatingTypes are the operation types that introduce a new BDN and
// therefore back availability for additive allocation.
var stockCreatingTypes = []BunkerOperationType{
	OperationTypeBunker,
	OperationTypeInitialFill,
	OperationTypeLoTopup,
}

// BdnAvailability is one row of the derived availability read-model. Nothing
// here is persisted; it is always recomputed from the ledger and the
// allocation rows so concurrent writers can never make a stored counter drift.
type BdnAvailability struct {
	BdnNumber          string          `json:"bdn_number"`
	EntryDate          time.Time       `json:"entry_date"`
	BunkeredQuantityMt decimal.Decimal `json:"bunkered_quantity_mt"`
	AllocatedMt        decimal.Decimal `json:"allocated_mt"`
	AvailableMt        decimal.Decimal `json:"available_mt"`
	LowAvailability    bool            `json:"low_availability"`
}

// ListAvailableBdns returns the BDNs of one ship+fuel type that were bunkered
// on or before asOfDate and still have availability, oldest stock first. The
// order is a suggestion only; the operator picks which BDNs a dosing event
// draws from.
func ListAvailableBdns(ctx context.Context, shipId int, fuelTypeKey string, asOfDate string) ([]*BdnAvailability, error) {
	fleetId, ok := utils.GetFleetIdFromContext(ctx)
	if !ok || fleetId == "" {
		return nil, validationErrorf("fleet id is required")
	}
	if shipId <= 0 {
		return nil, validationErrorf("ship id is required")
	}
	if _, err := GetItemType(ctx, fuelTypeKey, BunkerCategoryFuel); err != nil {
		return nil, err
	}
	asOf, err := parseAsOfDate(asOfDate)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	rows, err := computeBdnAvailability(db.WithContext(ctx), fleetId, shipId, fuelTypeKey, &asOf, 0)
	if err != nil {
		return nil, err
	}

	available := make([]*BdnAvailability, 0, len(rows))
	for _, row := range rows {
		if row.AvailableMt.IsPositive() {
			available = append(available, row)
		}
	}
	return available, nil
}

// GetBdnAvailable computes availability for one BDN, for live form feedback.
// Unlike the listing it also reports fully drawn BDNs (AvailableMt == 0).
func GetBdnAvailable(ctx context.Context, shipId int, bdnNumber string) (*BdnAvailability, error) {
	fleetId, ok := utils.GetFleetIdFromContext(ctx)
	if !ok || fleetId == "" {
		return nil, validationErrorf("fleet id is required")
	}
	db := config.GetDB()
	return availableMtInTx(db.WithContext(ctx), fleetId, shipId, "", bdnNumber, 0, false)
}

// computeBdnAvailability scans the stock-creating ledger rows for the key and
// subtracts the allocation totals. excludeDosingEventId removes one event's
// own rows from the total so an edit can re-allocate its prior quantities.
func computeBdnAvailability(tx *gorm.DB, fleetId string, shipId int, fuelTypeKey string, asOf *time.Time, excludeDosingEventId int) ([]*BdnAvailability, error) {
	opQuery := tx.Model(&BunkerOperation{}).
		Where("fleet_id = ? AND ship_id = ? AND operation_type IN ?", fleetId, shipId, stockCreatingTypes)
	if fuelTypeKey != "" {
		opQuery = opQuery.Where("item_type_key = ?", fuelTypeKey)
	}
	if asOf != nil {
		opQuery = opQuery.Where("operation_date <= ?", *asOf)
	}

	var ops []*BunkerOperation
	if err := opQuery.Order("operation_date ASC, ledger_sequence ASC").Find(&ops).Error; err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, nil
	}

	bdns := make([]string, 0, len(ops))
	for _, op := range ops {
		bdns = append(bdns, op.BdnNumber)
	}

	type allocatedRow struct {
		BdnNumber string
		Total     decimal.Decimal
	}
	allocQuery := tx.Model(&BdnAllocation{}).
		Select("bdn_number, COALESCE(SUM(qty_blended_mt), 0) AS total").
		Where("fleet_id = ? AND ship_id = ? AND bdn_number IN ?", fleetId, shipId, bdns).
		Group("bdn_number")
	if excludeDosingEventId > 0 {
		allocQuery = allocQuery.Where("dosing_event_id <> ?", excludeDosingEventId)
	}
	var allocated []allocatedRow
	if err := allocQuery.Scan(&allocated).Error; err != nil {
		return nil, err
	}
	allocatedByBdn := make(map[string]decimal.Decimal, len(allocated))
	for _, row := range allocated {
		allocatedByBdn[row.BdnNumber] = row.Total
	}

	warnPercent := decimal.NewFromInt(int64(config.LowAvailabilityWarningPercent()))
	hundred := decimal.NewFromInt(100)

	result := make([]*BdnAvailability, 0, len(ops))
	for _, op := range ops {
		drawn := allocatedByBdn[op.BdnNumber]
		available := utils.RoundQuantity(op.DeltaQuantityMt.Sub(drawn))
		warnAt := op.DeltaQuantityMt.Mul(warnPercent).Div(hundred)
		result = append(result, &BdnAvailability{
			BdnNumber:          op.BdnNumber,
			EntryDate:          op.OperationDate,
			BunkeredQuantityMt: op.DeltaQuantityMt,
			AllocatedMt:        utils.RoundQuantity(drawn),
			AvailableMt:        available,
			LowAvailability:    available.LessThanOrEqual(warnAt),
		})
	}
	return result, nil
}

// availableMtInTx recomputes availability for a single BDN inside the caller's
// transaction. The allocation path passes forUpdate=true: the row lock on the
// stock-creating ledger row is held through commit, so a concurrent allocation
// against the same BDN cannot read availability until this one is durable.
func availableMtInTx(tx *gorm.DB, fleetId string, shipId int, fuelTypeKey string, bdnNumber string, excludeDosingEventId int, forUpdate bool) (*BdnAvailability, error) {
	opQuery := tx.Model(&BunkerOperation{}).
		Where("fleet_id = ? AND ship_id = ? AND bdn_number = ? AND operation_type IN ?",
			fleetId, shipId, bdnNumber, stockCreatingTypes)
	if fuelTypeKey != "" {
		opQuery = opQuery.Where("item_type_key = ?", fuelTypeKey)
	}
	if forUpdate {
		opQuery = opQuery.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var op BunkerOperation
	if err := opQuery.First(&op).Error; err != nil {
		return nil, notFoundErrorf("bdn number %q does not reference existing stock on ship %d", bdnNumber, shipId)
	}

	allocQuery := tx.Model(&BdnAllocation{}).
		Select("COALESCE(SUM(qty_blended_mt), 0)").
		Where("fleet_id = ? AND ship_id = ? AND bdn_number = ?", fleetId, shipId, bdnNumber)
	if excludeDosingEventId > 0 {
		allocQuery = allocQuery.Where("dosing_event_id <> ?", excludeDosingEventId)
	}
	var drawn decimal.Decimal
	if err := allocQuery.Scan(&drawn).Error; err != nil {
		return nil, err
	}

	available := utils.RoundQuantity(op.DeltaQuantityMt.Sub(drawn))
	warnPercent := decimal.NewFromInt(int64(config.LowAvailabilityWarningPercent()))
	warnAt := op.DeltaQuantityMt.Mul(warnPercent).Div(decimal.NewFromInt(100))

	return &BdnAvailability{
		BdnNumber:          op.BdnNumber,
		EntryDate:          op.OperationDate,
		BunkeredQuantityMt: op.DeltaQuantityMt,
		AllocatedMt:        utils.RoundQuantity(drawn),
		AvailableMt:        available,
		LowAvailability:    available.LessThanOrEqual(warnAt),
	}, nil
}

func parseAsOfDate(asOfDate string) (time.Time, error) {
	if asOfDate == "" {
		return time.Now().UTC(), nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, asOfDate); err == nil {
			if layout == "2006-01-02" {
				// A bare date means "through the end of that day".
				return t.Add(24*time.Hour - time.Second), nil
			}
			return t, nil
		}
	}
	return time.Time{}, validationErrorf("invalid as-of date %q", asOfDate)
}
