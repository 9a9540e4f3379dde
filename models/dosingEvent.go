package models

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/seadatafocus/memp_backend/config"
	"github.com/seadatafocus/memp_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DosingEvent records one application of chemical additive to fuel drawn from
// one or more BDNs. The event and its allocation rows live and die together:
// edits replace the full allocation set, delete removes both.
type DosingEvent struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	FleetId             string          `gorm:"index;not null" json:"fleet_id"`
	DosingReferenceId   string          `gorm:"size:50;uniqueIndex;not null" json:"dosing_reference_id"`
	ShipId              int             `gorm:"index;not null" json:"ship_id"`
	AdditiveTypeId      int             `gorm:"not null" json:"additive_type_id"`
	AdditiveName        string          `gorm:"size:100;not null" json:"additive_name"`
	DosingQuantityL     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"dosing_quantity_l"`
	FuelTypeKey         string          `gorm:"size:50;not null" json:"fuel_type_key"`
	FuelQuantityBlended decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"fuel_quantity_blended"`
	DosingDate          time.Time       `gorm:"index;not null" json:"dosing_date"`
	TimeZoneOffset      string          `gorm:"size:6" json:"time_zone_offset"`
	CreatedById         int             `gorm:"default:0" json:"created_by_id"`
	CorrelationId       string          `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Allocations []*BdnAllocation        `gorm:"foreignKey:DosingEventId" json:"allocations,omitempty"`
	Machineries []*DosingEventMachinery `gorm:"foreignKey:DosingEventId" json:"machineries,omitempty"`
}

// BdnAllocation is the portion of one BDN's bunkered quantity assigned to a
// dosing event. Rows are only written through the allocation transaction.
type BdnAllocation struct {
	ID            int             `gorm:"primary_key" json:"id"`
	FleetId       string          `gorm:"index;not null" json:"fleet_id"`
	DosingEventId int             `gorm:"index;not null" json:"dosing_event_id"`
	ShipId        int             `gorm:"index:idx_bdn_allocations_key,priority:1;not null" json:"ship_id"`
	BdnNumber     string          `gorm:"size:100;index:idx_bdn_allocations_key,priority:2;not null" json:"bdn_number"`
	QtyBlendedMt  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty_blended_mt"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type DosingEventMachinery struct {
	ID            int       `gorm:"primary_key" json:"id"`
	FleetId       string    `gorm:"index;not null" json:"fleet_id"`
	DosingEventId int       `gorm:"index;not null" json:"dosing_event_id"`
	MachineryId   int       `gorm:"not null" json:"machinery_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type BdnEntry struct {
	BdnNumber    string          `json:"bdn_number" binding:"required"`
	QtyBlendedMt decimal.Decimal `json:"qty_blended_mt"`
}

// NewDosingEvent is the create/edit payload. FuelQuantityBlended is never
// accepted from the client; it is always the sum of the entries.
type NewDosingEvent struct {
	ShipId              int             `json:"ship_id" binding:"required"`
	AdditiveTypeId      int             `json:"additive_type_id" binding:"required"`
	DosingQuantityL     decimal.Decimal `json:"dosing_quantity_l"`
	FuelTypeKey         string          `json:"fuel_type_key" binding:"required"`
	DosingDate          string          `json:"dosing_date" binding:"required"`
	TimeZoneOffset      string          `json:"time_zone_offset"`
	TreatedMachineryIds []int           `json:"treated_machinery_ids" binding:"required,min=1"`
	BdnEntries          []BdnEntry      `json:"bdn_entries" binding:"required,min=1,dive"`
}

func (input *NewDosingEvent) validate(ctx context.Context, fleetId string) (*AdditiveType, error) {
	if input.ShipId <= 0 {
		return nil, validationErrorf("ship id is required")
	}
	if strings.TrimSpace(input.FuelTypeKey) == "" {
		return nil, validationErrorf("fuel type key is required")
	}
	if strings.TrimSpace(input.DosingDate) == "" {
		return nil, validationErrorf("dosing date is required")
	}
	if !input.DosingQuantityL.IsPositive() {
		return nil, validationErrorf("dosing quantity must be positive (got %s)", input.DosingQuantityL)
	}
	if len(input.BdnEntries) == 0 {
		return nil, validationErrorf("at least one bdn entry is required")
	}
	seen := make(map[string]bool, len(input.BdnEntries))
	for _, entry := range input.BdnEntries {
		bdn := strings.TrimSpace(entry.BdnNumber)
		if bdn == "" {
			return nil, validationErrorf("bdn number is required on every entry")
		}
		if seen[bdn] {
			return nil, validationErrorf("bdn number %q appears more than once", bdn)
		}
		seen[bdn] = true
		if !entry.QtyBlendedMt.IsPositive() {
			return nil, validationErrorf("blended quantity for bdn %q must be positive (got %s)", bdn, entry.QtyBlendedMt)
		}
	}

	if _, err := GetShip(ctx, fleetId, input.ShipId); err != nil {
		return nil, err
	}
	if _, err := GetItemType(ctx, input.FuelTypeKey, BunkerCategoryFuel); err != nil {
		return nil, err
	}
	if err := ValidateMachineryIds(ctx, fleetId, input.ShipId, input.TreatedMachineryIds); err != nil {
		return nil, err
	}
	additive, err := GetAdditiveType(ctx, input.AdditiveTypeId)
	if err != nil {
		return nil, err
	}
	return additive, nil
}

// CreateDosingEvent validates the payload, checks every BDN entry against
// freshly computed availability under the allocation lock, and writes the
// event, its allocation rows and its machinery links in one transaction.
//
// The dosing reference is minted from MAX(id); two creates racing on the same
// ship (different fuel types, so different allocation locks) can mint the same
// reference and collide on the unique index. The committed racer has bumped
// MAX(id), so one retry mints a fresh reference.
func CreateDosingEvent(ctx context.Context, input *NewDosingEvent) (*DosingEvent, error) {
	for attempt := 1; attempt <= 2; attempt++ {
		event, err := saveDosingEvent(ctx, 0, input)
		if err == nil {
			return event, nil
		}
		if !isDuplicateKeyError(err) {
			return nil, err
		}
		config.GetLogger().WithField("ship_id", input.ShipId).
			Warn("dosing reference collision, retrying with fresh sequence")
	}
	return nil, ErrLedgerConflict
}

// UpdateDosingEvent replaces the event wholesale: the prior allocation rows
// are removed inside the transaction before availability is recomputed, so an
// edit never competes with its own earlier allocation.
func UpdateDosingEvent(ctx context.Context, dosingEventId int, input *NewDosingEvent) (*DosingEvent, error) {
	if dosingEventId <= 0 {
		return nil, validationErrorf("dosing event id is required")
	}
	return saveDosingEvent(ctx, dosingEventId, input)
}

func saveDosingEvent(ctx context.Context, dosingEventId int, input *NewDosingEvent) (*DosingEvent, error) {
	fleetId, ok := utils.GetFleetIdFromContext(ctx)
	if !ok || fleetId == "" {
		return nil, validationErrorf("fleet id is required")
	}

	additive, err := input.validate(ctx, fleetId)
	if err != nil {
		return nil, err
	}

	dosingDate, err := utils.ParseLocalDate(input.DosingDate, input.TimeZoneOffset)
	if err != nil {
		return nil, validationErrorf("%s", err.Error())
	}

	db := config.GetDB()

	// Transaction closure so the deferred RELEASE_LOCK runs while the tx is
	// still open (releasing after commit leaks the advisory lock onto the
	// pooled connection). The availability reads below lock the stock-creating
	// ledger rows FOR UPDATE, which keeps allocation serialized per BDN through
	// commit even after the advisory lock is gone.
	var event *DosingEvent
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireAllocationLock(tx, input.ShipId, input.FuelTypeKey); err != nil {
			return err
		}
		defer ReleaseAllocationLock(tx, input.ShipId, input.FuelTypeKey)

		if dosingEventId > 0 {
			event = &DosingEvent{}
			if err := tx.Where("id = ? AND fleet_id = ?", dosingEventId, fleetId).First(event).Error; err != nil {
				return notFoundErrorf("dosing event %d not found", dosingEventId)
			}
			// Replace-as-a-whole: clearing the old rows first makes the
			// availability check naturally exclude this event's prior draw.
			if err := tx.Where("dosing_event_id = ?", dosingEventId).Delete(&BdnAllocation{}).Error; err != nil {
				return err
			}
			if err := tx.Where("dosing_event_id = ?", dosingEventId).Delete(&DosingEventMachinery{}).Error; err != nil {
				return err
			}
		} else {
			reference, err := nextDosingReference(tx, input.ShipId)
			if err != nil {
				return err
			}
			createdById, _ := utils.GetUserIdFromContext(ctx)
			event = &DosingEvent{
				FleetId:           fleetId,
				DosingReferenceId: reference,
				CreatedById:       createdById,
				CorrelationId:     correlationIdFromContextOrNew(ctx),
			}
		}

		// Check in BDN order so concurrent events always take the row locks in
		// the same sequence.
		total := decimal.Zero
		for _, entry := range sortedByBdn(input.BdnEntries) {
			bdn := strings.TrimSpace(entry.BdnNumber)
			availability, err := availableMtInTx(tx, fleetId, input.ShipId, input.FuelTypeKey, bdn, event.ID, true)
			if err != nil {
				return err
			}
			if err := checkAllocationEntry(entry, availability, dosingDate); err != nil {
				return err
			}
			total = total.Add(entry.QtyBlendedMt)
		}

		event.ShipId = input.ShipId
		event.AdditiveTypeId = additive.ID
		event.AdditiveName = additive.Name
		event.DosingQuantityL = input.DosingQuantityL
		event.FuelTypeKey = input.FuelTypeKey
		event.FuelQuantityBlended = utils.RoundQuantity(total)
		event.DosingDate = dosingDate
		event.TimeZoneOffset = input.TimeZoneOffset

		if err := tx.Save(event).Error; err != nil {
			return err
		}

		for _, entry := range input.BdnEntries {
			allocation := &BdnAllocation{
				FleetId:       fleetId,
				DosingEventId: event.ID,
				ShipId:        input.ShipId,
				BdnNumber:     strings.TrimSpace(entry.BdnNumber),
				QtyBlendedMt:  utils.RoundQuantity(entry.QtyBlendedMt),
			}
			if err := tx.Create(allocation).Error; err != nil {
				return err
			}
			event.Allocations = append(event.Allocations, allocation)
		}
		for _, machineryId := range utils.UniqueSlice(input.TreatedMachineryIds) {
			link := &DosingEventMachinery{
				FleetId:       fleetId,
				DosingEventId: event.ID,
				MachineryId:   machineryId,
			}
			if err := tx.Create(link).Error; err != nil {
				return err
			}
			event.Machineries = append(event.Machineries, link)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// checkAllocationEntry applies the two allocation rules for one BDN entry:
// fuel cannot be drawn from a BDN bunkered after the dosing date, and the
// drawn quantity cannot exceed what the BDN still has available.
func checkAllocationEntry(entry BdnEntry, availability *BdnAvailability, dosingDate time.Time) error {
	bdn := strings.TrimSpace(entry.BdnNumber)
	if availability.EntryDate.After(dosingDate) {
		return validationErrorf("bdn %q was bunkered on %s, after the dosing date",
			bdn, availability.EntryDate.Format("2006-01-02"))
	}
	if entry.QtyBlendedMt.GreaterThan(availability.AvailableMt) {
		return validationErrorf("allocation of %s MT against bdn %q exceeds available %s MT",
			entry.QtyBlendedMt, bdn, availability.AvailableMt)
	}
	return nil
}

func sortedByBdn(entries []BdnEntry) []BdnEntry {
	sorted := make([]BdnEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].BdnNumber < sorted[j].BdnNumber })
	return sorted
}

// DeleteDosingEvent removes the event together with its allocations and
// machinery links; the freed quantities become available again immediately.
func DeleteDosingEvent(ctx context.Context, dosingEventId int) error {
	fleetId, ok := utils.GetFleetIdFromContext(ctx)
	if !ok || fleetId == "" {
		return validationErrorf("fleet id is required")
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer tx.Rollback()

	var event DosingEvent
	if err := tx.Where("id = ? AND fleet_id = ?", dosingEventId, fleetId).First(&event).Error; err != nil {
		return notFoundErrorf("dosing event %d not found", dosingEventId)
	}
	if err := tx.Where("dosing_event_id = ?", dosingEventId).Delete(&BdnAllocation{}).Error; err != nil {
		return err
	}
	if err := tx.Where("dosing_event_id = ?", dosingEventId).Delete(&DosingEventMachinery{}).Error; err != nil {
		return err
	}
	if err := tx.Delete(&event).Error; err != nil {
		return err
	}
	return tx.Commit().Error
}

func GetDosingEvent(ctx context.Context, dosingEventId int) (*DosingEvent, error) {
	fleetId, ok := utils.GetFleetIdFromContext(ctx)
	if !ok || fleetId == "" {
		return nil, validationErrorf("fleet id is required")
	}
	event, err := utils.FetchModel[DosingEvent](ctx, fleetId, dosingEventId, "Allocations", "Machineries")
	if err != nil {
		return nil, notFoundErrorf("dosing event %d not found", dosingEventId)
	}
	return event, nil
}

// nextDosingReference issues the human-readable reference, e.g. ADT-12-0007.
// Seeded from the highest id rather than a row count so deleting events can
// never recycle a reference.
func nextDosingReference(tx *gorm.DB, shipId int) (string, error) {
	var maxId int64
	if err := tx.Model(&DosingEvent{}).
		Select("COALESCE(MAX(id), 0)").
		Scan(&maxId).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("ADT-%d-%04d", shipId, maxId+1), nil
}
