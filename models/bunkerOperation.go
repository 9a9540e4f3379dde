package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/seadatafocus/memp_backend/config"
	"github.com/seadatafocus/memp_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BunkerOperation is one immutable entry of the per-(ship, category, item)
// ROB ledger. Quantities are never edited after creation; a mistake is fixed
// by appending a CORRECTION row. Only supplementary quality/attachment fields
// may change later.
type BunkerOperation struct {
	ID             int                 `gorm:"primary_key" json:"id"`
	FleetId        string              `gorm:"index;not null" json:"fleet_id"`
	ShipId         int                 `gorm:"uniqueIndex:uniq_bunker_ops_chain,priority:1;index:idx_bunker_ops_bdn,priority:1;not null" json:"ship_id"`
	BunkerCategory BunkerCategory      `gorm:"type:enum('FUEL','LUBE_OIL');default:FUEL;uniqueIndex:uniq_bunker_ops_chain,priority:2" json:"bunker_category"`
	ItemTypeKey    string              `gorm:"size:50;uniqueIndex:uniq_bunker_ops_chain,priority:3;not null" json:"item_type_key"`
	OperationType  BunkerOperationType `gorm:"type:enum('BUNKER','DEBUNKER','CORRECTION','LO_TOPUP','LO_TRANSFER','INITIAL_FILL');not null" json:"operation_type"`
	CorrectionSign *CorrectionSign     `gorm:"type:enum('+','-')" json:"correction_sign,omitempty"`
	BdnNumber      string              `gorm:"size:100;index:idx_bunker_ops_bdn,priority:2;not null" json:"bdn_number"`
	OperationDate  time.Time           `gorm:"index;not null" json:"operation_date"`
	TimeZoneOffset string              `gorm:"size:6" json:"time_zone_offset"`

	DeltaQuantityMt   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"delta_quantity_mt"`
	DensityAt15C      decimal.Decimal `gorm:"type:decimal(20,4);default:1000" json:"density_at_15c"`
	InitialQuantityMt decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"initial_quantity_mt"`
	FinalQuantityMt   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"final_quantity_mt"`
	InitialVolumeM3   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"initial_volume_m3"`
	FinalVolumeM3     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"final_volume_m3"`
	DeltaVolumeM3     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"delta_volume_m3"`

	// LedgerSequence is monotonic per (ship, category, item) and unique-indexed
	// with that key: insertion order, not operation date, is authoritative for
	// chaining. The unique index is the hard guard against two concurrent
	// writers extending the same tail.
	LedgerSequence int `gorm:"uniqueIndex:uniq_bunker_ops_chain,priority:4;not null" json:"ledger_sequence"`

	// Supplementary fields, mutable after creation.
	SulphurPercent *decimal.Decimal `gorm:"type:decimal(10,4)" json:"sulphur_percent,omitempty"`
	ViscosityCst   *decimal.Decimal `gorm:"type:decimal(10,4)" json:"viscosity_cst,omitempty"`
	FlashPointC    *decimal.Decimal `gorm:"type:decimal(10,4)" json:"flash_point_c,omitempty"`
	DocumentRef    *string          `gorm:"size:255" json:"document_ref,omitempty"`

	CreatedById   int       `gorm:"default:0" json:"created_by_id"`
	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewBunkerOperation is the create payload. Final quantities may be supplied
// by the client form, but the server recomputes them and treats a mismatch as
// a validation error; the persisted row always carries the server values.
type NewBunkerOperation struct {
	ShipId         int                 `json:"ship_id" binding:"required"`
	BunkerCategory BunkerCategory      `json:"bunker_category" binding:"required"`
	ItemTypeKey    string              `json:"item_type_key" binding:"required"`
	OperationType  BunkerOperationType `json:"operation_type" binding:"required"`
	CorrectionSign *CorrectionSign     `json:"correction_sign"`
	BdnNumber      string              `json:"bdn_number" binding:"required"`
	OperationDate  string              `json:"operation_date" binding:"required"`
	TimeZoneOffset string              `json:"time_zone_offset"`

	DeltaQuantityMt decimal.Decimal  `json:"delta_quantity_mt"`
	DensityAt15C    *decimal.Decimal `json:"density_at_15c"`

	// Client-computed values, verified against the server computation.
	FinalQuantityMt *decimal.Decimal `json:"final_quantity_mt"`
	FinalVolumeM3   *decimal.Decimal `json:"final_volume_m3"`

	SulphurPercent *decimal.Decimal `json:"sulphur_percent"`
	ViscosityCst   *decimal.Decimal `json:"viscosity_cst"`
	FlashPointC    *decimal.Decimal `json:"flash_point_c"`
	DocumentRef    *string          `json:"document_ref"`
}

func (input *NewBunkerOperation) validate(ctx context.Context, fleetId string) error {
	if input.ShipId <= 0 {
		return validationErrorf("ship id is required")
	}
	if !input.BunkerCategory.IsValid() {
		return validationErrorf("invalid bunker category")
	}
	if !input.OperationType.IsValid() {
		return validationErrorf("invalid operation type")
	}
	if strings.TrimSpace(input.ItemTypeKey) == "" {
		return validationErrorf("item type key is required")
	}
	if strings.TrimSpace(input.BdnNumber) == "" {
		return validationErrorf("bdn number is required")
	}
	if strings.TrimSpace(input.OperationDate) == "" {
		return validationErrorf("operation date is required")
	}

	if _, err := GetShip(ctx, fleetId, input.ShipId); err != nil {
		return err
	}
	if _, err := GetItemType(ctx, input.ItemTypeKey, input.BunkerCategory); err != nil {
		return err
	}
	return nil
}

// CreateBunkerOperation validates, recomputes and appends one ledger row, and
// moves the denormalized balance forward in the same transaction.
//
// Serialization: best-effort redislock around the posting, then a MySQL
// advisory lock on the ledger key plus a row lock on the balance row inside
// the transaction. The unique (key, sequence) index backstops both; a
// collision is retried once against a freshly read tail.
func CreateBunkerOperation(ctx context.Context, input *NewBunkerOperation) (*BunkerOperation, error) {
	fleetId, ok := utils.GetFleetIdFromContext(ctx)
	if !ok || fleetId == "" {
		return nil, validationErrorf("fleet id is required")
	}

	if err := input.validate(ctx, fleetId); err != nil {
		return nil, err
	}

	operationDate, err := utils.ParseLocalDate(input.OperationDate, input.TimeZoneOffset)
	if err != nil {
		return nil, validationErrorf("%s", err.Error())
	}

	// Redis lock is a best-effort optimization.
	// Reliability must not depend on Redis: posting is also serialized via the
	// MySQL advisory lock below.
	if locker := config.GetRedisLock(); locker != nil {
		lock, lockErr := locker.Obtain(ctx, ledgerLockName(input.ShipId, input.BunkerCategory, input.ItemTypeKey), 10*time.Second, nil)
		if lockErr == nil {
			defer lock.Release(context.Background())
		} else if lockErr != redislock.ErrNotObtained {
			config.LogError(config.GetLogger(), "bunkerOperation.go", "CreateBunkerOperation", "redislock", nil, lockErr)
		}
	}

	for attempt := 1; attempt <= 2; attempt++ {
		created, err := appendLedgerRow(ctx, fleetId, input, operationDate)
		if err == nil {
			return created, nil
		}
		if !isDuplicateKeyError(err) {
			return nil, err
		}
		// Another writer took the sequence between our read and insert.
		config.GetLogger().WithField("ship_id", input.ShipId).
			Warn("ledger sequence collision, retrying against fresh tail")
	}
	return nil, ErrLedgerConflict
}

func appendLedgerRow(ctx context.Context, fleetId string, input *NewBunkerOperation, operationDate time.Time) (*BunkerOperation, error) {
	db := config.GetDB()

	// Transaction closure so the deferred RELEASE_LOCK runs while the tx is
	// still open; releasing after commit fails with ErrTxDone and leaks the
	// advisory lock onto the pooled connection. The balance row lock below is
	// held through commit and keeps the chain serialized across the gap.
	var op *BunkerOperation
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireLedgerPostingLock(tx, input.ShipId, input.BunkerCategory, input.ItemTypeKey); err != nil {
			return err
		}
		defer ReleaseLedgerPostingLock(tx, input.ShipId, input.BunkerCategory, input.ItemTypeKey)

		// Row lock first: the BDN read below must not run until a concurrent
		// posting on the same key has committed.
		balance, err := FirstOrCreateBunkerBalance(tx, fleetId, input.ShipId, input.BunkerCategory, input.ItemTypeKey)
		if err != nil {
			return err
		}

		if err := validateBdnReference(tx, fleetId, input); err != nil {
			return err
		}

		density := utils.DereferencePtr(input.DensityAt15C)
		comp, err := ComputeRob(balance.FinalQuantityMt, input.DeltaQuantityMt, input.OperationType, input.CorrectionSign, density)
		if err != nil {
			return err
		}

		if config.StrictClientQuantityCheck() {
			if input.FinalQuantityMt != nil && !utils.RoundQuantity(*input.FinalQuantityMt).Equal(comp.FinalQuantityMt) {
				return validationErrorf("client final quantity %s disagrees with computed %s",
					input.FinalQuantityMt, comp.FinalQuantityMt)
			}
			if input.FinalVolumeM3 != nil && !utils.RoundQuantity(*input.FinalVolumeM3).Equal(comp.FinalVolumeM3) {
				return validationErrorf("client final volume %s disagrees with computed %s",
					input.FinalVolumeM3, comp.FinalVolumeM3)
			}
		}

		createdById, _ := utils.GetUserIdFromContext(ctx)
		op = &BunkerOperation{
			FleetId:           fleetId,
			ShipId:            input.ShipId,
			BunkerCategory:    input.BunkerCategory,
			ItemTypeKey:       input.ItemTypeKey,
			OperationType:     input.OperationType,
			CorrectionSign:    input.CorrectionSign,
			BdnNumber:         strings.TrimSpace(input.BdnNumber),
			OperationDate:     operationDate,
			TimeZoneOffset:    input.TimeZoneOffset,
			DeltaQuantityMt:   comp.DeltaQuantityMt,
			DensityAt15C:      comp.DensityAt15C,
			InitialQuantityMt: comp.InitialQuantityMt,
			FinalQuantityMt:   comp.FinalQuantityMt,
			InitialVolumeM3:   comp.InitialVolumeM3,
			FinalVolumeM3:     comp.FinalVolumeM3,
			DeltaVolumeM3:     comp.DeltaVolumeM3,
			LedgerSequence:    balance.LastSequence + 1,
			SulphurPercent:    input.SulphurPercent,
			ViscosityCst:      input.ViscosityCst,
			FlashPointC:       input.FlashPointC,
			DocumentRef:       input.DocumentRef,
			CreatedById:       createdById,
			CorrelationId:     correlationIdFromContextOrNew(ctx),
		}

		if err := tx.Create(op).Error; err != nil {
			return err
		}
		return updateBunkerBalance(tx, balance.ID, op)
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

// validateBdnReference enforces the BDN rules inside the posting transaction:
// stock-creating operations introduce a globally-new BDN number for the ship,
// referencing operations must name a BDN that was created by a stock-creating
// row on the same ledger key.
func validateBdnReference(tx *gorm.DB, fleetId string, input *NewBunkerOperation) error {
	bdn := strings.TrimSpace(input.BdnNumber)

	var count int64
	if err := tx.Model(&BunkerOperation{}).
		Where("fleet_id = ? AND ship_id = ? AND bdn_number = ? AND operation_type IN ?",
			fleetId, input.ShipId, bdn, stockCreatingTypes).
		Count(&count).Error; err != nil {
		return err
	}

	if input.OperationType.CreatesStock() {
		if count > 0 {
			return validationErrorf("bdn number %q already exists; use DEBUNKER or CORRECTION to adjust existing stock", bdn)
		}
		return nil
	}

	if count == 0 {
		return notFoundErrorf("bdn number %q does not reference existing stock on ship %d", bdn, input.ShipId)
	}
	return nil
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	// MySQL 1062; gorm's mysql driver does not translate it unless configured.
	return strings.Contains(err.Error(), "Duplicate entry")
}

// LastRob is the seed for a new operation form: the Final values of the most
// recently created row for the ledger key.
type LastRob struct {
	FinalQuantityMt decimal.Decimal `json:"final_quantity_mt"`
	FinalVolumeM3   decimal.Decimal `json:"final_volume_m3"`
	LastSequence    int             `json:"last_sequence"`
}

func GetLastRob(ctx context.Context, shipId int, category BunkerCategory, itemTypeKey string) (*LastRob, error) {
	fleetId, ok := utils.GetFleetIdFromContext(ctx)
	if !ok || fleetId == "" {
		return nil, validationErrorf("fleet id is required")
	}
	if !category.IsValid() {
		return nil, validationErrorf("invalid bunker category")
	}

	db := config.GetDB()
	var balance BunkerBalance
	err := db.WithContext(ctx).
		Where("fleet_id = ? AND ship_id = ? AND bunker_category = ? AND item_type_key = ?",
			fleetId, shipId, category, itemTypeKey).
		First(&balance).Error
	if err == nil {
		return &LastRob{
			FinalQuantityMt: balance.FinalQuantityMt,
			FinalVolumeM3:   balance.FinalVolumeM3,
			LastSequence:    balance.LastSequence,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// No balance row: fall back to the ledger tail (covers rows written before
	// the balance table existed, or a never-written key -> zero seed). Only a
	// missing row seeds zero; an upstream failure stays a failure.
	var tail BunkerOperation
	err = db.WithContext(ctx).
		Where("fleet_id = ? AND ship_id = ? AND bunker_category = ? AND item_type_key = ?",
			fleetId, shipId, category, itemTypeKey).
		Order("ledger_sequence DESC").
		First(&tail).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &LastRob{FinalQuantityMt: decimal.Zero, FinalVolumeM3: decimal.Zero}, nil
		}
		return nil, err
	}
	return &LastRob{
		FinalQuantityMt: tail.FinalQuantityMt,
		FinalVolumeM3:   tail.FinalVolumeM3,
		LastSequence:    tail.LedgerSequence,
	}, nil
}

// ListBunkerOperations returns the ledger for one key, newest first.
func ListBunkerOperations(ctx context.Context, shipId int, category BunkerCategory, itemTypeKey string, limit int, offset int) ([]*BunkerOperation, error) {
	fleetId, ok := utils.GetFleetIdFromContext(ctx)
	if !ok || fleetId == "" {
		return nil, validationErrorf("fleet id is required")
	}
	if limit <= 0 {
		limit = config.SearchLimit
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	db := config.GetDB()
	var ops []*BunkerOperation
	err := db.WithContext(ctx).
		Where("fleet_id = ? AND ship_id = ? AND bunker_category = ? AND item_type_key = ?",
			fleetId, shipId, category, itemTypeKey).
		Order("ledger_sequence DESC").
		Limit(limit).Offset(offset).
		Find(&ops).Error
	if err != nil {
		return nil, err
	}
	return ops, nil
}

// SupplementaryUpdate carries the only fields that may change after a ledger
// row is created. Quantities are immutable; corrections are new rows.
type SupplementaryUpdate struct {
	SulphurPercent *decimal.Decimal `json:"sulphur_percent"`
	ViscosityCst   *decimal.Decimal `json:"viscosity_cst"`
	FlashPointC    *decimal.Decimal `json:"flash_point_c"`
	DocumentRef    *string          `json:"document_ref"`
}

func UpdateBunkerOperationSupplementary(ctx context.Context, operationId int, input *SupplementaryUpdate) (*BunkerOperation, error) {
	fleetId, ok := utils.GetFleetIdFromContext(ctx)
	if !ok || fleetId == "" {
		return nil, validationErrorf("fleet id is required")
	}

	op, err := utils.FetchModel[BunkerOperation](ctx, fleetId, operationId)
	if err != nil {
		return nil, notFoundErrorf("bunker operation %d not found", operationId)
	}

	updates := map[string]interface{}{}
	if input.SulphurPercent != nil {
		updates["sulphur_percent"] = *input.SulphurPercent
	}
	if input.ViscosityCst != nil {
		updates["viscosity_cst"] = *input.ViscosityCst
	}
	if input.FlashPointC != nil {
		updates["flash_point_c"] = *input.FlashPointC
	}
	if input.DocumentRef != nil {
		updates["document_ref"] = *input.DocumentRef
	}
	if len(updates) == 0 {
		return op, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&BunkerOperation{}).
		Where("id = ? AND fleet_id = ?", operationId, fleetId).
		Updates(updates).Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[BunkerOperation](ctx, fleetId, operationId)
}
