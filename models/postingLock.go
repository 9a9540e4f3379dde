package models

import (
	"fmt"

	"gorm.io/gorm"
)

// MySQL advisory locks serialize writers across instances. GET_LOCK is
// connection-scoped, so these must be called on the same *gorm.DB that will
// run the protected transaction.

func acquireNamedLock(tx *gorm.DB, lockName string) error {
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire lock %s", lockName)
	}
	return nil
}

func releaseNamedLock(tx *gorm.DB, lockName string) {
	var ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&ok).Error
}

// AcquireLedgerPostingLock serializes ledger-affecting writes per
// (ship, category, item type) key.
func AcquireLedgerPostingLock(tx *gorm.DB, shipId int, category BunkerCategory, itemTypeKey string) error {
	return acquireNamedLock(tx, ledgerLockName(shipId, category, itemTypeKey))
}

func ReleaseLedgerPostingLock(tx *gorm.DB, shipId int, category BunkerCategory, itemTypeKey string) {
	releaseNamedLock(tx, ledgerLockName(shipId, category, itemTypeKey))
}

func ledgerLockName(shipId int, category BunkerCategory, itemTypeKey string) string {
	return fmt.Sprintf("bunkerledger:%d:%s:%s", shipId, category, itemTypeKey)
}

// AcquireAllocationLock serializes BDN allocation writes per (ship, fuel type)
// so availability cannot be over-drawn by concurrent dosing submissions.
func AcquireAllocationLock(tx *gorm.DB, shipId int, fuelTypeKey string) error {
	return acquireNamedLock(tx, allocationLockName(shipId, fuelTypeKey))
}

func ReleaseAllocationLock(tx *gorm.DB, shipId int, fuelTypeKey string) {
	releaseNamedLock(tx, allocationLockName(shipId, fuelTypeKey))
}

func allocationLockName(shipId int, fuelTypeKey string) string {
	return fmt.Sprintf("bdnalloc:%d:%s", shipId, fuelTypeKey)
}
