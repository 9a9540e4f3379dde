package models

import (
	"github.com/seadatafocus/memp_backend/config"
)

// MigrateTable keeps the schema in sync at startup. Master data tables
// (ships, item types, machineries, additive types) are included so a fresh
// environment can be seeded without a separate DDL step; in shared
// environments the fleet-administration service owns their content.
func MigrateTable() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&Ship{},
		&ItemType{},
		&Machinery{},
		&AdditiveType{},
		&BunkerOperation{},
		&BunkerBalance{},
		&DosingEvent{},
		&BdnAllocation{},
		&DosingEventMachinery{},
		&FuelConsumption{},
	)
}
