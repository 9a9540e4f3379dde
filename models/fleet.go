package models

import (
	"context"
	"fmt"
	"time"

	"github.com/seadatafocus/memp_backend/config"
	"github.com/seadatafocus/memp_backend/utils"
)

// Master data owned by the fleet-administration service. This service only
// reads it (lookups + referential validation); there are no CRUD endpoints.

type Ship struct {
	ID        int       `gorm:"primary_key" json:"id"`
	FleetId   string    `gorm:"index;not null" json:"fleet_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	ImoNumber string    `gorm:"size:20;index" json:"imo_number"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ItemType is one fuel or lube-oil grade (HFO, VLSFO, MGO, ME_CYL, ...).
type ItemType struct {
	ID        int            `gorm:"primary_key" json:"id"`
	Key       string         `gorm:"size:50;uniqueIndex;not null" json:"key"`
	Name      string         `gorm:"size:100;not null" json:"name"`
	Category  BunkerCategory `gorm:"type:enum('FUEL','LUBE_OIL');default:FUEL" json:"category"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

type Machinery struct {
	ID            int           `gorm:"primary_key" json:"id"`
	FleetId       string        `gorm:"index;not null" json:"fleet_id"`
	ShipId        int           `gorm:"index;not null" json:"ship_id"`
	Name          string        `gorm:"size:100;not null" json:"name"`
	MachineryType MachineryType `gorm:"type:enum('MAIN_ENGINE','AUX_ENGINE','BOILER','OTHER');default:OTHER" json:"machinery_type"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

type AdditiveType struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Supplier  string    `gorm:"size:100" json:"supplier"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetShip(ctx context.Context, fleetId string, shipId int) (*Ship, error) {
	ship, err := utils.FetchModel[Ship](ctx, fleetId, shipId)
	if err != nil {
		return nil, notFoundErrorf("ship %d not found", shipId)
	}
	return ship, nil
}

// get item type catalog, redis or db
func getItemTypeCatalog(ctx context.Context) (map[string]*ItemType, error) {
	catalog := make(map[string]*ItemType)
	redisKey := "itemTypeCatalog"
	exists, err := config.GetRedisObject(redisKey, &catalog)
	if err != nil {
		return nil, err
	}
	if !exists {
		db := config.GetDB()
		var itemTypes []*ItemType
		if err := db.WithContext(ctx).Find(&itemTypes).Error; err != nil {
			return nil, err
		}
		for _, it := range itemTypes {
			catalog[it.Key] = it
		}
		if err := config.SetRedisObject(redisKey, &catalog, 10*time.Minute); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

// GetItemType resolves a fuel/lube-oil type key and checks it belongs to the
// expected bunker category.
func GetItemType(ctx context.Context, key string, category BunkerCategory) (*ItemType, error) {
	catalog, err := getItemTypeCatalog(ctx)
	if err != nil {
		return nil, err
	}
	itemType, ok := catalog[key]
	if !ok {
		return nil, notFoundErrorf("item type %q not found", key)
	}
	if itemType.Category != category {
		return nil, validationErrorf("item type %q is %s, not %s", key, itemType.Category, category)
	}
	return itemType, nil
}

// ValidateMachineryIds checks that every id belongs to the given ship.
func ValidateMachineryIds(ctx context.Context, fleetId string, shipId int, machineryIds []int) error {
	if len(machineryIds) == 0 {
		return validationErrorf("at least one treated machinery is required")
	}
	return utils.MassValidateResourceIds(ctx, []utils.ValidationRule[int]{
		{
			Model:   Machinery{},
			Ids:     machineryIds,
			Message: fmt.Sprintf("machinery not found for ship %d", shipId),
			Filter:  utils.Filter{Cond: "fleet_id = ? AND ship_id = ?", Values: []interface{}{fleetId, shipId}},
		},
	})
}

func GetAdditiveType(ctx context.Context, additiveTypeId int) (*AdditiveType, error) {
	additive, err := utils.FetchSingleModel[AdditiveType](ctx, additiveTypeId)
	if err != nil {
		return nil, notFoundErrorf("additive type %d not found", additiveTypeId)
	}
	return additive, nil
}
