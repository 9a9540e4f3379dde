// seed-fleet provisions a development fleet: two ships with machinery, the
// fuel/lube-oil type catalog, a couple of additive types, and prints a bearer
// token scoped to the fleet for exercising the API.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/seed-fleet [--fleet-id fleet-dev]
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/seadatafocus/memp_backend/config"
	"github.com/seadatafocus/memp_backend/models"
	"github.com/seadatafocus/memp_backend/utils"
	"gorm.io/gorm/clause"
)

func main() {
	fleetId := flag.String("fleet-id", "fleet-dev", "Fleet id to seed")
	flag.Parse()

	if strings.TrimSpace(*fleetId) == "" {
		fmt.Fprintln(os.Stderr, "--fleet-id must not be empty")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	if err := models.MigrateTable(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	itemTypes := []models.ItemType{
		{Key: "HFO", Name: "Heavy Fuel Oil", Category: models.BunkerCategoryFuel},
		{Key: "VLSFO", Name: "Very Low Sulphur Fuel Oil", Category: models.BunkerCategoryFuel},
		{Key: "MGO", Name: "Marine Gas Oil", Category: models.BunkerCategoryFuel},
		{Key: "ME_CYL", Name: "Main Engine Cylinder Oil", Category: models.BunkerCategoryLubeOil},
		{Key: "ME_SYS", Name: "Main Engine System Oil", Category: models.BunkerCategoryLubeOil},
	}
	for _, it := range itemTypes {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&it).Error; err != nil {
			fmt.Fprintf(os.Stderr, "seed item type %s: %v\n", it.Key, err)
			os.Exit(1)
		}
	}

	additives := []models.AdditiveType{
		{Name: "FuelCare 300", Supplier: "Aderco"},
		{Name: "SoxClean MX", Supplier: "Innospec"},
	}
	for i := range additives {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&additives[i]).Error; err != nil {
			fmt.Fprintf(os.Stderr, "seed additive type: %v\n", err)
			os.Exit(1)
		}
	}

	ships := []struct {
		name      string
		imo       string
		machinery []string
	}{
		{"MV Coral Trader", "9700100", []string{"Main Engine", "Aux Engine 1", "Boiler"}},
		{"MV Baltic Star", "9700200", []string{"Main Engine", "Aux Engine 1", "Aux Engine 2"}},
	}
	for _, s := range ships {
		ship := models.Ship{FleetId: *fleetId, Name: s.name, ImoNumber: s.imo, IsActive: utils.NewTrue()}
		err := db.Where("fleet_id = ? AND imo_number = ?", *fleetId, s.imo).FirstOrCreate(&ship).Error
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed ship %s: %v\n", s.name, err)
			os.Exit(1)
		}
		for _, m := range s.machinery {
			machineryType := models.MachineryTypeOther
			switch {
			case strings.HasPrefix(m, "Main"):
				machineryType = models.MachineryTypeMainEngine
			case strings.HasPrefix(m, "Aux"):
				machineryType = models.MachineryTypeAuxEngine
			case strings.HasPrefix(m, "Boiler"):
				machineryType = models.MachineryTypeBoiler
			}
			machinery := models.Machinery{FleetId: *fleetId, ShipId: ship.ID, Name: m, MachineryType: machineryType}
			if err := db.Where("fleet_id = ? AND ship_id = ? AND name = ?", *fleetId, ship.ID, m).
				FirstOrCreate(&machinery).Error; err != nil {
				fmt.Fprintf(os.Stderr, "seed machinery %s: %v\n", m, err)
				os.Exit(1)
			}
		}
		fmt.Printf("Seeded ship %q (id=%d) with %d machinery\n", ship.Name, ship.ID, len(s.machinery))
	}

	if os.Getenv("TOKEN_HOUR_LIFESPAN") == "" {
		os.Setenv("TOKEN_HOUR_LIFESPAN", "24")
	}
	token, err := utils.JwtGenerate(1, *fleetId, "admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate token: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Fleet %q seeded.\nBearer token:\n%s\n", *fleetId, token)
}
