// ledger-rebuild re-chains ROB ledgers after manual row surgery (for example
// an approved backdated correction inserted directly in the database).
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/ledger-rebuild --fleet-id <fleet> [--ship-id N --category FUEL --item-type HFO]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/seadatafocus/memp_backend/config"
	"github.com/seadatafocus/memp_backend/models"
	"github.com/seadatafocus/memp_backend/utils"
	"github.com/seadatafocus/memp_backend/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	fleetId := flag.String("fleet-id", "", "Required: fleet id")
	shipId := flag.Int("ship-id", 0, "Optional: ship id (rebuild a single chain)")
	category := flag.String("category", "", "Optional: bunker category (FUEL/LUBE_OIL), required with --ship-id")
	itemType := flag.String("item-type", "", "Optional: item type key, required with --ship-id")
	continueOnError := flag.Bool("continue-on-error", false, "Skip failing chains and continue rebuilding others")
	flag.Parse()

	if strings.TrimSpace(*fleetId) == "" {
		fmt.Fprintln(os.Stderr, "--fleet-id is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := logrus.New()

	// Operator tool: fleet filters are explicit in every query, so the
	// fleet-guard plugin is switched off for this run.
	ctx := utils.SetSkipFleetScopeInContext(context.Background(), true)

	var keys []workflow.LedgerKey
	if *shipId > 0 {
		cat := models.BunkerCategory(strings.ToUpper(strings.TrimSpace(*category)))
		if !cat.IsValid() || strings.TrimSpace(*itemType) == "" {
			fmt.Fprintln(os.Stderr, "--category and --item-type are required with --ship-id")
			os.Exit(1)
		}
		keys = append(keys, workflow.LedgerKey{
			ShipId:         *shipId,
			BunkerCategory: cat,
			ItemTypeKey:    strings.TrimSpace(*itemType),
		})
	} else {
		discovered, err := workflow.DiscoverLedgerKeys(db.WithContext(ctx), *fleetId)
		if err != nil {
			fmt.Fprintf(os.Stderr, "discover chains: %v\n", err)
			os.Exit(1)
		}
		keys = discovered
	}

	for _, key := range keys {
		fmt.Printf("Rebuilding fleet=%s ship=%d category=%s item=%s\n",
			*fleetId, key.ShipId, key.BunkerCategory, key.ItemTypeKey)
		if err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			changed, err := workflow.RebuildLedgerForKey(tx, logger, *fleetId, key)
			if err != nil {
				return err
			}
			fmt.Printf("  %d row(s) changed\n", changed)
			return nil
		}); err != nil {
			if *continueOnError {
				fmt.Fprintf(os.Stderr, "rebuild failed (skipping): %v\n", err)
				continue
			}
			fmt.Fprintf(os.Stderr, "rebuild failed: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("ledger rebuild complete")
}
