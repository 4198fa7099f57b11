// Command fixvenues backfills game_schedule.venue_id from each
// customer's primary venue, using bulk PATCH calls grouped by
// customer for speed.
package main

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"github.com/dragonseats/optimizer/config"
	"github.com/dragonseats/optimizer/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	store := repository.NewStoreClient(cfg.Store.URL, cfg.Store.ServiceKey)
	if !store.Configured() {
		log.Fatal("STORE_URL and STORE_SERVICE_KEY must be set")
	}

	ctx := context.Background()

	// Step 1: get all venues and map each customer to its primary one.
	venues, err := store.Get(ctx, "venues", url.Values{
		"select": {"id,customer_id,name,is_primary"},
	})
	if err != nil {
		log.Fatalf("load venues: %v", err)
	}
	fmt.Printf("Found %d venues\n", len(venues))

	customerVenue := make(map[string]string)
	for _, v := range venues {
		cid, _ := v["customer_id"].(string)
		if cid == "" {
			continue
		}
		isPrimary, _ := v["is_primary"].(bool)
		if _, seen := customerVenue[cid]; !seen || isPrimary {
			customerVenue[cid], _ = v["id"].(string)
		}
	}
	fmt.Printf("Customer-to-venue mapping: %d entries\n", len(customerVenue))

	// Step 2: bulk-update each customer's games that lack a venue.
	updated := 0
	for customerID, venueID := range customerVenue {
		err := store.Patch(ctx, "game_schedule", url.Values{
			"customer_id": {"eq." + customerID},
			"venue_id":    {"is.null"},
		}, map[string]any{"venue_id": venueID})
		if err != nil {
			log.Fatalf("update games for customer %s: %v", customerID, err)
		}
		updated++
		fmt.Printf("  Updated games for customer %.8s... -> venue %.8s...\n", customerID, venueID)
	}
	fmt.Printf("\nDone! Updated games for %d customers\n", updated)

	// Verify.
	remaining, err := store.Get(ctx, "game_schedule", url.Values{
		"select":   {"id"},
		"venue_id": {"is.null"},
	})
	if err != nil {
		log.Fatalf("verify: %v", err)
	}
	fmt.Printf("Games still without venue_id: %d\n", len(remaining))

	fixed, err := store.Get(ctx, "game_schedule", url.Values{
		"select":   {"id"},
		"venue_id": {"not.is.null"},
	})
	if err != nil {
		log.Fatalf("verify: %v", err)
	}
	fmt.Printf("Games with venue_id: %d\n", len(fixed))
}
