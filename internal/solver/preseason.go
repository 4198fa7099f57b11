package solver

import (
	"fmt"
	"log"
	"time"

	"github.com/dragonseats/optimizer/internal/model"
)

// MaxPreseasonPasses bounds the week-0 multi-pass loop.
const MaxPreseasonPasses = 10

// PlanPreseason runs the multi-pass planner for week-0 pre-season
// deployment. Trucks make repeated round trips over days, so vehicles
// and personnel recycle between passes — but an asset delivered to a
// venue cannot ship again.
//
// Each pass:
//  1. Re-cluster the venues whose demands are still unserved
//  2. Run the standard planner with the accumulated consumed-asset set
//  3. Collect trips; release vehicles and personnel; keep assets
//  4. Mark (venue, customer) demands served by this pass's stops
//
// The loop stops when no demands remain, a pass produces no trips or
// consumes no new assets, the 3× timeout budget runs out, or
// MaxPreseasonPasses is hit.
func PlanPreseason(wd *model.WeekData, matrix *Matrix, cons *Constraints, clusters []*VenueCluster, timeout time.Duration, maxRadiusMiles float64, maxStops int) *Result {
	start := time.Now()
	totalBudget := 3 * timeout

	combined := NewResult()
	globalUsedAssets := make(map[string]bool)
	allDemands := cons.Demands

	type servedKey struct{ venueID, customerID string }
	served := make(map[servedKey]bool)

	passClusters := clusters
	for pass := 1; pass <= MaxPreseasonPasses; pass++ {
		elapsed := time.Since(start)
		if elapsed >= totalBudget {
			combined.Warnings = append(combined.Warnings,
				fmt.Sprintf("Time budget exceeded after %d passes", pass-1))
			break
		}

		var remaining []Demand
		for _, d := range allDemands {
			if !served[servedKey{d.VenueID, d.CustomerID}] {
				remaining = append(remaining, d)
			}
		}
		if len(remaining) == 0 {
			break
		}

		// Week 0 has no time crunch: windows and buffers drop, but
		// branding blocks and resource counts carry over.
		passCons := &Constraints{
			Demands:                    remaining,
			TimeWindows:                make(map[string]TimeWindow),
			MaxDriveHrs:                cons.MaxDriveHrs,
			WeightMinimizeMiles:        DefaultWeightMinimizeMiles,
			WeightMinimizeVehicles:     DefaultWeightMinimizeVehicles,
			WeightPreferClosestHub:     DefaultWeightPreferClosestHub,
			WeightMinimizeRebranding:   DefaultWeightMinimizeRebranding,
			WeightGeographicClustering: DefaultWeightGeographicClustering,
			BlockedAssetIDs:            cons.BlockedAssetIDs,
			HubVehicleCounts:           cons.HubVehicleCounts,
			HubPersonnelCounts:         cons.HubPersonnelCounts,
		}

		if pass > 1 {
			remainingIDs := make(map[string]bool, len(remaining))
			for _, d := range remaining {
				remainingIDs[d.VenueID] = true
			}
			var remainingVenues []model.Venue
			for _, v := range wd.GameVenues() {
				if remainingIDs[v.ID] {
					remainingVenues = append(remainingVenues, v)
				}
			}
			passClusters = ClusterVenues(remainingVenues, wd.HubLocations(), matrix, maxRadiusMiles, maxStops)
		}
		if len(passClusters) == 0 {
			break
		}

		passTimeout := totalBudget - elapsed
		if timeout < passTimeout {
			passTimeout = timeout
		}

		// Vehicles and personnel are fresh each pass; only assets
		// accumulate.
		prevAssetCount := len(globalUsedAssets)
		result := PlanWeek(wd, matrix, passCons, passClusters, passTimeout, globalUsedAssets)

		if len(result.Trips) == 0 {
			combined.UnassignedDemands = append(combined.UnassignedDemands, result.UnassignedDemands...)
			combined.Warnings = append(combined.Warnings,
				fmt.Sprintf("Pass %d: No trips generated, %d demands remain", pass, len(remaining)))
			break
		}

		combined.Trips = append(combined.Trips, result.Trips...)
		combined.Warnings = append(combined.Warnings, result.Warnings...)
		combined.Warnings = append(combined.Warnings,
			fmt.Sprintf("Pass %d: %d trips generated", pass, len(result.Trips)))

		for _, trip := range result.Trips {
			for _, asset := range trip.Assets {
				globalUsedAssets[asset.AssetID] = true
			}
		}

		newAssets := len(globalUsedAssets) - prevAssetCount
		if newAssets == 0 {
			combined.Warnings = append(combined.Warnings,
				fmt.Sprintf("Pass %d: No new assets consumed, stopping", pass))
			combined.UnassignedDemands = append(combined.UnassignedDemands, result.UnassignedDemands...)
			break
		}

		for _, trip := range result.Trips {
			for _, stop := range trip.Stops {
				if stop.Demand != nil {
					served[servedKey{stop.Demand.VenueID, stop.Demand.CustomerID}] = true
				}
			}
		}

		log.Printf("[week0] Pass %d: %d trips, %d assets consumed, %d still unassigned",
			pass, len(result.Trips), newAssets, len(result.UnassignedDemands))

		if !result.HasUnassigned() {
			break
		}
	}

	combined.SolveTimeMs = time.Since(start).Milliseconds()
	if combined.HasUnassigned() {
		combined.Status = StatusPartial
	} else {
		combined.Status = StatusCompleted
	}

	log.Printf("[week0] Complete: %d total trips, %dms", len(combined.Trips), combined.SolveTimeMs)
	return combined
}
