package solver

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dragonseats/optimizer/internal/model"
	"github.com/dragonseats/optimizer/pkg/geo"
)

const reasonNoVehicle = "No vehicle with sufficient capacity available"

// PlanWeek runs the weekly assignment planner.
//
// For each cluster of venues:
//  1. Find the nearest hub with an available vehicle
//  2. Match assets to demands (type, model, branding)
//  3. Assign vehicle and personnel
//  4. Calculate route distance and time
//  5. Build the trip record
//
// Trips with 3+ stops are re-sequenced by the depot-closed tour
// search. preUsedAssetIDs seeds the consumed-asset set for preseason
// multi-pass runs; pass nil otherwise.
func PlanWeek(wd *model.WeekData, matrix *Matrix, cons *Constraints, clusters []*VenueCluster, timeout time.Duration, preUsedAssetIDs map[string]bool) *Result {
	start := time.Now()

	result := NewResult()
	usedVehicles := make(map[string]bool)
	usedAssets := make(map[string]bool)
	for id := range preUsedAssetIDs {
		usedAssets[id] = true
	}
	usedPersonnel := make(map[string]bool)

	// Heaviest clusters first — assign the biggest loads while the
	// fleet is still free.
	for _, cluster := range clusters {
		total := 0.0
		for _, venue := range cluster.Venues {
			for _, demand := range cons.Demands {
				if demand.VenueID == venue.ID {
					total += demand.TotalWeightLbs
				}
			}
		}
		cluster.TotalDemandWeight = total
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].TotalDemandWeight > clusters[j].TotalDemandWeight
	})

	for _, cluster := range clusters {
		trip, unassigned, warnings := buildTripForCluster(cluster, wd, matrix, cons, usedVehicles, usedAssets, usedPersonnel)
		if trip != nil {
			result.Trips = append(result.Trips, trip)
		}
		result.UnassignedDemands = append(result.UnassignedDemands, unassigned...)
		result.Warnings = append(result.Warnings, warnings...)
	}

	for _, trip := range result.Trips {
		if len(trip.Stops) >= 3 {
			trip.Stops = reorderStops(trip, matrix, timeout)
		}
	}

	result.SolveTimeMs = time.Since(start).Milliseconds()
	if result.HasUnassigned() {
		result.Status = StatusPartial
	} else {
		result.Status = StatusCompleted
	}
	return result
}

// buildTripForCluster assembles one trip for a venue cluster,
// returning the trip (nil when none could be built), the demand lines
// that went unfulfilled, and any warnings.
func buildTripForCluster(
	cluster *VenueCluster,
	wd *model.WeekData,
	matrix *Matrix,
	cons *Constraints,
	usedVehicles, usedAssets, usedPersonnel map[string]bool,
) (*Trip, []UnassignedDemand, []string) {
	var warnings []string
	var allUnassigned []UnassignedDemand

	if len(cluster.Venues) == 0 {
		return nil, nil, nil
	}

	firstVenue := cluster.Venues[0]
	hub, ok := wd.NearestHub(firstVenue)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("No hub found for venue %s", firstVenue.Name))
		return nil, nil, warnings
	}

	// Vehicle at the nearest hub, falling back to any other hub.
	vehicle, found := freeVehicleAtHub(wd, hub.ID, usedVehicles)
	if !found {
		for _, otherHub := range wd.Hubs {
			if otherHub.ID == hub.ID {
				continue
			}
			if v, ok := freeVehicleAtHub(wd, otherHub.ID, usedVehicles); ok {
				vehicle = v
				hub = otherHub
				found = true
				warnings = append(warnings, fmt.Sprintf(
					"Cross-hub: Using %s from %s for venue %s",
					v.Name, hub.Name, firstVenue.Name))
				break
			}
		}
	}
	if !found {
		for _, venue := range cluster.Venues {
			for _, demand := range cons.Demands {
				if demand.VenueID != venue.ID {
					continue
				}
				for _, item := range demand.Items {
					allUnassigned = append(allUnassigned, UnassignedDemand{
						CustomerName: demand.CustomerName,
						VenueName:    venue.Name,
						AssetType:    item.AssetType,
						Quantity:     item.Quantity,
						Reason:       reasonNoVehicle,
					})
				}
			}
		}
		return nil, allUnassigned, warnings
	}
	usedVehicles[vehicle.ID] = true

	// Gather assets venue by venue in clustered order. Candidates are
	// assets already on-site at the venue plus assets staged at the
	// chosen hub, minus anything already consumed this run.
	var tripAssets []TripAsset
	var tripStops []*TripStop
	totalWeight := 0.0

	hubAssets := unusedAssets(wd.AssetsAtHub(hub.ID), usedAssets)

	for _, venue := range cluster.Venues {
		var venueDemands []Demand
		for _, d := range cons.Demands {
			if d.VenueID == venue.ID {
				venueDemands = append(venueDemands, d)
			}
		}
		if len(venueDemands) == 0 {
			continue
		}

		for _, demand := range venueDemands {
			onSite := unusedAssets(wd.AssetsAtVenue(venue.ID), usedAssets)
			available := append(append([]model.Asset(nil), onSite...), hubAssets...)

			assigned, unassigned := assignAssetsToDemand(demand, available, cons, wd)
			allUnassigned = append(allUnassigned, unassigned...)

			for _, asset := range assigned {
				tripAssets = append(tripAssets, TripAsset{
					AssetID:      asset.ID,
					SerialNumber: asset.SerialNumber,
					AssetType:    asset.AssetType,
				})
				usedAssets[asset.ID] = true
				totalWeight += asset.WeightLbs
				hubAssets = removeAsset(hubAssets, asset.ID)
			}
		}

		demand := venueDemands[0]
		tripStops = append(tripStops, &TripStop{
			VenueID:   venue.ID,
			VenueName: venue.Name,
			StopOrder: len(tripStops) + 1,
			Action:    ActionDeliver,
			Demand:    &demand,
		})
	}

	if len(tripStops) == 0 {
		return nil, allUnassigned, warnings
	}

	// Overloads are surfaced for human review, never fatal.
	if !CheckCapacityWeight(vehicle, totalWeight) {
		warnings = append(warnings, fmt.Sprintf(
			"Vehicle %s may be overloaded: %.0f lbs vs %d lbs capacity",
			vehicle.Name, totalWeight, vehicle.CapacityLbs))
	}

	// Route: hub → stops in cluster order → hub.
	totalMiles := 0.0
	totalDriveMinutes := 0.0

	hubIdx, hubOK := matrix.LocationIndex(hub.Location())
	prevIdx, prevOK := hubIdx, hubOK
	for _, stop := range tripStops {
		venue, ok := findVenue(cluster.Venues, stop.VenueID)
		if !ok {
			continue
		}
		loc, ok := venue.Location()
		if !ok {
			continue
		}
		venueIdx, venueOK := matrix.LocationIndex(loc)
		if prevOK && venueOK {
			totalMiles += matrix.DistanceMiles(prevIdx, venueIdx)
			totalDriveMinutes += matrix.DurationMinutes(prevIdx, venueIdx)
		}
		prevIdx, prevOK = venueIdx, venueOK
	}
	if prevOK && hubOK {
		totalMiles += matrix.DistanceMiles(prevIdx, hubIdx)
		totalDriveMinutes += matrix.DurationMinutes(prevIdx, hubIdx)
	}

	personnel := assignPersonnel(hub, wd, usedPersonnel)
	if len(personnel) == 0 {
		warnings = append(warnings, fmt.Sprintf(
			"No personnel available at %s for trip to %s", hub.Name, firstVenue.Name))
	}

	trip := &Trip{
		VehicleID:     vehicle.ID,
		VehicleName:   vehicle.Name,
		OriginHubID:   hub.ID,
		OriginHubName: hub.Name,
		Stops:         tripStops,
		Assets:        tripAssets,
		Personnel:     personnel,
		TotalMiles:    geo.Round1(totalMiles),
		TotalDriveHrs: round2(totalDriveMinutes / 60),
	}

	return trip, allUnassigned, warnings
}

// assignAssetsToDemand matches available assets to the demand's
// contract items, consuming up to each item's quantity. Shortfalls
// become unassigned lines naming how many were found.
func assignAssetsToDemand(demand Demand, available []model.Asset, cons *Constraints, wd *model.WeekData) ([]model.Asset, []UnassignedDemand) {
	var assigned []model.Asset
	var unassigned []UnassignedDemand
	taken := make(map[string]bool)

	for _, item := range demand.Items {
		matched := 0
		for _, asset := range available {
			if taken[asset.ID] {
				continue
			}
			if matched >= item.Quantity {
				break
			}
			if MatchAssetToDemand(asset, item, cons.BlockedAssetIDs, wd.BrandingTasks) {
				assigned = append(assigned, asset)
				taken[asset.ID] = true
				matched++
			}
		}

		if matched < item.Quantity {
			venueName := "Unknown"
			if demand.Game.Venue != nil {
				venueName = demand.Game.Venue.Name
			}
			unassigned = append(unassigned, UnassignedDemand{
				CustomerName: demand.CustomerName,
				VenueName:    venueName,
				AssetType:    item.AssetType,
				Quantity:     item.Quantity - matched,
				Reason:       fmt.Sprintf("Only %d of %d %s available", matched, item.Quantity, item.AssetType),
			})
		}
	}

	return assigned, unassigned
}

// assignPersonnel reserves a driver (falling back to a lead or service
// tech behind the wheel) plus one extra service tech when one is free.
func assignPersonnel(hub model.Hub, wd *model.WeekData, usedPersonnel map[string]bool) []TripPerson {
	var personnel []TripPerson
	available := wd.AvailablePersonnelAtHub(hub.ID)

	for _, person := range available {
		if person.Role == model.RoleDriver && !usedPersonnel[person.ID] {
			personnel = append(personnel, TripPerson{
				PersonID:   person.ID,
				PersonName: person.Name,
				RoleOnTrip: string(model.RoleDriver),
			})
			usedPersonnel[person.ID] = true
			break
		}
	}

	if len(personnel) == 0 {
		for _, person := range available {
			if usedPersonnel[person.ID] {
				continue
			}
			if person.Role == model.RoleLeadTech || person.Role == model.RoleServiceTech {
				personnel = append(personnel, TripPerson{
					PersonID:   person.ID,
					PersonName: person.Name,
					RoleOnTrip: string(model.RoleDriver),
				})
				usedPersonnel[person.ID] = true
				break
			}
		}
	}

	for _, person := range available {
		if usedPersonnel[person.ID] {
			continue
		}
		if person.Role == model.RoleServiceTech || person.Role == model.RoleLeadTech {
			personnel = append(personnel, TripPerson{
				PersonID:   person.ID,
				PersonName: person.Name,
				RoleOnTrip: string(model.RoleServiceTech),
			})
			usedPersonnel[person.ID] = true
			break
		}
	}

	return personnel
}

func freeVehicleAtHub(wd *model.WeekData, hubID string, used map[string]bool) (model.Vehicle, bool) {
	for _, v := range wd.AvailableVehiclesAtHub(hubID) {
		if !used[v.ID] {
			return v, true
		}
	}
	return model.Vehicle{}, false
}

func unusedAssets(assets []model.Asset, used map[string]bool) []model.Asset {
	var out []model.Asset
	for _, a := range assets {
		if !used[a.ID] {
			out = append(out, a)
		}
	}
	return out
}

func removeAsset(assets []model.Asset, id string) []model.Asset {
	out := assets[:0]
	for _, a := range assets {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}

func findVenue(venues []model.Venue, id string) (model.Venue, bool) {
	for _, v := range venues {
		if v.ID == id {
			return v, true
		}
	}
	return model.Venue{}, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
