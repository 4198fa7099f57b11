package solver

import (
	"math"
	"sort"

	"github.com/dragonseats/optimizer/internal/model"
	"github.com/dragonseats/optimizer/pkg/geo"
)

// VenueCluster is a group of venues to be served in a single
// multi-stop trip. Venues are stored in visiting order.
type VenueCluster struct {
	Venues              []model.Venue
	TotalDemandWeight   float64
	TotalDemandQuantity int
	OrderedVenueIDs     []string
}

// IsMultiStop reports whether the cluster has more than one venue.
func (c *VenueCluster) IsMultiStop() bool {
	return len(c.Venues) > 1
}

// VenueIDs returns the member venue IDs as a set.
func (c *VenueCluster) VenueIDs() map[string]bool {
	ids := make(map[string]bool, len(c.Venues))
	for _, v := range c.Venues {
		ids[v.ID] = true
	}
	return ids
}

// SingleStopClusters wraps each venue in its own cluster — used by the
// relaxation cascade to remove cluster capacity limits.
func SingleStopClusters(venues []model.Venue) []*VenueCluster {
	clusters := make([]*VenueCluster, 0, len(venues))
	for _, v := range venues {
		clusters = append(clusters, &VenueCluster{
			Venues:          []model.Venue{v},
			OrderedVenueIDs: []string{v.ID},
		})
	}
	return clusters
}

// ClusterVenues groups venues into clusters for multi-stop trips.
//
// Algorithm: greedy geographic clustering
//  1. Sort venues by distance from their nearest hub, farthest first —
//     far venues benefit most from shared trips
//  2. Seed a cluster with each unassigned venue in that order; extend
//     it with later unassigned venues within maxRadiusMiles of the
//     seed, up to maxStops
//  3. Order each cluster's stops nearest-neighbor from the hub closest
//     to the seed
//
// Venues without coordinates are emitted as single-stop clusters at
// the end. Ties break by encountering order in the sorted list.
func ClusterVenues(venues []model.Venue, hubLocations []geo.LatLng, matrix *Matrix, maxRadiusMiles float64, maxStops int) []*VenueCluster {
	if len(venues) == 0 {
		return nil
	}

	var valid []model.Venue
	for _, v := range venues {
		if _, ok := v.Location(); ok {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return SingleStopClusters(venues)
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return nearestHubDistance(valid[i], hubLocations) > nearestHubDistance(valid[j], hubLocations)
	})

	assigned := make(map[string]bool)
	var clusters []*VenueCluster

	for _, venue := range valid {
		if assigned[venue.ID] {
			continue
		}
		seedLoc, ok := venue.Location()
		if !ok {
			continue
		}

		members := []model.Venue{venue}
		assigned[venue.ID] = true

		for _, candidate := range valid {
			if assigned[candidate.ID] {
				continue
			}
			if len(members) >= maxStops {
				break
			}
			candLoc, ok := candidate.Location()
			if !ok {
				continue
			}
			if geo.HaversineMiles(seedLoc, candLoc) <= maxRadiusMiles {
				members = append(members, candidate)
				assigned[candidate.ID] = true
			}
		}

		ordered := members
		if len(hubLocations) > 0 {
			nearestHub := hubLocations[0]
			bestDist := geo.HaversineMiles(seedLoc, nearestHub)
			for _, h := range hubLocations[1:] {
				if d := geo.HaversineMiles(seedLoc, h); d < bestDist {
					nearestHub = h
					bestDist = d
				}
			}
			ordered = orderStopsNearestNeighbor(members, nearestHub, matrix)
		}

		ids := make([]string, 0, len(ordered))
		for _, v := range ordered {
			ids = append(ids, v.ID)
		}
		clusters = append(clusters, &VenueCluster{
			Venues:          ordered,
			OrderedVenueIDs: ids,
		})
	}

	// Venues without coordinates become single-stop clusters.
	for _, venue := range venues {
		if !assigned[venue.ID] {
			clusters = append(clusters, &VenueCluster{
				Venues:          []model.Venue{venue},
				OrderedVenueIDs: []string{venue.ID},
			})
		}
	}

	return clusters
}

func nearestHubDistance(venue model.Venue, hubs []geo.LatLng) float64 {
	loc, ok := venue.Location()
	if !ok || len(hubs) == 0 {
		return math.Inf(1)
	}
	best := math.Inf(1)
	for _, h := range hubs {
		if d := geo.HaversineMiles(loc, h); d < best {
			best = d
		}
	}
	return best
}

// orderStopsNearestNeighbor orders venues by repeatedly visiting the
// closest remaining one, starting from the hub. Matrix miles are used
// when both endpoints have indices; haversine otherwise.
func orderStopsNearestNeighbor(venues []model.Venue, start geo.LatLng, matrix *Matrix) []model.Venue {
	if len(venues) <= 1 {
		return venues
	}

	ordered := make([]model.Venue, 0, len(venues))
	remaining := append([]model.Venue(nil), venues...)
	current := start

	for len(remaining) > 0 {
		bestIdx := 0
		bestDist := math.Inf(1)

		for i, venue := range remaining {
			loc, ok := venue.Location()
			if !ok {
				continue
			}
			var d float64
			ci, cok := matrix.LocationIndex(current)
			vi, vok := matrix.LocationIndex(loc)
			if cok && vok {
				d = matrix.DistanceMiles(ci, vi)
			} else {
				d = geo.HaversineMiles(current, loc)
			}
			if d < bestDist {
				bestDist = d
				bestIdx = i
			}
		}

		next := remaining[bestIdx]
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		ordered = append(ordered, next)
		if loc, ok := next.Location(); ok {
			current = loc
		}
	}

	return ordered
}
