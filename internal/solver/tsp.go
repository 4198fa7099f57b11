package solver

import (
	"time"

	"github.com/dragonseats/optimizer/pkg/geo"
)

const (
	// tspMaxBudget caps the tour search regardless of the solver
	// timeout.
	tspMaxBudget = 5 * time.Second

	// tspUnknownPenalty is the cost for pairs with no matrix index.
	tspUnknownPenalty = 10000

	// tspDeadlineStride keeps deadline checks off the hot path.
	tspDeadlineStride = 1024
)

// reorderStops re-sequences a multi-stop trip with a depot-closed tour
// search: the hub is the depot, stop-to-stop costs are integer miles
// (×10 for precision), and the search runs nearest-neighbor seeding
// followed by 2-opt improvement under a soft deadline of
// min(timeout, 5s), or 5s when timeout is not positive. The solution is applied only when it visits
// exactly the trip's stop count; otherwise the original order stands.
func reorderStops(trip *Trip, matrix *Matrix, timeout time.Duration) []*TripStop {
	stops := trip.Stops
	n := len(stops) + 1 // +1 for the depot

	if n <= 3 {
		return stops // not worth re-sequencing two stops
	}

	// Resolve depot and stop locations by display label, the way trip
	// records reference matrix nodes.
	nodes := make([]*geo.LatLng, n)
	nodes[0] = findByLabel(matrix, trip.OriginHubName)
	for i, stop := range stops {
		nodes[i+1] = findByLabel(matrix, stop.VenueName)
	}

	cost := make([][]int, n)
	for i := range cost {
		cost[i] = make([]int, n)
		for j := range cost[i] {
			if i == j {
				continue
			}
			cost[i][j] = tspUnknownPenalty
			if nodes[i] == nil || nodes[j] == nil {
				continue
			}
			ii, iok := matrix.LocationIndex(*nodes[i])
			jj, jok := matrix.LocationIndex(*nodes[j])
			if iok && jok {
				cost[i][j] = int(matrix.DistanceMiles(ii, jj) * 10)
			}
		}
	}

	budget := timeout
	if budget <= 0 || budget > tspMaxBudget {
		budget = tspMaxBudget
	}
	order := solveDepotTour(cost, time.Now().Add(budget))

	if len(order) != len(stops) {
		return stops // solver fault — keep the original order
	}

	reordered := make([]*TripStop, 0, len(stops))
	for i, idx := range order {
		stop := stops[idx]
		stop.StopOrder = i + 1
		reordered = append(reordered, stop)
	}
	return reordered
}

// solveDepotTour finds a low-cost closed tour over cost starting and
// ending at node 0, returning the visiting order of the remaining
// nodes as 0-based stop indices. Nearest-neighbor seeds the tour;
// 2-opt improves it until no move helps or the deadline passes. The
// search is fully deterministic: candidates are scanned in index
// order and only strict improvements are taken.
func solveDepotTour(cost [][]int, deadline time.Time) []int {
	n := len(cost)
	if n <= 1 {
		return nil
	}

	// Nearest-neighbor construction from the depot.
	visited := make([]bool, n)
	visited[0] = true
	tour := make([]int, 0, n)
	tour = append(tour, 0)
	current := 0
	for len(tour) < n {
		next := -1
		best := 0
		for v := 1; v < n; v++ {
			if visited[v] {
				continue
			}
			if next == -1 || cost[current][v] < best {
				next = v
				best = cost[current][v]
			}
		}
		visited[next] = true
		tour = append(tour, next)
		current = next
	}

	// 2-opt: reverse tour[i..j] (depot fixed at position 0) whenever
	// the reconnected edges are strictly cheaper.
	steps := 0
	improved := true
	for improved {
		improved = false
		for i := 1; i < n-1; i++ {
			for j := i + 1; j < n; j++ {
				steps++
				if steps%tspDeadlineStride == 0 && time.Now().After(deadline) {
					return tourStops(tour)
				}

				a, b := tour[i-1], tour[i]
				c := tour[j]
				d := 0 // wraps to the depot
				if j+1 < n {
					d = tour[j+1]
				}

				before := cost[a][b] + cost[c][d]
				after := cost[a][c] + cost[b][d]
				if after < before {
					reverse(tour, i, j)
					improved = true
				}
			}
		}
	}

	return tourStops(tour)
}

// tourStops converts a depot-rooted tour into 0-based stop indices.
func tourStops(tour []int) []int {
	out := make([]int, 0, len(tour)-1)
	for _, node := range tour[1:] {
		out = append(out, node-1)
	}
	return out
}

func reverse(v []int, i, j int) {
	for i < j {
		v[i], v[j] = v[j], v[i]
		i++
		j--
	}
}

func findByLabel(matrix *Matrix, label string) *geo.LatLng {
	for _, loc := range matrix.Locations() {
		if loc.Label == label {
			l := loc
			return &l
		}
	}
	return nil
}
