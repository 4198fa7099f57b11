package solver

import (
	"math"

	"github.com/dragonseats/optimizer/pkg/geo"
)

// Scoring component weights.
const (
	weightDistance    = 0.40
	weightCapacity    = 0.20
	weightTime        = 0.15
	weightConstraints = 0.15
	weightMultiStop   = 0.10
)

// nominalCapacityLbs is the capacity assumption for utilization
// scoring; trip records do not carry the vehicle's declared capacity.
const nominalCapacityLbs = 10000.0

// relaxationPenalties reduce the constraint-satisfaction component per
// cascade step applied. Unknown actions cost 10.
var relaxationPenalties = map[string]float64{
	ActionRelaxedSoftConstraints: 10,
	ActionRelaxedBranding:        20,
	ActionSplitMultiStop:         15,
	ActionCrossHubAssignments:    25,
	ActionPartialSolution:        30,
}

// ScoreRun scores every trip in the result and computes the run
// average. Unassigned demands subtract min(30, 5×count) from the run
// average only, floored at 0. An empty result with nothing unassigned
// scores 100.
func ScoreRun(result *Result, matrix *Matrix) *Result {
	if len(result.Trips) == 0 {
		if result.HasUnassigned() {
			result.AverageScore = 0
		} else {
			result.AverageScore = 100
		}
		return result
	}

	total := 0.0
	for _, trip := range result.Trips {
		trip.OptimizerScore = ScoreTrip(trip, matrix, result)
		total += trip.OptimizerScore
	}
	result.AverageScore = geo.Round1(total / float64(len(result.Trips)))

	if result.HasUnassigned() {
		penalty := math.Min(30, float64(len(result.UnassignedDemands))*5)
		result.AverageScore = math.Max(0, result.AverageScore-penalty)
	}

	return result
}

// ScoreTrip calculates a quality score (0–100) for a single trip from
// weighted components: distance efficiency (40%), capacity utilization
// (20%), time efficiency (15%), constraint satisfaction (15%), and the
// multi-stop bonus (10%).
func ScoreTrip(trip *Trip, matrix *Matrix, result *Result) float64 {
	total := scoreDistanceEfficiency(trip, matrix)*weightDistance +
		scoreCapacityUtilization(trip)*weightCapacity +
		scoreTimeEfficiency(trip)*weightTime +
		scoreConstraintSatisfaction(result)*weightConstraints +
		scoreMultiStopBonus(trip)*weightMultiStop

	return geo.Round1(math.Max(0, math.Min(100, total)))
}

// scoreDistanceEfficiency compares the actual route against the
// theoretical minimum round trip (2× straight line to the furthest
// stop), with the 1.3 road factor treated as perfect.
func scoreDistanceEfficiency(trip *Trip, matrix *Matrix) float64 {
	if trip.TotalMiles <= 0 {
		return 100
	}

	hubLoc := findByLabel(matrix, trip.OriginHubName)
	if hubLoc == nil {
		return 50 // unknown hub, neutral score
	}

	maxStraightLine := 0.0
	for _, stop := range trip.Stops {
		if loc := findByLabel(matrix, stop.VenueName); loc != nil {
			if d := geo.HaversineMiles(*hubLoc, *loc); d > maxStraightLine {
				maxStraightLine = d
			}
		}
	}
	if maxStraightLine <= 0 {
		return 50
	}

	minDistance := 2 * maxStraightLine
	ratio := minDistance / trip.TotalMiles
	// A road route runs ~1.3x the straight line, so 0.77 is perfect.
	adjusted := math.Min(ratio/0.77, 1.0)

	return math.Max(0, math.Min(100, adjusted*100))
}

// scoreCapacityUtilization rewards a well-filled vehicle: 50–90% of
// the nominal capacity scores 100, overloads fall toward 60, and
// light loads scale down with a floor of 20.
func scoreCapacityUtilization(trip *Trip) float64 {
	if len(trip.Assets) == 0 {
		return 0
	}

	totalWeight := 0.0
	for _, a := range trip.Assets {
		totalWeight += EstimateAssetWeight(a.AssetType)
	}
	utilization := totalWeight / nominalCapacityLbs

	switch {
	case utilization >= 0.5 && utilization <= 0.9:
		return 100
	case utilization > 0.9:
		return math.Max(60, 100-(utilization-0.9)*200)
	default:
		return math.Max(20, utilization/0.5*100)
	}
}

// scoreTimeEfficiency compares drive time against the DOT limit.
func scoreTimeEfficiency(trip *Trip) float64 {
	if trip.TotalDriveHrs <= 0 {
		return 100
	}

	ratio := trip.TotalDriveHrs / float64(DefaultMaxDriveHrs)
	switch {
	case ratio <= 0.7:
		return 100
	case ratio <= 0.9:
		return 80 + (0.9-ratio)/0.2*20
	case ratio <= 1.0:
		return 50 + (1.0-ratio)/0.1*30
	default:
		return math.Max(0, 50-(ratio-1.0)*100)
	}
}

// scoreConstraintSatisfaction starts at 100 and subtracts a penalty
// per relaxation entry, floored at 0.
func scoreConstraintSatisfaction(result *Result) float64 {
	if len(result.ConstraintRelaxations) == 0 {
		return 100
	}

	total := 0.0
	for _, relaxation := range result.ConstraintRelaxations {
		if p, ok := relaxationPenalties[relaxation.Action]; ok {
			total += p
		} else {
			total += 10
		}
	}
	return math.Max(0, 100-total)
}

// scoreMultiStopBonus rewards grouped deliveries.
func scoreMultiStopBonus(trip *Trip) float64 {
	switch n := len(trip.Stops); {
	case n <= 1:
		return 50 // neutral — a single stop is normal
	case n == 2:
		return 75
	case n == 3:
		return 90
	default:
		return 100
	}
}
