package solver

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dragonseats/optimizer/internal/model"
)

// Cascade step action tags, also consumed by scoring penalties.
const (
	ActionRelaxedSoftConstraints = "relaxed_soft_constraints"
	ActionRelaxedBranding        = "relaxed_branding"
	ActionSplitMultiStop         = "split_multi_stop"
	ActionCrossHubAssignments    = "cross_hub_assignments"
	ActionPartialSolution        = "partial_solution"
)

const relaxedWeight = 0.1

// CascadeParams carries the clustering and timing knobs the cascade
// reuses when it re-runs the pipeline.
type CascadeParams struct {
	Timeout             time.Duration
	MaxClusterRadiusMi  float64
	MaxStops            int
	SetupBufferHours    float64
	TeardownBufferHours float64
}

// HandleInfeasibility applies the constraint-relaxation cascade to an
// infeasible result.
//
// Cascade steps:
//  1. Relax soft constraints (allow more miles, more vehicles)
//  2. Ignore branding blocks (may require follow-up rebranding)
//  3. Step 2 + split every cluster into single-stop trips
//  4. Step 3 + drop the closest-hub preference
//  5. Classify what remains unassigned with a specific diagnosis
//  6. Mark the run partial
//
// Each attempt re-runs the full pipeline with relaxed inputs; the best
// result (fewest unassigned) wins, and the cascade stops early once
// nothing is unassigned. Relaxation-log entries accumulate across
// improving steps so the final log records every step that helped.
func HandleInfeasibility(wd *model.WeekData, matrix *Matrix, initial *Result, params CascadeParams) *Result {
	best := initial
	if !initial.HasUnassigned() {
		return best
	}

	var relaxLog []RelaxationEntry
	adopt := func(candidate *Result, entry RelaxationEntry) {
		relaxLog = append(relaxLog, entry)
		candidate.ConstraintRelaxations = append([]RelaxationEntry(nil), relaxLog...)
		best = candidate
	}

	type step struct {
		number int
		action string
		detail string
		run    func() *Result
	}

	steps := []step{
		{
			number: 1,
			action: ActionRelaxedSoftConstraints,
			detail: "Allowed more miles, more vehicles, relaxed hub preference",
			run: func() *Result {
				cons := BuildConstraints(wd, params.SetupBufferHours, params.TeardownBufferHours)
				cons.WeightMinimizeMiles = relaxedWeight
				cons.WeightMinimizeVehicles = relaxedWeight
				cons.WeightPreferClosestHub = relaxedWeight
				cons.WeightMinimizeRebranding = relaxedWeight
				cons.WeightGeographicClustering = relaxedWeight
				clusters := ClusterVenues(wd.GameVenues(), wd.HubLocations(), matrix, params.MaxClusterRadiusMi, params.MaxStops)
				return PlanWeek(wd, matrix, cons, clusters, params.Timeout, nil)
			},
		},
		{
			number: 2,
			action: ActionRelaxedBranding,
			detail: "Allowed unbranded or mismatched branding assets",
			run: func() *Result {
				cons := BuildConstraints(wd, params.SetupBufferHours, params.TeardownBufferHours)
				cons.BlockedAssetIDs = make(map[string]bool)
				cons.WeightMinimizeRebranding = 0
				clusters := ClusterVenues(wd.GameVenues(), wd.HubLocations(), matrix, params.MaxClusterRadiusMi, params.MaxStops)
				return PlanWeek(wd, matrix, cons, clusters, params.Timeout, nil)
			},
		},
		{
			number: 3,
			action: ActionSplitMultiStop,
			detail: "Split multi-stop trips into individual routes",
			run: func() *Result {
				cons := BuildConstraints(wd, params.SetupBufferHours, params.TeardownBufferHours)
				cons.BlockedAssetIDs = make(map[string]bool)
				cons.WeightMinimizeRebranding = 0
				return PlanWeek(wd, matrix, cons, SingleStopClusters(wd.GameVenues()), params.Timeout, nil)
			},
		},
		{
			number: 4,
			action: ActionCrossHubAssignments,
			detail: "Allowed vehicles from distant hubs to cover nearby games",
			run: func() *Result {
				cons := BuildConstraints(wd, params.SetupBufferHours, params.TeardownBufferHours)
				cons.BlockedAssetIDs = make(map[string]bool)
				cons.WeightMinimizeRebranding = 0
				cons.WeightPreferClosestHub = 0
				return PlanWeek(wd, matrix, cons, SingleStopClusters(wd.GameVenues()), params.Timeout, nil)
			},
		},
	}

	for _, s := range steps {
		candidate := s.run()
		if candidate == nil || len(candidate.UnassignedDemands) >= len(best.UnassignedDemands) {
			continue
		}
		log.Printf("[cascade] step %d (%s): %d unassigned (was %d)",
			s.number, s.action, len(candidate.UnassignedDemands), len(best.UnassignedDemands))
		adopt(candidate, RelaxationEntry{Step: s.number, Action: s.action, Detail: s.detail})
		if s.number == 2 {
			best.Warnings = append(best.Warnings, "Some assets may need rebranding before deployment")
		}
		if !best.HasUnassigned() {
			return best
		}
	}

	best = classifyUnassigned(best, wd)

	if best.HasUnassigned() {
		best.Status = StatusPartial
		best.ConstraintRelaxations = append(best.ConstraintRelaxations, RelaxationEntry{
			Step:   6,
			Action: ActionPartialSolution,
			Detail: fmt.Sprintf("%d demands could not be fulfilled", len(best.UnassignedDemands)),
		})
	}

	return best
}

// classifyUnassigned replaces generic unassignment reasons with a
// specific diagnosis of what the fleet is missing. Lines whose reason
// already mentions availability (a shortfall count or the no-vehicle
// reason) keep their reason.
func classifyUnassigned(result *Result, wd *model.WeekData) *Result {
	for i := range result.UnassignedDemands {
		demand := &result.UnassignedDemands[i]
		if strings.Contains(strings.ToLower(demand.Reason), "available") {
			continue
		}

		var matching []model.Asset
		for _, a := range wd.Assets {
			if a.AssetType == demand.AssetType &&
				a.Condition != model.ConditionOutOfService &&
				a.Condition != model.ConditionNeedsRepair {
				matching = append(matching, a)
			}
		}

		switch {
		case len(matching) == 0:
			demand.Reason = "Asset type/model not available in inventory"
		case noneAtHub(matching):
			demand.Reason = fmt.Sprintf("All %s assets are deployed — none at hub", demand.AssetType)
		case len(wd.Vehicles) == 0:
			demand.Reason = reasonNoVehicle
		case countDriverRoles(wd.Personnel) == 0:
			demand.Reason = "No personnel available at nearest hub"
		default:
			demand.Reason = "Insufficient resources to cover all demands this week"
		}
	}
	return result
}

func noneAtHub(assets []model.Asset) bool {
	for _, a := range assets {
		if a.Status == model.AssetAtHub {
			return false
		}
	}
	return true
}

func countDriverRoles(personnel []model.Person) int {
	count := 0
	for _, p := range personnel {
		if p.Role == model.RoleDriver || p.Role == model.RoleLeadTech {
			count++
		}
	}
	return count
}
