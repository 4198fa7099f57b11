package solver

import (
	"time"

	"github.com/dragonseats/optimizer/internal/model"
)

// Default soft-constraint weights. A constraint set with any weight
// below its default counts as relaxed.
const (
	DefaultWeightMinimizeMiles        = 1.0
	DefaultWeightMinimizeVehicles     = 0.8
	DefaultWeightPreferClosestHub     = 0.6
	DefaultWeightMinimizeRebranding   = 0.7
	DefaultWeightGeographicClustering = 0.5
	DefaultMaxDriveHrs                = 11 // DOT regulation
	DefaultServiceTimeMinutes         = 60
	DemandLeadTimeHours               = 24 // earliest arrival before game time
)

// Per-type weight estimates (lbs) for demand sizing and capacity
// scoring. Unknown types estimate at 100 lbs.
var assetWeightEstimates = map[string]float64{
	"heated_bench":     150,
	"cooling_bench":    150,
	"hybrid_bench":     150,
	"dragon_shader":    200,
	"heated_foot_deck": 50,
}

// EstimateAssetWeight returns the per-unit weight estimate for an
// asset type.
func EstimateAssetWeight(assetType string) float64 {
	if w, ok := assetWeightEstimates[assetType]; ok {
		return w
	}
	return 100
}

// TimeWindow bounds a stop's arrival: the vehicle must arrive between
// earliest and latest, then spends the service time on setup.
type TimeWindow struct {
	EarliestArrival    time.Time
	LatestArrival      time.Time
	ServiceTimeMinutes int
}

// Demand is the bill of materials one game requires at its venue.
type Demand struct {
	Game           model.Game
	VenueID        string
	CustomerID     string
	CustomerName   string
	Items          []model.ContractItem
	TotalQuantity  int
	TotalWeightLbs float64
	TimeWindow     *TimeWindow
}

// Constraints is the complete constraint set for a planning run. Hard
// constraints must hold; soft weights are relaxed by the cascade.
type Constraints struct {
	Demands             []Demand
	TimeWindows         map[string]TimeWindow // venue_id -> window
	MaxDriveHrs         int
	SetupBufferHours    float64
	TeardownBufferHours float64

	WeightMinimizeMiles        float64
	WeightMinimizeVehicles     float64
	WeightPreferClosestHub     float64
	WeightMinimizeRebranding   float64
	WeightGeographicClustering float64

	// Assets with active branding tasks — excluded from assignment.
	BlockedAssetIDs map[string]bool

	// Informational hub capacity counts.
	HubVehicleCounts   map[string]int
	HubPersonnelCounts map[string]int
}

// IsRelaxed reports whether any soft weight sits below its default.
func (c *Constraints) IsRelaxed() bool {
	return c.WeightMinimizeMiles < DefaultWeightMinimizeMiles ||
		c.WeightMinimizeVehicles < DefaultWeightMinimizeVehicles ||
		c.WeightPreferClosestHub < DefaultWeightPreferClosestHub ||
		c.WeightMinimizeRebranding < DefaultWeightMinimizeRebranding ||
		c.WeightGeographicClustering < DefaultWeightGeographicClustering
}

// gameTimeLayouts are the accepted time-of-day formats.
var gameTimeLayouts = []string{"2006-01-02 15:04:05", "2006-01-02 15:04"}

// BuildConstraints derives the constraint set from week data:
// one Demand per (game, venue) with an estimated weight, time windows
// for timed non-preseason games, blocked assets from active branding
// tasks, and per-hub resource counts.
func BuildConstraints(wd *model.WeekData, setupBufferHours, teardownBufferHours float64) *Constraints {
	cons := &Constraints{
		TimeWindows:                make(map[string]TimeWindow),
		MaxDriveHrs:                DefaultMaxDriveHrs,
		SetupBufferHours:           setupBufferHours,
		TeardownBufferHours:        teardownBufferHours,
		WeightMinimizeMiles:        DefaultWeightMinimizeMiles,
		WeightMinimizeVehicles:     DefaultWeightMinimizeVehicles,
		WeightPreferClosestHub:     DefaultWeightPreferClosestHub,
		WeightMinimizeRebranding:   DefaultWeightMinimizeRebranding,
		WeightGeographicClustering: DefaultWeightGeographicClustering,
		BlockedAssetIDs:            make(map[string]bool),
		HubVehicleCounts:           make(map[string]int),
		HubPersonnelCounts:         make(map[string]int),
	}

	isPreseason := wd.WeekNumber == 0

	for _, game := range wd.Games {
		items := wd.DemandsForGame(game)
		if len(items) == 0 || game.VenueID == "" {
			continue
		}

		totalQty := 0
		totalWeight := 0.0
		for _, item := range items {
			totalQty += item.Quantity
			totalWeight += float64(item.Quantity) * EstimateAssetWeight(item.AssetType)
		}

		var tw *TimeWindow
		if !isPreseason && game.GameDate != "" && game.GameTime != "" {
			if gameAt, ok := parseGameTime(game.GameDate, game.GameTime); ok {
				window := TimeWindow{
					EarliestArrival:    gameAt.Add(-DemandLeadTimeHours * time.Hour),
					LatestArrival:      gameAt.Add(-time.Duration(cons.SetupBufferHours * float64(time.Hour))),
					ServiceTimeMinutes: DefaultServiceTimeMinutes,
				}
				cons.TimeWindows[game.VenueID] = window
				tw = &window
			}
		}

		cons.Demands = append(cons.Demands, Demand{
			Game:           game,
			VenueID:        game.VenueID,
			CustomerID:     game.CustomerID,
			CustomerName:   game.CustomerName,
			Items:          items,
			TotalQuantity:  totalQty,
			TotalWeightLbs: totalWeight,
			TimeWindow:     tw,
		})
	}

	for _, bt := range wd.BrandingTasks {
		if bt.Status == model.BrandingPending || bt.Status == model.BrandingInProgress {
			cons.BlockedAssetIDs[bt.AssetID] = true
		}
	}

	for _, hub := range wd.Hubs {
		cons.HubVehicleCounts[hub.ID] = len(wd.AvailableVehiclesAtHub(hub.ID))
		cons.HubPersonnelCounts[hub.ID] = len(wd.AvailablePersonnelAtHub(hub.ID))
	}

	return cons
}

func parseGameTime(date, timeOfDay string) (time.Time, bool) {
	for _, layout := range gameTimeLayouts {
		if t, err := time.Parse(layout, date+" "+timeOfDay); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ─── Hard-constraint checks ─────────────────────────────────

// CheckCapacity reports whether the vehicle can carry the assets. A
// vehicle without a declared capacity accepts any load.
func CheckCapacity(vehicle model.Vehicle, assets []model.Asset) bool {
	total := 0.0
	for _, a := range assets {
		total += a.WeightLbs
	}
	return CheckCapacityWeight(vehicle, total)
}

// CheckCapacityWeight reports whether the vehicle can carry the given
// total weight.
func CheckCapacityWeight(vehicle model.Vehicle, totalWeight float64) bool {
	if vehicle.CapacityLbs == 0 {
		return true
	}
	return totalWeight <= float64(vehicle.CapacityLbs)
}

// CheckBranding reports whether an asset's branding satisfies the
// contract's branding spec.
//
// Passes when no spec is required, the asset is unbranded (it can be
// branded later), the branding matches, or a completed branding task
// already rebrands the asset to the spec.
func CheckBranding(asset model.Asset, brandingSpec string, tasks []model.BrandingTask) bool {
	if brandingSpec == "" {
		return true
	}
	if asset.CurrentBranding == "" {
		return true
	}
	if asset.CurrentBranding == brandingSpec {
		return true
	}
	for _, bt := range tasks {
		if bt.AssetID == asset.ID && bt.ToBranding == brandingSpec && bt.Status == model.BrandingCompleted {
			return true
		}
	}
	return false
}

// CheckDriveTime reports whether the drive time fits the DOT limit.
func CheckDriveTime(durationMinutes float64, maxDriveHrs int) bool {
	return durationMinutes <= float64(maxDriveHrs)*60
}

// CheckTimeWindow reports whether an arrival falls within the window.
func CheckTimeWindow(arrival time.Time, window *TimeWindow) bool {
	if window == nil {
		return true
	}
	return !arrival.Before(window.EarliestArrival) && !arrival.After(window.LatestArrival)
}

// MatchAssetToDemand reports whether an asset can fulfill a contract
// item: not blocked, serviceable condition, type and (when specified)
// model version match, and branding compatible.
func MatchAssetToDemand(asset model.Asset, item model.ContractItem, blocked map[string]bool, tasks []model.BrandingTask) bool {
	if blocked[asset.ID] {
		return false
	}
	if asset.Condition == model.ConditionOutOfService || asset.Condition == model.ConditionNeedsRepair {
		return false
	}
	if asset.AssetType != item.AssetType {
		return false
	}
	if item.ModelVersion != "" && asset.ModelVersion != item.ModelVersion {
		return false
	}
	return CheckBranding(asset, item.BrandingSpec, tasks)
}
