// Package solver contains the planning core: distance matrix assembly,
// geographic clustering, constraint derivation, greedy trip assignment,
// intra-trip stop reordering, the infeasibility relaxation cascade, the
// preseason multi-pass variant, post-game disposition lookahead, and
// trip scoring.
package solver

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// Stop actions.
const (
	ActionDeliver = "deliver"
	ActionPickup  = "pickup"
	ActionBoth    = "both"
)

// TripStop is a stop within a trip. Order indices are dense and
// 1-based within the trip.
type TripStop struct {
	VenueID           string  `json:"venue_id"`
	VenueName         string  `json:"venue_name"`
	StopOrder         int     `json:"stop_order"`
	ArrivalTime       string  `json:"arrival_time,omitempty"`
	DepartTime        string  `json:"depart_time,omitempty"`
	Action            string  `json:"action"`
	RequiresHubReturn bool    `json:"requires_hub_return"`
	HubReturnReason   string  `json:"hub_return_reason,omitempty"`
	Demand            *Demand `json:"-"`
}

// TripAsset is an asset assigned to a trip.
type TripAsset struct {
	AssetID      string `json:"asset_id"`
	SerialNumber string `json:"serial_number"`
	AssetType    string `json:"asset_type"`
	StopID       string `json:"stop_id,omitempty"`
}

// TripPerson is a crew member assigned to a trip.
type TripPerson struct {
	PersonID   string `json:"person_id"`
	PersonName string `json:"person_name"`
	RoleOnTrip string `json:"role_on_trip"`
}

// Trip is one vehicle's round trip from a hub through its stops and
// back, with crew and payload.
type Trip struct {
	VehicleID      string       `json:"vehicle_id"`
	VehicleName    string       `json:"vehicle_name"`
	OriginHubID    string       `json:"origin_hub_id"`
	OriginHubName  string       `json:"origin_hub_name"`
	Stops          []*TripStop  `json:"stops"`
	Assets         []TripAsset  `json:"assets"`
	Personnel      []TripPerson `json:"personnel"`
	TotalMiles     float64      `json:"total_miles"`
	TotalDriveHrs  float64      `json:"total_drive_hrs"`
	OptimizerScore float64      `json:"optimizer_score"`
	DepartTime     string       `json:"depart_time,omitempty"`
	ReturnTime     string       `json:"return_time,omitempty"`
}

// UnassignedDemand is a demand line that could not be fulfilled.
type UnassignedDemand struct {
	CustomerName string `json:"customer"`
	VenueName    string `json:"venue"`
	AssetType    string `json:"asset_type"`
	Quantity     int    `json:"quantity"`
	Reason       string `json:"reason"`
}

// RelaxationEntry records one successful cascade step.
type RelaxationEntry struct {
	Step   int    `json:"step"`
	Action string `json:"action"`
	Detail string `json:"detail"`
}

// Result is the outcome of a planning run.
type Result struct {
	Trips                 []*Trip            `json:"trips"`
	UnassignedDemands     []UnassignedDemand `json:"unassigned_demands"`
	Warnings              []string           `json:"warnings"`
	Errors                []string           `json:"errors"`
	ConstraintRelaxations []RelaxationEntry  `json:"constraint_relaxations"`
	SolveTimeMs           int64              `json:"solve_time_ms"`
	Status                string             `json:"status"`
	AverageScore          float64            `json:"average_score"`
}

// NewResult returns an empty completed result.
func NewResult() *Result {
	return &Result{Status: StatusCompleted}
}

// HasUnassigned reports whether any demand went unfulfilled.
func (r *Result) HasUnassigned() bool {
	return len(r.UnassignedDemands) > 0
}
