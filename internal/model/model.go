// Package model contains domain models for the equipment trip planner.
// These structs map to the tabular store's hubs, venues, game_schedule,
// contracts, assets, vehicles, personnel, branding_tasks and
// asset_assignments tables.
package model

import (
	"github.com/dragonseats/optimizer/pkg/geo"
)

// ─── Enums ──────────────────────────────────────────────────

type AssetCondition string

const (
	ConditionGood         AssetCondition = "good"
	ConditionNeedsRepair  AssetCondition = "needs_repair"
	ConditionOutOfService AssetCondition = "out_of_service"
)

type AssetStatus string

const (
	AssetAtHub     AssetStatus = "at_hub"
	AssetOnSite    AssetStatus = "on_site"
	AssetInTransit AssetStatus = "in_transit"
)

type PersonRole string

const (
	RoleDriver      PersonRole = "driver"
	RoleServiceTech PersonRole = "service_tech"
	RoleLeadTech    PersonRole = "lead_tech"
	RoleSales       PersonRole = "sales"
)

type BrandingStatus string

const (
	BrandingPending    BrandingStatus = "pending"
	BrandingInProgress BrandingStatus = "in_progress"
	BrandingCompleted  BrandingStatus = "completed"
)

// VehicleActive is the vehicle status eligible for dispatch.
const VehicleActive = "active"

// SeasonFinalWeek is the last regular week; week 0 is the pre-season
// deployment phase derived from week-1 games.
const SeasonFinalWeek = 18

// ─── Entities ───────────────────────────────────────────────

// Hub is a distribution site owning vehicles, personnel, and staged
// assets.
type Hub struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	City    string  `json:"city"`
	State   string  `json:"state"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// Location returns the hub's coordinate labeled with its name.
func (h Hub) Location() geo.LatLng {
	return geo.LatLng{Lat: h.Lat, Lng: h.Lng, Label: h.Name}
}

// Venue is a stadium or field where a customer plays a home game.
// Coordinates may be missing for newly-onboarded venues.
type Venue struct {
	ID         string   `json:"id"`
	CustomerID string   `json:"customer_id,omitempty"`
	Name       string   `json:"name"`
	Address    string   `json:"address,omitempty"`
	City       string   `json:"city,omitempty"`
	State      string   `json:"state,omitempty"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
	IsPrimary  bool     `json:"is_primary"`
}

// Location returns the venue's coordinate, or ok=false when the venue
// has no coordinates.
func (v Venue) Location() (geo.LatLng, bool) {
	if v.Lat == nil || v.Lng == nil {
		return geo.LatLng{}, false
	}
	return geo.LatLng{Lat: *v.Lat, Lng: *v.Lng, Label: v.Name}, true
}

// Customer is a sports-team customer.
type Customer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SportType string `json:"sport_type"`
}

// Game is one scheduled game in a given season week.
type Game struct {
	ID              string `json:"id"`
	CustomerID      string `json:"customer_id"`
	CustomerName    string `json:"customer_name"`
	VenueID         string `json:"venue_id,omitempty"`
	Venue           *Venue `json:"venue,omitempty"`
	SeasonYear      int    `json:"season_year"`
	WeekNumber      int    `json:"week_number"`
	GameDate        string `json:"game_date"`
	GameTime        string `json:"game_time,omitempty"`
	Opponent        string `json:"opponent,omitempty"`
	IsHomeGame      bool   `json:"is_home_game"`
	SidelinesServed string `json:"sidelines_served"`
	SeasonPhase     string `json:"season_phase"`
}

// ContractItem is one equipment requirement line from a customer's
// active contract.
type ContractItem struct {
	ID           string `json:"id"`
	ContractID   string `json:"contract_id"`
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	AssetType    string `json:"asset_type"`
	ModelVersion string `json:"model_version,omitempty"`
	Quantity     int    `json:"quantity"`
	BrandingSpec string `json:"branding_spec,omitempty"`
}

// Asset is one physical equipment unit (bench, shader, deck).
type Asset struct {
	ID              string         `json:"id"`
	SerialNumber    string         `json:"serial_number"`
	AssetType       string         `json:"asset_type"`
	ModelVersion    string         `json:"model_version,omitempty"`
	Condition       AssetCondition `json:"condition"`
	Status          AssetStatus    `json:"status"`
	HomeHubID       string         `json:"home_hub_id"`
	CurrentHub      string         `json:"current_hub,omitempty"`
	CurrentVenueID  string         `json:"current_venue_id,omitempty"`
	CurrentTripID   string         `json:"current_trip_id,omitempty"`
	WeightLbs       float64        `json:"weight_lbs,omitempty"`
	CurrentBranding string         `json:"current_branding,omitempty"`
}

// Vehicle is a transport vehicle homed at a hub.
type Vehicle struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type,omitempty"`
	HomeHubID    string `json:"home_hub_id"`
	CapacityLbs  int    `json:"capacity_lbs,omitempty"`
	CapacityCuft int    `json:"capacity_cuft,omitempty"`
	Status       string `json:"status"`
}

// Person is a crew member homed at a hub.
type Person struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Role        PersonRole `json:"role"`
	HomeHubID   string     `json:"home_hub_id"`
	Skills      []string   `json:"skills,omitempty"`
	MaxDriveHrs int        `json:"max_drive_hrs"`
}

// BrandingTask tracks a rebranding job on an asset. Assets with a
// pending or in-progress task are blocked from assignment.
type BrandingTask struct {
	ID           string         `json:"id"`
	AssetID      string         `json:"asset_id"`
	FromBranding string         `json:"from_branding,omitempty"`
	ToBranding   string         `json:"to_branding,omitempty"`
	HubID        string         `json:"hub_id"`
	NeededByDate string         `json:"needed_by_date,omitempty"`
	Status       BrandingStatus `json:"status"`
}

// AssetAssignment maps an asset to a customer for a season.
type AssetAssignment struct {
	ID          string `json:"id"`
	AssetID     string `json:"asset_id"`
	CustomerID  string `json:"customer_id"`
	SeasonYear  int    `json:"season_year"`
	IsPermanent bool   `json:"is_permanent"`
}

// ─── WeekData ───────────────────────────────────────────────

// WeekData is everything needed to plan a single week.
type WeekData struct {
	SeasonYear       int
	WeekNumber       int
	Games            []Game
	ContractItems    []ContractItem
	Assets           []Asset
	Vehicles         []Vehicle
	Personnel        []Person
	Hubs             []Hub
	BrandingTasks    []BrandingTask
	AssetAssignments []AssetAssignment
}

// GameVenues returns the unique venues that have games this week, in
// game order.
func (wd *WeekData) GameVenues() []Venue {
	seen := make(map[string]bool)
	var venues []Venue
	for _, game := range wd.Games {
		if game.Venue == nil || game.VenueID == "" || seen[game.VenueID] {
			continue
		}
		seen[game.VenueID] = true
		venues = append(venues, *game.Venue)
	}
	return venues
}

// HubLocations returns the coordinates of all hubs.
func (wd *WeekData) HubLocations() []geo.LatLng {
	locs := make([]geo.LatLng, 0, len(wd.Hubs))
	for _, hub := range wd.Hubs {
		locs = append(locs, hub.Location())
	}
	return locs
}

// AllLocations returns all unique locations (hubs first, then game
// venues) for the distance matrix.
func (wd *WeekData) AllLocations() []geo.LatLng {
	var locations []geo.LatLng
	seen := make(map[geo.Key]bool)

	for _, hub := range wd.Hubs {
		loc := hub.Location()
		if !seen[loc.Key()] {
			seen[loc.Key()] = true
			locations = append(locations, loc)
		}
	}
	for _, venue := range wd.GameVenues() {
		loc, ok := venue.Location()
		if !ok {
			continue
		}
		if !seen[loc.Key()] {
			seen[loc.Key()] = true
			locations = append(locations, loc)
		}
	}
	return locations
}

// DemandsForGame returns the contract items of the game's customer.
func (wd *WeekData) DemandsForGame(game Game) []ContractItem {
	var items []ContractItem
	for _, ci := range wd.ContractItems {
		if ci.CustomerID == game.CustomerID {
			items = append(items, ci)
		}
	}
	return items
}

// AssetsAtHub returns assets currently staged at the given hub.
func (wd *WeekData) AssetsAtHub(hubID string) []Asset {
	var out []Asset
	for _, a := range wd.Assets {
		if a.Status == AssetAtHub && a.CurrentHub == hubID {
			out = append(out, a)
		}
	}
	return out
}

// AssetsAtVenue returns assets currently deployed at the given venue.
func (wd *WeekData) AssetsAtVenue(venueID string) []Asset {
	var out []Asset
	for _, a := range wd.Assets {
		if a.Status == AssetOnSite && a.CurrentVenueID == venueID {
			out = append(out, a)
		}
	}
	return out
}

// AvailableVehiclesAtHub returns active vehicles homed at the hub.
func (wd *WeekData) AvailableVehiclesAtHub(hubID string) []Vehicle {
	var out []Vehicle
	for _, v := range wd.Vehicles {
		if v.HomeHubID == hubID && v.Status == VehicleActive {
			out = append(out, v)
		}
	}
	return out
}

// AvailablePersonnelAtHub returns personnel homed at the hub.
func (wd *WeekData) AvailablePersonnelAtHub(hubID string) []Person {
	var out []Person
	for _, p := range wd.Personnel {
		if p.HomeHubID == hubID {
			out = append(out, p)
		}
	}
	return out
}

// NearestHub finds the nearest hub to a venue by squared-degree
// distance. Returns ok=false when the venue has no coordinates or no
// hubs exist.
func (wd *WeekData) NearestHub(venue Venue) (Hub, bool) {
	loc, ok := venue.Location()
	if !ok || len(wd.Hubs) == 0 {
		return Hub{}, false
	}
	best := wd.Hubs[0]
	bestDist := sqDegrees(best, loc)
	for _, hub := range wd.Hubs[1:] {
		if d := sqDegrees(hub, loc); d < bestDist {
			best = hub
			bestDist = d
		}
	}
	return best, true
}

func sqDegrees(h Hub, loc geo.LatLng) float64 {
	dLat := h.Lat - loc.Lat
	dLng := h.Lng - loc.Lng
	return dLat*dLat + dLng*dLng
}
