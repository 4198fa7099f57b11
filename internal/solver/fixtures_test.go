package solver

// Shared fixtures for the solver tests. Each builder reproduces one of
// the planning scenarios the service is exercised against: a single
// stop near the hub, a multi-stop Ohio cluster, a capacity overflow, a
// branding conflict, and an infeasible week.

import (
	"fmt"

	"github.com/dragonseats/optimizer/internal/model"
)

func floatPtr(v float64) *float64 { return &v }

func clevelandHub() model.Hub {
	return model.Hub{
		ID:      "hub-cle",
		Name:    "Cleveland Hub",
		City:    "Cleveland",
		State:   "OH",
		Address: "1 Distribution Way",
		Lat:     41.4993,
		Lng:     -81.6944,
	}
}

func makeVenue(id, customerID, name string, lat, lng float64) *model.Venue {
	return &model.Venue{
		ID:         id,
		CustomerID: customerID,
		Name:       name,
		Lat:        floatPtr(lat),
		Lng:        floatPtr(lng),
		IsPrimary:  true,
	}
}

func makeGame(id, customerID, customerName string, venue *model.Venue, week int, gameTime string) model.Game {
	return model.Game{
		ID:              id,
		CustomerID:      customerID,
		CustomerName:    customerName,
		VenueID:         venue.ID,
		Venue:           venue,
		SeasonYear:      2025,
		WeekNumber:      week,
		GameDate:        "2025-10-05",
		GameTime:        gameTime,
		Opponent:        "Rival",
		IsHomeGame:      true,
		SidelinesServed: "both",
		SeasonPhase:     "regular",
	}
}

func makeBenches(prefix, hubID string, count int, branding string) []model.Asset {
	assets := make([]model.Asset, 0, count)
	for i := 0; i < count; i++ {
		assets = append(assets, model.Asset{
			ID:              fmt.Sprintf("%s-bench-%02d", prefix, i+1),
			SerialNumber:    fmt.Sprintf("SN-%s-B%02d", prefix, i+1),
			AssetType:       "heated_bench",
			Condition:       model.ConditionGood,
			Status:          model.AssetAtHub,
			HomeHubID:       hubID,
			CurrentHub:      hubID,
			WeightLbs:       150,
			CurrentBranding: branding,
		})
	}
	return assets
}

func makeFootDecks(prefix, hubID string, count int) []model.Asset {
	assets := make([]model.Asset, 0, count)
	for i := 0; i < count; i++ {
		assets = append(assets, model.Asset{
			ID:           fmt.Sprintf("%s-deck-%02d", prefix, i+1),
			SerialNumber: fmt.Sprintf("SN-%s-D%02d", prefix, i+1),
			AssetType:    "heated_foot_deck",
			Condition:    model.ConditionGood,
			Status:       model.AssetAtHub,
			HomeHubID:    hubID,
			CurrentHub:   hubID,
			WeightLbs:    50,
		})
	}
	return assets
}

func makeCrew(hubID string) []model.Person {
	return []model.Person{
		{ID: "per-001", Name: "Dale Driver", Role: model.RoleDriver, HomeHubID: hubID, MaxDriveHrs: 11},
		{ID: "per-002", Name: "Tina Tech", Role: model.RoleServiceTech, HomeHubID: hubID, MaxDriveHrs: 11},
	}
}

// singleStopData: one hub, one venue half a mile away, 16 assets at the
// hub, one vehicle, two personnel. Fully feasible.
func singleStopData() *model.WeekData {
	hub := clevelandHub()
	venue := makeVenue("ven-browns", "cust-browns", "Browns Stadium", 41.5061, -81.6995)

	wd := &model.WeekData{
		SeasonYear: 2025,
		WeekNumber: 5,
		Hubs:       []model.Hub{hub},
		Games:      []model.Game{makeGame("game-001", "cust-browns", "Cleveland Browns", venue, 5, "13:00:00")},
		ContractItems: []model.ContractItem{
			{ID: "ci-001", ContractID: "con-001", CustomerID: "cust-browns", CustomerName: "Cleveland Browns", AssetType: "heated_bench", Quantity: 8},
			{ID: "ci-002", ContractID: "con-001", CustomerID: "cust-browns", CustomerName: "Cleveland Browns", AssetType: "heated_foot_deck", Quantity: 8},
		},
		Vehicles: []model.Vehicle{
			{ID: "veh-001", Name: "Truck-CLE-01", Type: "truck", HomeHubID: hub.ID, CapacityLbs: 10000, Status: model.VehicleActive},
		},
		Personnel: makeCrew(hub.ID),
	}
	wd.Assets = append(wd.Assets, makeBenches("cle", hub.ID, 8, "")...)
	wd.Assets = append(wd.Assets, makeFootDecks("cle", hub.ID, 8)...)
	return wd
}

// multiStopData: one hub and three Ohio venues inside the 150-mile
// cluster radius, three customers' demands, two vehicles.
func multiStopData() *model.WeekData {
	hub := clevelandHub()
	browns := makeVenue("ven-browns", "cust-browns", "Browns Stadium", 41.5061, -81.6995)
	zips := makeVenue("ven-zips", "cust-zips", "Akron Field", 41.0753, -81.5190)
	bucks := makeVenue("ven-bucks", "cust-bucks", "Columbus Dome", 40.0012, -83.0198)

	wd := &model.WeekData{
		SeasonYear: 2025,
		WeekNumber: 5,
		Hubs:       []model.Hub{hub},
		Games: []model.Game{
			makeGame("game-001", "cust-browns", "Cleveland Browns", browns, 5, "13:00:00"),
			makeGame("game-002", "cust-zips", "Akron Zips", zips, 5, "15:30:00"),
			makeGame("game-003", "cust-bucks", "Columbus Bucks", bucks, 5, "12:00:00"),
		},
		ContractItems: []model.ContractItem{
			{ID: "ci-001", ContractID: "con-001", CustomerID: "cust-browns", CustomerName: "Cleveland Browns", AssetType: "heated_bench", Quantity: 2},
			{ID: "ci-002", ContractID: "con-002", CustomerID: "cust-zips", CustomerName: "Akron Zips", AssetType: "heated_bench", Quantity: 2},
			{ID: "ci-003", ContractID: "con-003", CustomerID: "cust-bucks", CustomerName: "Columbus Bucks", AssetType: "heated_bench", Quantity: 2},
		},
		Vehicles: []model.Vehicle{
			{ID: "veh-001", Name: "Truck-CLE-01", Type: "truck", HomeHubID: hub.ID, CapacityLbs: 10000, Status: model.VehicleActive},
			{ID: "veh-002", Name: "Truck-CLE-02", Type: "truck", HomeHubID: hub.ID, CapacityLbs: 10000, Status: model.VehicleActive},
		},
		Personnel: makeCrew(hub.ID),
	}
	wd.Assets = makeBenches("cle", hub.ID, 12, "")
	return wd
}

// capacityOverflowData: a 1000-lb van asked to carry 16 benches
// (2400 lbs). The trip proceeds with an overload warning.
func capacityOverflowData() *model.WeekData {
	wd := singleStopData()
	wd.ContractItems = []model.ContractItem{
		{ID: "ci-001", ContractID: "con-001", CustomerID: "cust-browns", CustomerName: "Cleveland Browns", AssetType: "heated_bench", Quantity: 16},
	}
	wd.Assets = makeBenches("cle", "hub-cle", 16, "")
	wd.Vehicles = []model.Vehicle{
		{ID: "veh-van", Name: "Van-CLE-01", Type: "van", HomeHubID: "hub-cle", CapacityLbs: 1000, Status: model.VehicleActive},
	}
	return wd
}

// brandingConflictData: the demand wants three branded benches; the
// only three benches are unbranded with pending or in-progress branding
// tasks, so the
// initial run blocks them.
func brandingConflictData() *model.WeekData {
	wd := singleStopData()
	wd.ContractItems = []model.ContractItem{
		{ID: "ci-001", ContractID: "con-001", CustomerID: "cust-browns", CustomerName: "Cleveland Browns", AssetType: "heated_bench", Quantity: 3, BrandingSpec: "Cleveland Browns"},
	}
	wd.Assets = makeBenches("cle", "hub-cle", 3, "")
	wd.BrandingTasks = []model.BrandingTask{
		{ID: "bt-001", AssetID: "cle-bench-01", ToBranding: "Cleveland Browns", HubID: "hub-cle", Status: model.BrandingPending},
		{ID: "bt-002", AssetID: "cle-bench-02", ToBranding: "Cleveland Browns", HubID: "hub-cle", Status: model.BrandingPending},
		{ID: "bt-003", AssetID: "cle-bench-03", ToBranding: "Cleveland Browns", HubID: "hub-cle", Status: model.BrandingInProgress},
	}
	return wd
}

// infeasibleWeekData: five venues in five distant cities with a single
// vehicle. At most one cluster can be served.
func infeasibleWeekData() *model.WeekData {
	hub := clevelandHub()
	venues := []*model.Venue{
		makeVenue("ven-cle", "cust-1", "Cleveland Stadium", 41.5061, -81.6995),
		makeVenue("ven-chi", "cust-2", "Chicago Bowl", 41.8500, -87.6500),
		makeVenue("ven-den", "cust-3", "Denver Park", 39.7392, -104.9903),
		makeVenue("ven-dal", "cust-4", "Dallas Arena", 32.7767, -96.7970),
		makeVenue("ven-mia", "cust-5", "Miami Grounds", 25.7617, -80.1918),
	}

	wd := &model.WeekData{
		SeasonYear: 2025,
		WeekNumber: 5,
		Hubs:       []model.Hub{hub},
		Vehicles: []model.Vehicle{
			{ID: "veh-001", Name: "Truck-CLE-01", Type: "truck", HomeHubID: hub.ID, CapacityLbs: 10000, Status: model.VehicleActive},
		},
		Personnel: makeCrew(hub.ID),
	}
	for i, venue := range venues {
		customerID := venue.CustomerID
		customerName := fmt.Sprintf("Customer %d", i+1)
		wd.Games = append(wd.Games, makeGame(fmt.Sprintf("game-%03d", i+1), customerID, customerName, venue, 5, "13:00:00"))
		wd.ContractItems = append(wd.ContractItems, model.ContractItem{
			ID:           fmt.Sprintf("ci-%03d", i+1),
			ContractID:   fmt.Sprintf("con-%03d", i+1),
			CustomerID:   customerID,
			CustomerName: customerName,
			AssetType:    "heated_bench",
			Quantity:     2,
		})
	}
	wd.Assets = makeBenches("cle", hub.ID, 20, "")
	return wd
}

// buildTestMatrix fills every pair with haversine road estimates — no
// cache, no provider.
func buildTestMatrix(wd *model.WeekData) *Matrix {
	locations := wd.AllLocations()
	matrix := NewMatrix(locations)
	for i := range locations {
		for j := range locations {
			if i != j {
				matrix.Set(i, j, haversineEstimate(locations[i], locations[j]))
			}
		}
	}
	return matrix
}

func defaultClusters(wd *model.WeekData, matrix *Matrix) []*VenueCluster {
	return ClusterVenues(wd.GameVenues(), wd.HubLocations(), matrix, 150, 4)
}

func defaultCascadeParams() CascadeParams {
	return CascadeParams{
		Timeout:             0,
		MaxClusterRadiusMi:  150,
		MaxStops:            4,
		SetupBufferHours:    4,
		TeardownBufferHours: 3,
	}
}
