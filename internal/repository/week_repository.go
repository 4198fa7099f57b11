package repository

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/dragonseats/optimizer/internal/model"
)

const gameSelect = "*, customers(id, name, sport_type), venues(id, customer_id, name, address, city, state, lat, lng, is_primary)"

// WeekRepository loads planning inputs from the tabular store.
type WeekRepository struct {
	store *StoreClient
}

// NewWeekRepository creates a week repository over the store client.
func NewWeekRepository(store *StoreClient) *WeekRepository {
	return &WeekRepository{store: store}
}

// LoadWeekData loads everything needed to plan the given week.
//
// Week 0 is the pre-season deployment phase and is derived from week-1
// games with times cleared; it skips the availability filters because
// the whole fleet is at the planner's disposal.
func (r *WeekRepository) LoadWeekData(ctx context.Context, seasonYear, weekNumber int) (*model.WeekData, error) {
	if weekNumber == 0 {
		return r.loadWeek0Data(ctx, seasonYear)
	}

	wd := &model.WeekData{SeasonYear: seasonYear, WeekNumber: weekNumber}

	if err := r.loadHubs(ctx, wd); err != nil {
		return nil, err
	}

	gameRows, err := r.store.Get(ctx, "game_schedule", url.Values{
		"season_year": {fmt.Sprintf("eq.%d", seasonYear)},
		"week_number": {fmt.Sprintf("eq.%d", weekNumber)},
		"select":      {gameSelect},
	})
	if err != nil {
		return nil, fmt.Errorf("load games: %w", err)
	}

	customerIDs := make(map[string]bool)
	for _, row := range gameRows {
		game := parseGameRow(row, nil, false, "")
		if game.ID == "" || game.CustomerID == "" {
			log.Printf("[loader] skipping game row missing id/customer_id: %v", row["id"])
			continue
		}
		wd.Games = append(wd.Games, game)
		customerIDs[game.CustomerID] = true
	}
	if len(customerIDs) == 0 {
		return wd, nil
	}

	if err := r.loadContractItems(ctx, wd, customerIDs); err != nil {
		return nil, err
	}
	if err := r.loadAssets(ctx, wd); err != nil {
		return nil, err
	}
	if err := r.loadVehicles(ctx, wd, true); err != nil {
		return nil, err
	}
	if err := r.loadPersonnel(ctx, wd, true); err != nil {
		return nil, err
	}
	if err := r.loadBrandingTasks(ctx, wd); err != nil {
		return nil, err
	}
	if err := r.loadAssetAssignments(ctx, wd); err != nil {
		return nil, err
	}

	return wd, nil
}

// LoadNextWeekSchedule loads week N+1 games for lookahead disposition.
// Past the final week it returns no games.
func (r *WeekRepository) LoadNextWeekSchedule(ctx context.Context, seasonYear, weekNumber int) ([]model.Game, error) {
	nextWeek := weekNumber + 1
	if nextWeek > model.SeasonFinalWeek {
		return nil, nil
	}

	rows, err := r.store.Get(ctx, "game_schedule", url.Values{
		"season_year": {fmt.Sprintf("eq.%d", seasonYear)},
		"week_number": {fmt.Sprintf("eq.%d", nextWeek)},
		"select":      {gameSelect},
	})
	if err != nil {
		return nil, fmt.Errorf("load next week games: %w", err)
	}

	games := make([]model.Game, 0, len(rows))
	for _, row := range rows {
		games = append(games, parseGameRow(row, nil, false, ""))
	}
	return games, nil
}

// loadWeek0Data derives week-0 deployment targets from week-1 games:
// same venues, game times cleared (no time crunch), season phase
// stamped preseason, no availability filtering.
func (r *WeekRepository) loadWeek0Data(ctx context.Context, seasonYear int) (*model.WeekData, error) {
	wd := &model.WeekData{SeasonYear: seasonYear, WeekNumber: 0}

	if err := r.loadHubs(ctx, wd); err != nil {
		return nil, err
	}

	gameRows, err := r.store.Get(ctx, "game_schedule", url.Values{
		"season_year": {fmt.Sprintf("eq.%d", seasonYear)},
		"week_number": {"eq.1"},
		"select":      {gameSelect},
	})
	if err != nil {
		return nil, fmt.Errorf("load week-1 games: %w", err)
	}

	week0 := 0
	customerIDs := make(map[string]bool)
	for _, row := range gameRows {
		game := parseGameRow(row, &week0, true, "preseason")
		if game.ID == "" || game.CustomerID == "" {
			log.Printf("[loader] skipping game row missing id/customer_id: %v", row["id"])
			continue
		}
		wd.Games = append(wd.Games, game)
		customerIDs[game.CustomerID] = true
	}
	if len(customerIDs) == 0 {
		return wd, nil
	}

	if err := r.loadContractItems(ctx, wd, customerIDs); err != nil {
		return nil, err
	}
	if err := r.loadAssets(ctx, wd); err != nil {
		return nil, err
	}
	if err := r.loadVehicles(ctx, wd, false); err != nil {
		return nil, err
	}
	if err := r.loadPersonnel(ctx, wd, false); err != nil {
		return nil, err
	}
	if err := r.loadBrandingTasks(ctx, wd); err != nil {
		return nil, err
	}
	if err := r.loadAssetAssignments(ctx, wd); err != nil {
		return nil, err
	}

	return wd, nil
}

// ─── Table loaders ──────────────────────────────────────────

func (r *WeekRepository) loadHubs(ctx context.Context, wd *model.WeekData) error {
	rows, err := r.store.Get(ctx, "hubs", url.Values{})
	if err != nil {
		return fmt.Errorf("load hubs: %w", err)
	}
	for _, row := range rows {
		wd.Hubs = append(wd.Hubs, model.Hub{
			ID:      rowString(row, "id"),
			Name:    rowString(row, "name"),
			City:    rowString(row, "city"),
			State:   rowString(row, "state"),
			Address: rowString(row, "address"),
			Lat:     rowFloat(row, "lat"),
			Lng:     rowFloat(row, "lng"),
		})
	}
	return nil
}

func (r *WeekRepository) loadContractItems(ctx context.Context, wd *model.WeekData, customerIDs map[string]bool) error {
	ids := make([]string, 0, len(customerIDs))
	for id := range customerIDs {
		ids = append(ids, id)
	}

	rows, err := r.store.Get(ctx, "contracts", url.Values{
		"customer_id": {"in.(" + strings.Join(ids, ",") + ")"},
		"status":      {"eq.active"},
		"select":      {"id, customer_id, customers(name), contract_items(id, asset_type, model_version, quantity, branding_spec)"},
	})
	if err != nil {
		return fmt.Errorf("load contracts: %w", err)
	}

	for _, row := range rows {
		customerName := rowString(rowMap(row, "customers"), "name")
		items, _ := row["contract_items"].([]any)
		for _, raw := range items {
			item, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			wd.ContractItems = append(wd.ContractItems, model.ContractItem{
				ID:           rowString(item, "id"),
				ContractID:   rowString(row, "id"),
				CustomerID:   rowString(row, "customer_id"),
				CustomerName: customerName,
				AssetType:    rowString(item, "asset_type"),
				ModelVersion: rowString(item, "model_version"),
				Quantity:     rowInt(item, "quantity"),
				BrandingSpec: rowString(item, "branding_spec"),
			})
		}
	}
	return nil
}

func (r *WeekRepository) loadAssets(ctx context.Context, wd *model.WeekData) error {
	rows, err := r.store.Get(ctx, "assets", url.Values{
		"select": {"id, serial_number, asset_type, model_version, condition, status, home_hub_id, current_hub, current_venue_id, current_trip_id, weight_lbs, current_branding"},
	})
	if err != nil {
		return fmt.Errorf("load assets: %w", err)
	}
	for _, row := range rows {
		condition := rowString(row, "condition")
		if condition == "" {
			condition = string(model.ConditionGood)
		}
		status := rowString(row, "status")
		if status == "" {
			status = string(model.AssetAtHub)
		}
		wd.Assets = append(wd.Assets, model.Asset{
			ID:              rowString(row, "id"),
			SerialNumber:    rowString(row, "serial_number"),
			AssetType:       rowString(row, "asset_type"),
			ModelVersion:    rowString(row, "model_version"),
			Condition:       model.AssetCondition(condition),
			Status:          model.AssetStatus(status),
			HomeHubID:       rowString(row, "home_hub_id"),
			CurrentHub:      rowString(row, "current_hub"),
			CurrentVenueID:  rowString(row, "current_venue_id"),
			CurrentTripID:   rowString(row, "current_trip_id"),
			WeightLbs:       rowFloat(row, "weight_lbs"),
			CurrentBranding: rowString(row, "current_branding"),
		})
	}
	return nil
}

func (r *WeekRepository) loadVehicles(ctx context.Context, wd *model.WeekData, filterAvailability bool) error {
	rows, err := r.store.Get(ctx, "vehicles", url.Values{
		"status": {"eq.active"},
		"select": {"id, name, type, home_hub_id, capacity_lbs, capacity_cuft, status"},
	})
	if err != nil {
		return fmt.Errorf("load vehicles: %w", err)
	}

	unavailable := make(map[string]bool)
	if filterAvailability {
		availRows, err := r.store.Get(ctx, "vehicle_availability", url.Values{
			"season_year":  {fmt.Sprintf("eq.%d", wd.SeasonYear)},
			"week_number":  {fmt.Sprintf("eq.%d", wd.WeekNumber)},
			"is_available": {"eq.false"},
		})
		if err != nil {
			return fmt.Errorf("load vehicle availability: %w", err)
		}
		for _, row := range availRows {
			unavailable[rowString(row, "vehicle_id")] = true
		}
	}

	for _, row := range rows {
		if unavailable[rowString(row, "id")] {
			continue
		}
		wd.Vehicles = append(wd.Vehicles, model.Vehicle{
			ID:           rowString(row, "id"),
			Name:         rowString(row, "name"),
			Type:         rowString(row, "type"),
			HomeHubID:    rowString(row, "home_hub_id"),
			CapacityLbs:  rowInt(row, "capacity_lbs"),
			CapacityCuft: rowInt(row, "capacity_cuft"),
			Status:       rowString(row, "status"),
		})
	}
	return nil
}

func (r *WeekRepository) loadPersonnel(ctx context.Context, wd *model.WeekData, filterAvailability bool) error {
	rows, err := r.store.Get(ctx, "personnel", url.Values{
		"select": {"id, name, role, home_hub_id, skills, max_drive_hrs"},
	})
	if err != nil {
		return fmt.Errorf("load personnel: %w", err)
	}

	unavailable := make(map[string]bool)
	if filterAvailability {
		availRows, err := r.store.Get(ctx, "personnel_availability", url.Values{
			"season_year":  {fmt.Sprintf("eq.%d", wd.SeasonYear)},
			"week_number":  {fmt.Sprintf("eq.%d", wd.WeekNumber)},
			"is_available": {"eq.false"},
		})
		if err != nil {
			return fmt.Errorf("load personnel availability: %w", err)
		}
		for _, row := range availRows {
			unavailable[rowString(row, "person_id")] = true
		}
	}

	for _, row := range rows {
		if unavailable[rowString(row, "id")] {
			continue
		}
		wd.Personnel = append(wd.Personnel, model.Person{
			ID:          rowString(row, "id"),
			Name:        rowString(row, "name"),
			Role:        model.PersonRole(rowString(row, "role")),
			HomeHubID:   rowString(row, "home_hub_id"),
			Skills:      rowStrings(row, "skills"),
			MaxDriveHrs: rowIntDefault(row, "max_drive_hrs", 11),
		})
	}
	return nil
}

func (r *WeekRepository) loadBrandingTasks(ctx context.Context, wd *model.WeekData) error {
	rows, err := r.store.Get(ctx, "branding_tasks", url.Values{
		"status": {"neq.completed"},
		"select": {"id, asset_id, from_branding, to_branding, hub_id, needed_by_date, status"},
	})
	if err != nil {
		return fmt.Errorf("load branding tasks: %w", err)
	}
	for _, row := range rows {
		wd.BrandingTasks = append(wd.BrandingTasks, model.BrandingTask{
			ID:           rowString(row, "id"),
			AssetID:      rowString(row, "asset_id"),
			FromBranding: rowString(row, "from_branding"),
			ToBranding:   rowString(row, "to_branding"),
			HubID:        rowString(row, "hub_id"),
			NeededByDate: rowString(row, "needed_by_date"),
			Status:       model.BrandingStatus(rowString(row, "status")),
		})
	}
	return nil
}

func (r *WeekRepository) loadAssetAssignments(ctx context.Context, wd *model.WeekData) error {
	rows, err := r.store.Get(ctx, "asset_assignments", url.Values{
		"season_year": {fmt.Sprintf("eq.%d", wd.SeasonYear)},
		"select":      {"id, asset_id, customer_id, season_year, is_permanent"},
	})
	if err != nil {
		return fmt.Errorf("load asset assignments: %w", err)
	}
	for _, row := range rows {
		wd.AssetAssignments = append(wd.AssetAssignments, model.AssetAssignment{
			ID:          rowString(row, "id"),
			AssetID:     rowString(row, "asset_id"),
			CustomerID:  rowString(row, "customer_id"),
			SeasonYear:  rowInt(row, "season_year"),
			IsPermanent: rowBool(row, "is_permanent"),
		})
	}
	return nil
}

// parseGameRow converts a game_schedule row (with embedded customers
// and venues) into a Game. weekOverride replaces the stored week,
// clearTime drops the game time, and phase overrides season_phase —
// all three serve the week-0 derivation.
func parseGameRow(row map[string]any, weekOverride *int, clearTime bool, phase string) model.Game {
	var venue *model.Venue
	if venueData := rowMap(row, "venues"); venueData != nil {
		venue = &model.Venue{
			ID:         rowString(venueData, "id"),
			CustomerID: rowString(venueData, "customer_id"),
			Name:       rowString(venueData, "name"),
			Address:    rowString(venueData, "address"),
			City:       rowString(venueData, "city"),
			State:      rowString(venueData, "state"),
			Lat:        rowFloatPtr(venueData, "lat"),
			Lng:        rowFloatPtr(venueData, "lng"),
			IsPrimary:  rowBool(venueData, "is_primary"),
		}
	}

	week := rowInt(row, "week_number")
	if weekOverride != nil {
		week = *weekOverride
	}
	gameTime := rowString(row, "game_time")
	if clearTime {
		gameTime = ""
	}
	seasonPhase := rowString(row, "season_phase")
	if seasonPhase == "" {
		seasonPhase = "regular"
	}
	if phase != "" {
		seasonPhase = phase
	}
	isHome := true
	if row["is_home_game"] != nil {
		isHome = rowBool(row, "is_home_game")
	}
	sidelines := rowString(row, "sidelines_served")
	if sidelines == "" {
		sidelines = "both"
	}

	return model.Game{
		ID:              rowString(row, "id"),
		CustomerID:      rowString(row, "customer_id"),
		CustomerName:    rowString(rowMap(row, "customers"), "name"),
		VenueID:         rowString(row, "venue_id"),
		Venue:           venue,
		SeasonYear:      rowInt(row, "season_year"),
		WeekNumber:      week,
		GameDate:        rowString(row, "game_date"),
		GameTime:        gameTime,
		Opponent:        rowString(row, "opponent"),
		IsHomeGame:      isHome,
		SidelinesServed: sidelines,
		SeasonPhase:     seasonPhase,
	}
}
