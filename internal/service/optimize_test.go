package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dragonseats/optimizer/internal/model"
	"github.com/dragonseats/optimizer/internal/solver"
	"github.com/dragonseats/optimizer/pkg/geo"
)

// ─── Fakes ──────────────────────────────────────────────────

type fakeWeeks struct {
	week     *model.WeekData
	nextWeek []model.Game
	err      error
}

func (f *fakeWeeks) LoadWeekData(ctx context.Context, seasonYear, weekNumber int) (*model.WeekData, error) {
	return f.week, f.err
}

func (f *fakeWeeks) LoadNextWeekSchedule(ctx context.Context, seasonYear, weekNumber int) ([]model.Game, error) {
	return f.nextWeek, nil
}

type fakeMatrix struct{}

func (f *fakeMatrix) Build(ctx context.Context, locations []geo.LatLng) *solver.Matrix {
	m := solver.NewMatrix(locations)
	for i := range locations {
		for j := range locations {
			if i != j {
				miles, minutes := geo.RoadEstimate(locations[i], locations[j])
				m.Set(i, j, solver.DistanceEntry{DistanceMiles: miles, DurationMinutes: minutes})
			}
		}
	}
	return m
}

type fakeWriter struct {
	runID   string
	err     error
	written *solver.Result
}

func (f *fakeWriter) WriteResults(ctx context.Context, result *solver.Result, seasonYear, weekNumber int, triggeredBy string) (string, error) {
	f.written = result
	return f.runID, f.err
}

func intPtr(v int) *int       { return &v }
func fptr(v float64) *float64 { return &v }

func happyWeek() *model.WeekData {
	venue := &model.Venue{
		ID: "ven-1", CustomerID: "cust-1", Name: "Browns Stadium",
		Lat: fptr(41.5061), Lng: fptr(-81.6995), IsPrimary: true,
	}
	wd := &model.WeekData{
		SeasonYear: 2025,
		WeekNumber: 5,
		Hubs: []model.Hub{{
			ID: "hub-1", Name: "Cleveland Hub", City: "Cleveland", State: "OH",
			Address: "1 Distribution Way", Lat: 41.4993, Lng: -81.6944,
		}},
		Games: []model.Game{{
			ID: "game-1", CustomerID: "cust-1", CustomerName: "Cleveland Browns",
			VenueID: "ven-1", Venue: venue, SeasonYear: 2025, WeekNumber: 5,
			GameDate: "2025-10-05", GameTime: "13:00:00", IsHomeGame: true,
			SidelinesServed: "both", SeasonPhase: "regular",
		}},
		ContractItems: []model.ContractItem{{
			ID: "ci-1", ContractID: "con-1", CustomerID: "cust-1",
			CustomerName: "Cleveland Browns", AssetType: "heated_bench", Quantity: 2,
		}},
		Vehicles: []model.Vehicle{{
			ID: "veh-1", Name: "Truck-01", HomeHubID: "hub-1",
			CapacityLbs: 10000, Status: model.VehicleActive,
		}},
		Personnel: []model.Person{
			{ID: "per-1", Name: "Dale", Role: model.RoleDriver, HomeHubID: "hub-1", MaxDriveHrs: 11},
		},
	}
	for i := 0; i < 2; i++ {
		wd.Assets = append(wd.Assets, model.Asset{
			ID: "asset-" + string(rune('1'+i)), SerialNumber: "SN", AssetType: "heated_bench",
			Condition: model.ConditionGood, Status: model.AssetAtHub,
			HomeHubID: "hub-1", CurrentHub: "hub-1", WeightLbs: 150,
		})
	}
	return wd
}

func testParams() Params {
	return Params{
		Timeout:             0,
		MaxClusterRadiusMi:  150,
		MaxStopsPerTrip:     4,
		SetupBufferHours:    4,
		TeardownBufferHours: 3,
	}
}

// ─── Tests ──────────────────────────────────────────────────

func TestOptimize_HappyPath(t *testing.T) {
	writer := &fakeWriter{runID: "run-123"}
	svc := NewPlannerService(&fakeWeeks{week: happyWeek()}, &fakeMatrix{}, writer, testParams())

	resp, err := svc.Optimize(context.Background(), OptimizeRequest{
		SeasonYear: intPtr(2025), WeekNumber: intPtr(5),
	})
	require.NoError(t, err)

	assert.Equal(t, "run-123", resp.RunID)
	assert.Equal(t, solver.StatusCompleted, resp.Status)
	assert.Equal(t, 1, resp.TripsGenerated)
	assert.Greater(t, resp.Score, 0.0)
	assert.Empty(t, resp.UnassignedDemands)
	require.NotNil(t, writer.written)
	assert.Len(t, writer.written.Trips, 1)
}

func TestOptimize_EmptyWeek(t *testing.T) {
	empty := &model.WeekData{SeasonYear: 2025, WeekNumber: 7}
	svc := NewPlannerService(&fakeWeeks{week: empty}, &fakeMatrix{}, &fakeWriter{}, testParams())

	resp, err := svc.Optimize(context.Background(), OptimizeRequest{
		SeasonYear: intPtr(2025), WeekNumber: intPtr(7),
	})
	require.NoError(t, err)

	assert.Empty(t, resp.RunID)
	assert.Equal(t, solver.StatusCompleted, resp.Status)
	assert.Equal(t, 0, resp.TripsGenerated)
	assert.Equal(t, 100.0, resp.Score)
	assert.Contains(t, resp.Warnings, "No games scheduled for this week")
}

func TestOptimize_LoadFailure(t *testing.T) {
	svc := NewPlannerService(&fakeWeeks{err: errors.New("store down")}, &fakeMatrix{}, &fakeWriter{}, testParams())

	_, err := svc.Optimize(context.Background(), OptimizeRequest{
		SeasonYear: intPtr(2025), WeekNumber: intPtr(5),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store down")
}

func TestOptimize_WriteFailureIsFatal(t *testing.T) {
	writer := &fakeWriter{runID: "run-1", err: errors.New("insert denied")}
	svc := NewPlannerService(&fakeWeeks{week: happyWeek()}, &fakeMatrix{}, writer, testParams())

	_, err := svc.Optimize(context.Background(), OptimizeRequest{
		SeasonYear: intPtr(2025), WeekNumber: intPtr(5),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert denied")
}

func TestOptimize_EndOfSeasonDisposition(t *testing.T) {
	wd := happyWeek()
	wd.WeekNumber = 18
	wd.Games[0].WeekNumber = 18
	writer := &fakeWriter{runID: "run-18"}
	svc := NewPlannerService(&fakeWeeks{week: wd}, &fakeMatrix{}, writer, testParams())

	resp, err := svc.Optimize(context.Background(), OptimizeRequest{
		SeasonYear: intPtr(2025), WeekNumber: intPtr(18),
	})
	require.NoError(t, err)
	assert.Equal(t, solver.StatusCompleted, resp.Status)

	for _, trip := range writer.written.Trips {
		for _, stop := range trip.Stops {
			assert.True(t, stop.RequiresHubReturn)
			assert.Contains(t, stop.HubReturnReason, "End of season")
		}
	}
}
