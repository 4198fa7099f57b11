package repository

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/dragonseats/optimizer/internal/solver"
)

const tripAssetBatchSize = 100

// RunWriter persists planning results to the store:
// optimizer_runs → trips → trip_stops / trip_assets / trip_personnel.
// Plans are immutable once written; a new run creates new rows and
// never mutates earlier ones.
type RunWriter struct {
	store *StoreClient
}

// NewRunWriter creates a run writer over the store client.
func NewRunWriter(store *StoreClient) *RunWriter {
	return &RunWriter{store: store}
}

// WriteResults writes the run and its trips.
//
// Flow: insert the optimizer_runs row with status running, write each
// trip with its child rows, then patch the run row with the final
// status, duration, counts, and diagnostics. A failed trip write is
// recorded as an error naming its first stop's venue and does not
// prevent other trips from being written; a top-level failure still
// attempts to patch the run to failed before returning the error.
//
// Returns the run ID. An unconfigured store returns a fresh ID without
// writing — handy for local development.
func (w *RunWriter) WriteResults(ctx context.Context, result *solver.Result, seasonYear, weekNumber int, triggeredBy string) (string, error) {
	runID := uuid.NewString()
	if !w.store.Configured() {
		return runID, nil
	}

	start := time.Now()

	runRow := map[string]any{
		"id":           runID,
		"week_number":  weekNumber,
		"season_year":  seasonYear,
		"triggered_by": triggeredBy,
		"status":       "running",
		"started_at":   time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := w.store.Post(ctx, "optimizer_runs", runRow); err != nil {
		return runID, fmt.Errorf("create run row: %w", err)
	}

	tripsWritten := 0
	var tripErrors []string
	for _, trip := range result.Trips {
		if err := w.writeTrip(ctx, trip, runID, seasonYear, weekNumber); err != nil {
			venueName := "unknown"
			if len(trip.Stops) > 0 {
				venueName = trip.Stops[0].VenueName
			}
			tripErrors = append(tripErrors, fmt.Sprintf("Failed to write trip to %s: %v", venueName, err))
			log.Printf("[writer] trip write failed (%s): %v", venueName, err)
			continue
		}
		tripsWritten++
	}

	update := map[string]any{
		"status":          result.Status,
		"completed_at":    time.Now().UTC().Format(time.RFC3339),
		"duration_ms":     time.Since(start).Milliseconds(),
		"trips_generated": tripsWritten,
	}
	update["warnings"] = nilIfEmpty(result.Warnings)
	allErrors := append(append([]string(nil), result.Errors...), tripErrors...)
	update["errors"] = nilIfEmpty(allErrors)
	if len(result.UnassignedDemands) > 0 {
		update["unassigned_demands"] = result.UnassignedDemands
	} else {
		update["unassigned_demands"] = nil
	}
	if len(result.ConstraintRelaxations) > 0 {
		update["constraint_relaxations"] = result.ConstraintRelaxations
	} else {
		update["constraint_relaxations"] = nil
	}

	if err := w.patchRun(ctx, runID, update); err != nil {
		w.markRunFailed(ctx, runID, start, err)
		return runID, fmt.Errorf("finalize run row: %w", err)
	}

	return runID, nil
}

// markRunFailed patches the run row to failed with the error text;
// best-effort.
func (w *RunWriter) markRunFailed(ctx context.Context, runID string, startedAt time.Time, cause error) {
	if !w.store.Configured() {
		return
	}
	err := w.patchRun(ctx, runID, map[string]any{
		"status":       "failed",
		"completed_at": time.Now().UTC().Format(time.RFC3339),
		"duration_ms":  time.Since(startedAt).Milliseconds(),
		"errors":       []string{cause.Error()},
	})
	if err != nil {
		log.Printf("[writer] failed to mark run %s failed: %v", runID, err)
	}
}

func (w *RunWriter) patchRun(ctx context.Context, runID string, update map[string]any) error {
	return w.store.Patch(ctx, "optimizer_runs", url.Values{"id": {"eq." + runID}}, update)
}

// writeTrip writes a single trip and its stop, asset, and personnel
// child rows.
func (w *RunWriter) writeTrip(ctx context.Context, trip *solver.Trip, runID string, seasonYear, weekNumber int) error {
	tripID := uuid.NewString()

	tripRow := map[string]any{
		"id":               tripID,
		"week_number":      weekNumber,
		"season_year":      seasonYear,
		"optimizer_run_id": runID,
		"status":           "recommended",
		"vehicle_id":       trip.VehicleID,
		"origin_type":      "hub",
		"origin_id":        trip.OriginHubID,
		"depart_time":      nilIfBlank(trip.DepartTime),
		"return_time":      nilIfBlank(trip.ReturnTime),
		"total_miles":      trip.TotalMiles,
		"total_drive_hrs":  trip.TotalDriveHrs,
		"is_recommended":   true,
		"is_manual":        false,
		"optimizer_score":  trip.OptimizerScore,
	}
	if _, err := w.store.Post(ctx, "trips", tripRow); err != nil {
		return err
	}

	for _, stop := range trip.Stops {
		stopRow := map[string]any{
			"id":                  uuid.NewString(),
			"trip_id":             tripID,
			"venue_id":            stop.VenueID,
			"stop_order":          stop.StopOrder,
			"arrival_time":        nilIfBlank(stop.ArrivalTime),
			"depart_time":         nilIfBlank(stop.DepartTime),
			"action":              stop.Action,
			"requires_hub_return": stop.RequiresHubReturn,
			"hub_return_reason":   nilIfBlank(stop.HubReturnReason),
		}
		if _, err := w.store.Post(ctx, "trip_stops", stopRow); err != nil {
			return err
		}
	}

	if len(trip.Assets) > 0 {
		rows := make([]map[string]any, 0, len(trip.Assets))
		for _, ta := range trip.Assets {
			rows = append(rows, map[string]any{
				"trip_id":  tripID,
				"asset_id": ta.AssetID,
				"stop_id":  nilIfBlank(ta.StopID),
			})
		}
		for i := 0; i < len(rows); i += tripAssetBatchSize {
			batch := rows[i:minLen(i+tripAssetBatchSize, len(rows))]
			if _, err := w.store.Post(ctx, "trip_assets", batch); err != nil {
				return err
			}
		}
	}

	if len(trip.Personnel) > 0 {
		rows := make([]map[string]any, 0, len(trip.Personnel))
		for _, tp := range trip.Personnel {
			rows = append(rows, map[string]any{
				"trip_id":      tripID,
				"person_id":    tp.PersonID,
				"role_on_trip": tp.RoleOnTrip,
			})
		}
		if _, err := w.store.Post(ctx, "trip_personnel", rows); err != nil {
			return err
		}
	}

	return nil
}

func nilIfEmpty(v []string) any {
	if len(v) == 0 {
		return nil
	}
	return v
}

func nilIfBlank(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func minLen(a, b int) int {
	if a < b {
		return a
	}
	return b
}
