// Package service contains the request orchestrator gluing the
// planning pipeline: load week inputs → distance matrix → constraints
// → clustering → planner (regular or preseason) → infeasibility
// cascade → post-game disposition → scoring → persistence.
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dragonseats/optimizer/internal/model"
	"github.com/dragonseats/optimizer/internal/solver"
	"github.com/dragonseats/optimizer/pkg/geo"
)

// ─── Collaborator interfaces ────────────────────────────────

// WeekLoader loads planning inputs from the store.
type WeekLoader interface {
	LoadWeekData(ctx context.Context, seasonYear, weekNumber int) (*model.WeekData, error)
	LoadNextWeekSchedule(ctx context.Context, seasonYear, weekNumber int) ([]model.Game, error)
}

// MatrixAssembler builds the distance matrix for a location set.
type MatrixAssembler interface {
	Build(ctx context.Context, locations []geo.LatLng) *solver.Matrix
}

// ResultWriter persists a finished run.
type ResultWriter interface {
	WriteResults(ctx context.Context, result *solver.Result, seasonYear, weekNumber int, triggeredBy string) (string, error)
}

// ─── Request / response ─────────────────────────────────────

// OptimizeRequest is the validated /optimize body.
type OptimizeRequest struct {
	SeasonYear  *int   `json:"season_year" validate:"required"`
	WeekNumber  *int   `json:"week_number" validate:"required"`
	TriggeredBy string `json:"triggered_by"`
}

// OptimizeResponse is the /optimize reply.
type OptimizeResponse struct {
	RunID                 string                    `json:"run_id,omitempty"`
	Status                string                    `json:"status"`
	TripsGenerated        int                       `json:"trips_generated"`
	Score                 float64                   `json:"score"`
	DurationMs            int64                     `json:"duration_ms"`
	Warnings              []string                  `json:"warnings"`
	Errors                []string                  `json:"errors"`
	UnassignedDemands     []solver.UnassignedDemand `json:"unassigned_demands,omitempty"`
	ConstraintRelaxations []solver.RelaxationEntry  `json:"constraint_relaxations,omitempty"`
	Message               string                    `json:"message,omitempty"`
}

// Params carries the per-run solver configuration.
type Params struct {
	Timeout             time.Duration
	MaxClusterRadiusMi  float64
	MaxStopsPerTrip     int
	SetupBufferHours    float64
	TeardownBufferHours float64
}

// ─── PlannerService ─────────────────────────────────────────

// PlannerService runs the weekly planning pipeline per request. All
// mutable per-run state is request-local; the store and cache are the
// only shared resources.
type PlannerService struct {
	weeks  WeekLoader
	matrix MatrixAssembler
	writer ResultWriter
	params Params
}

// NewPlannerService wires the orchestrator.
func NewPlannerService(weeks WeekLoader, matrix MatrixAssembler, writer ResultWriter, params Params) *PlannerService {
	return &PlannerService{weeks: weeks, matrix: matrix, writer: writer, params: params}
}

// Optimize runs the full pipeline for one (season, week) request.
func (s *PlannerService) Optimize(ctx context.Context, req OptimizeRequest) (*OptimizeResponse, error) {
	start := time.Now()
	seasonYear := *req.SeasonYear
	weekNumber := *req.WeekNumber
	triggeredBy := req.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = "manual"
	}

	// Step 1: load inputs.
	weekData, err := s.weeks.LoadWeekData(ctx, seasonYear, weekNumber)
	if err != nil {
		return nil, fmt.Errorf("load week data: %w", err)
	}
	nextWeekGames, err := s.weeks.LoadNextWeekSchedule(ctx, seasonYear, weekNumber)
	if err != nil {
		return nil, fmt.Errorf("load next week schedule: %w", err)
	}

	if len(weekData.Games) == 0 {
		return &OptimizeResponse{
			Status:         solver.StatusCompleted,
			TripsGenerated: 0,
			Score:          100,
			DurationMs:     time.Since(start).Milliseconds(),
			Warnings:       []string{"No games scheduled for this week"},
			Errors:         []string{},
			Message:        fmt.Sprintf("No games in week %d of %d", weekNumber, seasonYear),
		}, nil
	}

	// Step 2: distance matrix (cache → provider → fallback).
	locations := weekData.AllLocations()
	matrix := s.matrix.Build(ctx, locations)

	// Step 3: constraints.
	cons := solver.BuildConstraints(weekData, s.params.SetupBufferHours, s.params.TeardownBufferHours)

	// Step 4: cluster venues for multi-stop trips.
	clusters := solver.ClusterVenues(
		weekData.GameVenues(), weekData.HubLocations(), matrix,
		s.params.MaxClusterRadiusMi, s.params.MaxStopsPerTrip)

	// Step 5: plan — preseason runs the multi-pass variant.
	var result *solver.Result
	if weekNumber == 0 {
		result = solver.PlanPreseason(weekData, matrix, cons, clusters,
			s.params.Timeout, s.params.MaxClusterRadiusMi, s.params.MaxStopsPerTrip)
	} else {
		result = solver.PlanWeek(weekData, matrix, cons, clusters, s.params.Timeout, nil)
	}

	// Step 6: relaxation cascade on infeasibility.
	if result.HasUnassigned() {
		result = solver.HandleInfeasibility(weekData, matrix, result, solver.CascadeParams{
			Timeout:             s.params.Timeout,
			MaxClusterRadiusMi:  s.params.MaxClusterRadiusMi,
			MaxStops:            s.params.MaxStopsPerTrip,
			SetupBufferHours:    s.params.SetupBufferHours,
			TeardownBufferHours: s.params.TeardownBufferHours,
		})
	}

	// Step 7: post-game disposition via next-week lookahead.
	result = solver.ApplyDisposition(result, nextWeekGames, weekNumber)

	// Step 8: score.
	result = solver.ScoreRun(result, matrix)

	// Step 9: persist. Write failures are fatal to the request.
	runID, err := s.writer.WriteResults(ctx, result, seasonYear, weekNumber, triggeredBy)
	if err != nil {
		return nil, fmt.Errorf("write results: %w", err)
	}

	log.Printf("[solver] week %d/%d: %d trips, status=%s, score=%.1f",
		weekNumber, seasonYear, len(result.Trips), result.Status, result.AverageScore)

	return &OptimizeResponse{
		RunID:                 runID,
		Status:                result.Status,
		TripsGenerated:        len(result.Trips),
		Score:                 result.AverageScore,
		DurationMs:            time.Since(start).Milliseconds(),
		Warnings:              emptyIfNil(result.Warnings),
		Errors:                emptyIfNil(result.Errors),
		UnassignedDemands:     result.UnassignedDemands,
		ConstraintRelaxations: result.ConstraintRelaxations,
	}, nil
}

func emptyIfNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
