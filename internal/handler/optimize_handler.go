package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"

	"github.com/dragonseats/optimizer/internal/service"
)

// OptimizeHandler handles planner runs over HTTP.
type OptimizeHandler struct {
	planner  *service.PlannerService
	validate *validator.Validate
}

// NewOptimizeHandler creates a handler wired to the planner service.
func NewOptimizeHandler(planner *service.PlannerService) *OptimizeHandler {
	return &OptimizeHandler{
		planner:  planner,
		validate: validator.New(),
	}
}

// Optimize handles POST /optimize
//
//	Request body:
//	{
//	  "season_year": 2025,
//	  "week_number": 1,
//	  "triggered_by": "user_id_or_cron"
//	}
//
// Returns the run summary including trips generated, score, warnings,
// unassigned demands, and the constraint-relaxation log. Validation
// problems return 400; planner or write failures return 500 with a
// failed payload.
func (h *OptimizeHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req service.OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Request body must be JSON",
		})
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "season_year and week_number are required",
		})
		return
	}

	if *req.WeekNumber < 0 || *req.WeekNumber > 18 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "week_number must be between 0 and 18",
		})
		return
	}

	resp, err := h.planner.Optimize(r.Context(), req)
	if err != nil {
		log.Printf("[handler] optimize failed: %v", err)
		sentry.CaptureException(err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"run_id":          nil,
			"status":          "failed",
			"trips_generated": 0,
			"score":           0,
			"warnings":        []string{},
			"errors":          []string{err.Error()},
			"detail":          fmt.Sprintf("%+v", err),
		})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
