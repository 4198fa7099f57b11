package solver

import (
	"fmt"
	"math"

	"github.com/dragonseats/optimizer/internal/model"
	"github.com/dragonseats/optimizer/pkg/geo"
)

// Disposition actions.
const (
	DispositionLeaveOnSite = "leave_on_site"
	DispositionReroute     = "reroute_to_next_venue"
	DispositionReturnToHub = "return_to_hub"
)

const (
	// maxRerouteMiles bounds a same-customer reroute; beyond it the
	// equipment returns to the hub for redistribution.
	maxRerouteMiles = 500.0

	// maxNearbyGameMiles bounds an opportunistic handoff to another
	// customer's next-week venue.
	maxNearbyGameMiles = 200.0
)

// Disposition is the post-game decision for one trip stop.
type Disposition struct {
	Action            string
	RequiresHubReturn bool
	HubReturnReason   string
	NextVenueID       string
	NextVenueName     string
}

// ApplyDisposition decides the post-game disposition for every stop in
// the result, using next week's schedule as lookahead. Stops gain
// requires_hub_return and its reason; reroutes emit a warning naming
// the destination.
func ApplyDisposition(result *Result, nextWeekGames []model.Game, weekNumber int) *Result {
	for _, trip := range result.Trips {
		for _, stop := range trip.Stops {
			var venue *model.Venue
			customerID := ""
			if stop.Demand != nil {
				customerID = stop.Demand.CustomerID
				if stop.Demand.Game.Venue != nil {
					venue = stop.Demand.Game.Venue
				}
			}

			d := DetermineDisposition(stop, nextWeekGames, weekNumber, venue, customerID)
			stop.RequiresHubReturn = d.RequiresHubReturn
			stop.HubReturnReason = d.HubReturnReason

			if d.Action == DispositionReroute {
				dest := d.NextVenueName
				if dest == "" {
					dest = "next venue"
				}
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("%s: Reroute assets to %s for next week", stop.VenueName, dest))
			}
		}
	}
	return result
}

// DetermineDisposition decides what happens to the equipment at one
// stop after its game. First match wins:
//
//  1. Week 0 → leave on site (equipment is being deployed)
//  2. Week ≥ 18 → return to hub (end of season)
//  3. No games next week → leave on site
//  4. Same customer, same venue next week → leave on site
//  5. Same customer, different venue: reroute when under 500 miles,
//     return to hub otherwise
//  6. Same customer idle next week (bye) → leave on site
//  7. Another customer's next-week venue within 200 miles → reroute
//  8. Default → leave on site (cheaper than an unnecessary return)
func DetermineDisposition(stop *TripStop, nextWeekGames []model.Game, weekNumber int, venue *model.Venue, customerID string) Disposition {
	if weekNumber == 0 {
		return Disposition{Action: DispositionLeaveOnSite}
	}

	if weekNumber >= model.SeasonFinalWeek {
		return Disposition{
			Action:            DispositionReturnToHub,
			RequiresHubReturn: true,
			HubReturnReason:   "End of season — all assets return to hub",
		}
	}

	if len(nextWeekGames) == 0 {
		return Disposition{Action: DispositionLeaveOnSite}
	}

	if customerID != "" {
		nextGame := nextGameForCustomer(customerID, nextWeekGames)
		if nextGame != nil {
			if nextGame.VenueID == stop.VenueID {
				return Disposition{Action: DispositionLeaveOnSite}
			}
			if nextGame.Venue != nil && venue != nil {
				nextLoc, nextOK := nextGame.Venue.Location()
				stopLoc, stopOK := venue.Location()
				if nextOK && stopOK {
					distance := geo.HaversineMiles(stopLoc, nextLoc)
					if distance < maxRerouteMiles {
						return Disposition{
							Action:        DispositionReroute,
							NextVenueID:   nextGame.VenueID,
							NextVenueName: nextGame.Venue.Name,
						}
					}
					return Disposition{
						Action:            DispositionReturnToHub,
						RequiresHubReturn: true,
						HubReturnReason:   fmt.Sprintf("Next venue too far (%.0f mi) — return to hub", distance),
					}
				}
			}
		} else {
			// Bye week — leave staged on site.
			return Disposition{Action: DispositionLeaveOnSite}
		}
	}

	if venue != nil {
		if nearby := nearbyGameNextWeek(*venue, nextWeekGames, maxNearbyGameMiles); nearby != nil && nearby.Venue != nil {
			return Disposition{
				Action:        DispositionReroute,
				NextVenueID:   nearby.VenueID,
				NextVenueName: nearby.Venue.Name,
			}
		}
	}

	return Disposition{Action: DispositionLeaveOnSite}
}

func nextGameForCustomer(customerID string, games []model.Game) *model.Game {
	for i := range games {
		if games[i].CustomerID == customerID {
			return &games[i]
		}
	}
	return nil
}

// nearbyGameNextWeek finds the closest next-week game whose venue lies
// within the distance bound. Only distance is compared; the game's
// equipment needs are not checked against this stop's assets.
func nearbyGameNextWeek(venue model.Venue, games []model.Game, maxMiles float64) *model.Game {
	loc, ok := venue.Location()
	if !ok {
		return nil
	}

	var best *model.Game
	bestDist := math.Inf(1)
	for i := range games {
		game := &games[i]
		if game.Venue == nil {
			continue
		}
		gameLoc, ok := game.Venue.Location()
		if !ok {
			continue
		}
		d := geo.HaversineMiles(loc, gameLoc)
		if d < maxMiles && d < bestDist {
			bestDist = d
			best = game
		}
	}
	return best
}
