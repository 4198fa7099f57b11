// Package provider implements the external driving-distance client.
// The service answers origin × destination coordinate lists with
// per-pair distance in meters and duration in seconds; we convert to
// miles and minutes rounded to one decimal.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dragonseats/optimizer/internal/solver"
	"github.com/dragonseats/optimizer/pkg/geo"
)

const (
	defaultBaseURL = "https://maps.googleapis.com/maps/api/distancematrix/json"
	requestTimeout = 30 * time.Second
	metersPerMile  = 1609.34
)

// Client queries the distance-matrix endpoint. A missing API key
// disables the client entirely — the matrix builder then relies on
// the haversine fallback.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a provider client for the given API key.
func New(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// Enabled reports whether the client has an API key.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type matrixResponse struct {
	Rows []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Value float64 `json:"value"` // meters
			} `json:"distance"`
			Duration struct {
				Value float64 `json:"value"` // seconds
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
	Status string `json:"status"`
}

// FetchBatch queries one origins × destinations batch (the caller
// keeps each side at or under the provider's 25-element limit).
// Elements the provider could not answer are skipped.
func (c *Client) FetchBatch(ctx context.Context, origins, destinations []geo.LatLng) ([]solver.ProviderResult, error) {
	if !c.Enabled() {
		return nil, nil
	}

	params := url.Values{
		"origins":      {joinCoords(origins)},
		"destinations": {joinCoords(destinations)},
		"units":        {"imperial"},
		"mode":         {"driving"},
		"key":          {c.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider: status %d", resp.StatusCode)
	}

	var body matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("provider: decode: %w", err)
	}
	if body.Status != "OK" {
		return nil, fmt.Errorf("provider: response status %s", body.Status)
	}

	var results []solver.ProviderResult
	for i, row := range body.Rows {
		if i >= len(origins) {
			break
		}
		for j, element := range row.Elements {
			if j >= len(destinations) || element.Status != "OK" {
				continue
			}
			results = append(results, solver.ProviderResult{
				Origin:          origins[i],
				Destination:     destinations[j],
				DistanceMiles:   geo.Round1(element.Distance.Value / metersPerMile),
				DurationMinutes: geo.Round1(element.Duration.Value / 60),
			})
		}
	}
	return results, nil
}

func joinCoords(locs []geo.LatLng) string {
	parts := make([]string, 0, len(locs))
	for _, l := range locs {
		parts = append(parts, fmt.Sprintf("%f,%f", l.Lat, l.Lng))
	}
	return strings.Join(parts, "|")
}
