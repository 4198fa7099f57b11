package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dragonseats/optimizer/internal/model"
	"github.com/dragonseats/optimizer/pkg/geo"
)

func TestClusterVenues_GroupsNearbyVenues(t *testing.T) {
	wd := multiStopData()
	matrix := buildTestMatrix(wd)

	clusters := defaultClusters(wd, matrix)

	total := 0
	for _, c := range clusters {
		total += len(c.Venues)
	}
	assert.Equal(t, 3, total, "every venue lands in exactly one cluster")

	// All three Ohio venues sit inside the 150-mile radius of the
	// seed, so they share a cluster.
	require.Len(t, clusters, 1)
	assert.True(t, clusters[0].IsMultiStop())
}

func TestClusterVenues_RadiusProperty(t *testing.T) {
	wd := infeasibleWeekData()
	matrix := buildTestMatrix(wd)

	clusters := defaultClusters(wd, matrix)

	for _, cluster := range clusters {
		if !cluster.IsMultiStop() {
			continue
		}
		seedLoc, ok := cluster.Venues[0].Location()
		require.True(t, ok)
		for _, member := range cluster.Venues[1:] {
			loc, ok := member.Location()
			require.True(t, ok)
			assert.LessOrEqual(t, geo.HaversineMiles(seedLoc, loc), 150.0)
		}
	}
}

func TestClusterVenues_DistantVenuesStaySeparate(t *testing.T) {
	wd := infeasibleWeekData()
	matrix := buildTestMatrix(wd)

	clusters := defaultClusters(wd, matrix)
	assert.Len(t, clusters, 5, "five distant cities cannot share a trip")
}

func TestClusterVenues_MaxStopsCap(t *testing.T) {
	hub := clevelandHub()
	var venues []model.Venue
	// Six venues in a tight cluster around the hub.
	for i := 0; i < 6; i++ {
		v := makeVenue(
			"ven-"+string(rune('a'+i)), "cust", "Venue "+string(rune('A'+i)),
			41.50+float64(i)*0.01, -81.69)
		venues = append(venues, *v)
	}

	matrix := NewMatrix(nil)
	clusters := ClusterVenues(venues, []geo.LatLng{hub.Location()}, matrix, 150, 4)

	total := 0
	for _, c := range clusters {
		assert.LessOrEqual(t, len(c.Venues), 4)
		total += len(c.Venues)
	}
	assert.Equal(t, 6, total)
}

func TestClusterVenues_MissingCoordinatesBecomeSingletons(t *testing.T) {
	hub := clevelandHub()
	located := *makeVenue("ven-a", "cust-a", "Venue A", 41.50, -81.69)
	unlocated := model.Venue{ID: "ven-b", CustomerID: "cust-b", Name: "Venue B"}

	matrix := NewMatrix(nil)
	clusters := ClusterVenues([]model.Venue{located, unlocated}, []geo.LatLng{hub.Location()}, matrix, 150, 4)

	require.Len(t, clusters, 2)
	// The coordinate-less venue trails the list as a singleton.
	last := clusters[len(clusters)-1]
	require.Len(t, last.Venues, 1)
	assert.Equal(t, "ven-b", last.Venues[0].ID)
}

func TestClusterVenues_OrdersStopsFromHub(t *testing.T) {
	wd := multiStopData()
	matrix := buildTestMatrix(wd)

	clusters := defaultClusters(wd, matrix)
	require.Len(t, clusters, 1)
	ordered := clusters[0].OrderedVenueIDs
	require.Len(t, ordered, 3)

	// Nearest-neighbor from the Cleveland hub: Browns first, then
	// Akron, then Columbus.
	assert.Equal(t, []string{"ven-browns", "ven-zips", "ven-bucks"}, ordered)
}

func TestClusterVenues_Deterministic(t *testing.T) {
	wd := multiStopData()
	matrix := buildTestMatrix(wd)

	first := defaultClusters(wd, matrix)
	second := defaultClusters(wd, matrix)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].OrderedVenueIDs, second[i].OrderedVenueIDs)
	}
}

func TestClusterVenues_Empty(t *testing.T) {
	matrix := NewMatrix(nil)
	assert.Empty(t, ClusterVenues(nil, nil, matrix, 150, 4))
}
