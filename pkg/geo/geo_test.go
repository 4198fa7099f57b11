package geo

import (
	"math"
	"testing"
)

func TestHaversineMiles_SamePoint(t *testing.T) {
	loc := LatLng{Lat: 41.4993, Lng: -81.6944}
	got := HaversineMiles(loc, loc)
	if got != 0 {
		t.Errorf("HaversineMiles(same point) = %v, want 0", got)
	}
}

func TestHaversineMiles_KnownDistance(t *testing.T) {
	// Cleveland hub to Akron (~31 miles straight line)
	cleveland := LatLng{Lat: 41.4993, Lng: -81.6944}
	akron := LatLng{Lat: 41.0753, Lng: -81.5097}
	got := HaversineMiles(cleveland, akron)
	wantMin, wantMax := 25.0, 45.0
	if got < wantMin || got > wantMax {
		t.Errorf("HaversineMiles(Cleveland→Akron) = %.2f mi, want between %.1f and %.1f", got, wantMin, wantMax)
	}
}

func TestRoadEstimate(t *testing.T) {
	cleveland := LatLng{Lat: 41.4993, Lng: -81.6944}
	akron := LatLng{Lat: 41.0753, Lng: -81.5097}
	miles, minutes := RoadEstimate(cleveland, akron)
	// Road estimate should be ~1.3x the straight line.
	if miles < 30 || miles > 80 {
		t.Errorf("RoadEstimate miles = %.1f, want between 30 and 80", miles)
	}
	if minutes <= 0 {
		t.Errorf("RoadEstimate minutes = %.1f, want positive", minutes)
	}
	// One-decimal rounding.
	if miles != math.Round(miles*10)/10 {
		t.Errorf("RoadEstimate miles %.4f not rounded to one decimal", miles)
	}
}

func TestRoadEstimate_SamePoint(t *testing.T) {
	loc := LatLng{Lat: 41.4993, Lng: -81.6944}
	miles, minutes := RoadEstimate(loc, loc)
	if miles != 0 || minutes != 0 {
		t.Errorf("RoadEstimate(same point) = (%v, %v), want (0, 0)", miles, minutes)
	}
}

func TestEqual_Tolerance(t *testing.T) {
	a := LatLng{Lat: 41.499300, Lng: -81.694400}
	b := LatLng{Lat: 41.4993004, Lng: -81.6944004}
	if !a.Equal(b) {
		t.Errorf("points differing by <1e-6 should be equal")
	}
	c := LatLng{Lat: 41.49931, Lng: -81.6944}
	if a.Equal(c) {
		t.Errorf("points differing by 1e-5 should not be equal")
	}
}

func TestEqual_IgnoresLabel(t *testing.T) {
	a := LatLng{Lat: 41.4993, Lng: -81.6944, Label: "Cleveland Hub"}
	b := LatLng{Lat: 41.4993, Lng: -81.6944, Label: "Somewhere Else"}
	if !a.Equal(b) {
		t.Errorf("labels must not participate in identity")
	}
}

func TestKey_HashEquality(t *testing.T) {
	a := LatLng{Lat: 41.4993, Lng: -81.6944}
	b := LatLng{Lat: 41.4993000004, Lng: -81.6944000004}
	seen := map[Key]bool{a.Key(): true}
	if !seen[b.Key()] {
		t.Errorf("equal points must produce equal map keys")
	}
}

func TestRound1(t *testing.T) {
	if got := Round1(12.34); got != 12.3 {
		t.Errorf("Round1(12.34) = %v, want 12.3", got)
	}
	if got := Round1(12.36); got != 12.4 {
		t.Errorf("Round1(12.36) = %v, want 12.4", got)
	}
}
