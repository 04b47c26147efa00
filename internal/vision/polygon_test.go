package vision

import (
	"math"
	"testing"
)

func polygonBounds(t *testing.T, poly []float64) (minX, maxX, minY, maxY float64) {
	t.Helper()
	if len(poly)%2 != 0 {
		t.Fatalf("odd coordinate count %d", len(poly))
	}
	minX, maxX = 1.0, 0.0
	minY, maxY = 1.0, 0.0
	for i := 0; i < len(poly); i += 2 {
		x, y := poly[i], poly[i+1]
		if x < 0 || x > 1 || y < 0 || y > 1 {
			t.Fatalf("vertex (%v, %v) outside [0,1]", x, y)
		}
		minX = math.Min(minX, x)
		maxX = math.Max(maxX, x)
		minY = math.Min(minY, y)
		maxY = math.Max(maxY, y)
	}
	return minX, maxX, minY, maxY
}

func TestMaskToPolygonRectangle(t *testing.T) {
	m := RectMask(64, 64, 8, 16, 24, 20)

	poly := MaskToPolygon(m)
	if len(poly) < 6 {
		t.Fatalf("polygon has %d coordinates, want at least 3 points", len(poly))
	}

	minX, maxX, minY, maxY := polygonBounds(t, poly)

	// 2px slack for contour simplification on pixel centers.
	const tol = 2.0 / 64.0
	checks := []struct {
		name      string
		got, want float64
	}{
		{"minX", minX, 8.0 / 64.0},
		{"maxX", maxX, 31.0 / 64.0},
		{"minY", minY, 16.0 / 64.0},
		{"maxY", maxY, 35.0 / 64.0},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > tol {
			t.Errorf("%s = %v, want %v ± %v", c.name, c.got, c.want, tol)
		}
	}
}

func TestMaskToPolygonEmptyMask(t *testing.T) {
	if poly := MaskToPolygon(NewMask(32, 32)); len(poly) != 0 {
		t.Errorf("empty mask produced polygon %v", poly)
	}
	if poly := MaskToPolygon(Mask{}); poly != nil {
		t.Error("zero mask produced a polygon")
	}
}

func TestMaskToPolygonDropsNoise(t *testing.T) {
	m := NewMask(32, 32)
	// 2x2 blob: contour area well under the 10px noise floor.
	m.Set(5, 5)
	m.Set(6, 5)
	m.Set(5, 6)
	m.Set(6, 6)

	if poly := MaskToPolygon(m); len(poly) != 0 {
		t.Errorf("noise blob produced polygon %v", poly)
	}
}

func TestMaskToPolygonSinglePixelDropped(t *testing.T) {
	m := NewMask(16, 16)
	m.Set(8, 8)

	if poly := MaskToPolygon(m); len(poly) != 0 {
		t.Errorf("isolated pixel produced polygon %v", poly)
	}
}

func TestMaskToPolygonConcatenatesComponents(t *testing.T) {
	m := NewMask(64, 64)
	for y := 4; y < 12; y++ {
		for x := 4; x < 12; x++ {
			m.Set(x, y)
		}
	}
	for y := 40; y < 52; y++ {
		for x := 40; x < 52; x++ {
			m.Set(x, y)
		}
	}

	poly := MaskToPolygon(m)
	// Two rectangles of at least 3 vertices each, all in one polygon.
	if len(poly) < 12 {
		t.Fatalf("polygon has %d coordinates, want at least 12", len(poly))
	}

	minX, maxX, _, _ := polygonBounds(t, poly)
	if minX > 12.0/64.0 {
		t.Errorf("minX = %v, polygon misses the upper-left component", minX)
	}
	if maxX < 40.0/64.0 {
		t.Errorf("maxX = %v, polygon misses the lower-right component", maxX)
	}
}
