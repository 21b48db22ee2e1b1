package render

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFitFill(t *testing.T) {
	l, err := FitLayout(100, 50, 200, 200, FitFill)
	if err != nil {
		t.Fatal(err)
	}
	if l.Source != (Rect{W: 100, H: 50}) {
		t.Errorf("Source = %+v, want full source", l.Source)
	}
	if l.Dest != (Rect{W: 200, H: 200}) {
		t.Errorf("Dest = %+v, want full target", l.Dest)
	}
}

func TestFitContainGeometry(t *testing.T) {
	cases := []struct {
		name           string
		sw, sh, tw, th float64
	}{
		{"wide into square", 200, 100, 100, 100},
		{"tall into square", 100, 200, 100, 100},
		{"upscale", 10, 10, 300, 200},
		{"same aspect", 100, 50, 200, 100},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			l, err := FitLayout(c.sw, c.sh, c.tw, c.th, FitContain)
			if err != nil {
				t.Fatal(err)
			}
			if l.Dest.W > c.tw || l.Dest.H > c.th {
				t.Errorf("Dest %gx%g exceeds target %gx%g", l.Dest.W, l.Dest.H, c.tw, c.th)
			}
			if !almostEqual(l.Dest.X, (c.tw-l.Dest.W)/2) {
				t.Errorf("DestX = %g, want centered %g", l.Dest.X, (c.tw-l.Dest.W)/2)
			}
			if !almostEqual(l.Dest.Y, (c.th-l.Dest.H)/2) {
				t.Errorf("DestY = %g, want centered %g", l.Dest.Y, (c.th-l.Dest.H)/2)
			}
			// Aspect ratio preserved.
			if !almostEqual(l.Dest.W/l.Dest.H, c.sw/c.sh) {
				t.Errorf("aspect = %g, want %g", l.Dest.W/l.Dest.H, c.sw/c.sh)
			}
			// One dimension is flush with the target.
			if !almostEqual(l.Dest.W, c.tw) && !almostEqual(l.Dest.H, c.th) {
				t.Errorf("neither dimension flush: %+v", l.Dest)
			}
		})
	}
}

func TestFitCoverGeometry(t *testing.T) {
	cases := []struct {
		name           string
		sw, sh, tw, th float64
	}{
		{"wide into square", 200, 100, 100, 100},
		{"tall into square", 100, 200, 100, 100},
		{"downscale", 1000, 800, 100, 100},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			l, err := FitLayout(c.sw, c.sh, c.tw, c.th, FitCover)
			if err != nil {
				t.Fatal(err)
			}
			if l.Dest != (Rect{W: c.tw, H: c.th}) {
				t.Errorf("Dest = %+v, want full target", l.Dest)
			}
			if l.Source.W > c.sw || l.Source.H > c.sh {
				t.Errorf("Source crop %gx%g exceeds source %gx%g", l.Source.W, l.Source.H, c.sw, c.sh)
			}
			if !almostEqual(l.Source.X, (c.sw-l.Source.W)/2) {
				t.Errorf("SourceX = %g, want centered %g", l.Source.X, (c.sw-l.Source.W)/2)
			}
			if !almostEqual(l.Source.Y, (c.sh-l.Source.H)/2) {
				t.Errorf("SourceY = %g, want centered %g", l.Source.Y, (c.sh-l.Source.H)/2)
			}
		})
	}
}

func TestFitInsideNeverUpscales(t *testing.T) {
	l, err := FitLayout(10, 10, 300, 200, FitInside)
	if err != nil {
		t.Fatal(err)
	}
	// Scale capped at 1: dest stays at the source size, centered.
	if !almostEqual(l.Dest.W, 10) || !almostEqual(l.Dest.H, 10) {
		t.Errorf("Dest = %+v, want 10x10 (no upscale)", l.Dest)
	}
	if !almostEqual(l.Dest.X, 145) || !almostEqual(l.Dest.Y, 95) {
		t.Errorf("Dest offset = (%g, %g), want centered (145, 95)", l.Dest.X, l.Dest.Y)
	}

	// When the source is larger than the target, inside behaves like contain.
	l, err = FitLayout(400, 400, 100, 100, FitInside)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(l.Dest.W, 100) {
		t.Errorf("Dest.W = %g, want 100 (downscale allowed)", l.Dest.W)
	}
}

func TestFitOutsideNeverOnlyDownscales(t *testing.T) {
	// Target smaller than source in both dimensions: the scale floors
	// at 1, so the source is cropped 1:1 instead of downscaled.
	l, err := FitLayout(400, 400, 100, 80, FitOutside)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(l.Source.W, 100) || !almostEqual(l.Source.H, 80) {
		t.Errorf("Source crop = %+v, want 100x80 at 1:1", l.Source)
	}

	// Larger targets behave like cover.
	l, err = FitLayout(100, 100, 300, 200, FitOutside)
	if err != nil {
		t.Fatal(err)
	}
	if l.Source.W > 100 || l.Source.H > 100 {
		t.Errorf("Source crop %+v exceeds source", l.Source)
	}
	if l.Dest != (Rect{W: 300, H: 200}) {
		t.Errorf("Dest = %+v, want full target", l.Dest)
	}
}

func TestFitLayoutErrors(t *testing.T) {
	if _, err := FitLayout(0, 10, 100, 100, FitFill); err == nil {
		t.Error("want error for zero source width")
	}
	if _, err := FitLayout(10, 10, 100, 0, FitFill); err == nil {
		t.Error("want error for zero target height")
	}
	if _, err := FitLayout(10, 10, 100, 100, FitMode("stretch")); err == nil {
		t.Error("want error for unknown fit mode")
	}
}

func TestRectScale(t *testing.T) {
	r := Rect{X: 1, Y: 2, W: 3, H: 4}.Scale(2)
	if r != (Rect{X: 2, Y: 4, W: 6, H: 8}) {
		t.Errorf("Scale = %+v", r)
	}
}

func TestImageRect(t *testing.T) {
	r := Rect{X: 0.4, Y: 0.6, W: 10.2, H: 9.9}.ImageRect()
	if r.Min.X != 0 || r.Min.Y != 1 {
		t.Errorf("Min = %v", r.Min)
	}
	if r.Max.X != 11 || r.Max.Y != 11 {
		t.Errorf("Max = %v, want (11, 11)", r.Max)
	}
}
