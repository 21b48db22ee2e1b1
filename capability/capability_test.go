package capability

import (
	"context"
	"testing"
	"time"
)

func fullCapabilities() Capabilities {
	return Capabilities{
		OffscreenSurface:   true,
		BackgroundThreads:  true,
		TransferableBitmap: true,
		TransferableObject: true,
		SharedMemory:       true,
		DecodeWebP:         true,
		DecodeTIFF:         true,
		DevicePixelRatio:   1.0,
	}
}

func TestVenueRankingIsConjunctive(t *testing.T) {
	full := fullCapabilities()
	if got := full.BestVenue(); got != VenueAccelerated {
		t.Fatalf("BestVenue(full) = %v, want accelerated", got)
	}

	// Dropping any one of the four required flags must drop the venue.
	drop := []func(*Capabilities){
		func(c *Capabilities) { c.OffscreenSurface = false },
		func(c *Capabilities) { c.BackgroundThreads = false },
		func(c *Capabilities) { c.TransferableBitmap = false },
		func(c *Capabilities) { c.TransferableObject = false },
	}
	for i, f := range drop {
		c := full
		f(&c)
		if c.SupportsAccelerated() {
			t.Errorf("case %d: SupportsAccelerated = true with a required flag missing", i)
		}
	}
}

func TestWorkerVenueRequirements(t *testing.T) {
	c := Capabilities{BackgroundThreads: true, TransferableObject: true}
	if got := c.BestVenue(); got != VenueWorker {
		t.Errorf("BestVenue = %v, want worker", got)
	}

	c.TransferableObject = false
	if got := c.BestVenue(); got != VenueBaseline {
		t.Errorf("BestVenue = %v, want baseline without transferable objects", got)
	}

	c = Capabilities{TransferableObject: true}
	if got := c.BestVenue(); got != VenueBaseline {
		t.Errorf("BestVenue = %v, want baseline without background threads", got)
	}
}

func TestDetectUsesCache(t *testing.T) {
	probes := 0
	p := countingPlatform{calls: &probes}
	d := NewDetector(p, nil)

	ctx := context.Background()
	first := d.Detect(ctx, DetectOptions{UseCache: true, Timeout: time.Second})
	second := d.Detect(ctx, DetectOptions{UseCache: true, Timeout: time.Second})
	if probes != 1 {
		t.Errorf("platform probed %d times, want 1 (cached)", probes)
	}
	if first != second {
		t.Errorf("cached detection differs: %+v vs %+v", first, second)
	}

	d.Detect(ctx, DetectOptions{UseCache: false, Timeout: time.Second})
	if probes != 2 {
		t.Errorf("platform probed %d times, want 2 after forced refresh", probes)
	}
}

type countingPlatform struct {
	calls *int
}

func (p countingPlatform) Probe() Capabilities {
	*p.calls++
	return Capabilities{BackgroundThreads: true, TransferableObject: true, DevicePixelRatio: 1.0}
}

func TestDetectMergesCodecFlags(t *testing.T) {
	d := NewDetector(StubPlatform{}, nil)
	caps := d.Detect(context.Background(), DetectOptions{Timeout: 5 * time.Second})

	// The codec flags come from real in-process decode probes and both
	// decoders ship with the module, so they settle true.
	if !caps.DecodeWebP {
		t.Error("DecodeWebP = false, want true")
	}
	if !caps.DecodeTIFF {
		t.Error("DecodeTIFF = false, want true")
	}
}

func TestCodecProbesSettleOnce(t *testing.T) {
	d := NewDetector(StubPlatform{}, nil)
	ctx := context.Background()

	first := d.Detect(ctx, DetectOptions{Timeout: 5 * time.Second})
	// A forced refresh must not re-run the settled codec probes, and the
	// flags must not change.
	second := d.Detect(ctx, DetectOptions{UseCache: false, Timeout: time.Nanosecond})
	if first.DecodeWebP != second.DecodeWebP || first.DecodeTIFF != second.DecodeTIFF {
		t.Errorf("codec flags changed across refresh: %+v vs %+v", first, second)
	}
}

func TestStubPlatformAllFalse(t *testing.T) {
	caps := StubPlatform{}.Probe()
	if caps.SupportsWorker() || caps.SupportsAccelerated() {
		t.Errorf("all-false stub reports venue support: %+v", caps)
	}
	if caps.BestVenue() != VenueBaseline {
		t.Errorf("BestVenue = %v, want baseline", caps.BestVenue())
	}
}

func TestAnalyzePerformance(t *testing.T) {
	d := NewDetector(StubPlatform(fullCapabilities()), nil)
	prof := d.AnalyzePerformance(context.Background())
	if prof.RecommendedVenue != VenueAccelerated {
		t.Errorf("RecommendedVenue = %v, want accelerated", prof.RecommendedVenue)
	}
	if !prof.Capabilities.OffscreenSurface {
		t.Error("Capabilities not carried through profile")
	}
}

func TestWebPSampleDecodes(t *testing.T) {
	if !probeWebPDecode() {
		t.Error("embedded WebP sample failed to decode")
	}
}

func TestTIFFRoundTrip(t *testing.T) {
	if !probeTIFFRoundTrip() {
		t.Error("TIFF round trip failed")
	}
}
