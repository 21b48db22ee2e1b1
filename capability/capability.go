// Package capability probes and caches what concurrency and
// acceleration primitives the runtime offers.
//
// Synchronous flags come from a Platform implementation and are
// side-effect-free to read. The two codec flags are settled once per
// detector by a bounded decode probe and memoized afterwards. Detection
// results are cached per Detector and can be force-refreshed.
package capability

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultProbeTimeout bounds the asynchronous codec probes.
const DefaultProbeTimeout = 2 * time.Second

// Capabilities describes the concurrency and acceleration primitives
// available to the engine. Captured once and cached; refresh with
// DetectOptions{UseCache: false}.
type Capabilities struct {
	// OffscreenSurface reports that an accelerated drawing surface can
	// be created away from the caller (a usable GPU adapter).
	OffscreenSurface bool

	// BackgroundThreads reports that render work can run on a
	// background execution handle.
	BackgroundThreads bool

	// TransferableBitmap reports zero-copy handoff of raster output
	// from a background handle to the caller.
	TransferableBitmap bool

	// TransferableObject reports zero-copy handoff of job payloads to a
	// background handle.
	TransferableObject bool

	// SharedMemory reports shared-memory access between handles.
	SharedMemory bool

	// DecodeWebP and DecodeTIFF are the codec support flags, settled by
	// decode probes against tiny in-memory samples.
	DecodeWebP bool
	DecodeTIFF bool

	// DevicePixelRatio is the platform's pixel density multiplier.
	DevicePixelRatio float64
}

// Venue is where a render job actually executes.
type Venue int

const (
	// VenueBaseline runs the job synchronously in the caller.
	VenueBaseline Venue = iota

	// VenueWorker runs the job on a background execution handle.
	VenueWorker

	// VenueAccelerated runs the job on a background handle with an
	// accelerated off-caller surface.
	VenueAccelerated
)

// String returns the venue name.
func (v Venue) String() string {
	switch v {
	case VenueWorker:
		return "worker"
	case VenueAccelerated:
		return "accelerated"
	}
	return "baseline"
}

// SupportsAccelerated reports whether the accelerated venue is usable.
// The check is strict and conjunctive: missing any one flag disqualifies
// the venue entirely.
func (c Capabilities) SupportsAccelerated() bool {
	return c.OffscreenSurface && c.BackgroundThreads &&
		c.TransferableBitmap && c.TransferableObject
}

// SupportsWorker reports whether the worker venue is usable.
func (c Capabilities) SupportsWorker() bool {
	return c.BackgroundThreads && c.TransferableObject
}

// BestVenue returns the highest venue all of whose required flags are
// present. There is no partial credit.
func (c Capabilities) BestVenue() Venue {
	switch {
	case c.SupportsAccelerated():
		return VenueAccelerated
	case c.SupportsWorker():
		return VenueWorker
	default:
		return VenueBaseline
	}
}

// Platform supplies the synchronous capability flags of a runtime.
// Probe must be side-effect-free and cheap enough to call on every
// uncached detection.
type Platform interface {
	Probe() Capabilities
}

// StubPlatform is a fixed capability set. Headless targets and tests
// use it to exercise the planning logic without touching the host.
type StubPlatform Capabilities

// Probe returns the stubbed flags unchanged.
func (p StubPlatform) Probe() Capabilities { return Capabilities(p) }

// RuntimePlatform reports the capabilities of the current Go runtime.
// Goroutines make background execution and by-reference handoff native,
// so those flags are constants; the accelerated-surface flag comes from
// a memoized GPU adapter probe.
type RuntimePlatform struct{}

// Probe implements Platform.
func (RuntimePlatform) Probe() Capabilities {
	return Capabilities{
		OffscreenSurface:   gpuAvailable(),
		BackgroundThreads:  true,
		TransferableBitmap: true,
		TransferableObject: true,
		SharedMemory:       true,
		DevicePixelRatio:   1.0,
	}
}

// DetectOptions controls a detection pass.
type DetectOptions struct {
	// UseCache returns the previously detected capabilities when set.
	UseCache bool

	// Timeout bounds the codec probes. Zero selects DefaultProbeTimeout.
	Timeout time.Duration

	// Debug logs every probed flag.
	Debug bool
}

// PerformanceProfile is the outcome of a performance analysis.
type PerformanceProfile struct {
	Capabilities     Capabilities
	RecommendedVenue Venue
}

// Detector probes and caches runtime capabilities.
type Detector struct {
	mu       sync.Mutex
	platform Platform
	cached   *Capabilities
	logger   *log.Logger

	// codec probe results are settled at most once per detector.
	codecOnce sync.Once
	webpOK    bool
	tiffOK    bool
}

// NewDetector creates a detector over the given platform. A nil
// platform selects RuntimePlatform; a nil logger selects the standard
// logger.
func NewDetector(p Platform, logger *log.Logger) *Detector {
	if p == nil {
		p = RuntimePlatform{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Detector{platform: p, logger: logger}
}

// Detect returns the runtime capabilities, merging the platform's
// synchronous flags with the memoized codec probe results. Detection is
// cached; pass DetectOptions{UseCache: false} to probe again.
func (d *Detector) Detect(ctx context.Context, opts DetectOptions) Capabilities {
	d.mu.Lock()
	if opts.UseCache && d.cached != nil {
		caps := *d.cached
		d.mu.Unlock()
		return caps
	}
	d.mu.Unlock()

	caps := d.platform.Probe()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	caps.DecodeWebP, caps.DecodeTIFF = d.probeCodecs(ctx, timeout)

	if opts.Debug {
		d.logger.Printf("capability: detected %+v", caps)
	}

	d.mu.Lock()
	d.cached = &caps
	d.mu.Unlock()
	return caps
}

// probeCodecs settles the codec flags. The probe runs once per
// detector; a timeout settles the affected flags as unsupported and
// the memoized answer is not revisited.
func (d *Detector) probeCodecs(ctx context.Context, timeout time.Duration) (webpOK, tiffOK bool) {
	d.codecOnce.Do(func() {
		type codecResult struct {
			webp, tiff bool
		}
		results := make(chan codecResult, 1)
		go func() {
			results <- codecResult{webp: probeWebPDecode(), tiff: probeTIFFRoundTrip()}
		}()

		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case r := <-results:
			d.webpOK, d.tiffOK = r.webp, r.tiff
		case <-timer.C:
			d.logger.Printf("capability: codec probe timed out after %v, assuming unsupported", timeout)
		case <-ctx.Done():
			d.logger.Printf("capability: codec probe canceled: %v", ctx.Err())
		}
	})
	return d.webpOK, d.tiffOK
}

// AnalyzePerformance detects capabilities and ranks the execution
// venues for them.
func (d *Detector) AnalyzePerformance(ctx context.Context) PerformanceProfile {
	caps := d.Detect(ctx, DetectOptions{UseCache: true})
	return PerformanceProfile{
		Capabilities:     caps,
		RecommendedVenue: caps.BestVenue(),
	}
}
