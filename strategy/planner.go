// Package strategy plans how a render request should execute: which
// venue, which quality tier, and at what estimated cost.
//
// Planning combines document complexity, runtime capabilities, and a
// derived memory budget. Plans are cached under a quantized context key
// so that near-identical requests reuse the same decision. Planning
// never fails: any internal error degrades to a fixed conservative
// strategy with a logged warning.
package strategy

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/gogpu/vraster/cache"
	"github.com/gogpu/vraster/capability"
	"github.com/gogpu/vraster/complexity"
)

// Cache sizing constants.
const (
	// CacheCapacity bounds the number of cached strategies.
	CacheCapacity = 100

	// CacheTTL is the lifetime of a cached strategy.
	CacheTTL = 30 * time.Minute

	// detectTimeout bounds capability detection during planning.
	detectTimeout = 500 * time.Millisecond
)

// Strategy is the planner's decision bundle for one request context.
// Immutable once produced; cached and shared across requests.
type Strategy struct {
	// UseAcceleratedSurface selects the accelerated venue (implies
	// UseWorker).
	UseAcceleratedSurface bool

	// UseWorker selects background execution.
	UseWorker bool

	// OptimizeSource asks the renderer to simplify the source before
	// drawing. Set only by the memory downgrade rule.
	OptimizeSource bool

	// Tier is the selected quality tier.
	Tier complexity.Tier

	// ExpectedGainPct is the estimated latency gain over the baseline
	// venue, in percent.
	ExpectedGainPct int

	// EstimatedTimeMs and EstimatedMemoryMB are cost estimates for the
	// chosen plan.
	EstimatedTimeMs   float64
	EstimatedMemoryMB float64

	// Reason explains the decision, for diagnostics.
	Reason string

	// UseCount is how many times this strategy has been served from the
	// cache. Zero on first computation.
	UseCount int
}

// Venue returns the execution venue the strategy selects.
func (s Strategy) Venue() capability.Venue {
	switch {
	case s.UseAcceleratedSurface:
		return capability.VenueAccelerated
	case s.UseWorker:
		return capability.VenueWorker
	default:
		return capability.VenueBaseline
	}
}

// SystemMetrics is a heuristic snapshot of the host, derived from
// capability flags rather than measured.
type SystemMetrics struct {
	AvailableMemoryMB int
	CPUCores          int
	PixelRatio        float64
	ConnectionQuality string // "limited", "good" or "excellent"
}

// PerformanceContext is the transient planning input built per call.
type PerformanceContext struct {
	SourceSizeBytes  int
	TargetPixelCount int
	ComplexityScore  float64
	Capabilities     capability.Capabilities
	System           SystemMetrics
}

// PlanOptions carries the request parameters that affect planning.
type PlanOptions struct {
	Format  string
	Quality int
}

// Costs is the named table of planning thresholds and estimation
// factors, so ordering logic can be tested independently of the
// constants.
type Costs struct {
	// Decision-table thresholds. A row matches when the score or the
	// pixel count exceeds its threshold and the venue is capable.
	AcceleratedComplexity  float64
	AcceleratedPixels      int
	WorkerComplexity       float64
	WorkerPixels           int
	QualityFirstComplexity float64

	// Expected latency gains per row, in percent.
	AcceleratedGainPct  int
	WorkerGainPct       int
	QualityFirstGainPct int

	// Time estimation: sqrt(pixels) * TimePerSqrtPixelMs * venue factor.
	TimePerSqrtPixelMs    float64
	AcceleratedTimeFactor float64
	WorkerTimeFactor      float64
	BaselineTimeFactor    float64

	// Memory estimation: pixels * scale^2 * BytesPerPixel *
	// MemoryOverhead / 1e6.
	BytesPerPixel  float64
	MemoryOverhead float64

	// Downgrade rule: triggered when the memory estimate exceeds
	// MemoryBudgetRatio of the available memory.
	MemoryBudgetRatio     float64
	DowngradeGainPenalty  int
	DowngradeMemoryFactor float64

	// System metric derivation: each supported capability flag adds its
	// increment to a performance score which maps onto the ranges below.
	BaseMemoryMB      int
	MemoryMBPerPoint  int
	ExcellentAtPoints int
	GoodAtPoints      int
}

// DefaultCosts returns the standard planning table.
func DefaultCosts() Costs {
	return Costs{
		AcceleratedComplexity:  0.7,
		AcceleratedPixels:      1_000_000,
		WorkerComplexity:       0.4,
		WorkerPixels:           400_000,
		QualityFirstComplexity: 0.3,

		AcceleratedGainPct:  40,
		WorkerGainPct:       25,
		QualityFirstGainPct: 15,

		TimePerSqrtPixelMs:    0.1,
		AcceleratedTimeFactor: 0.6,
		WorkerTimeFactor:      0.75,
		BaselineTimeFactor:    1.0,

		BytesPerPixel:  4,
		MemoryOverhead: 1.5,

		MemoryBudgetRatio:     0.8,
		DowngradeGainPenalty:  15,
		DowngradeMemoryFactor: 0.7,

		BaseMemoryMB:      100,
		MemoryMBPerPoint:  40,
		ExcellentAtPoints: 7,
		GoodAtPoints:      4,
	}
}

// Planner combines the complexity analyzer and capability detector into
// cached execution plans.
type Planner struct {
	analyzer *complexity.Analyzer
	detector *capability.Detector
	costs    Costs
	cache    *cache.TTLCache[string, Strategy]
	logger   *log.Logger
}

// NewPlanner creates a planner. Nil logger selects the standard logger.
func NewPlanner(a *complexity.Analyzer, d *capability.Detector, costs Costs, logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.Default()
	}
	return &Planner{
		analyzer: a,
		detector: d,
		costs:    costs,
		cache:    cache.NewTTL[string, Strategy](CacheCapacity, CacheTTL),
		logger:   logger,
	}
}

// CacheStats exposes strategy cache statistics.
func (p *Planner) CacheStats() cache.Stats { return p.cache.Stats() }

// Plan produces an execution strategy for the given request. It never
// fails: internal errors degrade to a conservative fixed strategy with
// a logged warning.
func (p *Planner) Plan(ctx context.Context, markup []byte, targetW, targetH int, opts PlanOptions) Strategy {
	s, err := p.plan(ctx, markup, targetW, targetH, opts)
	if err != nil {
		p.logger.Printf("strategy: planning failed, using conservative defaults: %v", err)
		return conservativeStrategy(err.Error())
	}
	return s
}

// conservativeStrategy is the fixed fallback plan: synchronous venue,
// medium tier, source optimization on.
func conservativeStrategy(reason string) Strategy {
	return Strategy{
		OptimizeSource: true,
		Tier:           complexity.TierMedium,
		Reason:         "conservative fallback: " + reason,
	}
}

func (p *Planner) plan(ctx context.Context, markup []byte, targetW, targetH int, opts PlanOptions) (Strategy, error) {
	if targetW <= 0 || targetH <= 0 {
		return Strategy{}, fmt.Errorf("strategy: invalid target size %dx%d", targetW, targetH)
	}

	pctx := p.buildContext(ctx, markup, targetW, targetH)
	key := contextKey(pctx, opts)

	if cached, uses, ok := p.cache.Get(key); ok {
		cached.UseCount = uses
		return cached, nil
	}

	s := p.decide(pctx)
	p.cache.Set(key, s)
	return s, nil
}

// buildContext assembles the transient planning snapshot.
func (p *Planner) buildContext(ctx context.Context, markup []byte, targetW, targetH int) PerformanceContext {
	result := p.analyzer.Analyze(markup)
	caps := p.detector.Detect(ctx, capability.DetectOptions{
		UseCache: true,
		Timeout:  detectTimeout,
	})
	return PerformanceContext{
		SourceSizeBytes:  len(markup),
		TargetPixelCount: targetW * targetH,
		ComplexityScore:  result.Score,
		Capabilities:     caps,
		System:           p.systemMetrics(caps),
	}
}

// systemMetrics derives host estimates from capability flags. Each
// supported flag adds a fixed increment to a performance score, which
// maps onto estimated memory, core count and a connection label.
func (p *Planner) systemMetrics(caps capability.Capabilities) SystemMetrics {
	score := 0
	if caps.BackgroundThreads {
		score += 2
	}
	if caps.OffscreenSurface {
		score += 3
	}
	if caps.TransferableBitmap {
		score++
	}
	if caps.TransferableObject {
		score++
	}
	if caps.SharedMemory {
		score++
	}
	if caps.DecodeWebP {
		score++
	}
	if caps.DecodeTIFF {
		score++
	}
	// score is in [0, 10]

	quality := "limited"
	switch {
	case score >= p.costs.ExcellentAtPoints:
		quality = "excellent"
	case score >= p.costs.GoodAtPoints:
		quality = "good"
	}

	pixelRatio := caps.DevicePixelRatio
	if pixelRatio <= 0 {
		pixelRatio = 1.0
	}

	return SystemMetrics{
		AvailableMemoryMB: p.costs.BaseMemoryMB + score*p.costs.MemoryMBPerPoint, // 100..500
		CPUCores:          1 + score*7/10,                                        // 1..8
		PixelRatio:        pixelRatio,
		ConnectionQuality: quality,
	}
}

// contextKey quantizes a planning context into a stable cache key.
func contextKey(pctx PerformanceContext, opts PlanOptions) string {
	return fmt.Sprintf("%dkb:%dkpx:%.1f:%t:%t:%s:%d",
		pctx.SourceSizeBytes/1024,
		pctx.TargetPixelCount/1000,
		math.Round(pctx.ComplexityScore*10)/10,
		pctx.Capabilities.OffscreenSurface,
		pctx.Capabilities.BackgroundThreads,
		opts.Format,
		opts.Quality,
	)
}

// decide applies the decision table, first match wins, then the memory
// downgrade rule.
func (p *Planner) decide(pctx PerformanceContext) Strategy {
	c := p.costs
	caps := pctx.Capabilities
	score := pctx.ComplexityScore
	pixels := pctx.TargetPixelCount

	var s Strategy
	switch {
	case (score > c.AcceleratedComplexity || pixels > c.AcceleratedPixels) && caps.SupportsAccelerated():
		s = Strategy{
			UseAcceleratedSurface: true,
			UseWorker:             true,
			Tier:                  complexity.TierHigh,
			ExpectedGainPct:       c.AcceleratedGainPct,
			Reason:                "complex or large render with accelerated surface support",
		}
	case (score > c.WorkerComplexity || pixels > c.WorkerPixels) && caps.SupportsWorker():
		s = Strategy{
			UseWorker:       true,
			Tier:            complexity.TierMedium,
			ExpectedGainPct: c.WorkerGainPct,
			Reason:          "moderate render offloaded to a background worker",
		}
	case score > c.QualityFirstComplexity:
		s = Strategy{
			Tier:            complexity.TierHigh,
			ExpectedGainPct: c.QualityFirstGainPct,
			Reason:          "quality-first synchronous render",
		}
	default:
		s = Strategy{
			Tier:   complexity.TierMedium,
			Reason: "simple render, minimal latency",
		}
	}

	s.EstimatedTimeMs = math.Sqrt(float64(pixels)) * c.TimePerSqrtPixelMs * p.venueTimeFactor(s)
	s.EstimatedMemoryMB = estimateMemoryMB(pixels, s.Tier, c)

	return p.applyMemoryBudget(pctx, s)
}

func (p *Planner) venueTimeFactor(s Strategy) float64 {
	switch {
	case s.UseAcceleratedSurface:
		return p.costs.AcceleratedTimeFactor
	case s.UseWorker:
		return p.costs.WorkerTimeFactor
	default:
		return p.costs.BaselineTimeFactor
	}
}

func estimateMemoryMB(pixels int, tier complexity.Tier, c Costs) float64 {
	scale := float64(tier.ScaleFactor())
	return float64(pixels) * scale * scale * c.BytesPerPixel * c.MemoryOverhead / 1e6
}

// applyMemoryBudget downgrades the plan when the memory estimate
// exceeds the budget: one tier lower, baseline venue, source
// optimization forced, gain reduced.
func (p *Planner) applyMemoryBudget(pctx PerformanceContext, s Strategy) Strategy {
	c := p.costs
	budget := c.MemoryBudgetRatio * float64(pctx.System.AvailableMemoryMB)
	if s.EstimatedMemoryMB <= budget {
		return s
	}

	if s.Tier > complexity.TierLow {
		s.Tier--
	}
	s.UseAcceleratedSurface = false
	s.UseWorker = false
	s.OptimizeSource = true
	s.ExpectedGainPct -= c.DowngradeGainPenalty
	if s.ExpectedGainPct < 0 {
		s.ExpectedGainPct = 0
	}
	s.EstimatedMemoryMB *= c.DowngradeMemoryFactor
	s.Reason += "; downgraded to fit memory budget"
	return s
}

// RecordActualPerformance logs how a completed render compared to its
// plan. Informational only: it does not feed back into planning.
func (p *Planner) RecordActualPerformance(s Strategy, actualMs, actualMemoryMB float64) {
	p.logger.Printf("strategy: venue=%s tier=%s estimated=%.1fms/%.1fMB actual=%.1fms/%.1fMB",
		s.Venue(), s.Tier, s.EstimatedTimeMs, s.EstimatedMemoryMB, actualMs, actualMemoryMB)
}
