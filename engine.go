package vraster

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/gogpu/vraster/cache"
	"github.com/gogpu/vraster/capability"
	"github.com/gogpu/vraster/complexity"
	"github.com/gogpu/vraster/internal/pool"
	"github.com/gogpu/vraster/render"
	"github.com/gogpu/vraster/strategy"
)

// RenderOptions are the per-request parameters of the public API.
type RenderOptions struct {
	Width  int
	Height int
	Fit    render.FitMode
	Format render.Format
	// Quality is the encoder quality for lossy formats (1-100).
	Quality int
}

// RenderOutcome bundles a completed render with the strategy that
// produced it.
type RenderOutcome struct {
	render.Result
	Strategy strategy.Strategy
}

// Profile summarizes what the runtime offers and how the engine would
// use it.
type Profile struct {
	Capabilities capability.Capabilities

	// Features lists the supported capability flags by name.
	Features []string

	Recommended RecommendedSettings
}

// RecommendedSettings is the engine's default answer for the probed
// runtime, before any document is seen.
type RecommendedSettings struct {
	Venue   capability.Venue
	Tier    complexity.Tier
	Workers int
}

// config collects the functional options of New.
type config struct {
	platform capability.Platform
	loader   render.Loader
	surface  render.SurfaceFactory
	poolCfg  pool.Config
	weights  complexity.Weights
	logger   *log.Logger
}

// Option configures an Engine.
type Option func(*config)

// WithPlatform overrides the capability platform. Tests and headless
// targets pass a capability.StubPlatform.
func WithPlatform(p capability.Platform) Option {
	return func(c *config) { c.platform = p }
}

// WithLoader overrides the vector markup loader.
func WithLoader(l render.Loader) Option {
	return func(c *config) { c.loader = l }
}

// WithSurfaceFactory overrides the drawing surface factory.
func WithSurfaceFactory(f render.SurfaceFactory) Option {
	return func(c *config) { c.surface = f }
}

// WithPoolConfig overrides the worker pool configuration.
func WithPoolConfig(cfg pool.Config) Option {
	return func(c *config) { c.poolCfg = cfg }
}

// WithWeights overrides the complexity scoring weights.
func WithWeights(w complexity.Weights) Option {
	return func(c *config) { c.weights = w }
}

// WithLogger sets the logger shared by all engine components.
func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Engine is the rendering facade: one value owning the analyzer,
// detector, planner, renderer and worker pool, safe for concurrent use.
type Engine struct {
	analyzer   *complexity.Analyzer
	detector   *capability.Detector
	planner    *strategy.Planner
	renderer   *render.Renderer
	pool       *pool.Pool
	maxWorkers int
	logger     *log.Logger
}

// New creates an engine. Defaults: the runtime capability platform, the
// SVG loader, in-memory image surfaces, standard scoring weights and
// pool limits, and the standard logger.
func New(opts ...Option) *Engine {
	cfg := config{
		weights: complexity.DefaultWeights(),
		logger:  log.Default(),
	}
	for _, o := range opts {
		o(&cfg)
	}

	analyzer := complexity.NewAnalyzer(cfg.weights)
	detector := capability.NewDetector(cfg.platform, cfg.logger)
	renderer := render.NewRenderer(cfg.loader, cfg.surface, cfg.logger)

	maxWorkers := cfg.poolCfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = pool.DefaultMaxWorkers
	}

	return &Engine{
		analyzer:   analyzer,
		detector:   detector,
		planner:    strategy.NewPlanner(analyzer, detector, strategy.DefaultCosts(), cfg.logger),
		renderer:   renderer,
		pool:       pool.New(renderer.Render, cfg.poolCfg, cfg.logger),
		maxWorkers: maxWorkers,
		logger:     cfg.logger,
	}
}

// SelectStrategy plans how a render of the given markup at the given
// target size would execute, without rendering. It never fails.
func (e *Engine) SelectStrategy(ctx context.Context, markup []byte, opts RenderOptions) strategy.Strategy {
	return e.planner.Plan(ctx, markup, opts.Width, opts.Height, strategy.PlanOptions{
		Format:  string(opts.Format),
		Quality: opts.Quality,
	})
}

// RenderWithOptimalStrategy plans and executes one render. Worker and
// accelerated plans dispatch to the pool; baseline plans render in the
// caller. The outcome reports the strategy actually planned, even when
// the pool fell back internally.
func (e *Engine) RenderWithOptimalStrategy(ctx context.Context, markup []byte, opts RenderOptions) (RenderOutcome, error) {
	plan := e.SelectStrategy(ctx, markup, opts)

	job := render.Job{
		Markup:    markup,
		RequestID: uuid.NewString(),
		Options: render.Options{
			Width:   opts.Width,
			Height:  opts.Height,
			Fit:     opts.Fit,
			Format:  opts.Format,
			Quality: opts.Quality,
			Tier:    plan.Tier,
		},
	}

	var (
		res render.Result
		err error
	)
	if plan.UseWorker {
		res, err = e.pool.Dispatch(ctx, job)
	} else {
		res, err = e.renderer.Render(ctx, job)
	}
	if err != nil {
		return RenderOutcome{}, err
	}

	e.planner.RecordActualPerformance(plan,
		float64(res.ProcessingTime.Milliseconds()), res.EstimatedMemoryMB)

	return RenderOutcome{Result: res, Strategy: plan}, nil
}

// Render executes a synchronous render in the caller, bypassing
// planning and the pool. The quality tier comes from the document's
// complexity alone.
func (e *Engine) Render(ctx context.Context, markup []byte, opts RenderOptions) (render.Result, error) {
	tier := e.analyzer.Analyze(markup).Tier
	return e.renderer.Render(ctx, render.Job{
		Markup:    markup,
		RequestID: uuid.NewString(),
		Options: render.Options{
			Width:   opts.Width,
			Height:  opts.Height,
			Fit:     opts.Fit,
			Format:  opts.Format,
			Quality: opts.Quality,
			Tier:    tier,
		},
	})
}

// ProfilePerformance probes the runtime and reports the engine's
// recommended defaults for it.
func (e *Engine) ProfilePerformance(ctx context.Context) Profile {
	analysis := e.detector.AnalyzePerformance(ctx)
	caps := analysis.Capabilities

	var features []string
	for _, f := range []struct {
		name string
		on   bool
	}{
		{"offscreen-surface", caps.OffscreenSurface},
		{"background-threads", caps.BackgroundThreads},
		{"transferable-bitmap", caps.TransferableBitmap},
		{"transferable-object", caps.TransferableObject},
		{"shared-memory", caps.SharedMemory},
		{"decode-webp", caps.DecodeWebP},
		{"decode-tiff", caps.DecodeTIFF},
	} {
		if f.on {
			features = append(features, f.name)
		}
	}

	rec := RecommendedSettings{
		Venue: analysis.RecommendedVenue,
		Tier:  complexity.TierMedium,
	}
	if rec.Venue != capability.VenueBaseline {
		rec.Workers = e.maxWorkers
	}
	if rec.Venue == capability.VenueAccelerated {
		rec.Tier = complexity.TierHigh
	}

	return Profile{Capabilities: caps, Features: features, Recommended: rec}
}

// StrategyCacheStats exposes the planner's cache counters.
func (e *Engine) StrategyCacheStats() cache.Stats {
	return e.planner.CacheStats()
}

// Close releases the worker pool. The engine stays usable for
// synchronous rendering afterwards.
func (e *Engine) Close() {
	e.pool.Close()
}
