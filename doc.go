// Package vraster renders vector documents to raster images with an
// adaptive execution strategy.
//
// # Overview
//
// vraster is a Pure Go rendering engine for SVG-like vector markup. For
// every request it scores the document's complexity, probes what the
// runtime offers (background execution, accelerated surfaces, codec
// support), and plans where and how to render: synchronously in the
// caller, on a pooled background worker, or on a worker backed by an
// accelerated surface. Decisions are cached so repeated requests with a
// similar shape reuse the same plan.
//
// # Quick Start
//
//	import "github.com/gogpu/vraster"
//
//	eng := vraster.New()
//	defer eng.Close()
//
//	out, err := eng.RenderWithOptimalStrategy(ctx, markup, vraster.RenderOptions{
//		Width:  512,
//		Height: 512,
//		Fit:    render.FitContain,
//		Format: render.FormatPNG,
//	})
//
// # Architecture
//
// The engine is organized into:
//   - Public API: Engine, RenderOptions, RenderOutcome, Profile
//   - complexity: document scoring and quality tiers
//   - capability: runtime probing and venue gating
//   - strategy: cached execution planning with cost estimates
//   - render: deterministic scale-then-downsample rasterization
//   - internal/pool: bounded reusable background workers
//
// # Guarantees
//
// Planning never fails; it degrades to a conservative synchronous plan.
// Worker failures fall back to a synchronous render transparently. A
// render either returns encoded bytes in some supported format or an
// error, never a partial result.
package vraster

// Version information
const (
	// Version is the current version of the engine
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
