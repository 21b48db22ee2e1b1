// Package render converts loaded vector sources into encoded raster
// images.
//
// The conversion is deterministic and venue-independent: the same
// algorithm runs inside a background worker or in the caller's own
// goroutine. Quality tiers drive an oversampling factor; the source is
// drawn at full precision onto an oversized surface and then
// downsampled onto the final target, preserving anti-aliasing quality
// independent of single-pass scaling.
package render

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gogpu/vraster/complexity"
)

// Options are the per-request raster parameters.
type Options struct {
	Width  int
	Height int
	Fit    FitMode
	Format Format
	// Quality is the encoder quality for lossy formats (1-100).
	Quality int
	// Tier selects the oversampling factor.
	Tier complexity.Tier
}

// Job is one render request. RequestID correlates the job with its
// response across the worker protocol.
type Job struct {
	Markup    []byte
	Options   Options
	RequestID string
}

// Result is the outcome of a completed render. It is returned to the
// caller and not retained by the engine.
type Result struct {
	// Data is the encoded image.
	Data []byte

	// Format is the encoding actually used (it differs from the request
	// after an encode fallback).
	Format Format

	// Tier is the quality tier actually rendered.
	Tier complexity.Tier

	// ProcessingTime is the elapsed render duration.
	ProcessingTime time.Duration

	// EstimatedMemoryMB is the peak surface memory the render used.
	EstimatedMemoryMB float64

	// ScaleFactor is the effective oversampling factor.
	ScaleFactor int
}

// Renderer turns vector markup into encoded raster bytes.
type Renderer struct {
	loader  Loader
	surface SurfaceFactory
	logger  *log.Logger
}

// NewRenderer creates a renderer. Nil collaborators select the
// defaults: SVGLoader, NewImageSurface, and the standard logger.
func NewRenderer(loader Loader, factory SurfaceFactory, logger *log.Logger) *Renderer {
	if loader == nil {
		loader = SVGLoader{}
	}
	if factory == nil {
		factory = NewImageSurface
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Renderer{loader: loader, surface: factory, logger: logger}
}

// Render executes one job. The context is checked between passes; an
// individual draw pass runs to completion once started.
func (r *Renderer) Render(ctx context.Context, job Job) (Result, error) {
	start := time.Now()
	opts := job.Options

	if opts.Width <= 0 || opts.Height <= 0 {
		return Result{}, fmt.Errorf("render: invalid target size %dx%d", opts.Width, opts.Height)
	}

	src, err := r.loader.Load(job.Markup)
	if err != nil {
		return Result{}, err
	}

	srcW, srcH := src.Size()
	layout, err := FitLayout(srcW, srcH, float64(opts.Width), float64(opts.Height), opts.Fit)
	if err != nil {
		return Result{}, err
	}

	scale := opts.Tier.ScaleFactor()

	// First pass: draw the vector source at full precision onto a
	// surface oversized by the tier's scale factor.
	oversized, err := r.surface(opts.Width*scale, opts.Height*scale)
	if err != nil {
		return Result{}, fmt.Errorf("render: allocating oversized surface: %w", err)
	}
	if err := oversized.Draw(src, layout.Source, layout.Dest.Scale(float64(scale))); err != nil {
		return Result{}, fmt.Errorf("render: drawing source: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// Second pass: downsample onto the final target-sized surface.
	// At scale 1 the oversized surface already is the target.
	final := oversized
	if scale > 1 {
		final, err = r.surface(opts.Width, opts.Height)
		if err != nil {
			return Result{}, fmt.Errorf("render: allocating target surface: %w", err)
		}
		bw, bh := oversized.Bounds()
		err = final.Draw(oversized.Source(),
			Rect{W: float64(bw), H: float64(bh)},
			Rect{W: float64(opts.Width), H: float64(opts.Height)})
		if err != nil {
			return Result{}, fmt.Errorf("render: downsampling: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	data, format, err := r.encode(final, opts.Format, opts.Quality)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Data:              data,
		Format:            format,
		Tier:              opts.Tier,
		ProcessingTime:    time.Since(start),
		EstimatedMemoryMB: estimateSurfaceMemoryMB(opts.Width, opts.Height, scale),
		ScaleFactor:       scale,
	}, nil
}

// encode serializes the surface, retrying once with the fallback format
// on failure. Both failing is fatal for the call.
func (r *Renderer) encode(s Surface, format Format, quality int) ([]byte, Format, error) {
	data, err := s.Encode(format, quality)
	if err == nil {
		return data, normalizeFormat(format), nil
	}
	if normalizeFormat(format) == FallbackFormat {
		return nil, "", fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}

	r.logger.Printf("render: %q encode failed, retrying as %q: %v", format, FallbackFormat, err)
	data, fbErr := s.Encode(FallbackFormat, quality)
	if fbErr != nil {
		return nil, "", fmt.Errorf("%w: %v (fallback: %v)", ErrEncodeFailed, err, fbErr)
	}
	return data, FallbackFormat, nil
}

func normalizeFormat(f Format) Format {
	if f == "" {
		return FormatPNG
	}
	return f
}

// estimateSurfaceMemoryMB reports the combined surface footprint of the
// two passes, 4 bytes per pixel.
func estimateSurfaceMemoryMB(w, h, scale int) float64 {
	oversized := float64(w*scale) * float64(h*scale) * 4
	target := float64(w) * float64(h) * 4
	if scale == 1 {
		target = 0
	}
	return (oversized + target) / 1e6
}
