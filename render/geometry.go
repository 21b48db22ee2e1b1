package render

import (
	"fmt"
	"image"
	"math"
)

// FitMode is the geometric policy mapping a source rectangle onto a
// destination rectangle of a different aspect ratio.
type FitMode string

const (
	// FitFill stretches the source to cover the full target, ignoring
	// aspect ratio.
	FitFill FitMode = "fill"

	// FitContain scales the source to fit entirely inside the target,
	// centered, preserving aspect ratio.
	FitContain FitMode = "contain"

	// FitCover scales the source to cover the full target, cropping the
	// overflow centered, preserving aspect ratio.
	FitCover FitMode = "cover"

	// FitInside is FitContain without upscaling.
	FitInside FitMode = "inside"

	// FitOutside is FitCover without downscaling.
	FitOutside FitMode = "outside"
)

// Rect is an axis-aligned rectangle in continuous coordinates. Source
// crop regions are fractional, so integer rectangles are not enough.
type Rect struct {
	X, Y, W, H float64
}

// ImageRect rounds the rectangle to an integer image.Rectangle.
func (r Rect) ImageRect() image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)),
		int(math.Round(r.Y)),
		int(math.Round(r.X+r.W)),
		int(math.Round(r.Y+r.H)),
	)
}

// Scale returns the rectangle with all coordinates multiplied by f.
func (r Rect) Scale(f float64) Rect {
	return Rect{X: r.X * f, Y: r.Y * f, W: r.W * f, H: r.H * f}
}

// Layout pairs the source region to read with the destination region
// to write.
type Layout struct {
	Source Rect
	Dest   Rect
}

// FitLayout computes the source and destination rectangles for drawing
// a srcW x srcH source onto a dstW x dstH target under the given fit
// mode.
func FitLayout(srcW, srcH, dstW, dstH float64, mode FitMode) (Layout, error) {
	if srcW <= 0 || srcH <= 0 {
		return Layout{}, fmt.Errorf("render: invalid source size %gx%g", srcW, srcH)
	}
	if dstW <= 0 || dstH <= 0 {
		return Layout{}, fmt.Errorf("render: invalid target size %gx%g", dstW, dstH)
	}

	fullSrc := Rect{W: srcW, H: srcH}
	fullDst := Rect{W: dstW, H: dstH}

	switch mode {
	case FitFill, "":
		return Layout{Source: fullSrc, Dest: fullDst}, nil

	case FitContain, FitInside:
		scale := math.Min(dstW/srcW, dstH/srcH)
		if mode == FitInside && scale > 1 {
			scale = 1
		}
		w := srcW * scale
		h := srcH * scale
		return Layout{
			Source: fullSrc,
			Dest: Rect{
				X: (dstW - w) / 2,
				Y: (dstH - h) / 2,
				W: w,
				H: h,
			},
		}, nil

	case FitCover, FitOutside:
		scale := math.Max(dstW/srcW, dstH/srcH)
		if mode == FitOutside && scale < 1 {
			scale = 1
		}
		w := dstW / scale
		h := dstH / scale
		if w > srcW {
			w = srcW
		}
		if h > srcH {
			h = srcH
		}
		return Layout{
			Source: Rect{
				X: (srcW - w) / 2,
				Y: (srcH - h) / 2,
				W: w,
				H: h,
			},
			Dest: fullDst,
		}, nil

	default:
		return Layout{}, fmt.Errorf("render: unknown fit mode %q", mode)
	}
}
