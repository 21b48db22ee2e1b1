package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

// Format identifies an output encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
)

// FallbackFormat is the encoding retried after an encode failure.
const FallbackFormat = FormatPNG

// Encode errors.
var (
	// ErrUnsupportedFormat is returned when the surface cannot encode
	// the requested format.
	ErrUnsupportedFormat = errors.New("render: unsupported output format")

	// ErrEncodeFailed is returned when encoding failed in both the
	// requested and the fallback format.
	ErrEncodeFailed = errors.New("render: encoding failed")
)

// Source is anything that can rasterize a region of itself into a
// destination image. Vector sources rasterize at the implied scale;
// raster sources resample.
type Source interface {
	// Size returns the source's intrinsic dimensions.
	Size() (w, h float64)

	// DrawTo rasterizes the srcRect region of the source into the
	// dstRect region of dst. Pixels outside dst's bounds are clipped.
	DrawTo(dst *image.RGBA, srcRect, dstRect Rect) error
}

// Surface is a drawable raster target that can encode itself.
type Surface interface {
	// Bounds returns the surface dimensions.
	Bounds() (w, h int)

	// Draw renders the srcRect region of src into the dstRect region of
	// the surface.
	Draw(src Source, srcRect, dstRect Rect) error

	// Source returns a view of the surface usable as a draw source for
	// a later pass.
	Source() Source

	// Encode serializes the surface contents. quality applies to lossy
	// formats only.
	Encode(format Format, quality int) ([]byte, error)
}

// SurfaceFactory allocates surfaces. The engine injects it so that an
// accelerated implementation can be swapped in without touching the
// renderer.
type SurfaceFactory func(w, h int) (Surface, error)

// NewImageSurface allocates a software surface backed by an image.RGBA.
// It is the default SurfaceFactory.
func NewImageSurface(w, h int) (Surface, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("render: invalid surface size %dx%d", w, h)
	}
	return &imageSurface{img: image.NewRGBA(image.Rect(0, 0, w, h))}, nil
}

type imageSurface struct {
	img *image.RGBA
}

func (s *imageSurface) Bounds() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *imageSurface) Draw(src Source, srcRect, dstRect Rect) error {
	return src.DrawTo(s.img, srcRect, dstRect)
}

func (s *imageSurface) Source() Source {
	return &rasterSource{img: s.img}
}

func (s *imageSurface) Encode(format Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatPNG, "":
		if err := png.Encode(&buf, s.img); err != nil {
			return nil, fmt.Errorf("render: png encode: %w", err)
		}
	case FormatJPEG:
		if quality < 1 || quality > 100 {
			quality = jpeg.DefaultQuality
		}
		if err := jpeg.Encode(&buf, s.img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("render: jpeg encode: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return buf.Bytes(), nil
}

// rasterSource adapts a pixel buffer into a Source. The downsample pass
// of the renderer draws an oversized surface through it.
type rasterSource struct {
	img *image.RGBA
}

func (r *rasterSource) Size() (float64, float64) {
	b := r.img.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

// DrawTo resamples the region with a Catmull-Rom kernel. The kernel
// quality is what makes the two-pass scale-then-downsample worthwhile
// over a single lossy scale.
func (r *rasterSource) DrawTo(dst *image.RGBA, srcRect, dstRect Rect) error {
	xdraw.CatmullRom.Scale(dst, dstRect.ImageRect(), r.img, srcRect.ImageRect(), xdraw.Src, nil)
	return nil
}
