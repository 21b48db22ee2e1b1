package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Default intrinsic size when the document declares neither explicit
// dimensions nor a viewport (the SVG default viewport).
const (
	defaultIntrinsicWidth  = 300.0
	defaultIntrinsicHeight = 150.0
)

// Loader parses vector markup into a drawable Source.
type Loader interface {
	Load(markup []byte) (Source, error)
}

// SVGLoader is the default Loader, built on oksvg/rasterx.
type SVGLoader struct{}

// Load parses SVG markup. Intrinsic size resolution order: explicit
// width/height attributes, then the declared viewBox, then the SVG
// default viewport.
func (SVGLoader) Load(markup []byte) (Source, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("render: parsing svg: %w", err)
	}

	w, h := intrinsicSize(markup)
	if w <= 0 || h <= 0 {
		if icon.ViewBox.W > 0 && icon.ViewBox.H > 0 {
			w, h = icon.ViewBox.W, icon.ViewBox.H
		} else {
			w, h = defaultIntrinsicWidth, defaultIntrinsicHeight
		}
	}
	return &svgSource{icon: icon, w: w, h: h}, nil
}

// svgSource is a loaded vector document. SetTarget mutates the icon, so
// a source must be drawn by at most one job at a time; the engine
// guarantees this by loading per job.
type svgSource struct {
	icon *oksvg.SvgIcon
	w, h float64
}

func (s *svgSource) Size() (float64, float64) { return s.w, s.h }

// DrawTo rasterizes the document so that srcRect maps onto dstRect.
// The full document is positioned at the implied scale and offset;
// anything outside dst's bounds is clipped by the scanner.
func (s *svgSource) DrawTo(dst *image.RGBA, srcRect, dstRect Rect) error {
	if srcRect.W <= 0 || srcRect.H <= 0 || dstRect.W <= 0 || dstRect.H <= 0 {
		return fmt.Errorf("render: degenerate draw region %+v -> %+v", srcRect, dstRect)
	}

	sx := dstRect.W / srcRect.W
	sy := dstRect.H / srcRect.H
	s.icon.SetTarget(
		dstRect.X-srcRect.X*sx,
		dstRect.Y-srcRect.Y*sy,
		s.w*sx,
		s.h*sy,
	)

	b := dst.Bounds()
	scanner := rasterx.NewScannerGV(b.Dx(), b.Dy(), dst, b)
	raster := rasterx.NewDasher(b.Dx(), b.Dy(), scanner)
	s.icon.Draw(raster, 1.0)
	return nil
}

// intrinsicSize reads explicit width/height attributes off the root
// element. Percentage and unit-qualified values other than px are
// treated as absent.
func intrinsicSize(markup []byte) (w, h float64) {
	dec := xml.NewDecoder(bytes.NewReader(markup))
	for {
		tok, err := dec.Token()
		if err != nil {
			return 0, 0
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "svg" {
			return 0, 0
		}
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "width":
				w = parseLength(attr.Value)
			case "height":
				h = parseLength(attr.Value)
			}
		}
		return w, h
	}
}

// parseLength parses a pixel length. Returns 0 for anything it cannot
// interpret as absolute pixels.
func parseLength(v string) float64 {
	v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	if v == "" || strings.HasSuffix(v, "%") {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}
