// Command vrender renders an SVG file to a raster image using the
// adaptive rendering engine.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gogpu/vraster"
	"github.com/gogpu/vraster/render"
)

func main() {
	var (
		input   = flag.String("in", "", "input SVG file")
		output  = flag.String("out", "out.png", "output image file")
		width   = flag.Int("width", 800, "target width in pixels")
		height  = flag.Int("height", 600, "target height in pixels")
		fit     = flag.String("fit", "contain", "fit mode: fill, contain, cover, inside, outside")
		format  = flag.String("format", "png", "output format: png, jpeg")
		quality = flag.Int("quality", 85, "encoder quality for lossy formats (1-100)")
		timeout = flag.Duration("timeout", 30*time.Second, "render timeout")
		profile = flag.Bool("profile", false, "print the runtime capability profile and exit")
	)
	flag.Parse()

	eng := vraster.New()
	defer eng.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *profile {
		p := eng.ProfilePerformance(ctx)
		log.Printf("features: %s", strings.Join(p.Features, ", "))
		log.Printf("recommended: venue=%s tier=%s workers=%d",
			p.Recommended.Venue, p.Recommended.Tier, p.Recommended.Workers)
		return
	}

	if *input == "" {
		log.Fatal("missing -in: input SVG file required")
	}
	markup, err := os.ReadFile(*input)
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}

	out, err := eng.RenderWithOptimalStrategy(ctx, markup, vraster.RenderOptions{
		Width:   *width,
		Height:  *height,
		Fit:     render.FitMode(*fit),
		Format:  render.Format(*format),
		Quality: *quality,
	})
	if err != nil {
		log.Fatalf("Failed to render: %v", err)
	}

	if err := os.WriteFile(*output, out.Data, 0o644); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}

	log.Printf("Rendered %s to %s (%dx%d, %s, venue=%s tier=%s, %v)",
		*input, *output, *width, *height, out.Format,
		out.Strategy.Venue(), out.Tier, out.ProcessingTime.Round(time.Millisecond))
}
