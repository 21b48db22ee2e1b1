// Package complexity scores the rendering cost of a vector document.
//
// The analyzer walks the document's markup once, collects structural
// feature counts, and derives a normalized complexity score together
// with a recommended quality tier. Scoring never fails: malformed
// markup produces a conservative fallback result.
package complexity

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// Tier is a rendering quality tier. Each tier maps to a fixed raster
// oversampling factor used by the renderer's scale-then-downsample pass.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
	TierUltra
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	case TierUltra:
		return "ultra"
	}
	return "unknown"
}

// ScaleFactor returns the oversampling multiplier for the tier.
func (t Tier) ScaleFactor() int {
	switch t {
	case TierLow:
		return 1
	case TierMedium:
		return 2
	case TierHigh:
		return 3
	case TierUltra:
		return 4
	}
	return 2
}

// ParseTier parses a tier name. Unknown names return TierMedium.
func ParseTier(s string) Tier {
	switch s {
	case "low":
		return TierLow
	case "high":
		return TierHigh
	case "ultra":
		return TierUltra
	default:
		return TierMedium
	}
}

// Metrics holds structural feature counts for a vector document.
// Computed once per document and never mutated afterwards.
type Metrics struct {
	PathCount      int
	GradientCount  int
	FilterCount    int
	AnimationCount int
	TextCount      int
	TotalElements  int
	HasClipPath    bool
	HasMask        bool
	SizeBytes      int
}

// Result is the outcome of a complexity analysis. It is a pure function
// of the document and is never mutated after creation.
type Result struct {
	Metrics   Metrics
	Score     float64 // normalized rendering cost in [0, 1]
	Tier      Tier
	Reasoning []string // human-readable triggering factors, diagnostics only
}

// Weights is the data-driven scoring table. All scoring and tier
// selection constants are named here so threshold and ordering logic
// can be tested independently of the specific values.
type Weights struct {
	PathWeight      float64
	PathCap         float64
	GradientWeight  float64
	GradientCap     float64
	FilterWeight    float64
	FilterCap       float64
	AnimationWeight float64
	AnimationCap    float64
	TextWeight      float64
	TextCap         float64

	ClipPathBonus float64
	MaskBonus     float64

	// Tier selection thresholds. First match wins, highest first.
	UltraScore         float64 // score at or above which the tier is ultra
	HighScore          float64 // score at or above which the tier is high
	MediumScore        float64 // score at or above which the tier is medium
	AdvancedUltraScore float64 // ultra when an advanced feature is present and score reaches this

	// LargeDocumentBytes marks documents large enough to force ultra.
	LargeDocumentBytes int

	// FallbackScore is used when the document cannot be parsed.
	FallbackScore float64
}

// DefaultWeights returns the standard scoring table.
func DefaultWeights() Weights {
	return Weights{
		PathWeight:      0.02,
		PathCap:         0.3,
		GradientWeight:  0.05,
		GradientCap:     0.2,
		FilterWeight:    0.1,
		FilterCap:       0.2,
		AnimationWeight: 0.02,
		AnimationCap:    0.1,
		TextWeight:      0.02,
		TextCap:         0.1,

		ClipPathBonus: 0.05,
		MaskBonus:     0.05,

		UltraScore:         0.8,
		HighScore:          0.6,
		MediumScore:        0.3,
		AdvancedUltraScore: 0.6,

		LargeDocumentBytes: 50 * 1024,
		FallbackScore:      0.5,
	}
}

// Analyzer scores vector documents. The zero value is not usable;
// construct with NewAnalyzer.
type Analyzer struct {
	weights Weights
}

// NewAnalyzer creates an analyzer with the given weight table.
func NewAnalyzer(w Weights) *Analyzer {
	return &Analyzer{weights: w}
}

// Analyze scores a vector document. It never fails: parse errors yield
// a conservative fallback result whose reasoning carries the error.
func (a *Analyzer) Analyze(markup []byte) Result {
	metrics, err := collectMetrics(markup)
	if err != nil {
		return a.fallback(len(markup), err)
	}
	return a.score(metrics)
}

// fallback builds the conservative result for unparseable documents.
func (a *Analyzer) fallback(sizeBytes int, parseErr error) Result {
	w := a.weights
	tier := TierMedium
	if sizeBytes > w.LargeDocumentBytes {
		tier = TierHigh
	}
	return Result{
		Metrics: Metrics{SizeBytes: sizeBytes},
		Score:   w.FallbackScore,
		Tier:    tier,
		Reasoning: []string{
			fmt.Sprintf("parse failed, assuming moderate complexity: %v", parseErr),
		},
	}
}

// score derives the complexity score and tier from collected metrics.
func (a *Analyzer) score(m Metrics) Result {
	w := a.weights
	var score float64
	var reasons []string

	add := func(count int, weight, cap float64, what string) {
		if count == 0 {
			return
		}
		c := float64(count) * weight
		if c > cap {
			c = cap
		}
		score += c
		reasons = append(reasons, fmt.Sprintf("%d %s (+%.2f)", count, what, c))
	}

	add(m.PathCount, w.PathWeight, w.PathCap, "paths")
	add(m.GradientCount, w.GradientWeight, w.GradientCap, "gradients")
	add(m.FilterCount, w.FilterWeight, w.FilterCap, "filters")
	add(m.AnimationCount, w.AnimationWeight, w.AnimationCap, "animations")
	add(m.TextCount, w.TextWeight, w.TextCap, "text elements")

	if m.HasClipPath {
		score += w.ClipPathBonus
		reasons = append(reasons, fmt.Sprintf("clip paths (+%.2f)", w.ClipPathBonus))
	}
	if m.HasMask {
		score += w.MaskBonus
		reasons = append(reasons, fmt.Sprintf("masks (+%.2f)", w.MaskBonus))
	}
	if score > 1.0 {
		score = 1.0
	}

	advanced := m.FilterCount > 0 || m.HasClipPath || m.HasMask
	large := m.SizeBytes > w.LargeDocumentBytes

	var tier Tier
	switch {
	case score >= w.UltraScore || large || (advanced && score >= w.AdvancedUltraScore):
		tier = TierUltra
		if large {
			reasons = append(reasons, fmt.Sprintf("document exceeds %d bytes", w.LargeDocumentBytes))
		}
	case score >= w.HighScore || advanced:
		tier = TierHigh
		if advanced && score < w.HighScore {
			reasons = append(reasons, "advanced features present")
		}
	case score >= w.MediumScore:
		tier = TierMedium
	default:
		tier = TierLow
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "no complex features detected")
	}

	return Result{Metrics: m, Score: score, Tier: tier, Reasoning: reasons}
}

// collectMetrics tokenizes the markup and counts rendering features.
func collectMetrics(markup []byte) (Metrics, error) {
	m := Metrics{SizeBytes: len(markup)}

	dec := xml.NewDecoder(bytes.NewReader(markup))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Metrics{}, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		m.TotalElements++
		switch start.Name.Local {
		case "path":
			m.PathCount++
		case "linearGradient", "radialGradient":
			m.GradientCount++
		case "filter":
			m.FilterCount++
		case "animate", "animateTransform", "animateMotion", "set":
			m.AnimationCount++
		case "text", "tspan", "textPath":
			m.TextCount++
		case "clipPath":
			m.HasClipPath = true
		case "mask":
			m.HasMask = true
		}
	}
	if m.TotalElements == 0 {
		return Metrics{}, fmt.Errorf("complexity: no elements in document")
	}
	return m, nil
}
