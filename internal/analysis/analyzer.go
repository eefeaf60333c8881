package analysis

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/dunamismax/vectorstudio/internal/domain"
)

// MaxSampleSide bounds the longest side of the working copy every heuristic runs on.
const MaxSampleSide = 100

var ErrEmptyImage = errors.New("image has no pixels")

// Thumbnailer decodes an encoded image and returns a copy whose longest side is at
// most maxSide. It never up-scales.
type Thumbnailer interface {
	Thumbnail(ctx context.Context, data []byte, maxSide int) (thumb image.Image, srcWidth, srcHeight int, err error)
}

type Report struct {
	Width        int                   `json:"width"`
	Height       int                   `json:"height"`
	SampleWidth  int                   `json:"sample_width"`
	SampleHeight int                   `json:"sample_height"`
	Colors       []string              `json:"colors"`
	Structure    domain.StructureClass `json:"structure"`
}

type Analyzer struct {
	thumbnailer Thumbnailer
}

func NewAnalyzer() (*Analyzer, error) {
	t, err := newThumbnailer()
	if err != nil {
		return nil, fmt.Errorf("build thumbnailer: %w", err)
	}
	return &Analyzer{thumbnailer: t}, nil
}

func NewAnalyzerWith(t Thumbnailer) *Analyzer {
	return &Analyzer{thumbnailer: t}
}

// Analyze down-scales the image once and runs the color sampler and the structure
// classifier over the same working copy.
func (a *Analyzer) Analyze(ctx context.Context, data []byte) (Report, error) {
	if len(data) == 0 {
		return Report{}, ErrEmptyImage
	}

	thumb, w, h, err := a.thumbnailer.Thumbnail(ctx, data, MaxSampleSide)
	if err != nil {
		return Report{}, fmt.Errorf("thumbnail stage: %w", err)
	}
	bounds := thumb.Bounds()
	if bounds.Empty() {
		return Report{}, ErrEmptyImage
	}

	select {
	case <-ctx.Done():
		return Report{}, ctx.Err()
	default:
	}

	return Report{
		Width:        w,
		Height:       h,
		SampleWidth:  bounds.Dx(),
		SampleHeight: bounds.Dy(),
		Colors:       SampleColors(thumb, PaletteSize),
		Structure:    Classify(thumb),
	}, nil
}

// fitWithin returns the size of a w×h image scaled so its longest side is at
// most maxSide.
func fitWithin(w, h, maxSide int) (int, int) {
	longest := max(w, h)
	if longest <= maxSide || longest == 0 {
		return w, h
	}
	scale := float64(maxSide) / float64(longest)
	tw := max(1, int(float64(w)*scale+0.5))
	th := max(1, int(float64(h)*scale+0.5))
	return min(tw, maxSide), min(th, maxSide)
}
