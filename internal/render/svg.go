package render

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/dunamismax/vectorstudio/internal/domain"
)

const (
	ViewBox = 200

	logoBlobPath   = "M50,50 Q100,20 150,50 Q180,100 150,150 Q100,180 50,150 Q20,100 50,50 Z"
	logoCircleR    = 20
	logoJitter     = 10
	minPhotoShapes = 6
	maxPhotoShapes = 12
)

var ErrUnknownKind = errors.New("unknown template kind")

type Options struct {
	// Kind is one of the domain structure kinds. Empty renders the logo template.
	Kind    string
	Colors  []string
	Payload string
	Rand    *rand.Rand
}

// SVG renders the placeholder vector for a classified image.
func SVG(opts Options) (string, error) {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	colors := sanitizeColors(opts.Colors)

	var body strings.Builder
	switch opts.Kind {
	case domain.StructureQRCode:
		if err := writeQR(&body, opts.Payload, colors[0], rng); err != nil {
			return "", err
		}
	case domain.StructureLogo, "":
		writeLogo(&body, colors, rng)
	case domain.StructurePhoto:
		writePhoto(&body, colors, rng)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, opts.Kind)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`,
		ViewBox, ViewBox, ViewBox, ViewBox))
	b.WriteString(body.String())
	b.WriteString(`</svg>`)
	return b.String(), nil
}

func writeLogo(b *strings.Builder, colors []string, rng *rand.Rand) {
	cx := ViewBox/2 + rng.IntN(2*logoJitter+1) - logoJitter
	cy := ViewBox/2 + rng.IntN(2*logoJitter+1) - logoJitter

	b.WriteString(fmt.Sprintf(`<path d="%s" fill="%s" fill-rule="evenodd"/>`, logoBlobPath, colors[0]))
	b.WriteString(fmt.Sprintf(`<circle cx="%d" cy="%d" r="%d" fill="%s"/>`, cx, cy, logoCircleR, colors[1]))
	b.WriteString(fmt.Sprintf(`<text x="%d" y="%d" text-anchor="middle" fill="white" font-size="12">SVG</text>`, cx, cy+5))
}

func writePhoto(b *strings.Builder, colors []string, rng *rand.Rand) {
	n := minPhotoShapes + rng.IntN(maxPhotoShapes-minPhotoShapes+1)
	for i := range n {
		cx := 20 + rng.IntN(161)
		cy := 20 + rng.IntN(161)
		r := 10 + rng.IntN(41)
		opacity := 0.35 + rng.Float64()*0.5
		b.WriteString(fmt.Sprintf(`<circle cx="%d" cy="%d" r="%d" fill="%s" opacity="%.2f"/>`,
			cx, cy, r, colors[i%len(colors)], opacity))
	}
}

// sanitizeColors drops anything that is not a hex color and guarantees two entries.
func sanitizeColors(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		normalized, err := domain.NormalizeHex(c)
		if err != nil {
			continue
		}
		out = append(out, normalized)
	}
	switch len(out) {
	case 0:
		return []string{domain.DefaultPrimaryColor, domain.DefaultSecondaryColor}
	case 1:
		return append(out, domain.DefaultSecondaryColor)
	}
	return out
}
