package analysis

import (
	"cmp"
	"fmt"
	"image"
	"image/color"
	"slices"
)

const (
	PaletteSize = 5
	// QuantStep buckets each channel into 32 levels.
	QuantStep = 256 / 32

	nearBlack      = 24
	nearWhite      = 232
	minOpaqueAlpha = 128
)

type bin struct {
	hex   string
	count int
}

// SampleColors returns up to n hex colors ordered by how many pixels fall in their
// quantized bin. Near-black, near-white and mostly transparent pixels are ignored.
func SampleColors(img image.Image, n int) []string {
	if n <= 0 {
		return []string{}
	}

	counts := make(map[uint32]int)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A < minOpaqueAlpha {
				continue
			}
			r, g, bl := quantize(c.R), quantize(c.G), quantize(c.B)
			if isExtreme(r, g, bl) {
				continue
			}
			counts[uint32(r)<<16|uint32(g)<<8|uint32(bl)]++
		}
	}

	bins := make([]bin, 0, len(counts))
	for key, count := range counts {
		bins = append(bins, bin{
			hex:   fmt.Sprintf("#%02x%02x%02x", byte(key>>16), byte(key>>8), byte(key)),
			count: count,
		})
	}
	slices.SortFunc(bins, func(a, b bin) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.hex, b.hex)
	})

	out := make([]string, 0, min(n, len(bins)))
	for _, entry := range bins[:min(n, len(bins))] {
		out = append(out, entry.hex)
	}
	return out
}

func quantize(v uint8) uint8 {
	return v &^ (QuantStep - 1)
}

func isExtreme(r, g, b uint8) bool {
	if r <= nearBlack && g <= nearBlack && b <= nearBlack {
		return true
	}
	return r >= nearWhite && g >= nearWhite && b >= nearWhite
}
