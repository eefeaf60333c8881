package analysis

import (
	"image"
	"image/color"

	"github.com/dunamismax/vectorstudio/internal/domain"
)

const (
	BlockSize = 8
	// HighContrastDelta is the luminance spread that marks a block as high contrast.
	HighContrastDelta = 96
	QRCodeRatio       = 0.45
	LogoRatio         = 0.12
)

// Classify tiles img into 8×8 blocks and labels it by the share of blocks whose
// luminance spread reaches HighContrastDelta. Partial blocks at the right and
// bottom edges are skipped.
func Classify(img image.Image) domain.StructureClass {
	b := img.Bounds()
	cols := b.Dx() / BlockSize
	rows := b.Dy() / BlockSize
	if cols == 0 || rows == 0 {
		return domain.StructureClass{Kind: domain.StructurePhoto}
	}

	var high int
	for by := 0; by < rows; by++ {
		for bx := 0; bx < cols; bx++ {
			x0 := b.Min.X + bx*BlockSize
			y0 := b.Min.Y + by*BlockSize
			if blockContrast(img, x0, y0) >= HighContrastDelta {
				high++
			}
		}
	}

	total := rows * cols
	ratio := float64(high) / float64(total)
	return domain.StructureClass{
		Kind:          kindForRatio(ratio),
		ContrastRatio: ratio,
		Blocks:        total,
	}
}

func kindForRatio(ratio float64) string {
	switch {
	case ratio >= QRCodeRatio:
		return domain.StructureQRCode
	case ratio >= LogoRatio:
		return domain.StructureLogo
	default:
		return domain.StructurePhoto
	}
}

func blockContrast(img image.Image, x0, y0 int) float64 {
	lo, hi := 255.0, 0.0
	for y := y0; y < y0+BlockSize; y++ {
		for x := x0; x < x0+BlockSize; x++ {
			l := luminance(img.At(x, y))
			lo = min(lo, l)
			hi = max(hi, l)
		}
	}
	return hi - lo
}

// luminance is 0.299R + 0.587G + 0.114B, summed in integer thousandths so gray
// levels come out exact.
func luminance(c color.Color) float64 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return float64(299*int(n.R)+587*int(n.G)+114*int(n.B)) / 1000
}
