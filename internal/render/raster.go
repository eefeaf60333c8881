package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	DefaultPreviewSize = 400
	MinPreviewSize     = 16
	MaxPreviewSize     = 1024
)

var ErrInvalidSize = errors.New("preview size out of range")

// RasterizePNG draws svg onto a white square of the given size. oksvg skips <text>,
// so a non-empty caption is stamped in the bottom-left corner instead.
func RasterizePNG(svg string, size int, caption string) ([]byte, error) {
	if size < MinPreviewSize || size > MaxPreviewSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	icon, err := oksvg.ReadIconStream(strings.NewReader(svg), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	if caption != "" {
		drawCaption(img, caption)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawCaption(img *image.RGBA, caption string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 90, G: 90, B: 90, A: 255}),
		Face: face,
		Dot:  fixed.P(4, img.Bounds().Dy()-4),
	}
	d.DrawString(caption)
}
