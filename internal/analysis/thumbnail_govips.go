//go:build govips && cgo

package analysis

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/davidbyttow/govips/v2/vips"
)

type govipsThumbnailer struct{}

func (govipsThumbnailer) Thumbnail(ctx context.Context, data []byte, maxSide int) (image.Image, int, int, error) {
	select {
	case <-ctx.Done():
		return nil, 0, 0, ctx.Err()
	default:
	}

	img, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode source image: %w", err)
	}
	defer img.Close()

	w, h := img.Width(), img.Height()
	if w <= 0 || h <= 0 {
		return nil, 0, 0, ErrEmptyImage
	}

	if longest := max(w, h); longest > maxSide {
		scale := float64(maxSide) / float64(longest)
		if err := img.Resize(scale, vips.KernelLinear); err != nil {
			return nil, 0, 0, fmt.Errorf("resize image: %w", err)
		}
	}

	encoded, _, err := img.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, 0, 0, fmt.Errorf("encode thumbnail: %w", err)
	}
	thumb, err := png.Decode(bytes.NewReader(encoded))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode thumbnail: %w", err)
	}
	return thumb, w, h, nil
}
