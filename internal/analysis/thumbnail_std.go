package analysis

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

type stdlibThumbnailer struct{}

func (stdlibThumbnailer) Thumbnail(ctx context.Context, data []byte, maxSide int) (image.Image, int, int, error) {
	select {
	case <-ctx.Done():
		return nil, 0, 0, ctx.Err()
	default:
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode source image: %w", err)
	}

	sb := src.Bounds()
	w, h := sb.Dx(), sb.Dy()
	if w == 0 || h == 0 {
		return nil, 0, 0, ErrEmptyImage
	}

	tw, th := fitWithin(w, h, maxSide)
	dst := image.NewNRGBA(image.Rect(0, 0, tw, th))
	if tw == w && th == h {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Src)
		return dst, w, h, nil
	}

	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, sb, draw.Src, nil)
	return dst, w, h, nil
}
