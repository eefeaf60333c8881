package analysis

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func BenchmarkAnalyzeFullHD(b *testing.B) {
	source := benchmarkPNG(b, 1920, 1080)
	analyzer, err := NewAnalyzer()
	if err != nil {
		b.Fatalf("new analyzer: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := analyzer.Analyze(context.Background(), source); err != nil {
			b.Fatalf("analyze: %v", err)
		}
	}
}

func BenchmarkClassifySample(b *testing.B) {
	img := image.NewRGBA(image.Rect(0, 0, MaxSampleSide, MaxSampleSide))
	for y := range MaxSampleSide {
		for x := range MaxSampleSide {
			if (x/8+y/8)%2 == 0 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Classify(img)
		SampleColors(img, PaletteSize)
	}
}

func benchmarkPNG(b *testing.B, w, h int) []byte {
	b.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / w),
				G: uint8((y * 255) / h),
				B: 140,
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		b.Fatalf("encode source png: %v", err)
	}
	return buf.Bytes()
}
