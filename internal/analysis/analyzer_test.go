package analysis

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"slices"
	"testing"

	"github.com/dunamismax/vectorstudio/internal/domain"
)

func TestSampleColorsOrdersByFrequency(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	fill(img, img.Bounds(), color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	// 40 red, 30 blue, 20 black, 10 green (quantized to 248/0/0 etc.)
	fill(img, image.Rect(0, 0, 10, 4), color.NRGBA{R: 255, A: 255})
	fill(img, image.Rect(0, 4, 10, 7), color.NRGBA{B: 250, A: 255})
	fill(img, image.Rect(0, 7, 10, 9), color.NRGBA{A: 255})
	fill(img, image.Rect(0, 9, 10, 10), color.NRGBA{G: 130, A: 255})

	got := SampleColors(img, PaletteSize)
	want := []string{"#f80000", "#0000f8", "#008000"}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSampleColorsLimitsAndSkipsTransparent(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 1))
	for x := 0; x < 7; x++ {
		img.SetNRGBA(x, 0, color.NRGBA{R: uint8(40 + x*24), G: 100, B: 100, A: 255})
	}
	img.SetNRGBA(7, 0, color.NRGBA{R: 200, G: 10, B: 10, A: 20})

	got := SampleColors(img, PaletteSize)
	if len(got) != PaletteSize {
		t.Fatalf("expected %d colors, got %d (%v)", PaletteSize, len(got), got)
	}
	// equal counts fall back to lexical order
	if !slices.IsSorted(got) {
		t.Fatalf("expected tie-break by hex, got %v", got)
	}
	if slices.Contains(got, "#c80808") {
		t.Fatal("transparent pixel should not be sampled")
	}
}

func TestClassify(t *testing.T) {
	checker := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if ((x/2)+(y/2))%2 == 0 {
				checker.SetNRGBA(x, y, color.NRGBA{A: 255})
			} else {
				checker.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
	}
	if got := Classify(checker); got.Kind != domain.StructureQRCode || got.ContrastRatio != 1 {
		t.Fatalf("expected qr_code with ratio 1, got %+v", got)
	}

	logo := image.NewNRGBA(image.Rect(0, 0, 96, 96))
	fill(logo, logo.Bounds(), color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	fill(logo, image.Rect(20, 20, 76, 76), color.NRGBA{R: 20, G: 40, B: 160, A: 255})
	got := Classify(logo)
	if got.Kind != domain.StructureLogo {
		t.Fatalf("expected logo, got %+v", got)
	}
	if got.Blocks != 144 {
		t.Fatalf("expected 144 blocks, got %d", got.Blocks)
	}

	gradient := image.NewNRGBA(image.Rect(0, 0, 100, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 100; x++ {
			gradient.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 2), G: uint8(y * 3), B: 120, A: 255})
		}
	}
	if got := Classify(gradient); got.Kind != domain.StructurePhoto {
		t.Fatalf("expected photo, got %+v", got)
	}

	tiny := image.NewNRGBA(image.Rect(0, 0, 5, 5))
	if got := Classify(tiny); got.Kind != domain.StructurePhoto || got.Blocks != 0 {
		t.Fatalf("expected tiny image to be photo with no blocks, got %+v", got)
	}
}

func TestSampleColorsNearBlackAndWhiteBounds(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   color.NRGBA
		want []string
	}{
		{name: "24 is near black", in: color.NRGBA{R: 24, G: 24, B: 24, A: 255}, want: []string{}},
		{name: "31 quantizes to 24", in: color.NRGBA{R: 31, G: 31, B: 31, A: 255}, want: []string{}},
		{name: "32 is kept", in: color.NRGBA{R: 32, G: 32, B: 32, A: 255}, want: []string{"#202020"}},
		{name: "one channel above 24 is kept", in: color.NRGBA{R: 24, G: 24, B: 32, A: 255}, want: []string{"#181820"}},
		{name: "232 is near white", in: color.NRGBA{R: 232, G: 232, B: 232, A: 255}, want: []string{}},
		{name: "224 is kept", in: color.NRGBA{R: 224, G: 224, B: 224, A: 255}, want: []string{"#e0e0e0"}},
		{name: "231 quantizes to 224", in: color.NRGBA{R: 231, G: 231, B: 231, A: 255}, want: []string{"#e0e0e0"}},
		{name: "alpha 128 is opaque enough", in: color.NRGBA{R: 128, G: 64, B: 64, A: 128}, want: []string{"#804040"}},
		{name: "alpha 127 is skipped", in: color.NRGBA{R: 128, G: 64, B: 64, A: 127}, want: []string{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
			fill(img, img.Bounds(), tc.in)
			if got := SampleColors(img, PaletteSize); !slices.Equal(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestClassifyContrastBoundary(t *testing.T) {
	for _, tc := range []struct {
		gray uint8
		want string
	}{
		{gray: 95, want: domain.StructurePhoto},
		{gray: 96, want: domain.StructureQRCode},
	} {
		img := image.NewNRGBA(image.Rect(0, 0, BlockSize, BlockSize))
		fill(img, img.Bounds(), color.NRGBA{A: 255})
		img.SetNRGBA(3, 3, color.NRGBA{R: tc.gray, G: tc.gray, B: tc.gray, A: 255})

		if got := Classify(img); got.Kind != tc.want {
			t.Fatalf("spread %d: expected %s, got %+v", tc.gray, tc.want, got)
		}
	}
}

func TestClassifyRatioBoundary(t *testing.T) {
	for _, tc := range []struct {
		cols, rows, high int
		want             string
	}{
		{cols: 5, rows: 4, high: 9, want: domain.StructureQRCode}, // 0.45
		{cols: 5, rows: 4, high: 8, want: domain.StructureLogo},   // 0.40
		{cols: 5, rows: 5, high: 3, want: domain.StructureLogo},   // 0.12
		{cols: 5, rows: 5, high: 2, want: domain.StructurePhoto},  // 0.08
	} {
		img := image.NewNRGBA(image.Rect(0, 0, tc.cols*BlockSize, tc.rows*BlockSize))
		fill(img, img.Bounds(), color.NRGBA{R: 128, G: 128, B: 128, A: 255})
		for i := range tc.high {
			x, y := (i%tc.cols)*BlockSize, (i/tc.cols)*BlockSize
			img.SetNRGBA(x, y, color.NRGBA{A: 255})
			img.SetNRGBA(x+1, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}

		got := Classify(img)
		if got.Kind != tc.want || got.Blocks != tc.cols*tc.rows {
			t.Fatalf("%d of %d blocks: expected %s, got %+v", tc.high, tc.cols*tc.rows, tc.want, got)
		}
	}
}

func TestKindForRatio(t *testing.T) {
	for _, tc := range []struct {
		ratio float64
		want  string
	}{
		{ratio: 1, want: domain.StructureQRCode},
		{ratio: QRCodeRatio, want: domain.StructureQRCode},
		{ratio: math.Nextafter(QRCodeRatio, 0), want: domain.StructureLogo},
		{ratio: LogoRatio, want: domain.StructureLogo},
		{ratio: math.Nextafter(LogoRatio, 0), want: domain.StructurePhoto},
		{ratio: 0, want: domain.StructurePhoto},
	} {
		if got := kindForRatio(tc.ratio); got != tc.want {
			t.Fatalf("ratio %v: expected %s, got %s", tc.ratio, tc.want, got)
		}
	}
}

func TestAnalyzeDownscalesLongestSide(t *testing.T) {
	analyzer, err := NewAnalyzer()
	if err != nil {
		t.Fatalf("new analyzer: %v", err)
	}

	src := image.NewNRGBA(image.Rect(0, 0, 400, 200))
	fill(src, src.Bounds(), color.NRGBA{R: 250, G: 148, B: 30, A: 255})

	report, err := analyzer.Analyze(context.Background(), encodePNG(t, src))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if report.Width != 400 || report.Height != 200 {
		t.Fatalf("expected source 400x200, got %dx%d", report.Width, report.Height)
	}
	if report.SampleWidth != 100 || report.SampleHeight != 50 {
		t.Fatalf("expected sample 100x50, got %dx%d", report.SampleWidth, report.SampleHeight)
	}
	if !slices.Equal(report.Colors, []string{"#f89018"}) {
		t.Fatalf("unexpected colors %v", report.Colors)
	}
	if report.Structure.Kind != domain.StructurePhoto {
		t.Fatalf("expected flat image to be photo, got %s", report.Structure.Kind)
	}
}

func TestAnalyzeKeepsSmallImages(t *testing.T) {
	analyzer := NewAnalyzerWith(stdlibThumbnailer{})
	src := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	fill(src, src.Bounds(), color.NRGBA{R: 90, G: 90, B: 200, A: 255})

	report, err := analyzer.Analyze(context.Background(), encodePNG(t, src))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if report.SampleWidth != 40 || report.SampleHeight != 30 {
		t.Fatalf("expected no up-scaling, got %dx%d", report.SampleWidth, report.SampleHeight)
	}
}

func TestAnalyzeRejectsGarbage(t *testing.T) {
	analyzer := NewAnalyzerWith(stdlibThumbnailer{})
	if _, err := analyzer.Analyze(context.Background(), []byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := analyzer.Analyze(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestFitWithin(t *testing.T) {
	cases := []struct {
		w, h, wantW, wantH int
	}{
		{400, 200, 100, 50},
		{200, 400, 50, 100},
		{100, 100, 100, 100},
		{1000, 3, 100, 1},
		{60, 20, 60, 20},
	}
	for _, tc := range cases {
		gotW, gotH := fitWithin(tc.w, tc.h, MaxSampleSide)
		if gotW != tc.wantW || gotH != tc.wantH {
			t.Fatalf("fitWithin(%d,%d) = %dx%d, want %dx%d", tc.w, tc.h, gotW, gotH, tc.wantW, tc.wantH)
		}
	}
}

func fill(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
