package render

import (
	"fmt"
	"math/rand/v2"
	"strings"

	qrcode "github.com/yeqown/go-qrcode/v2"
)

const (
	qrMargin    = 8
	qrMaxJitter = 4
	qrPayload   = "rv0"
)

// matrixCapture is a qrcode.Writer that keeps the module grid instead of encoding an image.
type matrixCapture struct {
	dim   int
	cells [][]bool
}

func (m *matrixCapture) Write(mat qrcode.Matrix) error {
	m.cells = make([][]bool, m.dim)
	for y := range m.cells {
		m.cells[y] = make([]bool, m.dim)
	}
	mat.Iterate(qrcode.IterDirection_ROW, func(x, y int, v qrcode.QRValue) {
		if x < m.dim && y < m.dim {
			m.cells[y][x] = v.IsSet()
		}
	})
	return nil
}

func (m *matrixCapture) Close() error { return nil }

func qrMatrix(payload string) ([][]bool, error) {
	if payload == "" {
		payload = qrPayload
	}
	qrc, err := qrcode.New(payload)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	capture := &matrixCapture{dim: qrc.Dimension()}
	if err := qrc.Save(capture); err != nil {
		return nil, fmt.Errorf("capture qr matrix: %w", err)
	}
	return capture.cells, nil
}

func writeQR(b *strings.Builder, payload, fill string, rng *rand.Rand) error {
	cells, err := qrMatrix(payload)
	if err != nil {
		return err
	}
	if len(cells) == 0 {
		return fmt.Errorf("encode qr: empty matrix")
	}

	cell := (ViewBox - 2*qrMargin - qrMaxJitter) / len(cells)
	if cell < 1 {
		return fmt.Errorf("encode qr: payload too long for a %d unit grid", ViewBox)
	}
	offX := qrMargin + rng.IntN(qrMaxJitter+1)
	offY := qrMargin + rng.IntN(qrMaxJitter+1)

	b.WriteString(fmt.Sprintf(`<rect width="%d" height="%d" fill="#ffffff"/>`, ViewBox, ViewBox))
	for y, row := range cells {
		for x, set := range row {
			if !set {
				continue
			}
			b.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`,
				offX+x*cell, offY+y*cell, cell, cell, fill))
		}
	}
	return nil
}
