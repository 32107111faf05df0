// Package qr renders payment links as scannable images.
package qr

import (
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Renderer turns text into a displayable image.
type Renderer interface {
	Render(text string, width, height int) ([]byte, error)
}

// DefaultSize matches the POS page QR box.
const DefaultSize = 220

// PNGRenderer encodes square PNG QR codes.
type PNGRenderer struct {
	Level qrcode.RecoveryLevel
}

var _ Renderer = PNGRenderer{}

func NewPNGRenderer() PNGRenderer {
	return PNGRenderer{Level: qrcode.Medium}
}

// Render draws a square code that fits in width x height.
func (r PNGRenderer) Render(text string, width, height int) ([]byte, error) {
	if text == "" {
		return nil, errors.New("qr text cannot be empty")
	}

	size := min(width, height)
	if size <= 0 {
		size = DefaultSize
	}

	png, err := qrcode.Encode(text, r.Level, size)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	return png, nil
}

// ASCII renders the code for a terminal.
func ASCII(text string) (string, error) {
	q, err := qrcode.New(text, qrcode.Low)
	if err != nil {
		return "", fmt.Errorf("qr encode: %w", err)
	}
	return q.ToSmallString(false), nil
}
