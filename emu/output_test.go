package emu

import (
	"image/color"
	"testing"

	"intv/hw/hwdefs"
)

func TestScreenshot(t *testing.T) {
	frame := make([]uint32, hwdefs.ScreenWidth*hwdefs.ScreenHeight)
	frame[0] = 0x112233
	frame[hwdefs.ScreenWidth+1] = 0xFF8000

	tests := []struct {
		scale int
		x, y  int
		want  color.RGBA
	}{
		{1, 0, 0, color.RGBA{0x11, 0x22, 0x33, 0xFF}},
		{1, 1, 1, color.RGBA{0xFF, 0x80, 0x00, 0xFF}},
		{1, 1, 0, color.RGBA{0, 0, 0, 0xFF}},
		{3, 2, 2, color.RGBA{0x11, 0x22, 0x33, 0xFF}},
		{3, 5, 5, color.RGBA{0xFF, 0x80, 0x00, 0xFF}},
		{3, 3, 2, color.RGBA{0, 0, 0, 0xFF}},
		{0, 1, 1, color.RGBA{0xFF, 0x80, 0x00, 0xFF}},
	}
	for _, tt := range tests {
		img := Screenshot(frame, tt.scale)
		scale := max(tt.scale, 1)
		if b := img.Bounds(); b.Dx() != scale*hwdefs.ScreenWidth || b.Dy() != scale*hwdefs.ScreenHeight {
			t.Errorf("scale %d: got %dx%d", tt.scale, b.Dx(), b.Dy())
		}
		if got := img.RGBAAt(tt.x, tt.y); got != tt.want {
			t.Errorf("scale %d: pixel (%d,%d) = %v, want %v", tt.scale, tt.x, tt.y, got, tt.want)
		}
	}
}
