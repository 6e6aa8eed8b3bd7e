package emu

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"intv/hw/hwdefs"
)

// Screenshot converts a framebuffer to an image, each pixel scaled by scale
// in both directions.
func Screenshot(frame []uint32, scale int) *image.RGBA {
	scale = max(scale, 1)
	img := image.NewRGBA(image.Rect(0, 0, hwdefs.ScreenWidth*scale, hwdefs.ScreenHeight*scale))
	for y := range img.Rect.Dy() {
		row := frame[(y/scale)*hwdefs.ScreenWidth:]
		for x := range img.Rect.Dx() {
			px := row[x/scale]
			off := img.PixOffset(x, y)
			img.Pix[off+0] = uint8(px >> 16)
			img.Pix[off+1] = uint8(px >> 8)
			img.Pix[off+2] = uint8(px)
			img.Pix[off+3] = 0xFF
		}
	}
	return img
}

func SaveAsPNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

// WAVWriter records mono 16-bit audio into a WAV file.
type WAVWriter struct {
	f   *os.File
	enc *wav.Encoder
	buf audio.IntBuffer
}

func NewWAVWriter(path string, sampleRate int) (*WAVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	const pcm = 1
	w := &WAVWriter{
		f:   f,
		enc: wav.NewEncoder(f, sampleRate, 16, 1, pcm),
		buf: audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
	}
	return w, nil
}

func (w *WAVWriter) Write(samples []int16) error {
	if len(samples) == 0 {
		return nil
	}
	w.buf.Data = w.buf.Data[:0]
	for _, s := range samples {
		w.buf.Data = append(w.buf.Data, int(s))
	}
	return w.enc.Write(&w.buf)
}

// Close finalizes the WAV header and closes the file.
func (w *WAVWriter) Close() error {
	if err := w.enc.Close(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
