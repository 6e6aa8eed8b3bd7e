package emu

import (
	"math"
	"slices"
	"testing"

	"intv/hw/hwdefs"
)

func constant(n int, v int16) []int16 {
	buf := make([]int16, n)
	for i := range buf {
		buf[i] = v
	}
	return buf
}

func TestMixAverage(t *testing.T) {
	tests := []struct {
		name         string
		psgW, voiceW float64
		psg, voice   int16
		want         int16
	}{
		{"even", 0.5, 0.5, 1000, 2000, 1500},
		{"psg only", 1, 0, 1000, 2000, 1000},
		{"voice only", 0, 1, 1000, -2000, -2000},
		{"clamp high", 4, 4, 0x7000, 0x7000, 0x7FFF},
		{"clamp low", 4, 4, -0x7000, -0x7000, -0x8000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAudioMixer(AudioConfig{
				SampleRate:  48000,
				PSGWeight:   tt.psgW,
				VoiceWeight: tt.voiceW,
				Resampler:   ResamplerAverage,
			})
			m.psgbuf = constant(3734, tt.psg)
			m.voicebuf = constant(167, tt.voice)

			out := m.mixAverage(801)
			if len(out) != 801 {
				t.Fatalf("got %d samples, want 801", len(out))
			}
			for i, s := range out {
				if s != tt.want {
					t.Fatalf("sample %d = %d, want %d", i, s, tt.want)
				}
			}
		})
	}
}

func TestMixAverageDecimates(t *testing.T) {
	m := NewAudioMixer(AudioConfig{SampleRate: 48000, PSGWeight: 1, Resampler: ResamplerAverage})

	// A square wave with a period of 2 sound samples averages out.
	m.psgbuf = make([]int16, 400)
	for i := range m.psgbuf {
		if i%2 == 0 {
			m.psgbuf[i] = 1000
		}
	}
	out := m.mixAverage(100)
	for i, s := range out {
		if s != 500 {
			t.Fatalf("sample %d = %d, want 500", i, s)
		}
	}

	// Missing speech samples are silent.
	m.psgbuf = nil
	m.voicebuf = constant(10, 1000)
	m.cfg.PSGWeight, m.cfg.VoiceWeight = 0, 1
	out = m.mixAverage(100)
	if out[0] != 1000 || out[99] != 1000 {
		t.Errorf("got %d..%d, want 1000", out[0], out[99])
	}
}

func TestMixFrameSampleCount(t *testing.T) {
	for _, resampler := range []string{ResamplerAverage, ResamplerBlip} {
		t.Run(resampler, func(t *testing.T) {
			const nframes = 60
			cfg := DefaultConfig().Audio
			cfg.Resampler = resampler

			c := newTestConsole(t, colorCycler)
			m := NewAudioMixer(cfg)

			var out []int16
			for range nframes {
				runFrames(t, c, 1)
				out = append(out, m.MixFrame(c)...)
			}
			if c.PSG.Buffered() != 0 || c.Voice.Buffered() != 0 {
				t.Errorf("MixFrame left samples in buffers")
			}

			want := nframes * float64(cfg.SampleRate) / hwdefs.FrameRate
			tolerance := 1.0
			if resampler == ResamplerBlip {
				// Band-limited output lags a few samples behind.
				tolerance = 0.01 * want
			}
			if got := float64(len(out)); math.Abs(got-want) > tolerance {
				t.Errorf("got %d samples, want %.1f", len(out), want)
			}
			if slices.Max(out) <= 0 {
				t.Errorf("tone is silent")
			}
		})
	}
}

func TestMixFrameSilence(t *testing.T) {
	c := newTestConsole(t, idle)
	m := NewAudioMixer(DefaultConfig().Audio)

	for range 5 {
		runFrames(t, c, 1)
		for i, s := range m.MixFrame(c) {
			if s != 0 {
				t.Fatalf("sample %d = %d, want 0", i, s)
			}
		}
	}
}

func BenchmarkMixFrame(b *testing.B) {
	for _, resampler := range []string{ResamplerAverage, ResamplerBlip} {
		b.Run(resampler, func(b *testing.B) {
			cfg := DefaultConfig().Audio
			cfg.Resampler = resampler
			c := newTestConsole(b, colorCycler)
			m := NewAudioMixer(cfg)

			for b.Loop() {
				runFrames(b, c, 1)
				m.MixFrame(c)
			}
		})
	}
}
