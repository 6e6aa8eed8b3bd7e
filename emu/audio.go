package emu

import (
	"github.com/arl/blip"

	"intv/hw/hwdefs"
)

// AudioMixer brings the sound and speech streams of a console down to the
// host sample rate and mixes them, one frame at a time.
//
// The "average" resampler decimates each stream with a truncating
// accumulator then blends them with configurable weights. The "blip"
// resampler band-limits both streams before blending.
type AudioMixer struct {
	cfg AudioConfig

	psgbuf   []int16
	voicebuf []int16
	out      []int16

	acc float64 // fractional count of output samples

	psgblip, voiceblip *blip.Buffer
	psgPrev, voicePrev int16
	psgOut, voiceOut   []int16
}

func NewAudioMixer(cfg AudioConfig) *AudioMixer {
	m := &AudioMixer{cfg: cfg}
	if cfg.Resampler == ResamplerBlip {
		size := max(cfg.SampleRate/10, blip.MaxFrame)
		m.psgblip = blip.NewBuffer(size)
		m.psgblip.SetRates(hwdefs.PSGRate, float64(cfg.SampleRate))
		m.voiceblip = blip.NewBuffer(size)
		m.voiceblip.SetRates(hwdefs.VoiceRate, float64(cfg.SampleRate))
	}
	return m
}

// Reset drops any partial state, as after a console reset or a snapshot
// load.
func (m *AudioMixer) Reset() {
	m.acc = 0
	m.psgPrev, m.voicePrev = 0, 0
	if m.psgblip != nil {
		m.psgblip.Clear()
		m.voiceblip.Clear()
	}
}

// MixFrame drains the samples generated by the last frame and returns them
// mixed at the host rate. The returned slice is reused by the next call.
func (m *AudioMixer) MixFrame(c *Console) []int16 {
	m.psgbuf = drain(m.psgbuf, c.PSG.Buffered(), c.PSG.ReadSamples)
	m.voicebuf = drain(m.voicebuf, c.Voice.Buffered(), c.Voice.ReadSamples)

	if m.psgblip != nil {
		return m.mixBlip()
	}

	m.acc += float64(m.cfg.SampleRate) / hwdefs.FrameRate
	n := int(m.acc)
	m.acc -= float64(n)
	return m.mixAverage(n)
}

func drain(buf []int16, n int, read func([]int16) int) []int16 {
	if cap(buf) < n {
		buf = make([]int16, n)
	}
	buf = buf[:n]
	return buf[:read(buf)]
}

func (m *AudioMixer) mixAverage(n int) []int16 {
	m.out = resize(m.out, n)
	if n == 0 {
		return m.out
	}

	psgInc := float64(len(m.psgbuf)) / float64(n)
	voiceInc := float64(len(m.voicebuf)) / float64(n)

	var ppos, vpos float64
	for i := range m.out {
		// Average the sound samples covered by this output sample.
		lo, hi := int(ppos), int(ppos+psgInc)
		hi = max(hi, lo+1)
		var psum, pcnt int32
		for j := lo; j < hi && j < len(m.psgbuf); j++ {
			psum += int32(m.psgbuf[j])
			pcnt++
		}
		var p int32
		if pcnt > 0 {
			p = psum / pcnt
		}
		ppos += psgInc

		var v int32
		if j := int(vpos); j < len(m.voicebuf) {
			v = int32(m.voicebuf[j])
		}
		vpos += voiceInc

		m.out[i] = m.blend(p, v)
	}
	return m.out
}

func (m *AudioMixer) mixBlip() []int16 {
	for i, s := range m.psgbuf {
		if d := int32(s) - int32(m.psgPrev); d != 0 {
			m.psgblip.AddDelta(uint64(i), d)
		}
		m.psgPrev = s
	}
	m.psgblip.EndFrame(len(m.psgbuf))

	for i, s := range m.voicebuf {
		if d := int32(s) - int32(m.voicePrev); d != 0 {
			m.voiceblip.AddDelta(uint64(i), d)
		}
		m.voicePrev = s
	}
	m.voiceblip.EndFrame(len(m.voicebuf))

	n := m.psgblip.SamplesAvailable()
	m.psgOut = resize(m.psgOut, n)
	m.voiceOut = resize(m.voiceOut, n)
	clear(m.voiceOut)
	n = m.psgblip.ReadSamples(m.psgOut, n, blip.Mono)
	m.voiceblip.ReadSamples(m.voiceOut, min(n, m.voiceblip.SamplesAvailable()), blip.Mono)

	m.out = resize(m.out, n)
	for i := range m.out {
		m.out[i] = m.blend(int32(m.psgOut[i]), int32(m.voiceOut[i]))
	}
	return m.out
}

func (m *AudioMixer) blend(p, v int32) int16 {
	s := m.cfg.PSGWeight*float64(p) + m.cfg.VoiceWeight*float64(v)
	switch {
	case s > 0x7FFF:
		return 0x7FFF
	case s < -0x8000:
		return -0x8000
	}
	return int16(s)
}

func resize(buf []int16, n int) []int16 {
	if cap(buf) < n {
		return make([]int16, n)
	}
	return buf[:n]
}
