package emu

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"

	"intv/cart"
	"intv/emu/log"
)

// AudioSink receives the mixed audio of each frame.
type AudioSink interface {
	Write(samples []int16) error
}

// Input sets the state of a controller at the start of a given frame.
type Input struct {
	Frame  uint64
	Player int
	State  uint8
}

// ParseInput parses an input of the form "PLAYER:STATE@FRAME", for example
// "0:0x81@120" presses key 1 of the left controller at frame 120. STATE 0
// releases the controller.
func ParseInput(s string) (Input, error) {
	player, rest, ok := strings.Cut(s, ":")
	if !ok {
		return Input{}, fmt.Errorf("invalid input %q: missing ':'", s)
	}
	state, frame, ok := strings.Cut(rest, "@")
	if !ok {
		return Input{}, fmt.Errorf("invalid input %q: missing '@'", s)
	}

	p, err := strconv.ParseUint(player, 10, 1)
	if err != nil {
		return Input{}, fmt.Errorf("invalid input %q: player: %w", s, err)
	}
	st, err := strconv.ParseUint(state, 0, 8)
	if err != nil {
		return Input{}, fmt.Errorf("invalid input %q: state: %w", s, err)
	}
	f, err := strconv.ParseUint(frame, 10, 64)
	if err != nil {
		return Input{}, fmt.Errorf("invalid input %q: frame: %w", s, err)
	}
	return Input{Frame: f, Player: int(p), State: uint8(st)}, nil
}

type Emulator struct {
	Console *Console
	cfg     Config

	mixer  *AudioMixer
	audio  AudioSink
	inputs []Input // sorted by frame

	// These can be set concurrently with the emulation loop.
	quit  atomic.Bool
	reset atomic.Bool

	outdir string
}

// Launch powers up a console with the given system ROMs and cartridge. It
// doesn't start the emulation loop, call Run for that.
func Launch(sys *cart.System, crt *cart.Cartridge, cfg Config) (*Emulator, error) {
	cfg.Check()

	c := NewConsole()
	if err := c.LoadSystem(sys); err != nil {
		return nil, err
	}
	if crt != nil {
		if err := c.LoadCartridge(crt); err != nil {
			return nil, err
		}
	}
	c.SetControllerSwap(cfg.Emulation.ControllerSwap)
	if cfg.TraceOut != nil {
		c.SetTraceOutput(cfg.TraceOut)
	}

	// Log entries carry the CPU program counter until Close.
	log.AddContext(c.CPU)

	return &Emulator{
		Console: c,
		cfg:     cfg,
		mixer:   NewAudioMixer(cfg.Audio),
	}, nil
}

// Close detaches the emulator from the logger. The emulator must not be used
// afterwards.
func (e *Emulator) Close() {
	log.RemoveContext(e.Console.CPU)
}

// SetAudioSink sets where mixed audio goes. With no sink, audio is still
// drained each frame and discarded.
func (e *Emulator) SetAudioSink(sink AudioSink) { e.audio = sink }

// SetInputs schedules controller inputs.
func (e *Emulator) SetInputs(inputs []Input) {
	e.inputs = slices.Clone(inputs)
	slices.SortStableFunc(e.inputs, func(a, b Input) int {
		return cmp.Compare(a.Frame, b.Frame)
	})
}

// SetOutDir enables saving a screenshot and a snapshot when Run returns.
func (e *Emulator) SetOutDir(path string) { e.outdir = path }

// LoadSnapshot restores a snapshot file.
func (e *Emulator) LoadSnapshot(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := e.Console.LoadSnapshot(buf); err != nil {
		return err
	}
	e.mixer.Reset()
	e.applyInputs()
	return nil
}

func (e *Emulator) applyInputs() {
	frame := e.Console.FrameCount()
	for len(e.inputs) > 0 && e.inputs[0].Frame <= frame {
		in := e.inputs[0]
		e.Console.SetInput(in.Player, in.State)
		e.inputs = e.inputs[1:]
	}
}

// RunOneFrame applies the inputs scheduled for the next frame, runs it and
// pushes its audio to the sink.
func (e *Emulator) RunOneFrame() error {
	e.applyInputs()
	if err := e.Console.RunFrame(); err != nil {
		return err
	}

	samples := e.mixer.MixFrame(e.Console)
	if e.audio != nil {
		if err := e.audio.Write(samples); err != nil {
			return fmt.Errorf("audio output: %w", err)
		}
	}
	return nil
}

// Run emulates up to nframes frames, or until Stop is called or the CPU
// halts. A negative nframes means no limit.
func (e *Emulator) Run(nframes int) error {
	err := e.loop(nframes)
	log.ModEmu.InfoZ("Emulation loop exited").
		Uint64("frames", e.Console.FrameCount()).
		End()

	if e.outdir != "" {
		e.save()
	}
	return err
}

func (e *Emulator) loop(nframes int) error {
	for i := 0; nframes < 0 || i < nframes; i++ {
		if err := e.RunOneFrame(); err != nil {
			return err
		}
		if e.shouldStop() {
			break
		}
		e.handleReset()
	}
	return nil
}

func (e *Emulator) save() {
	state, err := e.Console.SaveSnapshot()
	if err != nil {
		log.ModEmu.WarnZ("Failed to save state").Error("err", err).End()
		return
	}
	path := filepath.Join(e.outdir, "state.bin")
	if err := os.WriteFile(path, state, 0644); err != nil {
		log.ModEmu.WarnZ("Failed to save state").String("path", path).Error("err", err).End()
	}

	path = filepath.Join(e.outdir, "screenshot.png")
	img := Screenshot(e.Console.Frame(), e.cfg.Video.ScreenshotScale)
	if err := SaveAsPNG(img, path); err != nil {
		log.ModEmu.WarnZ("Failed to save screenshot").String("path", path).Error("err", err).End()
	}
}

// Stop and Reset control the emulator loop in a concurrent-safe way.

func (e *Emulator) Stop()  { e.quit.Store(true) }
func (e *Emulator) Reset() { e.reset.Store(true) }

func (e *Emulator) shouldStop() bool {
	return e.quit.Load()
}

func (e *Emulator) handleReset() {
	if e.reset.CompareAndSwap(true, false) {
		log.ModEmu.InfoZ("Performing reset").End()
		e.Console.Reset()
		e.mixer.Reset()
	}
}
