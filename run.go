package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"

	"intv/cart"
	"intv/emu"
	"intv/emu/log"
)

// runMain runs a cartridge headless and returns the process exit code.
func runMain(args Run, cfg emu.Config) int {
	if args.BIOS != "" {
		cfg.System.BIOSDir = args.BIOS
	}
	if args.Swap {
		cfg.Emulation.ControllerSwap = true
	}
	if args.Trace != nil {
		cfg.TraceOut = args.Trace
		defer args.Trace.Close()
	}

	inputs, err := args.inputs()
	checkf(err, "invalid --input")

	sys, err := cart.LoadSystem(cart.SystemPaths{
		Dir:   cfg.System.BIOSDir,
		Exec:  cfg.System.Exec,
		GROM:  cfg.System.GROM,
		Voice: optionalVoice(cfg.System),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading system ROMs: %s\n", err)
		return 1
	}

	var crt *cart.Cartridge
	if args.RomPath != "" {
		crt, err = cart.Open(args.RomPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading cartridge: %s\n", err)
			return 1
		}
	}

	emulator, err := emu.Launch(sys, crt, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start emulator: %v\n", err)
		return 1
	}
	defer emulator.Close()
	emulator.SetInputs(inputs)
	emulator.SetOutDir(args.Out)

	if args.LoadState != "" {
		if err := emulator.LoadSnapshot(args.LoadState); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load state: %v\n", err)
			return 1
		}
	}

	if args.WAV != "" {
		w, err := emu.NewWAVWriter(args.WAV, cfg.Audio.SampleRate)
		checkf(err, "failed to create wav file")
		defer func() {
			checkf(w.Close(), "failed to write wav file")
		}()
		emulator.SetAudioSink(w)
	}

	if args.CPUProfile != "" {
		f, err := os.Create(args.CPUProfile)
		checkf(err, "failed to create cpu profile file")
		checkf(pprof.StartCPUProfile(f), "failed to start cpu profile")
		defer func() {
			pprof.StopCPUProfile()
			f.Close()
			fmt.Println("CPU profile written to", args.CPUProfile)
		}()
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	defer signal.Stop(sigc)
	go func() {
		if _, ok := <-sigc; ok {
			emulator.Stop()
		}
	}()

	exitcode := 0
	if err := emulator.Run(args.Frames); err != nil {
		log.ModEmu.WarnZ("Emulation stopped").Error("err", err).End()
		fmt.Fprintf(os.Stderr, "emulation stopped: %v\n", err)
		exitcode = 2
	}

	if err := saveOutputs(args, emulator, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		exitcode = 1
	}
	if args.Dump {
		os.Stdout.Write(emu.DumpState(emulator.Console.State()))
		fmt.Println()
	}
	if args.Digest {
		sum := emulator.Console.FrameDigest()
		fmt.Println(hex.EncodeToString(sum[:]))
	}
	return exitcode
}

func saveOutputs(args Run, emulator *emu.Emulator, cfg emu.Config) error {
	if args.Screenshot != "" {
		img := emu.Screenshot(emulator.Console.Frame(), cfg.Video.ScreenshotScale)
		if err := emu.SaveAsPNG(img, args.Screenshot); err != nil {
			return fmt.Errorf("failed to save screenshot: %w", err)
		}
	}
	if args.SaveState != "" {
		state, err := emulator.Console.SaveSnapshot()
		if err != nil {
			return err
		}
		if err := os.WriteFile(args.SaveState, state, 0644); err != nil {
			return fmt.Errorf("failed to save state: %w", err)
		}
	}
	return nil
}

// optionalVoice returns the speech ROM path if the file exists.
func optionalVoice(cfg emu.SystemConfig) string {
	if cfg.Voice == "" {
		return ""
	}
	path := cart.SystemPaths{Dir: cfg.BIOSDir}.Resolve(cfg.Voice)
	if _, err := os.Stat(path); err != nil {
		log.ModCart.InfoZ("no speech ROM").String("path", path).End()
		return ""
	}
	return cfg.Voice
}
