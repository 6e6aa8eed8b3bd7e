package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"intv/emu"
	"intv/emu/log"
)

type mode byte

const (
	runMode       mode = iota // Run a cartridge headless
	romInfosMode              // Show cartridge infos
	stateInfoMode             // Dump a snapshot file
	versionMode               // Show version
)

type (
	CLI struct {
		Run       Run       `cmd:"" help:"Run a cartridge for a number of frames." default:"withargs"`
		RomInfos  RomInfos  `cmd:"" help:"Show cartridge infos." name:"rom-infos"`
		StateInfo StateInfo `cmd:"" help:"Dump a snapshot file as JSON." name:"state-info"`
		Version   Version   `cmd:"" help:"Show intv version."`

		Log    logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`
		Config string     `help:"Configuration file." type:"path" placeholder:"FILE"`

		mode mode
	}

	Run struct {
		RomPath string `arg:"" name:"/path/to/rom" help:"${rompath_help}" optional:"" type:"existingfile"`

		BIOS       string   `name:"bios" help:"Directory holding exec.bin, grom.bin and ivoice.bin." type:"existingdir"`
		Frames     int      `name:"frames" help:"Number of frames to run, negative for no limit." default:"60"`
		Out        string   `name:"out" help:"Directory where screenshot.png and state.bin are written at exit." type:"existingdir"`
		Screenshot string   `name:"screenshot" help:"Save the last frame as PNG." type:"path"`
		SaveState  string   `name:"save-state" help:"Save a snapshot at exit." type:"path"`
		Dump       bool     `name:"dump" help:"Print the final console state as JSON."`
		WAV        string   `name:"wav" help:"Write mixed audio to a WAV file." type:"path"`
		LoadState  string   `name:"load-state" help:"Restore a snapshot before running." type:"existingfile"`
		Input      []string `name:"input" help:"${input_help}" placeholder:"P:STATE@FRAME"`
		Swap       bool     `name:"swap" help:"Swap left and right controllers."`
		Digest     bool     `name:"digest" help:"Print the SHA-1 digest of the last frame."`
		CPUProfile string   `name:"cpuprofile" help:"${cpuprofile_help}" type:"path"`
		Trace      *outfile `name:"trace" help:"Write CPU trace log." placeholder:"FILE|stdout|stderr"`
	}

	RomInfos struct {
		RomPath string `arg:"" name:"/path/to/rom" type:"existingfile"`
	}

	StateInfo struct {
		StatePath string `arg:"" name:"/path/to/state" type:"existingfile"`
	}

	Version struct{}
)

var vars = kong.Vars{
	"rompath_help":    "Cartridge to run, .rom, .bin or .int, possibly in a zip, 7z, rar or gz archive. Without it, only the executive ROM runs.",
	"cpuprofile_help": "Write CPU profile to file.",
	"log_help":        "Enable logging for specified modules.",
	"input_help":      "Set a controller state at a frame, e.g. 0:0x81@120. Can be repeated.",
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("intv"),
		kong.Description("Intellivision emulator."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")

	switch {
	case strings.HasPrefix(ctx.Command(), "rom-infos"):
		cfg.mode = romInfosMode
	case strings.HasPrefix(ctx.Command(), "state-info"):
		cfg.mode = stateInfoMode
	case ctx.Command() == "version":
		cfg.mode = versionMode
	default:
		cfg.mode = runMode
	}
	return cfg
}

// inputs parses the --input flags.
func (r Run) inputs() ([]emu.Input, error) {
	inputs := make([]emu.Input, 0, len(r.Input))
	for _, s := range r.Input {
		in, err := emu.ParseInput(s)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	if strings.HasPrefix(ctx.Command(), "run") {
		loggingHelp := `
Log modules:
  The --log flag accepts a comma-separated list of modules.

  Valid log modules are:
%s

  As a special case, the following values are accepted:
    - no                     Disable all logging.
    - all                    Enable all logs.
`
		var strs []string
		for _, m := range strings.Split(log.ModuleNames(), ",") {
			strs = append(strs, "    - "+m)
		}

		fmt.Fprintf(os.Stderr, loggingHelp, strings.Join(strs, "\n"))
	}

	return nil
}

type logModMask log.ModuleMask

// Decode decodes a comma-separated list of module names into a module mask.
//
// Implements kong.MapperValue interface.
func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	nolog := false
	allLogs := false

	tok := ctx.Scan.Pop()
	for _, v := range strings.Split(tok.Value.(string), ",") {
		switch v {
		case "all":
			allLogs = true
		case "no":
			nolog = true
		default:
			mod, ok := log.ModuleByName(v)
			if !ok {
				return fmt.Errorf("unknown log module %s", v)
			}
			lm |= logModMask(mod.Mask())
		}
	}

	if nolog {
		if allLogs {
			return fmt.Errorf("cannot use 'all' and 'no' together")
		}
		if lm != 0 {
			return fmt.Errorf("cannot combine 'no' with other log modules")
		}
		log.Disable()
		return nil
	}

	if allLogs {
		lm = logModMask(log.ModuleMaskAll)
	}

	log.EnableDebugModules(log.ModuleMask(lm))
	return nil
}

type outfile struct {
	w     io.Writer
	name  string
	close func() error
}

// Decode decodes FILE|stdout|stderr into an io.WriteCloser
// that writes to that file.
//
// Implements kong.MapperValue interface.
func (f *outfile) Decode(ctx *kong.DecodeContext) error {
	tok := ctx.Scan.Pop()
	f.name = tok.Value.(string)
	f.close = func() error { return nil }

	switch f.name {
	case "stdout":
		f.w = os.Stdout
	case "stderr":
		f.w = os.Stderr
	default:
		fd, err := os.Create(f.name)
		if err != nil {
			return err
		}
		f.w = fd
		f.close = fd.Close
	}
	return nil
}

func (f *outfile) String() string              { return f.name }
func (f *outfile) Write(p []byte) (int, error) { return f.w.Write(p) }
func (f *outfile) Close() error                { return f.close() }

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	fatalf(format+".\n"+err.Error(), args...)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal error:")
	fmt.Fprintf(os.Stderr, "\n\t%s\n", fmt.Sprintf(format, args...))
	os.Exit(1)
}
