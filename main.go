package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"intv/emu"
)

func main() {
	cli := parseArgs(os.Args[1:])
	cfg := emu.LoadConfigOrDefault(cli.Config)

	switch cli.mode {
	case runMode:
		os.Exit(runMain(cli.Run, cfg))
	case romInfosMode:
		checkf(printRomInfos(os.Stdout, cli.RomInfos.RomPath), "failed to read cartridge")
	case stateInfoMode:
		checkf(printStateInfo(os.Stdout, cli.StateInfo.StatePath), "failed to read snapshot")
	case versionMode:
		printVersion()
	}
}

func printVersion() {
	version := "(devel)"
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		version = bi.Main.Version
	}
	fmt.Println("intv", version)
}
