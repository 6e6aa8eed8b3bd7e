package emu

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"intv/emu/log"
)

type Config struct {
	Audio     AudioConfig     `toml:"audio"`
	Video     VideoConfig     `toml:"video"`
	System    SystemConfig    `toml:"system"`
	Emulation EmulationConfig `toml:"emulation"`

	TraceOut io.WriteCloser `toml:"-"`
}

type AudioConfig struct {
	SampleRate  int     `toml:"sample_rate"`
	PSGWeight   float64 `toml:"psg_weight"`
	VoiceWeight float64 `toml:"voice_weight"`
	Resampler   string  `toml:"resampler"` // "average" or "blip"
}

type VideoConfig struct {
	ScreenshotScale int `toml:"screenshot_scale"`
}

// SystemConfig locates the boot ROMs. Relative paths are resolved in BIOSDir.
type SystemConfig struct {
	BIOSDir string `toml:"bios_dir"`
	Exec    string `toml:"exec"`
	GROM    string `toml:"grom"`
	Voice   string `toml:"ivoice"`
}

type EmulationConfig struct {
	ControllerSwap bool `toml:"controller_swap"`
}

const (
	ResamplerAverage = "average"
	ResamplerBlip    = "blip"
)

const DefaultFileMode = os.FileMode(0755)

var ConfigDir = sync.OnceValue(func() string {
	cfgdir, err := os.UserConfigDir()
	if err != nil {
		log.ModEmu.Fatalf("failed to get user config directory: %v", err)
	}

	dir := filepath.Join(cfgdir, "intv")
	if err := os.MkdirAll(dir, DefaultFileMode); err != nil {
		log.ModEmu.Fatalf("failed to create directory %s: %v", dir, err)
	}
	return dir
})

func DefaultConfig() Config {
	return Config{
		Audio: AudioConfig{
			SampleRate:  48000,
			PSGWeight:   0.5,
			VoiceWeight: 0.5,
			Resampler:   ResamplerAverage,
		},
		Video: VideoConfig{
			ScreenshotScale: 1,
		},
		System: SystemConfig{
			Exec:  "exec.bin",
			GROM:  "grom.bin",
			Voice: "ivoice.bin",
		},
	}
}

// Check replaces invalid values by their default.
func (cfg *Config) Check() {
	def := DefaultConfig()
	if cfg.Audio.SampleRate <= 0 {
		log.ModEmu.Warnf("invalid sample rate %d, fallback to %d", cfg.Audio.SampleRate, def.Audio.SampleRate)
		cfg.Audio.SampleRate = def.Audio.SampleRate
	}
	if cfg.Audio.PSGWeight < 0 || cfg.Audio.VoiceWeight < 0 || cfg.Audio.PSGWeight+cfg.Audio.VoiceWeight == 0 {
		log.ModEmu.Warnf("invalid mix weights %v/%v, fallback to %v/%v",
			cfg.Audio.PSGWeight, cfg.Audio.VoiceWeight, def.Audio.PSGWeight, def.Audio.VoiceWeight)
		cfg.Audio.PSGWeight = def.Audio.PSGWeight
		cfg.Audio.VoiceWeight = def.Audio.VoiceWeight
	}
	switch cfg.Audio.Resampler {
	case ResamplerAverage, ResamplerBlip:
	default:
		log.ModEmu.Warnf("invalid resampler %q, fallback to %q", cfg.Audio.Resampler, def.Audio.Resampler)
		cfg.Audio.Resampler = def.Audio.Resampler
	}
	if cfg.Video.ScreenshotScale < 1 {
		cfg.Video.ScreenshotScale = 1
	}
}

const cfgFilename = "config.toml"

// LoadConfigOrDefault loads the configuration at path, or from the intv
// config directory if path is empty. Missing keys keep their default value,
// a missing or invalid file gives the default configuration.
func LoadConfigOrDefault(path string) Config {
	if path == "" {
		path = filepath.Join(ConfigDir(), cfgFilename)
	}

	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !os.IsNotExist(err) {
			log.ModEmu.WarnZ("failed to load config").String("path", path).Error("err", err).End()
		}
		return DefaultConfig()
	}
	cfg.Check()
	return cfg
}

// SaveConfig writes cfg at path, or into the intv config directory if path
// is empty.
func SaveConfig(path string, cfg Config) error {
	if path == "" {
		path = filepath.Join(ConfigDir(), cfgFilename)
	}
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}
