package cart

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"intv/emu/log"
	"intv/hw/hwdefs"
)

// SystemPaths locates the boot images. Relative paths are resolved against
// Dir. Voice is optional.
type SystemPaths struct {
	Dir   string
	Exec  string
	GROM  string
	Voice string
}

// System holds the decoded boot images.
type System struct {
	Exec  []uint16 // ExecSize words
	GROM  []uint16 // GROMSize words, 8 bits each
	Voice []uint16 // speech ROM, nil if absent
}

// LoadSystem reads the boot images concurrently.
//
// exec.bin stores big-endian 16-bit words, grom.bin one byte per word. The
// speech ROM stores big-endian words.
func LoadSystem(paths SystemPaths) (*System, error) {
	var (
		sys System
		g   errgroup.Group
	)

	g.Go(func() error {
		data, err := readBoot("exec", paths.Resolve(paths.Exec))
		if err != nil {
			return err
		}
		if len(data) != 2*hwdefs.ExecSize {
			return &LoadError{Op: "exec", Path: paths.Resolve(paths.Exec),
				Err: fmt.Errorf("got %d bytes, want %d", len(data), 2*hwdefs.ExecSize)}
		}
		sys.Exec = words(data)
		return nil
	})

	g.Go(func() error {
		data, err := readBoot("grom", paths.Resolve(paths.GROM))
		if err != nil {
			return err
		}
		if len(data) != hwdefs.GROMSize {
			return &LoadError{Op: "grom", Path: paths.Resolve(paths.GROM),
				Err: fmt.Errorf("got %d bytes, want %d", len(data), hwdefs.GROMSize)}
		}
		sys.GROM = make([]uint16, len(data))
		for i, b := range data {
			sys.GROM[i] = uint16(b)
		}
		return nil
	})

	if paths.Voice != "" {
		g.Go(func() error {
			path := paths.Resolve(paths.Voice)
			data, err := readBoot("ivoice", path)
			if err != nil {
				return err
			}
			if len(data)%2 != 0 {
				return &LoadError{Op: "ivoice", Path: path, Err: fmt.Errorf("odd size %d", len(data))}
			}
			sys.Voice = words(data)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.ModCart.InfoZ("system ROMs loaded").
		Bool("ivoice", sys.Voice != nil).
		End()
	return &sys, nil
}

// Resolve returns path relative to p.Dir.
func (p SystemPaths) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || p.Dir == "" {
		return path
	}
	return filepath.Join(p.Dir, path)
}

func readBoot(op, path string) ([]byte, error) {
	if path == "" {
		return nil, &LoadError{Op: op, Err: fmt.Errorf("no path configured")}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Op: op, Path: path, Err: err}
	}
	return data, nil
}
