package cart

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/nwaples/rardecode/v2"
)

// Magic bytes for format detection.
var (
	magicZIP    = []byte{0x50, 0x4B, 0x03, 0x04}
	magicZIPEnd = []byte{0x50, 0x4B, 0x05, 0x06} // empty zip
	magic7z     = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
	magicGzip   = []byte{0x1F, 0x8B}
	magicRAR    = []byte{0x52, 0x61, 0x72, 0x21} // "Rar!"
)

// Largest accepted image. The whole address space is 128KB.
const maxImageSize = 1 << 20

var (
	ErrNoImage       = errors.New("no cartridge image found in archive")
	ErrFileTooLarge  = errors.New("file exceeds maximum size limit")
	romExtensions    = []string{".rom", ".bin", ".int", ".itv"}
	configExtensions = []string{".cfg"}
)

type image struct {
	name string
	data []byte
	cfg  []byte // .cfg sidecar, nil if none
}

type formatType int

const (
	formatRaw formatType = iota
	formatZIP
	format7z
	formatGzip
	formatRAR
)

func detectFormat(header []byte) formatType {
	switch {
	case bytes.HasPrefix(header, magicZIP), bytes.HasPrefix(header, magicZIPEnd):
		return formatZIP
	case bytes.HasPrefix(header, magicRAR):
		return formatRAR
	case bytes.HasPrefix(header, magic7z):
		return format7z
	case bytes.HasPrefix(header, magicGzip):
		return formatGzip
	}
	return formatRaw
}

// readImage reads a cartridge image and its .cfg sidecar, from a plain file
// or from an archive.
func readImage(path string) (*image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]byte, 8)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read file header: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	switch detectFormat(header[:n]) {
	case formatZIP:
		return fromZIP(path)
	case format7z:
		return from7z(path)
	case formatRAR:
		return fromRAR(path)
	case formatGzip:
		return fromGzip(f, path)
	}

	data, err := limitedRead(f)
	if err != nil {
		return nil, err
	}
	img := &image{name: filepath.Base(path), data: data}
	img.cfg, err = readSidecar(path)
	return img, err
}

// readSidecar reads the .cfg file next to a .bin file, if any.
func readSidecar(path string) ([]byte, error) {
	cfgpath := strings.TrimSuffix(path, filepath.Ext(path)) + ".cfg"
	if cfgpath == path {
		return nil, nil
	}
	data, err := os.ReadFile(cfgpath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func stem(name string) string {
	return strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
}

// collector gathers the image and config files found while walking an
// archive.
type collector struct {
	img  *image
	cfgs map[string][]byte
}

func (c *collector) wants(name string) bool {
	if hasExt(name, configExtensions) {
		return true
	}
	return c.img == nil && hasExt(name, romExtensions)
}

func (c *collector) add(name string, r io.Reader) error {
	data, err := limitedRead(r)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if hasExt(name, configExtensions) {
		if c.cfgs == nil {
			c.cfgs = make(map[string][]byte)
		}
		c.cfgs[stem(name)] = data
		return nil
	}
	c.img = &image{name: filepath.Base(name), data: data}
	return nil
}

func (c *collector) result() (*image, error) {
	if c.img == nil {
		return nil, ErrNoImage
	}
	c.img.cfg = c.cfgs[stem(c.img.name)]
	return c.img, nil
}

func fromZIP(path string) (*image, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	var c collector
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !c.wants(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s in archive: %w", f.Name, err)
		}
		err = c.add(f.Name, rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
	}
	return c.result()
}

func from7z(path string) (*image, error) {
	r, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open 7z: %w", err)
	}
	defer r.Close()

	var c collector
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !c.wants(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s in archive: %w", f.Name, err)
		}
		err = c.add(f.Name, rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
	}
	return c.result()
}

func fromRAR(path string) (*image, error) {
	r, err := rardecode.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rar: %w", err)
	}
	defer r.Close()

	var c collector
	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read rar entry: %w", err)
		}
		if header.IsDir || !c.wants(header.Name) {
			continue
		}
		if err := c.add(header.Name, r); err != nil {
			return nil, err
		}
	}
	return c.result()
}

// fromGzip decompresses a single gzipped image. A .cfg next to the archive
// is used as sidecar.
func fromGzip(r io.Reader, path string) (*image, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gr.Close()

	data, err := limitedRead(gr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress gzip: %w", err)
	}

	name := gr.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	img := &image{name: name, data: data}
	img.cfg, err = readSidecar(strings.TrimSuffix(path, filepath.Ext(path)))
	return img, err
}

// limitedRead reads from r up to maxImageSize bytes.
func limitedRead(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImageSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}
