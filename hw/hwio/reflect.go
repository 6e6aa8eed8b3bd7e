package hwio

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type regInfo struct {
	regPtr any
	offset uint16
}

type tagOpts map[string]string

func parseTag(tag string) tagOpts {
	opts := make(tagOpts)
	for _, kv := range strings.Split(tag, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		opts[k] = v
	}
	return opts
}

func (o tagOpts) has(key string) bool {
	_, ok := o[key]
	return ok
}

func (o tagOpts) uint(key string, def uint64) (uint64, error) {
	s, ok := o[key]
	if !ok {
		return def, nil
	}
	return strconv.ParseUint(s, 0, 64)
}

func structOf(bank any) (reflect.Value, error) {
	v := reflect.ValueOf(bank)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("hwio: bank must be a pointer to struct, got %T", bank)
	}
	return v, nil
}

// bankGetRegs returns the registers of bank number bankNum, with their
// offsets.
func bankGetRegs(bank any, bankNum int) ([]regInfo, error) {
	pv, err := structOf(bank)
	if err != nil {
		return nil, err
	}
	v := pv.Elem()
	t := v.Type()

	var regs []regInfo
	for i := range t.NumField() {
		tag, ok := t.Field(i).Tag.Lookup("hwio")
		if !ok {
			continue
		}
		opts := parseTag(tag)
		if !opts.has("offset") {
			continue
		}
		bn, err := opts.uint("bank", 0)
		if err != nil {
			return nil, fmt.Errorf("hwio: field %s: invalid bank: %w", t.Field(i).Name, err)
		}
		if int(bn) != bankNum {
			continue
		}
		off, err := opts.uint("offset", 0)
		if err != nil || off > 0xFFFF {
			return nil, fmt.Errorf("hwio: field %s: invalid offset %q", t.Field(i).Name, opts["offset"])
		}
		regs = append(regs, regInfo{
			regPtr: v.Field(i).Addr().Interface(),
			offset: uint16(off),
		})
	}
	return regs, nil
}

// InitRegs initializes all Mem and Device fields of the structure pointed to
// by bank, using their "hwio" struct tags:
//
//	readonly      the area cannot be written
//	writeonly     the device cannot be read
//	size=0x100    number of words (Mem, Device)
//	vsize=0x200   mapped size, mirroring Data (Mem, default size)
//	mask=0xFF     stored data bits (Mem)
//	rcb, wcb, pcb bind the ReadNAME, WriteNAME and PeekNAME methods of bank,
//	              where NAME is the upper-cased field name.
func InitRegs(bank any) error {
	pv, err := structOf(bank)
	if err != nil {
		return err
	}
	v := pv.Elem()
	t := v.Type()

	for i := range t.NumField() {
		f := t.Field(i)
		tag, ok := f.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		opts := parseTag(tag)
		ptr := v.Field(i).Addr().Interface()

		var err error
		switch r := ptr.(type) {
		case *Mem:
			err = initMem(f.Name, r, opts)
		case *Device:
			err = initDevice(pv, f.Name, r, opts)
		default:
			err = fmt.Errorf("unsupported type %T", ptr)
		}
		if err != nil {
			return fmt.Errorf("hwio: field %s: %w", f.Name, err)
		}
	}
	return nil
}

// MustInitRegs is like InitRegs but panics on error.
func MustInitRegs(bank any) {
	if err := InitRegs(bank); err != nil {
		panic(err)
	}
}

func method[F any](pv reflect.Value, name string) (F, error) {
	var zero F
	m := pv.MethodByName(name)
	if !m.IsValid() {
		return zero, fmt.Errorf("missing method %s", name)
	}
	fn, ok := m.Interface().(F)
	if !ok {
		return zero, fmt.Errorf("method %s has wrong signature %s", name, m.Type())
	}
	return fn, nil
}

func initMem(name string, m *Mem, opts tagOpts) error {
	m.Name = name
	size, err := opts.uint("size", 0)
	if err != nil {
		return err
	}
	if size == 0 && len(m.Data) == 0 {
		return fmt.Errorf("memory without size")
	}
	if size != 0 && len(m.Data) != int(size) {
		m.Data = make([]uint16, size)
	}
	vsize, err := opts.uint("vsize", uint64(len(m.Data)))
	if err != nil {
		return err
	}
	m.VSize = int(vsize)
	mask, err := opts.uint("mask", 0xFFFF)
	if err != nil {
		return err
	}
	m.Mask = uint16(mask)
	if opts.has("readonly") {
		m.Flags |= MemFlagReadOnly
	}
	return nil
}

func initDevice(pv reflect.Value, name string, d *Device, opts tagOpts) error {
	d.Name = name
	size, err := opts.uint("size", 1)
	if err != nil {
		return err
	}
	d.Size = int(size)
	if opts.has("readonly") {
		d.Flags |= ReadOnlyFlag
	}
	if opts.has("writeonly") {
		d.Flags |= WriteOnlyFlag
	}

	upper := strings.ToUpper(name)
	if opts.has("rcb") {
		if d.ReadCb, err = method[func(uint16) uint16](pv, "Read"+upper); err != nil {
			return err
		}
	}
	if opts.has("pcb") {
		if d.PeekCb, err = method[func(uint16) uint16](pv, "Peek"+upper); err != nil {
			return err
		}
	}
	if opts.has("wcb") {
		if d.WriteCb, err = method[func(uint16, uint16)](pv, "Write"+upper); err != nil {
			return err
		}
	}
	return nil
}
