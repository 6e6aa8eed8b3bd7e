package hw

import (
	"intv/hw/hwdefs"
	"intv/hw/hwio"
)

// The STIC draws a 176x112 picture: an 8 pixel border around a 20x12 grid of
// 8x8 cards. MOBs have twice the vertical resolution, so rasterization
// happens on a 176x224 grid, later doubled horizontally into the framebuffer.
const (
	rasterW = hwdefs.ScreenWidth / 2
	rasterH = hwdefs.ScreenHeight

	cardCols = 20
	cardRows = 12

	displayX0 = 8
	displayY0 = 8
	displayX1 = displayX0 + cardCols*8
	displayY1 = displayY0 + cardRows*8
)

type card struct {
	fg, bg  uint8
	rows    [8]uint8
	squares bool
	sq      [4]uint8 // colored squares: top-left, top-right, bottom-left, bottom-right
	sqfg    [4]bool
}

// raster holds per-frame scratch buffers.
type raster struct {
	cards [cardCols * cardRows]card

	bg     [rasterW * rasterH]uint8
	fg     hwio.Bitset // background foreground pixels
	border hwio.Bitset

	mobs     [numMOBs]hwio.Bitset
	mobColor [rasterW * rasterH]uint8
	mobOwner [rasterW * rasterH]int8
}

func (s *STIC) cardRow(gram bool, card, row uint16) uint8 {
	if gram {
		return uint8(s.mem.Peek16(hwdefs.GRAMBase + (card&0x3F)*8 + row))
	}
	return uint8(s.mem.Peek16(hwdefs.GROMBase + (card&0xFF)*8 + row))
}

// RenderFrame rasterizes the current register state and background table
// into the framebuffer. It returns the collisions detected during this frame,
// which are also accumulated into the MOB collision registers.
func (s *STIC) RenderFrame() [numMOBs]uint16 {
	var coll [numMOBs]uint16

	enabled := s.displayEnable
	s.displayEnable = false
	if !enabled {
		for i := range s.frame {
			s.frame[i] = Palette[0]
		}
		return coll
	}

	regs := s.regs
	s.decodeCards(&regs)
	s.drawBackground(&regs)
	s.drawMOBs(&regs)

	for i := range numMOBs {
		if regs[regMOBX+i]&0x100 == 0 || s.mobs[i].Empty() {
			continue
		}
		for j := i + 1; j < numMOBs; j++ {
			if regs[regMOBX+j]&0x100 == 0 {
				continue
			}
			if s.mobs[i].Intersects(&s.mobs[j]) {
				coll[i] |= 1 << j
				coll[j] |= 1 << i
			}
		}
		if s.mobs[i].Intersects(&s.fg) {
			coll[i] |= 0x100
		}
		if s.mobs[i].Intersects(&s.border) {
			coll[i] |= 0x200
		}
	}
	for i := range numMOBs {
		s.regs[regMOBC+i] |= coll[i]
	}

	s.compose()
	return coll
}

func (s *STIC) decodeCards(regs *[0x40]uint16) {
	csidx := 0
	for i := range s.cards {
		w := s.mem.Peek16(hwdefs.BackTab + uint16(i))
		c := &s.cards[i]
		*c = card{}

		gram := w&0x0800 != 0
		if !s.colorStackMode {
			c.fg = uint8(w & 7)
			c.bg = uint8((w>>9)&3 | (w>>10)&0xC)
			num := (w >> 3) & 0x3F
			for r := range uint16(8) {
				c.rows[r] = s.cardRow(gram, num, r)
			}
			continue
		}

		if w&0x1800 == 0x1000 {
			c.squares = true
			stack := uint8(regs[regColorStack+csidx] & 0xF)
			colors := [4]uint16{w & 7, (w >> 3) & 7, (w >> 6) & 7, (w>>9)&3 | (w>>11)&4}
			for q, col := range colors {
				if col == 7 {
					c.sq[q] = stack
				} else {
					c.sq[q] = uint8(col)
					c.sqfg[q] = true
				}
			}
			continue
		}

		if w&0x2000 != 0 {
			csidx = (csidx + 1) & 3
		}
		c.bg = uint8(regs[regColorStack+csidx] & 0xF)
		c.fg = uint8(w&7 | (w>>9)&8)
		num := (w >> 3) & 0xFF
		for r := range uint16(8) {
			c.rows[r] = s.cardRow(gram, num, r)
		}
	}
}

// pixel returns the colour of the card pixel at (x, y), and whether it is a
// foreground pixel.
func (c *card) pixel(x, y int) (uint8, bool) {
	if c.squares {
		q := x/4 + 2*(y/4)
		return c.sq[q], c.sqfg[q]
	}
	if c.rows[y]&(0x80>>x) != 0 {
		return c.fg, true
	}
	return c.bg, false
}

func (s *STIC) drawBackground(regs *[0x40]uint16) {
	borderColor := uint8(regs[regBorder] & 0xF)
	hdelay := int(regs[regHDelay] & 7)
	vdelay := int(regs[regVDelay] & 7)
	ext := regs[regBorderExt]

	left, top := displayX0, displayY0
	if ext&1 != 0 {
		left += 8
	}
	if ext&2 != 0 {
		top += 8
	}

	s.fg.Reset()
	s.border.Reset()

	for y2 := range rasterH {
		y := y2 / 2
		for x := range rasterW {
			idx := y2*rasterW + x

			if x < left || x >= displayX1 || y < top || y >= displayY1 {
				s.bg[idx] = borderColor
				s.border.Set(uint(idx))
				continue
			}

			// Delayed pixels at the top-left of the display show the border
			// colour but do not count as border.
			cx := x - displayX0 - hdelay
			cy := y - displayY0 - vdelay
			if cx < 0 || cy < 0 {
				s.bg[idx] = borderColor
				continue
			}

			c := &s.cards[(cy/8)*cardCols+cx/8]
			col, fg := c.pixel(cx%8, cy%8)
			s.bg[idx] = col
			if fg {
				s.fg.Set(uint(idx))
			}
		}
	}
}

func (s *STIC) drawMOBs(regs *[0x40]uint16) {
	hdelay := int(regs[regHDelay] & 7)
	vdelay := int(regs[regVDelay] & 7)

	for i := range s.mobOwner {
		s.mobOwner[i] = -1
	}

	// Draw from the last MOB to the first, so that lower numbered MOBs have
	// priority.
	for i := numMOBs - 1; i >= 0; i-- {
		s.mobs[i].Reset()

		xr := regs[regMOBX+i]
		yr := regs[regMOBY+i]
		ar := regs[regMOBA+i]

		x := int(xr & 0xFF)
		visible := xr&0x200 != 0
		interacts := xr&0x100 != 0
		if x == 0 || (!visible && !interacts) {
			continue
		}

		xscale := 1
		if xr&0x400 != 0 {
			xscale = 2
		}
		rows := 8
		if yr&0x80 != 0 {
			rows = 16
		}
		yscale := 1 << ((yr >> 8) & 3)
		xflip := yr&0x400 != 0
		yflip := yr&0x800 != 0
		ytop := 2 * (int(yr&0x7F) + vdelay)
		xleft := x + hdelay

		gram := ar&0x800 != 0
		num := (ar >> 3) & 0xFF
		if rows == 16 {
			num &^= 1
		}
		color := uint8(ar&7 | (ar>>9)&8)

		for row := range rows {
			src := row
			if yflip {
				src = rows - 1 - row
			}
			data := s.cardRow(gram, num+uint16(src/8), uint16(src%8))
			for col := range 8 {
				bit := col
				if xflip {
					bit = 7 - col
				}
				if data&(0x80>>bit) == 0 {
					continue
				}
				for sy := range yscale {
					py := ytop + row*yscale + sy
					if py >= rasterH {
						break
					}
					for sx := range xscale {
						px := xleft + col*xscale + sx
						if px >= rasterW {
							break
						}
						idx := py*rasterW + px
						s.mobs[i].Set(uint(idx))
						if visible {
							s.mobOwner[idx] = int8(i)
							s.mobColor[idx] = color
						}
					}
				}
			}
		}
	}
}

func (s *STIC) compose() {
	const width = hwdefs.ScreenWidth

	for y2 := range rasterH {
		for x := range rasterW {
			idx := y2*rasterW + x
			col := s.bg[idx]
			if owner := s.mobOwner[idx]; owner >= 0 {
				behind := s.regs[regMOBA+int(owner)]&0x2000 != 0
				if !behind || !s.fg.Test(uint(idx)) {
					col = s.mobColor[idx]
				}
			}
			rgb := Palette[col]
			s.frame[y2*width+2*x] = rgb
			s.frame[y2*width+2*x+1] = rgb
		}
	}
}
