package hw

// Palette is the STIC 16-colour palette, as 0x00RRGGBB.
var Palette = [16]uint32{
	0x0C0005, // black
	0x002DFF, // blue
	0xFF3E00, // red
	0xC9D464, // tan
	0x00780F, // dark green
	0x00A720, // green
	0xFAEA27, // yellow
	0xFFFCFF, // white
	0xA7A8A8, // grey
	0x5ACBFF, // cyan
	0xFFA600, // orange
	0x3C5800, // brown
	0xFF3276, // pink
	0xBD95FF, // light blue
	0x6CCD30, // yellow green
	0xC81A7D, // purple
}
