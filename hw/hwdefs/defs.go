package hwdefs

// Console timing, NTSC.
const (
	CPUClock = 894886 // Hz, colorburst / 4

	// FrameCycles is the CPU cycle budget of one video frame (59.92 Hz).
	FrameCycles = 14934

	// VBlankCycles is the duration of the vertical blanking window, at the
	// start of each frame, during which the STIC interrupt line is raised.
	VBlankCycles = 2900

	// The PSG produces one sample every PSGDivider CPU cycles.
	PSGDivider = 4
	PSGRate    = float64(CPUClock) / PSGDivider

	VoiceRate = 10000 // Hz

	FrameRate = float64(CPUClock) / FrameCycles
)

// Framebuffer geometry.
const (
	ScreenWidth  = 352
	ScreenHeight = 224
)

// Fixed addresses.
const (
	ResetVector     = uint16(0x1000)
	InterruptVector = uint16(0x1004)

	STICBase  = uint16(0x0000)
	VoiceBase = uint16(0x0080)
	PSGBase   = uint16(0x01F0)
	BackTab   = uint16(0x0200)
	ExecBase  = uint16(0x1000)
	GROMBase  = uint16(0x3000)
	GRAMBase  = uint16(0x3800)
)

// Boot images sizes, in words.
const (
	ExecSize = 0x1000
	GROMSize = 0x0800
	GRAMSize = 0x0200
)
