// Package memory implements the GBA bus: address decoding, the backing
// stores for BIOS/EWRAM/IWRAM/palette/VRAM/OAM, the I/O register file, and
// the devices (timers, DMA, interrupts, keypad) that live behind it.
package memory

import (
	"fmt"
	"log/slog"
)

// region identifies which backing store an address decodes to.
type region uint8

const (
	regionBIOS region = iota
	regionEWRAM
	regionIWRAM
	regionIO
	regionPalette
	regionVRAM
	regionOAM
	regionCart
	regionSRAM
	regionUnmapped
)

// Region sizes and masks, per the GBA memory map.
const (
	biosSize   = 16 * 1024
	ewramSize  = 256 * 1024
	iwramSize  = 32 * 1024
	paletteSize = 1024
	vramSize   = 96 * 1024
	oamSize    = 1024

	biosMask    = biosSize - 1
	ewramMask   = ewramSize - 1
	iwramMask   = iwramSize - 1
	paletteMask = paletteSize - 1
	oamMask     = oamSize - 1
)

// Access describes a single bus transaction, used to compute cycle cost.
type Access struct {
	Width      uint8 // 8, 16 or 32
	Sequential bool
}

// Bus is the GBA address decoder and owns every memory-mapped backing store
// except the cartridge ROM/save (owned by Cartridge, reachable through it).
type Bus struct {
	bios    []byte
	ewram   []byte
	iwram   []byte
	palette []byte
	vram    []byte
	oam     []byte

	cart *Cartridge
	io   *IORegisters

	Timers      *Timers
	DMA         *DMAController
	Interrupts  *InterruptController
	Keypad      *Keypad
	Sound       SoundDevice

	// OnHalt is invoked on every write to HALTCNT; the scheduler wires
	// this to the CPU's Halt method so the bus package never needs to know
	// about the CPU's state directly.
	OnHalt func()

	// InHDraw reports whether the GPU is mid-scanline; the scheduler wires
	// this to the GPU's InHDraw so GetCycles can charge the extra cycle
	// of Palette/VRAM/OAM contention the renderer incurs while drawing.
	InHDraw func() bool

	waitcnt uint16

	// lastOpcode is the value returned for reads to unmapped regions. It is
	// never updated, so such reads return 0; the GBA's prefetch-driven open
	// bus value is not modelled.
	lastOpcode uint32
}

// New creates a Bus with a BIOS image loaded and no cartridge inserted.
func New(bios []byte) *Bus {
	b := &Bus{
		bios:    make([]byte, biosSize),
		ewram:   make([]byte, ewramSize),
		iwram:   make([]byte, iwramSize),
		palette: make([]byte, paletteSize),
		vram:    make([]byte, vramSize),
		oam:     make([]byte, oamSize),
		cart:    NewCartridge(nil),
	}
	copy(b.bios, bios)

	b.Timers = newTimers(b.requestInterruptFromDevice)
	b.DMA = newDMAController(b)
	b.Interrupts = newInterruptController()
	b.Keypad = newKeypad()
	b.io = newIORegisters(b)

	return b
}

// NewWithCartridge attaches a parsed cartridge image to the bus.
func NewWithCartridge(bios []byte, cart *Cartridge) *Bus {
	b := New(bios)
	b.cart = cart
	return b
}

func (b *Bus) requestInterruptFromDevice(irq uint16) {
	b.Interrupts.Request(irq)
}

// SoundDevice is the narrow interface the sound controller's I/O registers
// are dispatched to, satisfied by *audio.APU. Left nil, sound registers fall
// back to the flat raw-byte backing store (no synthesis, but still readable
// and writable), which keeps this package independently testable.
type SoundDevice interface {
	ReadRegister(offset uint32) uint16
	WriteRegister(offset uint32, value uint16)
	PushFIFOSample(channel int, v int8)
}

// AttachSound wires the sound controller into the bus's I/O dispatch.
func (b *Bus) AttachSound(dev SoundDevice) { b.Sound = dev }

// Palette, VRAM and OAM accessors used by the GPU package, which lives
// outside this package but needs direct slice access for scanline rendering.
func (b *Bus) Palette() []byte { return b.palette }
func (b *Bus) VRAM() []byte    { return b.vram }
func (b *Bus) OAM() []byte     { return b.oam }
func (b *Bus) Cartridge() *Cartridge { return b.cart }

// EWRAM and IWRAM expose the two general-purpose work RAM banks directly,
// used by the observability sidecar to mirror live game state out-of-process.
func (b *Bus) EWRAM() []byte { return b.ewram }
func (b *Bus) IWRAM() []byte { return b.iwram }

// IORaw16/WriteIORaw16 expose the flat I/O register backing store to the
// video package, which reads/writes display registers directly rather than
// going through the address decoder.
func (b *Bus) IORaw16(offset uint32) uint16         { return b.io.ReadRaw16(offset) }
func (b *Bus) WriteIORaw16(offset uint32, v uint16) { b.io.WriteRaw16(offset, v) }

// RequestInterrupt and NotifyVBlankDMA/NotifyHBlankDMA let the GPU raise
// interrupts and arm VBlank/HBlank-timed DMA channels without reaching past
// the bus into its device fields.
func (b *Bus) RequestInterrupt(irq uint16) { b.Interrupts.Request(irq) }
func (b *Bus) NotifyVBlankDMA()            { b.DMA.NotifyVBlank() }
func (b *Bus) NotifyHBlankDMA()            { b.DMA.NotifyHBlank() }

func (b *Bus) decode(address uint32) region {
	switch address >> 24 {
	case 0x00:
		if address < biosSize {
			return regionBIOS
		}
		return regionUnmapped
	case 0x02:
		return regionEWRAM
	case 0x03:
		return regionIWRAM
	case 0x04:
		return regionIO
	case 0x05:
		return regionPalette
	case 0x06:
		return regionVRAM
	case 0x07:
		return regionOAM
	case 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D:
		return regionCart
	case 0x0E, 0x0F:
		return regionSRAM
	default:
		return regionUnmapped
	}
}

// GetCycles returns the number of CPU cycles a single access of the given
// width/sequentiality costs at address, accounting for WAITCNT-configured
// GamePak wait states.
func (b *Bus) GetCycles(address uint32, access Access) int {
	switch b.decode(address) {
	case regionBIOS, regionIWRAM, regionIO:
		return 1
	case regionPalette, regionVRAM, regionOAM:
		cycles := 1
		if access.Width == 32 {
			cycles = 2
		}
		return cycles + b.hdrawContention()
	case regionEWRAM:
		if access.Width == 32 {
			return 6
		}
		return 3
	case regionCart, regionSRAM:
		return b.cartCycles(address, access)
	default:
		return 1
	}
}

// hdrawContention returns the extra cycle charged for Palette/VRAM/OAM
// accesses while the GPU is mid-scanline, contending with the renderer for
// the same memory port.
func (b *Bus) hdrawContention() int {
	if b.InHDraw != nil && b.InHDraw() {
		return 1
	}
	return 0
}

// cartCycles table: first-access (N) and subsequent (S) cycles per wait
// state setting, matching the WAITCNT encoding for WS0/WS1/WS2.
var waitStateFirst = [4]int{4, 3, 2, 8}
var waitStateSecondWS0 = [2]int{2, 1}
var waitStateSecondWS1 = [2]int{4, 1}
var waitStateSecondWS2 = [2]int{8, 1}

func (b *Bus) cartCycles(address uint32, access Access) int {
	region := (address >> 24) & 0x0E
	var nBits, sBit uint16
	var secondTable [2]int
	switch region {
	case 0x08, 0x09:
		nBits = (b.waitcnt >> 2) & 0x3
		sBit = (b.waitcnt >> 4) & 0x1
		secondTable = waitStateSecondWS0
	case 0x0A, 0x0B:
		nBits = (b.waitcnt >> 5) & 0x3
		sBit = (b.waitcnt >> 7) & 0x1
		secondTable = waitStateSecondWS1
	default:
		nBits = (b.waitcnt >> 8) & 0x3
		sBit = (b.waitcnt >> 10) & 0x1
		secondTable = waitStateSecondWS2
	}

	cycles := waitStateFirst[nBits]
	if access.Sequential {
		cycles = secondTable[sBit]
	}
	if access.Width == 32 {
		// A 32-bit cartridge access is two sequential 16-bit accesses.
		cycles += secondTable[sBit]
	}
	return cycles
}

func (b *Bus) Read8(address uint32) uint8 {
	switch b.decode(address) {
	case regionBIOS:
		return b.bios[address&biosMask]
	case regionEWRAM:
		return b.ewram[address&ewramMask]
	case regionIWRAM:
		return b.iwram[address&iwramMask]
	case regionIO:
		return b.io.Read8(address & 0x00FFFFFF)
	case regionPalette:
		return b.palette[address&paletteMask]
	case regionVRAM:
		return b.vram[vramOffset(address)]
	case regionOAM:
		return b.oam[address&oamMask]
	case regionCart:
		return b.cart.ReadROM8(address)
	case regionSRAM:
		return b.cart.ReadSave8(address)
	default:
		slog.Debug("read from unmapped address", "addr", fmt.Sprintf("0x%08X", address))
		return uint8(b.lastOpcode)
	}
}

func (b *Bus) Read16(address uint32) uint16 {
	address &^= 1
	switch b.decode(address) {
	case regionBIOS:
		return le16(b.bios, address&biosMask)
	case regionEWRAM:
		return le16(b.ewram, address&ewramMask)
	case regionIWRAM:
		return le16(b.iwram, address&iwramMask)
	case regionIO:
		return b.io.Read16(address & 0x00FFFFFF)
	case regionPalette:
		return le16(b.palette, address&paletteMask)
	case regionVRAM:
		return le16(b.vram, vramOffset(address))
	case regionOAM:
		return le16(b.oam, address&oamMask)
	case regionCart:
		return uint16(b.cart.ReadROM8(address)) | uint16(b.cart.ReadROM8(address+1))<<8
	case regionSRAM:
		v := b.cart.ReadSave8(address)
		return uint16(v) | uint16(v)<<8
	default:
		return uint16(b.lastOpcode)
	}
}

func (b *Bus) Read32(address uint32) uint32 {
	address &^= 3
	switch b.decode(address) {
	case regionBIOS:
		return le32(b.bios, address&biosMask)
	case regionEWRAM:
		return le32(b.ewram, address&ewramMask)
	case regionIWRAM:
		return le32(b.iwram, address&iwramMask)
	case regionIO:
		return uint32(b.io.Read16(address&0x00FFFFFF)) | uint32(b.io.Read16((address&0x00FFFFFF)+2))<<16
	case regionPalette:
		return le32(b.palette, address&paletteMask)
	case regionVRAM:
		return le32(b.vram, vramOffset(address))
	case regionOAM:
		return le32(b.oam, address&oamMask)
	case regionCart:
		return uint32(b.Read16(address)) | uint32(b.Read16(address+2))<<16
	default:
		return b.lastOpcode
	}
}

func (b *Bus) Write8(address uint32, value uint8) {
	switch b.decode(address) {
	case regionBIOS:
		// BIOS is read-only.
	case regionEWRAM:
		b.ewram[address&ewramMask] = value
	case regionIWRAM:
		b.iwram[address&iwramMask] = value
	case regionIO:
		b.io.Write8(address&0x00FFFFFF, value)
	case regionPalette:
		we16(b.palette, address&paletteMask&^1, uint16(value)|uint16(value)<<8)
	case regionVRAM:
		we16(b.vram, vramOffset(address)&^1, uint16(value)|uint16(value)<<8)
	case regionOAM:
		// Byte writes to OAM are dropped on real hardware.
	case regionSRAM:
		b.cart.WriteSave8(address, value)
	default:
		slog.Debug("write to unmapped address", "addr", fmt.Sprintf("0x%08X", address))
	}
}

func (b *Bus) Write16(address uint32, value uint16) {
	address &^= 1
	switch b.decode(address) {
	case regionEWRAM:
		we16(b.ewram, address&ewramMask, value)
	case regionIWRAM:
		we16(b.iwram, address&iwramMask, value)
	case regionIO:
		b.io.Write16(address&0x00FFFFFF, value)
	case regionPalette:
		we16(b.palette, address&paletteMask, value)
	case regionVRAM:
		we16(b.vram, vramOffset(address), value)
	case regionOAM:
		we16(b.oam, address&oamMask, value)
	}
}

func (b *Bus) Write32(address uint32, value uint32) {
	address &^= 3
	switch b.decode(address) {
	case regionEWRAM:
		we32(b.ewram, address&ewramMask, value)
	case regionIWRAM:
		we32(b.iwram, address&iwramMask, value)
	case regionIO:
		b.io.Write16(address&0x00FFFFFF, uint16(value))
		b.io.Write16((address&0x00FFFFFF)+2, uint16(value>>16))
	case regionPalette:
		we32(b.palette, address&paletteMask, value)
	case regionVRAM:
		we32(b.vram, vramOffset(address), value)
	case regionOAM:
		we32(b.oam, address&oamMask, value)
	}
}

// vramOffset folds the 96 KiB VRAM region's mirroring: the final 32 KiB
// window (0x18000-0x1FFFF within the region) mirrors the preceding 32 KiB.
func vramOffset(address uint32) uint32 {
	offset := address & 0x1FFFF
	if offset >= vramSize {
		offset -= 0x8000
	}
	return offset
}

func le16(b []byte, offset uint32) uint16 {
	return uint16(b[offset]) | uint16(b[offset+1])<<8
}

func le32(b []byte, offset uint32) uint32 {
	return uint32(b[offset]) | uint32(b[offset+1])<<8 | uint32(b[offset+2])<<16 | uint32(b[offset+3])<<24
}

func we16(b []byte, offset uint32, value uint16) {
	b[offset] = uint8(value)
	b[offset+1] = uint8(value >> 8)
}

func we32(b []byte, offset uint32, value uint32) {
	b[offset] = uint8(value)
	b[offset+1] = uint8(value >> 8)
	b[offset+2] = uint8(value >> 16)
	b[offset+3] = uint8(value >> 24)
}
