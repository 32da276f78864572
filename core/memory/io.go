package memory

import "github.com/anemu/goadvance/core/addr"

// IORegisters is the address-dispatched facade over the I/O register window.
// Display registers (and sound registers while no SoundDevice is attached)
// are backed by a flat byte array; registers with live device state (timers,
// DMA, interrupts, keypad, WAITCNT, and sound once attached) are dispatched
// to their owning device.
type IORegisters struct {
	bus *Bus
	raw [addr.IOSize]byte
}

func newIORegisters(bus *Bus) *IORegisters {
	io := &IORegisters{bus: bus}
	// KEYINPUT reads high (no keys pressed) at reset.
	we16(io.raw[:], addr.KEYINPUT, 0x03FF)
	return io
}

func (io *IORegisters) Read8(offset uint32) uint8 {
	base := offset &^ 1
	shift := (offset & 1) * 8
	return uint8(io.Read16(base) >> shift)
}

func (io *IORegisters) Write8(offset uint32, value uint8) {
	if isFIFOReg(offset) {
		io.pushFIFOByte(offset, value)
		return
	}
	if offset == addr.HALTCNT {
		// HALTCNT is byte-addressed independently of its sibling POSTFLG; a
		// byte write here halts the CPU even though a byte write to POSTFLG
		// alone must not.
		we16(io.raw[:], addr.POSTFLG, (io.ReadRaw16(addr.POSTFLG)&0x00FF)|(uint16(value)<<8))
		if io.bus.OnHalt != nil {
			io.bus.OnHalt()
		}
		return
	}
	if offset == addr.POSTFLG {
		we16(io.raw[:], addr.POSTFLG, (io.ReadRaw16(addr.POSTFLG)&0xFF00)|uint16(value))
		return
	}
	base := offset &^ 1
	shift := (offset & 1) * 8
	current := io.Read16(base)
	mask := uint16(0xFF) << shift
	io.Write16(base, (current &^ mask) | (uint16(value) << shift))
}

func (io *IORegisters) Read16(offset uint32) uint16 {
	switch {
	case offset == addr.KEYINPUT:
		return io.bus.Keypad.Read()
	case offset == addr.KEYCNT:
		return io.bus.Keypad.ReadControl()
	case offset == addr.IE:
		return io.bus.Interrupts.ReadIE()
	case offset == addr.IF:
		return io.bus.Interrupts.ReadIF()
	case offset == addr.IME:
		return io.bus.Interrupts.ReadIME()
	case offset == addr.WAITCNT:
		return io.bus.waitcnt
	case isTimerReg(offset):
		return io.bus.Timers.Read(offset)
	case isDMAReg(offset):
		return io.bus.DMA.Read(offset)
	case isSoundReg(offset) && io.bus.Sound != nil:
		return io.bus.Sound.ReadRegister(offset)
	default:
		return le16(io.raw[:], offset)
	}
}

func (io *IORegisters) Write16(offset uint32, value uint16) {
	switch {
	case offset == addr.KEYCNT:
		io.bus.Keypad.WriteControl(value)
	case offset == addr.IE:
		io.bus.Interrupts.WriteIE(value)
	case offset == addr.IF:
		io.bus.Interrupts.WriteIF(value)
	case offset == addr.IME:
		io.bus.Interrupts.WriteIME(value)
	case offset == addr.WAITCNT:
		io.bus.waitcnt = value
	case offset == addr.POSTFLG:
		// POSTFLG (low byte) and HALTCNT (high byte) share this 16-bit
		// word; any write that touches HALTCNT halts the CPU until an
		// enabled interrupt becomes pending, regardless of IME.
		we16(io.raw[:], offset, value)
		if io.bus.OnHalt != nil {
			io.bus.OnHalt()
		}
	case isTimerReg(offset):
		io.bus.Timers.Write(offset, value)
	case isDMAReg(offset):
		io.bus.DMA.Write(offset, value)
	case isFIFOReg(offset):
		io.pushFIFOByte(offset, uint8(value))
		io.pushFIFOByte(offset+1, uint8(value>>8))
	case isSoundReg(offset) && io.bus.Sound != nil:
		io.bus.Sound.WriteRegister(offset, value)
	default:
		we16(io.raw[:], offset, value)
	}
}

// pushFIFOByte feeds a single direct-sound sample byte to channel A (FIFO_A)
// or B (FIFO_B) based on which half of the 4-byte FIFO port it targets.
func (io *IORegisters) pushFIFOByte(offset uint32, value uint8) {
	if io.bus.Sound == nil {
		return
	}
	channel := 0
	if offset >= addr.FIFO_B {
		channel = 1
	}
	io.bus.Sound.PushFIFOSample(channel, int8(value))
}

// ReadRaw16/WriteRaw16 expose the flat backing array to sibling packages
// (video, audio) that need to read display/sound control registers without
// routing back through the Bus's address decoder.
func (io *IORegisters) ReadRaw16(offset uint32) uint16  { return le16(io.raw[:], offset) }
func (io *IORegisters) WriteRaw16(offset uint32, v uint16) { we16(io.raw[:], offset, v) }
func (io *IORegisters) RawBytes() []byte                { return io.raw[:] }

func isTimerReg(offset uint32) bool {
	return offset >= addr.TM0CNT_L && offset <= addr.TM3CNT_H+1
}

func isDMAReg(offset uint32) bool {
	return offset >= addr.DMA0SAD && offset <= addr.DMA3CNT_H+1
}

func isSoundReg(offset uint32) bool {
	return offset >= addr.SOUND1CNT_L && offset <= addr.SOUNDBIAS+1
}

func isFIFOReg(offset uint32) bool {
	return (offset >= addr.FIFO_A && offset < addr.FIFO_A+4) ||
		(offset >= addr.FIFO_B && offset < addr.FIFO_B+4)
}

// IO exposes the register file to packages outside memory (video, audio)
// that need direct raw-register access for rendering/mixing.
func (b *Bus) IO() *IORegisters { return b.io }
