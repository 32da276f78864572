// Package cpu implements the ARM7TDMI stepping unit: an adaptation of the
// instruction set grounded in the GBA reference examples, exposed to the
// scheduler through a narrow Step/IRQ/breakpoint interface.
package cpu

// ARM7TDMI operating modes, as encoded in CPSR bits 0-4.
const (
	ModeUSR uint8 = 0b10000
	ModeFIQ uint8 = 0b10001
	ModeIRQ uint8 = 0b10010
	ModeSVC uint8 = 0b10011
	ModeABT uint8 = 0b10111
	ModeUND uint8 = 0b11011
	ModeSYS uint8 = 0b11111
)

// CPSR flag bit positions.
const (
	flagT = 5 // Thumb state
	flagF = 6 // FIQ disable
	flagI = 7 // IRQ disable
	flagV = 28
	flagC = 29
	flagZ = 30
	flagN = 31
)

// Registers holds the ARM7TDMI register file, including the banked R13-R14
// copies each privileged mode carries (plus FIQ's R8-R12) and the saved program status
// registers exceptions write to.
type Registers struct {
	r  [13]uint32 // R0-R12, shared by every mode except FIQ's R8-R12
	pc uint32

	spUsr, lrUsr uint32
	spSvc, lrSvc uint32
	spAbt, lrAbt uint32
	spUnd, lrUnd uint32
	spIrq, lrIrq uint32

	r8Fiq, r9Fiq, r10Fiq, r11Fiq, r12Fiq uint32
	spFiq, lrFiq                         uint32

	cpsr uint32

	spsrSvc, spsrAbt, spsrUnd, spsrIrq, spsrFiq uint32
}

// NewRegisters returns a register file reset to Supervisor mode, ARM state,
// IRQ and FIQ disabled - the ARM7TDMI's post-reset configuration.
func NewRegisters() *Registers {
	r := &Registers{}
	r.cpsr = uint32(ModeSVC) | (1 << flagF) | (1 << flagI)
	return r
}

func (r *Registers) Mode() uint8 { return uint8(r.cpsr & 0x1F) }

func (r *Registers) SetMode(mode uint8) {
	r.cpsr = (r.cpsr &^ 0x1F) | uint32(mode)
}

func (r *Registers) Thumb() bool    { return r.cpsr&(1<<flagT) != 0 }
func (r *Registers) SetThumb(v bool) { r.setFlagBit(flagT, v) }

func (r *Registers) IRQDisabled() bool     { return r.cpsr&(1<<flagI) != 0 }
func (r *Registers) SetIRQDisabled(v bool) { r.setFlagBit(flagI, v) }
func (r *Registers) SetFIQDisabled(v bool) { r.setFlagBit(flagF, v) }

func (r *Registers) setFlagBit(bit uint, v bool) {
	if v {
		r.cpsr |= 1 << bit
	} else {
		r.cpsr &^= 1 << bit
	}
}

func (r *Registers) FlagN() bool { return r.cpsr&(1<<flagN) != 0 }
func (r *Registers) FlagZ() bool { return r.cpsr&(1<<flagZ) != 0 }
func (r *Registers) FlagC() bool { return r.cpsr&(1<<flagC) != 0 }
func (r *Registers) FlagV() bool { return r.cpsr&(1<<flagV) != 0 }

func (r *Registers) SetFlagN(v bool) { r.setFlagBit(flagN, v) }
func (r *Registers) SetFlagZ(v bool) { r.setFlagBit(flagZ, v) }
func (r *Registers) SetFlagC(v bool) { r.setFlagBit(flagC, v) }
func (r *Registers) SetFlagV(v bool) { r.setFlagBit(flagV, v) }

func (r *Registers) CPSR() uint32     { return r.cpsr }
func (r *Registers) SetCPSR(v uint32) { r.cpsr = v }

func (r *Registers) PC() uint32     { return r.pc }
func (r *Registers) SetPC(v uint32) { r.pc = v }

// SPSR returns the saved program status register banked for the current
// mode; User/System mode has no SPSR and returns the live CPSR.
func (r *Registers) SPSR() uint32 {
	switch r.Mode() {
	case ModeSVC:
		return r.spsrSvc
	case ModeABT:
		return r.spsrAbt
	case ModeUND:
		return r.spsrUnd
	case ModeIRQ:
		return r.spsrIrq
	case ModeFIQ:
		return r.spsrFiq
	default:
		return r.cpsr
	}
}

func (r *Registers) SetSPSR(v uint32) {
	switch r.Mode() {
	case ModeSVC:
		r.spsrSvc = v
	case ModeABT:
		r.spsrAbt = v
	case ModeUND:
		r.spsrUnd = v
	case ModeIRQ:
		r.spsrIrq = v
	case ModeFIQ:
		r.spsrFiq = v
	}
}

// Get returns the value of general register n (0-15), resolving banking.
func (r *Registers) Get(n uint8) uint32 {
	if n == 15 {
		return r.pc
	}
	mode := r.Mode()
	if mode == ModeFIQ {
		switch n {
		case 8:
			return r.r8Fiq
		case 9:
			return r.r9Fiq
		case 10:
			return r.r10Fiq
		case 11:
			return r.r11Fiq
		case 12:
			return r.r12Fiq
		}
	}
	if n == 13 {
		return r.sp(mode)
	}
	if n == 14 {
		return r.lr(mode)
	}
	return r.r[n]
}

func (r *Registers) Set(n uint8, v uint32) {
	if n == 15 {
		r.pc = v
		return
	}
	mode := r.Mode()
	if mode == ModeFIQ {
		switch n {
		case 8:
			r.r8Fiq = v
			return
		case 9:
			r.r9Fiq = v
			return
		case 10:
			r.r10Fiq = v
			return
		case 11:
			r.r11Fiq = v
			return
		case 12:
			r.r12Fiq = v
			return
		}
	}
	if n == 13 {
		r.setSP(mode, v)
		return
	}
	if n == 14 {
		r.setLR(mode, v)
		return
	}
	r.r[n] = v
}

func (r *Registers) sp(mode uint8) uint32 {
	switch mode {
	case ModeSVC:
		return r.spSvc
	case ModeABT:
		return r.spAbt
	case ModeUND:
		return r.spUnd
	case ModeIRQ:
		return r.spIrq
	case ModeFIQ:
		return r.spFiq
	default:
		return r.spUsr
	}
}

func (r *Registers) setSP(mode uint8, v uint32) {
	switch mode {
	case ModeSVC:
		r.spSvc = v
	case ModeABT:
		r.spAbt = v
	case ModeUND:
		r.spUnd = v
	case ModeIRQ:
		r.spIrq = v
	case ModeFIQ:
		r.spFiq = v
	default:
		r.spUsr = v
	}
}

func (r *Registers) lr(mode uint8) uint32 {
	switch mode {
	case ModeSVC:
		return r.lrSvc
	case ModeABT:
		return r.lrAbt
	case ModeUND:
		return r.lrUnd
	case ModeIRQ:
		return r.lrIrq
	case ModeFIQ:
		return r.lrFiq
	default:
		return r.lrUsr
	}
}

func (r *Registers) setLR(mode uint8, v uint32) {
	switch mode {
	case ModeSVC:
		r.lrSvc = v
	case ModeABT:
		r.lrAbt = v
	case ModeUND:
		r.lrUnd = v
	case ModeIRQ:
		r.lrIrq = v
	case ModeFIQ:
		r.lrFiq = v
	default:
		r.lrUsr = v
	}
}
