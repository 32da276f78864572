package memory

import "github.com/anemu/goadvance/core/addr"

const dmaChannelCount = 4

// DMA start-timing values, from bits 12-13 of DMACNT_H.
const (
	dmaTimingImmediate = 0
	dmaTimingVBlank    = 1
	dmaTimingHBlank    = 2
	dmaTimingSpecial   = 3
)

// dmaChannel holds one DMA channel's registers and live transfer state.
type dmaChannel struct {
	src, dst   uint32
	count      uint16
	control    uint16 // full DMACNT_H value

	curSrc, curDst uint32
	remaining      uint32
	active         bool
}

func (c *dmaChannel) enabled() bool     { return c.control&(1<<15) != 0 }
func (c *dmaChannel) repeat() bool      { return c.control&(1<<9) != 0 }
func (c *dmaChannel) wordSized() bool   { return c.control&(1<<10) != 0 }
func (c *dmaChannel) irqEnabled() bool  { return c.control&(1<<14) != 0 }
func (c *dmaChannel) timing() uint16    { return (c.control >> 12) & 0x3 }
func (c *dmaChannel) srcControl() uint16 { return (c.control >> 7) & 0x3 }
func (c *dmaChannel) dstControl() uint16 { return (c.control >> 5) & 0x3 }

// DMAController owns the four GBA DMA channels and interleaves their
// transfers with the CPU one unit per scheduler Step, per the bus's
// DMA-before-CPU ordering invariant.
type DMAController struct {
	ch  [dmaChannelCount]dmaChannel
	bus *Bus
}

var dmaIRQBit = [dmaChannelCount]uint16{
	uint16(addr.IRQDMA0), uint16(addr.IRQDMA1), uint16(addr.IRQDMA2), uint16(addr.IRQDMA3),
}

func newDMAController(bus *Bus) *DMAController {
	return &DMAController{bus: bus}
}

func (d *DMAController) index(offset uint32) int {
	return int((offset - addr.DMA0SAD) / 12)
}

func (d *DMAController) Read(offset uint32) uint16 {
	idx := d.index(offset)
	ch := &d.ch[idx]
	reg := (offset - addr.DMA0SAD) % 12
	switch {
	case reg == 10 || reg == 11:
		return ch.control
	default:
		// SAD/DAD/CNT_L are effectively write-only on real hardware.
		return 0
	}
}

func (d *DMAController) Write(offset uint32, value uint16) {
	idx := d.index(offset)
	ch := &d.ch[idx]
	reg := (offset - addr.DMA0SAD) % 12
	switch {
	case reg == 0:
		ch.src = (ch.src &^ 0xFFFF) | uint32(value)
	case reg == 2:
		ch.src = (ch.src & 0xFFFF) | uint32(value)<<16
	case reg == 4:
		ch.dst = (ch.dst &^ 0xFFFF) | uint32(value)
	case reg == 6:
		ch.dst = (ch.dst & 0xFFFF) | uint32(value)<<16
	case reg == 8:
		ch.count = value
	case reg == 10:
		wasEnabled := ch.enabled()
		ch.control = value
		if !wasEnabled && ch.enabled() {
			d.arm(idx)
		}
	}
}

// arm latches a channel's current source/destination and count at the
// moment it transitions from disabled to enabled, and starts it immediately
// if its timing is Immediate.
func (d *DMAController) arm(idx int) {
	ch := &d.ch[idx]
	ch.curSrc = ch.src
	ch.curDst = ch.dst
	ch.remaining = uint32(ch.count)
	if ch.remaining == 0 {
		if idx == 3 {
			ch.remaining = 0x10000
		} else {
			ch.remaining = 0x4000
		}
	}
	if ch.timing() == dmaTimingImmediate {
		ch.active = true
	}
}

// NotifyVBlank / NotifyHBlank / NotifyFIFO arm channels whose start timing
// matches the given video/audio event, called by the GPU and sound mixer.
func (d *DMAController) NotifyVBlank() { d.notify(dmaTimingVBlank) }
func (d *DMAController) NotifyHBlank() { d.notify(dmaTimingHBlank) }

func (d *DMAController) notify(timing uint16) {
	for i := range d.ch {
		ch := &d.ch[i]
		if ch.enabled() && ch.timing() == timing {
			ch.active = true
		}
	}
}

// NotifyFIFO arms a sound-FIFO DMA channel (1 or 2) in special timing mode
// when the corresponding FIFO has drained below its watermark.
func (d *DMAController) NotifyFIFO(channel int) {
	if channel != 1 && channel != 2 {
		return
	}
	ch := &d.ch[channel]
	if ch.enabled() && ch.timing() == dmaTimingSpecial {
		ch.active = true
		ch.remaining = 4
	}
}

// HasWork reports whether any channel has an in-progress transfer, which
// per the scheduler's ordering invariant must run before the CPU steps.
func (d *DMAController) HasWork() bool {
	for i := range d.ch {
		if d.ch[i].active {
			return true
		}
	}
	return false
}

// Step performs one transfer unit (16- or 32-bit, per control) on the
// highest-priority active channel (0 highest) and returns the cycles it
// cost. No per-channel restriction is placed on source or destination
// addresses.
func (d *DMAController) Step() int {
	for i := range d.ch {
		ch := &d.ch[i]
		if !ch.active {
			continue
		}

		if ch.wordSized() {
			d.bus.Write32(ch.curDst, d.bus.Read32(ch.curSrc))
		} else {
			d.bus.Write16(ch.curDst, d.bus.Read16(ch.curSrc))
		}

		step := int32(2)
		if ch.wordSized() {
			step = 4
		}
		ch.curSrc = advanceDMAAddr(ch.curSrc, ch.srcControl(), step)
		ch.curDst = advanceDMAAddr(ch.curDst, ch.dstControl(), step)

		ch.remaining--
		if ch.remaining == 0 {
			ch.active = false
			if ch.irqEnabled() {
				d.bus.Interrupts.Request(dmaIRQBit[i])
			}
			if ch.repeat() && ch.timing() != dmaTimingImmediate {
				ch.remaining = uint32(ch.count)
				if ch.dstControl() == 3 {
					ch.curDst = ch.dst
				}
			} else {
				ch.control &^= 1 << 15
			}
		}
		if ch.wordSized() {
			return 6
		}
		return 4
	}
	return 0
}

// advanceDMAAddr applies a DMA address-control increment/decrement/fixed
// mode (2 == fixed, 3 == increment/reload handled by caller).
func advanceDMAAddr(addr uint32, ctrl uint16, step int32) uint32 {
	switch ctrl {
	case 1:
		return uint32(int64(addr) - int64(step))
	case 2:
		return addr
	default:
		return uint32(int64(addr) + int64(step))
	}
}
