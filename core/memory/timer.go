package memory

import "github.com/anemu/goadvance/core/addr"

const timerCount = 4

// timer is a single cascadable 16-bit GBA timer channel.
type timer struct {
	counter uint16
	reload  uint16
	control uint16 // bits: 0-1 prescaler select, 2 cascade, 6 IRQ enable, 7 start

	prescalerAcc int
	running      bool
}

var prescalerCycles = [4]int{1, 64, 256, 1024}

func (t *timer) prescaler() int { return prescalerCycles[t.control&0x3] }
func (t *timer) cascade() bool  { return t.control&0x4 != 0 }
func (t *timer) irqEnabled() bool { return t.control&0x40 != 0 }
func (t *timer) enabled() bool  { return t.control&0x80 != 0 }

// Timers owns the four GBA timer channels and their cascade chain.
type Timers struct {
	ch         [timerCount]timer
	requestIRQ func(irq uint16)

	// OnOverflow, if set, is called whenever a channel wraps past 0xFFFF,
	// independent of its IRQ-enable bit. The direct sound mixer hooks this
	// to pop a FIFO sample whenever timer 0 or 1 overflows.
	OnOverflow func(timerIndex int)
}

func newTimers(requestIRQ func(irq uint16)) *Timers {
	return &Timers{requestIRQ: requestIRQ}
}

var timerIRQBit = [timerCount]uint16{
	uint16(addr.IRQTimer0), uint16(addr.IRQTimer1), uint16(addr.IRQTimer2), uint16(addr.IRQTimer3),
}

// Tick advances every enabled, non-cascaded timer by cycles and propagates
// overflow into any cascaded successor. A timer can wrap more than once
// within a single call (a large cycle step against a fast prescaler, or a
// cascaded channel whose predecessor itself overflowed repeatedly), so
// overflow is tracked as a count rather than a single edge, and every
// downstream notification fires once per overflow.
func (t *Timers) Tick(cycles int) {
	cascadeOverflows := 0
	for i := 0; i < timerCount; i++ {
		ch := &t.ch[i]
		if !ch.enabled() {
			cascadeOverflows = 0
			continue
		}

		var overflows int
		if ch.cascade() && i > 0 {
			overflows = t.step(ch, cascadeOverflows)
		} else {
			ch.prescalerAcc += cycles
			step := ch.prescaler()
			for ch.prescalerAcc >= step {
				ch.prescalerAcc -= step
				overflows += t.step(ch, 1)
			}
		}

		for n := 0; n < overflows; n++ {
			if ch.irqEnabled() {
				t.requestIRQ(timerIRQBit[i])
			}
			if t.OnOverflow != nil {
				t.OnOverflow(i)
			}
		}
		cascadeOverflows = overflows
	}
}

// step increments the channel's counter by n ticks, reloading on each wrap
// past 0xFFFF, and returns how many times it overflowed.
func (t *Timers) step(ch *timer, n int) (overflows int) {
	for i := 0; i < n; i++ {
		if ch.counter == 0xFFFF {
			ch.counter = ch.reload
			overflows++
		} else {
			ch.counter++
		}
	}
	return overflows
}

func (t *Timers) index(offset uint32) int {
	return int((offset - addr.TM0CNT_L) / 4)
}

func (t *Timers) Read(offset uint32) uint16 {
	idx := t.index(offset)
	ch := &t.ch[idx]
	reg := (offset - addr.TM0CNT_L) % 4
	if reg < 2 {
		return ch.counter
	}
	return ch.control
}

func (t *Timers) Write(offset uint32, value uint16) {
	idx := t.index(offset)
	ch := &t.ch[idx]
	reg := (offset - addr.TM0CNT_L) % 4
	if reg < 2 {
		ch.reload = value
		return
	}

	wasEnabled := ch.enabled()
	ch.control = value
	if !wasEnabled && ch.enabled() {
		ch.counter = ch.reload
		ch.prescalerAcc = 0
	}
}
