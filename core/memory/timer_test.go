package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anemu/goadvance/core/addr"
)

func TestTimerTick_MultipleOverflowsInOneStepAreAllReported(t *testing.T) {
	var requested []uint16
	timers := newTimers(func(irq uint16) { requested = append(requested, irq) })

	// Prescaler 1 (bits 0-1 = 0), IRQ enabled, started, reload near the top
	// so a single large Tick wraps the 16-bit counter more than once.
	timers.Write(addr.TM0CNT_L, 0xFFFE)
	timers.Write(addr.TM0CNT_H, 0x80|0x40)

	overflows := 0
	timers.OnOverflow = func(idx int) { overflows++ }

	timers.Tick(6) // 2 ticks to first overflow, then 2 more full 2-tick periods

	assert.Equal(t, 3, overflows, "a timer overflowing more than once within one Tick must report every overflow")
	assert.Len(t, requested, 3)
}

func TestTimerTick_CascadePropagatesEveryOverflow(t *testing.T) {
	timers := newTimers(func(uint16) {})

	// Timer 0: prescaler 1, reload 0xFFFE, so every 2 cycles it overflows once.
	timers.Write(addr.TM0CNT_L, 0xFFFE)
	timers.Write(addr.TM0CNT_H, 0x80)

	// Timer 1: cascaded off timer 0, reload 0xFFFF so it also overflows
	// every time its predecessor ticks it once.
	timers.Write(addr.TM1CNT_L, 0xFFFF)
	timers.Write(addr.TM1CNT_H, 0x80|0x04)

	cascadeOverflows := 0
	timers.OnOverflow = func(idx int) {
		if idx == 1 {
			cascadeOverflows++
		}
	}

	timers.Tick(6) // timer 0 overflows 3 times, each one clocks timer 1 once

	assert.Equal(t, 3, cascadeOverflows, "every predecessor overflow must clock the cascaded channel once")
}
