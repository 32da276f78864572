package memory

// InterruptController aggregates pending IRQ sources behind the IE/IF
// registers and the IME master-enable gate.
type InterruptController struct {
	ie  uint16
	iff uint16
	ime bool
}

func newInterruptController() *InterruptController {
	return &InterruptController{}
}

// Request sets the given interrupt source's bit in IF. It is called by
// devices (GPU, Timers, DMA, Keypad) as they raise their own conditions.
func (ic *InterruptController) Request(irq uint16) {
	ic.iff |= irq
}

func (ic *InterruptController) ReadIE() uint16  { return ic.ie }
func (ic *InterruptController) WriteIE(v uint16) { ic.ie = v & 0x3FFF }

func (ic *InterruptController) ReadIF() uint16 { return ic.iff }

// WriteIF clears the bits written as 1 (write-1-to-clear acknowledgement).
func (ic *InterruptController) WriteIF(v uint16) {
	ic.iff &^= v
}

func (ic *InterruptController) ReadIME() uint16 {
	if ic.ime {
		return 1
	}
	return 0
}

func (ic *InterruptController) WriteIME(v uint16) {
	ic.ime = v&1 != 0
}

// Pending reports whether an enabled, unmasked interrupt is waiting and the
// CPU's halt state should clear; it ignores IME (see IRQLine).
func (ic *InterruptController) Pending() bool {
	return ic.ie&ic.iff != 0
}

// IRQLine reports whether the CPU should actually take the IRQ exception,
// i.e. Pending() gated by the IME master enable.
func (ic *InterruptController) IRQLine() bool {
	return ic.ime && ic.Pending()
}
