package memory

import "github.com/anemu/goadvance/core/addr"

// Button identifies one of the ten GBA keypad inputs.
type Button uint8

const (
	ButtonA Button = iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonRight
	ButtonLeft
	ButtonUp
	ButtonDown
	ButtonR
	ButtonL
)

// Keypad mirrors KEYINPUT (active-low button state) and KEYCNT (IRQ
// condition select), grounded on the DMG joypad's active-low P1 convention.
type Keypad struct {
	state   uint16 // active-low, bit per Button
	control uint16
}

func newKeypad() *Keypad {
	return &Keypad{state: 0x03FF}
}

func (k *Keypad) Read() uint16        { return k.state }
func (k *Keypad) ReadControl() uint16 { return k.control }
func (k *Keypad) WriteControl(v uint16) { k.control = v }

func (k *Keypad) Press(b Button) {
	k.state &^= 1 << uint8(b)
}

func (k *Keypad) Release(b Button) {
	k.state |= 1 << uint8(b)
}

// IRQCondition reports whether the current button state satisfies the
// KEYCNT-configured IRQ trigger (bit 14: IRQ enable; bit 15: 0=any selected
// key, 1=all selected keys) and, if so, which interrupt bit to raise.
func (k *Keypad) IRQCondition() (uint16, bool) {
	if k.control&(1<<14) == 0 {
		return 0, false
	}
	selected := k.control & 0x3FF
	pressedMask := (^k.state) & 0x3FF
	all := k.control&(1<<14) != 0 && (k.control>>15)&1 == 1
	if all {
		if selected != 0 && pressedMask&selected == selected {
			return uint16(addr.IRQKeypad), true
		}
		return 0, false
	}
	if pressedMask&selected != 0 {
		return uint16(addr.IRQKeypad), true
	}
	return 0, false
}
