package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCycles_VRAMChargesHDrawContention(t *testing.T) {
	bus := New(nil)

	base := bus.GetCycles(0x06000000, Access{Width: 16})
	assert.Equal(t, 1, base, "no InHDraw hook set: no contention charged")

	bus.InHDraw = func() bool { return true }
	assert.Equal(t, base+1, bus.GetCycles(0x06000000, Access{Width: 16}))

	bus.InHDraw = func() bool { return false }
	assert.Equal(t, base, bus.GetCycles(0x06000000, Access{Width: 16}))
}

func TestGetCycles_IWRAMIsUnaffectedByHDraw(t *testing.T) {
	bus := New(nil)
	bus.InHDraw = func() bool { return true }

	assert.Equal(t, 1, bus.GetCycles(0x03000000, Access{Width: 16}))
}

func TestHALTCNTWriteInvokesOnHalt(t *testing.T) {
	bus := New(nil)

	called := false
	bus.OnHalt = func() { called = true }

	bus.Write8(0x04000301, 0x00) // HALTCNT
	assert.True(t, called, "a byte write to HALTCNT must invoke OnHalt")
}

func TestPOSTFLGWriteAloneDoesNotInvokeOnHalt(t *testing.T) {
	bus := New(nil)

	called := false
	bus.OnHalt = func() { called = true }

	bus.Write8(0x04000300, 0x01) // POSTFLG
	assert.False(t, called, "a byte write to POSTFLG alone must not halt the CPU")
}
