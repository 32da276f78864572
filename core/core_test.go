package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anemu/goadvance/core/input/action"
)

func TestNew_BootsWithoutCartridge(t *testing.T) {
	gba := New()
	assert.NotNil(t, gba.GetCurrentFrame())
	assert.Equal(t, uint64(0), gba.GetFrameCount())
}

func TestExtractDebugData_NoCartridge(t *testing.T) {
	gba := New()
	data := gba.ExtractDebugData()

	assert.NotNil(t, data)
	assert.NotNil(t, data.CPU)
	assert.NotNil(t, data.Audio)
	assert.False(t, data.CPU.Thumb, "ARM7TDMI resets into ARM state")
}

func TestHandleAction_ButtonPressClearsKeyinputBit(t *testing.T) {
	gba := New()

	gba.HandleAction(action.ButtonA, true)
	assert.Equal(t, uint16(0), gba.bus.Keypad.Read()&1, "pressed button reads active-low (0)")

	gba.HandleAction(action.ButtonA, false)
	assert.Equal(t, uint16(1), gba.bus.Keypad.Read()&1, "released button reads high again")
}

func TestRunUntilFrame_AdvancesFrameCount(t *testing.T) {
	gba := New()

	err := gba.RunUntilFrame()

	assert.NoError(t, err)
	assert.Equal(t, uint64(1), gba.GetFrameCount())
	assert.Greater(t, gba.GetInstructionCount(), uint64(0))
}

func TestDebuggerPause_StopsExecution(t *testing.T) {
	gba := New()
	gba.togglePause()

	err := gba.RunUntilFrame()

	assert.NoError(t, err)
	assert.Equal(t, uint64(0), gba.GetFrameCount(), "paused emulator should not advance frames")
}

func TestDebuggerStepInstruction_ExecutesExactlyOne(t *testing.T) {
	gba := New()
	gba.requestStepInstruction()

	err := gba.RunUntilFrame()

	assert.NoError(t, err)
	assert.Equal(t, uint64(1), gba.GetInstructionCount())
}
