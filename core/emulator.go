package core

import (
	"github.com/anemu/goadvance/core/debug"
	"github.com/anemu/goadvance/core/input/action"
	"github.com/anemu/goadvance/core/timing"
	"github.com/anemu/goadvance/core/video"
)

// Emulator is the interface for all emulator implementations
type Emulator interface {
	RunUntilFrame() error
	GetCurrentFrame() *video.FrameBuffer
	HandleAction(act action.Action, pressed bool)
	ExtractDebugData() *debug.CompleteDebugData
	SetFrameLimiter(limiter timing.Limiter)
	ResetFrameTiming()
}

var _ Emulator = (*GBA)(nil)
