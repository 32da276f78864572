package core

import (
	"fmt"
	"os"
	"sync"

	"github.com/anemu/goadvance/core/addr"
	"github.com/anemu/goadvance/core/audio"
	"github.com/anemu/goadvance/core/cpu"
	"github.com/anemu/goadvance/core/debug"
	"github.com/anemu/goadvance/core/input/action"
	"github.com/anemu/goadvance/core/memory"
	"github.com/anemu/goadvance/core/observability"
	"github.com/anemu/goadvance/core/timing"
	"github.com/anemu/goadvance/core/video"
)

// GBA is the root struct and entry point for running the emulation: it wires
// the bus, CPU, GPU and APU together and drives the fetch/DMA/IRQ scheduling
// loop the individual components assume a caller provides.
type GBA struct {
	cpu *cpu.CPU
	gpu *video.GPU
	apu *audio.APU
	bus *memory.Bus

	limiter timing.Limiter
	sidecar *observability.Sidecar

	// Debugger state
	debuggerState    debug.DebuggerState
	debuggerMutex    sync.RWMutex
	stepRequested    bool
	frameRequested   bool
	instructionCount uint64
	frameCount       uint64
}

var _ Emulator = (*GBA)(nil)

func (e *GBA) init(bus *memory.Bus) {
	e.bus = bus
	e.cpu = cpu.New()
	e.gpu = video.NewGPU(bus)
	e.apu = audio.New()
	e.limiter = timing.NewNoOpLimiter()

	bus.AttachSound(e.apu)
	bus.Timers.OnOverflow = func(timerIndex int) {
		e.apu.NotifyTimerOverflow(timerIndex, func(dmaChannel int) {
			bus.DMA.NotifyFIFO(dmaChannel + 1)
		})
	}
	bus.OnHalt = e.cpu.Halt
	bus.InHDraw = e.gpu.InHDraw
}

// New creates an emulator instance with no cartridge inserted, booting
// straight into BIOS execution.
func New() *GBA {
	e := &GBA{}
	e.init(memory.New(nil))
	return e
}

// NewWithFile creates an emulator instance and loads the ROM at path into it.
func NewWithFile(path string) (*GBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	e := &GBA{}
	e.init(memory.NewWithCartridge(nil, memory.NewCartridge(data)))
	return e, nil
}

// stepOnce drains any in-flight DMA transfers (which run ahead of the CPU
// per the bus's DMA-before-CPU ordering invariant), releases a halted CPU if
// any enabled interrupt is now pending, injects a pending gated IRQ, then
// executes one CPU step (a single idle cycle if still halted) and ticks
// every cycle-driven device by the same amount.
func (e *GBA) stepOnce() int {
	total := 0
	for e.bus.DMA.HasWork() {
		cycles := e.bus.DMA.Step()
		e.tickDevices(cycles)
		total += cycles
	}

	// Any enabled pending IRQ releases halt regardless of IME, even if IME
	// is clear and so no exception will actually be taken.
	if e.cpu.Halted() && e.bus.Interrupts.Pending() {
		e.cpu.ClearHalt()
	}

	if e.bus.Interrupts.IRQLine() && e.cpu.LastExecuted() {
		e.cpu.IRQ(e.bus)
	}

	cycles := e.cpu.Step(e.bus)
	e.tickDevices(cycles)
	total += cycles
	e.instructionCount++

	return total
}

func (e *GBA) tickDevices(cycles int) {
	e.bus.Timers.Tick(cycles)
	e.gpu.Tick(cycles)
	e.apu.Tick(cycles)
}

// RunUntilFrame executes CPU instructions until a full frame's worth of
// cycles has elapsed, honoring the debugger's paused/step states.
func (e *GBA) RunUntilFrame() error {
	e.debuggerMutex.RLock()
	state := e.debuggerState
	e.debuggerMutex.RUnlock()

	switch state {
	case debug.DebuggerPaused:
		return nil

	case debug.DebuggerStepInstruction:
		e.debuggerMutex.Lock()
		if !e.stepRequested {
			e.debuggerMutex.Unlock()
			return nil
		}
		e.stepRequested = false
		e.debuggerMutex.Unlock()

		e.stepOnce()
		e.setDebuggerState(debug.DebuggerPaused)
		return nil

	case debug.DebuggerStepFrame:
		e.debuggerMutex.Lock()
		requested := e.frameRequested
		if requested {
			e.frameRequested = false
		}
		e.debuggerMutex.Unlock()

		if !requested {
			return nil
		}
		e.runFrame()
		e.setDebuggerState(debug.DebuggerPaused)
		return nil

	default:
		e.runFrame()
		return nil
	}
}

func (e *GBA) runFrame() {
	total := 0
	for total < addr.CyclesFullRefresh {
		total += e.stepOnce()
	}
	e.frameCount++
	e.limiter.WaitForNextFrame()

	if e.sidecar != nil {
		e.sidecar.Tick(e.frameCount, observability.GameState{
			IWRAM: e.bus.IWRAM(),
			EWRAM: e.bus.EWRAM(),
			Time:  e.frameCount,
		})
	}
}

// EnableObservability binds the sidecar's tx/rx Unix sockets per cfg (see
// observability.Config for the snapshot/error-log/write-deadline knobs).
func (e *GBA) EnableObservability(cfg observability.Config) error {
	sidecar, err := observability.New(cfg)
	if err != nil {
		return err
	}
	e.sidecar = sidecar
	return nil
}

// Close releases resources the emulator opened outside the bus (currently
// just the observability sidecar's sockets, if enabled).
func (e *GBA) Close() error {
	if e.sidecar != nil {
		return e.sidecar.Close()
	}
	return nil
}

func (e *GBA) GetCurrentFrame() *video.FrameBuffer {
	return e.gpu.GetFrameBuffer()
}

var buttonByAction = map[action.Action]memory.Button{
	action.ButtonA:      memory.ButtonA,
	action.ButtonB:      memory.ButtonB,
	action.ButtonStart:  memory.ButtonStart,
	action.ButtonSelect: memory.ButtonSelect,
	action.ButtonUp:     memory.ButtonUp,
	action.ButtonDown:   memory.ButtonDown,
	action.ButtonLeft:   memory.ButtonLeft,
	action.ButtonRight:  memory.ButtonRight,
	action.ButtonL:      memory.ButtonL,
	action.ButtonR:      memory.ButtonR,
}

// HandleAction dispatches button presses/releases to the keypad and
// evaluates its IRQ condition, and routes emulator-feature actions to the
// debugger controls.
func (e *GBA) HandleAction(act action.Action, pressed bool) {
	if button, ok := buttonByAction[act]; ok {
		if pressed {
			e.bus.Keypad.Press(button)
		} else {
			e.bus.Keypad.Release(button)
		}
		if irq, fire := e.bus.Keypad.IRQCondition(); fire {
			e.bus.RequestInterrupt(irq)
		}
		return
	}

	if !pressed {
		return
	}

	switch act {
	case action.EmulatorPauseToggle:
		e.togglePause()
	case action.EmulatorStepInstruction:
		e.requestStepInstruction()
	case action.EmulatorStepFrame:
		e.requestStepFrame()
	}
}

func (e *GBA) togglePause() {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	if e.debuggerState == debug.DebuggerPaused {
		e.debuggerState = debug.DebuggerRunning
	} else {
		e.debuggerState = debug.DebuggerPaused
	}
}

func (e *GBA) requestStepInstruction() {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.stepRequested = true
	e.debuggerState = debug.DebuggerStepInstruction
}

func (e *GBA) requestStepFrame() {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.frameRequested = true
	e.debuggerState = debug.DebuggerStepFrame
}

func (e *GBA) setDebuggerState(state debug.DebuggerState) {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.debuggerState = state
}

// busMemoryReader adapts *memory.Bus to debug.MemoryReader.
type busMemoryReader struct{ bus *memory.Bus }

func (r busMemoryReader) Read(address uint32) uint8 { return r.bus.Read8(address) }
func (r busMemoryReader) ReadBit(bit uint8, address uint32) bool {
	return r.bus.Read8(address)&(1<<bit) != 0
}

// ExtractDebugData snapshots CPU, audio and interrupt state for debug
// displays. Safe to call at any time, including mid-frame.
func (e *GBA) ExtractDebugData() *debug.CompleteDebugData {
	regs := e.cpu.Registers()

	cpuState := &debug.CPUState{
		CPSR:  regs.CPSR(),
		SPSR:  regs.SPSR(),
		Thumb: regs.Thumb(),
		Mode:  regs.Mode(),
		IME:   e.bus.Interrupts.ReadIME() != 0,
	}
	for i := uint8(0); i < 16; i++ {
		cpuState.R[i] = regs.Get(i)
	}

	e.debuggerMutex.RLock()
	state := e.debuggerState
	e.debuggerMutex.RUnlock()

	return &debug.CompleteDebugData{
		CPU:             cpuState,
		Audio:           debug.ExtractAudioData(busMemoryReader{e.bus}),
		DebuggerState:   state,
		InterruptEnable: e.bus.Interrupts.ReadIE(),
		InterruptFlags:  e.bus.Interrupts.ReadIF(),
	}
}

func (e *GBA) SetFrameLimiter(limiter timing.Limiter) {
	if limiter == nil {
		limiter = timing.NewNoOpLimiter()
	}
	e.limiter = limiter
}

func (e *GBA) ResetFrameTiming() {
	e.limiter.Reset()
}

// GetCPU exposes the CPU for tooling (breakpoints, disassembly snapshots)
// that needs more than the debug-data summary.
func (e *GBA) GetCPU() *cpu.CPU { return e.cpu }

// GetAudio exposes the APU as an audio.Provider for backends that play
// samples back or drive an audio debug UI.
func (e *GBA) GetAudio() audio.Provider { return e.apu }

// GetInstructionCount and GetFrameCount report scheduler progress, used by
// headless-mode progress logging.
func (e *GBA) GetInstructionCount() uint64 { return e.instructionCount }
func (e *GBA) GetFrameCount() uint64       { return e.frameCount }

// SaveState returns the cartridge's battery-backed save data, if any.
func (e *GBA) SaveState() []byte {
	cart := e.bus.Cartridge()
	if cart == nil {
		return nil
	}
	return cart.SaveBytes()
}

// LoadSave restores previously persisted battery-backed save data.
func (e *GBA) LoadSave(data []byte) error {
	cart := e.bus.Cartridge()
	if cart == nil {
		return fmt.Errorf("no cartridge inserted")
	}
	cart.LoadSave(data)
	return nil
}
