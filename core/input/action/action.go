package action

// Action represents input actions that can be performed in the emulator
type Action int

const (
	// GBA hardware controls
	ButtonA Action = iota
	ButtonB
	ButtonStart
	ButtonSelect
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
	ButtonL
	ButtonR

	// Emulator features
	EmulatorDebugToggle
	EmulatorDebugUpdate
	EmulatorSnapshot
	EmulatorPauseToggle
	EmulatorStepFrame
	EmulatorStepInstruction
	EmulatorTestPatternCycle
	EmulatorQuit

	// Audio debugging
	AudioToggleChannel1
	AudioToggleChannel2
	AudioToggleChannel3
	AudioToggleChannel4
	AudioSoloChannel1
	AudioSoloChannel2
	AudioSoloChannel3
	AudioSoloChannel4
	AudioShowStatus

	// Debug controls
	DebugLogLevelIncrease
	DebugLogLevelDecrease
)

// Category represents the category of an action for routing purposes
type Category int

const (
	CategoryGameInput Category = iota // Game Boy hardware controls
	CategoryEmulator                  // Core emulator features
	CategoryBackend                   // Backend-specific features
	CategoryAudio                     // Audio system controls
	CategoryDebug                     // Debug features
)

// ActionInfo contains metadata about an action
type ActionInfo struct {
	Action      Action
	Category    Category
	Debounce    bool // True if the action should only trigger once per key press
	Description string
}

// actionInfoMap contains metadata for all actions
var actionInfoMap = map[Action]ActionInfo{
	// GBA hardware controls
	ButtonA:      {Action: ButtonA, Category: CategoryGameInput, Debounce: false, Description: "A button"},
	ButtonB:      {Action: ButtonB, Category: CategoryGameInput, Debounce: false, Description: "B button"},
	ButtonStart:  {Action: ButtonStart, Category: CategoryGameInput, Debounce: false, Description: "Start button"},
	ButtonSelect: {Action: ButtonSelect, Category: CategoryGameInput, Debounce: false, Description: "Select button"},
	ButtonUp:     {Action: ButtonUp, Category: CategoryGameInput, Debounce: false, Description: "D-Pad Up"},
	ButtonDown:   {Action: ButtonDown, Category: CategoryGameInput, Debounce: false, Description: "D-Pad Down"},
	ButtonLeft:   {Action: ButtonLeft, Category: CategoryGameInput, Debounce: false, Description: "D-Pad Left"},
	ButtonRight:  {Action: ButtonRight, Category: CategoryGameInput, Debounce: false, Description: "D-Pad Right"},
	ButtonL:      {Action: ButtonL, Category: CategoryGameInput, Debounce: false, Description: "L shoulder button"},
	ButtonR:      {Action: ButtonR, Category: CategoryGameInput, Debounce: false, Description: "R shoulder button"},

	// Emulator features
	EmulatorDebugToggle:      {Action: EmulatorDebugToggle, Category: CategoryDebug, Debounce: true, Description: "Toggle debug display"},
	EmulatorDebugUpdate:      {Action: EmulatorDebugUpdate, Category: CategoryDebug, Debounce: false, Description: "Update debug display"},
	EmulatorSnapshot:         {Action: EmulatorSnapshot, Category: CategoryBackend, Debounce: true, Description: "Take snapshot"},
	EmulatorPauseToggle:      {Action: EmulatorPauseToggle, Category: CategoryEmulator, Debounce: true, Description: "Toggle pause"},
	EmulatorStepFrame:        {Action: EmulatorStepFrame, Category: CategoryEmulator, Debounce: true, Description: "Step one frame"},
	EmulatorStepInstruction:  {Action: EmulatorStepInstruction, Category: CategoryEmulator, Debounce: true, Description: "Step one instruction"},
	EmulatorTestPatternCycle: {Action: EmulatorTestPatternCycle, Category: CategoryBackend, Debounce: true, Description: "Cycle test patterns"},
	EmulatorQuit:             {Action: EmulatorQuit, Category: CategoryEmulator, Debounce: true, Description: "Quit"},

	// Audio debugging
	AudioToggleChannel1: {Action: AudioToggleChannel1, Category: CategoryAudio, Debounce: true, Description: "Toggle audio channel 1"},
	AudioToggleChannel2: {Action: AudioToggleChannel2, Category: CategoryAudio, Debounce: true, Description: "Toggle audio channel 2"},
	AudioToggleChannel3: {Action: AudioToggleChannel3, Category: CategoryAudio, Debounce: true, Description: "Toggle audio channel 3"},
	AudioToggleChannel4: {Action: AudioToggleChannel4, Category: CategoryAudio, Debounce: true, Description: "Toggle audio channel 4"},
	AudioSoloChannel1:   {Action: AudioSoloChannel1, Category: CategoryAudio, Debounce: true, Description: "Solo audio channel 1"},
	AudioSoloChannel2:   {Action: AudioSoloChannel2, Category: CategoryAudio, Debounce: true, Description: "Solo audio channel 2"},
	AudioSoloChannel3:   {Action: AudioSoloChannel3, Category: CategoryAudio, Debounce: true, Description: "Solo audio channel 3"},
	AudioSoloChannel4:   {Action: AudioSoloChannel4, Category: CategoryAudio, Debounce: true, Description: "Solo audio channel 4"},
	AudioShowStatus:     {Action: AudioShowStatus, Category: CategoryAudio, Debounce: true, Description: "Show audio status"},

	// Debug controls
	DebugLogLevelIncrease: {Action: DebugLogLevelIncrease, Category: CategoryDebug, Debounce: true, Description: "Log level up"},
	DebugLogLevelDecrease: {Action: DebugLogLevelDecrease, Category: CategoryDebug, Debounce: true, Description: "Log level down"},
}

// GetInfo returns metadata for an action
func GetInfo(a Action) ActionInfo {
	if info, ok := actionInfoMap[a]; ok {
		return info
	}
	// Return a default for unknown actions
	return ActionInfo{
		Action:      a,
		Category:    CategoryEmulator,
		Debounce:    false,
		Description: "Unknown action",
	}
}
