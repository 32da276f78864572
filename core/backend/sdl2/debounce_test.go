//go:build sdl2

package sdl2

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anemu/goadvance/core/backend"
	"github.com/anemu/goadvance/core/input"
	"github.com/anemu/goadvance/core/input/action"
	"github.com/anemu/goadvance/core/input/event"
	"github.com/anemu/goadvance/core/video"
)

func TestSDL2Backend_DebugToggleDebouncing(t *testing.T) {
	b := New()

	err := b.Init(backend.BackendConfig{
		Title: "Test",
		Scale: 1,
	})
	require.NoError(t, err)
	defer b.Cleanup()

	handler := input.NewHandler()

	testEvent := backend.InputEvent{
		Action: action.EmulatorDebugToggle,
		Type:   event.Press,
	}

	// Rapid repeated presses of a debounced action should only be
	// processed once within the debounce window.
	for i := 0; i < 5; i++ {
		if i == 0 {
			assert.True(t, handler.ProcessEvent(testEvent), "first press should be processed")
		} else {
			assert.False(t, handler.ProcessEvent(testEvent), "rapid presses should be debounced")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestSDL2Backend_EventFlow(t *testing.T) {
	b := New()

	err := b.Init(backend.BackendConfig{
		Title: "Test",
		Scale: 1,
	})
	require.NoError(t, err)
	defer b.Cleanup()

	frame := video.NewFrameBuffer()

	events, err := b.Update(frame)
	require.NoError(t, err)
	assert.Empty(t, events, "no SDL events injected, so none should be reported")
}
