package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/anemu/goadvance/core/addr"
)

func TestAPUPowerControl(t *testing.T) {
	apu := New()

	assert.Equal(t, uint16(0), apu.ReadRegister(addr.SOUNDCNT_X))

	apu.WriteRegister(addr.SOUNDCNT_X, 1<<7)
	assert.True(t, apu.enabled)
	assert.Equal(t, uint16(1<<7), apu.ReadRegister(addr.SOUNDCNT_X))

	apu.WriteRegister(addr.SOUNDCNT_X, 0)
	assert.False(t, apu.enabled)
}

func TestDirectSoundFIFOWritesIgnoredWhilePoweredOff(t *testing.T) {
	apu := New()

	apu.WriteRegister(addr.SOUNDCNT_H, 0x0B05) // channel A full volume, both sides, FIFO A reset
	assert.Equal(t, uint16(0), apu.soundCntH(), "writes while powered off must be ignored")
}

func TestDirectSoundFIFOPopOnTimerOverflow(t *testing.T) {
	apu := New()
	apu.WriteRegister(addr.SOUNDCNT_X, 1<<7)
	apu.WriteRegister(addr.SOUNDCNT_H, 1<<9 /* channel A enable left */ |1<<2 /* full volume */)

	apu.PushFIFOSample(0, 42)
	apu.PushFIFOSample(0, -5)

	apu.NotifyTimerOverflow(0, nil)
	assert.Equal(t, int8(42), apu.dma[0].value)

	apu.NotifyTimerOverflow(0, nil)
	assert.Equal(t, int8(-5), apu.dma[0].value)
}

func TestDirectSoundFIFOOverwritesOldestWhenFull(t *testing.T) {
	apu := New()
	apu.WriteRegister(addr.SOUNDCNT_X, 1<<7)
	apu.WriteRegister(addr.SOUNDCNT_H, 0) // channel A, timer 0

	for i := 0; i < fifoDepth; i++ {
		apu.PushFIFOSample(0, int8(i))
	}
	apu.PushFIFOSample(0, 99) // fifo is full: this overwrites sample 0, not dropped

	apu.NotifyTimerOverflow(0, nil)
	assert.Equal(t, int8(1), apu.dma[0].value, "oldest sample (0) was overwritten, so the next pop yields 1")
}

func TestDirectSoundFIFOHoldsLastValueOnUnderflow(t *testing.T) {
	apu := New()
	apu.WriteRegister(addr.SOUNDCNT_X, 1<<7)
	apu.WriteRegister(addr.SOUNDCNT_H, 1<<2) // channel A, timer 0, full volume

	apu.PushFIFOSample(0, 7)
	apu.NotifyTimerOverflow(0, nil)
	assert.Equal(t, int8(7), apu.dma[0].value)

	apu.NotifyTimerOverflow(0, nil) // fifo now empty
	assert.Equal(t, int8(7), apu.dma[0].value, "underflow must hold the last value, not zero it")
}

func TestDirectSoundFIFODrainNotifiesDMA(t *testing.T) {
	apu := New()
	apu.WriteRegister(addr.SOUNDCNT_X, 1<<7)
	apu.WriteRegister(addr.SOUNDCNT_H, 0) // channel A, timer 0

	for i := 0; i < fifoDepth; i++ {
		apu.PushFIFOSample(0, int8(i))
	}

	drainedCount := 0
	for i := 0; i < fifoDepth/2+1; i++ {
		apu.NotifyTimerOverflow(0, func(ch int) { drainedCount++ })
	}
	assert.Greater(t, drainedCount, 0, "DMA refill should be requested once the FIFO drains to half")
}

func TestSampleExportProducesSilenceWhenDisabled(t *testing.T) {
	apu := New()
	apu.Tick(10000)
	assert.Empty(t, apu.pcmBuffer)
}

func TestGetSamplesZeroPadsWhenStarved(t *testing.T) {
	apu := New()
	samples := apu.GetSamples(4)
	assert.Len(t, samples, 8)
	for _, s := range samples {
		assert.Equal(t, int16(0), s)
	}
}

func TestToggleAndSoloChannel(t *testing.T) {
	apu := New()
	ch1, ch2, _, _ := apu.GetChannelStatus()
	assert.True(t, ch1)
	assert.True(t, ch2)

	apu.ToggleChannel(0)
	ch1, _, _, _ = apu.GetChannelStatus()
	assert.False(t, ch1)

	apu.SoloChannel(1)
	ch1, ch2, _, _ = apu.GetChannelStatus()
	assert.False(t, ch1)
	assert.True(t, ch2)
}
