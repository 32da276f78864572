package debug

import (
	"github.com/anemu/goadvance/core/addr"
)

// ChannelStatus describes one direct sound FIFO channel for debug displays.
type ChannelStatus struct {
	Enabled     bool
	FullVolume  bool
	Left, Right bool
	TimerSelect uint8
}

// AudioData is a snapshot of the sound controller for debug displays.
type AudioData struct {
	MasterEnabled bool
	ChannelA      ChannelStatus
	ChannelB      ChannelStatus
	SampleRate    int
}

// VolumeProvider exposes actual post-mix channel volumes.
type VolumeProvider interface {
	GetChannelVolumes() (ch1, ch2, ch3, ch4 uint8)
}

// ExtractAudioData reads the sound controller's I/O registers into an
// AudioData snapshot via the generic memory reader interface.
func ExtractAudioData(reader MemoryReader) *AudioData {
	data := &AudioData{SampleRate: 32768}

	const ioBase = 0x04000000
	soundCntX := reader.Read(ioBase + addr.SOUNDCNT_X)
	data.MasterEnabled = (soundCntX & 0x80) != 0

	soundCntHLo := reader.Read(ioBase + addr.SOUNDCNT_H)
	soundCntHHi := reader.Read(ioBase + addr.SOUNDCNT_H + 1)

	data.ChannelA.FullVolume = soundCntHLo&0x04 != 0
	data.ChannelA.Right = soundCntHHi&0x01 != 0
	data.ChannelA.Left = soundCntHHi&0x02 != 0
	if soundCntHHi&0x04 != 0 {
		data.ChannelA.TimerSelect = 1
	}
	data.ChannelA.Enabled = data.MasterEnabled && (data.ChannelA.Left || data.ChannelA.Right)

	data.ChannelB.FullVolume = soundCntHLo&0x08 != 0
	data.ChannelB.Right = soundCntHHi&0x10 != 0
	data.ChannelB.Left = soundCntHHi&0x20 != 0
	if soundCntHHi&0x40 != 0 {
		data.ChannelB.TimerSelect = 1
	}
	data.ChannelB.Enabled = data.MasterEnabled && (data.ChannelB.Left || data.ChannelB.Right)

	return data
}
