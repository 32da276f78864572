package video

const (
	FramebufferWidth  = 240
	FramebufferHeight = 160
	FramebufferSize   = FramebufferWidth * FramebufferHeight
)

// FrameBuffer holds one rendered GBA frame as RGBA8888 pixels.
type FrameBuffer struct {
	buffer []uint32
}

func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{buffer: make([]uint32, FramebufferSize)}
}

func (fb *FrameBuffer) GetPixel(x, y int) uint32 {
	return fb.buffer[y*FramebufferWidth+x]
}

func (fb *FrameBuffer) SetPixel(x, y int, color uint32) {
	fb.buffer[y*FramebufferWidth+x] = color
}

func (fb *FrameBuffer) ToSlice() []uint32 {
	return fb.buffer
}

func (fb *FrameBuffer) Clear() {
	for i := range fb.buffer {
		fb.buffer[i] = 0xFF000000
	}
}

// ToBinaryData returns the framebuffer as raw RGBA8888 bytes, for snapshot
// comparison and PNG encoding.
func (fb *FrameBuffer) ToBinaryData() []byte {
	data := make([]byte, len(fb.buffer)*4)
	for i, pixel := range fb.buffer {
		data[i*4] = byte(pixel >> 24)
		data[i*4+1] = byte(pixel >> 16)
		data[i*4+2] = byte(pixel >> 8)
		data[i*4+3] = byte(pixel)
	}
	return data
}

// BGR555ToRGBA converts a GBA 15-bit BGR color (bit 15 unused) to opaque
// RGBA8888, scaling the 5-bit channels up to 8 bits.
func BGR555ToRGBA(c uint16) uint32 {
	r := uint32(c&0x1F) * 255 / 31
	g := uint32((c>>5)&0x1F) * 255 / 31
	b := uint32((c>>10)&0x1F) * 255 / 31
	return r<<24 | g<<16 | b<<8 | 0xFF
}
