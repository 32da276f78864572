package bit

// IsSet32 checks if the bit at the specified index is set in a 32 bit value.
func IsSet32(index uint8, value uint32) bool {
	return ((value >> index) & 1) == 1
}

// Set32 returns value with the bit at the specified index set to 1.
func Set32(index uint8, value uint32) uint32 {
	return value | (1 << index)
}

// Reset32 returns value with the bit at the specified index set to 0.
func Reset32(index uint8, value uint32) uint32 {
	return value &^ (1 << index)
}

// ExtractBits16 extracts bits from highBit to lowBit (inclusive) of a 16 bit value.
func ExtractBits16(value uint16, highBit, lowBit uint8) uint16 {
	width := highBit - lowBit + 1
	mask := uint16((1 << width) - 1)
	return (value >> lowBit) & mask
}

// ExtractBits32 extracts bits from highBit to lowBit (inclusive) of a 32 bit value.
func ExtractBits32(value uint32, highBit, lowBit uint8) uint32 {
	width := highBit - lowBit + 1
	mask := uint32((1 << width) - 1)
	return (value >> lowBit) & mask
}

// SignExtend sign-extends the low `bits` bits of value to a full int32.
func SignExtend(value uint32, bits uint8) int32 {
	shift := 32 - bits
	return int32(value<<shift) >> shift
}
