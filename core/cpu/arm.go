package cpu

// ARM condition codes (instruction bits 31-28).
type condition uint8

const (
	condEQ condition = 0x0
	condNE condition = 0x1
	condCS condition = 0x2
	condCC condition = 0x3
	condMI condition = 0x4
	condPL condition = 0x5
	condVS condition = 0x6
	condVC condition = 0x7
	condHI condition = 0x8
	condLS condition = 0x9
	condGE condition = 0xA
	condLT condition = 0xB
	condGT condition = 0xC
	condLE condition = 0xD
	condAL condition = 0xE
)

func (c *CPU) checkCondition(cond condition) bool {
	r := c.regs
	switch cond {
	case condEQ:
		return r.FlagZ()
	case condNE:
		return !r.FlagZ()
	case condCS:
		return r.FlagC()
	case condCC:
		return !r.FlagC()
	case condMI:
		return r.FlagN()
	case condPL:
		return !r.FlagN()
	case condVS:
		return r.FlagV()
	case condVC:
		return !r.FlagV()
	case condHI:
		return r.FlagC() && !r.FlagZ()
	case condLS:
		return !r.FlagC() || r.FlagZ()
	case condGE:
		return r.FlagN() == r.FlagV()
	case condLT:
		return r.FlagN() != r.FlagV()
	case condGT:
		return !r.FlagZ() && r.FlagN() == r.FlagV()
	case condLE:
		return r.FlagZ() || r.FlagN() != r.FlagV()
	case condAL:
		return true
	default:
		return false
	}
}

// dpOpcode identifies one of the 16 ARM data-processing operations
// (instruction bits 24-21).
type dpOpcode uint8

const (
	dpAND dpOpcode = iota
	dpEOR
	dpSUB
	dpRSB
	dpADD
	dpADC
	dpSBC
	dpRSC
	dpTST
	dpTEQ
	dpCMP
	dpCMN
	dpORR
	dpMOV
	dpBIC
	dpMVN
)

// executeARM decodes and runs one ARM-state instruction at the (already
// advanced) PC, returning its cycle cost.
func (c *CPU) executeARM(bus Bus, instr uint32) int {
	cond := condition((instr >> 28) & 0xF)
	if !c.checkCondition(cond) {
		return 1
	}

	switch (instr >> 26) & 0x3 {
	case 0:
		if isMultiply(instr) {
			return c.execMultiply(instr)
		}
		return c.execDataProcessing(instr)
	case 1:
		return c.execSingleTransfer(bus, instr)
	case 2:
		if (instr>>25)&1 == 1 {
			return c.execBranch(instr)
		}
		return c.execBlockTransfer(bus, instr)
	default:
		if (instr>>24)&0xF == 0xF {
			c.takeSWI(bus)
			return 3
		}
		// Coprocessor / undefined instruction space: GBA software never
		// legitimately reaches this path, treated as a one-cycle no-op.
		return 1
	}
}

func isMultiply(instr uint32) bool {
	return (instr>>24)&0xF == 0 && (instr>>4)&0xF == 0x9
}

func (c *CPU) execMultiply(instr uint32) int {
	rd := uint8((instr >> 16) & 0xF)
	rn := uint8((instr >> 12) & 0xF)
	rs := uint8((instr >> 8) & 0xF)
	rm := uint8(instr & 0xF)
	accumulate := (instr>>21)&1 != 0
	setFlags := (instr>>20)&1 != 0

	result := c.regs.Get(rm) * c.regs.Get(rs)
	if accumulate {
		result += c.regs.Get(rn)
	}
	c.regs.Set(rd, result)
	if setFlags {
		c.regs.SetFlagN(result&0x80000000 != 0)
		c.regs.SetFlagZ(result == 0)
	}
	return 2
}

// operand2 resolves the shifted-register or rotated-immediate second
// operand of a data-processing instruction and the carry-out it produces.
func (c *CPU) operand2(instr uint32) (uint32, bool) {
	immediate := (instr>>25)&1 != 0
	if immediate {
		imm := instr & 0xFF
		rotate := ((instr >> 8) & 0xF) * 2
		if rotate == 0 {
			return imm, c.regs.FlagC()
		}
		result := (imm >> rotate) | (imm << (32 - rotate))
		return result, result&0x80000000 != 0
	}

	rm := uint8(instr & 0xF)
	shiftType := (instr >> 5) & 0x3
	var amount uint32
	byRegister := (instr>>4)&1 != 0
	if byRegister {
		rs := uint8((instr >> 8) & 0xF)
		amount = c.regs.Get(rs) & 0xFF
	} else {
		amount = (instr >> 7) & 0x1F
	}

	value := c.regs.Get(rm)
	return applyShift(value, shiftType, amount, byRegister, c.regs.FlagC())
}

// applyShift implements the four ARM shift types (LSL, LSR, ASR, ROR),
// including the encoded special cases for a zero immediate shift amount.
func applyShift(value uint32, shiftType uint32, amount uint32, byRegister bool, carryIn bool) (uint32, bool) {
	switch shiftType {
	case 0: // LSL
		if amount == 0 {
			return value, carryIn
		}
		if amount >= 32 {
			if amount == 32 {
				return 0, value&1 != 0
			}
			return 0, false
		}
		return value << amount, (value>>(32-amount))&1 != 0
	case 1: // LSR
		if amount == 0 {
			if byRegister {
				return value, carryIn
			}
			amount = 32
		}
		if amount >= 32 {
			if amount == 32 {
				return 0, value&0x80000000 != 0
			}
			return 0, false
		}
		return value >> amount, (value>>(amount-1))&1 != 0
	case 2: // ASR
		if amount == 0 {
			if byRegister {
				return value, carryIn
			}
			amount = 32
		}
		if amount >= 32 {
			if value&0x80000000 != 0 {
				return 0xFFFFFFFF, true
			}
			return 0, false
		}
		return uint32(int32(value) >> amount), (value>>(amount-1))&1 != 0
	default: // ROR (and RRX when amount==0, immediate)
		if amount == 0 {
			if byRegister {
				return value, carryIn
			}
			carryOut := value&1 != 0
			result := value >> 1
			if carryIn {
				result |= 0x80000000
			}
			return result, carryOut
		}
		amount &= 31
		if amount == 0 {
			return value, value&0x80000000 != 0
		}
		result := (value >> amount) | (value << (32 - amount))
		return result, (value>>(amount-1))&1 != 0
	}
}

func (c *CPU) execDataProcessing(instr uint32) int {
	opcode := dpOpcode((instr >> 21) & 0xF)
	setFlags := (instr>>20)&1 != 0
	rn := uint8((instr >> 16) & 0xF)
	rd := uint8((instr >> 12) & 0xF)

	op2, shiftCarry := c.operand2(instr)
	rnVal := c.regs.Get(rn)

	var result uint32
	var carryOut = shiftCarry
	var overflow bool
	writesResult := true

	switch opcode {
	case dpAND:
		result = rnVal & op2
	case dpEOR:
		result = rnVal ^ op2
	case dpSUB:
		result = rnVal - op2
		carryOut = rnVal >= op2
		overflow = subOverflow(rnVal, op2, result)
	case dpRSB:
		result = op2 - rnVal
		carryOut = op2 >= rnVal
		overflow = subOverflow(op2, rnVal, result)
	case dpADD:
		wide := uint64(rnVal) + uint64(op2)
		result = uint32(wide)
		carryOut = wide > 0xFFFFFFFF
		overflow = addOverflow(rnVal, op2, result)
	case dpADC:
		carryIn := uint64(0)
		if c.regs.FlagC() {
			carryIn = 1
		}
		wide := uint64(rnVal) + uint64(op2) + carryIn
		result = uint32(wide)
		carryOut = wide > 0xFFFFFFFF
		overflow = addOverflow(rnVal, op2, result)
	case dpSBC:
		carryIn := uint32(0)
		if c.regs.FlagC() {
			carryIn = 1
		}
		result = rnVal - op2 + carryIn - 1
		carryOut = uint64(rnVal) >= uint64(op2)-uint64(carryIn)+1
		overflow = subOverflow(rnVal, op2, result)
	case dpRSC:
		carryIn := uint32(0)
		if c.regs.FlagC() {
			carryIn = 1
		}
		result = op2 - rnVal + carryIn - 1
		overflow = subOverflow(op2, rnVal, result)
	case dpTST:
		result = rnVal & op2
		writesResult = false
	case dpTEQ:
		result = rnVal ^ op2
		writesResult = false
	case dpCMP:
		result = rnVal - op2
		carryOut = rnVal >= op2
		overflow = subOverflow(rnVal, op2, result)
		writesResult = false
	case dpCMN:
		wide := uint64(rnVal) + uint64(op2)
		result = uint32(wide)
		carryOut = wide > 0xFFFFFFFF
		overflow = addOverflow(rnVal, op2, result)
		writesResult = false
	case dpORR:
		result = rnVal | op2
	case dpMOV:
		result = op2
	case dpBIC:
		result = rnVal &^ op2
	case dpMVN:
		result = ^op2
	}

	if writesResult {
		c.regs.Set(rd, result)
		if rd == 15 {
			c.lastFlushed = true
		}
	}

	if setFlags {
		if rd == 15 && writesResult {
			c.regs.SetCPSR(c.regs.SPSR())
		} else {
			c.regs.SetFlagN(result&0x80000000 != 0)
			c.regs.SetFlagZ(result == 0)
			c.regs.SetFlagC(carryOut)
			switch opcode {
			case dpSUB, dpRSB, dpADD, dpADC, dpSBC, dpRSC, dpCMP, dpCMN:
				c.regs.SetFlagV(overflow)
			}
		}
	}

	return 1
}

func addOverflow(a, b, result uint32) bool {
	return (a^result)&(b^result)&0x80000000 != 0
}

func subOverflow(a, b, result uint32) bool {
	return (a^b)&(a^result)&0x80000000 != 0
}

func (c *CPU) execSingleTransfer(bus Bus, instr uint32) int {
	pre := (instr>>24)&1 != 0
	up := (instr>>23)&1 != 0
	byteAccess := (instr>>22)&1 != 0
	writeback := (instr>>21)&1 != 0
	load := (instr>>20)&1 != 0
	rn := uint8((instr >> 16) & 0xF)
	rd := uint8((instr >> 12) & 0xF)

	var offset uint32
	if (instr>>25)&1 != 0 {
		shiftType := (instr >> 5) & 0x3
		amount := (instr >> 7) & 0x1F
		rm := uint8(instr & 0xF)
		offset, _ = applyShift(c.regs.Get(rm), shiftType, amount, false, c.regs.FlagC())
	} else {
		offset = instr & 0xFFF
	}

	base := c.regs.Get(rn)
	var effective uint32
	if up {
		effective = base + offset
	} else {
		effective = base - offset
	}

	addr := base
	if pre {
		addr = effective
	}

	if load {
		var value uint32
		if byteAccess {
			value = uint32(bus.Read8(addr))
		} else {
			value = bus.Read32(addr)
		}
		c.regs.Set(rd, value)
		if rd == 15 {
			c.lastFlushed = true
		}
	} else {
		value := c.regs.Get(rd)
		if byteAccess {
			bus.Write8(addr, uint8(value))
		} else {
			bus.Write32(addr, value)
		}
	}

	if !pre || writeback {
		c.regs.Set(rn, effective)
	}

	if load {
		return 3
	}
	return 2
}

func (c *CPU) execBlockTransfer(bus Bus, instr uint32) int {
	pre := (instr>>24)&1 != 0
	up := (instr>>23)&1 != 0
	writeback := (instr>>21)&1 != 0
	load := (instr>>20)&1 != 0
	rn := uint8((instr >> 16) & 0xF)
	list := uint16(instr & 0xFFFF)

	base := c.regs.Get(rn)
	addr := base
	count := 0

	step := func() {
		if up {
			addr += 4
		} else {
			addr -= 4
		}
	}

	regOrder := [16]uint8{}
	for i := range regOrder {
		regOrder[i] = uint8(i)
	}
	if !up {
		for i, j := 0, 15; i < j; i, j = i+1, j-1 {
			regOrder[i], regOrder[j] = regOrder[j], regOrder[i]
		}
	}

	for _, r := range regOrder {
		if list&(1<<r) == 0 {
			continue
		}
		if pre {
			step()
		}
		if load {
			c.regs.Set(r, bus.Read32(addr))
			if r == 15 {
				c.lastFlushed = true
			}
		} else {
			bus.Write32(addr, c.regs.Get(r))
		}
		if !pre {
			step()
		}
		count++
	}

	if writeback {
		c.regs.Set(rn, addr)
	}

	return 1 + count*2
}

func (c *CPU) execBranch(instr uint32) int {
	link := (instr>>24)&1 != 0
	offset := instr & 0x00FFFFFF
	if offset&0x00800000 != 0 {
		offset |= 0xFF000000
	}
	signedOffset := int32(offset) << 2

	if link {
		c.regs.Set(14, c.regs.pc-4)
	}

	c.regs.pc = uint32(int64(c.regs.pc) + int64(signedOffset))
	c.lastFlushed = true
	return 3
}
