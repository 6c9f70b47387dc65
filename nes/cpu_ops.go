package nes

// cpuInstruction is one entry of the 256-slot opcode table (spec.md
// §4.3). operate == nil marks an opcode this core never dispatches;
// Tick treats that as a fatal internal-invariant violation rather than
// silently behaving as a multi-byte NOP.
type cpuInstruction struct {
	name        string
	operate     func(*CPU) byte
	mode        func(*CPU) bool
	cycles      byte
	pagePenalty bool
	accumulator bool
}

// branch centralizes the shared +1 (taken) / +1 (page-crossed) timing
// rule used by all eight conditional branches.
func (c *CPU) branch(taken bool) byte {
	if !taken {
		return 0
	}
	target := c.PC + c.addrRel
	extra := byte(1)
	if pageCrossed(c.PC, target) {
		extra++
	}
	c.PC = target
	return extra
}

func opADC(c *CPU) byte {
	carry := uint16(0)
	if c.GetFlag(flagC) {
		carry = 1
	}
	sum := uint16(c.A) + uint16(c.fetched) + carry
	result := byte(sum)
	c.setFlag(flagC, sum > 0xFF)
	c.setFlag(flagV, (^(c.A^c.fetched)&(c.A^result))&0x80 != 0)
	c.A = result
	c.setZN(c.A)
	return 0
}

func opSBC(c *CPU) byte {
	value := c.fetched ^ 0xFF
	carry := uint16(0)
	if c.GetFlag(flagC) {
		carry = 1
	}
	sum := uint16(c.A) + uint16(value) + carry
	result := byte(sum)
	c.setFlag(flagC, sum > 0xFF)
	c.setFlag(flagV, (^(c.A^value)&(c.A^result))&0x80 != 0)
	c.A = result
	c.setZN(c.A)
	return 0
}

func opAND(c *CPU) byte { c.A &= c.fetched; c.setZN(c.A); return 0 }
func opORA(c *CPU) byte { c.A |= c.fetched; c.setZN(c.A); return 0 }
func opEOR(c *CPU) byte { c.A ^= c.fetched; c.setZN(c.A); return 0 }

func opASL(c *CPU) byte {
	c.setFlag(flagC, c.fetched&0x80 != 0)
	result := c.fetched << 1
	c.writeBack(result)
	c.setZN(result)
	return 0
}

func opLSR(c *CPU) byte {
	c.setFlag(flagC, c.fetched&0x01 != 0)
	result := c.fetched >> 1
	c.writeBack(result)
	c.setZN(result)
	return 0
}

func opROL(c *CPU) byte {
	carryIn := byte(0)
	if c.GetFlag(flagC) {
		carryIn = 1
	}
	c.setFlag(flagC, c.fetched&0x80 != 0)
	result := c.fetched<<1 | carryIn
	c.writeBack(result)
	c.setZN(result)
	return 0
}

func opROR(c *CPU) byte {
	carryIn := byte(0)
	if c.GetFlag(flagC) {
		carryIn = 0x80
	}
	c.setFlag(flagC, c.fetched&0x01 != 0)
	result := c.fetched>>1 | carryIn
	c.writeBack(result)
	c.setZN(result)
	return 0
}

func compare(c *CPU, reg byte) {
	result := reg - c.fetched
	c.setFlag(flagC, reg >= c.fetched)
	c.setZN(result)
}

func opCMP(c *CPU) byte { compare(c, c.A); return 0 }
func opCPX(c *CPU) byte { compare(c, c.X); return 0 }
func opCPY(c *CPU) byte { compare(c, c.Y); return 0 }

func opBIT(c *CPU) byte {
	c.setFlag(flagZ, c.A&c.fetched == 0)
	c.setFlag(flagV, c.fetched&0x40 != 0)
	c.setFlag(flagN, c.fetched&0x80 != 0)
	return 0
}

func opINC(c *CPU) byte { v := c.fetched + 1; c.writeBack(v); c.setZN(v); return 0 }
func opDEC(c *CPU) byte { v := c.fetched - 1; c.writeBack(v); c.setZN(v); return 0 }
func opINX(c *CPU) byte { c.X++; c.setZN(c.X); return 0 }
func opINY(c *CPU) byte { c.Y++; c.setZN(c.Y); return 0 }
func opDEX(c *CPU) byte { c.X--; c.setZN(c.X); return 0 }
func opDEY(c *CPU) byte { c.Y--; c.setZN(c.Y); return 0 }

func opLDA(c *CPU) byte { c.A = c.fetched; c.setZN(c.A); return 0 }
func opLDX(c *CPU) byte { c.X = c.fetched; c.setZN(c.X); return 0 }
func opLDY(c *CPU) byte { c.Y = c.fetched; c.setZN(c.Y); return 0 }
func opSTA(c *CPU) byte { c.write(c.addrAbs, c.A); return 0 }
func opSTX(c *CPU) byte { c.write(c.addrAbs, c.X); return 0 }
func opSTY(c *CPU) byte { c.write(c.addrAbs, c.Y); return 0 }

func opTAX(c *CPU) byte { c.X = c.A; c.setZN(c.X); return 0 }
func opTAY(c *CPU) byte { c.Y = c.A; c.setZN(c.Y); return 0 }
func opTXA(c *CPU) byte { c.A = c.X; c.setZN(c.A); return 0 }
func opTYA(c *CPU) byte { c.A = c.Y; c.setZN(c.A); return 0 }
func opTSX(c *CPU) byte { c.X = c.SP; c.setZN(c.X); return 0 }
func opTXS(c *CPU) byte { c.SP = c.X; return 0 }

func opPHA(c *CPU) byte { c.push(c.A); return 0 }
func opPHP(c *CPU) byte { c.pushStatus(true); return 0 }
func opPLA(c *CPU) byte { c.A = c.pull(); c.setZN(c.A); return 0 }
func opPLP(c *CPU) byte { c.pullStatus(); return 0 }

func opJMP(c *CPU) byte { c.PC = c.addrAbs; return 0 }
func opJSR(c *CPU) byte { c.push16(c.PC - 1); c.PC = c.addrAbs; return 0 }
func opRTS(c *CPU) byte { c.PC = c.pull16() + 1; return 0 }

func opRTI(c *CPU) byte {
	c.pullStatus()
	c.PC = c.pull16()
	return 0
}

// opBRK implements the software-interrupt form, sharing the IRQ
// vector and pushing P with B=1 set, per spec.md §4.3.
func opBRK(c *CPU) byte {
	c.PC++
	c.push16(c.PC)
	c.pushStatus(true)
	c.setFlag(flagI, true)
	c.PC = c.read16(vectorIRQ)
	return 0
}

func opBCC(c *CPU) byte { return c.branch(!c.GetFlag(flagC)) }
func opBCS(c *CPU) byte { return c.branch(c.GetFlag(flagC)) }
func opBEQ(c *CPU) byte { return c.branch(c.GetFlag(flagZ)) }
func opBNE(c *CPU) byte { return c.branch(!c.GetFlag(flagZ)) }
func opBMI(c *CPU) byte { return c.branch(c.GetFlag(flagN)) }
func opBPL(c *CPU) byte { return c.branch(!c.GetFlag(flagN)) }
func opBVC(c *CPU) byte { return c.branch(!c.GetFlag(flagV)) }
func opBVS(c *CPU) byte { return c.branch(c.GetFlag(flagV)) }

func opCLC(c *CPU) byte { c.setFlag(flagC, false); return 0 }
func opCLD(c *CPU) byte { c.setFlag(flagD, false); return 0 }
func opCLI(c *CPU) byte { c.setFlag(flagI, false); return 0 }
func opCLV(c *CPU) byte { c.setFlag(flagV, false); return 0 }
func opSEC(c *CPU) byte { c.setFlag(flagC, true); return 0 }
func opSED(c *CPU) byte { c.setFlag(flagD, true); return 0 }
func opSEI(c *CPU) byte { c.setFlag(flagI, true); return 0 }

func opNOP(c *CPU) byte { return 0 }

// buildOpcodeTable fills in the documented 6502 instruction set. Every
// unlisted slot keeps its zero value (operate == nil), which Tick
// treats as a fatal unknown opcode rather than emulating the
// undocumented instructions real NROM carts never rely on.
func buildOpcodeTable() [256]cpuInstruction {
	var t [256]cpuInstruction

	set := func(op byte, name string, fn func(*CPU) byte, mode func(*CPU) bool, cycles byte, pagePenalty bool) {
		t[op] = cpuInstruction{name: name, operate: fn, mode: mode, cycles: cycles, pagePenalty: pagePenalty}
	}
	setAcc := func(op byte, name string, fn func(*CPU) byte, mode func(*CPU) bool, cycles byte) {
		t[op] = cpuInstruction{name: name, operate: fn, mode: mode, cycles: cycles, accumulator: true}
	}

	imp, imm := (*CPU).modeIMP, (*CPU).modeIMM
	zp0, zpx, zpy := (*CPU).modeZP0, (*CPU).modeZPX, (*CPU).modeZPY
	abs, abx, aby := (*CPU).modeABS, (*CPU).modeABX, (*CPU).modeABY
	rel, ind := (*CPU).modeREL, (*CPU).modeIND
	izx, izy := (*CPU).modeIZX, (*CPU).modeIZY

	// ADC
	set(0x69, "ADC", opADC, imm, 2, false)
	set(0x65, "ADC", opADC, zp0, 3, false)
	set(0x75, "ADC", opADC, zpx, 4, false)
	set(0x6D, "ADC", opADC, abs, 4, false)
	set(0x7D, "ADC", opADC, abx, 4, true)
	set(0x79, "ADC", opADC, aby, 4, true)
	set(0x61, "ADC", opADC, izx, 6, false)
	set(0x71, "ADC", opADC, izy, 5, true)

	// SBC
	set(0xE9, "SBC", opSBC, imm, 2, false)
	set(0xE5, "SBC", opSBC, zp0, 3, false)
	set(0xF5, "SBC", opSBC, zpx, 4, false)
	set(0xED, "SBC", opSBC, abs, 4, false)
	set(0xFD, "SBC", opSBC, abx, 4, true)
	set(0xF9, "SBC", opSBC, aby, 4, true)
	set(0xE1, "SBC", opSBC, izx, 6, false)
	set(0xF1, "SBC", opSBC, izy, 5, true)

	// AND
	set(0x29, "AND", opAND, imm, 2, false)
	set(0x25, "AND", opAND, zp0, 3, false)
	set(0x35, "AND", opAND, zpx, 4, false)
	set(0x2D, "AND", opAND, abs, 4, false)
	set(0x3D, "AND", opAND, abx, 4, true)
	set(0x39, "AND", opAND, aby, 4, true)
	set(0x21, "AND", opAND, izx, 6, false)
	set(0x31, "AND", opAND, izy, 5, true)

	// ORA
	set(0x09, "ORA", opORA, imm, 2, false)
	set(0x05, "ORA", opORA, zp0, 3, false)
	set(0x15, "ORA", opORA, zpx, 4, false)
	set(0x0D, "ORA", opORA, abs, 4, false)
	set(0x1D, "ORA", opORA, abx, 4, true)
	set(0x19, "ORA", opORA, aby, 4, true)
	set(0x01, "ORA", opORA, izx, 6, false)
	set(0x11, "ORA", opORA, izy, 5, true)

	// EOR
	set(0x49, "EOR", opEOR, imm, 2, false)
	set(0x45, "EOR", opEOR, zp0, 3, false)
	set(0x55, "EOR", opEOR, zpx, 4, false)
	set(0x4D, "EOR", opEOR, abs, 4, false)
	set(0x5D, "EOR", opEOR, abx, 4, true)
	set(0x59, "EOR", opEOR, aby, 4, true)
	set(0x41, "EOR", opEOR, izx, 6, false)
	set(0x51, "EOR", opEOR, izy, 5, true)

	// ASL / LSR / ROL / ROR (accumulator + memory forms)
	setAcc(0x0A, "ASL", opASL, imp, 2)
	set(0x06, "ASL", opASL, zp0, 5, false)
	set(0x16, "ASL", opASL, zpx, 6, false)
	set(0x0E, "ASL", opASL, abs, 6, false)
	set(0x1E, "ASL", opASL, abx, 7, false)

	setAcc(0x4A, "LSR", opLSR, imp, 2)
	set(0x46, "LSR", opLSR, zp0, 5, false)
	set(0x56, "LSR", opLSR, zpx, 6, false)
	set(0x4E, "LSR", opLSR, abs, 6, false)
	set(0x5E, "LSR", opLSR, abx, 7, false)

	setAcc(0x2A, "ROL", opROL, imp, 2)
	set(0x26, "ROL", opROL, zp0, 5, false)
	set(0x36, "ROL", opROL, zpx, 6, false)
	set(0x2E, "ROL", opROL, abs, 6, false)
	set(0x3E, "ROL", opROL, abx, 7, false)

	setAcc(0x6A, "ROR", opROR, imp, 2)
	set(0x66, "ROR", opROR, zp0, 5, false)
	set(0x76, "ROR", opROR, zpx, 6, false)
	set(0x6E, "ROR", opROR, abs, 6, false)
	set(0x7E, "ROR", opROR, abx, 7, false)

	// CMP / CPX / CPY
	set(0xC9, "CMP", opCMP, imm, 2, false)
	set(0xC5, "CMP", opCMP, zp0, 3, false)
	set(0xD5, "CMP", opCMP, zpx, 4, false)
	set(0xCD, "CMP", opCMP, abs, 4, false)
	set(0xDD, "CMP", opCMP, abx, 4, true)
	set(0xD9, "CMP", opCMP, aby, 4, true)
	set(0xC1, "CMP", opCMP, izx, 6, false)
	set(0xD1, "CMP", opCMP, izy, 5, true)
	set(0xE0, "CPX", opCPX, imm, 2, false)
	set(0xE4, "CPX", opCPX, zp0, 3, false)
	set(0xEC, "CPX", opCPX, abs, 4, false)
	set(0xC0, "CPY", opCPY, imm, 2, false)
	set(0xC4, "CPY", opCPY, zp0, 3, false)
	set(0xCC, "CPY", opCPY, abs, 4, false)

	// BIT
	set(0x24, "BIT", opBIT, zp0, 3, false)
	set(0x2C, "BIT", opBIT, abs, 4, false)

	// INC / DEC
	set(0xE6, "INC", opINC, zp0, 5, false)
	set(0xF6, "INC", opINC, zpx, 6, false)
	set(0xEE, "INC", opINC, abs, 6, false)
	set(0xFE, "INC", opINC, abx, 7, false)
	set(0xC6, "DEC", opDEC, zp0, 5, false)
	set(0xD6, "DEC", opDEC, zpx, 6, false)
	set(0xCE, "DEC", opDEC, abs, 6, false)
	set(0xDE, "DEC", opDEC, abx, 7, false)
	set(0xE8, "INX", opINX, imp, 2, false)
	set(0xC8, "INY", opINY, imp, 2, false)
	set(0xCA, "DEX", opDEX, imp, 2, false)
	set(0x88, "DEY", opDEY, imp, 2, false)

	// LDA / LDX / LDY
	set(0xA9, "LDA", opLDA, imm, 2, false)
	set(0xA5, "LDA", opLDA, zp0, 3, false)
	set(0xB5, "LDA", opLDA, zpx, 4, false)
	set(0xAD, "LDA", opLDA, abs, 4, false)
	set(0xBD, "LDA", opLDA, abx, 4, true)
	set(0xB9, "LDA", opLDA, aby, 4, true)
	set(0xA1, "LDA", opLDA, izx, 6, false)
	set(0xB1, "LDA", opLDA, izy, 5, true)
	set(0xA2, "LDX", opLDX, imm, 2, false)
	set(0xA6, "LDX", opLDX, zp0, 3, false)
	set(0xB6, "LDX", opLDX, zpy, 4, false)
	set(0xAE, "LDX", opLDX, abs, 4, false)
	set(0xBE, "LDX", opLDX, aby, 4, true)
	set(0xA0, "LDY", opLDY, imm, 2, false)
	set(0xA4, "LDY", opLDY, zp0, 3, false)
	set(0xB4, "LDY", opLDY, zpx, 4, false)
	set(0xAC, "LDY", opLDY, abs, 4, false)
	set(0xBC, "LDY", opLDY, abx, 4, true)

	// STA / STX / STY
	set(0x85, "STA", opSTA, zp0, 3, false)
	set(0x95, "STA", opSTA, zpx, 4, false)
	set(0x8D, "STA", opSTA, abs, 4, false)
	set(0x9D, "STA", opSTA, abx, 5, false)
	set(0x99, "STA", opSTA, aby, 5, false)
	set(0x81, "STA", opSTA, izx, 6, false)
	set(0x91, "STA", opSTA, izy, 6, false)
	set(0x86, "STX", opSTX, zp0, 3, false)
	set(0x96, "STX", opSTX, zpy, 4, false)
	set(0x8E, "STX", opSTX, abs, 4, false)
	set(0x84, "STY", opSTY, zp0, 3, false)
	set(0x94, "STY", opSTY, zpx, 4, false)
	set(0x8C, "STY", opSTY, abs, 4, false)

	// register transfers
	set(0xAA, "TAX", opTAX, imp, 2, false)
	set(0xA8, "TAY", opTAY, imp, 2, false)
	set(0x8A, "TXA", opTXA, imp, 2, false)
	set(0x98, "TYA", opTYA, imp, 2, false)
	set(0xBA, "TSX", opTSX, imp, 2, false)
	set(0x9A, "TXS", opTXS, imp, 2, false)

	// stack
	set(0x48, "PHA", opPHA, imp, 3, false)
	set(0x08, "PHP", opPHP, imp, 3, false)
	set(0x68, "PLA", opPLA, imp, 4, false)
	set(0x28, "PLP", opPLP, imp, 4, false)

	// control flow
	set(0x4C, "JMP", opJMP, abs, 3, false)
	set(0x6C, "JMP", opJMP, ind, 5, false)
	set(0x20, "JSR", opJSR, abs, 6, false)
	set(0x60, "RTS", opRTS, imp, 6, false)
	set(0x40, "RTI", opRTI, imp, 6, false)
	set(0x00, "BRK", opBRK, imp, 7, false)

	// branches
	set(0x90, "BCC", opBCC, rel, 2, false)
	set(0xB0, "BCS", opBCS, rel, 2, false)
	set(0xF0, "BEQ", opBEQ, rel, 2, false)
	set(0xD0, "BNE", opBNE, rel, 2, false)
	set(0x30, "BMI", opBMI, rel, 2, false)
	set(0x10, "BPL", opBPL, rel, 2, false)
	set(0x50, "BVC", opBVC, rel, 2, false)
	set(0x70, "BVS", opBVS, rel, 2, false)

	// flag ops
	set(0x18, "CLC", opCLC, imp, 2, false)
	set(0xD8, "CLD", opCLD, imp, 2, false)
	set(0x58, "CLI", opCLI, imp, 2, false)
	set(0xB8, "CLV", opCLV, imp, 2, false)
	set(0x38, "SEC", opSEC, imp, 2, false)
	set(0xF8, "SED", opSED, imp, 2, false)
	set(0x78, "SEI", opSEI, imp, 2, false)

	set(0xEA, "NOP", opNOP, imp, 2, false)

	return t
}
