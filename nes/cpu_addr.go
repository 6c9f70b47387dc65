package nes

// Addressing-mode functions resolve c.addrAbs (or, for Relative, leave
// the branch offset in addrRel for the branch operation to combine
// with PC) and report whether the effective address crosses a page
// boundary from the one it was indexed from, per spec.md §4.3's
// thirteen addressing modes.

func (c *CPU) modeIMP() bool {
	return false
}

func (c *CPU) modeIMM() bool {
	c.addrAbs = c.PC
	c.PC++
	return false
}

func (c *CPU) modeZP0() bool {
	c.addrAbs = uint16(c.read(c.PC))
	c.PC++
	return false
}

func (c *CPU) modeZPX() bool {
	c.addrAbs = uint16(c.read(c.PC)+c.X) & 0x00FF
	c.PC++
	return false
}

func (c *CPU) modeZPY() bool {
	c.addrAbs = uint16(c.read(c.PC)+c.Y) & 0x00FF
	c.PC++
	return false
}

func (c *CPU) modeABS() bool {
	c.addrAbs = c.read16(c.PC)
	c.PC += 2
	return false
}

func (c *CPU) modeABX() bool {
	base := c.read16(c.PC)
	c.PC += 2
	c.addrAbs = base + uint16(c.X)
	return pageCrossed(base, c.addrAbs)
}

func (c *CPU) modeABY() bool {
	base := c.read16(c.PC)
	c.PC += 2
	c.addrAbs = base + uint16(c.Y)
	return pageCrossed(base, c.addrAbs)
}

func (c *CPU) modeREL() bool {
	off := uint16(c.read(c.PC))
	c.PC++
	if off&0x80 != 0 {
		off |= 0xFF00
	}
	c.addrRel = off
	return false
}

// modeIND reproduces the famous 6502 indirect-JMP page-wrap bug: if
// the pointer's low byte is $FF, the high byte is fetched from the
// start of the same page instead of the next one.
func (c *CPU) modeIND() bool {
	ptr := c.read16(c.PC)
	c.PC += 2
	var lo, hi uint16
	lo = uint16(c.read(ptr))
	if ptr&0x00FF == 0x00FF {
		hi = uint16(c.read(ptr & 0xFF00))
	} else {
		hi = uint16(c.read(ptr + 1))
	}
	c.addrAbs = hi<<8 | lo
	return false
}

func (c *CPU) modeIZX() bool {
	base := c.read(c.PC)
	c.PC++
	ptr := uint16(base+c.X) & 0x00FF
	lo := uint16(c.read(ptr))
	hi := uint16(c.read((ptr + 1) & 0x00FF))
	c.addrAbs = hi<<8 | lo
	return false
}

func (c *CPU) modeIZY() bool {
	base := c.read(c.PC)
	c.PC++
	lo := uint16(c.read(uint16(base)))
	hi := uint16(c.read(uint16(base+1) & 0x00FF))
	addr := hi<<8 | lo
	c.addrAbs = addr + uint16(c.Y)
	return pageCrossed(addr, c.addrAbs)
}
