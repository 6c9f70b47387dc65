package nes

// Control register bits (spec.md §4.4d port 0).
const (
	ctrlNametableX  byte = 1 << 0
	ctrlNametableY  byte = 1 << 1
	ctrlVRAMInc     byte = 1 << 2
	ctrlSpritePat   byte = 1 << 3
	ctrlBgPat       byte = 1 << 4
	ctrlSprite16    byte = 1 << 5
	ctrlMasterSlave byte = 1 << 6
	ctrlNMI         byte = 1 << 7
)

// Mask register bits.
const (
	maskGrayscale      byte = 1 << 0
	maskShowBgLeft     byte = 1 << 1
	maskShowSpriteLeft byte = 1 << 2
	maskShowBg         byte = 1 << 3
	maskShowSprite     byte = 1 << 4
)

// Status register bits.
const (
	statusOverflow byte = 1 << 5
	statusSprite0  byte = 1 << 6
	statusVBlank   byte = 1 << 7
)

type spriteEntry struct {
	y, id, attr, x byte
}

// PPU implements the 341-dot by 262-scanline background and sprite
// pipelines of spec.md §4.4/§4.4b/§4.4c, one dot per Tick.
type PPU struct {
	cart *Cartridge

	nametable  [2][1024]byte
	paletteRAM [32]byte
	oam        [256]byte
	oamAddr    byte

	control byte
	mask    byte
	status  byte

	v, t  uint16
	fineX byte
	w     bool

	dataBuffer byte

	scanline int
	dot      int
	oddFrame bool

	nextTileID   byte
	nextTileAttr byte
	nextTileLo   byte
	nextTileHi   byte

	bgPatternLo, bgPatternHi uint16
	bgAttrLo, bgAttrHi       uint16

	secOAM             [8]spriteEntry
	spriteIsZero       [8]bool
	spritePatternLo    [8]byte
	spritePatternHi    [8]byte
	secCount           int
	sprite0HitPossible bool

	buffers [2][256 * 240]uint32
	active  int

	FrameComplete bool
	nmiRaised     bool
}

func newPPU(cart *Cartridge) *PPU {
	return &PPU{cart: cart, scanline: -1}
}

// Reset clears scroll/shift state, matching the real chip's behavior
// on the RST signal (spec.md §3 "Lifecycles").
func (p *PPU) Reset() {
	p.v, p.t = 0, 0
	p.fineX, p.w = 0, false
	p.dataBuffer = 0
	p.control, p.mask, p.status = 0, 0, 0
	p.scanline, p.dot = -1, 0
	p.oddFrame = false
}

func (p *PPU) renderingEnabled() bool { return p.mask&(maskShowBg|maskShowSprite) != 0 }

// ConsumeNMI reports and clears a pending NMI, for the Bus to dispatch
// to the CPU exactly once per vblank entry (spec.md §4.6).
func (p *PPU) ConsumeNMI() bool {
	if p.nmiRaised {
		p.nmiRaised = false
		return true
	}
	return false
}

// FrontBuffer returns the completed frame, safe to read until the next
// FrameComplete pulse (spec.md §4.4c double buffering).
func (p *PPU) FrontBuffer() *[256 * 240]uint32 {
	return &p.buffers[1-p.active]
}

// WriteOAMByte is used by the Bus's OAM-DMA state machine.
func (p *PPU) WriteOAMByte(addr byte, value byte) { p.oam[addr] = value }

// ReadRegister services a CPU read of $2000-$2007 (mirrored every 8
// bytes by the Bus before calling in).
func (p *PPU) ReadRegister(reg byte) byte {
	switch reg {
	case 2:
		result := (p.status & 0xE0) | (p.dataBuffer & 0x1F)
		p.status &^= statusVBlank
		p.w = false
		return result
	case 4:
		return p.oam[p.oamAddr]
	case 7:
		addr := p.v & 0x3FFF
		var result byte
		if addr >= 0x3F00 {
			result = p.paletteRead(addr)
		} else {
			result = p.dataBuffer
		}
		p.dataBuffer = p.ppuRead(addr)
		p.advanceV()
		return result
	default:
		return 0
	}
}

// WriteRegister services a CPU write of $2000-$2007.
func (p *PPU) WriteRegister(reg byte, value byte) {
	switch reg {
	case 0:
		p.control = value
		p.t = (p.t &^ 0x0C00) | (uint16(value&0x03) << 10)
	case 1:
		p.mask = value
	case 3:
		p.oamAddr = value
	case 4:
		p.oam[p.oamAddr] = value
		p.oamAddr++
	case 5:
		if !p.w {
			p.fineX = value & 0x07
			p.t = (p.t &^ 0x001F) | uint16(value>>3)
			p.w = true
		} else {
			p.t = (p.t &^ 0x73E0) | (uint16(value&0x07) << 12) | (uint16(value>>3) << 5)
			p.w = false
		}
	case 6:
		if !p.w {
			p.t = (p.t & 0x00FF) | (uint16(value&0x3F) << 8)
			p.w = true
		} else {
			p.t = (p.t & 0xFF00) | uint16(value)
			p.v = p.t
			p.w = false
		}
	case 7:
		p.ppuWrite(p.v, value)
		p.advanceV()
	}
}

func (p *PPU) advanceV() {
	if p.control&ctrlVRAMInc != 0 {
		p.v += 32
	} else {
		p.v++
	}
}

func (p *PPU) paletteIndex(addr uint16) uint16 {
	idx := addr & 0x1F
	switch idx {
	case 0x10, 0x14, 0x18, 0x1C:
		idx -= 0x10
	}
	return idx
}

func (p *PPU) paletteRead(addr uint16) byte { return p.paletteRAM[p.paletteIndex(addr)] }

func (p *PPU) ppuRead(addr uint16) byte {
	addr &= 0x3FFF
	switch {
	case addr < 0x2000:
		v, _ := p.cart.PPURead(addr)
		return v
	case addr < 0x3F00:
		phys := p.cart.MirrorAddress(addr)
		return p.nametable[phys/0x0400][phys%0x0400]
	default:
		return p.paletteRead(addr)
	}
}

func (p *PPU) ppuWrite(addr uint16, value byte) {
	addr &= 0x3FFF
	switch {
	case addr < 0x2000:
		p.cart.PPUWrite(addr, value)
	case addr < 0x3F00:
		phys := p.cart.MirrorAddress(addr)
		p.nametable[phys/0x0400][phys%0x0400] = value
	default:
		p.paletteRAM[p.paletteIndex(addr)] = value
	}
}

func loopyCoarseX(l uint16) uint16 { return l & 0x001F }
func loopyCoarseY(l uint16) uint16 { return (l >> 5) & 0x001F }
func loopyNTX(l uint16) uint16     { return (l >> 10) & 1 }
func loopyNTY(l uint16) uint16     { return (l >> 11) & 1 }
func loopyFineY(l uint16) uint16   { return (l >> 12) & 0x7 }

func (p *PPU) incrementCoarseX() {
	if loopyCoarseX(p.v) == 31 {
		p.v &^= 0x001F
		p.v ^= 0x0400
	} else {
		p.v++
	}
}

func (p *PPU) incrementY() {
	if loopyFineY(p.v) < 7 {
		p.v += 0x1000
		return
	}
	p.v &^= 0x7000
	cy := loopyCoarseY(p.v)
	switch cy {
	case 29:
		cy = 0
		p.v ^= 0x0800
	case 31:
		cy = 0
	default:
		cy++
	}
	p.v = (p.v &^ 0x03E0) | (cy << 5)
}

func (p *PPU) copyX() { p.v = (p.v &^ 0x041F) | (p.t & 0x041F) }
func (p *PPU) copyY() { p.v = (p.v &^ 0x7BE0) | (p.t & 0x7BE0) }

func (p *PPU) loadBackgroundShifters() {
	p.bgPatternLo = (p.bgPatternLo &^ 0x00FF) | uint16(p.nextTileLo)
	p.bgPatternHi = (p.bgPatternHi &^ 0x00FF) | uint16(p.nextTileHi)
	var lo, hi uint16
	if p.nextTileAttr&0x01 != 0 {
		lo = 0xFF
	}
	if p.nextTileAttr&0x02 != 0 {
		hi = 0xFF
	}
	p.bgAttrLo = (p.bgAttrLo &^ 0x00FF) | lo
	p.bgAttrHi = (p.bgAttrHi &^ 0x00FF) | hi
}

func (p *PPU) shiftBackground() {
	p.bgPatternLo <<= 1
	p.bgPatternHi <<= 1
	p.bgAttrLo <<= 1
	p.bgAttrHi <<= 1
}

// Tick advances the PPU by one dot, per the event table in spec.md
// §4.4/§4.4b/§4.4c.
func (p *PPU) Tick() {
	if p.scanline == 0 && p.dot == 0 && p.oddFrame && p.renderingEnabled() {
		p.dot = 1
	}

	if p.scanline >= -1 && p.scanline <= 239 {
		p.tickBackground()
		p.tickSprites()
	}

	if p.scanline == 241 && p.dot == 1 {
		p.status |= statusVBlank
		if p.control&ctrlNMI != 0 {
			p.nmiRaised = true
		}
	}

	if p.scanline >= 0 && p.scanline < 240 && p.dot >= 1 && p.dot <= 257 {
		p.renderPixel()
	}

	p.dot++
	if p.dot > 340 {
		p.dot = 0
		p.scanline++
		if p.scanline > 260 {
			p.scanline = -1
			p.oddFrame = !p.oddFrame
			p.FrameComplete = true
			p.active ^= 1
		}
	}
}

func (p *PPU) tickBackground() {
	if p.scanline == -1 && p.dot == 1 {
		p.status &^= statusVBlank | statusOverflow | statusSprite0
		p.spritePatternLo = [8]byte{}
		p.spritePatternHi = [8]byte{}
	}

	if !p.renderingEnabled() {
		return
	}

	if (p.dot >= 2 && p.dot <= 257) || (p.dot >= 321 && p.dot <= 337) {
		p.shiftBackground()
		switch (p.dot - 1) % 8 {
		case 0:
			p.loadBackgroundShifters()
			p.nextTileID = p.ppuRead(0x2000 | (p.v & 0x0FFF))
		case 2:
			addr := uint16(0x23C0) | (loopyNTY(p.v) << 11) | (loopyNTX(p.v) << 10) | ((loopyCoarseY(p.v) >> 2) << 3) | (loopyCoarseX(p.v) >> 2)
			attr := p.ppuRead(addr)
			if loopyCoarseY(p.v)&0x02 != 0 {
				attr >>= 4
			}
			if loopyCoarseX(p.v)&0x02 != 0 {
				attr >>= 2
			}
			p.nextTileAttr = attr & 0x03
		case 4:
			base := uint16(0)
			if p.control&ctrlBgPat != 0 {
				base = 0x1000
			}
			p.nextTileLo = p.ppuRead(base + uint16(p.nextTileID)<<4 + loopyFineY(p.v))
		case 6:
			base := uint16(0)
			if p.control&ctrlBgPat != 0 {
				base = 0x1000
			}
			p.nextTileHi = p.ppuRead(base + uint16(p.nextTileID)<<4 + loopyFineY(p.v) + 8)
		case 7:
			p.incrementCoarseX()
		}
	}

	if p.dot == 256 {
		p.incrementY()
	}
	if p.dot == 257 {
		p.copyX()
	}
	if p.scanline == -1 && p.dot >= 280 && p.dot <= 304 {
		p.copyY()
	}
	if p.dot == 338 || p.dot == 340 {
		p.nextTileID = p.ppuRead(0x2000 | (p.v & 0x0FFF))
	}
}

func reverseBits(b byte) byte {
	b = (b&0xF0)>>4 | (b&0x0F)<<4
	b = (b&0xCC)>>2 | (b&0x33)<<2
	b = (b&0xAA)>>1 | (b&0x55)<<1
	return b
}

func (p *PPU) evaluateSprites() {
	for i := range p.secOAM {
		p.secOAM[i] = spriteEntry{0xFF, 0xFF, 0xFF, 0xFF}
		p.spriteIsZero[i] = false
	}
	p.secCount = 0
	p.sprite0HitPossible = false

	height := 8
	if p.control&ctrlSprite16 != 0 {
		height = 16
	}

	for i := 0; i < 64; i++ {
		y := p.oam[i*4]
		diff := p.scanline - int(y)
		if diff < 0 || diff >= height {
			continue
		}
		if p.secCount == 8 {
			p.status |= statusOverflow
			break
		}
		p.secOAM[p.secCount] = spriteEntry{y: y, id: p.oam[i*4+1], attr: p.oam[i*4+2], x: p.oam[i*4+3]}
		if i == 0 {
			p.sprite0HitPossible = true
			p.spriteIsZero[p.secCount] = true
		}
		p.secCount++
	}
}

func (p *PPU) fetchSpritePatterns() {
	height := 8
	if p.control&ctrlSprite16 != 0 {
		height = 16
	}
	for i := 0; i < p.secCount; i++ {
		e := p.secOAM[i]
		flipV := e.attr&0x80 != 0
		flipH := e.attr&0x40 != 0
		row := p.scanline - int(e.y)

		var addr uint16
		if height == 16 {
			tile := uint16(e.id &^ 1)
			half := uint16(e.id&1) << 12
			if flipV {
				row = 15 - row
			}
			if row >= 8 {
				tile++
				row -= 8
			}
			addr = half | tile<<4 | uint16(row)
		} else {
			base := uint16(0)
			if p.control&ctrlSpritePat != 0 {
				base = 0x1000
			}
			if flipV {
				row = 7 - row
			}
			addr = base | uint16(e.id)<<4 | uint16(row)
		}

		lo := p.ppuRead(addr)
		hi := p.ppuRead(addr + 8)
		if flipH {
			lo = reverseBits(lo)
			hi = reverseBits(hi)
		}
		p.spritePatternLo[i] = lo
		p.spritePatternHi[i] = hi
	}
}

func (p *PPU) shiftSprites() {
	for i := 0; i < p.secCount; i++ {
		if p.secOAM[i].x > 0 {
			p.secOAM[i].x--
		} else {
			p.spritePatternLo[i] <<= 1
			p.spritePatternHi[i] <<= 1
		}
	}
}

func (p *PPU) tickSprites() {
	if p.scanline < 0 || p.scanline > 239 || !p.renderingEnabled() {
		return
	}
	if p.dot == 257 {
		p.evaluateSprites()
	}
	if p.dot == 340 {
		p.fetchSpritePatterns()
	}
	if p.dot >= 1 && p.dot <= 257 {
		p.shiftSprites()
	}
}

// renderPixel implements spec.md §4.4c: resolve the background and
// sprite layers for the current dot, apply priority and sprite-zero
// detection, and write the chosen color into the back buffer.
func (p *PPU) renderPixel() {
	x := p.dot - 1

	var bgPixel, bgPalette byte
	if p.mask&maskShowBg != 0 && (x >= 8 || p.mask&maskShowBgLeft != 0) {
		bit := uint16(0x8000) >> p.fineX
		var p0, p1, a0, a1 byte
		if p.bgPatternLo&bit != 0 {
			p0 = 1
		}
		if p.bgPatternHi&bit != 0 {
			p1 = 1
		}
		bgPixel = p0 | p1<<1
		if p.bgAttrLo&bit != 0 {
			a0 = 1
		}
		if p.bgAttrHi&bit != 0 {
			a1 = 1
		}
		bgPalette = a0 | a1<<1
	}

	var spPixel, spPalette byte
	var spPriority, spIsZero bool
	if p.mask&maskShowSprite != 0 && (x >= 8 || p.mask&maskShowSpriteLeft != 0) {
		for i := 0; i < p.secCount; i++ {
			if p.secOAM[i].x != 0 {
				continue
			}
			lo := (p.spritePatternLo[i] >> 7) & 1
			hi := (p.spritePatternHi[i] >> 7) & 1
			px := lo | hi<<1
			if px == 0 {
				continue
			}
			spPixel = px
			spPalette = p.secOAM[i].attr & 0x03
			spPriority = p.secOAM[i].attr&0x20 == 0
			spIsZero = p.spriteIsZero[i]
			break
		}
	}

	var finalPixel, finalPalette byte
	switch {
	case bgPixel == 0 && spPixel == 0:
	case bgPixel == 0:
		finalPixel, finalPalette = spPixel, spPalette+4
	case spPixel == 0:
		finalPixel, finalPalette = bgPixel, bgPalette
	default:
		if spIsZero && p.mask&(maskShowBg|maskShowSprite) == maskShowBg|maskShowSprite {
			left := p.dot >= 1
			if p.mask&(maskShowBgLeft|maskShowSpriteLeft) != maskShowBgLeft|maskShowSpriteLeft {
				left = p.dot >= 9
			}
			if left && p.dot <= 257 {
				p.status |= statusSprite0
			}
		}
		if spPriority {
			finalPixel, finalPalette = spPixel, spPalette+4
		} else {
			finalPixel, finalPalette = bgPixel, bgPalette
		}
	}

	if x >= 256 {
		return
	}
	colorIdx := p.ppuRead(0x3F00+uint16(finalPalette)<<2+uint16(finalPixel)) & 0x3F
	if p.mask&maskGrayscale != 0 {
		colorIdx &= 0x30
	}
	p.buffers[p.active][p.scanline*256+x] = paletteRGBA[colorIdx]
}
