package nes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestPPU() *PPU {
	cart := newCartridge(make([]byte, prgBankSize), make([]byte, chrBankSize), true, MirrorHorizontal, newMapper0(1))
	return newPPU(cart)
}

func TestAddressPortLatchesTIntoV(t *testing.T) {
	p := newTestPPU()
	p.WriteRegister(6, 0x21) // high byte, w=0 -> w=1
	p.WriteRegister(6, 0x05) // low byte, w=1 -> v = t, w=0

	assert.Equal(t, p.t, p.v)
	assert.Equal(t, uint16(0x2105), p.v)
	assert.False(t, p.w)
}

func TestStatusReadClearsVBlankAndLatch(t *testing.T) {
	p := newTestPPU()
	p.status |= statusVBlank
	p.w = true

	result := p.ReadRegister(2)
	assert.Equal(t, statusVBlank, result&0xE0)
	assert.False(t, p.GetStatusVBlank())
	assert.False(t, p.w)
}

// GetStatusVBlank is a tiny test-only accessor; kept here rather than
// on PPU itself since nothing outside tests needs to peek at raw
// status bits.
func (p *PPU) GetStatusVBlank() bool { return p.status&statusVBlank != 0 }

func TestPaletteAliasing(t *testing.T) {
	p := newTestPPU()
	p.ppuWrite(0x3F00, 0x0A)
	p.ppuWrite(0x3F04, 0x0B)

	assert.Equal(t, byte(0x0A), p.ppuRead(0x3F10)) // $10 aliases $00
	assert.Equal(t, byte(0x0B), p.ppuRead(0x3F14)) // $14 aliases $04
	assert.Equal(t, byte(0x0A), p.ppuRead(0x3F00))
}

func TestFrameCompletePulsesAtEndOfScanline260(t *testing.T) {
	p := newTestPPU()
	p.scanline = 260
	p.dot = 340
	p.Tick()

	assert.True(t, p.FrameComplete)
	assert.Equal(t, -1, p.scanline)
	assert.Equal(t, 0, p.dot)
}

// TestOddFrameSkipsDotZero covers spec.md end-to-end scenario 3: with
// rendering enabled, an odd frame's scanline-0 dot 0 is skipped outright
// (the pre-render/visible boundary behaves like the real PPU's shortened
// odd frame); with rendering disabled, or on an even frame, no dot is
// skipped.
func TestOddFrameSkipsDotZero(t *testing.T) {
	enabled := newTestPPU()
	enabled.mask = maskShowBg
	enabled.scanline, enabled.dot, enabled.oddFrame = 0, 0, true
	enabled.Tick()
	assert.Equal(t, 2, enabled.dot, "odd frame + rendering enabled skips dot 0")

	disabledRendering := newTestPPU()
	disabledRendering.scanline, disabledRendering.dot, disabledRendering.oddFrame = 0, 0, true
	disabledRendering.Tick()
	assert.Equal(t, 1, disabledRendering.dot, "rendering disabled: no skip even on an odd frame")

	evenFrame := newTestPPU()
	evenFrame.mask = maskShowBg
	evenFrame.scanline, evenFrame.dot, evenFrame.oddFrame = 0, 0, false
	evenFrame.Tick()
	assert.Equal(t, 1, evenFrame.dot, "even frame: no skip even with rendering enabled")
}

// TestSpriteZeroHitTransitionsStatusBit covers spec.md end-to-end
// scenario 6: sprite 0's opaque pixel overlapping an opaque background
// pixel within dots 1-257, with both layers enabled, flips
// Status.sprite-0-hit from 0 to 1.
func TestSpriteZeroHitTransitionsStatusBit(t *testing.T) {
	p := newTestPPU()
	p.mask = maskShowBg | maskShowSprite | maskShowBgLeft | maskShowSpriteLeft
	p.scanline = 10
	p.dot = 10 // within dots 1-257

	p.fineX = 0
	p.bgPatternLo = 0x8000 // opaque background pixel (plane 0 bit set)

	p.secCount = 1
	p.secOAM[0] = spriteEntry{x: 0}
	p.spriteIsZero[0] = true
	p.spritePatternLo[0] = 0x80 // opaque sprite pixel (plane 0 bit set)

	assert.False(t, p.status&statusSprite0 != 0, "sprite-0-hit must start clear")
	p.renderPixel()
	assert.True(t, p.status&statusSprite0 != 0, "overlapping opaque pixels must set sprite-0-hit")
}

// TestSpriteZeroHitRequiresOpaqueBackground confirms an opaque sprite-0
// pixel alone, without an opaque background pixel underneath it, does
// not set the hit flag.
func TestSpriteZeroHitRequiresOpaqueBackground(t *testing.T) {
	p := newTestPPU()
	p.mask = maskShowBg | maskShowSprite | maskShowBgLeft | maskShowSpriteLeft
	p.scanline = 10
	p.dot = 10

	p.secCount = 1
	p.secOAM[0] = spriteEntry{x: 0}
	p.spriteIsZero[0] = true
	p.spritePatternLo[0] = 0x80

	p.renderPixel()
	assert.False(t, p.status&statusSprite0 != 0, "transparent background must not set sprite-0-hit")
}
