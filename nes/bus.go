package nes

// Bus orchestrates the CPU, PPU, APU, Controller and Cartridge,
// dispatching CPU-visible addresses and driving OAM DMA (spec.md
// §4.6).
type Bus struct {
	wram [2048]byte

	cart       *Cartridge
	CPU        *CPU
	PPU        *PPU
	APU        *APU
	Controller *Controller

	dmaPage   byte
	dmaAddr   byte
	dmaData   byte
	dmaActive bool
	dmaWait   bool

	cpuTicks     uint64
	elapsedTicks uint64
}

// NewBus wires a freshly loaded Cartridge into a complete system.
func NewBus(cart *Cartridge) *Bus {
	b := &Bus{cart: cart}
	b.PPU = newPPU(cart)
	b.APU = newAPU(b)
	b.CPU = newCPU(b)
	b.Controller = NewController()
	return b
}

// Reset drives the RST signal into the CPU and PPU.
func (b *Bus) Reset() {
	b.CPU.Reset()
	b.PPU.Reset()
	b.dmaActive, b.dmaWait = false, false
	b.elapsedTicks, b.cpuTicks = 0, 0
}

// cpuRead implements the CPU address map from spec.md §4.6. The
// cartridge is consulted first: whatever it claims takes precedence
// over the fixed I/O map.
func (b *Bus) cpuRead(addr uint16) byte {
	if v, ok := b.cart.BusRead(addr); ok {
		return v
	}
	switch {
	case addr <= 0x1FFF:
		return b.wram[addr&0x07FF]
	case addr <= 0x3FFF:
		return b.PPU.ReadRegister(byte(addr & 7))
	case addr == 0x4015:
		return b.APU.ReadStatus()
	case addr == 0x4016, addr == 0x4017:
		return b.Controller.Read()
	default:
		return 0
	}
}

func (b *Bus) cpuWrite(addr uint16, value byte) {
	if b.cart.BusWrite(addr, value) {
		return
	}
	switch {
	case addr <= 0x1FFF:
		b.wram[addr&0x07FF] = value
	case addr <= 0x3FFF:
		b.PPU.WriteRegister(byte(addr&7), value)
	case addr == 0x4014:
		b.dmaPage = value
		b.dmaAddr = 0
		b.dmaActive = true
		b.dmaWait = true
	case addr == 0x4016:
		b.Controller.Strobe(value)
	case addr <= 0x4013, addr == 0x4015, addr == 0x4017:
		b.APU.WriteRegister(addr, value)
	}
}

func (b *Bus) tickDMA() {
	if b.dmaWait {
		if b.cpuTicks%2 == 1 {
			b.dmaWait = false
		}
		return
	}
	if b.cpuTicks%2 == 0 {
		b.dmaData = b.cpuRead(uint16(b.dmaPage)<<8 | uint16(b.dmaAddr))
		return
	}
	b.PPU.WriteOAMByte(b.dmaAddr, b.dmaData)
	b.dmaAddr++
	if b.dmaAddr == 0 {
		b.dmaActive = false
	}
}

// Tick advances every component by exactly one master clock tick, in
// the fixed order spec.md §4.6 mandates: PPU first, then (every third
// tick) APU followed by CPU-or-DMA, then NMI dispatch, then the
// elapsed-cycle counter. A non-nil error means the CPU hit one of the
// two fatal internal-invariant conditions in spec.md §7.
func (b *Bus) Tick() error {
	b.PPU.Tick()

	var cpuErr error
	if b.elapsedTicks%3 == 0 {
		b.APU.Tick()
		if b.dmaActive {
			b.tickDMA()
		} else {
			cpuErr = b.CPU.Tick()
		}
		b.cpuTicks++
	}

	if b.PPU.ConsumeNMI() {
		b.CPU.NMI()
	}

	b.elapsedTicks++
	return cpuErr
}

// FrameBuffer exposes the PPU's completed frame for a display driver.
func (b *Bus) FrameBuffer() *[256 * 240]uint32 { return b.PPU.FrontBuffer() }

// SetButtons forwards a driver's polled button state to controller 1.
// A second controller is out of scope (spec.md §1 Non-goals).
func (b *Bus) SetButtons(buttons [8]bool) { b.Controller.SetButtons(buttons) }

// RunFrame ticks the bus until a frame completes, returning the
// number of master ticks consumed. Intended for a frame-paced driver
// (spec.md §4.6 "scheduling model").
func (b *Bus) RunFrame() (uint64, error) {
	b.PPU.FrameComplete = false
	var ticks uint64
	for !b.PPU.FrameComplete {
		if err := b.Tick(); err != nil {
			return ticks, err
		}
		ticks++
	}
	b.APU.EndFrame(uint32(b.cpuTicks))
	return ticks, nil
}
