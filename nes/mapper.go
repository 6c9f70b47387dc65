package nes

// Mapper translates CPU and PPU addresses into offsets within a
// Cartridge's PRG/CHR storage, and declares whether a given address
// belongs to the cartridge at all. Each predicate returns the mapped
// offset and true when it claims the address, or false so the caller
// (Bus or PPU) can route the access elsewhere — the hardware simply
// ignores addresses nothing claims.
type Mapper interface {
	ShouldBusRead(addr uint16) (offset int, ok bool)
	ShouldBusWrite(addr uint16) (offset int, ok bool)
	ShouldPPURead(addr uint16) (offset int, ok bool)
	ShouldPPUWrite(addr uint16) (offset int, ok bool)
}

// NewMapper constructs the Mapper named by the cartridge's header. Only
// mapper 0 (NROM) is implemented; anything else is an ErrUnsupportedMapper
// per the Non-goals in spec.md §1 ("mappers beyond the simplest
// no-bank mapper").
func NewMapper(id byte, prgBanks int) (Mapper, error) {
	switch id {
	case 0:
		return newMapper0(prgBanks), nil
	default:
		logCart.Warnf("mapper %d has no implementation", id)
		return nil, &ErrUnsupportedMapper{ID: id}
	}
}

// mapper0 is NROM: CPU $8000-$FFFF maps straight onto the 32 KiB PRG
// image, mirroring the low 16 KiB when the cartridge carries only one
// PRG bank. PPU $0000-$1FFF maps straight onto CHR (RAM or ROM).
type mapper0 struct {
	prgBanks int
}

func newMapper0(prgBanks int) *mapper0 {
	return &mapper0{prgBanks: prgBanks}
}

func (m *mapper0) ShouldBusRead(addr uint16) (int, bool) {
	if addr < 0x8000 {
		return 0, false
	}
	offset := int(addr - 0x8000)
	if m.prgBanks == 1 {
		offset %= 0x4000
	}
	return offset, true
}

func (m *mapper0) ShouldBusWrite(addr uint16) (int, bool) {
	// NROM carries no bank-select registers and no battery SRAM; PRG
	// writes are ignored by real hardware.
	return 0, false
}

func (m *mapper0) ShouldPPURead(addr uint16) (int, bool) {
	if addr < 0x2000 {
		return int(addr), true
	}
	return 0, false
}

func (m *mapper0) ShouldPPUWrite(addr uint16) (int, bool) {
	if addr < 0x2000 {
		return int(addr), true
	}
	return 0, false
}
