package nes

import (
	"bytes"
	"fmt"
)

const (
	prgBankSize = 16 * 1024
	chrBankSize = 8 * 1024
	trainerSize = 512
	headerSize  = 16
)

var inesMagic = []byte("NES\x1a")

// LoadCartridge parses a raw iNES image (spec.md §6) and constructs a
// Cartridge with its Mapper wired up. It never touches the filesystem;
// the caller (the driver, out of the core's scope) is responsible for
// reading the file.
func LoadCartridge(image []byte) (*Cartridge, error) {
	if len(image) < headerSize {
		return nil, &ErrInvalidCartridge{Reason: "image shorter than the 16-byte header"}
	}
	header := image[:headerSize]
	if !bytes.Equal(header[:4], inesMagic) {
		return nil, &ErrInvalidCartridge{Reason: "missing \"NES\\x1a\" magic"}
	}

	prgBanks := int(header[4])
	chrBanks := int(header[5])
	flags6 := header[6]
	flags7 := header[7]

	if flags7&0x0C == 0x08 {
		return nil, &ErrInvalidCartridge{Reason: "NES 2.0 headers are not supported"}
	}

	mirror := MirrorHorizontal
	if flags6&0x08 != 0 {
		mirror = MirrorFour
	} else if flags6&0x01 != 0 {
		mirror = MirrorVertical
	}

	mapperID := (flags7 & 0xF0) | (flags6 >> 4)

	offset := headerSize
	if flags6&0x04 != 0 {
		offset += trainerSize
	}

	prgSize := prgBanks * prgBankSize
	if offset+prgSize > len(image) {
		return nil, &ErrInvalidCartridge{Reason: fmt.Sprintf("image too short for %d PRG bank(s)", prgBanks)}
	}
	prg := make([]byte, prgSize)
	copy(prg, image[offset:offset+prgSize])
	offset += prgSize

	chrIsRAM := chrBanks == 0
	var chr []byte
	if chrIsRAM {
		chr = make([]byte, chrBankSize)
	} else {
		chrSize := chrBanks * chrBankSize
		if offset+chrSize > len(image) {
			return nil, &ErrInvalidCartridge{Reason: fmt.Sprintf("image too short for %d CHR bank(s)", chrBanks)}
		}
		chr = make([]byte, chrSize)
		copy(chr, image[offset:offset+chrSize])
	}

	mapper, err := NewMapper(mapperID, prgBanks)
	if err != nil {
		return nil, err
	}

	logCart.WithFields(map[string]any{
		"prg_banks": prgBanks,
		"chr_banks": chrBanks,
		"mapper":    mapperID,
		"mirror":    mirror,
	}).Debug("loaded cartridge")

	return newCartridge(prg, chr, chrIsRAM, mirror, mapper), nil
}
