package memory

import (
	"fmt"
	"math"
)

const (
	kBANK_SIZE = 16384
	kBANK_MASK = uint16(0x3FFF)
)

// phromImage implements support for a PHROM data image up to the full
// 16K of a bank. Smaller power of 2 images simply mirror through the
// bank the same way an undersized mask ROM aliases its address lines.
type phromImage struct {
	rom  []uint8
	mask uint16
}

// NewPHROM returns a ROM for the given image. Any power of 2 size up
// to 16K can be handled and aliased.
func NewPHROM(rom []uint8) (ROM, error) {
	got := len(rom)
	if got == 0 || got > kBANK_SIZE || got&(got-1) != 0 {
		return nil, fmt.Errorf("invalid PHROM image. Must be a power of 2 and <= 16k in length. Got %d bytes", got)
	}
	mask := kBANK_MASK >> uint(math.Log2(float64(kBANK_SIZE/got)))
	p := &phromImage{
		rom:  rom,
		mask: mask,
	}
	return p, nil
}

// Read implements the ROM interface for Read.
// The address passed in is assumed to be a local offset within the
// owning bank and is masked down for undersized images.
func (p *phromImage) Read(addr uint16) uint8 {
	return p.rom[addr&p.mask]
}

// PowerOn implements the ROM interface for PowerOn.
func (p *phromImage) PowerOn() {}
