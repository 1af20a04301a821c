// Package bus is the main logic for pulling together one or more
// TMS6100 chips on a shared address/data bus and playing the host
// (VSP) side of the two bus commands. The actual chip protocol lives
// in the tms6100 package; most of the logic here fans the control and
// address lines out to every mounted chip and resolves the shared
// ADD8 line, including latching contention should two chips ever
// drive it at once.
package bus

import (
	"fmt"
	"sort"

	"github.com/speechemu/tms6100/memory"
	"github.com/speechemu/tms6100/tms6100"
)

const (
	kMASK_LOAD = uint32(0xFFFFF) // LOAD ADDRESS carries 20 bits.

	kNIBBLES     = 5
	kNIBBLE_BITS = 4
)

// Sampler receives a snapshot of the bus lines. It is called after
// every host driven transition which is enough to reconstruct a full
// waveform since the chips only change ADD8 in response to those
// transitions.
type Sampler interface {
	// Sample records the levels of M0, M1 and ADD8 plus whether ADD8
	// is currently being driven by a chip (false == tri-stated or
	// host driven).
	Sample(m0, m1, data, driven bool)
}

// line is a host driven input line fanned out to every chip.
type line struct {
	level bool
}

func (l *line) Input() bool {
	return l.level
}

// sharedPin is one chip's handle on the shared ADD8 line.
type sharedPin struct {
	b  *Bus
	id int
}

func (s *sharedPin) Input() bool {
	return s.b.dataLevel()
}

func (s *sharedPin) Drive(level bool) {
	s.b.drivers[s.id] = true
	s.b.levels[s.id] = level
}

func (s *sharedPin) Release() {
	s.b.drivers[s.id] = false
}

// Bus ties the mounted chips to a single set of host lines.
type Bus struct {
	chips []*tms6100.Chip
	banks []uint8

	m0Level bool
	m1Level bool
	add1    *line
	add2    *line
	add4    *line
	hostDat *line // Host side level for ADD8 during LOAD ADDRESS.

	drivers    []bool // Which chips currently drive ADD8.
	levels     []bool // The level each driving chip places on ADD8.
	contention bool   // Latched if two chips ever drove ADD8 at once.

	sampler Sampler
}

// BusDef defines the pieces needed to set up a populated bus.
type BusDef struct {
	// Roms maps bank select numbers to the PHROM images mounted on
	// the bus. One chip is created per entry.
	Roms map[uint8]memory.ROM

	// Sampler if non-nil receives a bus snapshot after every host
	// driven transition.
	Sampler Sampler

	// Debug if true will emit output from Debug() calls on every chip.
	Debug bool
}

// Init returns a bus with one powered on TMS6100 mounted per ROM image.
func Init(d *BusDef) (*Bus, error) {
	if len(d.Roms) == 0 {
		return nil, fmt.Errorf("at least one ROM must be mounted in def")
	}
	b := &Bus{
		add1:    &line{},
		add2:    &line{},
		add4:    &line{},
		hostDat: &line{},
		sampler: d.Sampler,
	}

	// Deterministic chip ordering keeps Debug output and error
	// attribution stable between runs.
	for bank := range d.Roms {
		b.banks = append(b.banks, bank)
	}
	sort.Slice(b.banks, func(i, j int) bool { return b.banks[i] < b.banks[j] })

	for id, bank := range b.banks {
		// Grow the ADD8 driver state before constructing the chip:
		// tms6100.Init resets the chip, which calls Release on its
		// sharedPin and indexes these slices by id.
		b.drivers = append(b.drivers, false)
		b.levels = append(b.levels, false)
		c, err := tms6100.Init(&tms6100.ChipDef{
			Bank:  bank,
			Rom:   d.Roms[bank],
			Add1:  b.add1,
			Add2:  b.add2,
			Add4:  b.add4,
			Data:  &sharedPin{b: b, id: id},
			Debug: d.Debug,
		})
		if err != nil {
			return nil, fmt.Errorf("can't initialize chip for bank %d: %v", bank, err)
		}
		b.chips = append(b.chips, c)
	}
	return b, nil
}

// dataLevel resolves the current level of the shared ADD8 line: a
// driving chip wins, otherwise the host side level shows through.
func (b *Bus) dataLevel() bool {
	for id, d := range b.drivers {
		if d {
			return b.levels[id]
		}
	}
	return b.hostDat.level
}

// driven returns whether any chip currently drives ADD8.
func (b *Bus) driven() bool {
	for _, d := range b.drivers {
		if d {
			return true
		}
	}
	return false
}

// Contention reports whether two chips have ever driven ADD8 at the
// same time. Once latched it stays set for the life of the bus.
func (b *Bus) Contention() bool {
	return b.contention
}

// Data returns the current level of the shared ADD8 line as an
// outside observer (the host) sees it.
func (b *Bus) Data() bool {
	return b.dataLevel()
}

func (b *Bus) sample() {
	if b.sampler != nil {
		b.sampler.Sample(b.m0Level, b.m1Level, b.dataLevel(), b.driven())
	}
}

func (b *Bus) m0(level bool) error {
	b.m0Level = level
	for i, c := range b.chips {
		if err := c.M0(level); err != nil {
			return fmt.Errorf("bank %d chip: %v", b.banks[i], err)
		}
	}
	b.settle()
	return nil
}

func (b *Bus) m1(level bool) error {
	b.m1Level = level
	// Any chip driving ADD8 gets the edge first. Its release is then
	// visible when the other chips sample their nibble off the line,
	// matching the electrical tri-state on M1. Without this the
	// serialized delivery would let an earlier chip read the stale
	// driven level as address bit 3.
	order := make([]int, 0, len(b.chips))
	for i := range b.chips {
		if b.drivers[i] {
			order = append(order, i)
		}
	}
	for i := range b.chips {
		if !b.drivers[i] {
			order = append(order, i)
		}
	}
	for _, i := range order {
		if err := b.chips[i].M1(level); err != nil {
			return fmt.Errorf("bank %d chip: %v", b.banks[i], err)
		}
	}
	b.settle()
	return nil
}

// settle runs after an edge has been delivered to every chip. Only
// now is contention checked: a bank handoff releases one chip and
// drives another on the same edge and the serialized delivery order
// in between isn't observable on a real bus.
func (b *Bus) settle() {
	cnt := 0
	for _, d := range b.drivers {
		if d {
			cnt++
		}
	}
	if cnt > 1 {
		b.contention = true
	}
	b.sample()
}

// PulseM0 swings M0 high then low, one complete host pulse.
func (b *Bus) PulseM0() error {
	if err := b.m0(true); err != nil {
		return err
	}
	return b.m0(false)
}

// Synchronize issues the dummy READ DATA pulse hosts use at power up
// to put every chip on the bus into a known state. Note this is only
// a reset while no chip holds a complete loaded address; after a full
// LOAD ADDRESS sequence the same pulse starts a transfer instead.
func (b *Bus) Synchronize() error {
	return b.PulseM0()
}

// LoadAddress runs the 5 pulse LOAD ADDRESS sequence for the given 20
// bit value, least significant nibble first. Any transfer in progress
// on any chip is cancelled by the first pulse.
func (b *Bus) LoadAddress(addr uint32) error {
	if addr > kMASK_LOAD {
		return fmt.Errorf("address must be 20 bits. Got %X", addr)
	}
	for i := 0; i < kNIBBLES; i++ {
		nib := (addr >> uint(i*kNIBBLE_BITS)) & 0xF
		b.add1.level = nib&0x1 != 0
		b.add2.level = nib&0x2 != 0
		b.add4.level = nib&0x4 != 0
		b.hostDat.level = nib&0x8 != 0
		if err := b.m1(true); err != nil {
			return err
		}
		if err := b.m1(false); err != nil {
			return err
		}
	}
	// Idle the host side of ADD8 low so released-line reads are
	// well defined.
	b.hostDat.level = false
	return nil
}

// ReadBit clocks the next data bit off the addressed chip. Only valid
// once a transfer has been started.
func (b *Bus) ReadBit() (bool, error) {
	// The addressed chip places its bit on the leading edge and
	// holds it for the rest of the pulse.
	if err := b.m0(true); err != nil {
		return false, err
	}
	bit := b.dataLevel()
	if err := b.m0(false); err != nil {
		return false, err
	}
	return bit, nil
}

// ReadByte clocks out the next 8 bits, least significant bit first.
func (b *Bus) ReadByte() (byte, error) {
	var val uint8
	for i := uint(0); i < 8; i++ {
		bit, err := b.ReadBit()
		if err != nil {
			return 0, err
		}
		if bit {
			val |= 1 << i
		}
	}
	return val, nil
}

// ReadAt runs the complete host command sequence: load addr, start
// the transfer with a single M0 pulse and clock out n bytes. Reads
// simply run on across bank boundaries; bytes in banks no chip owns
// come back as whatever the undriven line floats to (low here).
func (b *Bus) ReadAt(addr uint32, n int) ([]uint8, error) {
	if err := b.LoadAddress(addr); err != nil {
		return nil, err
	}
	if err := b.PulseM0(); err != nil {
		return nil, err
	}
	out := make([]uint8, 0, n)
	for i := 0; i < n; i++ {
		val, err := b.ReadByte()
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	return out, nil
}

// Debug returns the Debug() output of every mounted chip.
func (b *Bus) Debug() string {
	out := ""
	for _, c := range b.chips {
		out += c.Debug()
	}
	return out
}
