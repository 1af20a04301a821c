// Package tms6100 implements the complete protocol state of a TMS6100
// voice synthesis memory (PHROM) as used with a TMS5220 VSP host and
// described in the TMS6100 datasheet. The part is mask programmed for
// either 1 bit or 4 bit transfers; only 1 bit mode is implemented
// here since that's all the TMS5220 uses.
//
// The host runs two commands over the M0/M1 control lines:
//
// LOAD ADDRESS: 5 rising edges on M1, each sampling a nibble off the
// ADD1/2/4/8 lines, assemble a 20 bit value least significant nibble
// first. The top 2 bits are discarded, bits 14-17 select a bank and
// the full low 18 bits form the working address.
//
// READ DATA: an M0 pulse while no valid address is loaded is a dummy
// that resets the chip. The first M0 pulse after a complete address
// load starts a transfer (no bit is emitted for it); every M0 pulse
// after that clocks one bit of the addressed byte out on ADD8, least
// significant bit first, advancing the address every 8 bits.
//
// The third TMS6100 command (INDIRECT ADDRESS, M0 and M1 rising
// together) isn't used by the TMS5220 so it's not implemented.
//
// Several chips share the same ADD8 line and only the chip whose bank
// is addressed may drive it. Everyone else has to keep the line
// released which this implementation enforces on every clock edge
// since a transfer can run off the end of one bank into the next.
package tms6100

import (
	"errors"
	"fmt"

	"github.com/speechemu/tms6100/io"
	"github.com/speechemu/tms6100/memory"
)

type edgeType int

const (
	kEDGE_UNIMPLEMENTED edgeType = iota // Start of valid edge enumerations.
	kEDGE_RISING                        // Trigger on a low to high transition.
	kEDGE_FALLING                       // Trigger on a high to low transition.
	kEDGE_MAX                           // End of edge enumerations.
)

const (
	kMASK_ADDRESS = uint32(0x3FFFF) // The 18 bit working address (bank bits included).
	kMASK_BANK    = uint32(0x3C000) // Bank select number in bits 14-17.
	kMASK_LOCAL   = uint32(0x03FFF) // Offset within the owning 16K bank.
	kSHIFT_BANK   = 14

	kNIBBLES     = 5 // LOAD ADDRESS transfers 20 bits as 5 nibbles.
	kNIBBLE_BITS = 4

	kBANKS = uint8(16)

	// Byte held while the addressed bank belongs to another chip. It
	// never reaches the bus since the pin is released but keeps the
	// serializer state well defined.
	kFILLER = uint8(0xFF)
)

// Chip implements all the state needed for a single TMS6100 on a
// possibly shared address/data bus.
type Chip struct {
	bank  uint8      // The bank select number this chip answers to.
	rom   memory.ROM // Backing PHROM data array for our bank.
	add1  io.PortIn1 // Dedicated address input lines (bit weights 1/2/4).
	add2  io.PortIn1
	add4  io.PortIn1
	data  io.BusPin // ADD8. Address bit 3 on loads, serial data out on reads.
	debug bool      // If true Debug() emits output.

	edges int // Total number of control line edges serviced since power on.

	m0Level   bool     // Most recently observed level of M0.
	m1Level   bool     // Most recently observed level of M1.
	m0Trigger edgeType // Which M0 transition is serviced in the current phase.

	address      uint32 // The current address the ROM is pointing to.
	bankSelect   uint8  // Bank number extracted from the loaded address.
	nibble       int    // Position of the address nibble we are waiting for (0-4).
	addressValid bool   // True once 5 consecutive nibbles have been received.
	readActive   bool   // True while a READ DATA transfer is in progress.
	bit          uint8  // The current bit of curByte to transmit (0-7).
	curByte      uint8  // The current byte to transmit.
	dataIsInput  bool   // True while ADD8 is released (or false if we drive it).
	bankActive   bool   // True while the addressed bank belongs to this chip.
}

// ChipDef defines the pieces needed to set up a TMS6100.
type ChipDef struct {
	// Bank is the bank select number (0-15) this chip answers to.
	Bank uint8

	// Rom is the data array serialized during READ DATA. It is
	// indexed with local offsets (the low 14 address bits).
	Rom memory.ROM

	// Add1, Add2 and Add4 are the dedicated address input lines
	// sampled on every LOAD ADDRESS edge.
	Add1 io.PortIn1
	Add2 io.PortIn1
	Add4 io.PortIn1

	// Data is the shared ADD8 line. It is sampled as address bit 3
	// during LOAD ADDRESS and driven with serial data during READ
	// DATA while this chip's bank is addressed.
	Data io.BusPin

	// Debug if true will emit output from Debug() calls.
	Debug bool
}

// Init returns a fully initialized and powered on TMS6100.
func Init(d *ChipDef) (*Chip, error) {
	if d.Bank >= kBANKS {
		return nil, fmt.Errorf("bank select must be 0-%d in def. Got %d", kBANKS-1, d.Bank)
	}
	if d.Rom == nil {
		return nil, errors.New("Rom must be non-nil in def")
	}
	if d.Add1 == nil || d.Add2 == nil || d.Add4 == nil {
		return nil, errors.New("Add1, Add2 and Add4 must all be non-nil in def")
	}
	if d.Data == nil {
		return nil, errors.New("Data must be non-nil in def")
	}
	c := &Chip{
		bank:  d.Bank,
		rom:   d.Rom,
		add1:  d.Add1,
		add2:  d.Add2,
		add4:  d.Add4,
		data:  d.Data,
		debug: d.Debug,
	}
	c.PowerOn()
	return c, nil
}

// PowerOn performs a full power-on/reset of the chip.
func (c *Chip) PowerOn() {
	c.rom.PowerOn()
	c.Reset()
}

// Reset puts the chip back into its power on protocol state: no
// address, no transfer, ADD8 released and M0 serviced on falling
// edges. A host gets the same effect over the bus with a dummy READ
// DATA pulse (minus the nibble counter history that keeps).
func (c *Chip) Reset() {
	c.address = 0
	c.bankSelect = 0
	c.nibble = 0
	c.addressValid = false
	c.readActive = false
	c.bit = 0
	c.curByte = 0
	c.bankActive = false
	if !c.dataIsInput {
		c.data.Release()
	}
	c.dataIsInput = true
	c.m0Trigger = kEDGE_FALLING
}

// AddressValid returns whether a complete 5 nibble address has been
// loaded. This mirrors the valid-address debug signal on the original
// board and has no behavioral effect.
func (c *Chip) AddressValid() bool {
	return c.addressValid
}

// ReadActive returns whether a READ DATA transfer is in progress.
func (c *Chip) ReadActive() bool {
	return c.readActive
}

// BankActive returns whether the currently addressed bank belongs to
// this chip (and therefore whether it may drive ADD8).
func (c *Chip) BankActive() bool {
	return c.bankActive
}

// M0 presents a new level on the M0 control line. Which transition
// gets serviced depends on the protocol phase: falling edges while
// idle (dummy detection and transfer start), rising edges for the
// duration of an active transfer so the bit is on the line for the
// whole host pulse.
func (c *Chip) M0(level bool) error {
	if level == c.m0Level {
		return nil
	}
	rising := level
	c.m0Level = level
	switch c.m0Trigger {
	case kEDGE_RISING:
		if !rising {
			return nil
		}
	case kEDGE_FALLING:
		if rising {
			return nil
		}
	default:
		return fmt.Errorf("impossible M0 trigger state: %d", c.m0Trigger)
	}
	c.edges++
	return c.readData()
}

// M1 presents a new level on the M1 control line. A rising edge is a
// LOAD ADDRESS command; falling edges are ignored.
func (c *Chip) M1(level bool) error {
	if level == c.m1Level {
		return nil
	}
	c.m1Level = level
	if !level {
		return nil
	}
	c.edges++
	return c.loadAddress()
}

// readData handles a serviced M0 edge.
func (c *Chip) readData() error {
	if !c.readActive {
		// Two possible kinds of READ DATA arrive here: a dummy pulse
		// the host uses to reset the chip and the single pulse that
		// starts a real transfer. The chip needs 5 LOAD ADDRESS
		// calls before an address is considered valid, so a read
		// without one is the dummy.
		if !c.addressValid {
			c.address = 0
			c.nibble = 0
			return nil
		}

		// Real transfer. This first pulse only arms the serializer,
		// no bit is emitted for it.
		c.readActive = true
		c.bit = 0
		c.fetch()

		// The remaining M0 pulses clock data so service their
		// leading edge for the rest of the transfer.
		c.m0Trigger = kEDGE_RISING
		return nil
	}

	if c.bit > 7 {
		return fmt.Errorf("impossible bit index: %d", c.bit)
	}

	// Direction has to be settled before any bit is placed so a bank
	// handoff mid transfer never has two chips driving the line. The
	// switch is skipped when the direction already matches to keep
	// the line from glitching.
	if !c.bankActive && !c.dataIsInput {
		c.data.Release()
		c.dataIsInput = true
	}
	if c.bankActive {
		c.data.Drive(c.curByte&(1<<c.bit) != 0)
		c.dataIsInput = false
	}

	c.bit++
	if c.bit > 7 {
		c.bit = 0
		// Advancing can run over the bank boundary (or wrap the
		// whole 18 bit space) so ownership is recomputed for every
		// byte, not just at transfer start.
		c.address = (c.address + 1) & kMASK_ADDRESS
		c.fetch()
	}
	return nil
}

// loadAddress handles a rising M1 edge.
func (c *Chip) loadAddress() error {
	if c.nibble < 0 || c.nibble >= kNIBBLES {
		return fmt.Errorf("impossible nibble index: %d", c.nibble)
	}

	// A LOAD ADDRESS always takes priority over an in progress read:
	// tear the transfer down and get ADD8 back to an input before
	// the nibble is sampled off it.
	c.cancelRead()

	var nib uint32
	if c.add1.Input() {
		nib += 1
	}
	if c.add2.Input() {
		nib += 2
	}
	if c.add4.Input() {
		nib += 4
	}
	if c.data.Input() {
		nib += 8
	}

	// First nibble of a new 20 bit address clears the register.
	if c.nibble == 0 {
		c.address = 0
	}
	c.address |= nib << uint(c.nibble*kNIBBLE_BITS)
	c.nibble++

	if c.nibble >= kNIBBLES {
		// 5th and final nibble so the address is now valid. The
		// format is 2 ignored bits on top of an 18 bit address whose
		// high 4 bits double as the bank select number.
		c.addressValid = true
		c.nibble = 0
		c.bankSelect = uint8((c.address & kMASK_BANK) >> kSHIFT_BANK)
		c.address &= kMASK_ADDRESS
	} else {
		// Only a partial address so far.
		c.addressValid = false
	}
	return nil
}

// cancelRead tears down any in progress READ DATA transfer: the line
// is released and M0 goes back to dummy/start detection polarity.
// Idempotent and safe to call from any serializer state.
func (c *Chip) cancelRead() {
	c.readActive = false
	c.bankActive = false
	if !c.dataIsInput {
		c.data.Release()
		c.dataIsInput = true
	}
	c.m0Trigger = kEDGE_FALLING
}

// fetch recomputes bank ownership for the current address and loads
// the next byte to transmit.
func (c *Chip) fetch() {
	c.bankSelect = uint8((c.address & kMASK_BANK) >> kSHIFT_BANK)
	local := uint16(c.address & kMASK_LOCAL)

	// Only send data if the address (and bank) is valid for this PHROM.
	if c.bankSelect == c.bank {
		c.curByte = c.rom.Read(local)
		c.bankActive = true
		return
	}
	c.curByte = kFILLER
	c.bankActive = false
}

func (c *Chip) Debug() string {
	if c.debug {
		return fmt.Sprintf("%.6d addr: %.5X bank: %X nibble: %d valid: %t read: %t bit: %d cur: %.2X active: %t\n", c.edges, c.address, c.bankSelect, c.nibble, c.addressValid, c.readActive, c.bit, c.curByte, c.bankActive)
	}
	return ""
}
