// Package memory defines the basic interface for the read only data
// array backing a TMS6100. The real part is mask programmed at the
// factory so there is no write path at all, only byte reads within
// the chip's own 16K bank.
package memory

type ROM interface {
	// Read returns the data byte stored at addr.
	Read(addr uint16) uint8
	// PowerOn performs power on reset of the memory. For a mask
	// programmed ROM this is generally a no-op.
	PowerOn()
}
