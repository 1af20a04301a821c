// Package io defines the basic interfaces for working
// with the pins of a TMS6100 style part. The chip samples dedicated
// address lines during LOAD ADDRESS but shares the ADD8 line between
// address input and serial data output, so that pin carries explicit
// direction control. Several chips can sit on the same physical ADD8
// line which is why drive/release is modeled rather than a plain
// output value.
package io

// PortIn1 defines a 1 bit input line. true == high.
type PortIn1 interface {
	// Input will return the current level being set on the given input line.
	Input() bool
}

// BusPin defines a shared bi-directional line. Implementations are
// expected to resolve (or at least detect) contention since more than
// one device can attempt to drive the same line.
type BusPin interface {
	// Input returns the current level of the line. Only meaningful
	// while this device isn't driving the line itself.
	Input() bool
	// Drive takes the line as an output of this device and places
	// level on it.
	Drive(level bool)
	// Release tri-states the line back to an input so other devices
	// can drive it. Releasing a line that isn't being driven is a no-op.
	Release()
}
