// Package trace records TMS6100 bus activity and renders it as a
// logic analyzer style waveform image. One sample is expected per bus
// transition (the bus package's Sampler hook provides exactly that)
// and the most recent window of samples is kept so a long running
// capture behaves like a scope rather than growing without bound.
package trace

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

const (
	kChannelM0 = iota
	kChannelM1
	kChannelData
	kChannelDriven
	kChannels
)

const (
	// Convention for constants:
	//
	// All caps - channel indexes.
	// Mixed case - integer constants for computing image locations.

	kSampleWidth   = 4  // Horizontal pixels per recorded sample.
	kChannelHeight = 16 // Vertical pixels per channel including padding.
	kWaveTop       = 2  // Offset of the high level within a channel.
	kWaveSwing     = 11 // Rows between the high and low levels.
)

var (
	kBlack = color.NRGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xFF}
	kGreen = color.NRGBA{R: 0x00, G: 0xD0, B: 0x00, A: 0xFF}
	// Tri-state periods of the data line render amber so a released
	// line is visually distinct from a driven low.
	kAmber = color.NRGBA{R: 0xD0, G: 0x90, B: 0x00, A: 0xFF}
)

type sample struct {
	m0     bool
	m1     bool
	data   bool
	driven bool
}

// channel returns the level of the given channel for this sample.
func (s sample) channel(ch int) bool {
	switch ch {
	case kChannelM0:
		return s.m0
	case kChannelM1:
		return s.m1
	case kChannelData:
		return s.data
	case kChannelDriven:
		return s.driven
	}
	return false
}

// Trace holds a rolling window of bus line samples.
type Trace struct {
	max     int
	samples []sample
}

// New returns a Trace holding at most max samples. Once the window is
// full the oldest sample drops off the front for each new one.
func New(max int) (*Trace, error) {
	if max <= 0 {
		return nil, fmt.Errorf("invalid size for Trace (%d)", max)
	}
	return &Trace{
		max:     max,
		samples: make([]sample, 0, max),
	}, nil
}

// Sample implements the bus Sampler interface.
func (tr *Trace) Sample(m0, m1, data, driven bool) {
	if len(tr.samples) == tr.max {
		copy(tr.samples, tr.samples[1:])
		tr.samples = tr.samples[:tr.max-1]
	}
	tr.samples = append(tr.samples, sample{m0: m0, m1: m1, data: data, driven: driven})
}

// Len returns the number of samples currently held.
func (tr *Trace) Len() int {
	return len(tr.samples)
}

// Reset empties the sample window.
func (tr *Trace) Reset() {
	tr.samples = tr.samples[:0]
}

// Bounds returns the fixed size of rendered images: the full sample
// window wide regardless of how much of it is filled.
func (tr *Trace) Bounds() image.Rectangle {
	return image.Rect(0, 0, tr.max*kSampleWidth, kChannels*kChannelHeight)
}

// Render draws the current window as a waveform: one row of channels
// (M0, M1, ADD8, drive state) with high levels on top. Unfilled
// regions of the window stay background.
func (tr *Trace) Render() *image.NRGBA {
	img := image.NewNRGBA(tr.Bounds())
	draw.Draw(img, img.Bounds(), &image.Uniform{kBlack}, image.Point{}, draw.Src)

	for ch := 0; ch < kChannels; ch++ {
		yHigh := ch*kChannelHeight + kWaveTop
		yLow := yHigh + kWaveSwing
		prevY := -1
		for i, s := range tr.samples {
			y := yLow
			if s.channel(ch) {
				y = yHigh
			}
			c := kGreen
			if ch == kChannelData && !s.driven {
				c = kAmber
			}
			x0 := i * kSampleWidth
			for x := x0; x < x0+kSampleWidth; x++ {
				img.SetNRGBA(x, y, c)
			}
			// Vertical stroke on a level change.
			if prevY >= 0 && prevY != y {
				lo, hi := prevY, y
				if lo > hi {
					lo, hi = hi, lo
				}
				for yy := lo; yy <= hi; yy++ {
					img.SetNRGBA(x0, yy, c)
				}
			}
			prevY = y
		}
	}
	return img
}
