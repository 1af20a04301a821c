package trace

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-test/deep"
	"github.com/speechemu/tms6100/bus"
	"github.com/speechemu/tms6100/memory"
	"golang.org/x/image/draw"
)

var (
	testImageDir    = flag.String("test_image_dir", "", "If set will generate images from tests to this directory")
	testImageScaler = flag.Float64("test_image_scaler", 1.0, "The amount to rescale the output PNGs")
)

// writeImage optionally dumps a rendered waveform for eyeballing.
func writeImage(t *testing.T, name string, i *image.NRGBA) {
	if *testImageDir == "" {
		return
	}
	n := i
	if *testImageScaler != 1.0 {
		d := image.NewNRGBA(image.Rect(0, 0, int(float64(i.Bounds().Max.X)**testImageScaler), int(float64(i.Bounds().Max.Y)**testImageScaler)))
		draw.NearestNeighbor.Scale(d, d.Bounds(), i, i.Bounds(), draw.Over, nil)
		n = d
	}
	o, err := os.Create(filepath.Join(*testImageDir, fmt.Sprintf("%s.png", name)))
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	defer o.Close()
	if err := png.Encode(o, n); err != nil {
		t.Fatalf("%s: %v", name, err)
	}
}

func TestNewErrors(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := New(size); err == nil {
			t.Errorf("didn't get error for Trace of size %d", size)
		}
	}
}

func TestWindow(t *testing.T) {
	tr, err := New(4)
	if err != nil {
		t.Fatalf("can't initialize Trace: %v", err)
	}
	// Encode a counter into the m0 channel pattern so we can tell
	// which samples survived.
	for i := 0; i < 6; i++ {
		tr.Sample(i%2 == 0, false, false, false)
	}
	if got, want := tr.Len(), 4; got != want {
		t.Fatalf("bad window length. Got %d and want %d", got, want)
	}
	// Samples 2-5 remain: m0 = true, false, true, false.
	for i, want := range []bool{true, false, true, false} {
		if got := tr.samples[i].m0; got != want {
			t.Errorf("bad sample %d after wraparound. Got %t and want %t", i, got, want)
		}
	}
	tr.Reset()
	if got, want := tr.Len(), 0; got != want {
		t.Errorf("bad length after Reset. Got %d and want %d", got, want)
	}
}

func TestRender(t *testing.T) {
	tr, err := New(3)
	if err != nil {
		t.Fatalf("can't initialize Trace: %v", err)
	}
	tr.Sample(true, false, false, false)
	tr.Sample(false, false, true, true)
	tr.Sample(false, true, true, true)

	got := tr.Render()
	writeImage(t, t.Name(), got)

	// Build the canonical image: per channel levels for the 3
	// samples with high rendered on the top row of the swing.
	levels := [kChannels][3]bool{
		{true, false, false}, // M0
		{false, false, true}, // M1
		{false, true, true},  // ADD8
		{false, true, true},  // driven
	}
	want := image.NewNRGBA(tr.Bounds())
	draw.Draw(want, want.Bounds(), &image.Uniform{kBlack}, image.Point{}, draw.Src)
	for ch := 0; ch < kChannels; ch++ {
		yHigh := ch*kChannelHeight + kWaveTop
		yLow := yHigh + kWaveSwing
		prevY := -1
		for i := 0; i < 3; i++ {
			y := yLow
			if levels[ch][i] {
				y = yHigh
			}
			c := kGreen
			// Sample 0 is the only tri-stated one.
			if ch == kChannelData && i == 0 {
				c = kAmber
			}
			for x := i * kSampleWidth; x < (i+1)*kSampleWidth; x++ {
				want.SetNRGBA(x, y, c)
			}
			if prevY >= 0 && prevY != y {
				lo, hi := prevY, y
				if lo > hi {
					lo, hi = hi, lo
				}
				for yy := lo; yy <= hi; yy++ {
					want.SetNRGBA(i*kSampleWidth, yy, c)
				}
			}
			prevY = y
		}
	}
	if diff := deep.Equal(got, want); diff != nil {
		t.Errorf("waveforms differ: %v", diff)
	}
}

// ramp gives every offset a predictable value.
type ramp struct{}

func (r *ramp) Read(addr uint16) uint8 { return uint8(addr) }

func (r *ramp) PowerOn() {}

func TestCaptureFromBus(t *testing.T) {
	tr, err := New(64)
	if err != nil {
		t.Fatalf("can't initialize Trace: %v", err)
	}
	b, err := bus.Init(&bus.BusDef{
		Roms:    map[uint8]memory.ROM{0: &ramp{}},
		Sampler: tr,
	})
	if err != nil {
		t.Fatalf("can't initialize bus: %v", err)
	}
	if _, err := b.ReadAt(0x00005, 1); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}

	// 5 M1 pulses, the start pulse and 8 bit clocks at 2 transitions
	// each.
	if got, want := tr.Len(), 28; got != want {
		t.Fatalf("bad capture length. Got %d and want %d", got, want)
	}
	// The load phase never drives the data line, the bit clocks
	// always do.
	for i := 0; i < 12; i++ {
		if tr.samples[i].driven {
			t.Errorf("sample %d driven during the load phase", i)
		}
	}
	for i := 12; i < 28; i++ {
		if !tr.samples[i].driven {
			t.Errorf("sample %d not driven during the bit clocks", i)
		}
	}

	writeImage(t, t.Name(), tr.Render())
}
