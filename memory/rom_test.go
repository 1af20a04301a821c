package memory

import "testing"

func TestNewPHROMErrors(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{
			name: "Empty",
			size: 0,
		},
		{
			name: "Not a power of 2",
			size: 12345,
		},
		{
			name: "Too large",
			size: 32768,
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			if _, err := NewPHROM(make([]uint8, test.size)); err == nil {
				t.Errorf("%s: didn't get error for image of %d bytes", test.name, test.size)
			}
		})
	}
}

func TestPHROMMirroring(t *testing.T) {
	// An 8K image should mirror into the top 8K of the bank.
	rom := make([]uint8, 8192)
	for i := range rom {
		rom[i] = uint8(i)
	}
	p, err := NewPHROM(rom)
	if err != nil {
		t.Fatalf("can't initialize PHROM: %v", err)
	}
	p.PowerOn()
	for i := uint16(0x0000); i < kBANK_SIZE; i++ {
		if got, want := p.Read(i), uint8(i&0x1FFF); got != want {
			t.Fatalf("bad mirrored read at %.4X: got %.2X and want %.2X", i, got, want)
		}
	}
}

func TestPHROMFullBank(t *testing.T) {
	rom := make([]uint8, kBANK_SIZE)
	rom[0x3FFF] = 0xA5
	p, err := NewPHROM(rom)
	if err != nil {
		t.Fatalf("can't initialize PHROM: %v", err)
	}
	if got, want := p.Read(0x3FFF), uint8(0xA5); got != want {
		t.Errorf("bad read at top of bank: got %.2X and want %.2X", got, want)
	}
}
