package main

import (
	"flag"
	"io/ioutil"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/speechemu/tms6100/bus"
	"github.com/speechemu/tms6100/memory"
	"github.com/speechemu/tms6100/trace"
	"github.com/veandco/go-sdl2/sdl"
	"golang.org/x/image/draw"
)

var (
	rom     = flag.String("rom", "", "Path to PHROM image to mount as bank 0")
	addr    = flag.String("addr", "0", "Address to start reading from")
	scale   = flag.Int("scale", 2, "Window scale factor")
	samples = flag.Int("samples", 256, "Width of the sample window")
	delay   = flag.Duration("delay", 20*time.Millisecond, "Delay between bytes")
)

var window *sdl.Window
var surface *sdl.Surface

func main() {
	flag.Parse()

	tr, err := trace.New(*samples)
	if err != nil {
		log.Fatalf("can't init trace: %v", err)
	}
	bounds := tr.Bounds()

	sdl.Main(func() {
		var wg sync.WaitGroup
		wg.Add(1)
		sdl.Do(func() {
			if err := sdl.Init(sdl.INIT_EVERYTHING); err != nil {
				log.Fatalf("can't init SDL: %v", err)
			}

			window, err = sdl.CreateWindow("phromscope", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, int32(bounds.Dx()**scale), int32(bounds.Dy()**scale), sdl.WINDOW_SHOWN)
			if err != nil {
				log.Fatalf("can't create window: %v", err)
			}
			surface, err = window.GetSurface()
			if err != nil {
				log.Fatalf("can't get window surface: %v", err)
			}
			wg.Done()
		})

		// Luckily PHROM images are so tiny by modern standards we just read it in.
		romData, err := ioutil.ReadFile(*rom)
		if err != nil {
			log.Fatalf("can't load rom: %v from path: %s", err, *rom)
		}
		p, err := memory.NewPHROM(romData)
		if err != nil {
			log.Fatalf("can't mount rom: %v", err)
		}
		b, err := bus.Init(&bus.BusDef{
			Roms:    map[uint8]memory.ROM{0: p},
			Sampler: tr,
		})
		if err != nil {
			log.Fatalf("can't init bus: %v", err)
		}
		start, err := strconv.ParseUint(*addr, 0, 32)
		if err != nil {
			log.Fatalf("invalid -addr %q: %v", *addr, err)
		}

		wg.Wait()
		defer func() {
			window.Destroy()
			sdl.Quit()
		}()

		if err := b.LoadAddress(uint32(start)); err != nil {
			log.Fatalf("load error: %v", err)
		}
		if err := b.PulseM0(); err != nil {
			log.Fatalf("start error: %v", err)
		}
		for {
			if _, err := b.ReadByte(); err != nil {
				log.Fatalf("read error: %v", err)
			}
			if b.Contention() {
				log.Fatal("bus contention detected")
			}
			img := tr.Render()
			sdl.Do(func() {
				draw.NearestNeighbor.Scale(surface, surface.Bounds(), img, img.Bounds(), draw.Src, nil)
				window.UpdateSurface()
			})
			time.Sleep(*delay)
		}
	})
}
