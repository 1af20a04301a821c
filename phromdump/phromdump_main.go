package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"strconv"
	"strings"

	"github.com/speechemu/tms6100/bus"
	"github.com/speechemu/tms6100/memory"
)

var (
	roms  = flag.String("roms", "", "Comma separated bank:path pairs of PHROM images to mount. e.g. 0:acorn.rom,15:us.rom")
	addr  = flag.String("addr", "0", "Address to start reading from (18 bits, bank select included)")
	count = flag.Int("count", 256, "Number of bytes to read")
	debug = flag.Bool("debug", false, "If true will emit chip state debugging after the read")
)

func main() {
	flag.Parse()
	if *roms == "" {
		log.Fatal("must supply -roms")
	}

	mounts := make(map[uint8]memory.ROM)
	for _, m := range strings.Split(*roms, ",") {
		parts := strings.SplitN(m, ":", 2)
		if len(parts) != 2 {
			log.Fatalf("invalid -roms entry %q, want bank:path", m)
		}
		bank, err := strconv.ParseUint(parts[0], 10, 8)
		if err != nil || bank > 15 {
			log.Fatalf("invalid bank in -roms entry %q", m)
		}
		// Luckily PHROM images are so tiny by modern standards we just read them in.
		rom, err := ioutil.ReadFile(parts[1])
		if err != nil {
			log.Fatalf("can't load rom: %v from path: %s", err, parts[1])
		}
		p, err := memory.NewPHROM(rom)
		if err != nil {
			log.Fatalf("can't mount %s: %v", parts[1], err)
		}
		mounts[uint8(bank)] = p
	}

	start, err := strconv.ParseUint(*addr, 0, 32)
	if err != nil {
		log.Fatalf("invalid -addr %q: %v", *addr, err)
	}

	b, err := bus.Init(&bus.BusDef{
		Roms:  mounts,
		Debug: *debug,
	})
	if err != nil {
		log.Fatalf("can't init bus: %v", err)
	}

	data, err := b.ReadAt(uint32(start), *count)
	if err != nil {
		log.Fatalf("read error: %v", err)
	}
	if b.Contention() {
		log.Fatal("bus contention detected during read")
	}

	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Printf("%.5X ", uint32(start)+uint32(i))
		for _, v := range data[i:end] {
			fmt.Printf(" %.2X", v)
		}
		fmt.Println()
	}
	if *debug {
		fmt.Print(b.Debug())
	}
}
