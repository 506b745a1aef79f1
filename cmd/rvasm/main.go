// Command rvasm assembles RV32IM text into a raw little-endian guest
// image, replacing the teacher's cmd/asm (same "-f" flag shape, same
// log.SetFlags(0)/log.Fatal error style).
package main

import (
	"flag"
	"log"
	"os"

	"github.com/coding-potatoo/rv32emu/pkg/asm"
)

func main() {
	log.SetFlags(0)
	filename := flag.String("f", "", "assembly source file to assemble")
	output := flag.String("o", "a.bin", "output image file")
	flag.Parse()
	if *filename == "" {
		log.Fatal("usage: rvasm -f <assembly-file> [-o <output-image>]")
	}

	fp, err := os.Open(*filename)
	if err != nil {
		log.Fatal(err)
	}
	defer fp.Close()

	image, err := asm.Assemble(fp)
	if err != nil {
		log.Fatal(err)
	}

	if err := os.WriteFile(*output, image, 0o644); err != nil {
		log.Fatal(err)
	}
}
