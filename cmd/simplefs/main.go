// Command simplefs opens or creates a SimpleFS disk image and drives it
// through the interactive shell, the rough equivalent of main.go's
// startCLI() entrypoint but without the HTTP server mode: SimpleFS has
// exactly one way in, a line-oriented REPL over one disk image.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"simplefs/internal/disk"
	"simplefs/internal/shell"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <diskfile> <nblocks>\n", os.Args[0])
		return 1
	}

	path := os.Args[1]
	nblocks, err := strconv.ParseUint(os.Args[2], 10, 32)
	if err != nil || nblocks == 0 {
		fmt.Fprintf(os.Stderr, "simplefs: invalid block count %q\n", os.Args[2])
		return 1
	}

	dev, err := openOrCreate(path, uint32(nblocks))
	if err != nil {
		log.Printf("failed to open device %q: %v", path, err)
		return 1
	}
	defer dev.Close()

	sh := shell.New(dev, os.Stdin, os.Stdout, os.Stderr)
	return sh.Run()
}

func openOrCreate(path string, nblocks uint32) (*disk.Device, error) {
	if _, err := os.Stat(path); err == nil {
		return disk.Open(path)
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	return disk.Create(path, nblocks)
}
