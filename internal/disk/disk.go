// Package disk implements the block device SimpleFS volumes sit on top
// of: a single os.File addressed in fixed BlockSize frames, the same way
// commands.ExecuteMkdisk lays out a flat .mia image before anything
// filesystem-shaped is written into it. Grounded further on
// original_source/include/sfs/disk.h for the counters and the
// mount-guard contract.
package disk

import (
	"fmt"
	"os"
	"sync"

	"simplefs/internal/layout"
)

// Device is a SimpleFS block device backed by a regular file. All state
// needed by a mounted volume funnels through a single *Device value;
// there is no package-level registry of open devices.
type Device struct {
	file   *os.File
	path   string
	blocks uint32

	mu      sync.Mutex
	mounted bool
	reads   uint64
	writes  uint64
	mounts  uint64
}

// Create allocates a new zero-filled image of nblocks blocks at path,
// mirroring ExecuteMkdisk's truncate-then-size approach but sized in
// SimpleFS blocks rather than kilobytes/megabytes.
func Create(path string, nblocks uint32) (*Device, error) {
	if nblocks == 0 {
		return nil, fmt.Errorf("disk: cannot create a zero-block image")
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, fmt.Errorf("disk: create %s: %w", path, err)
	}
	size := int64(nblocks) * layout.BlockSize
	if err := f.Truncate(size); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("disk: truncate %s: %w", path, err)
	}
	return &Device{file: f, path: path, blocks: nblocks}, nil
}

// Open attaches to an existing image file, inferring its block count
// from its size.
func Open(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("disk: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("disk: stat %s: %w", path, err)
	}
	if info.Size()%layout.BlockSize != 0 {
		f.Close()
		return nil, fmt.Errorf("disk: %s size %d is not a multiple of %d", path, info.Size(), layout.BlockSize)
	}
	blocks := uint32(info.Size() / layout.BlockSize)
	if blocks == 0 {
		f.Close()
		return nil, fmt.Errorf("disk: %s is empty", path)
	}
	return &Device{file: f, path: path, blocks: blocks}, nil
}

// Path returns the backing file path.
func (d *Device) Path() string { return d.path }

// Size returns the device's block count.
func (d *Device) Size() uint32 { return d.blocks }

// Mount marks the device in use. Mount/Unmount exist purely as a
// double-mount guard; SimpleFS keeps no other per-mount state in the
// device itself (the volume layer owns the bitmap and caches).
func (d *Device) Mount() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mounted {
		return ErrAlreadyMounted
	}
	d.mounted = true
	d.mounts++
	return nil
}

func (d *Device) Unmount() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mounted = false
}

func (d *Device) Mounted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mounted
}

func (d *Device) checkBlock(block uint32) error {
	if block >= d.blocks {
		return fmt.Errorf("disk: block %d out of range [0,%d): %w", block, d.blocks, ErrInvalidBlock)
	}
	return nil
}

// Read fills dst (which must be exactly layout.BlockSize bytes) with the
// contents of the given block.
func (d *Device) Read(block uint32, dst []byte) error {
	if err := d.checkBlock(block); err != nil {
		return err
	}
	if len(dst) != layout.BlockSize {
		return fmt.Errorf("disk: read buffer is %d bytes, want %d", len(dst), layout.BlockSize)
	}
	if _, err := d.file.ReadAt(dst, int64(block)*layout.BlockSize); err != nil {
		return fmt.Errorf("disk: read block %d: %w", block, err)
	}
	d.mu.Lock()
	d.reads++
	d.mu.Unlock()
	return nil
}

// Write commits src (exactly layout.BlockSize bytes) to the given block.
func (d *Device) Write(block uint32, src []byte) error {
	if err := d.checkBlock(block); err != nil {
		return err
	}
	if len(src) != layout.BlockSize {
		return fmt.Errorf("disk: write buffer is %d bytes, want %d", len(src), layout.BlockSize)
	}
	if _, err := d.file.WriteAt(src, int64(block)*layout.BlockSize); err != nil {
		return fmt.Errorf("disk: write block %d: %w", block, err)
	}
	d.mu.Lock()
	d.writes++
	d.mu.Unlock()
	return nil
}

// Stats reports the device's lifetime read/write/mount counters, the
// same totals original_source's Disk destructor prints on shutdown.
type Stats struct {
	Reads  uint64
	Writes uint64
	Mounts uint64
}

func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{Reads: d.reads, Writes: d.writes, Mounts: d.mounts}
}

// Close releases the backing file handle.
func (d *Device) Close() error {
	return d.file.Close()
}
