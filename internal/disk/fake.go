package disk

import (
	"fmt"
	"sync"

	"simplefs/internal/layout"
)

// FakeDevice is an in-memory BlockDevice, standing in for a real image
// file in fast unit tests the same way keks-dumbfs's block_test.go pairs
// its op-table assertions against both a fake and a real backing store.
type FakeDevice struct {
	blocks uint32
	data   []byte

	mu      sync.Mutex
	mounted bool
}

// NewFakeDevice allocates a zero-filled in-memory device of nblocks
// blocks.
func NewFakeDevice(nblocks uint32) *FakeDevice {
	return &FakeDevice{
		blocks: nblocks,
		data:   make([]byte, int64(nblocks)*layout.BlockSize),
	}
}

func (d *FakeDevice) Size() uint32 { return d.blocks }

func (d *FakeDevice) Mount() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mounted {
		return ErrAlreadyMounted
	}
	d.mounted = true
	return nil
}

func (d *FakeDevice) Unmount() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mounted = false
}

func (d *FakeDevice) Mounted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mounted
}

func (d *FakeDevice) checkBlock(block uint32) error {
	if block >= d.blocks {
		return fmt.Errorf("disk: block %d out of range [0,%d): %w", block, d.blocks, ErrInvalidBlock)
	}
	return nil
}

func (d *FakeDevice) Read(block uint32, dst []byte) error {
	if err := d.checkBlock(block); err != nil {
		return err
	}
	if len(dst) != layout.BlockSize {
		return fmt.Errorf("disk: read buffer is %d bytes, want %d", len(dst), layout.BlockSize)
	}
	start := int64(block) * layout.BlockSize
	copy(dst, d.data[start:start+layout.BlockSize])
	return nil
}

func (d *FakeDevice) Write(block uint32, src []byte) error {
	if err := d.checkBlock(block); err != nil {
		return err
	}
	if len(src) != layout.BlockSize {
		return fmt.Errorf("disk: write buffer is %d bytes, want %d", len(src), layout.BlockSize)
	}
	start := int64(block) * layout.BlockSize
	copy(d.data[start:start+layout.BlockSize], src)
	return nil
}
