// Package volume implements the SimpleFS core engine: the superblock,
// inode allocator, byte-granular read/write path, directory subsystem and
// password gate that sit on top of an internal/disk.Device. It carries no
// package-level state; every operation hangs off a *Volume value built by
// Format/Mount, the same way commands/mkfs.go and commands/mount.go built
// and manipulated a structs.SuperBloque, just without the process-wide
// disk_registry/session bookkeeping that implied.
package volume

import (
	"fmt"

	"simplefs/internal/disk"
	"simplefs/internal/layout"
)

// PasswordPrompt asks the caller (normally the shell) for a password,
// displaying label first. It returns an error if the caller wants to
// abort the prompt (e.g. EOF on stdin).
type PasswordPrompt func(label string) (string, error)

// Volume is a mounted SimpleFS filesystem. All in-core bookkeeping the
// original implementation kept as free functions closing over a single
// FileSystem instance lives here instead: the free-block bitmap, the
// per-inode-block and per-directory-block occupancy counters, and the
// cached current directory.
type Volume struct {
	dev  disk.BlockDevice
	meta layout.Superblock

	free         []bool
	inodeCounter []int
	dirCounter   []int
	currDir      layout.Directory

	mounted bool
}

func ceilDiv(a, b uint32) uint32 {
	return (a + b - 1) / b
}

// Format writes a fresh superblock, empty inode table, zeroed data region
// and empty directory region (with a root directory seeded at the tail
// block) to dev. Grounded on commands/mkfs.go's block-by-block layout
// pass, rebuilt around SimpleFS's own geometry formulas.
func Format(dev disk.BlockDevice) error {
	if dev.Mounted() {
		return ErrBusy
	}

	blocks := dev.Size()
	inodeBlocks := ceilDiv(blocks, 10)
	dirBlocks := ceilDiv(blocks, 100)
	if inodeBlocks+dirBlocks+1 > blocks {
		return fmt.Errorf("volume: format: %d blocks too small for inode/directory regions", blocks)
	}

	sb := layout.Superblock{
		Magic:       layout.Magic,
		Blocks:      blocks,
		InodeBlocks: inodeBlocks,
		DirBlocks:   dirBlocks,
		Inodes:      inodeBlocks * layout.InodesPerBlock,
	}
	sbuf, err := sb.Encode()
	if err != nil {
		return err
	}
	if err := dev.Write(0, sbuf); err != nil {
		return err
	}

	var emptyInodes layout.InodeBlock
	ibuf, err := emptyInodes.Encode()
	if err != nil {
		return err
	}
	for i := uint32(1); i <= inodeBlocks; i++ {
		if err := dev.Write(i, ibuf); err != nil {
			return err
		}
	}

	zero := make([]byte, layout.BlockSize)
	for i := inodeBlocks + 1; i < blocks-dirBlocks; i++ {
		if err := dev.Write(i, zero); err != nil {
			return err
		}
	}

	var emptyDirs layout.DirectoryBlock
	dbuf, err := emptyDirs.Encode()
	if err != nil {
		return err
	}
	for i := blocks - dirBlocks; i < blocks-1; i++ {
		if err := dev.Write(i, dbuf); err != nil {
			return err
		}
	}

	root := layout.Directory{Valid: 1, Inum: 0}
	layout.CStringTo(root.Name[:], "/")
	root, err = addDirEntry(root, 0, layout.EntryDir, ".")
	if err != nil {
		return err
	}
	root, err = addDirEntry(root, 0, layout.EntryDir, "..")
	if err != nil {
		return err
	}
	var rootBlock layout.DirectoryBlock
	rootBlock[0] = root
	rbuf, err := rootBlock.Encode()
	if err != nil {
		return err
	}
	return dev.Write(blocks-1, rbuf)
}

// Mount reads the superblock, checks geometry invariants, optionally
// checks the password, and rebuilds the free-block bitmap and directory
// occupancy counters by walking the on-disk inode and directory tables.
func Mount(dev disk.BlockDevice, prompt PasswordPrompt) (*Volume, error) {
	if dev.Mounted() {
		return nil, ErrBusy
	}

	buf := make([]byte, layout.BlockSize)
	if err := dev.Read(0, buf); err != nil {
		return nil, err
	}
	sb, err := layout.DecodeSuperblock(buf)
	if err != nil {
		return nil, err
	}
	if sb.Magic != layout.Magic {
		return nil, ErrBadMagic
	}
	if sb.Blocks == 0 || sb.Blocks != dev.Size() ||
		sb.InodeBlocks != ceilDiv(sb.Blocks, 10) ||
		sb.DirBlocks != ceilDiv(sb.Blocks, 100) ||
		sb.Inodes != sb.InodeBlocks*layout.InodesPerBlock {
		return nil, ErrInvalidGeometry
	}

	if sb.Protected == 1 {
		if prompt == nil {
			return nil, ErrAuthFailed
		}
		pw, err := prompt("Enter password: ")
		if err != nil {
			return nil, err
		}
		if HashPassword(pw) != sb.PasswordDigest() {
			return nil, ErrAuthFailed
		}
	}

	v := &Volume{dev: dev, meta: sb}
	if err := v.rebuildState(); err != nil {
		return nil, err
	}

	if err := dev.Mount(); err != nil {
		return nil, err
	}
	v.mounted = true
	return v, nil
}

// rebuildState walks the inode table and directory region to reconstruct
// every piece of in-core state a mounted volume needs. Grounded on
// fs_layer_1.cpp's mount(): the direct-pointer loop only marks a pointer
// used when it is non-zero, and out-of-range pointers abort the mount
// with a corrupt-image error rather than being silently ignored.
func (v *Volume) rebuildState() error {
	sb := v.meta
	v.free = make([]bool, sb.Blocks)
	v.inodeCounter = make([]int, sb.InodeBlocks)
	v.free[0] = true

	for i := uint32(1); i <= sb.InodeBlocks; i++ {
		buf := make([]byte, layout.BlockSize)
		if err := v.dev.Read(i, buf); err != nil {
			return err
		}
		ib, err := layout.DecodeInodeBlock(buf)
		if err != nil {
			return err
		}
		for j := 0; j < layout.InodesPerBlock; j++ {
			node := ib[j]
			if node.Valid == 0 {
				continue
			}
			v.inodeCounter[i-1]++
			v.free[i] = true
			for _, d := range node.Direct {
				if d == 0 {
					continue
				}
				if d >= sb.Blocks {
					return fmt.Errorf("volume: mount: direct pointer %d out of range: %w", d, ErrCorruptImage)
				}
				v.free[d] = true
			}
			if node.Indirect != 0 {
				if node.Indirect >= sb.Blocks {
					return fmt.Errorf("volume: mount: indirect pointer %d out of range: %w", node.Indirect, ErrCorruptImage)
				}
				v.free[node.Indirect] = true
				pb, err := v.readPointerBlock(node.Indirect)
				if err != nil {
					return err
				}
				for _, p := range pb {
					if p == 0 {
						continue
					}
					if p >= sb.Blocks {
						return fmt.Errorf("volume: mount: indirect entry %d out of range: %w", p, ErrCorruptImage)
					}
					v.free[p] = true
				}
			}
		}
	}

	// The directory region is allocated in reverse from the last block
	// regardless of how many of its records are actually in use, so the
	// whole region is reserved up front (see Open Question #4 in the
	// design notes).
	for i := sb.Blocks - sb.DirBlocks; i < sb.Blocks; i++ {
		v.free[i] = true
	}

	v.dirCounter = make([]int, sb.DirBlocks)
	for k := uint32(0); k < sb.DirBlocks; k++ {
		physical := sb.Blocks - 1 - k
		buf := make([]byte, layout.BlockSize)
		if err := v.dev.Read(physical, buf); err != nil {
			return err
		}
		db, err := layout.DecodeDirectoryBlock(buf)
		if err != nil {
			return err
		}
		for _, rec := range db {
			if rec.Valid == 1 {
				v.dirCounter[k]++
			}
		}
		if k == 0 {
			v.currDir = db[0]
		}
	}

	return nil
}

// Exit unmounts the device. It is safe to call on a volume that never
// finished mounting.
func (v *Volume) Exit() error {
	if !v.mounted {
		return nil
	}
	v.dev.Unmount()
	v.mounted = false
	return nil
}

// Device exposes the backing block device for callers that need to
// inspect it directly (tests, mainly).
func (v *Volume) Device() disk.BlockDevice { return v.dev }

func (v *Volume) commitSuperblock() error {
	buf, err := v.meta.Encode()
	if err != nil {
		return err
	}
	return v.dev.Write(0, buf)
}

func (v *Volume) readPointerBlock(block uint32) (layout.PointerBlock, error) {
	buf := make([]byte, layout.BlockSize)
	if err := v.dev.Read(block, buf); err != nil {
		return layout.PointerBlock{}, err
	}
	return layout.DecodePointerBlock(buf)
}

func (v *Volume) writePointerBlock(block uint32, pb layout.PointerBlock) error {
	buf, err := pb.Encode()
	if err != nil {
		return err
	}
	return v.dev.Write(block, buf)
}

func (v *Volume) commitInode(blockIdx, slot uint32, node layout.Inode) error {
	buf := make([]byte, layout.BlockSize)
	if err := v.dev.Read(blockIdx+1, buf); err != nil {
		return err
	}
	ib, err := layout.DecodeInodeBlock(buf)
	if err != nil {
		return err
	}
	ib[slot] = node
	out, err := ib.Encode()
	if err != nil {
		return err
	}
	return v.dev.Write(blockIdx+1, out)
}

// allocateBlock performs a first-fit scan over the data region, which
// (per Open Question #4) also covers the reserved directory-region
// blocks, so a volume whose directory region is mostly empty still
// cannot have those blocks handed out as file data.
func (v *Volume) allocateBlock() (uint32, error) {
	for i := v.meta.InodeBlocks + 1; i < v.meta.Blocks; i++ {
		if !v.free[i] {
			v.free[i] = true
			return i, nil
		}
	}
	return 0, ErrNoSpace
}
