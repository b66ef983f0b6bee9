package volume

import "simplefs/internal/layout"

// blockPointer returns the absolute block number stored at logical
// block index logicalIndex within node, consulting the indirect block
// (already-loaded into indirect, if indirectLoaded) only when the index
// falls past the direct pointers.
func (v *Volume) blockPointer(node *layout.Inode, logicalIndex int, indirect *layout.PointerBlock, indirectLoaded *bool) (uint32, error) {
	if logicalIndex < layout.DirectPointers {
		return node.Direct[logicalIndex], nil
	}
	idx := logicalIndex - layout.DirectPointers
	if idx >= layout.PointersPerBlock {
		return 0, nil
	}
	if node.Indirect == 0 {
		return 0, nil
	}
	if !*indirectLoaded {
		pb, err := v.readPointerBlock(node.Indirect)
		if err != nil {
			return 0, err
		}
		*indirect = pb
		*indirectLoaded = true
	}
	return indirect[idx], nil
}

// Read copies up to length bytes from the file at inum, starting at
// offset, into buf. A hole (a zero pointer reached before the logical
// end of file) terminates the read early, the same way fs_layer_1.cpp's
// read() stops as soon as it dereferences an unallocated block.
func (v *Volume) Read(inum uint32, buf []byte, length, offset int) (int, error) {
	if !v.mounted {
		return 0, ErrNotMounted
	}
	size, err := v.Stat(inum)
	if err != nil {
		return 0, err
	}
	if offset < 0 || offset >= int(size) {
		return 0, nil
	}
	if offset+length > int(size) {
		length = int(size) - offset
	}

	node, err := v.LoadInode(inum)
	if err != nil {
		return 0, err
	}

	var indirect layout.PointerBlock
	indirectLoaded := false

	written := 0
	pos := offset
	remaining := length
	for remaining > 0 {
		logical := pos / layout.BlockSize
		intra := pos % layout.BlockSize

		ptr, err := v.blockPointer(&node, logical, &indirect, &indirectLoaded)
		if err != nil {
			return written, err
		}
		if ptr == 0 {
			break
		}

		block := make([]byte, layout.BlockSize)
		if err := v.dev.Read(ptr, block); err != nil {
			return written, err
		}
		n := layout.BlockSize - intra
		if n > remaining {
			n = remaining
		}
		copy(buf[written:written+n], block[intra:intra+n])

		written += n
		remaining -= n
		pos += n
	}
	return written, nil
}

// Write copies length bytes from data, starting at offset, into the file
// at inum, allocating blocks lazily and allocating the inode itself in
// place if it was not already valid. Every destination block is
// committed as a freshly zeroed frame patched with the written slice, so
// bytes outside that slice (including any bytes previously written to
// the same block by an earlier call) read back as zero, the same way
// fs_layer_1.cpp's write_ret() commits its blocks.
//
// If allocation runs out of space partway through, Write returns the
// number of bytes actually committed and a nil error: it is the one
// operation allowed a partial-success outcome.
func (v *Volume) Write(inum uint32, data []byte, length, offset int) (int, error) {
	if !v.mounted {
		return 0, ErrNotMounted
	}
	if offset < 0 || length < 0 || offset+length > layout.MaxFileSize {
		return 0, ErrTooLarge
	}
	if inum >= v.meta.Inodes {
		return 0, ErrNotFound
	}

	blockIdx := inum / layout.InodesPerBlock
	slot := inum % layout.InodesPerBlock

	node, err := v.LoadInode(inum)
	if err != nil {
		node = layout.Inode{Valid: 1, Size: uint32(offset + length)}
		v.inodeCounter[blockIdx]++
		v.free[blockIdx+1] = true
	} else {
		newSize := offset + length
		if newSize < int(node.Size) {
			newSize = int(node.Size)
		}
		node.Size = uint32(newSize)
	}

	var indirect layout.PointerBlock
	indirectLoaded := false
	indirectDirty := false
	var shortfall error

	written := 0
	pos := offset
	remaining := length
	for remaining > 0 {
		logical := pos / layout.BlockSize
		intra := pos % layout.BlockSize

		var slotPtr *uint32
		if logical < layout.DirectPointers {
			slotPtr = &node.Direct[logical]
		} else {
			idx := logical - layout.DirectPointers
			if idx >= layout.PointersPerBlock {
				break
			}
			if node.Indirect == 0 {
				blk, err := v.allocateBlock()
				if err != nil {
					shortfall = err
					break
				}
				node.Indirect = blk
				indirect = layout.PointerBlock{}
				indirectLoaded = true
				indirectDirty = true
			} else if !indirectLoaded {
				pb, err := v.readPointerBlock(node.Indirect)
				if err != nil {
					return written, err
				}
				indirect = pb
				indirectLoaded = true
			}
			slotPtr = &indirect[idx]
		}

		if *slotPtr == 0 {
			blk, err := v.allocateBlock()
			if err != nil {
				shortfall = err
				break
			}
			*slotPtr = blk
			if logical >= layout.DirectPointers {
				indirectDirty = true
			}
		}

		scratch := make([]byte, layout.BlockSize)
		n := layout.BlockSize - intra
		if n > remaining {
			n = remaining
		}
		copy(scratch[intra:intra+n], data[written:written+n])
		if err := v.dev.Write(*slotPtr, scratch); err != nil {
			return written, err
		}

		written += n
		remaining -= n
		pos += n
	}

	if shortfall != nil {
		node.Size = uint32(offset + written)
	}
	if indirectDirty {
		if err := v.writePointerBlock(node.Indirect, indirect); err != nil {
			return written, err
		}
	}
	if err := v.commitInode(blockIdx, slot, node); err != nil {
		return written, err
	}
	return written, nil
}
