package volume

import "simplefs/internal/layout"

// Create allocates the first free inode slot, marks it valid with size
// zero, and returns its inode number. Grounded on fs_layer_1.cpp's
// create(): it scans inode blocks in order and, within a block, table
// slots in order, stopping at the first Valid==0 slot it finds.
//
// Inumber 0 in block 0's own slot 0 is never handed out: load_inode
// rejects inum<1 (Open Question #2), so the original's create() and
// load_inode() disagree about whether inumber 0 is reachable. The safe
// choice spec.md's design notes point to is taken here — inode 0 is
// reserved, permanently unallocated, as the root directory's file-inode
// placeholder, and every real file starts at inumber 1.
func (v *Volume) Create() (uint32, error) {
	if !v.mounted {
		return 0, ErrNotMounted
	}

	for blockIdx := uint32(0); blockIdx < v.meta.InodeBlocks; blockIdx++ {
		capacity := layout.InodesPerBlock
		if blockIdx == 0 {
			capacity--
		}
		if v.inodeCounter[blockIdx] == capacity {
			continue
		}
		buf := make([]byte, layout.BlockSize)
		if err := v.dev.Read(blockIdx+1, buf); err != nil {
			return 0, err
		}
		ib, err := layout.DecodeInodeBlock(buf)
		if err != nil {
			return 0, err
		}
		startSlot := 0
		if blockIdx == 0 {
			startSlot = 1
		}
		for slot := startSlot; slot < layout.InodesPerBlock; slot++ {
			if ib[slot].Valid != 0 {
				continue
			}
			ib[slot] = layout.Inode{Valid: 1}
			out, err := ib.Encode()
			if err != nil {
				return 0, err
			}
			if err := v.dev.Write(blockIdx+1, out); err != nil {
				return 0, err
			}
			v.inodeCounter[blockIdx]++
			v.free[blockIdx+1] = true
			return blockIdx*layout.InodesPerBlock + uint32(slot), nil
		}
	}
	return 0, ErrNoSpace
}

// LoadInode returns the decoded inode at inum. Inode number 0 is never
// loadable here even though it is a structurally valid slot index; this
// mirrors load_inode's `inumber < 1` rejection. Create never allocates
// it, so the rejection is a closed door rather than a live ambiguity
// (see Open Question #2 in the design notes).
func (v *Volume) LoadInode(inum uint32) (layout.Inode, error) {
	if !v.mounted {
		return layout.Inode{}, ErrNotMounted
	}
	if inum < 1 || inum >= v.meta.Inodes {
		return layout.Inode{}, ErrNotFound
	}
	blockIdx := inum / layout.InodesPerBlock
	slot := inum % layout.InodesPerBlock
	if v.inodeCounter[blockIdx] == 0 {
		return layout.Inode{}, ErrNotFound
	}
	buf := make([]byte, layout.BlockSize)
	if err := v.dev.Read(blockIdx+1, buf); err != nil {
		return layout.Inode{}, err
	}
	ib, err := layout.DecodeInodeBlock(buf)
	if err != nil {
		return layout.Inode{}, err
	}
	if ib[slot].Valid == 0 {
		return layout.Inode{}, ErrNotFound
	}
	return ib[slot], nil
}

// Stat returns the logical size in bytes of the file at inum.
func (v *Volume) Stat(inum uint32) (uint32, error) {
	node, err := v.LoadInode(inum)
	if err != nil {
		return 0, err
	}
	return node.Size, nil
}

// Remove frees every block owned by the inode at inum (direct pointers,
// the indirect block and everything it points to), clears the inode and
// drops the inode-block occupancy count, matching fs_layer_1.cpp's
// remove() including its `blockIdx+1` bookkeeping (Open Question #1).
func (v *Volume) Remove(inum uint32) error {
	node, err := v.LoadInode(inum)
	if err != nil {
		return err
	}
	blockIdx := inum / layout.InodesPerBlock
	slot := inum % layout.InodesPerBlock

	for i, d := range node.Direct {
		if d != 0 {
			v.free[d] = false
		}
		node.Direct[i] = 0
	}
	if node.Indirect != 0 {
		if pb, err := v.readPointerBlock(node.Indirect); err == nil {
			for _, p := range pb {
				if p != 0 {
					v.free[p] = false
				}
			}
		}
		v.free[node.Indirect] = false
		node.Indirect = 0
	}
	node.Valid = 0
	node.Size = 0

	v.inodeCounter[blockIdx]--
	if v.inodeCounter[blockIdx] == 0 {
		v.free[blockIdx+1] = false
	}

	return v.commitInode(blockIdx, slot, node)
}
