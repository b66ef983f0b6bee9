package volume

import (
	"fmt"
	"io"

	"simplefs/internal/layout"
)

// Debug dumps the superblock and every valid inode's pointers to w, the
// Go equivalent of fs_layer_1.cpp's debug() report. If the volume is
// password protected it re-checks the password before printing anything,
// the same gate mount() applies.
func (v *Volume) Debug(w io.Writer, prompt PasswordPrompt) error {
	if v.meta.Protected == 1 {
		if prompt == nil {
			return ErrAuthFailed
		}
		pw, err := prompt("Enter password: ")
		if err != nil {
			return err
		}
		if HashPassword(pw) != v.meta.PasswordDigest() {
			return ErrAuthFailed
		}
	}

	fmt.Fprintf(w, "SuperBlock:\n")
	fmt.Fprintf(w, "    magic number is valid\n")
	fmt.Fprintf(w, "    %d blocks\n", v.meta.Blocks)
	fmt.Fprintf(w, "    %d inode blocks\n", v.meta.InodeBlocks)
	fmt.Fprintf(w, "    %d directory blocks\n", v.meta.DirBlocks)
	fmt.Fprintf(w, "    %d inodes total\n", v.meta.Inodes)
	if v.meta.Protected == 1 {
		fmt.Fprintf(w, "    password protected\n")
	}

	for blockIdx := uint32(0); blockIdx < v.meta.InodeBlocks; blockIdx++ {
		if v.inodeCounter[blockIdx] == 0 {
			continue
		}
		buf := make([]byte, layout.BlockSize)
		if err := v.dev.Read(blockIdx+1, buf); err != nil {
			return err
		}
		ib, err := layout.DecodeInodeBlock(buf)
		if err != nil {
			return err
		}
		for slot := 0; slot < layout.InodesPerBlock; slot++ {
			node := ib[slot]
			if node.Valid == 0 {
				continue
			}
			inum := blockIdx*layout.InodesPerBlock + uint32(slot)
			fmt.Fprintf(w, "Inode %d:\n", inum)
			fmt.Fprintf(w, "    size: %d bytes\n", node.Size)
			var direct []uint32
			for _, d := range node.Direct {
				if d != 0 {
					direct = append(direct, d)
				}
			}
			if len(direct) > 0 {
				fmt.Fprintf(w, "    direct blocks: %v\n", direct)
			}
			if node.Indirect != 0 {
				fmt.Fprintf(w, "    indirect block: %d\n", node.Indirect)
				pb, err := v.readPointerBlock(node.Indirect)
				if err != nil {
					return err
				}
				var indirect []uint32
				for _, p := range pb {
					if p != 0 {
						indirect = append(indirect, p)
					}
				}
				if len(indirect) > 0 {
					fmt.Fprintf(w, "    indirect data blocks: %v\n", indirect)
				}
			}
		}
	}
	return nil
}

// StatReport dumps the on-disk directory/inode topology: every valid
// inode's pointers and every valid directory record's name, parent and
// live entries, grouped by region. The closest Go analogue to
// commands/rep.go's "represent the filesystem state" report, generalized
// to walk the whole inode table and directory region rather than a
// single cached directory, per the stat command's own contract (distinct
// from debug, which only reports the superblock and inodes).
func (v *Volume) StatReport(w io.Writer) error {
	fmt.Fprintf(w, "Volume: %d blocks, %d inode blocks, %d directory blocks\n",
		v.meta.Blocks, v.meta.InodeBlocks, v.meta.DirBlocks)
	used := 0
	for _, c := range v.inodeCounter {
		used += c
	}
	fmt.Fprintf(w, "Inodes in use: %d / %d\n", used, v.meta.Inodes)

	dused := 0
	for _, c := range v.dirCounter {
		dused += c
	}
	fmt.Fprintf(w, "Directories in use: %d / %d\n", dused, v.meta.DirBlocks*layout.DirsPerBlock)

	fmt.Fprintf(w, "Inodes:\n")
	for blockIdx := uint32(0); blockIdx < v.meta.InodeBlocks; blockIdx++ {
		if v.inodeCounter[blockIdx] == 0 {
			continue
		}
		buf := make([]byte, layout.BlockSize)
		if err := v.dev.Read(blockIdx+1, buf); err != nil {
			return err
		}
		ib, err := layout.DecodeInodeBlock(buf)
		if err != nil {
			return err
		}
		for slot := 0; slot < layout.InodesPerBlock; slot++ {
			node := ib[slot]
			if node.Valid == 0 {
				continue
			}
			inum := blockIdx*layout.InodesPerBlock + uint32(slot)
			var direct []uint32
			for _, d := range node.Direct {
				if d != 0 {
					direct = append(direct, d)
				}
			}
			fmt.Fprintf(w, "    inode %-4d size %-8d direct %v indirect %d\n",
				inum, node.Size, direct, node.Indirect)
		}
	}

	fmt.Fprintf(w, "Directories:\n")
	for k := uint32(0); k < v.meta.DirBlocks; k++ {
		physical := v.meta.Blocks - 1 - k
		db, err := v.readDirectoryBlock(physical)
		if err != nil {
			return err
		}
		for _, dir := range db {
			if dir.Valid == 0 {
				continue
			}
			parent := "(self)"
			for _, e := range entriesOf(dir) {
				if e.Name == ".." {
					parent = fmt.Sprintf("%d", e.Inum)
				}
			}
			fmt.Fprintf(w, "    dir %q inode %d parent %s\n", dir.NameString(), dir.Inum, parent)
			for _, e := range entriesOf(dir) {
				kind := "file"
				if e.IsDir {
					kind = "dir"
				}
				fmt.Fprintf(w, "        %-4s %-16s inode %d\n", kind, e.Name, e.Inum)
			}
		}
	}
	return nil
}
