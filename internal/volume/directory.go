package volume

import "simplefs/internal/layout"

// Entry is a single name visible in a directory listing.
type Entry struct {
	Name  string
	Inum  uint32
	IsDir bool
}

// addDirEntry inserts target/typ/name into the first free slot of dir's
// table. It takes no Volume receiver because it only touches the
// in-memory Directory value; callers decide when to persist it.
// Grounded on fs_layer_2.cpp's add_dir_entry().
func addDirEntry(dir layout.Directory, target uint32, typ uint8, name string) (layout.Directory, error) {
	for i := range dir.Table {
		if dir.Table[i].Valid != 0 {
			continue
		}
		dir.Table[i] = layout.Dirent{Type: typ, Valid: 1, Target: target}
		layout.CStringTo(dir.Table[i].Name[:], name)
		return dir, nil
	}
	return dir, ErrDirFull
}

// dirLookup returns the table slot of name within dir, or ErrNotFound.
func dirLookup(dir layout.Directory, name string) (int, error) {
	for i, d := range dir.Table {
		if d.Valid == 1 && d.NameString() == name {
			return i, nil
		}
	}
	return -1, ErrNotFound
}

func (v *Volume) physicalDirBlock(inum uint32) uint32 {
	blockIdx := inum / layout.DirsPerBlock
	return v.meta.Blocks - 1 - blockIdx
}

func (v *Volume) readDirectoryBlock(physical uint32) (layout.DirectoryBlock, error) {
	buf := make([]byte, layout.BlockSize)
	if err := v.dev.Read(physical, buf); err != nil {
		return layout.DirectoryBlock{}, err
	}
	return layout.DecodeDirectoryBlock(buf)
}

func (v *Volume) writeDirectoryBlock(physical uint32, db layout.DirectoryBlock) error {
	buf, err := db.Encode()
	if err != nil {
		return err
	}
	return v.dev.Write(physical, buf)
}

// readDirFromOffset resolves the child Directory a Dirent at slot points
// to, refusing if that slot isn't a live directory entry. Grounded on
// fs_layer_2.cpp's read_dir_from_offset().
func (v *Volume) readDirFromOffset(dir layout.Directory, slot int) (layout.Directory, error) {
	d := dir.Table[slot]
	if d.Valid == 0 || d.Type != layout.EntryDir {
		return layout.Directory{}, ErrNotADir
	}
	physical := v.physicalDirBlock(d.Target)
	db, err := v.readDirectoryBlock(physical)
	if err != nil {
		return layout.Directory{}, err
	}
	return db[d.Target%layout.DirsPerBlock], nil
}

// writeDirBack persists dir to the directory block it belongs to, read
// back through d.Inum the same way fs_layer_2.cpp's write_dir_back()
// addresses its target physical block.
func (v *Volume) writeDirBack(dir layout.Directory) error {
	physical := v.physicalDirBlock(dir.Inum)
	db, err := v.readDirectoryBlock(physical)
	if err != nil {
		return err
	}
	db[dir.Inum%layout.DirsPerBlock] = dir
	return v.writeDirectoryBlock(physical, db)
}

// Mkdir creates a new subdirectory named name inside the current
// directory, seeding its own "." and ".." entries. Running out of free
// directory-record slots across the whole directory region surfaces as
// ErrNoSpace, distinct from a single directory's 7-entry table filling
// up (ErrDirFull).
func (v *Volume) Mkdir(name string) error {
	if !v.mounted {
		return ErrNotMounted
	}
	if _, err := dirLookup(v.currDir, name); err == nil {
		return ErrDuplicate
	}

	var blockIdx uint32
	found := false
	for i := uint32(0); i < v.meta.DirBlocks; i++ {
		if v.dirCounter[i] < layout.DirsPerBlock {
			blockIdx = i
			found = true
			break
		}
	}
	if !found {
		return ErrNoSpace
	}

	physical := v.meta.Blocks - 1 - blockIdx
	db, err := v.readDirectoryBlock(physical)
	if err != nil {
		return err
	}
	slot := -1
	for i, rec := range db {
		if rec.Valid == 0 {
			slot = i
			break
		}
	}
	if slot == -1 {
		return ErrNoSpace
	}

	inum := blockIdx*layout.DirsPerBlock + uint32(slot)
	newDir := layout.Directory{Valid: 1, Inum: inum}
	layout.CStringTo(newDir.Name[:], name)
	if newDir, err = addDirEntry(newDir, inum, layout.EntryDir, "."); err != nil {
		return err
	}
	if newDir, err = addDirEntry(newDir, v.currDir.Inum, layout.EntryDir, ".."); err != nil {
		return err
	}
	db[slot] = newDir
	if err := v.writeDirectoryBlock(physical, db); err != nil {
		return err
	}

	updated, err := addDirEntry(v.currDir, inum, layout.EntryDir, name)
	if err != nil {
		return err
	}
	v.currDir = updated
	if err := v.writeDirBack(v.currDir); err != nil {
		return err
	}
	v.dirCounter[blockIdx]++
	return nil
}

// Touch creates a new empty file named name in the current directory.
func (v *Volume) Touch(name string) error {
	if !v.mounted {
		return ErrNotMounted
	}
	if _, err := dirLookup(v.currDir, name); err == nil {
		return ErrDuplicate
	}
	inum, err := v.Create()
	if err != nil {
		return err
	}
	updated, err := addDirEntry(v.currDir, inum, layout.EntryFile, name)
	if err != nil {
		return err
	}
	v.currDir = updated
	return v.writeDirBack(v.currDir)
}

// Cd changes the current directory to the named subdirectory.
func (v *Volume) Cd(name string) error {
	if !v.mounted {
		return ErrNotMounted
	}
	slot, err := dirLookup(v.currDir, name)
	if err != nil {
		return err
	}
	dir, err := v.readDirFromOffset(v.currDir, slot)
	if err != nil {
		return err
	}
	v.currDir = dir
	return nil
}

func entriesOf(dir layout.Directory) []Entry {
	out := make([]Entry, 0, layout.EntriesPerDir)
	for _, d := range dir.Table {
		if d.Valid == 0 {
			continue
		}
		out = append(out, Entry{Name: d.NameString(), Inum: d.Target, IsDir: d.Type == layout.EntryDir})
	}
	return out
}

// Ls lists the current directory.
func (v *Volume) Ls() ([]Entry, error) {
	if !v.mounted {
		return nil, ErrNotMounted
	}
	return entriesOf(v.currDir), nil
}

// LsDir lists a named subdirectory of the current directory without
// changing into it.
func (v *Volume) LsDir(name string) ([]Entry, error) {
	if !v.mounted {
		return nil, ErrNotMounted
	}
	slot, err := dirLookup(v.currDir, name)
	if err != nil {
		return nil, err
	}
	dir, err := v.readDirFromOffset(v.currDir, slot)
	if err != nil {
		return nil, err
	}
	return entriesOf(dir), nil
}

// Rm removes a file or, recursively, a directory named name from the
// current directory.
func (v *Volume) Rm(name string) error {
	if !v.mounted {
		return ErrNotMounted
	}
	updated, err := v.rmHelper(v.currDir, name)
	if err != nil {
		return err
	}
	v.currDir = updated
	return nil
}

// Rmdir removes a named subdirectory and everything under it.
func (v *Volume) Rmdir(name string) error {
	if !v.mounted {
		return ErrNotMounted
	}
	updated, err := v.rmdirHelper(v.currDir, name)
	if err != nil {
		return err
	}
	v.currDir = updated
	return nil
}

// rmHelper removes the Dirent named name from dir: a file is unlinked
// directly, a directory is routed through rmdirHelper. Grounded on
// fs_layer_2.cpp's rm_helper().
func (v *Volume) rmHelper(dir layout.Directory, name string) (layout.Directory, error) {
	slot, err := dirLookup(dir, name)
	if err != nil {
		return dir, err
	}
	if dir.Table[slot].Type == layout.EntryDir {
		return v.rmdirHelper(dir, name)
	}
	inum := dir.Table[slot].Target
	if err := v.Remove(inum); err != nil {
		return dir, err
	}
	dir.Table[slot] = layout.Dirent{}
	if err := v.writeDirBack(dir); err != nil {
		return dir, err
	}
	return dir, nil
}

// rmdirHelper removes the directory named name from parent after
// recursively removing everything in it (but never its own "." and ".."
// entries, which live at slots 0 and 1). It refuses to remove the
// directory the volume is currently sitting in. Grounded on
// fs_layer_2.cpp's rmdir_helper(), with that current-directory guard
// added per the design notes (the original does not check for it).
func (v *Volume) rmdirHelper(parent layout.Directory, name string) (layout.Directory, error) {
	slot, err := dirLookup(parent, name)
	if err != nil {
		return parent, err
	}
	if parent.Table[slot].Type != layout.EntryDir {
		return parent, ErrNotADir
	}

	childInum := parent.Table[slot].Target
	physical := v.physicalDirBlock(childInum)
	idx := childInum % layout.DirsPerBlock

	db, err := v.readDirectoryBlock(physical)
	if err != nil {
		return parent, err
	}
	child := db[idx]

	if child.NameString() == v.currDir.NameString() {
		return parent, ErrCurrentDir
	}

	for i := 2; i < layout.EntriesPerDir; i++ {
		d := child.Table[i]
		if d.Valid == 0 {
			continue
		}
		child, err = v.rmHelper(child, d.NameString())
		if err != nil {
			return parent, err
		}
	}

	// Descendant removal may have rewritten other directory blocks but
	// not this record; re-read defensively before clearing it.
	db, err = v.readDirectoryBlock(physical)
	if err != nil {
		return parent, err
	}
	db[idx] = layout.Directory{}
	if err := v.writeDirectoryBlock(physical, db); err != nil {
		return parent, err
	}
	v.dirCounter[childInum/layout.DirsPerBlock]--

	parent.Table[slot] = layout.Dirent{}
	if err := v.writeDirBack(parent); err != nil {
		return parent, err
	}
	return parent, nil
}
