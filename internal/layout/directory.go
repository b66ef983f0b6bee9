package layout

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Dirent is one entry inside a Directory's table: a typed pointer to
// either a file inode (Type == EntryFile) or another Directory record
// (Type == EntryDir), addressed by name. Rebuilt from the spirit of
// structs.BContent (name + target, packed tight) for SimpleFS's own
// directory-record shape.
type Dirent struct {
	Type   uint8
	Valid  uint8
	Target uint32
	Name   [NameSize]byte
}

const (
	EntryDir  uint8 = 0
	EntryFile uint8 = 1
)

func (d Dirent) NameString() string { return DecodeCString(d.Name[:]) }

// direntSize is Dirent's encoded size: 1 + 1 + 4 + 16 = 22 bytes.
const direntSize = 1 + 1 + 4 + NameSize

// Directory is one directory record: its own name, its own inode number
// (used to compute the physical block it lives in), and a fixed table of
// Dirent entries (conventionally slot 0 is "." and slot 1 is "..").
type Directory struct {
	Valid uint16
	Inum  uint32
	Name  [NameSize]byte
	Table [EntriesPerDir]Dirent
}

// directorySize is Directory's encoded size: 2 + 4 + 16 + 7*22 = 176 bytes.
const directorySize = 2 + 4 + NameSize + EntriesPerDir*direntSize

func (d Directory) NameString() string { return DecodeCString(d.Name[:]) }

func (d Directory) encodeInto(buf *bytes.Buffer) error {
	if err := binary.Write(buf, binary.LittleEndian, d.Valid); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, d.Inum); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, d.Name); err != nil {
		return err
	}
	for _, ent := range d.Table {
		if err := binary.Write(buf, binary.LittleEndian, &ent); err != nil {
			return err
		}
	}
	return nil
}

func decodeDirectory(r *bytes.Reader) (Directory, error) {
	var d Directory
	if err := binary.Read(r, binary.LittleEndian, &d.Valid); err != nil {
		return d, err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.Inum); err != nil {
		return d, err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.Name); err != nil {
		return d, err
	}
	for i := range d.Table {
		if err := binary.Read(r, binary.LittleEndian, &d.Table[i]); err != nil {
			return d, err
		}
	}
	return d, nil
}

// DirectoryBlock is the decoded form of one directory-region block:
// DirsPerBlock Directory records, followed by unused padding up to
// BlockSize.
type DirectoryBlock [DirsPerBlock]Directory

func (db DirectoryBlock) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	for i := range db {
		if err := db[i].encodeInto(buf); err != nil {
			return nil, fmt.Errorf("layout: encode directory record %d: %w", i, err)
		}
	}
	if buf.Len() != DirsPerBlock*directorySize {
		return nil, fmt.Errorf("layout: encoded directory records total %d bytes, want %d", buf.Len(), DirsPerBlock*directorySize)
	}
	out := make([]byte, BlockSize)
	copy(out, buf.Bytes())
	return out, nil
}

func DecodeDirectoryBlock(block []byte) (DirectoryBlock, error) {
	var db DirectoryBlock
	if len(block) < BlockSize {
		return db, fmt.Errorf("layout: directory block frame too short: %d bytes", len(block))
	}
	r := bytes.NewReader(block[:DirsPerBlock*directorySize])
	for i := range db {
		rec, err := decodeDirectory(r)
		if err != nil {
			return db, fmt.Errorf("layout: decode directory record %d: %w", i, err)
		}
		db[i] = rec
	}
	return db, nil
}
