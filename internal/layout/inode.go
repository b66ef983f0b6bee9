package layout

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Inode is a single 32-byte inode record: Valid, Size, five direct block
// pointers and one indirect block pointer. InodesPerBlock of these pack
// exactly into one block (128*32 = 4096).
type Inode struct {
	Valid   uint32
	Size    uint32
	Direct  [DirectPointers]uint32
	Indirect uint32
}

// InodeBlock is the decoded form of one inode-table block.
type InodeBlock [InodesPerBlock]Inode

// Encode serializes an inode block to its 4096-byte on-disk frame.
func (ib InodeBlock) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	for i := range ib {
		if err := binary.Write(buf, binary.LittleEndian, &ib[i]); err != nil {
			return nil, fmt.Errorf("layout: encode inode %d: %w", i, err)
		}
	}
	if buf.Len() != BlockSize {
		return nil, fmt.Errorf("layout: encoded inode block is %d bytes, want %d", buf.Len(), BlockSize)
	}
	return buf.Bytes(), nil
}

// DecodeInodeBlock reconstructs an inode-table block from a raw frame.
func DecodeInodeBlock(block []byte) (InodeBlock, error) {
	var ib InodeBlock
	if len(block) < BlockSize {
		return ib, fmt.Errorf("layout: inode block frame too short: %d bytes", len(block))
	}
	r := bytes.NewReader(block)
	for i := range ib {
		if err := binary.Read(r, binary.LittleEndian, &ib[i]); err != nil {
			return ib, fmt.Errorf("layout: decode inode %d: %w", i, err)
		}
	}
	return ib, nil
}

// PointerBlock is the decoded form of an indirect block: 1024 absolute
// block numbers, 4 bytes each.
type PointerBlock [PointersPerBlock]uint32

func (pb PointerBlock) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, &pb); err != nil {
		return nil, fmt.Errorf("layout: encode pointer block: %w", err)
	}
	if buf.Len() != BlockSize {
		return nil, fmt.Errorf("layout: encoded pointer block is %d bytes, want %d", buf.Len(), BlockSize)
	}
	return buf.Bytes(), nil
}

func DecodePointerBlock(block []byte) (PointerBlock, error) {
	var pb PointerBlock
	if len(block) < BlockSize {
		return pb, fmt.Errorf("layout: pointer block frame too short: %d bytes", len(block))
	}
	if err := binary.Read(bytes.NewReader(block), binary.LittleEndian, &pb); err != nil {
		return pb, fmt.Errorf("layout: decode pointer block: %w", err)
	}
	return pb, nil
}
