package layout

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Superblock is the first block of a SimpleFS volume. It carries the
// geometry computed at format time plus the optional password gate.
// Grounded on structs.SuperBloque's role (the one metadata block every
// other structure is sized against), rebuilt with SimpleFS's own fields.
type Superblock struct {
	Magic       uint32
	Blocks      uint32
	InodeBlocks uint32
	DirBlocks   uint32
	Inodes      uint32
	Protected   uint32
	PasswordHash [PasswordHashSize]byte
}

// Encode serializes the superblock into a zero-padded 4096-byte block.
func (s Superblock) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, &s); err != nil {
		return nil, fmt.Errorf("layout: encode superblock: %w", err)
	}
	out := make([]byte, BlockSize)
	copy(out, buf.Bytes())
	return out, nil
}

// DecodeSuperblock reconstructs a Superblock from a raw block.
func DecodeSuperblock(block []byte) (Superblock, error) {
	var s Superblock
	if len(block) < BlockSize {
		return s, fmt.Errorf("layout: superblock frame too short: %d bytes", len(block))
	}
	if err := binary.Read(bytes.NewReader(block), binary.LittleEndian, &s); err != nil {
		return s, fmt.Errorf("layout: decode superblock: %w", err)
	}
	return s, nil
}

// PasswordDigest returns the stored hex digest, trimmed of padding.
func (s Superblock) PasswordDigest() string {
	return DecodeCString(s.PasswordHash[:])
}

// SetPasswordDigest stores a hex digest in the fixed-size hash field.
func (s *Superblock) SetPasswordDigest(digest string) {
	CStringTo(s.PasswordHash[:], digest)
}
