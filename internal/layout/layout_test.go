package layout

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockSizedStructsRoundTrip(t *testing.T) {
	sb := Superblock{Magic: Magic, Blocks: 100, InodeBlocks: 10, DirBlocks: 1, Inodes: 1280}
	sb.SetPasswordDigest("deadbeef")
	buf, err := sb.Encode()
	require.NoError(t, err)
	require.Len(t, buf, BlockSize)

	got, err := DecodeSuperblock(buf)
	require.NoError(t, err)
	require.Equal(t, sb.Magic, got.Magic)
	require.Equal(t, sb.Blocks, got.Blocks)
	require.Equal(t, "deadbeef", got.PasswordDigest())

	var ib InodeBlock
	ib[3] = Inode{Valid: 1, Size: 42, Direct: [DirectPointers]uint32{7, 8, 0, 0, 0}, Indirect: 99}
	ibuf, err := ib.Encode()
	require.NoError(t, err)
	require.Len(t, ibuf, BlockSize)

	gotIB, err := DecodeInodeBlock(ibuf)
	require.NoError(t, err)
	require.Equal(t, ib[3], gotIB[3])

	var pb PointerBlock
	pb[0] = 5
	pb[1023] = 77
	pbuf, err := pb.Encode()
	require.NoError(t, err)
	require.Len(t, pbuf, BlockSize)

	gotPB, err := DecodePointerBlock(pbuf)
	require.NoError(t, err)
	require.Equal(t, uint32(5), gotPB[0])
	require.Equal(t, uint32(77), gotPB[1023])

	var db DirectoryBlock
	db[0].Valid = 1
	db[0].Inum = 0
	CStringTo(db[0].Name[:], "/")
	db[0].Table[0] = Dirent{Type: EntryDir, Valid: 1, Target: 0}
	CStringTo(db[0].Table[0].Name[:], ".")
	dbuf, err := db.Encode()
	require.NoError(t, err)
	require.Len(t, dbuf, BlockSize)

	gotDB, err := DecodeDirectoryBlock(dbuf)
	require.NoError(t, err)
	require.Equal(t, "/", gotDB[0].NameString())
	require.Equal(t, ".", gotDB[0].Table[0].NameString())
}

func TestCStringRoundTrip(t *testing.T) {
	var name [NameSize]byte
	CStringTo(name[:], "this-name-is-too-long-for-the-field")
	require.Len(t, DecodeCString(name[:]), NameSize-1)

	CStringTo(name[:], "ok")
	require.Equal(t, "ok", DecodeCString(name[:]))
}
