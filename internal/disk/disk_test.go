package disk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"simplefs/internal/layout"
)

func TestCreateOpenReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.sfs")

	d, err := Create(path, 16)
	require.NoError(t, err)
	require.Equal(t, uint32(16), d.Size())

	frame := make([]byte, layout.BlockSize)
	for i := range frame {
		frame[i] = byte(i % 256)
	}
	require.NoError(t, d.Write(3, frame))

	got := make([]byte, layout.BlockSize)
	require.NoError(t, d.Read(3, got))
	require.Equal(t, frame, got)

	stats := d.Stats()
	require.Equal(t, uint64(1), stats.Reads)
	require.Equal(t, uint64(1), stats.Writes)
	require.NoError(t, d.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, uint32(16), reopened.Size())

	got2 := make([]byte, layout.BlockSize)
	require.NoError(t, reopened.Read(3, got2))
	require.Equal(t, frame, got2)
}

func TestBlockRangeAndMountGuard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.sfs")
	d, err := Create(path, 4)
	require.NoError(t, err)
	defer d.Close()

	buf := make([]byte, layout.BlockSize)
	require.ErrorIs(t, d.Read(4, buf), ErrInvalidBlock)
	require.ErrorIs(t, d.Write(100, buf), ErrInvalidBlock)

	require.NoError(t, d.Mount())
	require.True(t, d.Mounted())
	require.ErrorIs(t, d.Mount(), ErrAlreadyMounted)
	d.Unmount()
	require.False(t, d.Mounted())
}

func TestCreateRejectsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.sfs")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))
	_, err := Create(path, 4)
	require.Error(t, err)
}
