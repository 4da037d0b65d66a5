package fileio_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gopherfs/ospfs/blockstore"
	"github.com/gopherfs/ospfs/fileio"
	"github.com/gopherfs/ospfs/ospfs"
)

func TestWriteReadRoundTrip(t *testing.T) {
	d, err := blockstore.NewDisk(4096, 32)
	require.NoError(t, err)
	in := &ospfs.Inode{Ftype: ospfs.FtypeReg}

	payload := make([]byte, ospfs.BlkSize*3+42)
	for i := range payload {
		payload[i] = byte(i)
	}

	n, err := fileio.Write(d, in, payload, 0, false)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, uint32(len(payload)), in.Size)

	got := make([]byte, len(payload))
	n, err = fileio.Read(d, in, got, 0)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, got)
}

func TestWriteAtOffsetGrowsFile(t *testing.T) {
	d, err := blockstore.NewDisk(4096, 32)
	require.NoError(t, err)
	in := &ospfs.Inode{Ftype: ospfs.FtypeReg}

	_, err = fileio.Write(d, in, []byte("hello "), 0, false)
	require.NoError(t, err)
	_, err = fileio.Write(d, in, []byte("world"), in.Size, false)
	require.NoError(t, err)

	got := make([]byte, in.Size)
	_, err = fileio.Read(d, in, got, 0)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(got))
}

// appendMode ignores the passed-in offset entirely and writes at the
// file's current size instead, matching spec.md's "open with the append
// flag, set pos := size first" rule (spec.md §8 boundary scenario 6: a
// 100-byte file appended with 50 bytes ends up 150 bytes, regardless of
// what offset the caller thought it was writing at).
func TestWriteAppendModeIgnoresOffset(t *testing.T) {
	d, err := blockstore.NewDisk(4096, 32)
	require.NoError(t, err)
	in := &ospfs.Inode{Ftype: ospfs.FtypeReg}

	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = 'a'
	}
	_, err = fileio.Write(d, in, payload, 0, false)
	require.NoError(t, err)
	require.Equal(t, uint32(100), in.Size)

	n, err := fileio.Write(d, in, make([]byte, 50), 0, true)
	require.NoError(t, err)
	require.Equal(t, 50, n)
	require.Equal(t, uint32(150), in.Size)
}

// A write that can't fully grow the file must leave it exactly as it was,
// per spec.md §4.4's "call change_size to grow; on failure, propagate" —
// no bytes copied, no partial size change, unlike the old per-block-growth
// loop this replaced.
func TestWriteEnospcLeavesFileUnchanged(t *testing.T) {
	d, err := blockstore.NewDisk(8, 4)
	require.NoError(t, err)
	in := &ospfs.Inode{Ftype: ospfs.FtypeReg}

	free := d.FreeBlockCount()
	huge := make([]byte, int(free+1)*ospfs.BlkSize)

	n, err := fileio.Write(d, in, huge, 0, false)
	require.ErrorIs(t, err, ospfs.ErrNoSpace)
	require.Equal(t, 0, n)
	require.Equal(t, uint32(0), in.Size)
	require.Equal(t, free, d.FreeBlockCount())
}

func TestReadPastEOFReturnsZero(t *testing.T) {
	d, err := blockstore.NewDisk(64, 16)
	require.NoError(t, err)
	in := &ospfs.Inode{Ftype: ospfs.FtypeReg}
	_, err = fileio.Write(d, in, []byte("abc"), 0, false)
	require.NoError(t, err)

	buf := make([]byte, 10)
	n, err := fileio.Read(d, in, buf, 100)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestReadClampsToFileSize(t *testing.T) {
	d, err := blockstore.NewDisk(64, 16)
	require.NoError(t, err)
	in := &ospfs.Inode{Ftype: ospfs.FtypeReg}
	_, err = fileio.Write(d, in, []byte("abcdef"), 0, false)
	require.NoError(t, err)

	buf := make([]byte, 100)
	n, err := fileio.Read(d, in, buf, 3)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, "def", string(buf[:n]))
}

// Directory inodes are a legitimate caller of fileio: dirent reads and
// writes a directory's raw entry stream through this exact call, so
// fileio itself must not refuse Ftype == FtypeDir. Rejecting a user-level
// read(2)/write(2) against a directory is the vfs layer's responsibility.
func TestFileioServesDirectoryInodes(t *testing.T) {
	d, err := blockstore.NewDisk(64, 16)
	require.NoError(t, err)
	in := &ospfs.Inode{Ftype: ospfs.FtypeDir}

	n, err := fileio.Write(d, in, []byte("dirent-bytes"), 0, false)
	require.NoError(t, err)
	require.Equal(t, len("dirent-bytes"), n)

	got := make([]byte, n)
	n, err = fileio.Read(d, in, got, 0)
	require.NoError(t, err)
	require.Equal(t, "dirent-bytes", string(got[:n]))
}
