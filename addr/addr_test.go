package addr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gopherfs/ospfs/addr"
	"github.com/gopherfs/ospfs/blockstore"
	"github.com/gopherfs/ospfs/ospfs"
	"github.com/gopherfs/ospfs/resize"
)

func TestNumBlocks(t *testing.T) {
	cases := []struct {
		size uint32
		want uint32
	}{
		{0, 0},
		{1, 1},
		{ospfs.BlkSize, 1},
		{ospfs.BlkSize + 1, 2},
		{ospfs.BlkSize * 10, 10},
	}
	for _, c := range cases {
		require.Equal(t, c.want, addr.NumBlocks(c.size), "size=%d", c.size)
	}
}

func TestTierBoundaries(t *testing.T) {
	require.False(t, addr.NeedsNewIndirect(ospfs.NDirect-1))
	require.True(t, addr.NeedsNewIndirect(ospfs.NDirect))
	require.False(t, addr.NeedsNewDoublyIndirect(ospfs.NDirect+ospfs.NIndirect-1))
	require.True(t, addr.NeedsNewDoublyIndirect(ospfs.NDirect+ospfs.NIndirect))
}

func TestLookupAcrossTiers(t *testing.T) {
	d, err := blockstore.NewDisk(4096, 64)
	require.NoError(t, err)

	in := &ospfs.Inode{Ftype: ospfs.FtypeReg}
	// Grow well past the indirect boundary so Lookup exercises direct,
	// singly-indirect, and (if the disk is big enough) doubly-indirect
	// addressing.
	target := uint32(ospfs.NDirect + ospfs.NIndirect + 5)
	for i := uint32(0); i < target; i++ {
		require.NoError(t, resize.AddBlock(d, in))
	}
	require.Equal(t, target, addr.NumBlocks(in.Size))

	seen := map[uint32]bool{}
	for i := uint32(0); i < target; i++ {
		blockno, err := addr.Lookup(d, in, i)
		require.NoError(t, err)
		require.False(t, seen[blockno], "block %d reused at index %d", blockno, i)
		seen[blockno] = true
	}

	_, err = addr.Lookup(d, in, target)
	require.ErrorIs(t, err, ospfs.ErrNoBlock)
}

func TestLookupRejectsSymlink(t *testing.T) {
	d, err := blockstore.NewDisk(64, 16)
	require.NoError(t, err)
	in := &ospfs.Inode{Ftype: ospfs.FtypeLnk}
	_, err = addr.Lookup(d, in, 0)
	require.ErrorIs(t, err, ospfs.ErrNoBlock)
}
