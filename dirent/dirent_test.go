package dirent_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gopherfs/ospfs/blockstore"
	"github.com/gopherfs/ospfs/dirent"
	"github.com/gopherfs/ospfs/fileio"
	"github.com/gopherfs/ospfs/ospfs"
)

func rootDir(t *testing.T, d *blockstore.Disk) *ospfs.Inode {
	t.Helper()
	return d.ReadInode(ospfs.RootIno)
}

func TestCreateLookupUnlink(t *testing.T) {
	d, err := blockstore.NewDisk(4096, 32)
	require.NoError(t, err)
	root := rootDir(t, d)

	ino, err := dirent.Create(d, root, "hello.txt", 0644)
	require.NoError(t, err)
	d.WriteInode(ospfs.RootIno, root)

	got, err := dirent.Lookup(d, root, "hello.txt")
	require.NoError(t, err)
	require.Equal(t, ino, got)

	require.NoError(t, dirent.Unlink(d, root, "hello.txt"))
	d.WriteInode(ospfs.RootIno, root)

	_, err = dirent.Lookup(d, root, "hello.txt")
	require.ErrorIs(t, err, ospfs.ErrNotFound)

	freed := d.ReadInode(ino)
	require.True(t, freed.IsFree())
}

func TestCreateDuplicateNameFails(t *testing.T) {
	d, err := blockstore.NewDisk(64, 16)
	require.NoError(t, err)
	root := rootDir(t, d)

	_, err = dirent.Create(d, root, "a", 0644)
	require.NoError(t, err)
	d.WriteInode(ospfs.RootIno, root)

	_, err = dirent.Create(d, root, "a", 0644)
	require.ErrorIs(t, err, ospfs.ErrExists)
}

func TestNameTooLongRejected(t *testing.T) {
	d, err := blockstore.NewDisk(64, 16)
	require.NoError(t, err)
	root := rootDir(t, d)

	longName := make([]byte, ospfs.MaxNameLen+1)
	for i := range longName {
		longName[i] = 'x'
	}
	_, err = dirent.Create(d, root, string(longName), 0644)
	require.ErrorIs(t, err, ospfs.ErrNameTooLong)
}

func TestUnlinkReusesTombstoneSlot(t *testing.T) {
	d, err := blockstore.NewDisk(64, 16)
	require.NoError(t, err)
	root := rootDir(t, d)

	_, err = dirent.Create(d, root, "a", 0644)
	require.NoError(t, err)
	d.WriteInode(ospfs.RootIno, root)
	sizeAfterFirst := root.Size

	require.NoError(t, dirent.Unlink(d, root, "a"))
	d.WriteInode(ospfs.RootIno, root)

	_, err = dirent.Create(d, root, "b", 0644)
	require.NoError(t, err)
	d.WriteInode(ospfs.RootIno, root)

	require.Equal(t, sizeAfterFirst, root.Size, "reusing the tombstone slot must not grow the directory")
}

func TestLinkIncrementsNlinkAndUnlinkKeepsFileUntilLastLink(t *testing.T) {
	d, err := blockstore.NewDisk(4096, 16)
	require.NoError(t, err)
	root := rootDir(t, d)

	ino, err := dirent.Create(d, root, "a", 0644)
	require.NoError(t, err)
	d.WriteInode(ospfs.RootIno, root)
	require.Equal(t, uint32(1), d.ReadInode(ino).Nlink)

	require.NoError(t, dirent.Link(d, root, "b", ino))
	d.WriteInode(ospfs.RootIno, root)
	require.Equal(t, uint32(2), d.ReadInode(ino).Nlink)

	require.NoError(t, dirent.Unlink(d, root, "a"))
	d.WriteInode(ospfs.RootIno, root)
	require.False(t, d.ReadInode(ino).IsFree(), "inode with a remaining link must survive")

	require.NoError(t, dirent.Unlink(d, root, "b"))
	d.WriteInode(ospfs.RootIno, root)
	require.True(t, d.ReadInode(ino).IsFree())
}

func TestUnlinkFreesAllBlocks(t *testing.T) {
	d, err := blockstore.NewDisk(4096, 16)
	require.NoError(t, err)
	root := rootDir(t, d)

	ino, err := dirent.Create(d, root, "big", 0644)
	require.NoError(t, err)
	d.WriteInode(ospfs.RootIno, root)
	// Measure after the directory entry itself is in place: root's own
	// directory block, once grown, is never shrunk back by Unlink (only
	// the target file's blocks are), so the baseline must be taken here
	// rather than before Create.
	freeAfterCreate := d.FreeBlockCount()

	in := d.ReadInode(ino)
	payload := make([]byte, ospfs.BlkSize*(ospfs.NDirect+5))
	_, err = fileio.Write(d, in, payload, 0, false)
	require.NoError(t, err)
	d.WriteInode(ino, in)
	require.Less(t, d.FreeBlockCount(), freeAfterCreate)

	require.NoError(t, dirent.Unlink(d, root, "big"))
	d.WriteInode(ospfs.RootIno, root)
	require.Equal(t, freeAfterCreate, d.FreeBlockCount(), "unlinking the last link must reclaim every data block")
}
