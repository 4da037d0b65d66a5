package vfs

import (
	"syscall"
	"testing"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/stretchr/testify/require"

	"github.com/gopherfs/ospfs/blockstore"
	"github.com/gopherfs/ospfs/dirent"
	"github.com/gopherfs/ospfs/ospfs"
)

func TestToStatusMapsSentinelErrors(t *testing.T) {
	require.Equal(t, uint32(0), uint32(toStatus(nil)))
	require.Equal(t, uint32(syscall.ENOENT), uint32(toStatus(ospfs.ErrNotFound)))
	require.Equal(t, uint32(syscall.EEXIST), uint32(toStatus(ospfs.ErrExists)))
	require.Equal(t, uint32(syscall.ENOSPC), uint32(toStatus(ospfs.ErrNoSpace)))
	require.Equal(t, uint32(syscall.EIO), uint32(toStatus(ospfs.ErrIO)))
}

func TestModeForReflectsFtype(t *testing.T) {
	dir := &ospfs.Inode{Ftype: ospfs.FtypeDir, Mode: 0755}
	require.Equal(t, uint32(syscall.S_IFDIR|0755), modeFor(dir))

	reg := &ospfs.Inode{Ftype: ospfs.FtypeReg, Mode: 0644}
	require.Equal(t, uint32(syscall.S_IFREG|0644), modeFor(reg))

	lnk := &ospfs.Inode{Ftype: ospfs.FtypeLnk}
	require.Equal(t, uint32(syscall.S_IFLNK|0777), modeFor(lnk))
}

// spec.md §8 boundary scenario 6: open a 100-byte file, write 50 bytes
// through a handle carrying O_APPEND, and end up with a 150-byte file
// whose new bytes land after the old ones — regardless of the offset the
// WriteIn itself claims.
func TestWriteAppendModeOverridesOffset(t *testing.T) {
	d, err := blockstore.NewDisk(4096, 32)
	require.NoError(t, err)
	root := d.ReadInode(ospfs.RootIno)
	ino, err := dirent.Create(d, root, "log.txt", 0644)
	require.NoError(t, err)
	d.WriteInode(ospfs.RootIno, root)

	rfs := NewRawFS(New(d, nil))

	original := make([]byte, 100)
	for i := range original {
		original[i] = 'x'
	}
	n, status := rfs.Write(nil, &fuse.WriteIn{
		InHeader: fuse.InHeader{NodeId: uint64(ino)},
		Offset:   0,
	}, original)
	require.True(t, status.Ok())
	require.Equal(t, uint32(100), n)

	appended := make([]byte, 50)
	for i := range appended {
		appended[i] = 'y'
	}
	n, status = rfs.Write(nil, &fuse.WriteIn{
		InHeader: fuse.InHeader{NodeId: uint64(ino)},
		Offset:   0, // deliberately wrong: append mode must ignore this
		Flags:    syscall.O_APPEND,
	}, appended)
	require.True(t, status.Ok())
	require.Equal(t, uint32(50), n)

	in := d.ReadInode(ino)
	require.Equal(t, uint32(150), in.Size)

	got := make([]byte, in.Size)
	res, status := rfs.Read(nil, &fuse.ReadIn{InHeader: fuse.InHeader{NodeId: uint64(ino)}}, got)
	require.True(t, status.Ok())
	buf, status := res.Bytes(got)
	require.True(t, status.Ok())
	require.Equal(t, byte('x'), buf[0])
	require.Equal(t, byte('y'), buf[100])
}

func TestGetInodeRejectsFreeSlots(t *testing.T) {
	// getInode must treat a zeroed (Nlink==0) slot as not-found even
	// though it is within the table bounds, matching allocInode's
	// definition of "free".
	d, err := blockstore.NewDisk(64, 16)
	require.NoError(t, err)
	o := New(d, nil)
	_, err = o.getInode(5)
	require.ErrorIs(t, err, ospfs.ErrNotFound)
}
