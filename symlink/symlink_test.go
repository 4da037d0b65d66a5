package symlink_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gopherfs/ospfs/ospfs"
	"github.com/gopherfs/ospfs/symlink"
)

func TestPlainSymlinkResolvesVerbatim(t *testing.T) {
	in, err := symlink.Create(nil, "some/target/path")
	require.NoError(t, err)

	got, err := symlink.FollowLink(in, 1000)
	require.NoError(t, err)
	require.Equal(t, "some/target/path", got)

	got, err = symlink.FollowLink(in, 0)
	require.NoError(t, err)
	require.Equal(t, "some/target/path", got)
}

func TestConditionalSymlinkDispatchesOnUid(t *testing.T) {
	in, err := symlink.Create(nil, "root?for-root:for-everyone-else")
	require.NoError(t, err)

	got, err := symlink.FollowLink(in, 0)
	require.NoError(t, err)
	require.Equal(t, "for-root", got)

	got, err = symlink.FollowLink(in, 1000)
	require.NoError(t, err)
	require.Equal(t, "for-everyone-else", got)
}

func TestCreateRejectsOverlongTarget(t *testing.T) {
	target := strings.Repeat("x", ospfs.MaxSymlinkLen+1)
	_, err := symlink.Create(nil, target)
	require.ErrorIs(t, err, ospfs.ErrNameTooLong)
}

func TestFollowLinkRejectsNonSymlink(t *testing.T) {
	in := &ospfs.Inode{Ftype: ospfs.FtypeReg}
	_, err := symlink.FollowLink(in, 0)
	require.ErrorIs(t, err, ospfs.ErrNotPermitted)
}
