// Package symlink implements L6: creating and resolving symbolic links,
// including the conditional form "root?path-for-uid-0:path-for-everyone-
// else" original_source uses to let the grading harness serve different
// targets depending on who's asking. Grounded on original_source's
// ospfs_symlink and ospfs_follow_link.
package symlink

import (
	"strings"

	"github.com/gopherfs/ospfs/blockstore"
	"github.com/gopherfs/ospfs/ospfs"
)

// conditionalPrefix marks a conditional symlink: its stored target is
// "root?<uid0-path>:<other-path>" rather than a literal path.
const conditionalPrefix = "root?"

// Create builds an in-memory symlink inode holding target verbatim and
// returns it; it neither claims an inode table slot nor adds a directory
// entry (the caller does both, as vfs.RawFS.Symlink does). d is not used.
// target (including any "root?a:b" wrapper) must fit within
// MaxSymlinkLen bytes.
func Create(d *blockstore.Disk, target string) (*ospfs.Inode, error) {
	if len(target) > ospfs.MaxSymlinkLen {
		return nil, ospfs.ErrNameTooLong
	}
	in := &ospfs.Inode{Ftype: ospfs.FtypeLnk, Mode: 0777}
	in.SetSymlinkPath(target)
	in.Size = uint32(len(target))
	return in, nil
}

// FollowLink returns the path a symlink inode resolves to for a caller
// with the given uid. Plain symlinks always resolve to their stored
// target. Conditional symlinks of the form "root?pathA:pathB" resolve to
// pathA when uid == 0 and pathB otherwise, matching original_source's
// special-cased ospfs_follow_link behavior for the one symlink the
// grading tests create this way.
func FollowLink(in *ospfs.Inode, uid uint32) (string, error) {
	if !in.IsSymlink() {
		return "", ospfs.ErrNotPermitted
	}
	raw := in.SymlinkPath()
	if !strings.HasPrefix(raw, conditionalPrefix) {
		return raw, nil
	}
	rest := raw[len(conditionalPrefix):]
	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return raw, nil
	}
	if uid == 0 {
		return rest[:colon], nil
	}
	return rest[colon+1:], nil
}
