// Package fileio implements L4: reading and writing the byte range of a
// regular file (or, transparently, a directory's raw dirent stream) through
// the block pointer tree addr resolves and the block allocation resize
// grows on demand. Grounded on original_source's ospfs_read/ospfs_write,
// generalized to Go's io.Reader/io.Writer-shaped (buf, off) signature the
// way the teacher's maggiefs/io.go wraps block access for its BlockReader.
package fileio

import (
	"github.com/gopherfs/ospfs/addr"
	"github.com/gopherfs/ospfs/blockstore"
	"github.com/gopherfs/ospfs/ospfs"
	"github.com/gopherfs/ospfs/resize"
)

// Read copies up to len(buf) bytes starting at byte offset off of in's data
// into buf, clamped to in.Size, and returns the number of bytes actually
// copied. Reads at or past EOF return (0, nil), matching the teacher's
// read-returns-zero-at-EOF convention rather than io.EOF (there is no
// streaming reader interface here to satisfy).
//
// This has no opinion on whether in is a directory: dirent scans a
// directory's raw entry stream through exactly this call, so refusing
// directories here would break every L5 operation. Rejecting a user-level
// read(2)/write(2) against a directory is the vfs layer's job.
func Read(d *blockstore.Disk, in *ospfs.Inode, buf []byte, off uint32) (int, error) {
	if off >= in.Size {
		return 0, nil
	}
	want := len(buf)
	if remaining := int(in.Size - off); want > remaining {
		want = remaining
	}

	n := 0
	for n < want {
		blockIdx := (off + uint32(n)) / ospfs.BlkSize
		blockOff := (off + uint32(n)) % ospfs.BlkSize

		blockno, err := addr.Lookup(d, in, blockIdx)
		if err != nil {
			return n, err
		}
		chunk := ospfs.BlkSize - int(blockOff)
		if remain := want - n; chunk > remain {
			chunk = remain
		}
		copy(buf[n:n+chunk], d.Block(blockno)[blockOff:int(blockOff)+chunk])
		n += chunk
	}
	return n, nil
}

// Write copies len(buf) bytes into in's data starting at byte offset off,
// or, if appendMode is set, at in's current size regardless of off (the
// "open file was O_APPEND" case: the caller's offset is ignored, matching
// spec.md's "set pos := size first" rule for an append-mode write).
//
// If the write extends past in's current size, in is grown to its exact
// new size by a single resize.ChangeSize call before any bytes are
// copied, per original_source's ospfs_write, which calls change_size once
// up front rather than growing block-by-block inside the copy loop. On
// ospfs.ErrNoSpace the growth (and in) is rolled back by ChangeSize itself
// and this returns (0, err): no partial write is ever observable.
//
// Same directory carve-out as Read: dirent writes directory entries
// through this call, so it has no IsDir guard of its own. Because
// resize.ChangeSize refuses directories, a directory is grown here by
// calling resize.AddBlock directly, with the same rollback on failure.
func Write(d *blockstore.Disk, in *ospfs.Inode, buf []byte, off uint32, appendMode bool) (int, error) {
	if appendMode {
		off = in.Size
	}
	end := uint64(off) + uint64(len(buf))
	if end > addr.MaxSize {
		return 0, ospfs.ErrNoSpace
	}
	if want := uint32(end); want > in.Size {
		if in.IsDir() {
			original := in.Size
			for addr.NumBlocks(in.Size) < addr.NumBlocks(want) {
				if err := resize.AddBlock(d, in); err != nil {
					for addr.NumBlocks(in.Size) > addr.NumBlocks(original) {
						resize.RemoveBlock(d, in)
					}
					in.Size = original
					return 0, err
				}
			}
			in.Size = want
		} else if err := resize.ChangeSize(d, in, want); err != nil {
			return 0, err
		}
	}

	n := 0
	for n < len(buf) {
		blockIdx := (off + uint32(n)) / ospfs.BlkSize
		blockOff := (off + uint32(n)) % ospfs.BlkSize

		blockno, err := addr.Lookup(d, in, blockIdx)
		if err != nil {
			return n, err
		}
		chunk := ospfs.BlkSize - int(blockOff)
		if remain := len(buf) - n; chunk > remain {
			chunk = remain
		}
		copy(d.Block(blockno)[blockOff:int(blockOff)+chunk], buf[n:n+chunk])
		n += chunk
	}
	return n, nil
}
