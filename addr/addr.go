// Package addr implements L2: translating a file's zero-based block index
// into a physical block number through the inode's direct / singly
// indirect / doubly indirect pointer tree, and the reverse question of
// which structural blocks (indirect, doubly indirect) must be allocated
// or released when a file crosses a tier boundary.
//
// The three decomposition functions mirror the original ospfs source's
// indir2_index/indir_index/direct_index trio one-for-one, renamed to the
// dbl/ind/dir vocabulary spec.md uses, but returning (value, ok) pairs
// instead of C's -1/-2 sentinel convention.
package addr

import (
	"github.com/gopherfs/ospfs/blockstore"
	"github.com/gopherfs/ospfs/ospfs"
)

// MaxBlocks is the largest number of data blocks a file can hold given
// NDirect direct pointers, one indirect block, and one doubly-indirect
// block of indirect blocks.
const MaxBlocks = ospfs.NDirect + ospfs.NIndirect + ospfs.NIndirect*ospfs.NIndirect

// MaxSize is the largest byte size representable by MaxBlocks blocks.
const MaxSize = uint64(MaxBlocks) * ospfs.BlkSize

// DblIdx reports whether block index b lives under the doubly-indirect
// tree. When ok, idx is always 0: there is only ever one doubly-indirect
// block per inode, so this is purely a range test, kept as a function (as
// spec.md names it) for symmetry with IndIdx and DirIdx and so callers can
// compare DblIdx(n) against DblIdx(n-1) to detect the tier boundary.
func DblIdx(b uint32) (idx int, ok bool) {
	if b < ospfs.NDirect+ospfs.NIndirect {
		return 0, false
	}
	if b < MaxBlocks {
		return 0, true
	}
	return 0, false
}

// IndIdx reports which indirect block block index b is served by: false
// if b is one of the file's direct blocks; if b is under the singly
// indirect block, idx is 0; if b is under the doubly indirect tree, idx is
// the offset of the relevant inner indirect block within the
// doubly-indirect block.
func IndIdx(b uint32) (idx int, ok bool) {
	switch {
	case b < ospfs.NDirect:
		return 0, false
	case b < ospfs.NDirect+ospfs.NIndirect:
		return 0, true
	case b < MaxBlocks:
		return int((b - ospfs.NDirect - ospfs.NIndirect) / ospfs.NIndirect), true
	default:
		return 0, false
	}
}

// DirIdx returns the slot of block index b within whichever leaf array
// (the inode's direct array, the singly indirect block, or the relevant
// inner indirect block of the doubly-indirect tree) actually holds it.
func DirIdx(b uint32) (idx int, ok bool) {
	switch {
	case b < ospfs.NDirect:
		return int(b), true
	case b < ospfs.NDirect+ospfs.NIndirect:
		return int(b - ospfs.NDirect), true
	case b < MaxBlocks:
		return int((b - ospfs.NDirect - ospfs.NIndirect) % ospfs.NIndirect), true
	default:
		return 0, false
	}
}

// NumBlocks returns ceil(size / BlkSize), the number of data blocks a
// file of the given byte size occupies (invariant I3).
func NumBlocks(size uint32) uint32 {
	return (size + ospfs.BlkSize - 1) / ospfs.BlkSize
}

// NeedsNewIndirect reports whether growing a file from n blocks to n+1
// requires allocating a new indirect block: either the file is entering
// the singly-indirect range for the first time (n == NDirect), or it is
// crossing into a fresh inner indirect block within the doubly-indirect
// tree.
func NeedsNewIndirect(n uint32) bool {
	if n == 0 {
		return false
	}
	curIdx, curOK := IndIdx(n)
	prevIdx, prevOK := IndIdx(n - 1)
	// Entering the doubly-indirect tree (n == NDirect+NIndirect) also needs
	// a fresh inner indirect block, even though IndIdx is 0 on both sides.
	_, curDbl := DblIdx(n)
	_, prevDbl := DblIdx(n - 1)
	return curOK != prevOK || curIdx != prevIdx || curDbl != prevDbl
}

// NeedsNewDoublyIndirect reports whether growing a file from n blocks to
// n+1 requires allocating the (singular) doubly-indirect root block.
func NeedsNewDoublyIndirect(n uint32) bool {
	if n == 0 {
		return false
	}
	_, curOK := DblIdx(n)
	_, prevOK := DblIdx(n - 1)
	return curOK != prevOK
}

// Lookup resolves the block number backing file block index b of in.
// Returns ospfs.ErrNoBlock if b is past the inode's current block count or
// in belongs to a symlink (symlink targets live inline, not in data
// blocks, per spec.md §4.1), and ospfs.ErrIO if the pointer tree is
// missing a structural block it should have (I3 violation).
func Lookup(d *blockstore.Disk, in *ospfs.Inode, b uint32) (uint32, error) {
	if in.IsSymlink() {
		return 0, ospfs.ErrNoBlock
	}
	if b >= NumBlocks(in.Size) {
		return 0, ospfs.ErrNoBlock
	}
	if slot, ok := dirOnly(b); ok {
		return in.Direct(slot), nil
	}
	dirSlot, _ := DirIdx(b)
	if outer, ok := IndIdx(b); ok {
		if _, dbl := DblIdx(b); !dbl {
			ind := in.Indirect()
			if ind == 0 {
				return 0, ospfs.ErrIO
			}
			return d.GetBlockNo(ind, dirSlot), nil
		}
		ind2 := in.Indirect2()
		if ind2 == 0 {
			return 0, ospfs.ErrIO
		}
		innerBlk := d.GetBlockNo(ind2, outer)
		if innerBlk == 0 {
			return 0, ospfs.ErrIO
		}
		return d.GetBlockNo(innerBlk, dirSlot), nil
	}
	return 0, ospfs.ErrIO
}

func dirOnly(b uint32) (int, bool) {
	if b < ospfs.NDirect {
		return int(b), true
	}
	return 0, false
}
