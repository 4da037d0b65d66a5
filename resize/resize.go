// Package resize implements L3: growing and shrinking a file one block at
// a time, allocating or releasing indirect and doubly-indirect structural
// blocks as the file's block count crosses tier boundaries, with full
// rollback on allocation failure. Grounded directly on original_source's
// add_block/remove_block/change_size (ospfsmod.c), translated from the
// C union-of-pointer-arrays into calls against the addr and blockstore
// packages.
package resize

import "github.com/gopherfs/ospfs/addr"
import "github.com/gopherfs/ospfs/blockstore"
import "github.com/gopherfs/ospfs/ospfs"

// AddBlock appends one zero-filled data block to in, allocating whatever
// indirect/doubly-indirect structural blocks are newly required. On
// ospfs.ErrNoSpace, every block allocated during this call is freed again
// and in is left unmodified.
func AddBlock(d *blockstore.Disk, in *ospfs.Inode) error {
	n := addr.NumBlocks(in.Size)

	if n == 0 {
		data, err := d.AllocBlock()
		if err != nil {
			return err
		}
		d.ZeroBlock(data)
		in.SetDirect(0, data)
		in.Size += ospfs.BlkSize
		return nil
	}

	needInd := addr.NeedsNewIndirect(n)
	needDbl := addr.NeedsNewDoublyIndirect(n)

	var allocated []uint32
	rollback := func() {
		for _, b := range allocated {
			d.FreeBlock(b)
		}
	}

	data, err := d.AllocBlock()
	if err != nil {
		return err
	}
	allocated = append(allocated, data)

	var indBlk, dblBlk uint32
	if needInd {
		indBlk, err = d.AllocBlock()
		if err != nil {
			rollback()
			return ospfs.ErrNoSpace
		}
		allocated = append(allocated, indBlk)
	}
	if needDbl {
		dblBlk, err = d.AllocBlock()
		if err != nil {
			rollback()
			return ospfs.ErrNoSpace
		}
		allocated = append(allocated, dblBlk)
	}

	for _, b := range allocated {
		d.ZeroBlock(b)
	}

	dirSlot, _ := addr.DirIdx(n)
	outer, inDbl := addr.IndIdx(n)

	switch {
	case needDbl:
		in.SetIndirect2(dblBlk)
		d.SetBlockNo(dblBlk, outer, indBlk)
		d.SetBlockNo(indBlk, dirSlot, data)
	case needInd:
		d.SetBlockNo(indBlk, dirSlot, data)
		if _, dbl := addr.DblIdx(n); dbl {
			d.SetBlockNo(in.Indirect2(), outer, indBlk)
		} else {
			in.SetIndirect(indBlk)
		}
	default:
		if _, dbl := addr.DblIdx(n); dbl {
			innerBlk := d.GetBlockNo(in.Indirect2(), outer)
			d.SetBlockNo(innerBlk, dirSlot, data)
		} else if inDbl || n >= ospfs.NDirect {
			d.SetBlockNo(in.Indirect(), dirSlot, data)
		} else {
			in.SetDirect(dirSlot, data)
		}
	}

	in.Size += ospfs.BlkSize
	return nil
}

// RemoveBlock frees the last data block of in, and any indirect or
// doubly-indirect block that block was the sole remaining user of.
func RemoveBlock(d *blockstore.Disk, in *ospfs.Inode) error {
	n := addr.NumBlocks(in.Size)
	if n == 0 {
		return ospfs.ErrIO
	}
	last := n - 1

	data, err := addr.Lookup(d, in, last)
	if err != nil {
		return err
	}
	if err := d.FreeBlock(data); err != nil {
		return err
	}

	dirSlot, _ := addr.DirIdx(last)
	outer, _ := addr.IndIdx(last)
	_, inDblRange := addr.DblIdx(last)

	switch {
	case inDblRange:
		innerBlk := d.GetBlockNo(in.Indirect2(), outer)
		d.SetBlockNo(innerBlk, dirSlot, 0)
	case last >= ospfs.NDirect:
		d.SetBlockNo(in.Indirect(), dirSlot, 0)
	default:
		in.SetDirect(dirSlot, 0)
	}

	// Block index last was the first user of a structural block exactly
	// when growing from last blocks to n required allocating it.
	if addr.NeedsNewIndirect(last) {
		if inDblRange {
			innerBlk := d.GetBlockNo(in.Indirect2(), outer)
			d.FreeBlock(innerBlk)
			d.SetBlockNo(in.Indirect2(), outer, 0)
		} else {
			d.FreeBlock(in.Indirect())
			in.SetIndirect(0)
		}
	}
	if addr.NeedsNewDoublyIndirect(last) {
		d.FreeBlock(in.Indirect2())
		in.SetIndirect2(0)
	}

	// Floor to the byte size exactly representable by n-1 blocks, rather
	// than blindly subtracting BlkSize: the caller's size need not have
	// been block-aligned (change_size always overwrites the final size
	// once it's done adding/removing whole blocks).
	in.Size = (n - 1) * ospfs.BlkSize
	return nil
}

// ChangeSize grows or shrinks in to exactly want bytes, one block at a
// time. If growth fails partway through, in is shrunk back to its
// original size before the error is returned, preserving I3. Directories
// cannot be resized (spec.md §4.3's "shrinking directories is
// unsupported", generalized here to reject any resize of a directory: a
// directory only grows through AddBlock, called directly by
// dirent.CreateBlank and fileio.Write).
func ChangeSize(d *blockstore.Disk, in *ospfs.Inode, want uint32) error {
	if in.IsDir() {
		return ospfs.ErrNotPermitted
	}
	original := in.Size
	for addr.NumBlocks(in.Size) < addr.NumBlocks(want) {
		if err := AddBlock(d, in); err != nil {
			for addr.NumBlocks(in.Size) > addr.NumBlocks(original) {
				RemoveBlock(d, in)
			}
			in.Size = original
			return err
		}
	}
	for addr.NumBlocks(in.Size) > addr.NumBlocks(want) {
		if err := RemoveBlock(d, in); err != nil {
			return err
		}
	}
	in.Size = want
	return nil
}
