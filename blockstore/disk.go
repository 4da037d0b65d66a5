// Package blockstore implements L0 (the untyped block array backing the
// whole filesystem) and L1 (the free-bitmap allocator). It is grounded on
// the block-buffer conventions of Oichkatzelesfrettschen-biscuit's
// fs.Bdev_block_t, simplified to a single resident in-memory array since
// this filesystem never spills to a real backing device and therefore
// needs no page cache or eviction policy.
package blockstore

import (
	"encoding/binary"
	"fmt"

	"github.com/gopherfs/ospfs/ospfs"
)

// Disk is the entire simulated partition: one contiguous byte array cut
// into BlkSize blocks, laid out as boot sector, superblock, free bitmap,
// inode table, then data blocks (spec.md §3).
type Disk struct {
	bytes []byte

	numBlocks       uint32
	numInodes       uint32
	bitmapBlocks    uint32
	inodeTableBlks  uint32
	firstInodeBlock uint32
	firstDataBlock  uint32
}

// NewDisk allocates and formats a fresh disk with numBlocks total blocks
// and room for numInodes inodes. Block 1 (superblock) and inode 1 (root
// directory) are initialized as part of formatting.
func NewDisk(numBlocks, numInodes uint32) (*Disk, error) {
	if numBlocks < 8 {
		return nil, fmt.Errorf("ospfs: disk too small: %d blocks", numBlocks)
	}
	d := &Disk{
		bytes:     make([]byte, uint64(numBlocks)*ospfs.BlkSize),
		numBlocks: numBlocks,
		numInodes: numInodes,
	}
	bitsPerBlock := uint32(ospfs.BlkSize * 8)
	d.bitmapBlocks = (numBlocks + bitsPerBlock - 1) / bitsPerBlock
	inodesPerBlock := uint32(ospfs.BlkSize / ospfs.InodeSize)
	d.inodeTableBlks = (numInodes + inodesPerBlock - 1) / inodesPerBlock
	d.firstInodeBlock = ospfs.FreemapBlk + d.bitmapBlocks
	d.firstDataBlock = d.firstInodeBlock + d.inodeTableBlks
	if d.firstDataBlock >= numBlocks {
		return nil, fmt.Errorf("ospfs: disk too small for %d inodes", numInodes)
	}
	d.format()
	return d, nil
}

func (d *Disk) format() {
	sb := ospfs.Superblock{
		Magic:           ospfs.SuperblockMagic,
		NBlocks:         d.numBlocks,
		NInodes:         d.numInodes,
		FirstInodeBlock: d.firstInodeBlock,
	}
	sb.ToBytes(d.Block(ospfs.SuperBlk))

	// Every block from firstDataBlock onward starts free; everything
	// below it (boot, super, bitmap, inode table) starts in-use and is
	// never considered by AllocBlock.
	for b := d.firstDataBlock; b < d.numBlocks; b++ {
		d.setFree(b, true)
	}

	// Nlink starts at 1 per invariant I6 (1 + number of subdirectories);
	// root has no subdirectories yet and no parent entry of its own.
	root := ospfs.Inode{Ftype: ospfs.FtypeDir, Nlink: 1, Mode: 0755}
	d.WriteInode(ospfs.RootIno, &root)
}

// Open reconstructs a Disk from a raw image previously produced by Bytes,
// reading geometry back out of the stored superblock rather than
// reformatting. Used by cmd/ospfsjournal to inspect an image without
// mounting it.
func Open(buf []byte) (*Disk, error) {
	if len(buf) < (ospfs.SuperBlk+1)*ospfs.BlkSize {
		return nil, fmt.Errorf("ospfs: image too small to hold a superblock")
	}
	var sb ospfs.Superblock
	sb.FromBytes(buf[ospfs.SuperBlk*ospfs.BlkSize:])
	if sb.Magic != ospfs.SuperblockMagic {
		return nil, fmt.Errorf("ospfs: bad superblock magic %#x", sb.Magic)
	}
	d := &Disk{bytes: buf, numBlocks: sb.NBlocks, numInodes: sb.NInodes, firstInodeBlock: sb.FirstInodeBlock}
	bitsPerBlock := uint32(ospfs.BlkSize * 8)
	d.bitmapBlocks = (sb.NBlocks + bitsPerBlock - 1) / bitsPerBlock
	inodesPerBlock := uint32(ospfs.BlkSize / ospfs.InodeSize)
	d.inodeTableBlks = (sb.NInodes + inodesPerBlock - 1) / inodesPerBlock
	d.firstDataBlock = d.firstInodeBlock + d.inodeTableBlks
	if int(d.numBlocks)*ospfs.BlkSize > len(buf) {
		return nil, fmt.Errorf("ospfs: image truncated: want %d blocks, have %d bytes", d.numBlocks, len(buf))
	}
	return d, nil
}

// Bytes returns the raw backing array, for callers that persist or ship a
// whole disk image (cmd/ospfsjournal).
func (d *Disk) Bytes() []byte { return d.bytes }

// Superblock decodes and returns the current superblock.
func (d *Disk) Superblock() ospfs.Superblock {
	var sb ospfs.Superblock
	sb.FromBytes(d.Block(ospfs.SuperBlk))
	return sb
}

// NumBlocks returns the total block count.
func (d *Disk) NumBlocks() uint32 { return d.numBlocks }

// FirstDataBlock returns the first block number usable for allocation.
func (d *Disk) FirstDataBlock() uint32 { return d.firstDataBlock }

// Block returns a mutable view onto block n. The slice is valid only
// until the next call that resizes the disk (there is none); callers must
// not retain it across unrelated mutating operations per spec.md §5.
func (d *Disk) Block(n uint32) []byte {
	if n >= d.numBlocks {
		panic(fmt.Sprintf("ospfs: block %d out of range (numBlocks=%d)", n, d.numBlocks))
	}
	start := uint64(n) * ospfs.BlkSize
	return d.bytes[start : start+ospfs.BlkSize]
}

// ZeroBlock fills block n with zero bytes.
func (d *Disk) ZeroBlock(n uint32) {
	b := d.Block(n)
	for i := range b {
		b[i] = 0
	}
}

func (d *Disk) inodeOffset(ino uint32) (block uint32, offInBlock int) {
	inodesPerBlock := uint32(ospfs.BlkSize / ospfs.InodeSize)
	block = d.firstInodeBlock + ino/inodesPerBlock
	offInBlock = int(ino%inodesPerBlock) * ospfs.InodeSize
	return
}

// ReadInode decodes inode number ino from the inode table.
func (d *Disk) ReadInode(ino uint32) *ospfs.Inode {
	blk, off := d.inodeOffset(ino)
	buf := d.Block(blk)
	in := &ospfs.Inode{}
	in.FromBytes(buf[off : off+ospfs.InodeSize])
	return in
}

// WriteInode encodes in into inode table slot ino.
func (d *Disk) WriteInode(ino uint32, in *ospfs.Inode) {
	blk, off := d.inodeOffset(ino)
	buf := d.Block(blk)
	in.ToBytes(buf[off : off+ospfs.InodeSize])
}

// NumInodes returns the size of the inode table.
func (d *Disk) NumInodes() uint32 { return d.numInodes }

// GetBlockNo reads the uint32 stored at slot idx of the indirect block
// numbered blockno (idx must be in [0, NIndirect)).
func (d *Disk) GetBlockNo(blockno uint32, idx int) uint32 {
	buf := d.Block(blockno)
	off := idx * 4
	return binary.LittleEndian.Uint32(buf[off : off+4])
}

// SetBlockNo writes val into slot idx of the indirect block numbered
// blockno.
func (d *Disk) SetBlockNo(blockno uint32, idx int, val uint32) {
	buf := d.Block(blockno)
	off := idx * 4
	binary.LittleEndian.PutUint32(buf[off:off+4], val)
}
