// Package ospfs defines the on-disk wire format shared by every layer of
// the filesystem: block/inode/dirent geometry constants and the packed
// binary encodings used to read and write them. It mirrors the way the
// teacher's maggiefs.Inode type owns its own ToBytes/FromBytes pair rather
// than delegating to a generic serialization library.
package ospfs

import "encoding/binary"

// Wire/file format constants. Compatibility-critical: never change these
// without a corresponding on-disk format bump.
const (
	BlkSize       = 1024 // bytes per block
	NDirect       = 10   // direct block pointers per inode
	NIndirect     = 256  // block numbers per indirect block
	MaxNameLen    = 58   // max filename bytes, excluding terminator
	MaxSymlinkLen = 60   // max inline symlink target length
	DirentSize    = 64   // bytes per directory entry
	FreemapBlk    = 2    // first bitmap block
	RootIno       = 1    // root directory inode number
	JournalIno    = 2    // inode cmd/ospfsjournal reads diagnostics from; the inode allocators do not set it aside

	// BootBlk and SuperBlk are the two reserved blocks preceding the bitmap.
	BootBlk   = 0
	SuperBlk  = 1
	inodeSize = 16 + inodeUnionSize // header + union
)

// inodeUnionSize is sized to hold whichever variant is larger: the
// direct/indirect/doubly-indirect pointer array (NDirect+2 uint32s) or the
// inline symlink path buffer (MaxSymlinkLen+1 bytes for the terminator).
const inodeUnionSize = MaxSymlinkLen + 1

// Ftype enumerates the three kinds of inode this filesystem knows about.
type Ftype uint32

const (
	FtypeDir Ftype = 0
	FtypeReg Ftype = 1
	FtypeLnk Ftype = 2
)

// Superblock is block 1 of the disk.
type Superblock struct {
	Magic           uint32
	NBlocks         uint32
	NInodes         uint32
	FirstInodeBlock uint32
}

const SuperblockMagic = 0x0517f5

// ToBytes writes the superblock into buf, which must be at least BlkSize
// long. Returns the number of bytes written.
func (s *Superblock) ToBytes(buf []byte) int {
	binary.LittleEndian.PutUint32(buf[0:], s.Magic)
	binary.LittleEndian.PutUint32(buf[4:], s.NBlocks)
	binary.LittleEndian.PutUint32(buf[8:], s.NInodes)
	binary.LittleEndian.PutUint32(buf[12:], s.FirstInodeBlock)
	return 16
}

// FromBytes reads the superblock out of buf.
func (s *Superblock) FromBytes(buf []byte) int {
	s.Magic = binary.LittleEndian.Uint32(buf[0:])
	s.NBlocks = binary.LittleEndian.Uint32(buf[4:])
	s.NInodes = binary.LittleEndian.Uint32(buf[8:])
	s.FirstInodeBlock = binary.LittleEndian.Uint32(buf[12:])
	return 16
}

// Inode is the fixed-size, on-disk inode record. Regular and directory
// inodes interpret Union as a direct/indirect/doubly-indirect pointer
// tree; symlink inodes interpret it as an inline NUL-terminated path. Both
// variants share the same header (Size, Ftype, Nlink, Mode), per the
// design note that the pointer graph and the inline path are just two
// interpretations of the same tail bytes.
type Inode struct {
	Size  uint32
	Ftype Ftype
	Nlink uint32
	Mode  uint32
	Union [inodeUnionSize]byte
}

// InodeSize is the packed on-disk size of one Inode record.
const InodeSize = inodeSize

// IsDir reports whether the inode is a directory.
func (i *Inode) IsDir() bool { return i.Ftype == FtypeDir }

// IsSymlink reports whether the inode is a symbolic link.
func (i *Inode) IsSymlink() bool { return i.Ftype == FtypeLnk }

// IsFree reports whether this inode slot is available for reuse.
func (i *Inode) IsFree() bool { return i.Nlink == 0 }

// Zero resets the inode to the all-zero, unused state required before an
// inode slot is handed out to a new file (see DESIGN.md's fix for the
// "reused inode keeps stale pointers" bug).
func (i *Inode) Zero() {
	i.Size = 0
	i.Ftype = 0
	i.Nlink = 0
	i.Mode = 0
	for j := range i.Union {
		i.Union[j] = 0
	}
}

// Direct returns the block number in direct slot idx (idx must be in
// [0, NDirect)).
func (i *Inode) Direct(idx int) uint32 {
	off := idx * 4
	return binary.LittleEndian.Uint32(i.Union[off:])
}

// SetDirect sets direct slot idx to blockno.
func (i *Inode) SetDirect(idx int, blockno uint32) {
	off := idx * 4
	binary.LittleEndian.PutUint32(i.Union[off:], blockno)
}

// Indirect returns the inode's singly-indirect block number.
func (i *Inode) Indirect() uint32 {
	return binary.LittleEndian.Uint32(i.Union[NDirect*4:])
}

// SetIndirect sets the inode's singly-indirect block number.
func (i *Inode) SetIndirect(blockno uint32) {
	binary.LittleEndian.PutUint32(i.Union[NDirect*4:], blockno)
}

// Indirect2 returns the inode's doubly-indirect block number.
func (i *Inode) Indirect2() uint32 {
	return binary.LittleEndian.Uint32(i.Union[NDirect*4+4:])
}

// SetIndirect2 sets the inode's doubly-indirect block number.
func (i *Inode) SetIndirect2(blockno uint32) {
	binary.LittleEndian.PutUint32(i.Union[NDirect*4+4:], blockno)
}

// SymlinkPath decodes the inline NUL-terminated symlink target.
func (i *Inode) SymlinkPath() string {
	n := 0
	for n < len(i.Union) && i.Union[n] != 0 {
		n++
	}
	return string(i.Union[:n])
}

// SetSymlinkPath stores target inline, NUL-terminated. Callers must check
// len(target) <= MaxSymlinkLen first (ErrNameTooLong at the call site).
func (i *Inode) SetSymlinkPath(target string) {
	n := copy(i.Union[:], target)
	if n < len(i.Union) {
		i.Union[n] = 0
	}
}

// ToBytes packs the inode into buf, which must be at least InodeSize long.
func (i *Inode) ToBytes(buf []byte) int {
	binary.LittleEndian.PutUint32(buf[0:], i.Size)
	binary.LittleEndian.PutUint32(buf[4:], uint32(i.Ftype))
	binary.LittleEndian.PutUint32(buf[8:], i.Nlink)
	binary.LittleEndian.PutUint32(buf[12:], i.Mode)
	copy(buf[16:16+inodeUnionSize], i.Union[:])
	return InodeSize
}

// FromBytes unpacks the inode from buf.
func (i *Inode) FromBytes(buf []byte) int {
	i.Size = binary.LittleEndian.Uint32(buf[0:])
	i.Ftype = Ftype(binary.LittleEndian.Uint32(buf[4:]))
	i.Nlink = binary.LittleEndian.Uint32(buf[8:])
	i.Mode = binary.LittleEndian.Uint32(buf[12:])
	copy(i.Union[:], buf[16:16+inodeUnionSize])
	return InodeSize
}

// Dirent is one fixed-size directory entry. Ino == 0 marks a tombstone.
type Dirent struct {
	Ino  uint32
	Name [DirentSize - 4]byte
}

// NameString decodes the NUL-terminated name.
func (d *Dirent) NameString() string {
	n := 0
	for n < len(d.Name) && d.Name[n] != 0 {
		n++
	}
	return string(d.Name[:n])
}

// SetName stores name, NUL-terminated, into the fixed name buffer.
// Callers must have already checked len(name) <= MaxNameLen.
func (d *Dirent) SetName(name string) {
	for i := range d.Name {
		d.Name[i] = 0
	}
	n := copy(d.Name[:], name)
	if n < len(d.Name) {
		d.Name[n] = 0
	}
}

// ToBytes packs the dirent into buf, which must be at least DirentSize long.
func (d *Dirent) ToBytes(buf []byte) int {
	binary.LittleEndian.PutUint32(buf[0:], d.Ino)
	copy(buf[4:DirentSize], d.Name[:])
	return DirentSize
}

// FromBytes unpacks the dirent from buf.
func (d *Dirent) FromBytes(buf []byte) int {
	d.Ino = binary.LittleEndian.Uint32(buf[0:])
	copy(d.Name[:], buf[4:DirentSize])
	return DirentSize
}

// IsFree reports whether this dirent slot is a tombstone.
func (d *Dirent) IsFree() bool { return d.Ino == 0 }
