package vfs

import (
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/gopherfs/ospfs/dirent"
	"github.com/gopherfs/ospfs/fileio"
	"github.com/gopherfs/ospfs/ospfs"
	"github.com/gopherfs/ospfs/resize"
	"github.com/gopherfs/ospfs/symlink"
)

// RawFS adapts an *Ospfs to fuse.RawFileSystem. Operations this
// filesystem does not implement (rename, xattrs, locking) fall through to
// fuse.NewDefaultRawFileSystem's ENOSYS stubs, the same "implement what
// applies, stub the rest" texture as the teacher's fuseconnector.go;
// Mkdir and Rmdir return ENOSYS explicitly, and Link refuses directories
// with EPERM.
type RawFS struct {
	fuse.RawFileSystem
	fs *Ospfs
}

// NewRawFS builds the FUSE-facing adapter around fs.
func NewRawFS(fs *Ospfs) *RawFS {
	return &RawFS{RawFileSystem: fuse.NewDefaultRawFileSystem(), fs: fs}
}

func (r *RawFS) String() string { return "ospfs" }

func toStatus(err error) fuse.Status {
	switch err {
	case nil:
		return fuse.OK
	case ospfs.ErrNotFound:
		return fuse.Status(syscall.ENOENT)
	case ospfs.ErrExists:
		return fuse.Status(syscall.EEXIST)
	case ospfs.ErrNoSpace:
		return fuse.Status(syscall.ENOSPC)
	case ospfs.ErrNameTooLong:
		return fuse.Status(syscall.ENAMETOOLONG)
	case ospfs.ErrNotPermitted:
		return fuse.Status(syscall.EPERM)
	case ospfs.ErrNoMemory:
		return fuse.Status(syscall.ENOMEM)
	case ospfs.ErrBadAddress:
		return fuse.Status(syscall.EFAULT)
	case ospfs.ErrIO, ospfs.ErrNoBlock:
		return fuse.Status(syscall.EIO)
	default:
		return fuse.Status(syscall.EIO)
	}
}

func modeFor(in *ospfs.Inode) uint32 {
	switch in.Ftype {
	case ospfs.FtypeDir:
		return syscall.S_IFDIR | (in.Mode & 0777)
	case ospfs.FtypeLnk:
		return syscall.S_IFLNK | 0777
	default:
		return syscall.S_IFREG | (in.Mode & 0777)
	}
}

func fillAttr(out *fuse.Attr, ino uint64, in *ospfs.Inode) {
	out.Ino = ino
	out.Size = uint64(in.Size)
	out.Blocks = (out.Size + ospfs.BlkSize - 1) / ospfs.BlkSize
	out.Mode = modeFor(in)
	out.Nlink = in.Nlink
	out.Blksize = ospfs.BlkSize
}

func fillEntry(out *fuse.EntryOut, ino uint64, in *ospfs.Inode) {
	out.NodeId = ino
	out.Generation = 1
	fillAttr(&out.Attr, ino, in)
}

// Lookup resolves name within the directory identified by header.NodeId.
func (r *RawFS) Lookup(cancel <-chan struct{}, header *fuse.InHeader, name string, out *fuse.EntryOut) fuse.Status {
	r.fs.mu.Lock()
	defer r.fs.mu.Unlock()
	ino, in, err := r.fs.lookup(header.NodeId, name)
	if err != nil {
		return toStatus(err)
	}
	fillEntry(out, uint64(ino), in)
	return fuse.OK
}

// GetAttr reports the attributes of input.NodeId.
func (r *RawFS) GetAttr(cancel <-chan struct{}, input *fuse.GetAttrIn, out *fuse.AttrOut) fuse.Status {
	r.fs.mu.Lock()
	defer r.fs.mu.Unlock()
	in, err := r.fs.getInode(input.NodeId)
	if err != nil {
		return toStatus(err)
	}
	fillAttr(&out.Attr, input.NodeId, in)
	return fuse.OK
}

// SetAttr implements truncation (the only attribute change this
// filesystem's inode format can represent beyond Mode, which it applies
// directly).
func (r *RawFS) SetAttr(cancel <-chan struct{}, input *fuse.SetAttrIn, out *fuse.AttrOut) fuse.Status {
	r.fs.mu.Lock()
	defer r.fs.mu.Unlock()
	in, err := r.fs.getInode(input.NodeId)
	if err != nil {
		return toStatus(err)
	}
	if input.Valid&fuse.FATTR_MODE != 0 {
		in.Mode = input.Mode & 0777
	}
	if input.Valid&fuse.FATTR_SIZE != 0 {
		if err := resize.ChangeSize(r.fs.disk, in, uint32(input.Size)); err != nil {
			return toStatus(err)
		}
	}
	r.fs.disk.WriteInode(uint32(input.NodeId), in)
	fillAttr(&out.Attr, input.NodeId, in)
	return fuse.OK
}

// Open is otherwise a no-op: every inode's data already lives resident in
// memory, so there is no backing file descriptor to acquire. The O_APPEND
// bit doesn't need capturing here — the kernel re-sends it on every
// fuse.WriteIn.Flags, which Write inspects directly.
func (r *RawFS) Open(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	return fuse.OK
}

// Read copies file data through fileio.Read. A user-level read(2) against
// a directory is rejected here, not in fileio: dirent legitimately reads
// a directory's raw entry stream through the same fileio.Read call this
// method uses for regular files.
func (r *RawFS) Read(cancel <-chan struct{}, input *fuse.ReadIn, buf []byte) (fuse.ReadResult, fuse.Status) {
	r.fs.mu.Lock()
	defer r.fs.mu.Unlock()
	in, err := r.fs.getInode(input.NodeId)
	if err != nil {
		return nil, toStatus(err)
	}
	if in.IsDir() {
		return nil, fuse.Status(syscall.EISDIR)
	}
	n, err := fileio.Read(r.fs.disk, in, buf, uint32(input.Offset))
	if err != nil {
		return nil, toStatus(err)
	}
	return fuse.ReadResultData(buf[:n]), fuse.OK
}

// Write copies data through fileio.Write, growing the file as needed. As
// with Read, the directory check lives here rather than in fileio, which
// dirent depends on to write directory entries.
//
// input.Flags carries the handle's open flags on every write, not just at
// Open time; an O_APPEND handle has that bit set here, and fileio.Write
// is told to ignore input.Offset and write at the file's current size
// instead, per spec.md's append-mode rule.
func (r *RawFS) Write(cancel <-chan struct{}, input *fuse.WriteIn, data []byte) (uint32, fuse.Status) {
	r.fs.mu.Lock()
	defer r.fs.mu.Unlock()
	in, err := r.fs.getInode(input.NodeId)
	if err != nil {
		return 0, toStatus(err)
	}
	if in.IsDir() {
		return 0, fuse.Status(syscall.EISDIR)
	}
	appendMode := input.Flags&syscall.O_APPEND != 0
	n, err := fileio.Write(r.fs.disk, in, data, uint32(input.Offset), appendMode)
	r.fs.disk.WriteInode(uint32(input.NodeId), in)
	if err != nil {
		return 0, toStatus(err)
	}
	return uint32(n), fuse.OK
}

func (r *RawFS) Release(cancel <-chan struct{}, input *fuse.ReleaseIn) {}

func (r *RawFS) Flush(cancel <-chan struct{}, input *fuse.FlushIn) fuse.Status { return fuse.OK }

// Create makes a new regular file via dirent.Create.
func (r *RawFS) Create(cancel <-chan struct{}, input *fuse.CreateIn, name string, out *fuse.CreateOut) fuse.Status {
	r.fs.mu.Lock()
	defer r.fs.mu.Unlock()
	dirIn, err := r.fs.getInode(input.NodeId)
	if err != nil {
		return toStatus(err)
	}
	ino, err := dirent.Create(r.fs.disk, dirIn, name, input.Mode&0777)
	if err != nil {
		return toStatus(err)
	}
	r.fs.disk.WriteInode(uint32(input.NodeId), dirIn)
	child := r.fs.disk.ReadInode(ino)
	fillEntry(&out.EntryOut, uint64(ino), child)
	return fuse.OK
}

// Mkdir is unsupported: original_source never implements directory
// creation (see dirent.Create's doc comment), so this filesystem's
// runtime directory tree is fixed at format time.
func (r *RawFS) Mkdir(cancel <-chan struct{}, input *fuse.MkdirIn, name string, out *fuse.EntryOut) fuse.Status {
	return fuse.ENOSYS
}

// Unlink removes a directory entry, freeing the target inode's blocks
// once its link count reaches zero.
func (r *RawFS) Unlink(cancel <-chan struct{}, header *fuse.InHeader, name string) fuse.Status {
	r.fs.mu.Lock()
	defer r.fs.mu.Unlock()
	dirIn, err := r.fs.getInode(header.NodeId)
	if err != nil {
		return toStatus(err)
	}
	if err := dirent.Unlink(r.fs.disk, dirIn, name); err != nil {
		return toStatus(err)
	}
	r.fs.disk.WriteInode(uint32(header.NodeId), dirIn)
	return fuse.OK
}

// Rmdir is unsupported for the same reason Mkdir is: there is never more
// than the root directory to remove.
func (r *RawFS) Rmdir(cancel <-chan struct{}, header *fuse.InHeader, name string) fuse.Status {
	return fuse.ENOSYS
}

// Link creates a second directory entry pointing at an existing inode.
func (r *RawFS) Link(cancel <-chan struct{}, input *fuse.LinkIn, name string, out *fuse.EntryOut) fuse.Status {
	r.fs.mu.Lock()
	defer r.fs.mu.Unlock()
	dirIn, err := r.fs.getInode(input.NodeId)
	if err != nil {
		return toStatus(err)
	}
	target, err := r.fs.getInode(input.Oldnodeid)
	if err != nil {
		return toStatus(err)
	}
	if target.IsDir() {
		return fuse.Status(syscall.EPERM)
	}
	if err := dirent.Link(r.fs.disk, dirIn, name, uint32(input.Oldnodeid)); err != nil {
		return toStatus(err)
	}
	r.fs.disk.WriteInode(uint32(input.NodeId), dirIn)
	fillEntry(out, input.Oldnodeid, r.fs.disk.ReadInode(uint32(input.Oldnodeid)))
	return fuse.OK
}

// Symlink creates a symlink inode holding pointedTo (which may be a
// conditional "root?a:b" target) and links it in as linkName.
func (r *RawFS) Symlink(cancel <-chan struct{}, header *fuse.InHeader, pointedTo string, linkName string, out *fuse.EntryOut) fuse.Status {
	r.fs.mu.Lock()
	defer r.fs.mu.Unlock()
	dirIn, err := r.fs.getInode(header.NodeId)
	if err != nil {
		return toStatus(err)
	}
	in, err := symlink.Create(r.fs.disk, pointedTo)
	if err != nil {
		return toStatus(err)
	}
	ino, err := allocFreeInode(r.fs, in)
	if err != nil {
		return toStatus(err)
	}
	if err := dirent.Link(r.fs.disk, dirIn, linkName, ino); err != nil {
		return toStatus(err)
	}
	r.fs.disk.WriteInode(uint32(header.NodeId), dirIn)
	fillEntry(out, uint64(ino), r.fs.disk.ReadInode(ino))
	return fuse.OK
}

// Readlink resolves the calling context's uid against a conditional
// symlink and returns the winning target.
func (r *RawFS) Readlink(cancel <-chan struct{}, header *fuse.InHeader) ([]byte, fuse.Status) {
	r.fs.mu.Lock()
	defer r.fs.mu.Unlock()
	in, err := r.fs.getInode(header.NodeId)
	if err != nil {
		return nil, toStatus(err)
	}
	target, err := symlink.FollowLink(in, header.Uid)
	if err != nil {
		return nil, toStatus(err)
	}
	return []byte(target), fuse.OK
}

func (r *RawFS) OpenDir(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	r.fs.mu.Lock()
	defer r.fs.mu.Unlock()
	in, err := r.fs.getInode(input.NodeId)
	if err != nil {
		return toStatus(err)
	}
	if !in.IsDir() {
		return fuse.Status(syscall.ENOTDIR)
	}
	return fuse.OK
}

// ReadDir enumerates directory entries starting from input.Offset, using
// original_source's f_pos convention: f_pos counts entries rather than
// bytes, with the first two positions (0 and 1) reserved for the
// synthesized "." and ".." entries and entry_off = (f_pos-2)*DIRENTSIZE
// mapping every later position onto a real dirent slot. Tombstoned slots
// still occupy a position (so f_pos always resumes correctly if entries
// are removed between calls), they are simply skipped without being
// emitted.
func (r *RawFS) ReadDir(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	r.fs.mu.Lock()
	defer r.fs.mu.Unlock()
	dirIn, err := r.fs.getInode(input.NodeId)
	if err != nil {
		return toStatus(err)
	}
	if !dirIn.IsDir() {
		return fuse.Status(syscall.ENOTDIR)
	}

	pos := input.Offset
	if pos == 0 {
		if !out.AddDirEntry(fuse.DirEntry{Ino: input.NodeId, Mode: syscall.S_IFDIR, Name: "."}) {
			return fuse.OK
		}
		pos++
	}
	if pos == 1 {
		if !out.AddDirEntry(fuse.DirEntry{Ino: input.NodeId, Mode: syscall.S_IFDIR, Name: ".."}) {
			return fuse.OK
		}
		pos++
	}

	total := dirIn.Size / ospfs.DirentSize
	for slot := uint32(pos - 2); slot < total; slot++ {
		var buf [ospfs.DirentSize]byte
		if _, err := fileio.Read(r.fs.disk, dirIn, buf[:], slot*ospfs.DirentSize); err != nil {
			return toStatus(err)
		}
		var de ospfs.Dirent
		de.FromBytes(buf[:])
		if de.IsFree() {
			continue
		}
		child, err := r.fs.getInode(uint64(de.Ino))
		if err != nil {
			continue
		}
		if !out.AddDirEntry(fuse.DirEntry{Ino: uint64(de.Ino), Mode: modeFor(child), Name: de.NameString()}) {
			return fuse.OK
		}
	}
	return fuse.OK
}

func (r *RawFS) ReleaseDir(input *fuse.ReleaseIn) {}

// StatFs reports block size, total and free blocks, and the inode table
// size for stat(2)/df(1). The free inode count is not reported.
func (r *RawFS) StatFs(cancel <-chan struct{}, header *fuse.InHeader, out *fuse.StatfsOut) fuse.Status {
	r.fs.mu.Lock()
	defer r.fs.mu.Unlock()
	out.Bsize = ospfs.BlkSize
	out.Blocks = uint64(r.fs.disk.NumBlocks())
	out.Bfree = uint64(r.fs.disk.FreeBlockCount())
	out.Bavail = out.Bfree
	out.Files = uint64(r.fs.disk.NumInodes())
	out.NameLen = ospfs.MaxNameLen
	return fuse.OK
}

func (r *RawFS) Init(server *fuse.Server) {
	r.fs.logger().Info("ospfs mounted", "blocks", r.fs.disk.NumBlocks(), "inodes", r.fs.disk.NumInodes())
}

// allocFreeInode scans the inode table for a free slot and writes in into
// it, mirroring dirent's unexported allocInode since symlink inodes are
// minted here rather than inside the dirent package.
func allocFreeInode(fs *Ospfs, in *ospfs.Inode) (uint32, error) {
	for ino := uint32(ospfs.RootIno) + 1; ino < fs.disk.NumInodes(); ino++ {
		existing := fs.disk.ReadInode(ino)
		if existing.IsFree() {
			fs.disk.WriteInode(ino, in)
			return ino, nil
		}
	}
	return 0, ospfs.ErrNoMemory
}
