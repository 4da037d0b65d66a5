// Package dirent implements L5: the flat, linear directory format layered
// on top of fileio/addr/resize/blockstore. A directory's data is nothing
// but a packed array of ospfs.Dirent records; a slot with Ino == 0 is a
// tombstone available for reuse. Grounded on original_source's
// ospfs_dir_lookup/create_blank_direntry/ospfs_create/ospfs_link/
// ospfs_unlink, translated from raw pointer-into-mapped-block arithmetic
// into fileio.Read/Write calls against a small in-memory Dirent buffer.
package dirent

import (
	"github.com/gopherfs/ospfs/blockstore"
	"github.com/gopherfs/ospfs/fileio"
	"github.com/gopherfs/ospfs/ospfs"
	"github.com/gopherfs/ospfs/resize"
)

// count returns how many DirentSize-sized slots dirIn currently occupies.
func count(dirIn *ospfs.Inode) uint32 {
	return dirIn.Size / ospfs.DirentSize
}

func readSlot(d *blockstore.Disk, dirIn *ospfs.Inode, slot uint32) (ospfs.Dirent, error) {
	var buf [ospfs.DirentSize]byte
	if _, err := fileio.Read(d, dirIn, buf[:], slot*ospfs.DirentSize); err != nil {
		return ospfs.Dirent{}, err
	}
	var de ospfs.Dirent
	de.FromBytes(buf[:])
	return de, nil
}

func writeSlot(d *blockstore.Disk, dirIn *ospfs.Inode, slot uint32, de ospfs.Dirent) error {
	var buf [ospfs.DirentSize]byte
	de.ToBytes(buf[:])
	_, err := fileio.Write(d, dirIn, buf[:], slot*ospfs.DirentSize, false)
	return err
}

// Find scans dirIn for an entry named name, returning its slot index, the
// decoded entry, and true if found. A read failure partway through the
// scan is I3 violated — a directory's block tree missing a block it
// claims by its Size — and is surfaced as ospfs.ErrIO rather than masked
// as "not found", per spec.md §4.4.
func Find(d *blockstore.Disk, dirIn *ospfs.Inode, name string) (slot uint32, de ospfs.Dirent, ok bool, err error) {
	n := count(dirIn)
	for s := uint32(0); s < n; s++ {
		cur, err := readSlot(d, dirIn, s)
		if err != nil {
			return 0, ospfs.Dirent{}, false, ospfs.ErrIO
		}
		if !cur.IsFree() && cur.NameString() == name {
			return s, cur, true, nil
		}
	}
	return 0, ospfs.Dirent{}, false, nil
}

// Lookup resolves name within dirIn to an inode number.
func Lookup(d *blockstore.Disk, dirIn *ospfs.Inode, name string) (uint32, error) {
	_, de, ok, err := Find(d, dirIn, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ospfs.ErrNotFound
	}
	return de.Ino, nil
}

// CreateBlank returns the slot index of a free directory entry in dirIn:
// either an existing tombstone (Ino == 0), scanned for and reused first per
// spec.md's reuse-before-grow rule, or a brand new slot appended by growing
// dirIn by one DirentSize via resize.AddBlock when needed.
func CreateBlank(d *blockstore.Disk, dirIn *ospfs.Inode) (uint32, error) {
	n := count(dirIn)
	for s := uint32(0); s < n; s++ {
		cur, err := readSlot(d, dirIn, s)
		if err != nil {
			return 0, err
		}
		if cur.IsFree() {
			return s, nil
		}
	}
	if dirIn.Size%ospfs.BlkSize == 0 {
		if err := resize.AddBlock(d, dirIn); err != nil {
			return 0, err
		}
		dirIn.Size = (n + 1) * ospfs.DirentSize
	} else {
		dirIn.Size += ospfs.DirentSize
	}
	return n, nil
}

// Link inserts a dirent named name pointing at ino into dirIn, bumping the
// target inode's Nlink. Fails with ospfs.ErrExists if name is already
// present and ospfs.ErrNameTooLong if it doesn't fit in a Dirent's name
// field.
func Link(d *blockstore.Disk, dirIn *ospfs.Inode, name string, ino uint32) error {
	if len(name) > ospfs.MaxNameLen {
		return ospfs.ErrNameTooLong
	}
	if _, _, ok, err := Find(d, dirIn, name); err != nil {
		return err
	} else if ok {
		return ospfs.ErrExists
	}
	slot, err := CreateBlank(d, dirIn)
	if err != nil {
		return err
	}
	var de ospfs.Dirent
	de.Ino = ino
	de.SetName(name)
	if err := writeSlot(d, dirIn, slot, de); err != nil {
		return err
	}
	target := d.ReadInode(ino)
	target.Nlink++
	d.WriteInode(ino, target)
	return nil
}

// Create allocates a fresh regular-file inode, links it into dirIn under
// name, and returns its inode number. Directories are never created here:
// original_source never implements mkdir (grepped and confirmed absent
// beyond a stray comment), so subdirectory creation is out of scope for
// this filesystem's runtime operation set — see SPEC_FULL.md and
// DESIGN.md.
func Create(d *blockstore.Disk, dirIn *ospfs.Inode, name string, mode uint32) (uint32, error) {
	if len(name) > ospfs.MaxNameLen {
		return 0, ospfs.ErrNameTooLong
	}
	if _, _, ok, err := Find(d, dirIn, name); err != nil {
		return 0, err
	} else if ok {
		return 0, ospfs.ErrExists
	}
	ino, err := allocInode(d)
	if err != nil {
		return 0, err
	}
	in := ospfs.Inode{Ftype: ospfs.FtypeReg, Mode: mode}
	d.WriteInode(ino, &in)
	if err := Link(d, dirIn, name, ino); err != nil {
		freeInode(d, ino)
		return 0, err
	}
	return ino, nil
}

// Unlink removes the entry named name from dirIn. If that was the target
// inode's last link, the inode's entire block tree is walked and freed and
// the inode slot is zeroed for reuse — the fix noted in SPEC_FULL.md/
// DESIGN.md for original_source's unlink, which drops the link count
// without ever reclaiming the file's blocks or inode.
func Unlink(d *blockstore.Disk, dirIn *ospfs.Inode, name string) error {
	slot, de, ok, err := Find(d, dirIn, name)
	if err != nil {
		return err
	}
	if !ok {
		return ospfs.ErrNotFound
	}
	var tomb ospfs.Dirent
	if err := writeSlot(d, dirIn, slot, tomb); err != nil {
		return err
	}

	target := d.ReadInode(de.Ino)
	if target.Nlink > 0 {
		target.Nlink--
	}
	if target.Nlink == 0 {
		if err := resize.ChangeSize(d, target, 0); err != nil && target.IsDir() {
			// Directories reject resize.ChangeSize outright (see resize.go);
			// free their blocks by hand instead.
			freeAllBlocks(d, target)
		}
		freeInode(d, de.Ino)
		target.Zero()
	}
	d.WriteInode(de.Ino, target)
	return nil
}

// freeAllBlocks releases every data and structural block owned by in
// without going through resize (which refuses to touch directories),
// leaving in's Size at 0.
func freeAllBlocks(d *blockstore.Disk, in *ospfs.Inode) {
	for in.Size > 0 {
		if err := resize.RemoveBlock(d, in); err != nil {
			break
		}
	}
}

// allocInode scans the inode table for a free slot (Nlink == 0) and
// returns its number, or ospfs.ErrNoMemory if the table is full. Inode 0
// is never handed out; RootIno is permanently reserved.
func allocInode(d *blockstore.Disk) (uint32, error) {
	for ino := uint32(ospfs.RootIno) + 1; ino < d.NumInodes(); ino++ {
		in := d.ReadInode(ino)
		if in.IsFree() {
			return ino, nil
		}
	}
	return 0, ospfs.ErrNoMemory
}

// freeInode marks inode ino's slot available again by writing back a fully
// zeroed record, guarding against the stale-pointer bug a reused slot would
// otherwise carry forward.
func freeInode(d *blockstore.Disk, ino uint32) {
	var blank ospfs.Inode
	d.WriteInode(ino, &blank)
}
