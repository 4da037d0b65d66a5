// Package vfs implements L7: the VFS/FUSE adapter binding the lower
// layers (blockstore, addr, resize, fileio, dirent, symlink) to
// github.com/hanwen/go-fuse/v2/fuse's low-level fuse.RawFileSystem
// interface. Grounded on the teacher's fuseconnector.go, which implements
// the same interface (against the teacher's own now-unfetchable fork of
// go-fuse) one raw op at a time against a NameService/DataService pair;
// here the two services collapse into a single in-memory blockstore.Disk
// because this filesystem has no network split between metadata and data.
//
// Every RawFS method that reads or changes the disk's contents takes and
// releases the single mutex guarding the disk (spec.md §5: "a single global lock is a legitimate, spec-compliant
// design"). The lower layers themselves stay lock-free.
package vfs

import (
	"log/slog"
	"sync"

	"github.com/gopherfs/ospfs/blockstore"
	"github.com/gopherfs/ospfs/dirent"
	"github.com/gopherfs/ospfs/ospfs"
)

// Ospfs is the in-memory filesystem, guarded by mu and logged through log
// (nil-safe: a nil *slog.Logger falls back to slog.Default()).
type Ospfs struct {
	mu   sync.Mutex
	disk *blockstore.Disk
	log  *slog.Logger
}

// New wraps an already-formatted disk for serving over FUSE.
func New(disk *blockstore.Disk, log *slog.Logger) *Ospfs {
	if log == nil {
		log = slog.Default()
	}
	return &Ospfs{disk: disk, log: log}
}

// logger returns o.log, defaulting defensively in case a caller built an
// Ospfs by hand instead of through New.
func (o *Ospfs) logger() *slog.Logger {
	if o.log == nil {
		return slog.Default()
	}
	return o.log
}

func (o *Ospfs) getInode(ino uint64) (*ospfs.Inode, error) {
	if ino == 0 || ino >= uint64(o.disk.NumInodes()) {
		return nil, ospfs.ErrNotFound
	}
	in := o.disk.ReadInode(uint32(ino))
	if in.IsFree() {
		return nil, ospfs.ErrNotFound
	}
	return in, nil
}

// lookup resolves name inside directory dirIno, holding o.mu.
func (o *Ospfs) lookup(dirIno uint64, name string) (uint32, *ospfs.Inode, error) {
	dirIn, err := o.getInode(dirIno)
	if err != nil {
		return 0, nil, err
	}
	if !dirIn.IsDir() {
		return 0, nil, ospfs.ErrNotPermitted
	}
	childIno, err := dirent.Lookup(o.disk, dirIn, name)
	if err != nil {
		return 0, nil, err
	}
	child, err := o.getInode(uint64(childIno))
	if err != nil {
		return 0, nil, err
	}
	return childIno, child, nil
}
