// Command ospfsmount formats a fresh in-memory ospfs disk and serves it
// over FUSE; it does not load an existing image. Grounded on the teacher's integration/mount.go, which wires a
// MaggieFuse onto go-fuse's raw server the same way; rebased here onto the
// real, fetchable github.com/hanwen/go-fuse/v2 in place of the teacher's
// unfetchable personal fork.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/gopherfs/ospfs/blockstore"
	"github.com/gopherfs/ospfs/vfs"
)

func main() {
	var (
		mountpoint = flag.String("mountpoint", "", "directory to mount the filesystem on")
		numBlocks  = flag.Uint("blocks", 4096, "total blocks to format the in-memory disk with")
		numInodes  = flag.Uint("inodes", 512, "size of the inode table")
		debug      = flag.Bool("debug", false, "log every FUSE request")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *mountpoint == "" {
		log.Error("missing -mountpoint")
		os.Exit(2)
	}

	disk, err := blockstore.NewDisk(uint32(*numBlocks), uint32(*numInodes))
	if err != nil {
		log.Error("format disk", "err", err)
		os.Exit(1)
	}

	fs := vfs.New(disk, log)
	raw := vfs.NewRawFS(fs)

	server, err := fuse.NewServer(raw, *mountpoint, &fuse.MountOptions{
		Debug:      *debug,
		FsName:     "ospfs",
		Name:       "ospfs",
		AllowOther: false,
	})
	if err != nil {
		log.Error("mount", "err", err)
		os.Exit(1)
	}

	log.Info("serving", "mountpoint", *mountpoint, "blocks", *numBlocks, "inodes", *numInodes)
	server.Serve()
}
