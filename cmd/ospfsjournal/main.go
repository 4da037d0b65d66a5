// Command ospfsjournal is a read-only diagnostic that dumps the contents
// of the journal inode (ospfs.JournalIno) from a disk image, line by
// line, through a structured logger. The inode allocators do not set that
// inode aside, so on an image where files were created it holds whichever
// file was handed inode 2. It is grounded on spec.md
// §6's replay_journal hook and never sits on a correctness path — nothing
// else in this repository depends on the journal inode containing
// anything at all.
package main

import (
	"bufio"
	"bytes"
	"flag"
	"log/slog"
	"os"

	"github.com/gopherfs/ospfs/blockstore"
	"github.com/gopherfs/ospfs/fileio"
	"github.com/gopherfs/ospfs/ospfs"
)

func main() {
	image := flag.String("image", "", "path to a formatted ospfs disk image")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *image == "" {
		log.Error("missing -image")
		os.Exit(2)
	}

	raw, err := os.ReadFile(*image)
	if err != nil {
		log.Error("read image", "err", err)
		os.Exit(1)
	}

	disk, err := blockstore.Open(raw)
	if err != nil {
		log.Error("open image", "err", err)
		os.Exit(1)
	}

	in := disk.ReadInode(ospfs.JournalIno)
	if in.IsFree() {
		log.Warn("journal inode is unallocated, nothing to replay", "ino", ospfs.JournalIno)
		return
	}

	buf := make([]byte, in.Size)
	if _, err := fileio.Read(disk, in, buf, 0); err != nil {
		log.Error("read journal", "err", err)
		os.Exit(1)
	}

	scanner := bufio.NewScanner(bytes.NewReader(buf))
	for scanner.Scan() {
		log.Info("journal", "line", scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		log.Error("scan journal", "err", err)
		os.Exit(1)
	}
}
