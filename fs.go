// Package kfs builds a KnightOS KFS filesystem image inside an existing
// ROM file from a host directory tree. It implements only the write path:
// the layout arithmetic that partitions a ROM into DAT and FAT pages, the
// recursive directory walk that emits FAT entries, and the block-chaining
// algorithm that stores file payload as a linked list of 256-byte sections.
package kfs

import (
	"io"
	"log/slog"
	"os"
)

// Summary reports how much of the ROM a Build call used.
type Summary struct {
	DATPages int
	FATPages int
}

// Options configures a Build call. The zero value is valid: a nil Progress
// is treated as a no-op, and a nil Logger disables logging entirely.
type Options struct {
	Progress Progress
	Logger   *slog.Logger
}

// Build serializes the directory tree rooted at modelPath into the ROM
// file at romPath, following the KFS on-disk layout. The ROM file must
// already exist and be at least 13 pages (212992 bytes) long; its first
// four pages are never touched.
func Build(romPath, modelPath string, opts Options) (Summary, error) {
	if opts.Progress == nil {
		opts.Progress = nopProgress{}
	}

	if _, err := os.Stat(modelPath); err != nil {
		if os.IsNotExist(err) {
			return Summary{}, errorf(KindNotFound, modelPath, err, "model path")
		}
		return Summary{}, errorf(KindIOError, modelPath, err, "stat model path")
	}

	rom, err := os.OpenFile(romPath, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return Summary{}, errorf(KindNotFound, romPath, err, "ROM path")
		}
		return Summary{}, errorf(KindIOError, romPath, err, "opening ROM")
	}
	defer rom.Close()

	info, err := rom.Stat()
	if err != nil {
		return Summary{}, errorf(KindIOError, romPath, err, "stat ROM")
	}

	return build(rom, info.Size(), modelPath, opts)
}

// build is the ROM-agnostic core of Build, split out so tests can drive it
// against an in-memory io.WriteSeeker instead of a real file.
func build(w io.WriteSeeker, romLen int64, modelPath string, opts Options) (Summary, error) {
	l, err := planLayout(romLen)
	if err != nil {
		return Summary{}, err
	}
	rw := newRomWriter(w, opts.Logger)
	rw.info("building filesystem", slog.Int("dat_start", l.datStart), slog.Int("fat_start", l.fatStart))

	if err := rw.initPages(l); err != nil {
		return Summary{}, err
	}

	// Establish the first DAT page's magic. Unlike rollover pages (see
	// beginRolloverPage), the very first page gets only the bare "KFS"
	// magic with no trailing version byte. The asymmetry is preserved
	// from the reference tool, not a bug in this writer.
	firstPage := make([]byte, firstPageMagicLen)
	copy(firstPage, pageMagic)
	if err := rw.writeAt(int64(l.datStart)*pageSize, firstPage); err != nil {
		return Summary{}, err
	}

	w2 := &walker{
		rw:       rw,
		progress: opts.Progress,
		parentID: 0,
		section:  l.firstSID(),
		fatptr:   l.fatPointerStart(),
	}
	fatptrStart := w2.fatptr

	if err := w2.walk(modelPath, 0); err != nil {
		return Summary{}, err
	}

	summary := Summary{
		FATPages: int(ceilDiv(fatptrStart-w2.fatptr, pageSize)),
		DATPages: w2.section.page() - l.datStart + 1,
	}
	rw.info("done", slog.Int("dat_pages", summary.DATPages), slog.Int("fat_pages", summary.FATPages))
	opts.Progress.Done(summary.DATPages, summary.FATPages)
	return summary, nil
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
