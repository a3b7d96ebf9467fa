package kfs

import (
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/exp/slices"
	"golang.org/x/text/encoding/charmap"
)

// Progress is called by the orchestrator as it traverses the model tree, so
// callers can report what's happening without the writer capturing stdout.
// Done is called exactly once, after a successful build, with the same page
// counts returned in Summary; it is not called if Build returns an error.
type Progress interface {
	Adding(path string)
	AddingLink(name, target string)
	Done(datPages, fatPages int)
}

// nopProgress discards every call; it is the default when Build is given no
// Progress.
type nopProgress struct{}

func (nopProgress) Adding(string)             {}
func (nopProgress) AddingLink(string, string) {}
func (nopProgress) Done(int, int)             {}

// encodeName validates that name is representable in the on-disk charset
// (spec §4.8) and returns its encoded bytes. KnightOS images are
// conventionally CP437-encoded; any rune without a CP437 code point is
// rejected rather than silently dropped or transliterated.
func encodeName(name string) ([]byte, error) {
	enc := charmap.CodePage437.NewEncoder()
	out, err := enc.String(name)
	if err != nil {
		return nil, errorf(KindEncodingError, name, err, "not representable in CP437")
	}
	return []byte(out), nil
}

// walker carries the cursors the recursive traversal shares across calls:
// the next directory ID to assign, the next free DAT section, and the FAT
// write pointer. Spec §9 calls for these to live as fields on one object
// rather than being threaded through return tuples.
type walker struct {
	rw       *romWriter
	progress Progress

	parentID uint16
	section  sid
	fatptr   int64
}

// walk implements spec §4.6: it lists dir's children, sorts them
// lexicographically by full path, and emits one FAT entry per child,
// recursing into subdirectories.
func (w *walker) walk(dir string, parent uint16) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return errorf(KindNotFound, dir, err, "reading directory")
		}
		return errorf(KindIOError, dir, err, "reading directory")
	}
	paths := make([]string, len(entries))
	byPath := make(map[string]os.DirEntry, len(entries))
	for i, e := range entries {
		p := filepath.Join(dir, e.Name())
		paths[i] = p
		byPath[p] = e
	}
	slices.Sort(paths)

	for _, p := range paths {
		e := byPath[p]
		info, err := e.Info()
		if err != nil {
			return errorf(KindIOError, p, err, "stat")
		}
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			if err := w.writeSymlink(p, e.Name(), parent); err != nil {
				return err
			}
		case e.IsDir():
			if err := w.writeDir(p, e.Name(), parent); err != nil {
				return err
			}
		default:
			if err := w.writeFile(p, e.Name(), parent, info.Size()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *walker) writeSymlink(path, name string, parent uint16) error {
	target, err := os.Readlink(path)
	if err != nil {
		return errorf(KindIOError, path, err, "reading link")
	}
	w.progress.AddingLink(name, target)
	nameBytes, err := encodeName(name)
	if err != nil {
		return err
	}
	targetBytes, err := encodeName(target)
	if err != nil {
		return err
	}
	entry, err := buildSymEntry(parent, nameBytes, targetBytes)
	if err != nil {
		return err
	}
	w.rw.trace("symlink entry", slog.String("name", name), slog.String("target", target))
	return w.rw.writeFATEntry(reverseBytes(entry), &w.fatptr, w.section.offset())
}

func (w *walker) writeDir(path, name string, parent uint16) error {
	w.progress.Adding(path)
	nameBytes, err := encodeName(name)
	if err != nil {
		return err
	}
	w.parentID++
	ownID := w.parentID
	entry, err := buildDirEntry(parent, ownID, nameBytes)
	if err != nil {
		return err
	}
	if err := w.rw.writeFATEntry(reverseBytes(entry), &w.fatptr, w.section.offset()); err != nil {
		return err
	}
	return w.walk(path, ownID)
}

func (w *walker) writeFile(path, name string, parent uint16, size int64) error {
	if size > 0xFFFFFF {
		return errorf(KindFileTooLarge, path, nil, "%d bytes exceeds 0xFFFFFF", size)
	}
	w.progress.Adding(path)
	nameBytes, err := encodeName(name)
	if err != nil {
		return err
	}
	firstSID := w.section
	entry, err := buildFileEntry(parent, uint32(size), firstSID, nameBytes)
	if err != nil {
		return err
	}
	if err := w.rw.writeFATEntry(reverseBytes(entry), &w.fatptr, w.section.offset()); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return errorf(KindIOError, path, err, "opening file")
	}
	defer f.Close()
	if err := w.rw.writeDAT(f, size, w.fatptr, &w.section); err != nil {
		return err
	}
	return nil
}
