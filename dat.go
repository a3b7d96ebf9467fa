package kfs

import (
	"io"
	"log/slog"
)

// writeDAT implements spec §4.4, the DAT writer: it chains consecutive
// blocks of a file into linked sections starting at *cur, writing
// (prevSID, nextSID) headers and page-rollover magic as it goes. On return
// *cur holds the next free section for subsequent files. fatptr is the
// current FAT write pointer, checked against every address the DAT cursor
// enters so growth from the two ends can never collide (spec §3).
func (rw *romWriter) writeDAT(r io.Reader, length int64, fatptr int64, cur *sid) error {
	prev := nullSID
	remaining := length
	for remaining > 0 {
		page, index := cur.page(), cur.index()
		n := remaining
		if n > blockSize {
			n = blockSize
		}
		if err := checkNoOverflow(fatptr, cur.offset()+n-1); err != nil {
			return err
		}
		headerAddr := int64(page)*pageSize + int64(index)*sectionHeaderSize

		index++
		if index > lastSectionIndex {
			index = firstSectionIndex
			page++
			if err := checkNoOverflow(fatptr, int64(page)*pageSize); err != nil {
				return err
			}
			if err := rw.beginRolloverPage(page); err != nil {
				return err
			}
		}

		next := nullSID
		if remaining > blockSize {
			next = newSID(page, index)
		}

		prevField := uint16(prev) & pSIDInUseMask
		var hdr [sectionHeaderSize]byte
		putUint16LE(hdr[0:2], prevField)
		putUint16LE(hdr[2:4], uint16(next))
		if err := rw.writeAt(headerAddr, hdr[:]); err != nil {
			return err
		}

		section := *cur
		if _, err := rw.writeBlock(section, r); err != nil {
			return err
		}

		rw.trace("wrote section", slog.Int("page", section.page()), slog.Int("index", section.index()),
			slog.Int64("remaining", remaining))

		if remaining > blockSize {
			remaining -= blockSize
		} else {
			remaining = 0
		}
		prev = section
		*cur = newSID(page, index)
	}
	return nil
}

// beginRolloverPage writes the magic number for a newly entered DAT page
// reached via section-index rollover. Unlike the very first DAT page (see
// the orchestrator), a rollover page's magic is followed by a version byte.
// This asymmetry is intentional, preserved for bit-compatibility.
func (rw *romWriter) beginRolloverPage(page int) error {
	var buf [rolloverPageMagicLen]byte
	copy(buf[:], pageMagic)
	buf[firstPageMagicLen] = rolloverVersionByte
	return rw.writeAt(int64(page)*pageSize, buf[:])
}

func putUint16LE(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}
