package kfs

import (
	"io"
	"math"
)

// layout is the result of planning a ROM's page partition: it names the
// first DAT page and the last page available to the FAT before it starts
// growing down from the top of the image.
type layout struct {
	romLen   int64
	datStart int
	fatStart int
}

// planLayout computes the DAT/FAT partition for a ROM of the given byte
// length, following spec §4.1: dat_start is fixed at 0x04, fat_start is
// derived from the ROM's page count.
func planLayout(romLen int64) (layout, error) {
	pages := romLen / pageSize
	if pages < minPages {
		return layout{}, errorf(KindInvalidLayout, "", nil,
			"ROM has %d pages, need at least %d", pages, minPages)
	}
	fatStart := pages - 9
	if fatStart < 0 || fatStart > math.MaxUint8 {
		return layout{}, errorf(KindInvalidLayout, "", nil,
			"fat_start %d does not fit in one byte", fatStart)
	}
	return layout{romLen: romLen, datStart: datStart, fatStart: int(fatStart)}, nil
}

// fatPointerStart is the initial FAT pointer: entries pack downward from
// the byte immediately past the end of the FAT region.
func (l layout) fatPointerStart() int64 {
	return int64(l.fatStart+1) * pageSize
}

// firstSID is the first section identifier the DAT writer allocates.
func (l layout) firstSID() sid {
	return newSID(l.datStart, firstSectionIndex)
}

// initPages writes the DAT/FAT region's initial pattern: every page from
// dat_start through fat_start inclusive is filled with 0xFF, except that
// DAT pages (dat_start..fat_start-4) get a 'K' tag in their first byte.
// This is spec §4.2's page initializer.
func (rw *romWriter) initPages(l layout) error {
	buf := make([]byte, pageSize)
	for i := range buf {
		buf[i] = unusedPageTagByte
	}
	datTagged := make([]byte, pageSize)
	copy(datTagged, buf)
	datTagged[0] = datPageTagByte

	if _, err := rw.w.Seek(int64(l.datStart)*pageSize, io.SeekStart); err != nil {
		return errorf(KindIOError, "", err, "seeking to dat_start")
	}
	for p := l.datStart; p <= l.fatStart; p++ {
		page := buf
		if p <= l.fatStart-4 {
			page = datTagged
		}
		if _, err := rw.w.Write(page); err != nil {
			return errorf(KindIOError, "", err, "writing page %d", p)
		}
	}
	return nil
}
