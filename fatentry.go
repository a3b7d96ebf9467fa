package kfs

import "log/slog"

// buildFileEntry constructs a file FAT entry in natural (pre-reversal) byte
// order per spec §3's table: tag, elen, parent, flags, 24-bit length, first
// SID, name.
func buildFileEntry(parent uint16, length uint32, first sid, name []byte) ([]byte, error) {
	elen := len(name) + fileEntryFixed
	if elen > 0xFFFF {
		return nil, errorf(KindNameTooLong, string(name), nil, "elen %d exceeds 0xFFFF", elen)
	}
	buf := make([]byte, elen+entryPrefixLen)
	buf[entryTagOff] = tagFile
	putUint16LE(buf[entryElenOff:], uint16(elen))
	putUint16LE(buf[entryParentOff:], parent)
	buf[fileFlagsOff] = flagsDefault
	buf[fileLengthOff] = byte(length)
	buf[fileLengthOff+1] = byte(length >> 8)
	buf[fileLengthOff+2] = byte(length >> 16)
	putUint16LE(buf[fileFirstSIDOff:], uint16(first))
	copy(buf[fileNameOff:], name)
	return buf, nil
}

// buildDirEntry constructs a directory FAT entry: tag, elen, parent, own ID,
// flags, name.
func buildDirEntry(parent, ownID uint16, name []byte) ([]byte, error) {
	elen := len(name) + dirEntryFixed
	if elen > 0xFFFF {
		return nil, errorf(KindNameTooLong, string(name), nil, "elen %d exceeds 0xFFFF", elen)
	}
	buf := make([]byte, elen+entryPrefixLen)
	buf[entryTagOff] = tagDir
	putUint16LE(buf[entryElenOff:], uint16(elen))
	putUint16LE(buf[entryParentOff:], parent)
	putUint16LE(buf[dirOwnIDOff:], ownID)
	buf[dirFlagsOff] = flagsDefault
	copy(buf[dirNameOff:], name)
	return buf, nil
}

// buildSymEntry constructs a symlink FAT entry: tag, elen, parent,
// name-length+1, name bytes, a single zero separator byte, then target
// bytes. The separator is not decorative: the name-length field counts it
// (name_len+1), and the target field starts one byte past the name rather
// than immediately after it.
func buildSymEntry(parent uint16, name, target []byte) ([]byte, error) {
	elen := len(name) + len(target) + symEntryFixed
	if elen > 0xFFFF {
		return nil, errorf(KindNameTooLong, string(name), nil, "elen %d exceeds 0xFFFF", elen)
	}
	if len(name) > 0xFE {
		return nil, errorf(KindNameTooLong, string(name), nil, "name length %d does not fit name-length byte", len(name))
	}
	buf := make([]byte, elen+entryPrefixLen)
	buf[entryTagOff] = tagSym
	putUint16LE(buf[entryElenOff:], uint16(elen))
	putUint16LE(buf[entryParentOff:], parent)
	buf[symNameLenOff] = byte(len(name) + 1)
	copy(buf[symNameOff:], name)
	copy(buf[symNameOff+len(name)+1:], target)
	return buf, nil
}

// reverseBytes returns a copy of b with its byte order reversed. The FAT
// region grows downward, so every entry is stored back-to-front; entries
// are always built in natural order first and reversed here, never written
// backward in place.
func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// writeFATEntry implements spec §4.5, the FAT writer: it decrements
// *fatptr by the entry's length and writes the (already reversed) bytes
// verbatim at the new pointer. datAddr is the DAT cursor's current byte
// offset, checked against the new pointer so the FAT region can never back
// into DAT space already claimed (spec §3).
func (rw *romWriter) writeFATEntry(entry []byte, fatptr *int64, datAddr int64) error {
	*fatptr -= int64(len(entry))
	if err := checkNoOverflow(*fatptr, datAddr); err != nil {
		return err
	}
	if err := rw.writeAt(*fatptr, entry); err != nil {
		return err
	}
	rw.trace("wrote FAT entry", slog.Int64("fatptr", *fatptr), slog.Int("len", len(entry)))
	return nil
}
