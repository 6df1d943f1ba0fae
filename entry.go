package tariter

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/meigma/tariter/internal/header"
)

// Entry is one member of a tar archive: its metadata plus a bounded,
// seekable view of its payload.
//
// Entries do not own the underlying stream. Every entry produced by a scan
// shares the cursor's stream and lock, so an entry stays readable after the
// scan has advanced — its Read repositions the stream back into the entry's
// bounds when needed. The metadata accessors resolve the effective value
// from the PAX attributes and GNU long fields that were in force when the
// entry was scanned, falling back to the fixed header.
//
// Entry implements io.Reader and io.Seeker over the member payload.
type Entry struct {
	src Source
	mu  *sync.Mutex
	raw header.Raw

	// Attribute state captured at scan time. Shared maps; treated as
	// immutable from here on.
	pax     map[string]string
	gnuLong map[string]string

	// start is the stream offset immediately past the header block. The
	// payload physically occupies [start, start+raw.Size).
	start int64

	// checksumOK records whether the header block's stored checksum matched
	// at scan time; the block itself is not retained.
	checksumOK bool

	nameOnce sync.Once
	name     string
}

// Interface compliance.
var (
	_ io.Reader = (*Entry)(nil)
	_ io.Seeker = (*Entry)(nil)
)

// Name returns the member's path within the archive.
//
// Resolution order: the GNU sparse name attribute, then a GNU long-name
// header, then the PAX path attribute, then the fixed header's prefix/name
// fields (the prefix is joined only for non-GNU typeflags). The result is
// computed once and memoized.
func (e *Entry) Name() string {
	e.nameOnce.Do(func() { e.name = e.resolveName() })
	return e.name
}

func (e *Entry) resolveName() string {
	switch {
	case e.pax[paxGNUSparseName] != "":
		return e.pax[paxGNUSparseName]
	case e.gnuLong[header.GNULongNameKey] != "":
		return e.gnuLong[header.GNULongNameKey]
	case e.pax[paxPath] != "":
		return e.pax[paxPath]
	}
	if e.raw.Prefix != "" && !isGNUType(e.raw.TypeFlag) {
		return e.raw.Prefix + "/" + e.raw.Name
	}
	return e.raw.Name
}

// Linkname returns the link target for hard links and symlinks, preferring a
// GNU long-link header, then the PAX linkpath attribute, then the fixed
// header field. Empty when the entry is not a link.
func (e *Entry) Linkname() string {
	if v := e.gnuLong[header.GNULongLinkKey]; v != "" {
		return v
	}
	if v := e.pax[paxLinkpath]; v != "" {
		return v
	}
	return e.raw.Linkname
}

// Size returns the member's effective size in bytes.
//
// Resolution order: GNU sparse realsize, GNU sparse size, the PAX size
// attribute, then the fixed header field. For sparse members this is the
// logical size, which can exceed the bytes physically stored in the archive.
func (e *Entry) Size() int64 {
	for _, key := range [...]string{paxGNUSparseRealsize, paxGNUSparseSize, paxSize} {
		if v, ok := e.pax[key]; ok {
			return paxInt(v)
		}
	}
	return e.raw.Size
}

// Mode returns the permission and mode bits from the fixed header.
func (e *Entry) Mode() int64 { return e.raw.Mode }

// UID returns the owning user ID, honoring a PAX uid override.
func (e *Entry) UID() int64 {
	if v, ok := e.pax[paxUID]; ok {
		return paxInt(v)
	}
	return e.raw.UID
}

// GID returns the owning group ID, honoring a PAX gid override.
func (e *Entry) GID() int64 {
	if v, ok := e.pax[paxGID]; ok {
		return paxInt(v)
	}
	return e.raw.GID
}

// ModTime returns the modification time, honoring a PAX mtime override.
// PAX mtime records carry decimal seconds with an optional fractional part,
// which is preserved to nanosecond precision.
func (e *Entry) ModTime() time.Time {
	if v, ok := e.pax[paxMtime]; ok {
		return paxTime(v)
	}
	return time.Unix(e.raw.Mtime, 0)
}

// Uname returns the owning user name, honoring a PAX uname override.
func (e *Entry) Uname() string {
	if v, ok := e.pax[paxUname]; ok {
		return v
	}
	return e.raw.Uname
}

// Gname returns the owning group name, honoring a PAX gname override.
func (e *Entry) Gname() string {
	if v, ok := e.pax[paxGname]; ok {
		return v
	}
	return e.raw.Gname
}

// Devmajor returns the major device number for device node entries.
func (e *Entry) Devmajor() int64 { return e.raw.Devmajor }

// Devminor returns the minor device number for device node entries.
func (e *Entry) Devminor() int64 { return e.raw.Devminor }

// TypeFlag returns the raw typeflag byte from the fixed header.
func (e *Entry) TypeFlag() byte { return e.raw.TypeFlag }

// Checksum returns the checksum value stored in the fixed header.
func (e *Entry) Checksum() int64 { return e.raw.Checksum }

// PAXRecords returns the PAX attributes in force for this entry: the
// accumulated global attributes layered under any per-entry extended
// header. The map is shared with the entry; callers must not mutate it.
func (e *Entry) PAXRecords() map[string]string { return e.pax }

// GNUSparse returns the value of the "GNU.sparse.<name>" PAX attribute, or
// the empty string when absent.
func (e *Entry) GNUSparse(name string) string {
	return e.pax[paxGNUSparsePrefix+name]
}

// IsChecksumValid reports whether the fixed header's stored checksum matches
// the recomputed byte sum, in either the unsigned or the signed reading.
func (e *Entry) IsChecksumValid() bool { return e.checksumOK }

// IsDir reports whether the entry is a directory.
func (e *Entry) IsDir() bool { return e.raw.TypeFlag == TypeDir }

// IsRegular reports whether the entry is a regular file, including
// pre-POSIX, contiguous, and GNU sparse members.
func (e *Entry) IsRegular() bool {
	switch e.raw.TypeFlag {
	case TypeReg, TypeRegA, TypeCont, TypeGNUSparse:
		return true
	}
	return false
}

// IsSymlink reports whether the entry is a symbolic link.
func (e *Entry) IsSymlink() bool { return e.raw.TypeFlag == TypeSymlink }

// IsSparse reports whether the entry is a sparse file, either by the GNU
// sparse typeflag or by the presence of a GNU.sparse.realsize attribute.
func (e *Entry) IsSparse() bool {
	return e.raw.TypeFlag == TypeGNUSparse || e.pax[paxGNUSparseRealsize] != ""
}

// IsCharDevice reports whether the entry is a character device node.
func (e *Entry) IsCharDevice() bool { return e.raw.TypeFlag == TypeChar }

// IsBlockDevice reports whether the entry is a block device node.
func (e *Entry) IsBlockDevice() bool { return e.raw.TypeFlag == TypeBlock }

// IsFIFO reports whether the entry is a FIFO node.
func (e *Entry) IsFIFO() bool { return e.raw.TypeFlag == TypeFifo }

// Read reads the member payload into p, implementing io.Reader.
//
// If the shared stream currently sits outside this entry's bounds — because
// the cursor advanced or another entry was read — the stream is first
// repositioned to the entry's start. Reads never cross the entry's end;
// at end of payload Read returns 0, io.EOF.
func (e *Entry) Read(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, err := e.heal()
	if err != nil {
		return 0, err
	}
	remaining := e.end() - cur
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	return e.src.Read(p)
}

// ReadBytes reads up to n bytes of the member payload and returns them.
// n < 0 means the remainder of the entry. Requests beyond the entry's end
// are clamped, so reading at end of payload returns an empty slice and no
// error. The same repositioning rule as Read applies.
func (e *Entry) ReadBytes(n int) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, err := e.heal()
	if err != nil {
		return nil, err
	}
	want := e.end() - cur
	if n >= 0 && int64(n) < want {
		want = int64(n)
	}
	// The declared size is not trusted for allocation; the buffer grows
	// with the bytes actually present on the stream.
	var buf bytes.Buffer
	read, err := io.Copy(&buf, io.LimitReader(e.src, want))
	if err != nil {
		return buf.Bytes(), fmt.Errorf("tariter: read entry payload: %w", err)
	}
	if read < want {
		return buf.Bytes(), fmt.Errorf("tariter: read entry payload: %w", io.ErrUnexpectedEOF)
	}
	return buf.Bytes(), nil
}

// Seek moves the entry's position, implementing io.Seeker. The offset is
// interpreted relative to the entry (not the underlying stream) and the
// returned position is likewise entry-relative.
//
// Seeks may not leave the entry's bounds: from io.SeekStart the offset must
// lie in [0, Size]; from io.SeekCurrent the resulting position must stay in
// bounds; from io.SeekEnd the offset must be <= 0 and may not precede the
// entry's start. Violations return ErrOutOfRange with no state change.
func (e *Entry) Seek(offset int64, whence int) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start, end := e.start, e.end()
	var abs int64
	switch whence {
	case io.SeekStart:
		if offset < 0 || offset > e.raw.Size {
			return 0, fmt.Errorf("%w: offset %d, entry size %d", ErrOutOfRange, offset, e.raw.Size)
		}
		abs = start + offset
	case io.SeekCurrent:
		cur, err := e.src.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, err
		}
		abs = cur + offset
		if abs < start || abs > end {
			return 0, fmt.Errorf("%w: offset %d from current position", ErrOutOfRange, offset)
		}
	case io.SeekEnd:
		if offset > 0 {
			return 0, fmt.Errorf("%w: positive offset %d from end", ErrOutOfRange, offset)
		}
		abs = end + offset
		if abs < start {
			return 0, fmt.Errorf("%w: offset %d from end, entry size %d", ErrOutOfRange, offset, e.raw.Size)
		}
	default:
		return 0, fmt.Errorf("tariter: invalid whence %d", whence)
	}

	pos, err := e.src.Seek(abs, io.SeekStart)
	if err != nil {
		return 0, err
	}
	return pos - start, nil
}

// Tell returns the current position relative to the entry's start.
//
// Unlike Read, Tell does not reposition: if the shared stream has drifted
// outside the entry's bounds it returns ErrPositionLost, reporting the
// truth about where the shared cursor actually is.
func (e *Entry) Tell() (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, err := e.src.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	rel := cur - e.start
	if rel < 0 || cur > e.end() {
		return 0, fmt.Errorf("%w: stream at %+d relative to entry start", ErrPositionLost, rel)
	}
	return rel, nil
}

// end returns the absolute stream offset one past the member payload. The
// physical payload always spans the raw header size; PAX and GNU size
// overrides change reported metadata, not the bytes on the stream.
func (e *Entry) end() int64 { return e.start + e.raw.Size }

// heal clamps the shared stream back into the entry's bounds, returning the
// resulting absolute position. Caller holds the lock.
func (e *Entry) heal() (int64, error) {
	cur, err := e.src.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	if cur < e.start || cur > e.end() {
		if _, err := e.src.Seek(e.start, io.SeekStart); err != nil {
			return 0, err
		}
		cur = e.start
	}
	return cur, nil
}

// paxInt parses a PAX numeric override. An unparseable value resolves to
// zero rather than an error, mirroring how permissive readers treat such
// records.
func paxInt(v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// paxTime parses a PAX time value of the form seconds[.fraction]. An
// unparseable value resolves to the zero of the Unix epoch.
func paxTime(v string) time.Time {
	sec, frac, _ := strings.Cut(v, ".")
	secs, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Unix(0, 0)
	}
	if frac == "" {
		return time.Unix(secs, 0)
	}
	if strings.Trim(frac, "0123456789") != "" {
		return time.Unix(0, 0)
	}
	// Normalize the fraction to nanoseconds: pad short, truncate long.
	const nanoDigits = 9
	if len(frac) < nanoDigits {
		frac += strings.Repeat("0", nanoDigits-len(frac))
	} else {
		frac = frac[:nanoDigits]
	}
	nsec, _ := strconv.ParseInt(frac, 10, 64)
	if secs < 0 {
		nsec = -nsec
	}
	return time.Unix(secs, nsec)
}
