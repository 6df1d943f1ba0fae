package tariter

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/meigma/tariter/internal/header"
)

// Cursor drives a single forward scan over a tar archive.
//
// The cursor owns the shared stream and the lock that every produced Entry
// uses to touch it. A scan is not restartable: to iterate again, construct a
// new cursor over a freshly-positioned stream. A cursor and its entries must
// not be shared with another scan.
type Cursor struct {
	src Source
	mu  sync.Mutex

	// next is the absolute offset of the next header block. The cursor
	// seeks here itself before every header read, so caller reads on
	// yielded entries cannot perturb its bookkeeping.
	next int64

	// Extension-header state accumulated across the scan. global persists
	// until replaced by a later global header; local and gnuLong apply to
	// exactly one following member and are cleared once attached.
	global  map[string]string
	local   map[string]string
	gnuLong map[string]string

	blk header.Block

	// strictTrailer enables the conventional two-consecutive-zero-block
	// terminator; sawZero tracks the run. See WithStrictTrailer.
	strictTrailer bool
	sawZero       bool
}

// NewCursor returns a cursor scanning the archive that begins at src's
// current position.
func NewCursor(src Source, opts ...Option) (*Cursor, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	pos, err := src.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("tariter: position source: %w", err)
	}
	c := &Cursor{src: src, next: pos}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c, nil
}

// Next returns the next real member of the archive, or io.EOF once the
// archive is exhausted.
//
// Extension headers (PAX, GNU long name/link) are consumed internally and
// surface only through the metadata of the member they apply to. An
// extension header whose own checksum fails validation is skipped without
// touching the accumulated state, so a forged or corrupted extension
// degrades to "trust the fixed header" rather than failing the scan.
func (c *Cursor) Next() (*Entry, error) {
	for {
		start, err := c.readHeader()
		if err != nil {
			return nil, err
		}

		if c.blk.Zero() {
			if c.strictTrailer && c.sawZero {
				return nil, io.EOF
			}
			c.sawZero = true
			continue
		}
		c.sawZero = false

		raw := header.Decode(&c.blk)
		ent := &Entry{
			src:        c.src,
			mu:         &c.mu,
			raw:        raw,
			pax:        c.local,
			gnuLong:    c.gnuLong,
			start:      start,
			checksumOK: header.ChecksumOK(&c.blk),
		}

		// The payload occupies the raw header size rounded up to a block
		// boundary, no matter what the extension headers claim; position
		// the following header read past it before anything else.
		c.next = start + alignBlock(raw.Size)

		switch raw.TypeFlag {
		case TypeXGlobalHeader:
			if err := c.consumeGlobal(ent); err != nil {
				return nil, err
			}
		case TypeXHeader, TypeSolarisXHdr:
			if err := c.consumeLocal(ent); err != nil {
				return nil, err
			}
		case TypeGNULongName, TypeGNULongLink:
			if err := c.consumeGNULong(ent); err != nil {
				return nil, err
			}
		default:
			// A real member: the pending per-member state now belongs to
			// it and to it alone.
			c.local, c.gnuLong = nil, nil
			if ent.Name() != "" {
				return ent, nil
			}
		}
	}
}

// readHeader seeks to the next header block and reads it, returning the
// stream offset immediately past the block. io.EOF means a clean end of
// archive; a short block is reported as an unexpected EOF.
func (c *Cursor) readHeader() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.src.Seek(c.next, io.SeekStart); err != nil {
		return 0, fmt.Errorf("tariter: seek to header: %w", err)
	}
	n, err := io.ReadFull(c.src, c.blk[:])
	switch {
	case errors.Is(err, io.EOF) && n == 0:
		return 0, io.EOF
	case err != nil:
		return 0, fmt.Errorf("tariter: read header block: %w", err)
	}
	c.next += header.BlockSize
	return c.next, nil
}

// consumeGlobal replaces the accumulated global attributes with the records
// of a global extended header. A new global header fully supersedes the
// previous one; layering happens only when local headers consume the global
// set as their base.
func (c *Cursor) consumeGlobal(ent *Entry) error {
	if !ent.checksumOK {
		return nil
	}
	payload, err := ent.ReadBytes(-1)
	if err != nil {
		return err
	}
	c.global = header.ParsePAXRecords(payload, nil)
	return nil
}

// consumeLocal parses a per-member extended header layered on the current
// global attributes and holds the result for the next member.
func (c *Cursor) consumeLocal(ent *Entry) error {
	if !ent.checksumOK {
		return nil
	}
	payload, err := ent.ReadBytes(-1)
	if err != nil {
		return err
	}
	c.local = header.ParsePAXRecords(payload, c.global)
	return nil
}

// consumeGNULong merges a GNU long-name or long-link payload into the
// pending long-field state for the next member.
func (c *Cursor) consumeGNULong(ent *Entry) error {
	if !ent.checksumOK {
		return nil
	}
	payload, err := ent.ReadBytes(-1)
	if err != nil {
		return err
	}
	c.gnuLong = header.ParseGNULong(ent.raw.TypeFlag, payload, c.gnuLong)
	return nil
}

// alignBlock rounds size up to the next 512-byte block boundary.
func alignBlock(size int64) int64 {
	return size + (-size)&(header.BlockSize-1)
}

// Entries returns a single-use iterator over the real members of the
// archive at src, in archive order. Iteration stops at the end of the
// archive; any error, including a nil source, is yielded once and ends the
// sequence.
func Entries(src Source, opts ...Option) iter.Seq2[*Entry, error] {
	return func(yield func(*Entry, error) bool) {
		cur, err := NewCursor(src, opts...)
		if err != nil {
			yield(nil, err)
			return
		}
		for {
			ent, err := cur.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(ent, nil) {
				return
			}
		}
	}
}
