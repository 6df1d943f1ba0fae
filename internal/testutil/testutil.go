// Package testutil builds raw tar byte streams for tests, block by block,
// without going through archive/tar. Building fixtures by hand keeps full
// control over the extension-header layout, checksums, and padding that the
// reader under test must cope with.
package testutil

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/meigma/tariter/internal/header"
)

// Default fixture metadata. Tests that care about a field set it explicitly
// through the Raw they pass in.
const (
	DefaultMode  = 0o644
	DefaultUID   = 1000
	DefaultGID   = 1000
	DefaultMtime = 1629988096
)

// Builder assembles a tar stream.
type Builder struct {
	buf bytes.Buffer
}

// Header appends a header block for raw, filling in the USTAR magic and a
// valid checksum.
func (b *Builder) Header(raw header.Raw) *Builder {
	blk := MakeHeader(raw)
	b.buf.Write(blk[:])
	return b
}

// File appends a regular-file member: header plus zero-padded payload.
func (b *Builder) File(name, content string) *Builder {
	b.Header(header.Raw{
		Name:     name,
		Mode:     DefaultMode,
		UID:      DefaultUID,
		GID:      DefaultGID,
		Size:     int64(len(content)),
		Mtime:    DefaultMtime,
		TypeFlag: '0',
	})
	return b.Payload([]byte(content))
}

// Dir appends a directory member.
func (b *Builder) Dir(name string) *Builder {
	return b.Header(header.Raw{
		Name:     name,
		Mode:     0o755,
		UID:      DefaultUID,
		GID:      DefaultGID,
		Mtime:    DefaultMtime,
		TypeFlag: '5',
	})
}

// Symlink appends a symbolic-link member.
func (b *Builder) Symlink(name, target string) *Builder {
	return b.Header(header.Raw{
		Name:     name,
		Mode:     0o777,
		UID:      DefaultUID,
		GID:      DefaultGID,
		Mtime:    DefaultMtime,
		TypeFlag: '2',
		Linkname: target,
	})
}

// PAX appends an extended header of the given typeflag ('x', 'X' or 'g')
// whose payload is the concatenation of records. Use Record to format them.
func (b *Builder) PAX(typeflag byte, records ...string) *Builder {
	var payload bytes.Buffer
	for _, r := range records {
		payload.WriteString(r)
	}
	b.Header(header.Raw{
		Name:     "pax-header",
		Size:     int64(payload.Len()),
		TypeFlag: typeflag,
	})
	return b.Payload(payload.Bytes())
}

// GNULong appends a GNU long-name ('L') or long-link ('K') header carrying
// value as its NUL-terminated payload.
func (b *Builder) GNULong(typeflag byte, value string) *Builder {
	payload := append([]byte(value), 0)
	b.Header(header.Raw{
		Name:     "././@LongLink",
		Size:     int64(len(payload)),
		TypeFlag: typeflag,
	})
	return b.Payload(payload)
}

// Payload appends raw member content padded to the block boundary.
func (b *Builder) Payload(p []byte) *Builder {
	b.buf.Write(p)
	if pad := (-len(p)) & (header.BlockSize - 1); pad > 0 {
		b.buf.Write(make([]byte, pad))
	}
	return b
}

// ZeroBlocks appends n all-zero blocks.
func (b *Builder) ZeroBlocks(n int) *Builder {
	b.buf.Write(make([]byte, n*header.BlockSize))
	return b
}

// Tamper mutates the last appended block through f, e.g. to corrupt a
// checksum. It panics if nothing has been appended.
func (b *Builder) Tamper(f func(blk []byte)) *Builder {
	n := b.buf.Len()
	if n < header.BlockSize {
		panic("testutil: nothing to tamper with")
	}
	f(b.buf.Bytes()[n-header.BlockSize : n])
	return b
}

// Bytes returns the assembled stream with the conventional two-zero-block
// trailer appended.
func (b *Builder) Bytes() []byte {
	out := make([]byte, 0, b.buf.Len()+2*header.BlockSize)
	out = append(out, b.buf.Bytes()...)
	return append(out, make([]byte, 2*header.BlockSize)...)
}

// BytesNoTrailer returns the assembled stream exactly as built.
func (b *Builder) BytesNoTrailer() []byte {
	return bytes.Clone(b.buf.Bytes())
}

// Source returns the assembled stream (with trailer) as a seekable reader.
func (b *Builder) Source() *bytes.Reader {
	return bytes.NewReader(b.Bytes())
}

// MakeHeader encodes raw into a header block with USTAR magic and a valid
// checksum.
func MakeHeader(raw header.Raw) header.Block {
	var blk header.Block
	header.Encode(raw, &blk)
	copy(blk[257:265], "ustar\x0000")
	blk.SetChecksum()
	return blk
}

// Record formats a PAX record, "%d %s=%s\n", where the length counts the
// whole record including its own digits.
func Record(key, value string) string {
	base := len(key) + len(value) + 3 // space, '=', newline
	n := base + len(strconv.Itoa(base))
	n = base + len(strconv.Itoa(n))
	return fmt.Sprintf("%d %s=%s\n", n, key, value)
}
