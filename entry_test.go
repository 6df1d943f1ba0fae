package tariter

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/tariter/internal/header"
	"github.com/meigma/tariter/internal/testutil"
)

// singleEntry scans the built archive and returns its only member.
func singleEntry(t *testing.T, b *testutil.Builder) *Entry {
	t.Helper()
	entries := collect(t, b)
	require.Len(t, entries, 1)
	return entries[0]
}

func TestEntryMetadataFromFixedHeader(t *testing.T) {
	b := new(testutil.Builder)
	b.Header(header.Raw{
		Name:     "node",
		Mode:     0o660,
		UID:      12,
		GID:      34,
		Mtime:    1629988096,
		TypeFlag: TypeChar,
		Uname:    "alice",
		Gname:    "disk",
		Devmajor: 5,
		Devminor: 1,
	})

	ent := singleEntry(t, b)
	assert.Equal(t, int64(0o660), ent.Mode())
	assert.Equal(t, int64(12), ent.UID())
	assert.Equal(t, int64(34), ent.GID())
	assert.Equal(t, time.Unix(1629988096, 0), ent.ModTime())
	assert.Equal(t, "alice", ent.Uname())
	assert.Equal(t, "disk", ent.Gname())
	assert.Equal(t, int64(5), ent.Devmajor())
	assert.Equal(t, int64(1), ent.Devminor())
	assert.Equal(t, TypeChar, ent.TypeFlag())
	assert.True(t, ent.IsCharDevice())
	assert.True(t, ent.IsChecksumValid())
}

func TestEntryNamePrefixJoin(t *testing.T) {
	b := new(testutil.Builder)
	b.Header(header.Raw{Name: "file.txt", Prefix: "some/prefix", TypeFlag: TypeReg})

	ent := singleEntry(t, b)
	assert.Equal(t, "some/prefix/file.txt", ent.Name())
}

func TestEntryNameNoPrefixJoinForGNUSparse(t *testing.T) {
	b := new(testutil.Builder)
	b.Header(header.Raw{Name: "sparse-file", Prefix: "ignored", TypeFlag: TypeGNUSparse})

	ent := singleEntry(t, b)
	assert.Equal(t, "sparse-file", ent.Name())
	assert.True(t, ent.IsSparse())
	assert.True(t, ent.IsRegular())
}

func TestEntryNamePrecedence(t *testing.T) {
	tests := []struct {
		name    string
		pax     map[string]string
		gnuLong map[string]string
		want    string
	}{
		{"raw only", nil, nil, "raw.txt"},
		{"pax path", map[string]string{"path": "pax.txt"}, nil, "pax.txt"},
		{"gnu long beats pax", map[string]string{"path": "pax.txt"},
			map[string]string{"name": "long.txt"}, "long.txt"},
		{"sparse name beats all", map[string]string{"path": "pax.txt", "GNU.sparse.name": "sparse.txt"},
			map[string]string{"name": "long.txt"}, "sparse.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ent := &Entry{
				raw:     header.Raw{Name: "raw.txt", TypeFlag: TypeReg},
				pax:     tt.pax,
				gnuLong: tt.gnuLong,
			}
			assert.Equal(t, tt.want, ent.Name())
		})
	}
}

func TestEntryNameMemoized(t *testing.T) {
	ent := &Entry{raw: header.Raw{Name: "once.txt", TypeFlag: TypeReg}}
	require.Equal(t, "once.txt", ent.Name())

	// Later input mutation must not affect the resolved name.
	ent.raw.Name = "changed.txt"
	assert.Equal(t, "once.txt", ent.Name())
}

func TestEntrySizePrecedence(t *testing.T) {
	tests := []struct {
		name string
		pax  map[string]string
		want int64
	}{
		{"raw", nil, 4},
		{"pax size", map[string]string{"size": "100"}, 100},
		{"sparse size beats pax", map[string]string{"size": "100", "GNU.sparse.size": "200"}, 200},
		{"realsize beats sparse size", map[string]string{
			"size": "100", "GNU.sparse.size": "200", "GNU.sparse.realsize": "300"}, 300},
		{"unparseable resolves to zero", map[string]string{"size": "not-a-number"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ent := &Entry{raw: header.Raw{Size: 4}, pax: tt.pax}
			assert.Equal(t, tt.want, ent.Size())
		})
	}
}

func TestEntryNumericOverrides(t *testing.T) {
	ent := &Entry{
		raw: header.Raw{UID: 1, GID: 2, Mtime: 3},
		pax: map[string]string{"uid": "100", "gid": "bogus", "mtime": "1629988096.956"},
	}
	assert.Equal(t, int64(100), ent.UID())
	assert.Equal(t, int64(0), ent.GID(), "unparseable override resolves to zero, not the raw value")
	assert.Equal(t, time.Unix(1629988096, 956000000), ent.ModTime())
}

func TestEntryModTimeUnparseable(t *testing.T) {
	ent := &Entry{raw: header.Raw{Mtime: 99}, pax: map[string]string{"mtime": "12.34.56"}}
	assert.Equal(t, time.Unix(0, 0), ent.ModTime())
}

func TestEntryLinknamePrecedence(t *testing.T) {
	ent := &Entry{raw: header.Raw{Linkname: "raw-target"}}
	assert.Equal(t, "raw-target", ent.Linkname())

	ent.pax = map[string]string{"linkpath": "pax-target"}
	assert.Equal(t, "pax-target", ent.Linkname())

	ent.gnuLong = map[string]string{"linkname": "long-target"}
	assert.Equal(t, "long-target", ent.Linkname())
}

func TestEntrySparseByRealsize(t *testing.T) {
	ent := &Entry{
		raw: header.Raw{TypeFlag: TypeReg},
		pax: map[string]string{"GNU.sparse.realsize": "4096"},
	}
	assert.True(t, ent.IsSparse())
	assert.Equal(t, "4096", ent.GNUSparse("realsize"))
	assert.Equal(t, int64(4096), ent.Size())
}

func TestEntryRead(t *testing.T) {
	ent := singleEntry(t, new(testutil.Builder).File("f.txt", "hello world"))

	buf := make([]byte, 5)
	n, err := ent.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	rest, err := io.ReadAll(ent)
	require.NoError(t, err)
	assert.Equal(t, " world", string(rest))

	n, err = ent.Read(buf)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestEntryReadClampsToRemaining(t *testing.T) {
	ent := singleEntry(t, new(testutil.Builder).File("f.txt", "abc"))

	// Destination longer than the remaining payload: exactly the remaining
	// bytes are written and reported.
	buf := make([]byte, 10)
	n, err := ent.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "abc", string(buf[:3]))
}

func TestEntryReadSelfHealing(t *testing.T) {
	b := new(testutil.Builder).
		File("a.txt", "first-payload").
		File("b.txt", "second-payload")
	entries := collect(t, b)
	require.Len(t, entries, 2)

	// The cursor has long since moved past a.txt; reading it reposition
	// the shared stream back into its bounds.
	a, err := entries[0].ReadBytes(-1)
	require.NoError(t, err)
	assert.Equal(t, "first-payload", string(a))

	// Interleave: reading b drags the stream away from a, and vice versa.
	bb, err := entries[1].ReadBytes(6)
	require.NoError(t, err)
	assert.Equal(t, "second", string(bb))

	a2, err := entries[0].ReadBytes(5)
	require.NoError(t, err)
	assert.Equal(t, "first", string(a2), "read restarts from entry start after drift")
}

func TestEntryReadBytesUnbounded(t *testing.T) {
	ent := singleEntry(t, new(testutil.Builder).File("f.txt", "payload"))

	all, err := ent.ReadBytes(-1)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(all))

	// At end of entry: empty result, no error.
	again, err := ent.ReadBytes(-1)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestEntryReadBytesHugeDeclaredSize(t *testing.T) {
	// The header declares far more payload than the stream holds. The read
	// returns the bytes actually present and an unexpected-EOF error; the
	// declared size never drives an up-front allocation.
	b := new(testutil.Builder).
		Header(header.Raw{Name: "big.bin", Mode: 0o644, Size: 1 << 40, TypeFlag: TypeReg}).
		Payload([]byte("tiny"))

	ent := singleEntry(t, b)
	assert.Equal(t, int64(1)<<40, ent.Size())

	_, err := ent.Seek(0, io.SeekStart)
	require.NoError(t, err)

	got, err := ent.ReadBytes(-1)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "tiny", string(got[:4]))
}

func TestEntrySeekAndTell(t *testing.T) {
	ent := singleEntry(t, new(testutil.Builder).File("f.txt", "0123456789"))

	pos, err := ent.Seek(4, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(4), pos)

	got, err := ent.ReadBytes(3)
	require.NoError(t, err)
	assert.Equal(t, "456", string(got))

	pos, err = ent.Tell()
	require.NoError(t, err)
	assert.Equal(t, int64(7), pos)

	pos, err = ent.Seek(-2, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(5), pos)

	pos, err = ent.Seek(-4, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(6), pos)

	// Seeking to the end then reading yields nothing.
	pos, err = ent.Seek(10, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(10), pos)
	rest, err := ent.ReadBytes(-1)
	require.NoError(t, err)
	assert.Empty(t, rest)

	// Seek(0, end) lands exactly on Size.
	pos, err = ent.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(10), pos)
	tell, err := ent.Tell()
	require.NoError(t, err)
	assert.Equal(t, ent.Size(), tell)
}

func TestEntrySeekOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		offset int64
		whence int
	}{
		{"start beyond size", 11, io.SeekStart},
		{"start negative", -1, io.SeekStart},
		{"current past end", 11, io.SeekCurrent},
		{"current before start", -1, io.SeekCurrent},
		{"end positive", 1, io.SeekEnd},
		{"end before start", -11, io.SeekEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ent := singleEntry(t, new(testutil.Builder).File("f.txt", "0123456789"))
			_, err := ent.Seek(0, io.SeekStart)
			require.NoError(t, err)

			_, err = ent.Seek(tt.offset, tt.whence)
			require.ErrorIs(t, err, ErrOutOfRange)

			// No state change: a full read still returns the payload.
			all, err := ent.ReadBytes(-1)
			require.NoError(t, err)
			assert.Equal(t, "0123456789", string(all))
		})
	}
}

func TestEntrySeekInvalidWhence(t *testing.T) {
	ent := singleEntry(t, new(testutil.Builder).File("f.txt", "x"))
	_, err := ent.Seek(0, 42)
	assert.Error(t, err)
}

func TestEntryTellAfterDrift(t *testing.T) {
	b := new(testutil.Builder).
		File("a.txt", "aaaa").
		File("b.txt", "bbbb")
	entries := collect(t, b)
	require.Len(t, entries, 2)

	// Position the stream inside b; a's Tell must report the drift rather
	// than heal it.
	_, err := entries[1].Seek(2, io.SeekStart)
	require.NoError(t, err)

	_, err = entries[0].Tell()
	assert.ErrorIs(t, err, ErrPositionLost)

	pos, err := entries[1].Tell()
	require.NoError(t, err)
	assert.Equal(t, int64(2), pos)
}

func TestEntryBoundsInvariant(t *testing.T) {
	// 0 <= Tell() <= Size() after construction and any successful
	// read or seek. Use a live cursor so the stream still sits inside the
	// entry at the first check.
	cur, err := NewCursor(new(testutil.Builder).File("f.txt", "0123456789").Source())
	require.NoError(t, err)
	ent, err := cur.Next()
	require.NoError(t, err)

	check := func() {
		pos, err := ent.Tell()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, pos, int64(0))
		assert.LessOrEqual(t, pos, ent.Size())
	}
	check()
	_, err = ent.ReadBytes(4)
	require.NoError(t, err)
	check()
	_, err = ent.Seek(-1, io.SeekEnd)
	require.NoError(t, err)
	check()
	_, err = ent.ReadBytes(-1)
	require.NoError(t, err)
	check()
}

func TestEntryCopyOut(t *testing.T) {
	content := strings.Repeat("block of payload data ", 100)
	ent := singleEntry(t, new(testutil.Builder).File("big.txt", content))

	var sb strings.Builder
	n, err := io.Copy(&sb, ent)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), n)
	assert.Equal(t, content, sb.String())
}

func TestEntriesConcurrentFullReads(t *testing.T) {
	// ReadBytes holds the shared lock across reposition and read, so
	// whole-payload reads on different entries are safe to run
	// concurrently even though they share one stream.
	b := new(testutil.Builder)
	want := make(map[string]string)
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("file-%02d.txt", i)
		content := strings.Repeat(fmt.Sprintf("%02d", i), 50)
		want[name] = content
		b.File(name, content)
	}
	entries := collect(t, b)
	require.Len(t, entries, 20)

	var g errgroup.Group
	for _, ent := range entries {
		g.Go(func() error {
			got, err := ent.ReadBytes(-1)
			if err != nil {
				return err
			}
			if string(got) != want[ent.Name()] {
				return fmt.Errorf("entry %s: payload mismatch", ent.Name())
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
