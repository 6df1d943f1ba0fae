package tariter

// Option configures a Cursor.
type Option func(*Cursor)

// WithStrictTrailer makes the cursor treat two consecutive all-zero blocks
// as the end of the archive, the terminator convention most tar writers
// emit.
//
// By default a zero block is merely skipped and scanning continues, which
// tolerates zero-fill between members and archives whose trailer was
// truncated to a single block; the archive then ends at the natural end of
// the stream. Strict mode stops at the conventional terminator instead,
// which matters for concatenated streams carrying data after the archive.
func WithStrictTrailer() Option {
	return func(c *Cursor) {
		c.strictTrailer = true
	}
}
