package header

import "strconv"

// parseString extracts a NUL-terminated string from a fixed-width field.
// Fields without a NUL use the whole slot.
func parseString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// parseNumeric decodes a numeric field in either of the two encodings tar
// uses: NUL/space-terminated octal, or the GNU base-256 binary form flagged
// by the high bit of the first byte. Malformed input decodes to zero.
func parseNumeric(b []byte) int64 {
	if len(b) > 0 && b[0]&0x80 != 0 {
		return parseBase256(b)
	}
	return parseOctal(b)
}

func parseOctal(b []byte) int64 {
	// Trim leading and trailing padding. Both spaces and NULs occur in the
	// wild, sometimes mixed within the same field.
	start, end := 0, len(b)
	for start < end && (b[start] == ' ' || b[start] == 0) {
		start++
	}
	for end > start && (b[end-1] == ' ' || b[end-1] == 0) {
		end--
	}
	if start == end {
		return 0
	}
	v, err := strconv.ParseInt(string(b[start:end]), 8, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseBase256 decodes the GNU binary number format: a two's complement
// big-endian integer with the top bit of the first byte acting as the format
// flag. Negative numbers decode through the identity -a-1 == ^a. Values
// wider than 63 bits decode to zero.
func parseBase256(b []byte) int64 {
	var inv byte
	if b[0]&0x40 != 0 {
		inv = 0xff
	}
	var x uint64
	for i, c := range b {
		c ^= inv
		if i == 0 {
			c &= 0x7f // strip the format flag
		}
		if x>>56 > 0 {
			return 0 // overflow
		}
		x = x<<8 | uint64(c)
	}
	if x>>63 > 0 {
		return 0 // overflow
	}
	if inv == 0xff {
		return ^int64(x)
	}
	return int64(x)
}

// formatString writes a NUL-terminated string into a fixed-width field,
// truncating if the value does not fit.
func formatString(b []byte, s string) {
	n := copy(b, s)
	for i := n; i < len(b); i++ {
		b[i] = 0
	}
}

// formatOctal writes a zero-padded octal number terminated by a NUL,
// the canonical encoding produced by most tar writers.
func formatOctal(b []byte, v int64) {
	s := strconv.FormatInt(v, 8)
	i := len(b) - 1
	if i >= 0 && len(s) < len(b) {
		b[i] = 0
		i--
	}
	for j := len(s) - 1; j >= 0 && i >= 0; j-- {
		b[i] = s[j]
		i--
	}
	for ; i >= 0; i-- {
		b[i] = '0'
	}
}
