package header

import (
	"maps"
	"regexp"
	"strconv"

	"golang.org/x/text/encoding/ianaindex"
)

// PAX extended header payloads are a sequence of records of the form
//
//	"%d %s=%s\n" length key value
//
// where length counts the whole record including itself. The scanner is
// deliberately tolerant: bytes that do not form a record are skipped rather
// than failing the block, matching how permissive tar readers behave.
var (
	paxRecord     = regexp.MustCompile(`(\d+) ([^=]+)=([^\n]+)\n`)
	paxHdrCharset = regexp.MustCompile(`\d+ hdrcharset=([^\n]+)\n`)
)

// ParsePAXRecords decodes the records in a PAX extended header payload and
// layers them over base: keys present in the payload override, keys absent
// inherit. base is never mutated; a fresh map is returned.
//
// A leading hdrcharset record fixes the value encoding for the rest of the
// block. "BINARY" means the values are raw bytes in the archiver's local
// encoding and are passed through untouched; any other value names an IANA
// charset. The default is UTF-8. Records whose declared length is zero are
// skipped.
func ParsePAXRecords(payload []byte, base map[string]string) map[string]string {
	attrs := make(map[string]string, len(base)+4)
	maps.Copy(attrs, base)

	decode := valueDecoder(payload)
	for _, m := range paxRecord.FindAllSubmatch(payload, -1) {
		length, err := strconv.Atoi(string(m[1]))
		if err != nil || length == 0 {
			continue
		}
		attrs[string(m[2])] = decode(m[3])
	}
	return attrs
}

// valueDecoder resolves the hdrcharset record of a PAX block to a function
// decoding record values into Go strings.
func valueDecoder(payload []byte) func([]byte) string {
	raw := func(b []byte) string { return string(b) }

	m := paxHdrCharset.FindSubmatch(payload)
	if m == nil {
		return raw // UTF-8, which Go strings carry as-is
	}
	name := string(m[1])
	if name == "BINARY" {
		return raw
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		// Unknown charset: keep the raw bytes rather than dropping records.
		return raw
	}
	dec := enc.NewDecoder()
	return func(b []byte) string {
		s, err := dec.Bytes(b)
		if err != nil {
			return string(b)
		}
		return string(s)
	}
}
