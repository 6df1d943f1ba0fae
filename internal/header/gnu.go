package header

import "maps"

// GNU typeflags for the long name/link continuation headers.
const (
	TypeGNULongName byte = 'L'
	TypeGNULongLink byte = 'K'
)

// GNU long-field keys produced by ParseGNULong.
const (
	GNULongNameKey = "name"
	GNULongLinkKey = "linkname"
)

// ParseGNULong decodes a GNU long-name or long-link payload and layers the
// resulting field over base. The payload is the NUL-terminated value; the
// typeflag selects which field it carries. base is never mutated. An
// unrelated typeflag returns a copy of base unchanged.
func ParseGNULong(typeflag byte, payload []byte, base map[string]string) map[string]string {
	fields := make(map[string]string, len(base)+1)
	maps.Copy(fields, base)

	switch typeflag {
	case TypeGNULongName:
		fields[GNULongNameKey] = parseString(payload)
	case TypeGNULongLink:
		fields[GNULongLinkKey] = parseString(payload)
	}
	return fields
}
