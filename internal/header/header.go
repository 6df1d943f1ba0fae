// Package header decodes the fixed 512-byte tar header block and the
// ancillary record formats (PAX extended attributes, GNU long name/link
// payloads) that extend it.
//
// The package is stateless: every function is a pure transformation of its
// input bytes. Precedence between the fixed header and the extension
// mechanisms is the caller's concern.
package header

// BlockSize is the allocation unit of the tar format. Headers occupy exactly
// one block and member payloads are padded up to a block boundary.
const BlockSize = 512

// Block is a single 512-byte region of a tar stream.
type Block [BlockSize]byte

// Fixed field offsets within a header block, per the USTAR layout.
// The prefix field is the USTAR extension to the original V7 header.
const (
	offName     = 0
	offMode     = 100
	offUID      = 108
	offGID      = 116
	offSize     = 124
	offMtime    = 136
	offChecksum = 148
	offTypeFlag = 156
	offLinkname = 157
	offUname    = 265
	offGname    = 297
	offDevmajor = 329
	offDevminor = 337
	offPrefix   = 345

	lenName     = 100
	lenNumeric  = 8
	lenSize     = 12
	lenMtime    = 12
	lenChecksum = 8
	lenLinkname = 100
	lenOwner    = 32
	lenPrefix   = 155
)

// Raw holds the decoded fields of a fixed header block.
//
// Size and the other numeric fields are the values stored in the block
// itself; any PAX or GNU overrides are layered on elsewhere.
type Raw struct {
	Name     string
	Mode     int64
	UID      int64
	GID      int64
	Size     int64
	Mtime    int64
	Checksum int64
	TypeFlag byte
	Linkname string
	Uname    string
	Gname    string
	Devmajor int64
	Devminor int64
	Prefix   string
}

// Decode extracts the fixed-offset fields from a header block.
//
// Malformed numeric fields decode to zero rather than failing; a header with
// garbage in it is detected through checksum validation, not through decode
// errors.
func Decode(blk *Block) Raw {
	raw := Raw{
		Name:     parseString(blk[offName : offName+lenName]),
		Mode:     parseNumeric(blk[offMode : offMode+lenNumeric]),
		UID:      parseNumeric(blk[offUID : offUID+lenNumeric]),
		GID:      parseNumeric(blk[offGID : offGID+lenNumeric]),
		Size:     parseNumeric(blk[offSize : offSize+lenSize]),
		Mtime:    parseNumeric(blk[offMtime : offMtime+lenMtime]),
		Checksum: parseNumeric(blk[offChecksum : offChecksum+lenChecksum]),
		TypeFlag: blk[offTypeFlag],
		Linkname: parseString(blk[offLinkname : offLinkname+lenLinkname]),
		Uname:    parseString(blk[offUname : offUname+lenOwner]),
		Gname:    parseString(blk[offGname : offGname+lenOwner]),
		Devmajor: parseNumeric(blk[offDevmajor : offDevmajor+lenNumeric]),
		Devminor: parseNumeric(blk[offDevminor : offDevminor+lenNumeric]),
		Prefix:   parseString(blk[offPrefix : offPrefix+lenPrefix]),
	}
	// A base-256 size field can encode a negative value; no member has one,
	// so it is treated like any other malformed numeric field.
	if raw.Size < 0 {
		raw.Size = 0
	}
	return raw
}

// Checksum computes both interpretations of the header checksum: the byte
// sum with every byte treated as unsigned, and with every byte treated as
// signed. The checksum field itself is counted as eight ASCII spaces in both
// sums, per the format definition.
func (b *Block) Checksum() (unsigned int64, signed int64) {
	for i, c := range b {
		if offChecksum <= i && i < offChecksum+lenChecksum {
			c = ' '
		}
		unsigned += int64(c)
		signed += int64(int8(c))
	}
	return unsigned, signed
}

// ChecksumOK reports whether the checksum stored in the block matches either
// the unsigned or the signed byte sum. Historic tar implementations disagree
// on signedness, so a match on either is accepted.
func ChecksumOK(blk *Block) bool {
	stored := parseNumeric(blk[offChecksum : offChecksum+lenChecksum])
	unsigned, signed := blk.Checksum()
	return stored == unsigned || stored == signed
}

// Zero reports whether the block consists entirely of NUL bytes. Archives
// conventionally end with zero-fill blocks, and zero blocks may also appear
// between members.
func (b *Block) Zero() bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// SetChecksum recomputes the unsigned checksum and stores it in the block's
// checksum field in the conventional "%06o\x00 " encoding.
func (b *Block) SetChecksum() {
	unsigned, _ := b.Checksum()
	formatOctal(b[offChecksum:offChecksum+lenChecksum-1], unsigned)
	b[offChecksum+lenChecksum-1] = ' '
}

// Encode writes the decoded subset of fields back into a header block using
// the canonical encodings (zero-padded octal, NUL-terminated strings) and
// recomputes the checksum. Decode followed by Encode reproduces a
// canonically-encoded header byte for byte.
func Encode(raw Raw, blk *Block) {
	formatString(blk[offName:offName+lenName], raw.Name)
	formatOctal(blk[offMode:offMode+lenNumeric], raw.Mode)
	formatOctal(blk[offUID:offUID+lenNumeric], raw.UID)
	formatOctal(blk[offGID:offGID+lenNumeric], raw.GID)
	formatOctal(blk[offSize:offSize+lenSize], raw.Size)
	formatOctal(blk[offMtime:offMtime+lenMtime], raw.Mtime)
	blk[offTypeFlag] = raw.TypeFlag
	formatString(blk[offLinkname:offLinkname+lenLinkname], raw.Linkname)
	formatString(blk[offUname:offUname+lenOwner], raw.Uname)
	formatString(blk[offGname:offGname+lenOwner], raw.Gname)
	formatOctal(blk[offDevmajor:offDevmajor+lenNumeric], raw.Devmajor)
	formatOctal(blk[offDevminor:offDevminor+lenNumeric], raw.Devminor)
	formatString(blk[offPrefix:offPrefix+lenPrefix], raw.Prefix)
	blk.SetChecksum()
}
