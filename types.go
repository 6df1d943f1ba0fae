package tariter

// Type flags stored in the typeflag field of the fixed header. The values
// mirror the USTAR definition plus the PAX and GNU extensions this package
// understands.
const (
	TypeReg           byte = '0'    // regular file
	TypeRegA          byte = '\x00' // regular file, pre-POSIX archives
	TypeLink          byte = '1'    // hard link
	TypeSymlink       byte = '2'    // symbolic link
	TypeChar          byte = '3'    // character device node
	TypeBlock         byte = '4'    // block device node
	TypeDir           byte = '5'    // directory
	TypeFifo          byte = '6'    // FIFO node
	TypeCont          byte = '7'    // contiguous file, treated as regular
	TypeXHeader       byte = 'x'    // PAX extended header, next member only
	TypeXGlobalHeader byte = 'g'    // PAX extended header, all following members
	TypeSolarisXHdr   byte = 'X'    // Solaris variant of TypeXHeader
	TypeGNULongName   byte = 'L'    // GNU long member name
	TypeGNULongLink   byte = 'K'    // GNU long link target
	TypeGNUSparse     byte = 'S'    // GNU sparse regular file
)

// PAX record keys consulted during metadata resolution.
const (
	paxPath     = "path"
	paxLinkpath = "linkpath"
	paxSize     = "size"
	paxUID      = "uid"
	paxGID      = "gid"
	paxMtime    = "mtime"
	paxUname    = "uname"
	paxGname    = "gname"

	paxGNUSparsePrefix   = "GNU.sparse."
	paxGNUSparseName     = "GNU.sparse.name"
	paxGNUSparseSize     = "GNU.sparse.size"
	paxGNUSparseRealsize = "GNU.sparse.realsize"
)

// isGNUType reports whether the typeflag is one of the GNU-specific types,
// for which the USTAR prefix field is not joined onto the name.
func isGNUType(flag byte) bool {
	switch flag {
	case TypeGNULongName, TypeGNULongLink, TypeGNUSparse:
		return true
	}
	return false
}
