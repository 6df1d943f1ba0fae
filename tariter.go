package tariter

import (
	"errors"
	"io"
)

// Sentinel errors.
var (
	// ErrNilSource is returned when a Cursor is constructed without a source.
	ErrNilSource = errors.New("tariter: nil source")

	// ErrOutOfRange is returned when a seek would leave the entry's bounds.
	ErrOutOfRange = errors.New("tariter: seek out of entry bounds")

	// ErrPositionLost is returned by Tell when the shared stream position
	// has drifted outside the entry's bounds.
	ErrPositionLost = errors.New("tariter: position outside entry bounds")
)

// Source is the stream a tar archive is read from.
//
// The stream must be binary and forward-seekable; it is read strictly
// forward by the scan, while entries seek backward into already-scanned
// regions on demand. Both *os.File and bytes.Reader satisfy Source.
type Source interface {
	io.Reader
	io.Seeker
}
