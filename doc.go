// Package tariter provides a streaming, single-pass reader for tar
// archives.
//
// Unlike archive/tar, which exposes one implicit current entry, tariter
// yields an [Entry] per archive member that remains usable after the scan
// has moved on: each entry is a bounded, seekable view of its payload over
// the shared underlying stream. Metadata is reconstructed from the three
// overlapping header mechanisms of the format — the fixed 512-byte header,
// POSIX PAX extended attributes, and GNU long name/link continuation
// headers — with a well-defined precedence order.
//
// The package never extracts to disk and never writes archives. Compression
// is the caller's concern: hand it a plain byte stream with any gzip/zstd/xz
// layer already peeled off.
//
// # Quick Start
//
// Iterate an archive and copy one member out:
//
//	f, err := os.Open("archive.tar")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//	for entry, err := range tariter.Entries(f) {
//	    if err != nil {
//	        return err
//	    }
//	    if entry.Name() == "sentinel.txt" {
//	        _, err = io.Copy(dst, entry)
//	        return err
//	    }
//	}
//
// Or drive the scan by hand with a [Cursor]:
//
//	cur, err := tariter.NewCursor(f)
//	if err != nil {
//	    return err
//	}
//	for {
//	    entry, err := cur.Next()
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(entry.Name(), entry.Size())
//	}
//
// Entries retained past their turn in the scan stay valid: reading from one
// repositions the shared stream back into that entry's bounds, so a caller
// may hold several entries and read them out of order. What the package does
// not arbitrate is overlapping reads on different entries from concurrent
// goroutines — the shared lock keeps the stream coherent, but interleaved
// reads will thrash the position and observe each other's progress.
//
// Duplicate member names are legal in tar; when an archive carries several,
// the last occurrence in scan order is the authoritative one.
package tariter
