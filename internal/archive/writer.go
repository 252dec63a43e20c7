package archive

import (
	"archive/zip"
	"errors"
	"io"
	"time"

	"github.com/klauspost/compress/flate"
)

var (
	// ErrEntryOpen is returned by Begin when the previous entry was
	// never closed.
	ErrEntryOpen = errors.New("archive: entry already open")
	// ErrNoEntry is returned by Write and End when no entry is open.
	ErrNoEntry = errors.New("archive: no entry open")
)

// ZipStream writes a zip archive to a single outbound sink, one entry at
// a time. Entries must be begun and ended in strict sequence; the single
// walker goroutine guarantees that, ZipStream just refuses misuse.
// Entry sizes are not declared up front — the encoder derives them from
// the bytes written, so callers can stream without knowing lengths.
type ZipStream struct {
	zw  *zip.Writer
	cur io.Writer
}

// NewZipStream wraps w as a zip encoder. Deflate is provided by the
// klauspost flate implementation at default compression; the wire format
// is unchanged.
func NewZipStream(w io.Writer) *ZipStream {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})
	return &ZipStream{zw: zw}
}

// Begin starts a new entry under name. Names use forward slashes;
// directory structure is implied by them, no separate directory entries
// are written.
func (z *ZipStream) Begin(name string) error {
	if z.cur != nil {
		return ErrEntryOpen
	}
	w, err := z.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return err
	}
	z.cur = w
	return nil
}

// Write appends bytes to the open entry.
func (z *ZipStream) Write(p []byte) (int, error) {
	if z.cur == nil {
		return 0, ErrNoEntry
	}
	return z.cur.Write(p)
}

// End closes the open entry, allowing the next Begin.
func (z *ZipStream) End() error {
	if z.cur == nil {
		return ErrNoEntry
	}
	z.cur = nil
	return nil
}

// Finish writes the central directory and flushes the archive. Call it
// exactly once, after the last entry is ended.
func (z *ZipStream) Finish() error {
	return z.zw.Close()
}
