package archive

import (
	"fmt"
	"io"
	"os"
)

// copyBufSize is the buffer used for source-to-snapshot copies.
const copyBufSize = 4096

// Snapshotter copies live files into private temporary files before they
// are streamed. Log files are appended to and rotated while the server
// runs; streaming straight from one risks the file growing or shrinking
// mid-entry. A snapshot taken up front removes that race.
type Snapshotter struct {
	// Dir is where snapshots are created. Empty means os.TempDir().
	Dir string
}

// Snapshot copies source into a fresh temporary file and returns its path.
// The caller owns the returned file and must remove it when done. On any
// failure the partial temporary file is removed and an empty path is
// returned.
func (s *Snapshotter) Snapshot(source string) (string, error) {
	in, err := os.Open(source)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", source, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(s.Dir, "logzip-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}

	buf := make([]byte, copyBufSize)
	_, err = io.CopyBuffer(tmp, in, buf)
	cerr := tmp.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("snapshot %s: %w", source, err)
	}
	return tmp.Name(), nil
}
