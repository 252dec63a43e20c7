package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Buffer pool for snapshot-to-archive streaming. 32KB suits
// disk-to-network transfers on most systems.
var bufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 32*1024)
		return &b
	},
}

// EntryStatus is the outcome of processing one regular file.
type EntryStatus int

const (
	// EntryArchived means the file's bytes are in the archive.
	EntryArchived EntryStatus = iota
	// EntrySkipped means the file's snapshot failed; the walk moved on
	// and no entry was written for it.
	EntrySkipped
)

// EntryResult records what happened to one regular file during a walk.
type EntryResult struct {
	// Name is the slash-joined path the file has (or would have had)
	// inside the archive.
	Name string
	// Source is the file's path on disk.
	Source string
	Status EntryStatus
	// Err is the snapshot failure for EntrySkipped, nil otherwise.
	Err error
}

// Archiver walks a directory tree and streams every regular file into a
// ZipStream under its tree-relative path. Each file is snapshotted
// first, so a writer appending to it mid-walk cannot corrupt its entry.
// One Archiver serves one walk; it is not reused across requests.
type Archiver struct {
	Sink      *ZipStream
	Snapshots *Snapshotter
	// Logger receives per-file events. Nil means discard.
	Logger *slog.Logger

	results []EntryResult
}

// Archive walks root and returns the number of files archived. Snapshot
// failures skip the file and keep going; an unreadable directory or a
// sink write failure aborts the walk, since the stream already carries
// committed bytes and cannot be repaired.
func (a *Archiver) Archive(root string) (int, error) {
	if a.Logger == nil {
		a.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return a.archiveDir("", root)
}

// Results returns the per-file outcomes of the last Archive call, in
// walk order.
func (a *Archiver) Results() []EntryResult {
	return a.results
}

func (a *Archiver) archiveDir(prefix, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", dir, err)
	}
	count := 0
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		switch {
		case entry.IsDir():
			n, err := a.archiveDir(prefix+entry.Name()+"/", path)
			count += n
			if err != nil {
				return count, err
			}
		case entry.Type().IsRegular():
			ok, err := a.archiveFile(prefix+entry.Name(), path)
			if ok {
				count++
			}
			if err != nil {
				return count, err
			}
		default:
			// Symlinks, devices, sockets: not log files, skip.
		}
	}
	return count, nil
}

// archiveFile streams one regular file into the sink. It reports
// whether the file was archived; a non-nil error means the sink is
// unusable and the walk must stop.
func (a *Archiver) archiveFile(name, source string) (bool, error) {
	tmp, err := a.Snapshots.Snapshot(source)
	if err != nil {
		a.Logger.Warn("skipping logfile, snapshot failed",
			"file", source, "error", err)
		a.results = append(a.results, EntryResult{
			Name: name, Source: source, Status: EntrySkipped, Err: err,
		})
		return false, nil
	}
	defer a.removeSnapshot(tmp)

	// The entry is opened only now that the snapshot is known good, so
	// a copy failure never leaves a zero-byte entry behind.
	if err := a.Sink.Begin(name); err != nil {
		return false, fmt.Errorf("begin entry %s: %w", name, err)
	}
	streamErr := a.streamSnapshot(tmp)
	// Close the entry even when streaming failed, keeping the archive
	// structurally valid as far as it goes.
	if err := a.Sink.End(); err != nil && streamErr == nil {
		streamErr = err
	}
	if streamErr != nil {
		return false, fmt.Errorf("stream entry %s: %w", name, streamErr)
	}

	a.Logger.Info("archived logfile", "entry", name)
	a.results = append(a.results, EntryResult{
		Name: name, Source: source, Status: EntryArchived,
	})
	return true, nil
}

func (a *Archiver) streamSnapshot(tmp string) error {
	f, err := os.Open(tmp)
	if err != nil {
		return err
	}
	defer f.Close()
	bufPtr := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(bufPtr)
	_, err = io.CopyBuffer(a.Sink, f, *bufPtr)
	return err
}

// removeSnapshot deletes a temp copy. Failure to delete never outranks
// the outcome of the file it belonged to; it is only logged.
func (a *Archiver) removeSnapshot(tmp string) {
	if err := os.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		a.Logger.Warn("could not remove snapshot", "file", tmp, "error", err)
	}
}
