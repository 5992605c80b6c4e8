package storage

import (
	"errors"
	"io/fs"
	"os"
)

// walSuffixes are the sidecar files SQLite keeps next to a database in WAL mode.
var walSuffixes = []string{"", "-wal", "-shm"}

// DatabaseSizeBytes reports the on-disk footprint of the chunk store at path, counting the
// WAL and shared-memory sidecars. An in-memory or not yet created database is 0 bytes.
func DatabaseSizeBytes(path string) (int64, error) {
	if path == "" || path == MemoryPath {
		return 0, nil
	}
	var total int64
	for _, suffix := range walSuffixes {
		info, err := os.Stat(path + suffix)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			continue
		case err != nil:
			return 0, err
		case info.IsDir():
			return 0, &fs.PathError{Op: "stat", Path: path + suffix, Err: errors.New("is a directory")}
		}
		total += info.Size()
	}
	return total, nil
}
