package ports

import "time"

// FileInfo is the subset of file metadata the engine relies on.
type FileInfo struct {
	Size    int64
	ModTime time.Time
}

// FileSystem abstracts file system operations.
type FileSystem interface {
	// ReadFile reads the entire contents of a file.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to a file, creating parent directories if necessary.
	WriteFile(path string, data []byte) error

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string) error

	// Exists checks if a file or directory exists.
	Exists(path string) (bool, error)

	// Stat returns the size and modification time of a file. The index
	// store uses them to notice that a media file changed.
	Stat(path string) (FileInfo, error)
}
