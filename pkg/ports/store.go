package ports

// IndexStore persists per-file playback metadata between sessions.
type IndexStore interface {
	// LoadIndex returns the cached timeline of a file. ok is false when no
	// entry exists or the file changed since the entry was written.
	LoadIndex(path string) (video, audio []float64, ok bool, err error)

	// SaveIndex stores the timeline of a file.
	SaveIndex(path string, video, audio []float64) error

	// Position returns the last saved playback position of a file.
	Position(path string) (pts float64, ok bool, err error)

	// SavePosition records the playback position of a file.
	SavePosition(path string, pts float64) error

	// Close releases the underlying database.
	Close() error
}
