// Package boltstore persists timeline indexes and resume positions in a
// bbolt database.
package boltstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/user/rewind/pkg/ports"
	"go.etcd.io/bbolt"
)

var (
	indexBucket    = []byte("indexes")
	positionBucket = []byte("positions")
)

// schemaVersion is bumped whenever the meaning of stored timestamps changes.
// Entries with another version are treated as missing.
const schemaVersion = 1

// ErrClosed is returned when the store is used after Close.
var ErrClosed = errors.New("boltstore: store closed")

// fingerprint identifies the version of a media file an entry was made from.
type fingerprint struct {
	Size    int64 `json:"size"`
	ModTime int64 `json:"mod_time"` // Unix nanoseconds
}

type indexEntry struct {
	Version int `json:"version"`
	fingerprint
	Video   []float64 `json:"video"`
	Audio   []float64 `json:"audio"`
	SavedAt time.Time `json:"saved_at"`
}

type positionEntry struct {
	fingerprint
	Position float64   `json:"position"`
	SavedAt  time.Time `json:"saved_at"`
}

// Store implements ports.IndexStore. Entries are keyed by absolute path and
// invalidated when the file's size or modification time changes.
type Store struct {
	db *bbolt.DB
	fs ports.FileSystem
}

// Open opens or creates the database at dbPath. fs is used to create the
// parent directory and to fingerprint media files.
func Open(dbPath string, fs ports.FileSystem) (*Store, error) {
	if err := fs.MkdirAll(filepath.Dir(dbPath)); err != nil {
		return nil, fmt.Errorf("could not create database directory: %w", err)
	}

	options := &bbolt.Options{Timeout: 1 * time.Second}
	db, err := bbolt.Open(dbPath, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("could not open bbolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{indexBucket, positionBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create buckets: %w", err)
	}

	return &Store{db: db, fs: fs}, nil
}

func (s *Store) key(path string) ([]byte, fingerprint, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fingerprint{}, err
	}
	info, err := s.fs.Stat(abs)
	if err != nil {
		return nil, fingerprint{}, fmt.Errorf("stat media file: %w", err)
	}
	return []byte(abs), fingerprint{Size: info.Size, ModTime: info.ModTime.UnixNano()}, nil
}

// LoadIndex returns the stored timeline of path if the file is unchanged.
func (s *Store) LoadIndex(path string) ([]float64, []float64, bool, error) {
	if s.db == nil {
		return nil, nil, false, ErrClosed
	}
	key, fp, err := s.key(path)
	if err != nil {
		return nil, nil, false, err
	}

	var entry indexEntry
	found := false
	err = s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(indexBucket).Get(key)
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &entry); err != nil {
			return fmt.Errorf("error deserializing index entry: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}

	if !found || entry.Version != schemaVersion || entry.fingerprint != fp {
		return nil, nil, false, nil
	}
	return entry.Video, entry.Audio, true, nil
}

// SaveIndex stores the timeline of path together with its fingerprint.
func (s *Store) SaveIndex(path string, video, audio []float64) error {
	if s.db == nil {
		return ErrClosed
	}
	key, fp, err := s.key(path)
	if err != nil {
		return err
	}

	value, err := json.Marshal(indexEntry{
		Version:     schemaVersion,
		fingerprint: fp,
		Video:       video,
		Audio:       audio,
		SavedAt:     time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("error serializing index entry: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(indexBucket).Put(key, value)
	})
}

// Position returns the last saved playback position of path.
func (s *Store) Position(path string) (float64, bool, error) {
	if s.db == nil {
		return 0, false, ErrClosed
	}
	key, fp, err := s.key(path)
	if err != nil {
		return 0, false, err
	}

	var entry positionEntry
	found := false
	err = s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(positionBucket).Get(key)
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &entry)
	})
	if err != nil {
		return 0, false, fmt.Errorf("error deserializing position entry: %w", err)
	}

	if !found || entry.fingerprint != fp {
		return 0, false, nil
	}
	return entry.Position, true, nil
}

// SavePosition records the playback position of path.
func (s *Store) SavePosition(path string, pts float64) error {
	if s.db == nil {
		return ErrClosed
	}
	key, fp, err := s.key(path)
	if err != nil {
		return err
	}

	value, err := json.Marshal(positionEntry{fingerprint: fp, Position: pts, SavedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("error serializing position entry: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(positionBucket).Put(key, value)
	})
}

// Close closes the database. It is safe to call more than once.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

var _ ports.IndexStore = (*Store)(nil)
