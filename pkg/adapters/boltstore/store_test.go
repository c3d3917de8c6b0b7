package boltstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/user/rewind/pkg/mocks"
)

const clip = "/media/clip.mp4"

func openStore(t *testing.T) (*Store, *mocks.FileSystem, string) {
	t.Helper()
	fs := mocks.NewFileSystem()
	fs.SetFile(clip, []byte("0123456789"))
	fs.SetModTime(clip, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	dbPath := filepath.Join(t.TempDir(), "index.db")
	store, err := Open(dbPath, fs)
	require.NoError(t, err, "Failed to open bolt store")
	t.Cleanup(func() { store.Close() })
	return store, fs, dbPath
}

func TestStore_IndexRoundTrip(t *testing.T) {
	store, _, _ := openStore(t)

	_, _, ok, err := store.LoadIndex(clip)
	require.NoError(t, err)
	require.False(t, ok, "empty store should miss")

	video := []float64{0, 0.04, 0.08}
	audio := []float64{0, 0.0213, 0.0427}
	require.NoError(t, store.SaveIndex(clip, video, audio))

	gotVideo, gotAudio, ok, err := store.LoadIndex(clip)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, video, gotVideo)
	require.Equal(t, audio, gotAudio)
}

func TestStore_ChangedFileInvalidatesEntries(t *testing.T) {
	store, fs, _ := openStore(t)

	require.NoError(t, store.SaveIndex(clip, []float64{0}, []float64{0}))
	require.NoError(t, store.SavePosition(clip, 12.5))

	fs.SetModTime(clip, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	_, _, ok, err := store.LoadIndex(clip)
	require.NoError(t, err)
	require.False(t, ok, "index of a modified file must not be used")

	_, ok, err = store.Position(clip)
	require.NoError(t, err)
	require.False(t, ok, "position of a modified file must not be used")

	fs.SetFile(clip, []byte("longer contents"))
	_, _, ok, _ = store.LoadIndex(clip)
	require.False(t, ok)
}

func TestStore_Positions(t *testing.T) {
	store, _, _ := openStore(t)

	_, ok, err := store.Position(clip)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.SavePosition(clip, 3.5))
	require.NoError(t, store.SavePosition(clip, 7.25))

	pts, ok, err := store.Position(clip)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 7.25, pts)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	store, fs, dbPath := openStore(t)
	require.NoError(t, store.SaveIndex(clip, []float64{0, 1}, []float64{0.5}))
	require.NoError(t, store.SavePosition(clip, 1))
	require.NoError(t, store.Close())

	reopened, err := Open(dbPath, fs)
	require.NoError(t, err)
	defer reopened.Close()

	video, _, ok, err := reopened.LoadIndex(clip)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float64{0, 1}, video)

	pts, ok, err := reopened.Position(clip)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1.0, pts)
}

func TestStore_MissingMediaFile(t *testing.T) {
	store, _, _ := openStore(t)

	_, _, _, err := store.LoadIndex("/media/missing.mp4")
	require.Error(t, err)
	require.Error(t, store.SaveIndex("/media/missing.mp4", nil, nil))
}

func TestStore_Close(t *testing.T) {
	store, _, _ := openStore(t)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "double close should be safe")

	_, _, _, err := store.LoadIndex(clip)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, store.SavePosition(clip, 1), ErrClosed)
}
