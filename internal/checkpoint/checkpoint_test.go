package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()

	f, err := Load(dir, "progress.json")
	require.NoError(t, err)

	f.Progress.PostsFetched = true
	f.MarkAnalyzed("alice")
	f.MarkAnalyzed("bob")
	f.MarkInserted("alice")
	f.RecordError("carol", "classify", errors.New("model returned prose"))
	require.NoError(t, f.Save())

	// No temp file is left behind after a successful save.
	_, err = os.Stat(filepath.Join(dir, "progress.json.tmp"))
	assert.True(t, os.IsNotExist(err))

	reloaded, err := Load(dir, "progress.json")
	require.NoError(t, err)
	assert.True(t, reloaded.Progress.PostsFetched)
	assert.True(t, reloaded.Analyzed("alice"))
	assert.True(t, reloaded.Analyzed("bob"))
	assert.False(t, reloaded.Analyzed("carol"))
	assert.True(t, reloaded.Inserted("alice"))
	assert.False(t, reloaded.Inserted("bob"))
	require.Len(t, reloaded.Progress.Errors, 1)
	assert.Equal(t, "carol", reloaded.Progress.Errors[0].Username)
	assert.Equal(t, "classify", reloaded.Progress.Errors[0].Stage)
}

func TestMarksAreIdempotent(t *testing.T) {
	f, err := Load(t.TempDir(), "progress.json")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		f.MarkAnalyzed("alice")
		f.MarkInserted("alice")
	}
	assert.Len(t, f.Progress.AnalyzedUsernames, 1)
	assert.Len(t, f.Progress.InsertedUsernames, 1)
}

func TestLoadFreshWhenMissing(t *testing.T) {
	f, err := Load(t.TempDir(), "progress.json")
	require.NoError(t, err)
	assert.False(t, f.Progress.PostsFetched)
	assert.Empty(t, f.Progress.AnalyzedUsernames)
	assert.False(t, f.Progress.StartedAt.IsZero())
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	f, err := Load(dir, "progress.json")
	require.NoError(t, err)
	require.NoError(t, f.Save())

	require.NoError(t, f.Remove())
	_, err = os.Stat(filepath.Join(dir, "progress.json"))
	assert.True(t, os.IsNotExist(err))

	// Removing twice is not an error.
	assert.NoError(t, f.Remove())
}

func TestSnapshotRoundtrip(t *testing.T) {
	dir := t.TempDir()
	in := map[string]string{"artist_one": "competitor_a"}
	require.NoError(t, WriteSnapshot(dir, "source-map.json", in))

	var out map[string]string
	require.NoError(t, ReadSnapshot(dir, "source-map.json", &out))
	assert.Equal(t, in, out)
}

func TestReadSnapshotMissing(t *testing.T) {
	var out map[string]string
	err := ReadSnapshot(t.TempDir(), "missing.json", &out)
	assert.True(t, os.IsNotExist(err), fmt.Sprintf("got %v", err))
}
