package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/wifisim/internal/core/domain"
)

func TestStatsRoundTrip(t *testing.T) {
	store, err := NewStatsFileStore(t.TempDir())
	require.NoError(t, err)

	var stats domain.TrafficStats
	stats.AddDownload(1000)
	stats.AddUpload(200)
	require.NoError(t, store.Save("wlan0", stats))

	loaded, err := store.Load("wlan0")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), loaded.DownloadBytes)
	assert.Equal(t, int64(200), loaded.UploadBytes)
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestStatsFirstRunIsZero(t *testing.T) {
	store, err := NewStatsFileStore(t.TempDir())
	require.NoError(t, err)

	stats, err := store.Load("wlan1")
	require.NoError(t, err)
	assert.Zero(t, stats.DownloadBytes)
	assert.Zero(t, stats.UploadBytes)
}

func TestStatsSurviveRestartWithFailedDownload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStatsFileStore(dir)
	require.NoError(t, err)

	// Pre-crash state on disk
	require.NoError(t, store.Save("wlan0", domain.TrafficStats{DownloadBytes: 1000, UploadBytes: 200}))

	// "Restart": a new store loads, the download fails, the upload moves 50
	restarted, err := NewStatsFileStore(dir)
	require.NoError(t, err)
	stats, err := restarted.Load("wlan0")
	require.NoError(t, err)
	stats.AddUpload(50)
	require.NoError(t, restarted.Save("wlan0", stats))

	final, err := restarted.Load("wlan0")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), final.DownloadBytes)
	assert.Equal(t, int64(250), final.UploadBytes)
}

func TestStatsCorruptFileResetsInsteadOfWedging(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStatsFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wlan0.json"), []byte("{torn"), 0o644))

	stats, err := store.Load("wlan0")
	require.NoError(t, err)
	assert.Zero(t, stats.DownloadBytes)
}

func TestStatsSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStatsFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save("wlan0", domain.TrafficStats{DownloadBytes: 1}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "wlan0.json", entries[0].Name())
}
