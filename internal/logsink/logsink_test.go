package logsink

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerWritesTimestampedLines(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir, "wifi-good.log")
	require.NoError(t, err)
	defer sink.Close()

	logger := slog.New(NewHandler(sink, slog.LevelInfo))
	logger.Info("connection attempt succeeded", "method", "direct", "bssid", "aa:bb:cc:dd:ee:01")
	logger.Debug("should be filtered")

	data, err := os.ReadFile(filepath.Join(dir, "wifi-good.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], " - INFO - connection attempt succeeded")
	assert.Contains(t, lines[0], "method=direct")
	assert.Contains(t, lines[0], "bssid=aa:bb:cc:dd:ee:01")
	// "2006-01-02 15:04:05" prefix
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} - `, lines[0])
}

func TestHandlerWithAttrsCarriesContext(t *testing.T) {
	sink, err := NewFileSink(t.TempDir(), "wifi-bad.log")
	require.NoError(t, err)
	defer sink.Close()

	logger := slog.New(NewHandler(sink, slog.LevelInfo)).With("interface", "wlan1")
	logger.Warn("auth attempt rejected")

	tail := sink.Tail(1)
	require.Len(t, tail, 1)
	assert.Contains(t, tail[0], "interface=wlan1")
}

func TestTailIsBounded(t *testing.T) {
	sink, err := NewFileSink(t.TempDir(), "main.log")
	require.NoError(t, err)
	defer sink.Close()

	for i := 0; i < tailDepth+50; i++ {
		sink.Append("line")
	}
	assert.Len(t, sink.Tail(tailDepth+100), tailDepth)
}

func TestBroadcastHookReceivesLines(t *testing.T) {
	sink, err := NewFileSink(t.TempDir(), "main.log")
	require.NoError(t, err)
	defer sink.Close()

	var got []string
	sink.SetBroadcast(func(line string) { got = append(got, line) })
	sink.Append("hello")
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0])
}
