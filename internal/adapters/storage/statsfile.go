package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lcalzada-xor/wifisim/internal/core/domain"
)

// StatsFileStore persists one JSON stats object per interface. The file is
// rewritten whole after every traffic cycle via a temp file and rename, so a
// crash can cost at most one cycle of counting and never a torn file.
type StatsFileStore struct {
	dir string
}

// NewStatsFileStore creates the store and its directory.
func NewStatsFileStore(dir string) (*StatsFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating stats directory: %w", err)
	}
	return &StatsFileStore{dir: dir}, nil
}

// Load reads the persisted counters for an interface. A missing file means a
// first run and yields zero counters, not an error.
func (s *StatsFileStore) Load(iface string) (domain.TrafficStats, error) {
	var stats domain.TrafficStats
	data, err := os.ReadFile(s.path(iface))
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("reading stats file: %w", err)
	}
	if err := json.Unmarshal(data, &stats); err != nil {
		// A corrupt file loses its history rather than wedging the engine.
		return domain.TrafficStats{}, nil
	}
	return stats, nil
}

// Save rewrites the interface's stats file atomically.
func (s *StatsFileStore) Save(iface string, stats domain.TrafficStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}

	tmp := s.path(iface) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing stats file: %w", err)
	}
	if err := os.Rename(tmp, s.path(iface)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing stats file: %w", err)
	}
	return nil
}

func (s *StatsFileStore) path(iface string) string {
	return filepath.Join(s.dir, iface+".json")
}
