package domain

import (
	"time"
)

// TrafficStats holds cumulative transfer counters for one interface. The
// counters survive process restarts via the per-interface stats file and are
// monotonically non-decreasing for the lifetime of the deployment.
type TrafficStats struct {
	DownloadBytes int64     `json:"download"`
	UploadBytes   int64     `json:"upload"`
	UpdatedAt     time.Time `json:"timestamp"`
}

// AddDownload credits bytes from a completed download. Negative deltas are
// ignored so a failed transfer can never shrink the counters.
func (s *TrafficStats) AddDownload(n int64) {
	if n <= 0 {
		return
	}
	s.DownloadBytes += n
	s.UpdatedAt = time.Now()
}

// AddUpload credits bytes from a completed upload.
func (s *TrafficStats) AddUpload(n int64) {
	if n <= 0 {
		return
	}
	s.UploadBytes += n
	s.UpdatedAt = time.Now()
}

// Merge takes the maximum of each counter. Used when reconciling a freshly
// loaded stats file against in-memory totals after a restart.
func (s *TrafficStats) Merge(other TrafficStats) {
	if other.DownloadBytes > s.DownloadBytes {
		s.DownloadBytes = other.DownloadBytes
	}
	if other.UploadBytes > s.UploadBytes {
		s.UploadBytes = other.UploadBytes
	}
	if other.UpdatedAt.After(s.UpdatedAt) {
		s.UpdatedAt = other.UpdatedAt
	}
}
