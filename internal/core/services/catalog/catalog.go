// Package catalog maintains the rate-limited view of access points visible
// to one interface. Scans are expensive and disruptive to the radio, so
// callers inside the scan interval are served the cached snapshot; snapshots
// are replaced wholesale, never merged.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lcalzada-xor/wifisim/internal/core/domain"
	"github.com/lcalzada-xor/wifisim/internal/core/ports"
	"github.com/lcalzada-xor/wifisim/internal/telemetry"
)

const scanRetries = 3

// Service implements ports.Catalog over the managed layer's scan facility.
type Service struct {
	managed  ports.Managed
	log      *slog.Logger
	iface    string
	interval time.Duration

	mu        sync.Mutex
	snapshot  domain.ScanSnapshot
	minSignal int

	now func() time.Time
}

// New creates a catalog for one interface with the given scan interval.
func New(managed ports.Managed, logger *slog.Logger, iface string, interval time.Duration) *Service {
	return &Service{
		managed:   managed,
		log:       logger,
		iface:     iface,
		interval:  interval,
		minSignal: -100,
		now:       time.Now,
	}
}

// SetMinSignal updates the weakest signal the catalog will admit, in dBm.
func (s *Service) SetMinSignal(dbm int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minSignal = dbm
}

// Scan returns the current snapshot for the SSID and band. A fresh cached
// snapshot for the same SSID is returned without touching the radio. The
// underlying scan is retried a bounded number of times before giving up with
// domain.ErrScanUnavailable.
func (s *Service) Scan(ctx context.Context, ssid string, band domain.WiFiBand) (domain.ScanSnapshot, error) {
	s.mu.Lock()
	cached := s.snapshot
	minSignal := s.minSignal
	s.mu.Unlock()

	if cached.SSID == ssid && s.now().Sub(cached.Taken) < s.interval {
		telemetry.ScansTotal.WithLabelValues(s.iface, "cached").Inc()
		return cached, nil
	}

	var lastErr error
	for attempt := 1; attempt <= scanRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.ScanSnapshot{}, err
		}

		aps, err := s.scanOnce(ctx)
		if err != nil {
			lastErr = err
			s.log.Warn("scan attempt failed", "attempt", attempt, "error", err)
			continue
		}

		snapshot := domain.ScanSnapshot{
			SSID:  ssid,
			Taken: s.now(),
			APs:   filter(aps, ssid, band, minSignal),
		}

		s.mu.Lock()
		s.snapshot = snapshot
		s.mu.Unlock()

		if snapshot.Empty() {
			telemetry.ScansTotal.WithLabelValues(s.iface, "empty").Inc()
			s.log.Info("scan saw no matching access points", "ssid", ssid, "band", string(band))
		} else {
			telemetry.ScansTotal.WithLabelValues(s.iface, "ok").Inc()
			s.log.Info("scan completed", "ssid", ssid, "visible", len(snapshot.APs))
		}
		return snapshot, nil
	}

	telemetry.ScansTotal.WithLabelValues(s.iface, "error").Inc()
	return domain.ScanSnapshot{}, fmt.Errorf("%w: %v", domain.ErrScanUnavailable, lastErr)
}

func (s *Service) scanOnce(ctx context.Context) ([]domain.DiscoveredAccessPoint, error) {
	// A rescan refusal is tolerable; the results call may still return a
	// recent enough list.
	if err := s.managed.Rescan(ctx, s.iface); err != nil {
		s.log.Debug("rescan request refused", "error", err)
	}
	return s.managed.ScanResults(ctx, s.iface)
}

func filter(aps []domain.DiscoveredAccessPoint, ssid string, band domain.WiFiBand, minSignal int) []domain.DiscoveredAccessPoint {
	out := make([]domain.DiscoveredAccessPoint, 0, len(aps))
	for _, ap := range aps {
		if ap.SSID != ssid {
			continue
		}
		if !ap.MatchesBand(band) {
			continue
		}
		if ap.SignalDBM < minSignal {
			continue
		}
		out = append(out, ap)
	}
	return out
}
