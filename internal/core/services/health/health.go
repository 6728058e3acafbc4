// Package health verifies an established session along its three dimensions
// (association, address, correct SSID) and repairs the one that broke.
// Recovery is rate limited so a persistently broken network cannot turn the
// client into a reconnect storm.
package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/lcalzada-xor/wifisim/internal/config"
	"github.com/lcalzada-xor/wifisim/internal/core/domain"
	"github.com/lcalzada-xor/wifisim/internal/core/ports"
	"github.com/lcalzada-xor/wifisim/internal/telemetry"
)

// Monitor checks and repairs one interface's session.
type Monitor struct {
	managed  ports.Managed
	driver   ports.Driver
	log      *slog.Logger
	iface    string
	hostname string

	failures     int
	lastRecovery time.Time

	now func() time.Time
}

// New creates a monitor. hostname is the claimed DHCP identity carried on
// every reconnect.
func New(managed ports.Managed, driver ports.Driver, logger *slog.Logger, iface, hostname string) *Monitor {
	return &Monitor{
		managed:  managed,
		driver:   driver,
		log:      logger,
		iface:    iface,
		hostname: hostname,
		now:      time.Now,
	}
}

// Check reads live link state and reports whether the session is healthy for
// the target SSID.
func (m *Monitor) Check(ctx context.Context, targetSSID string) (domain.LinkStatus, bool, error) {
	status, err := m.managed.Status(ctx, m.iface)
	if err != nil {
		return domain.LinkStatus{}, false, err
	}
	return status, status.Healthy(targetSSID), nil
}

// Recover repairs the broken dimension. It returns true when a repair was
// actually attempted; a false return means the rate limiter suppressed it.
func (m *Monitor) Recover(ctx context.Context, status domain.LinkStatus, creds domain.Credentials, settings config.Settings) (bool, error) {
	if !m.allowed(settings) {
		m.log.Debug("recovery suppressed by rate limit", "consecutive_failures", m.failures)
		return false, nil
	}
	m.lastRecovery = m.now()

	action, err := m.repair(ctx, status, creds)
	telemetry.RecoveryActions.WithLabelValues(m.iface, action).Inc()
	if err != nil {
		m.failures++
		m.log.Warn("recovery failed", "action", action, "consecutive_failures", m.failures, "error", err)
		return true, err
	}

	m.failures = 0
	m.log.Info("session recovered", "action", action)
	return true, nil
}

func (m *Monitor) repair(ctx context.Context, status domain.LinkStatus, creds domain.Credentials) (string, error) {
	switch {
	case status.Associated && status.SSID != creds.SSID:
		// Parked on the wrong network. Tear down first, then reconnect.
		if err := m.driver.Disconnect(ctx, m.iface); err != nil {
			return "reconnect_wrong_ssid", err
		}
		return "reconnect_wrong_ssid", m.reconnect(ctx, creds)

	case status.Associated && status.IPv4 == nil:
		// Link is up but the lease is gone. Cheapest repair first.
		if err := m.managed.RefreshLease(ctx, m.iface); err == nil {
			if fresh, ferr := m.managed.Status(ctx, m.iface); ferr == nil && fresh.Healthy(creds.SSID) {
				return "refresh_lease", nil
			}
		}
		return "reconnect_no_lease", m.reconnect(ctx, creds)

	default:
		return "reconnect", m.reconnect(ctx, creds)
	}
}

func (m *Monitor) reconnect(ctx context.Context, creds domain.Credentials) error {
	_, err := m.driver.Connect(ctx, ports.ConnectRequest{
		Interface: m.iface,
		SSID:      creds.SSID,
		Password:  creds.Passphrase,
		Hostname:  m.hostname,
	})
	return err
}

// allowed applies the recovery rate limit. After MaxRecoveryFailures
// consecutive failed repairs the gap doubles until one succeeds.
func (m *Monitor) allowed(settings config.Settings) bool {
	if m.lastRecovery.IsZero() {
		return true
	}
	gap := settings.RecoveryMinGap()
	if settings.MaxRecoveryFailures > 0 && m.failures >= settings.MaxRecoveryFailures {
		gap *= 2
	}
	return m.now().Sub(m.lastRecovery) >= gap
}
