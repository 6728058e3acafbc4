// Package roaming moves an established session between access points of the
// same SSID on a timer. Roams are deliberate, not signal-driven: the point is
// to exercise BSSID transitions, so the target is simply the strongest
// candidate that is not the current AP.
package roaming

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lcalzada-xor/wifisim/internal/config"
	"github.com/lcalzada-xor/wifisim/internal/core/domain"
	"github.com/lcalzada-xor/wifisim/internal/core/ports"
	"github.com/lcalzada-xor/wifisim/internal/telemetry"
)

// Roamer drives periodic BSSID migrations for one interface.
type Roamer struct {
	driver   ports.Driver
	catalog  ports.Catalog
	audit    ports.AuditRepository
	log      *slog.Logger
	iface    string
	hostname string

	now func() time.Time
}

// New creates a roamer. hostname is the claimed DHCP identity carried on the
// migration connect.
func New(driver ports.Driver, catalog ports.Catalog, audit ports.AuditRepository, logger *slog.Logger, iface, hostname string) *Roamer {
	return &Roamer{
		driver:   driver,
		catalog:  catalog,
		audit:    audit,
		log:      logger,
		iface:    iface,
		hostname: hostname,
		now:      time.Now,
	}
}

// Due reports whether a roam should be attempted for the session.
func (r *Roamer) Due(session domain.Session, settings config.Settings) bool {
	if !settings.RoamingEnabled {
		return false
	}
	if session.State != domain.StateConnected {
		return false
	}
	anchor := session.LastRoam
	if anchor.IsZero() {
		anchor = session.EstablishedAt
	}
	return r.now().Sub(anchor) >= settings.RoamingInterval()
}

// Roam scans for an alternative AP and migrates the session onto it. The
// current BSSID is never a candidate. A roam with no alternative visible is a
// quiet no-op, not a failure.
func (r *Roamer) Roam(ctx context.Context, session domain.Session, creds domain.Credentials, settings config.Settings) (domain.Session, error) {
	snapshot, err := r.catalog.Scan(ctx, creds.SSID, settings.Band)
	if err != nil {
		telemetry.RoamsTotal.WithLabelValues(r.iface, "scan_failed").Inc()
		return session, fmt.Errorf("roam scan: %w", err)
	}

	// A roam needs at least two visible BSSIDs; with fewer there is no real
	// transition to exercise, even when the lone AP differs from the
	// current one.
	if len(snapshot.APs) < 2 {
		telemetry.RoamsTotal.WithLabelValues(r.iface, "no_candidate").Inc()
		r.log.Info("fewer than two access points visible, staying put",
			"bssid", session.BSSID, "visible", len(snapshot.APs))
		return session, nil
	}

	target, ok := pickTarget(snapshot, session.BSSID)
	if !ok {
		telemetry.RoamsTotal.WithLabelValues(r.iface, "no_candidate").Inc()
		r.log.Info("no alternative access point visible, staying put", "bssid", session.BSSID)
		return session, nil
	}

	r.log.Info("roaming to new access point",
		"from", session.BSSID, "to", target.BSSID, "signal_dbm", target.SignalDBM)

	res, err := r.driver.Connect(ctx, ports.ConnectRequest{
		Interface: r.iface,
		SSID:      creds.SSID,
		Password:  creds.Passphrase,
		BSSID:     target.BSSID,
		Hostname:  r.hostname,
	})
	if err != nil {
		telemetry.RoamsTotal.WithLabelValues(r.iface, "failed").Inc()
		r.log.Warn("roam failed, session needs recovery", "to", target.BSSID, "error", err)
		return session, fmt.Errorf("roam connect: %w", err)
	}

	now := r.now()
	event := domain.RoamEvent{
		Interface:       r.iface,
		FromBSSID:       domain.NormalizeBSSID(session.BSSID),
		ToBSSID:         domain.NormalizeBSSID(res.Status.BSSID),
		ResultingSignal: target.SignalDBM,
		Timestamp:       now,
	}
	if err := r.audit.SaveRoamEvent(event); err != nil {
		r.log.Warn("recording roam event failed", "error", err)
	}
	telemetry.RoamsTotal.WithLabelValues(r.iface, "success").Inc()

	session.State = domain.StateConnected
	session.BSSID = res.Status.BSSID
	session.IPv4 = res.Status.IPv4.String()
	session.LastRoam = now
	return session, nil
}

// pickTarget returns the strongest candidate that is not the current AP.
func pickTarget(snapshot domain.ScanSnapshot, currentBSSID string) (domain.DiscoveredAccessPoint, bool) {
	current := domain.NormalizeBSSID(currentBSSID)
	for _, ap := range snapshot.Candidates() {
		if domain.NormalizeBSSID(ap.BSSID) != current {
			return ap, true
		}
	}
	return domain.DiscoveredAccessPoint{}, false
}
