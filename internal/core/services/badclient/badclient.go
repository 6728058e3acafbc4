// Package badclient drives the deliberately failing authenticator. Every
// cycle it picks an attack pattern, runs a short burst of wrong-credential
// attempts against the real SSID and verifies each one was rejected. A wrong
// password that authenticates is an infrastructure anomaly and gets reversed
// immediately.
package badclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/lcalzada-xor/wifisim/internal/config"
	"github.com/lcalzada-xor/wifisim/internal/core/domain"
	"github.com/lcalzada-xor/wifisim/internal/core/ports"
	"github.com/lcalzada-xor/wifisim/internal/telemetry"
)

var patternOrder = []domain.AttackPattern{
	domain.PatternRapidFire,
	domain.PatternDictionary,
	domain.PatternSSIDDerived,
	domain.PatternConnectCycle,
}

// rapidFireDelay is the short fixed pause between rapid-fire attempts; the
// other patterns pace themselves with the configured jitter instead.
const rapidFireDelay = 250 * time.Millisecond

// Cycler runs one bad-client attack cycle at a time for one interface.
type Cycler struct {
	driver  ports.Driver
	catalog ports.Catalog
	audit   ports.AuditRepository
	log     *slog.Logger
	iface   string
	cycles  int

	sleep func(ctx context.Context, d time.Duration)
	randn func(n int) int
}

// New creates a cycler.
func New(driver ports.Driver, catalog ports.Catalog, audit ports.AuditRepository, logger *slog.Logger, iface string) *Cycler {
	return &Cycler{
		driver:  driver,
		catalog: catalog,
		audit:   audit,
		log:     logger,
		iface:   iface,
		sleep:   sleepCtx,
		randn:   rand.Intn,
	}
}

// RunCycle rescans for the target and, when it is visible, executes the next
// attack pattern in rotation. An invisible target skips the cycle without
// advancing the rotation; rejections are the desired outcome and anomalies
// are handled in place.
func (c *Cycler) RunCycle(ctx context.Context, creds domain.Credentials, settings config.Settings) error {
	snapshot, err := c.catalog.Scan(ctx, creds.SSID, settings.Band)
	if err != nil {
		return fmt.Errorf("pre-cycle scan: %w", err)
	}
	if snapshot.Empty() {
		c.log.Info("target network not visible, skipping attack cycle", "ssid", creds.SSID)
		return nil
	}

	pattern := patternOrder[c.cycles%len(patternOrder)]
	c.cycles++
	cycleID := uuid.NewString()

	passwords := c.passwordsFor(pattern, creds, settings)
	c.log.Info("starting attack cycle",
		"cycle_id", cycleID, "pattern", string(pattern), "attempts", len(passwords))

	for i, password := range passwords {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			if pattern == domain.PatternRapidFire {
				c.sleep(ctx, rapidFireDelay)
			} else {
				c.jitter(ctx, settings)
			}
		}

		outcome := c.attempt(ctx, creds.SSID, password)
		c.record(cycleID, pattern, password, outcome)

		if outcome == domain.UnexpectedSuccess && settings.AbortCycleOnAnomaly {
			c.log.Warn("aborting attack cycle after anomaly", "cycle_id", cycleID)
			break
		}
	}

	c.log.Info("attack cycle finished", "cycle_id", cycleID, "pattern", string(pattern))
	return ctx.Err()
}

// attempt makes one wrong-credential connect and classifies what happened.
// The interface is always left disconnected afterwards.
func (c *Cycler) attempt(ctx context.Context, ssid, password string) domain.AuthOutcome {
	_, err := c.driver.Connect(ctx, ports.ConnectRequest{
		Interface:  c.iface,
		SSID:       ssid,
		Password:   password,
		DirectOnly: true,
	})

	var outcome domain.AuthOutcome
	switch {
	case err == nil:
		// A wrong password authenticated. Log loudly, then reverse it so
		// the interface never lingers on a session it should not have.
		outcome = domain.UnexpectedSuccess
		c.log.Error("wrong credential was accepted by the infrastructure",
			"ssid", ssid, "password_length", domain.Redact(password))
	case errors.Is(err, domain.ErrRejected):
		outcome = domain.RejectedAsExpected
		c.log.Info("authentication rejected as expected", "password_length", domain.Redact(password))
	default:
		outcome = domain.Inconclusive
		c.log.Warn("attempt was inconclusive", "error", err)
	}

	if derr := c.driver.Disconnect(context.WithoutCancel(ctx), c.iface); derr != nil {
		c.log.Warn("post-attempt disconnect failed", "error", derr)
	}
	return outcome
}

func (c *Cycler) record(cycleID string, pattern domain.AttackPattern, password string, outcome domain.AuthOutcome) {
	telemetry.AuthFailures.WithLabelValues(c.iface, string(pattern), string(outcome)).Inc()
	err := c.audit.SaveAuthAttempt(domain.AuthAttempt{
		Interface:      c.iface,
		CycleID:        cycleID,
		Pattern:        pattern,
		PasswordLength: domain.Redact(password),
		Outcome:        outcome,
		Timestamp:      time.Now(),
	})
	if err != nil {
		c.log.Warn("recording auth attempt failed", "error", err)
	}
}

// passwordsFor builds the attempt list for a pattern. Any candidate that
// happens to equal the real passphrase is dropped; the bad client must never
// be capable of an honest success.
func (c *Cycler) passwordsFor(pattern domain.AttackPattern, creds domain.Credentials, settings config.Settings) []string {
	var candidates []string
	switch pattern {
	case domain.PatternRapidFire:
		for i := 0; i < 5; i++ {
			candidates = append(candidates, "definitely-not-"+creds.SSID)
		}
	case domain.PatternDictionary:
		candidates = append(candidates, settings.WrongPasswords...)
	case domain.PatternSSIDDerived:
		candidates = []string{
			creds.SSID + "123",
			creds.SSID + "2024",
			"admin" + creds.SSID,
			creds.SSID + creds.SSID,
		}
	case domain.PatternConnectCycle:
		candidates = []string{"cycle-pass-a", "cycle-pass-b", "cycle-pass-a"}
	}

	out := candidates[:0]
	for _, p := range candidates {
		if p == creds.Passphrase {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (c *Cycler) jitter(ctx context.Context, settings config.Settings) {
	if settings.AttemptJitterMaxMS <= 0 {
		return
	}
	d := time.Duration(c.randn(settings.AttemptJitterMaxMS)) * time.Millisecond
	c.sleep(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
