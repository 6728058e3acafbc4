// Package supplicant is the low-level association fallback: a generated
// wpa_supplicant config, a driver-level associate watched through wpa_cli,
// and an explicit DHCP request. It only ever runs on a device the managed
// layer has released, and it cleans up after itself on every failure path.
package supplicant

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/lcalzada-xor/wifisim/internal/core/domain"
	"github.com/lcalzada-xor/wifisim/internal/core/ports"
)

const ctrlDir = "/run/wpa_supplicant"

var inetRegex = regexp.MustCompile(`inet (\d+\.\d+\.\d+\.\d+)`)

// Adapter implements ports.Supplicant over wpa_supplicant/wpa_cli/dhclient.
type Adapter struct {
	exec ports.Executor
	log  *slog.Logger

	// confDir is where generated configs land. Overridable in tests.
	confDir string
	// pollInterval between association checks.
	pollInterval time.Duration
	// associationTimeout bounds the wait for wpa_state=COMPLETED.
	associationTimeout time.Duration
}

// New creates the supplicant adapter.
func New(exec ports.Executor, logger *slog.Logger) *Adapter {
	return &Adapter{
		exec:               exec,
		log:                logger,
		confDir:            os.TempDir(),
		pollInterval:       300 * time.Millisecond,
		associationTimeout: 30 * time.Second,
	}
}

// Associate brings the interface up, starts a dedicated supplicant with a
// generated config, waits for the handshake to complete and requests a DHCP
// lease. Any failure tears the whole stack down before returning.
func (a *Adapter) Associate(ctx context.Context, iface, ssid, password, bssid, hostname string) error {
	if bssid != "" && !domain.IsValidBSSID(bssid) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidBSSID, bssid)
	}

	// Kill any leftovers from a previous attempt first.
	a.Teardown(ctx, iface)

	confPath := filepath.Join(a.confDir, "wifisim-"+iface+"-wpa.conf")
	if err := os.WriteFile(confPath, []byte(generateConfig(ssid, password, bssid)), 0o600); err != nil {
		return fmt.Errorf("writing supplicant config: %w", err)
	}
	defer os.Remove(confPath)

	if out, err := a.exec.Run(ctx, "ip", "link", "set", iface, "up"); err != nil {
		return fmt.Errorf("%w: link up %s: %s", domain.ErrToolFailure, iface, firstLine(out))
	}

	a.exec.Run(ctx, "mkdir", "-p", ctrlDir)
	if out, err := a.exec.Run(ctx, "wpa_supplicant", "-B", "-i", iface, "-c", confPath, "-C", ctrlDir); err != nil {
		return fmt.Errorf("%w: starting wpa_supplicant: %s", domain.ErrToolFailure, firstLine(out))
	}

	if err := a.waitForAssociation(ctx, iface, ssid); err != nil {
		a.Teardown(ctx, iface)
		return err
	}

	if err := a.obtainLease(ctx, iface, hostname); err != nil {
		a.Teardown(ctx, iface)
		return err
	}

	a.log.Debug("supplicant association complete", "interface", iface, "ssid", ssid)
	return nil
}

// Status reads association state from wpa_cli and the address from the
// kernel. Used by the driver to verify a fallback session end-to-end.
func (a *Adapter) Status(ctx context.Context, iface string) (domain.LinkStatus, error) {
	out, err := a.exec.Run(ctx, "wpa_cli", "-i", iface, "status")
	if err != nil {
		return domain.LinkStatus{}, fmt.Errorf("%w: wpa_cli status: %s", domain.ErrToolFailure, firstLine(out))
	}

	var status domain.LinkStatus
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "ssid="):
			status.SSID = strings.TrimPrefix(line, "ssid=")
		case strings.HasPrefix(line, "bssid="):
			status.BSSID = domain.NormalizeBSSID(strings.TrimPrefix(line, "bssid="))
		case line == "wpa_state=COMPLETED":
			status.Associated = true
		}
	}

	if addr, err := a.exec.Run(ctx, "ip", "-4", "addr", "show", iface); err == nil {
		if m := inetRegex.FindStringSubmatch(addr); len(m) > 1 {
			status.IPv4 = net.ParseIP(m[1])
		}
	}
	return status, nil
}

// Teardown kills the per-interface supplicant and DHCP client and flushes
// the interface. Every step is best-effort so it is safe on any exit path.
func (a *Adapter) Teardown(ctx context.Context, iface string) error {
	// Graceful supplicant shutdown first, interface-scoped pkill second.
	if _, err := a.exec.Run(ctx, "wpa_cli", "-i", iface, "terminate"); err != nil {
		a.exec.Run(ctx, "pkill", "-9", "-f", fmt.Sprintf("wpa_supplicant.*-i[[:space:]]*%s", iface))
	}
	a.exec.Run(ctx, "pkill", "-9", "-f", fmt.Sprintf("dhclient.*%s", iface))
	a.exec.Run(ctx, "ip", "addr", "flush", "dev", iface)
	a.exec.Run(ctx, "ip", "route", "flush", "dev", iface)
	return nil
}

func (a *Adapter) obtainLease(ctx context.Context, iface, hostname string) error {
	args := []string{"-1", "-timeout", "15"}
	if hostname != "" && domain.IsValidHostname(hostname) {
		args = append(args, "-H", hostname)
	}
	args = append(args, iface)
	if out, err := a.exec.Run(ctx, "dhclient", args...); err != nil {
		return fmt.Errorf("%w: dhclient %s: %s", domain.ErrToolFailure, iface, firstLine(out))
	}
	return nil
}

// waitForAssociation polls wpa_cli until the handshake completes for the
// expected SSID, or classifies the terminal supplicant state as a rejection.
func (a *Adapter) waitForAssociation(ctx context.Context, iface, ssid string) error {
	deadline := time.Now().Add(a.associationTimeout)
	for {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: waiting for association", domain.ErrAttemptTimeout)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: no association to %q within %s", domain.ErrAttemptTimeout, ssid, a.associationTimeout)
		}

		out, err := a.exec.Run(ctx, "wpa_cli", "-i", iface, "status")
		if err == nil {
			var ssidMatch, completed bool
			for _, line := range strings.Split(out, "\n") {
				line = strings.TrimSpace(line)
				if line == "ssid="+ssid {
					ssidMatch = true
				}
				if line == "wpa_state=COMPLETED" {
					completed = true
				}
			}
			if ssidMatch && completed {
				return nil
			}
		}

		// A failed 4-way handshake disables the network instead of keeping
		// the state machine cycling; that is an explicit refusal.
		if nets, err := a.exec.Run(ctx, "wpa_cli", "-i", iface, "list_networks"); err == nil {
			if strings.Contains(nets, "TEMP-DISABLED") {
				return fmt.Errorf("%w: network temporarily disabled (handshake failed)", domain.ErrRejected)
			}
		}
		time.Sleep(a.pollInterval)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
