// Package nm drives NetworkManager through nmcli. It is the engine's
// managed-connection API and the authoritative source for observed session
// state. Every invocation goes through the Executor seam.
package nm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lcalzada-xor/wifisim/internal/core/domain"
	"github.com/lcalzada-xor/wifisim/internal/core/ports"
)

// Adapter implements ports.Managed over nmcli.
type Adapter struct {
	exec ports.Executor
	log  *slog.Logger
}

// New creates the nmcli adapter.
func New(exec ports.Executor, logger *slog.Logger) *Adapter {
	return &Adapter{exec: exec, log: logger}
}

// Status reads device state, IPv4 address and the active AP in two calls.
// The wifi list read is best-effort: on a wired device it simply fails and
// the SSID/BSSID fields stay empty.
func (a *Adapter) Status(ctx context.Context, iface string) (domain.LinkStatus, error) {
	out, err := a.exec.Run(ctx, "nmcli", "-t", "-f", "GENERAL.STATE,IP4.ADDRESS", "device", "show", iface)
	if err != nil {
		return domain.LinkStatus{}, fmt.Errorf("%w: device show %s: %s", domain.ErrToolFailure, iface, firstLine(out))
	}
	status := parseDeviceShow(out)

	wifi, err := a.exec.Run(ctx, "nmcli", "-t", "-f", "ACTIVE,SSID,BSSID,SIGNAL,FREQ",
		"device", "wifi", "list", "ifname", iface, "--rescan", "no")
	if err == nil {
		if ssid, bssid, ok := parseActiveRow(wifi); ok {
			status.SSID = ssid
			status.BSSID = domain.NormalizeBSSID(bssid)
		}
	}
	return status, nil
}

// Connect performs the direct managed connect, optionally pinned to a BSSID.
// The profile nmcli auto-creates is named after the SSID; the DHCP hostname
// is written onto it afterwards and takes effect from the next lease
// negotiation, since the direct path cannot set it before activation.
func (a *Adapter) Connect(ctx context.Context, iface, ssid, password, bssid, hostname string) error {
	args := []string{"device", "wifi", "connect", ssid}
	if password != "" {
		args = append(args, "password", password)
	}
	args = append(args, "ifname", iface)
	if bssid != "" {
		if !domain.IsValidBSSID(bssid) {
			return fmt.Errorf("%w: %q", domain.ErrInvalidBSSID, bssid)
		}
		args = append(args, "bssid", bssid)
	}

	out, err := a.exec.Run(ctx, "nmcli", args...)
	if cerr := a.classify(ctx, out, err); cerr != nil {
		return cerr
	}

	if hostname != "" {
		if out, err := a.exec.Run(ctx, "nmcli", "connection", "modify", ssid,
			"ipv4.dhcp-hostname", hostname); err != nil {
			a.log.Warn("setting dhcp hostname on profile failed",
				"profile", ssid, "hostname", hostname, "error", firstLine(out))
		}
	}
	return nil
}

// ProfileConnect creates and activates an ephemeral profile pinned to the
// BSSID, with the DHCP hostname set before activation so the first lease
// already carries it. The caller deletes the profile afterwards regardless of
// outcome.
func (a *Adapter) ProfileConnect(ctx context.Context, iface, profile, ssid, password, bssid, hostname string) error {
	if bssid != "" && !domain.IsValidBSSID(bssid) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidBSSID, bssid)
	}

	out, err := a.exec.Run(ctx, "nmcli", "connection", "add", "type", "wifi",
		"ifname", iface, "con-name", profile, "ssid", ssid)
	if err != nil {
		return fmt.Errorf("%w: connection add: %s", domain.ErrToolFailure, firstLine(out))
	}

	modify := []string{"connection", "modify", profile}
	if bssid != "" {
		modify = append(modify, "802-11-wireless.bssid", bssid)
	}
	if password != "" {
		modify = append(modify, "802-11-wireless-security.key-mgmt", "wpa-psk",
			"802-11-wireless-security.psk", password)
	}
	if hostname != "" {
		modify = append(modify, "ipv4.dhcp-hostname", hostname)
	}
	if len(modify) > 3 {
		if out, err = a.exec.Run(ctx, "nmcli", modify...); err != nil {
			return fmt.Errorf("%w: connection modify: %s", domain.ErrToolFailure, firstLine(out))
		}
	}

	out, err = a.exec.Run(ctx, "nmcli", "connection", "up", profile)
	return a.classify(ctx, out, err)
}

// DeleteProfile removes a profile. Unknown profiles are not an error so
// cleanup paths can call this unconditionally.
func (a *Adapter) DeleteProfile(ctx context.Context, profile string) error {
	out, err := a.exec.Run(ctx, "nmcli", "connection", "delete", profile)
	if err != nil {
		if strings.Contains(strings.ToLower(out), "unknown connection") {
			return nil
		}
		return fmt.Errorf("%w: connection delete %s: %s", domain.ErrToolFailure, profile, firstLine(out))
	}
	return nil
}

// Disconnect releases the device. Already-disconnected devices are fine.
func (a *Adapter) Disconnect(ctx context.Context, iface string) error {
	out, err := a.exec.Run(ctx, "nmcli", "device", "disconnect", iface)
	if err != nil {
		low := strings.ToLower(out)
		if strings.Contains(low, "not active") || strings.Contains(low, "already") {
			return nil
		}
		return fmt.Errorf("%w: device disconnect %s: %s", domain.ErrToolFailure, iface, firstLine(out))
	}
	return nil
}

// RefreshLease asks the managed layer to reapply the device's connection,
// which renegotiates DHCP without a second client fighting over the lease.
func (a *Adapter) RefreshLease(ctx context.Context, iface string) error {
	out, err := a.exec.Run(ctx, "nmcli", "device", "reapply", iface)
	if err != nil {
		return fmt.Errorf("%w: device reapply %s: %s", domain.ErrToolFailure, iface, firstLine(out))
	}
	return nil
}

// Rescan refreshes NetworkManager's scan cache.
func (a *Adapter) Rescan(ctx context.Context, iface string) error {
	out, err := a.exec.Run(ctx, "nmcli", "device", "wifi", "rescan", "ifname", iface)
	if err != nil {
		return fmt.Errorf("%w: wifi rescan %s: %s", domain.ErrToolFailure, iface, firstLine(out))
	}
	return nil
}

// ScanResults parses the terse wifi list, normalizing percent signal to dBm.
func (a *Adapter) ScanResults(ctx context.Context, iface string) ([]domain.DiscoveredAccessPoint, error) {
	out, err := a.exec.Run(ctx, "nmcli", "-t", "-f", "SSID,BSSID,SIGNAL,FREQ",
		"device", "wifi", "list", "ifname", iface, "--rescan", "no")
	if err != nil {
		return nil, fmt.Errorf("%w: wifi list %s: %s", domain.ErrToolFailure, iface, firstLine(out))
	}
	aps := parseScanList(out)
	a.log.Debug("scan results parsed", "interface", iface, "count", len(aps))
	return aps, nil
}

// SetManaged flips NetworkManager's ownership of the device.
func (a *Adapter) SetManaged(ctx context.Context, iface string, managed bool) error {
	val := "no"
	if managed {
		val = "yes"
	}
	out, err := a.exec.Run(ctx, "nmcli", "device", "set", iface, "managed", val)
	if err != nil {
		return fmt.Errorf("%w: device set %s managed %s: %s", domain.ErrToolFailure, iface, val, firstLine(out))
	}
	return nil
}

// classify maps an nmcli activation failure onto the error taxonomy. An
// explicit secrets failure is a rejection; a dead context is a timeout;
// everything else is a tool failure.
func (a *Adapter) classify(ctx context.Context, out string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %s", domain.ErrAttemptTimeout, firstLine(out))
	}
	low := strings.ToLower(out)
	if strings.Contains(low, "secrets were required") ||
		strings.Contains(low, "no secrets provided") ||
		strings.Contains(low, "supplicant failed") {
		return fmt.Errorf("%w: %s", domain.ErrRejected, firstLine(out))
	}
	if strings.Contains(low, "timeout expired") {
		return fmt.Errorf("%w: %s", domain.ErrAttemptTimeout, firstLine(out))
	}
	return fmt.Errorf("%w: %s", domain.ErrToolFailure, firstLine(out))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
