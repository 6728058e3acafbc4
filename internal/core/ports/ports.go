package ports

import (
	"context"

	"github.com/lcalzada-xor/wifisim/internal/core/domain"
)

// Executor runs external network tools. Every shell-out in the engine goes
// through this seam so tests can stub tool output per invocation.
type Executor interface {
	// Run executes the tool and returns its combined output. The context
	// bounds the invocation; an expired context kills the process.
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// Managed is the managed-connection API (a NetworkManager-style service).
// It is the authoritative source of truth for session state: whatever it
// reads back is what the engine believes, regardless of what a connect call
// claimed.
type Managed interface {
	// Status reads the device's associated SSID/BSSID and IPv4 address.
	Status(ctx context.Context, iface string) (domain.LinkStatus, error)

	// Connect performs a direct managed connect to the SSID, optionally
	// pinned to a BSSID. Hostname, when set, becomes the DHCP hostname of
	// the resulting profile. Returns domain.ErrRejected on explicit refusal.
	Connect(ctx context.Context, iface, ssid, password, bssid, hostname string) error

	// ProfileConnect creates the named ephemeral profile pinned to the
	// BSSID, with hostname as its DHCP hostname, and activates it. The
	// caller owns deleting the profile.
	ProfileConnect(ctx context.Context, iface, profile, ssid, password, bssid, hostname string) error

	// DeleteProfile removes a connection profile. Deleting a profile that
	// does not exist is not an error.
	DeleteProfile(ctx context.Context, profile string) error

	// Disconnect tears down whatever the managed layer holds on the device.
	Disconnect(ctx context.Context, iface string) error

	// RefreshLease re-activates the device's current connection so the
	// managed layer renegotiates DHCP. Never starts a raw DHCP client while
	// the managed layer owns the interface.
	RefreshLease(ctx context.Context, iface string) error

	// Rescan asks the managed layer to refresh its scan cache.
	Rescan(ctx context.Context, iface string) error

	// ScanResults returns the managed layer's current AP list, signal
	// already normalized to dBm.
	ScanResults(ctx context.Context, iface string) ([]domain.DiscoveredAccessPoint, error)

	// SetManaged hands the device to or takes it back from the managed
	// layer. The supplicant fallback only runs on an unmanaged device so
	// two DHCP clients never duel over one interface.
	SetManaged(ctx context.Context, iface string, managed bool) error
}

// Supplicant is the low-level association fallback, used only after both
// managed methods hard-fail. Implementations must never leave their
// supplicant process running once the attempt concludes.
type Supplicant interface {
	// Associate drives a driver-level connect, authentication handshake and
	// DHCP request. Hostname, when set, is offered in the DHCP exchange.
	Associate(ctx context.Context, iface, ssid, password, bssid, hostname string) error

	// Status reads association state and address straight from the
	// supplicant and kernel, for verifying a fallback session.
	Status(ctx context.Context, iface string) (domain.LinkStatus, error)

	// Teardown kills the supplicant and DHCP client for the interface and
	// flushes addresses and routes. Safe to call when nothing is running.
	Teardown(ctx context.Context, iface string) error
}

// Catalog is the rate-limited view of currently visible access points.
type Catalog interface {
	// Scan returns the current snapshot for the SSID and band. Callers
	// arriving inside the scan interval get the cached snapshot. A snapshot
	// with no APs is returned as-is; domain.ErrScanUnavailable signals the
	// underlying tool failed past its retry budget.
	Scan(ctx context.Context, ssid string, band domain.WiFiBand) (domain.ScanSnapshot, error)
}

// ConnectRequest describes one connection attempt to the driver.
type ConnectRequest struct {
	Interface string
	SSID      string
	Password  string
	// BSSID pins the attempt to one AP when set.
	BSSID string
	// Hostname is the claimed DHCP identity, offered on every method.
	Hostname string
	// DirectOnly restricts the driver to the direct managed method with no
	// fallback chain, which is how the bad client stays naive-looking.
	DirectOnly bool
}

// ConnectMethod names which rung of the fallback chain produced the result.
type ConnectMethod string

const (
	MethodDirect     ConnectMethod = "direct"
	MethodProfile    ConnectMethod = "profile"
	MethodSupplicant ConnectMethod = "supplicant"
)

// ConnectResult is the tagged outcome of a driver attempt.
type ConnectResult struct {
	Method ConnectMethod
	Status domain.LinkStatus
}

// Driver is the ordered-fallback connection dispatcher. It remembers which
// method last won per interface so Disconnect tears down the right layer.
type Driver interface {
	Connect(ctx context.Context, req ConnectRequest) (ConnectResult, error)

	// Disconnect reverses whatever the last successful Connect set up,
	// returning the device to the managed layer if the fallback held it.
	Disconnect(ctx context.Context, iface string) error
}

// StatsStore persists per-interface traffic counters across restarts.
type StatsStore interface {
	Load(iface string) (domain.TrafficStats, error)
	Save(iface string, stats domain.TrafficStats) error
}

// AuditRepository is the append-only event history consumed by the
// dashboard and the report exporter.
type AuditRepository interface {
	SaveRoamEvent(event domain.RoamEvent) error
	SaveAuthAttempt(attempt domain.AuthAttempt) error
	ListRoamEvents(iface string, limit int) ([]domain.RoamEvent, error)
	ListAuthAttempts(iface string, limit int) ([]domain.AuthAttempt, error)
}

// TrafficRunner performs one bounded transfer or probe. Each call carries
// its own timeout via the context.
type TrafficRunner interface {
	Download(ctx context.Context) (int64, error)
	Upload(ctx context.Context) (int64, error)
	Ping(ctx context.Context, iface, target string) error
}

// CredentialSource re-reads the external target credentials. Implementations
// return domain.ErrNoCredentials when the file is absent or incomplete.
type CredentialSource interface {
	Load() (domain.Credentials, error)
}

// Identity claims and releases per-interface hostname locks.
type Identity interface {
	Claim(iface, hostname string) error
	Release(iface string) error
}
