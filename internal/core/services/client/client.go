// Package client runs the per-interface control loop. One Client owns one
// interface for the life of the process: it claims the hostname lock,
// re-reads credentials and settings every cycle, dispatches the role's
// behavior and tears everything down on shutdown. Errors inside a cycle are
// logged and absorbed; only context cancellation ends the loop.
package client

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/lcalzada-xor/wifisim/internal/config"
	"github.com/lcalzada-xor/wifisim/internal/core/domain"
	"github.com/lcalzada-xor/wifisim/internal/core/ports"
)

// Consumer-side views of the role services, kept narrow for testability.

type roamer interface {
	Due(session domain.Session, settings config.Settings) bool
	Roam(ctx context.Context, session domain.Session, creds domain.Credentials, settings config.Settings) (domain.Session, error)
}

type attackCycler interface {
	RunCycle(ctx context.Context, creds domain.Credentials, settings config.Settings) error
}

type healthMonitor interface {
	Check(ctx context.Context, targetSSID string) (domain.LinkStatus, bool, error)
	Recover(ctx context.Context, status domain.LinkStatus, creds domain.Credentials, settings config.Settings) (bool, error)
}

type trafficEngine interface {
	RunCycle(ctx context.Context, settings config.Settings) error
	Stats() domain.TrafficStats
}

// claimStagger spaces lock acquisition by role rank, so simultaneously
// started loops claim their identity slots in the fixed wired, bad, good
// order instead of racing.
const claimStagger = 2 * time.Second

// Client is one interface's simulation loop.
type Client struct {
	cfg      *config.Config
	iface    domain.WirelessInterface
	driver   ports.Driver
	catalog  ports.Catalog
	roamer   roamer
	cycler   attackCycler
	monitor  healthMonitor
	traffic  trafficEngine
	identity ports.Identity
	creds    ports.CredentialSource
	log      *slog.Logger

	// tune pushes freshly read settings into adapters that carry tunables.
	tune func(config.Settings)

	stagger time.Duration

	mu      sync.RWMutex
	session domain.Session
	lastErr string
}

// Deps bundles everything a Client needs.
type Deps struct {
	Config   *config.Config
	Driver   ports.Driver
	Catalog  ports.Catalog
	Roamer   roamer
	Cycler   attackCycler
	Monitor  healthMonitor
	Traffic  trafficEngine
	Identity ports.Identity
	Creds    ports.CredentialSource
	Logger   *slog.Logger
	Tune     func(config.Settings)
}

// New assembles a client for the configured role.
func New(deps Deps) (*Client, error) {
	iface, err := domain.NewWirelessInterface(deps.Config.Interface, domain.Role(deps.Config.Role), deps.Config.Hostname)
	if err != nil {
		return nil, err
	}
	c := &Client{
		cfg:      deps.Config,
		iface:    iface,
		driver:   deps.Driver,
		catalog:  deps.Catalog,
		roamer:   deps.Roamer,
		cycler:   deps.Cycler,
		monitor:  deps.Monitor,
		traffic:  deps.Traffic,
		identity: deps.Identity,
		creds:    deps.Creds,
		log:      deps.Logger,
		tune:     deps.Tune,
		stagger:  claimStagger,
		session:  domain.Session{State: domain.StateDisconnected},
	}
	return c, nil
}

// Run claims the interface, after the role-ranked stagger, and drives cycles
// until the context ends. The deferred cleanup runs unconditionally, shutdown
// included.
func (c *Client) Run(ctx context.Context) error {
	if delay := time.Duration(c.iface.ClaimOrder()) * c.stagger; delay > 0 {
		c.log.Debug("staggering identity claim", "rank", c.iface.ClaimOrder(), "delay", delay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}

	if err := c.identity.Claim(c.iface.Name, c.iface.Hostname); err != nil {
		return err
	}
	defer func() {
		if err := c.identity.Release(c.iface.Name); err != nil {
			c.log.Warn("releasing interface lock failed", "error", err)
		}
	}()
	defer c.cleanup()

	c.log.Info("client started",
		"role", string(c.iface.Role), "interface", c.iface.Name, "hostname", c.iface.Hostname)

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		c.cycle(ctx)
		select {
		case <-ctx.Done():
			c.log.Info("shutdown requested")
			return nil
		case <-ticker.C:
		}
	}
}

// cleanup leaves the interface disconnected and back under the managed
// layer, whatever state the loop ended in.
func (c *Client) cleanup() {
	if !c.iface.Wireless() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := c.driver.Disconnect(ctx, c.iface.Name); err != nil {
		c.log.Warn("shutdown disconnect failed", "error", err)
	}
	c.setState(domain.StateDisconnected)
}

// cycle runs one iteration of the role behavior. It never propagates errors.
func (c *Client) cycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	settings := c.loadSettings()
	if c.tune != nil {
		c.tune(settings)
	}

	var err error
	switch c.iface.Role {
	case domain.RoleGood:
		err = c.cycleGood(ctx, settings)
	case domain.RoleBad:
		err = c.cycleBad(ctx, settings)
	case domain.RoleWired:
		err = c.cycleWired(ctx, settings)
	}

	c.mu.Lock()
	if err != nil && !errors.Is(err, context.Canceled) {
		c.lastErr = err.Error()
		c.log.Warn("cycle finished with error", "error", err)
	} else if err == nil {
		c.lastErr = ""
	}
	c.mu.Unlock()
}

// cycleGood keeps the good client connected, roaming and moving traffic.
func (c *Client) cycleGood(ctx context.Context, settings config.Settings) error {
	creds, err := c.creds.Load()
	if err != nil {
		c.setState(domain.StateDisconnected)
		if errors.Is(err, domain.ErrNoCredentials) {
			c.log.Info("waiting for credentials")
			return nil
		}
		return err
	}

	status, healthy, err := c.monitor.Check(ctx, creds.SSID)
	if err != nil {
		return err
	}

	if !healthy {
		return c.repair(ctx, status, creds, settings)
	}

	c.observeConnected(status)

	session := c.Session()
	if c.roamer.Due(session, settings) {
		c.setState(domain.StateRoaming)
		updated, err := c.roamer.Roam(ctx, session, creds, settings)
		c.setSession(updated)
		if err != nil {
			c.setState(domain.StateDegraded)
			return err
		}
	}

	return c.traffic.RunCycle(ctx, settings)
}

// repair transitions a broken session toward connected, via a first-time
// establish or a recovery depending on where it stands.
func (c *Client) repair(ctx context.Context, status domain.LinkStatus, creds domain.Credentials, settings config.Settings) error {
	if c.Session().State == domain.StateConnected {
		c.log.Warn("established session lost its health",
			"associated", status.Associated, "ssid", status.SSID, "has_ip", status.IPv4 != nil)
		c.setState(domain.StateDegraded)
	}

	if !status.Associated {
		// Nothing on the air yet; scan before burning a connect attempt.
		c.setState(domain.StateScanning)
		snapshot, err := c.catalog.Scan(ctx, creds.SSID, settings.Band)
		if err != nil {
			return err
		}
		if snapshot.Empty() {
			c.log.Info("target network not visible, waiting", "ssid", creds.SSID)
			return nil
		}
	}

	c.setState(domain.StateConnecting)
	attempted, err := c.monitor.Recover(ctx, status, creds, settings)
	if err != nil {
		c.setState(domain.StateDisconnected)
		return err
	}
	if !attempted {
		return nil
	}

	fresh, healthy, err := c.monitor.Check(ctx, creds.SSID)
	if err != nil || !healthy {
		c.setState(domain.StateDisconnected)
		return err
	}
	c.establish(fresh)
	return nil
}

// cycleBad runs one deliberate-failure attack cycle.
func (c *Client) cycleBad(ctx context.Context, settings config.Settings) error {
	creds, err := c.creds.Load()
	if err != nil {
		if errors.Is(err, domain.ErrNoCredentials) {
			c.log.Info("waiting for target network")
			return nil
		}
		return err
	}
	c.setState(domain.StateConnecting)
	err = c.cycler.RunCycle(ctx, creds, settings)
	c.setState(domain.StateDisconnected)
	return err
}

// cycleWired gates traffic on plain link health; a wired interface carries no
// SSID, so an association plus an address is the whole check.
func (c *Client) cycleWired(ctx context.Context, settings config.Settings) error {
	status, healthy, err := c.monitor.Check(ctx, "")
	if err != nil {
		return err
	}
	if !healthy {
		c.setState(domain.StateDisconnected)
		c.log.Warn("wired link unhealthy, skipping traffic",
			"associated", status.Associated, "has_ip", status.IPv4 != nil)
		return nil
	}
	c.observeConnected(status)
	return c.traffic.RunCycle(ctx, settings)
}

func (c *Client) loadSettings() config.Settings {
	settings, err := config.LoadSettings(filepath.Join(c.cfg.ConfigDir, "settings.yaml"))
	if err != nil {
		c.log.Warn("settings file unreadable, using defaults", "error", err)
	}
	return settings
}

// Session returns a copy of the current session view.
func (c *Client) Session() domain.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Snapshot is the status surface rendered by the HTTP endpoint.
type Snapshot struct {
	Role      string              `json:"role"`
	Interface string              `json:"interface"`
	Hostname  string              `json:"hostname"`
	Session   domain.Session      `json:"session"`
	Stats     domain.TrafficStats `json:"stats"`
	Config    ConfigSummary       `json:"config"`
	LastError string              `json:"last_error,omitempty"`
}

// ConfigSummary is the externally visible view of the current target and
// tunables. The passphrase only ever appears masked.
type ConfigSummary struct {
	SSID           string `json:"ssid"`
	Passphrase     string `json:"passphrase"`
	Band           string `json:"band"`
	MinSignalDBM   int    `json:"min_signal_dbm"`
	RoamingEnabled bool   `json:"roaming_enabled"`
	PollSeconds    int    `json:"poll_sec"`
}

// Snapshot assembles the current externally visible state.
func (c *Client) Snapshot() Snapshot {
	summary := c.configSummary()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Role:      string(c.iface.Role),
		Interface: c.iface.Name,
		Hostname:  c.iface.Hostname,
		Session:   c.session,
		Stats:     c.traffic.Stats(),
		Config:    summary,
		LastError: c.lastErr,
	}
}

func (c *Client) configSummary() ConfigSummary {
	creds, _ := c.creds.Load()
	settings := c.loadSettings()
	return ConfigSummary{
		SSID:           creds.SSID,
		Passphrase:     creds.Masked(),
		Band:           string(settings.Band),
		MinSignalDBM:   settings.MinSignalDBM,
		RoamingEnabled: settings.RoamingEnabled,
		PollSeconds:    int(c.cfg.PollInterval / time.Second),
	}
}

func (c *Client) setState(state domain.SessionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.State != state {
		c.log.Info("session state changed", "from", string(c.session.State), "to", string(state))
	}
	c.session.State = state
	if state == domain.StateDisconnected {
		c.session.BSSID = ""
		c.session.IPv4 = ""
	}
}

func (c *Client) setSession(session domain.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = session
}

// establish records a fresh connected session.
func (c *Client) establish(status domain.LinkStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log.Info("session established", "ssid", status.SSID, "bssid", status.BSSID, "ip", status.IPv4.String())
	c.session = domain.Session{
		State:         domain.StateConnected,
		SSID:          status.SSID,
		BSSID:         status.BSSID,
		IPv4:          status.IPv4.String(),
		EstablishedAt: time.Now(),
	}
}

// observeConnected refreshes the session view from a healthy readback
// without resetting the establishment time.
func (c *Client) observeConnected(status domain.LinkStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.State != domain.StateConnected {
		c.session.EstablishedAt = time.Now()
	}
	c.session.State = domain.StateConnected
	c.session.SSID = status.SSID
	c.session.BSSID = status.BSSID
	c.session.IPv4 = status.IPv4.String()
}
