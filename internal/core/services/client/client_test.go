package client

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/wifisim/internal/config"
	"github.com/lcalzada-xor/wifisim/internal/core/domain"
	"github.com/lcalzada-xor/wifisim/internal/core/ports"
)

type fakeDriver struct {
	disconnects int
}

func (f *fakeDriver) Connect(context.Context, ports.ConnectRequest) (ports.ConnectResult, error) {
	return ports.ConnectResult{}, nil
}

func (f *fakeDriver) Disconnect(context.Context, string) error {
	f.disconnects++
	return nil
}

type fakeCatalog struct {
	snapshot domain.ScanSnapshot
	err      error
	scans    int
}

func (f *fakeCatalog) Scan(context.Context, string, domain.WiFiBand) (domain.ScanSnapshot, error) {
	f.scans++
	return f.snapshot, f.err
}

type fakeRoamer struct {
	due   bool
	err   error
	roams int
}

func (f *fakeRoamer) Due(domain.Session, config.Settings) bool { return f.due }

func (f *fakeRoamer) Roam(_ context.Context, session domain.Session, _ domain.Credentials, _ config.Settings) (domain.Session, error) {
	f.roams++
	if f.err != nil {
		return session, f.err
	}
	session.State = domain.StateConnected
	session.BSSID = "bb:bb:bb:bb:bb:02"
	session.LastRoam = time.Now()
	return session, nil
}

type fakeCycler struct {
	cycles int
}

func (f *fakeCycler) RunCycle(context.Context, domain.Credentials, config.Settings) error {
	f.cycles++
	return nil
}

type fakeMonitor struct {
	status    domain.LinkStatus
	healthy   bool
	recovers  int
	recovered bool // flips status healthy after a recover
}

func (f *fakeMonitor) Check(context.Context, string) (domain.LinkStatus, bool, error) {
	return f.status, f.healthy, nil
}

func (f *fakeMonitor) Recover(context.Context, domain.LinkStatus, domain.Credentials, config.Settings) (bool, error) {
	f.recovers++
	if f.recovered {
		f.status = healthyStatus()
		f.healthy = true
	}
	return true, nil
}

type fakeTraffic struct {
	cycles int
	stats  domain.TrafficStats
}

func (f *fakeTraffic) RunCycle(context.Context, config.Settings) error {
	f.cycles++
	return nil
}

func (f *fakeTraffic) Stats() domain.TrafficStats { return f.stats }

type fakeIdentity struct {
	mu       sync.Mutex
	claims   []string
	releases []string
	claimErr error
}

func (f *fakeIdentity) Claim(iface, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims = append(f.claims, iface)
	return f.claimErr
}

func (f *fakeIdentity) Release(iface string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases = append(f.releases, iface)
	return nil
}

func (f *fakeIdentity) claimCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.claims)
}

type fakeCreds struct {
	creds domain.Credentials
	err   error
}

func (f *fakeCreds) Load() (domain.Credentials, error) { return f.creds, f.err }

func healthyStatus() domain.LinkStatus {
	return domain.LinkStatus{
		Associated: true,
		SSID:       "lab-net",
		BSSID:      "aa:aa:aa:aa:aa:01",
		IPv4:       net.ParseIP("10.0.0.5"),
	}
}

func testConfig(role string) *config.Config {
	return &config.Config{
		Role:         role,
		Interface:    "wlan0",
		Hostname:     "wifi-" + role + "-client",
		ConfigDir:    "/nonexistent", // settings fall back to defaults
		PollInterval: 10 * time.Millisecond,
	}
}

type harness struct {
	client  *Client
	driver  *fakeDriver
	catalog *fakeCatalog
	roamer  *fakeRoamer
	cycler  *fakeCycler
	monitor *fakeMonitor
	traffic *fakeTraffic
	ident   *fakeIdentity
	creds   *fakeCreds
}

func newHarness(t *testing.T, role string) *harness {
	t.Helper()
	h := &harness{
		driver:  &fakeDriver{},
		catalog: &fakeCatalog{},
		roamer:  &fakeRoamer{},
		cycler:  &fakeCycler{},
		monitor: &fakeMonitor{},
		traffic: &fakeTraffic{},
		ident:   &fakeIdentity{},
		creds:   &fakeCreds{creds: domain.Credentials{SSID: "lab-net", Passphrase: "correct-horse"}},
	}
	c, err := New(Deps{
		Config:   testConfig(role),
		Driver:   h.driver,
		Catalog:  h.catalog,
		Roamer:   h.roamer,
		Cycler:   h.cycler,
		Monitor:  h.monitor,
		Traffic:  h.traffic,
		Identity: h.ident,
		Creds:    h.creds,
		Logger:   slog.Default(),
	})
	require.NoError(t, err)
	h.client = c
	h.client.stagger = time.Millisecond
	return h
}

func wiredStatus() domain.LinkStatus {
	return domain.LinkStatus{Associated: true, IPv4: net.ParseIP("10.0.1.5")}
}

func TestGoodCycleHealthyRunsTraffic(t *testing.T) {
	h := newHarness(t, "good")
	h.monitor.status = healthyStatus()
	h.monitor.healthy = true

	h.client.cycle(context.Background())

	sess := h.client.Session()
	assert.Equal(t, domain.StateConnected, sess.State)
	assert.Equal(t, "aa:aa:aa:aa:aa:01", sess.BSSID)
	assert.Equal(t, 1, h.traffic.cycles)
	assert.Zero(t, h.monitor.recovers)
}

func TestGoodCycleWithoutCredentialsWaits(t *testing.T) {
	h := newHarness(t, "good")
	h.creds.err = domain.ErrNoCredentials

	h.client.cycle(context.Background())
	assert.Equal(t, domain.StateDisconnected, h.client.Session().State)
	assert.Zero(t, h.traffic.cycles)
	assert.Empty(t, h.client.Snapshot().LastError, "missing credentials is a wait, not an error")
}

func TestGoodCycleScansBeforeFirstConnect(t *testing.T) {
	h := newHarness(t, "good")
	h.monitor.recovered = true
	h.catalog.snapshot = domain.ScanSnapshot{SSID: "lab-net", APs: []domain.DiscoveredAccessPoint{
		{BSSID: "aa:aa:aa:aa:aa:01", SSID: "lab-net", SignalDBM: -40},
	}}

	h.client.cycle(context.Background())

	assert.Equal(t, 1, h.catalog.scans)
	assert.Equal(t, 1, h.monitor.recovers)
	assert.Equal(t, domain.StateConnected, h.client.Session().State)
}

func TestGoodCycleWaitsWhenNetworkInvisible(t *testing.T) {
	h := newHarness(t, "good")
	h.catalog.snapshot = domain.ScanSnapshot{SSID: "lab-net"}

	h.client.cycle(context.Background())

	assert.Equal(t, domain.StateScanning, h.client.Session().State)
	assert.Zero(t, h.monitor.recovers, "no connect attempt without a visible AP")
}

func TestGoodCycleLostSessionGetsRecovered(t *testing.T) {
	h := newHarness(t, "good")
	// Healthy first cycle establishes the session.
	h.monitor.status = healthyStatus()
	h.monitor.healthy = true
	h.client.cycle(context.Background())
	require.Equal(t, domain.StateConnected, h.client.Session().State)

	// Lease disappears; still associated so no scan needed.
	h.monitor.status.IPv4 = nil
	h.monitor.healthy = false
	h.monitor.recovered = true
	h.client.cycle(context.Background())

	assert.Equal(t, 1, h.monitor.recovers)
	assert.Equal(t, domain.StateConnected, h.client.Session().State)
	assert.Zero(t, h.catalog.scans)
}

func TestGoodCycleRoamsWhenDue(t *testing.T) {
	h := newHarness(t, "good")
	h.monitor.status = healthyStatus()
	h.monitor.healthy = true
	h.roamer.due = true

	h.client.cycle(context.Background())

	assert.Equal(t, 1, h.roamer.roams)
	sess := h.client.Session()
	assert.Equal(t, domain.StateConnected, sess.State)
	assert.Equal(t, "bb:bb:bb:bb:bb:02", sess.BSSID)
	assert.Equal(t, 1, h.traffic.cycles, "traffic still runs after a successful roam")
}

func TestGoodCycleFailedRoamDegradesSession(t *testing.T) {
	h := newHarness(t, "good")
	h.monitor.status = healthyStatus()
	h.monitor.healthy = true
	h.roamer.due = true
	h.roamer.err = domain.ErrAttemptTimeout

	h.client.cycle(context.Background())

	assert.Equal(t, domain.StateDegraded, h.client.Session().State)
	assert.Zero(t, h.traffic.cycles, "no traffic on a degraded session")
	assert.NotEmpty(t, h.client.Snapshot().LastError)
}

func TestBadCycleRunsAttackCycle(t *testing.T) {
	h := newHarness(t, "bad")
	h.client.cycle(context.Background())

	assert.Equal(t, 1, h.cycler.cycles)
	assert.Equal(t, domain.StateDisconnected, h.client.Session().State)
	assert.Zero(t, h.traffic.cycles)
}

func TestWiredCycleOnlyMovesTraffic(t *testing.T) {
	h := newHarness(t, "wired")
	h.monitor.status = wiredStatus()
	h.monitor.healthy = true

	h.client.cycle(context.Background())

	assert.Equal(t, 1, h.traffic.cycles)
	assert.Zero(t, h.cycler.cycles)
	assert.Zero(t, h.monitor.recovers)
	assert.Equal(t, domain.StateConnected, h.client.Session().State)
}

func TestWiredCycleSkipsTrafficWhenLinkDown(t *testing.T) {
	h := newHarness(t, "wired")
	h.monitor.status = domain.LinkStatus{}
	h.monitor.healthy = false

	h.client.cycle(context.Background())

	assert.Zero(t, h.traffic.cycles, "no traffic without a link and an address")
	assert.Zero(t, h.monitor.recovers, "wired links are not repaired, only observed")
	assert.Equal(t, domain.StateDisconnected, h.client.Session().State)
}

func TestRunClaimsAndReleasesIdentity(t *testing.T) {
	h := newHarness(t, "good")
	h.monitor.status = healthyStatus()
	h.monitor.healthy = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.client.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"wlan0"}, h.ident.claims)
	assert.Equal(t, []string{"wlan0"}, h.ident.releases)
	assert.GreaterOrEqual(t, h.driver.disconnects, 1, "shutdown must leave the interface disconnected")
}

func TestRunFailsWhenInterfaceBusy(t *testing.T) {
	h := newHarness(t, "good")
	h.ident.claimErr = assert.AnError

	assert.Error(t, h.client.Run(context.Background()))
	assert.Empty(t, h.ident.releases)
}

func TestWiredShutdownSkipsWirelessTeardown(t *testing.T) {
	h := newHarness(t, "wired")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.client.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Zero(t, h.driver.disconnects)
}

func TestRunStaggersClaimByRoleRank(t *testing.T) {
	h := newHarness(t, "good")
	h.monitor.status = healthyStatus()
	h.monitor.healthy = true
	h.client.stagger = 40 * time.Millisecond // good ranks last, 80ms to the claim

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- h.client.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, h.ident.claimCount(), "good must leave the lower ranks their claim window")

	require.Eventually(t, func() bool { return h.ident.claimCount() == 1 },
		time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestWiredClaimsWithoutDelay(t *testing.T) {
	h := newHarness(t, "wired")
	h.client.stagger = time.Hour // any rank above zero would hang the test

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.client.Run(ctx) }()

	require.Eventually(t, func() bool { return h.ident.claimCount() == 1 },
		time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestSnapshotCarriesStatsAndIdentity(t *testing.T) {
	h := newHarness(t, "good")
	h.traffic.stats = domain.TrafficStats{DownloadBytes: 1234, UploadBytes: 56}

	snap := h.client.Snapshot()
	assert.Equal(t, "good", snap.Role)
	assert.Equal(t, "wlan0", snap.Interface)
	assert.Equal(t, "wifi-good-client", snap.Hostname)
	assert.Equal(t, int64(1234), snap.Stats.DownloadBytes)
}

func TestSnapshotConfigMasksPassphrase(t *testing.T) {
	h := newHarness(t, "good")

	cfg := h.client.Snapshot().Config
	assert.Equal(t, "lab-net", cfg.SSID)
	assert.Equal(t, "*************", cfg.Passphrase, "same length as the real passphrase, all asterisks")
	assert.NotContains(t, cfg.Passphrase, "correct-horse")
	assert.True(t, cfg.RoamingEnabled)
}
