package nm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/wifisim/internal/core/domain"
)

type scripted struct {
	out string
	err error
}

// fakeExec pops scripted responses in order and records every invocation.
type fakeExec struct {
	calls     [][]string
	responses []scripted
}

func (f *fakeExec) Run(_ context.Context, name string, args ...string) (string, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if len(f.responses) == 0 {
		return "", nil
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return r.out, r.err
}

func newAdapter(responses ...scripted) (*Adapter, *fakeExec) {
	fe := &fakeExec{responses: responses}
	return New(fe, slog.Default()), fe
}

func TestSplitTerse(t *testing.T) {
	fields := splitTerse(`LabNet:AA\:BB\:CC\:DD\:EE\:FF:84:2412 MHz`)
	require.Len(t, fields, 4)
	assert.Equal(t, "LabNet", fields[0])
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", fields[1])
	assert.Equal(t, "84", fields[2])
	assert.Equal(t, "2412 MHz", fields[3])
}

func TestParseDeviceShow(t *testing.T) {
	out := "GENERAL.STATE:100 (connected)\nIP4.ADDRESS[1]:192.168.1.23/24"
	status := parseDeviceShow(out)
	assert.True(t, status.Associated)
	assert.Equal(t, "192.168.1.23", status.IPv4.String())

	out = "GENERAL.STATE:30 (disconnected)\n"
	status = parseDeviceShow(out)
	assert.False(t, status.Associated)
	assert.Nil(t, status.IPv4)
}

func TestParseScanList(t *testing.T) {
	out := strings.Join([]string{
		`LabNet:AA\:BB\:CC\:DD\:EE\:01:70:2412 MHz`,
		`LabNet:AA\:BB\:CC\:DD\:EE\:02:84:5180 MHz`,
		`:AA\:BB\:CC\:DD\:EE\:03:50:2437 MHz`, // hidden SSID, dropped
		`Broken:not-a-bssid:50:2437 MHz`,      // invalid BSSID, dropped
	}, "\n")

	aps := parseScanList(out)
	require.Len(t, aps, 2)

	assert.Equal(t, "aa:bb:cc:dd:ee:01", aps[0].BSSID)
	assert.Equal(t, -65, aps[0].SignalDBM) // 70% -> -65 dBm
	assert.Equal(t, domain.Band24GHz, aps[0].Band)

	assert.Equal(t, "aa:bb:cc:dd:ee:02", aps[1].BSSID)
	assert.Equal(t, -58, aps[1].SignalDBM)
	assert.Equal(t, 5180, aps[1].FreqMHz)
	assert.Equal(t, domain.Band5GHz, aps[1].Band)
}

func TestStatusMergesActiveWifiRow(t *testing.T) {
	a, _ := newAdapter(
		scripted{out: "GENERAL.STATE:100 (connected)\nIP4.ADDRESS[1]:10.0.0.5/24"},
		scripted{out: `yes:LabNet:AA\:BB\:CC\:DD\:EE\:01:84:2412 MHz` + "\n" + `no:Other:AA\:BB\:CC\:DD\:EE\:02:60:2437 MHz`},
	)

	status, err := a.Status(context.Background(), "wlan0")
	require.NoError(t, err)
	assert.True(t, status.Associated)
	assert.Equal(t, "10.0.0.5", status.IPv4.String())
	assert.Equal(t, "LabNet", status.SSID)
	assert.Equal(t, "aa:bb:cc:dd:ee:01", status.BSSID)
}

func TestStatusToleratesWifiListFailure(t *testing.T) {
	a, _ := newAdapter(
		scripted{out: "GENERAL.STATE:100 (connected)\nIP4.ADDRESS[1]:10.0.0.5/24"},
		scripted{out: "Error: Device 'eth0' is not a Wi-Fi device.", err: errors.New("exit status 2")},
	)

	status, err := a.Status(context.Background(), "eth0")
	require.NoError(t, err)
	assert.True(t, status.Associated)
	assert.Empty(t, status.SSID)
}

func TestConnectClassifiesRejection(t *testing.T) {
	a, fe := newAdapter(scripted{
		out: "Error: Connection activation failed: Secrets were required, but not provided.",
		err: errors.New("exit status 4"),
	})

	err := a.Connect(context.Background(), "wlan1", "LabNet", "wrongpass", "", "")
	assert.ErrorIs(t, err, domain.ErrRejected)
	assert.Equal(t, []string{"nmcli", "device", "wifi", "connect", "LabNet",
		"password", "wrongpass", "ifname", "wlan1"}, fe.calls[0])
}

func TestConnectClassifiesTimeout(t *testing.T) {
	a, _ := newAdapter(scripted{out: "Error: Timeout expired.", err: errors.New("exit status 5")})
	err := a.Connect(context.Background(), "wlan0", "LabNet", "pass", "", "")
	assert.ErrorIs(t, err, domain.ErrAttemptTimeout)
}

func TestConnectWithBSSIDPinning(t *testing.T) {
	a, fe := newAdapter(scripted{out: "Device 'wlan0' successfully activated."})
	err := a.Connect(context.Background(), "wlan0", "LabNet", "pass", "aa:bb:cc:dd:ee:01", "")
	require.NoError(t, err)
	assert.Contains(t, fe.calls[0], "bssid")
	assert.Contains(t, fe.calls[0], "aa:bb:cc:dd:ee:01")
}

func TestConnectRejectsMalformedBSSID(t *testing.T) {
	a, fe := newAdapter()
	err := a.Connect(context.Background(), "wlan0", "LabNet", "pass", "nope", "")
	assert.ErrorIs(t, err, domain.ErrInvalidBSSID)
	assert.Empty(t, fe.calls, "malformed BSSID must never reach nmcli")
}

func TestProfileConnectSequence(t *testing.T) {
	a, fe := newAdapter(
		scripted{out: "Connection 'wifisim-roam' (uuid) successfully added."},
		scripted{out: ""},
		scripted{out: "Connection successfully activated."},
	)

	err := a.ProfileConnect(context.Background(), "wlan0", "wifisim-roam", "LabNet", "pass", "aa:bb:cc:dd:ee:01", "")
	require.NoError(t, err)
	require.Len(t, fe.calls, 3)
	assert.Equal(t, "add", fe.calls[0][2])
	assert.Equal(t, "modify", fe.calls[1][2])
	assert.Contains(t, fe.calls[1], "802-11-wireless.bssid")
	assert.Contains(t, fe.calls[1], "802-11-wireless-security.psk")
	assert.Equal(t, []string{"nmcli", "connection", "up", "wifisim-roam"}, fe.calls[2])
}

func TestConnectWritesDHCPHostnameOntoProfile(t *testing.T) {
	a, fe := newAdapter(
		scripted{out: "Device 'wlan0' successfully activated."},
		scripted{out: ""},
	)

	err := a.Connect(context.Background(), "wlan0", "LabNet", "pass", "", "wifi-good-client")
	require.NoError(t, err)
	require.Len(t, fe.calls, 2)
	assert.Equal(t, []string{"nmcli", "connection", "modify", "LabNet",
		"ipv4.dhcp-hostname", "wifi-good-client"}, fe.calls[1])
}

func TestConnectWithoutHostnameSkipsProfileModify(t *testing.T) {
	a, fe := newAdapter(scripted{out: "Device 'wlan0' successfully activated."})
	require.NoError(t, a.Connect(context.Background(), "wlan0", "LabNet", "pass", "", ""))
	require.Len(t, fe.calls, 1)
}

func TestProfileConnectSetsDHCPHostnameBeforeActivation(t *testing.T) {
	a, fe := newAdapter(
		scripted{out: "Connection 'wifisim-wlan0' (uuid) successfully added."},
		scripted{out: ""},
		scripted{out: "Connection successfully activated."},
	)

	err := a.ProfileConnect(context.Background(), "wlan0", "wifisim-wlan0", "LabNet", "pass", "", "wifi-good-client")
	require.NoError(t, err)
	require.Len(t, fe.calls, 3)
	assert.Contains(t, fe.calls[1], "ipv4.dhcp-hostname")
	assert.Contains(t, fe.calls[1], "wifi-good-client")
	assert.Equal(t, "up", fe.calls[2][2], "hostname must be on the profile before it goes up")
}

func TestDeleteProfileUnknownIsNotAnError(t *testing.T) {
	a, _ := newAdapter(scripted{
		out: "Error: unknown connection 'wifisim-roam'.",
		err: errors.New("exit status 10"),
	})
	assert.NoError(t, a.DeleteProfile(context.Background(), "wifisim-roam"))
}

func TestDisconnectInactiveIsNotAnError(t *testing.T) {
	a, _ := newAdapter(scripted{
		out: "Error: Device 'wlan1' is not active.",
		err: errors.New("exit status 10"),
	})
	assert.NoError(t, a.Disconnect(context.Background(), "wlan1"))
}
