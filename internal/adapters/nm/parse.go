package nm

import (
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/lcalzada-xor/wifisim/internal/core/domain"
)

var (
	stateRegex = regexp.MustCompile(`GENERAL\.STATE:(\d+)`)
	ip4Regex   = regexp.MustCompile(`IP4\.ADDRESS\[\d+\]:(\d+\.\d+\.\d+\.\d+)/\d+`)
)

// parseDeviceShow extracts device state and IPv4 address from the terse
// `nmcli -t -f GENERAL.STATE,IP4.ADDRESS device show` output.
func parseDeviceShow(out string) domain.LinkStatus {
	var status domain.LinkStatus

	if m := stateRegex.FindStringSubmatch(out); len(m) > 1 {
		// NetworkManager device states: 100 = connected (NM_DEVICE_STATE_ACTIVATED)
		if code, err := strconv.Atoi(m[1]); err == nil {
			status.Associated = code >= 100
		}
	}
	if m := ip4Regex.FindStringSubmatch(out); len(m) > 1 {
		status.IPv4 = net.ParseIP(m[1])
	}
	return status
}

// parseActiveRow finds the ACTIVE:yes row of a terse wifi list and returns
// its SSID and BSSID.
func parseActiveRow(out string) (ssid, bssid string, ok bool) {
	for _, line := range strings.Split(out, "\n") {
		fields := splitTerse(line)
		if len(fields) >= 3 && fields[0] == "yes" {
			return fields[1], fields[2], true
		}
	}
	return "", "", false
}

// parseScanList parses terse SSID:BSSID:SIGNAL:FREQ rows into domain APs.
// Hidden networks (empty SSID) are dropped; percent signal is normalized to
// dBm; frequency strings like "2412 MHz" lose their unit suffix.
func parseScanList(out string) []domain.DiscoveredAccessPoint {
	var aps []domain.DiscoveredAccessPoint
	for _, line := range strings.Split(out, "\n") {
		fields := splitTerse(line)
		if len(fields) < 4 || fields[0] == "" {
			continue
		}
		bssid := domain.NormalizeBSSID(fields[1])
		if !domain.IsValidBSSID(bssid) {
			continue
		}
		pct, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		freq := parseFreqMHz(fields[3])

		aps = append(aps, domain.DiscoveredAccessPoint{
			SSID:      fields[0],
			BSSID:     bssid,
			SignalDBM: domain.SignalPercentToDBM(pct),
			FreqMHz:   freq,
			Band:      domain.BandForFrequency(freq),
		})
	}
	return aps
}

func parseFreqMHz(s string) int {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "MHz"))
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

// splitTerse splits an nmcli -t line on unescaped colons. nmcli escapes
// literal colons (BSSIDs) and backslashes inside terse fields.
func splitTerse(line string) []string {
	var fields []string
	var cur strings.Builder
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ':':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	fields = append(fields, cur.String())
	return fields
}
