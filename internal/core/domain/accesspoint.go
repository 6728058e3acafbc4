package domain

import (
	"sort"
	"strings"
	"time"
)

// WiFiBand represents a typed string for frequency bands.
type WiFiBand string

const (
	Band24GHz WiFiBand = "2.4GHz"
	Band5GHz  WiFiBand = "5GHz"
	BandAny   WiFiBand = "any"
)

// DiscoveredAccessPoint is one (BSSID, SSID) tuple seen during a scan.
// Signal is always in dBm regardless of what the underlying tool reported.
type DiscoveredAccessPoint struct {
	BSSID     string   `json:"bssid"`
	SSID      string   `json:"ssid"`
	SignalDBM int      `json:"signal_dbm"`
	FreqMHz   int      `json:"freq_mhz"`
	Band      WiFiBand `json:"band"`
}

// ScanSnapshot is the full result of one scan cycle. Snapshots are replaced
// wholesale on every rescan, never merged, so a stale signal reading can
// never survive past its scan.
type ScanSnapshot struct {
	SSID  string                  `json:"ssid"`
	Taken time.Time               `json:"taken"`
	APs   []DiscoveredAccessPoint `json:"aps"`
}

// NormalizeBSSID lowercases a MAC so map keys and comparisons are stable.
func NormalizeBSSID(bssid string) string {
	return strings.ToLower(strings.TrimSpace(bssid))
}

// SignalPercentToDBM converts the 0-100 quality scale nmcli reports into an
// approximate dBm figure (the inverse of NetworkManager's own mapping).
func SignalPercentToDBM(pct int) int {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct/2 - 100
}

// BandForFrequency maps a channel frequency in MHz onto its band.
func BandForFrequency(freqMHz int) WiFiBand {
	if freqMHz >= 4900 {
		return Band5GHz
	}
	return Band24GHz
}

// MatchesBand reports whether the AP belongs to the requested band.
func (ap DiscoveredAccessPoint) MatchesBand(band WiFiBand) bool {
	return band == BandAny || band == "" || ap.Band == band
}

// Candidates returns the APs sorted strongest-first, ties broken by BSSID so
// repeated runs over the same snapshot always pick the same target.
func (s ScanSnapshot) Candidates() []DiscoveredAccessPoint {
	out := make([]DiscoveredAccessPoint, len(s.APs))
	copy(out, s.APs)
	sort.Slice(out, func(i, j int) bool {
		if out[i].SignalDBM != out[j].SignalDBM {
			return out[i].SignalDBM > out[j].SignalDBM
		}
		return out[i].BSSID < out[j].BSSID
	})
	return out
}

// Empty reports whether the scan completed but saw no matching APs. This is
// distinct from a scan failure, which never produces a snapshot at all.
func (s ScanSnapshot) Empty() bool {
	return len(s.APs) == 0
}
