package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalPercentToDBM(t *testing.T) {
	assert.Equal(t, -100, SignalPercentToDBM(0))
	assert.Equal(t, -50, SignalPercentToDBM(100))
	assert.Equal(t, -70, SignalPercentToDBM(60))
	// Out-of-range values clamp instead of producing nonsense
	assert.Equal(t, -100, SignalPercentToDBM(-5))
	assert.Equal(t, -50, SignalPercentToDBM(140))
}

func TestBandForFrequency(t *testing.T) {
	assert.Equal(t, Band24GHz, BandForFrequency(2412))
	assert.Equal(t, Band24GHz, BandForFrequency(2484))
	assert.Equal(t, Band5GHz, BandForFrequency(5180))
	assert.Equal(t, Band5GHz, BandForFrequency(5825))
}

func TestNormalizeBSSID(t *testing.T) {
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", NormalizeBSSID(" AA:BB:CC:DD:EE:FF "))
}

func TestSnapshotCandidatesDeterministic(t *testing.T) {
	snap := ScanSnapshot{
		SSID: "LabNet",
		APs: []DiscoveredAccessPoint{
			{BSSID: "cc:cc:cc:cc:cc:cc", SignalDBM: -60},
			{BSSID: "bb:bb:bb:bb:bb:bb", SignalDBM: -40},
			{BSSID: "aa:aa:aa:aa:aa:aa", SignalDBM: -40},
		},
	}

	got := snap.Candidates()
	assert.Equal(t, "aa:aa:aa:aa:aa:aa", got[0].BSSID, "ties break lexicographically")
	assert.Equal(t, "bb:bb:bb:bb:bb:bb", got[1].BSSID)
	assert.Equal(t, "cc:cc:cc:cc:cc:cc", got[2].BSSID)

	// Original snapshot order untouched
	assert.Equal(t, "cc:cc:cc:cc:cc:cc", snap.APs[0].BSSID)
}

func TestLinkStatusHealthy(t *testing.T) {
	full := LinkStatus{Associated: true, SSID: "LabNet", BSSID: "aa:aa:aa:aa:aa:aa", IPv4: []byte{192, 168, 1, 10}}
	assert.True(t, full.Healthy("LabNet"))

	noIP := full
	noIP.IPv4 = nil
	assert.False(t, noIP.Healthy("LabNet"))

	wrongSSID := full
	wrongSSID.SSID = "OtherNet"
	assert.False(t, wrongSSID.Healthy("LabNet"))

	notAssociated := full
	notAssociated.Associated = false
	assert.False(t, notAssociated.Healthy("LabNet"))
}

func TestTrafficStatsMonotonic(t *testing.T) {
	var s TrafficStats
	s.AddDownload(1000)
	s.AddUpload(200)
	s.AddDownload(-50)
	s.AddUpload(0)
	assert.Equal(t, int64(1000), s.DownloadBytes)
	assert.Equal(t, int64(200), s.UploadBytes)

	// Restart reconciliation keeps the maximum of each counter
	var fresh TrafficStats
	fresh.AddUpload(50)
	fresh.Merge(s)
	assert.Equal(t, int64(1000), fresh.DownloadBytes)
	assert.Equal(t, int64(200), fresh.UploadBytes)
}
