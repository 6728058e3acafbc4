package domain

import (
	"net"
	"time"
)

// SessionState is the single active state of one interface's session.
type SessionState string

const (
	StateDisconnected SessionState = "disconnected"
	StateScanning     SessionState = "scanning"
	StateConnecting   SessionState = "connecting"
	StateConnected    SessionState = "connected"
	StateDegraded     SessionState = "degraded"
	StateRoaming      SessionState = "roaming"
)

// LinkStatus is the readback of what the managed layer says the interface is
// actually doing. It is the only input session decisions are made from; a
// tool's claim of success that is not reflected here does not count.
type LinkStatus struct {
	Associated bool
	SSID       string
	BSSID      string
	IPv4       net.IP
}

// Session tracks the engine's view of one interface's connection.
type Session struct {
	State         SessionState `json:"state"`
	SSID          string       `json:"ssid"`
	BSSID         string       `json:"bssid"`
	IPv4          string       `json:"ipv4"`
	LastRoam      time.Time    `json:"last_roam"`
	EstablishedAt time.Time    `json:"established_at"`
}

// Healthy is the three-way conjunction that defines Connected: link-layer
// association, an address on the interface, and the SSID we asked for.
// Partial matches are not Connected.
func (ls LinkStatus) Healthy(targetSSID string) bool {
	return ls.Associated && ls.IPv4 != nil && ls.SSID == targetSSID
}
