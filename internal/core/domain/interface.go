package domain

import (
	"errors"
)

// Role classifies what a simulated client does on its interface.
type Role string

const (
	RoleGood  Role = "good"  // authenticated client with roaming
	RoleBad   Role = "bad"   // deliberately failing client
	RoleWired Role = "wired" // link + traffic only, no wireless
)

// Domain Errors for interfaces and roles.
var (
	ErrInvalidInterfaceName = errors.New("invalid interface name")
	ErrInvalidRole          = errors.New("invalid client role")
	ErrInvalidBSSID         = errors.New("invalid BSSID")
)

// WirelessInterface binds one NIC to a role and its claimed DHCP hostname.
// Built once at startup from configuration and never mutated afterwards.
type WirelessInterface struct {
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	Hostname string `json:"hostname"`
}

// NewWirelessInterface is the factory for creating valid interface entities.
func NewWirelessInterface(name string, role Role, hostname string) (WirelessInterface, error) {
	if !IsValidInterface(name) {
		return WirelessInterface{}, ErrInvalidInterfaceName
	}
	switch role {
	case RoleGood, RoleBad, RoleWired:
	default:
		return WirelessInterface{}, ErrInvalidRole
	}
	return WirelessInterface{Name: name, Role: role, Hostname: hostname}, nil
}

// Wireless reports whether this interface drives a radio at all.
func (w WirelessInterface) Wireless() bool {
	return w.Role != RoleWired
}

// ClaimOrder returns the fixed hostname-lock acquisition rank for the role.
// Wired claims first, then bad, then good, so two loops starting at the same
// moment never race for the same identity slot.
func (w WirelessInterface) ClaimOrder() int {
	switch w.Role {
	case RoleWired:
		return 0
	case RoleBad:
		return 1
	default:
		return 2
	}
}
