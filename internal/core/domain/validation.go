package domain

import (
	"regexp"
)

// Validation Helpers

var (
	bssidRegex     = regexp.MustCompile(`^[0-9a-fA-F]{2}(:[0-9a-fA-F]{2}){5}$`)
	interfaceRegex = regexp.MustCompile(`^[a-zA-Z0-9\-_]+$`)
	hostnameRegex  = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?$`)
)

// IsValidBSSID checks for exactly six colon-separated hex octets. Anything
// else is rejected before it can reach a generated tool invocation.
func IsValidBSSID(bssid string) bool {
	return bssidRegex.MatchString(bssid)
}

// IsValidInterface checks if the string is a safe interface name (alphanumeric + - _)
func IsValidInterface(iface string) bool {
	// Linux interface names are capped at IFNAMSIZ (16)
	if len(iface) == 0 || len(iface) > 16 {
		return false
	}
	return interfaceRegex.MatchString(iface)
}

// IsValidHostname checks a single DNS label, which is all a DHCP hostname
// option may carry.
func IsValidHostname(name string) bool {
	if len(name) == 0 || len(name) > 63 {
		return false
	}
	return hostnameRegex.MatchString(name)
}
