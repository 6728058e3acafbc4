package supplicant

import (
	"fmt"
	"strings"

	"github.com/lcalzada-xor/wifisim/internal/core/domain"
)

// generateConfig renders a single-network wpa_supplicant config. Passphrases
// in the WPA window are written as a derived hex PSK; anything else goes in
// quoted (escaped) so a hostile SSID or password cannot break out of the
// config syntax.
func generateConfig(ssid, password, bssid string) string {
	var b strings.Builder
	b.WriteString("ctrl_interface=" + ctrlDir + "\n\n")
	b.WriteString("network={\n")
	fmt.Fprintf(&b, "\tssid=\"%s\"\n", escapeConfigString(ssid))

	switch {
	case password == "":
		b.WriteString("\tkey_mgmt=NONE\n")
	case UsableAsPSK(password):
		fmt.Fprintf(&b, "\tpsk=%s\n", DerivePSK(ssid, password))
	default:
		fmt.Fprintf(&b, "\tpsk=\"%s\"\n", escapeConfigString(password))
	}

	if bssid != "" && domain.IsValidBSSID(bssid) {
		fmt.Fprintf(&b, "\tbssid=%s\n", domain.NormalizeBSSID(bssid))
	}
	b.WriteString("}\n")
	return b.String()
}

// escapeConfigString neutralizes quotes, backslashes and newlines in values
// embedded into the generated config.
func escapeConfigString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	return s
}
