package supplicant

import (
	"crypto/sha1"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

// DerivePSK computes the WPA-PSK for a passphrase and SSID (PBKDF2-SHA1,
// 4096 rounds, 32 bytes), the same derivation wpa_passphrase performs.
// Feeding the supplicant a precomputed hex key keeps the plaintext
// passphrase out of the generated config.
func DerivePSK(ssid, passphrase string) string {
	key := pbkdf2.Key([]byte(passphrase), []byte(ssid), 4096, 32, sha1.New)
	return hex.EncodeToString(key)
}

// UsableAsPSK reports whether the passphrase falls inside the 8..63 byte
// window the WPA derivation is defined for. Outside it the config falls back
// to a quoted literal and lets the supplicant reject it.
func UsableAsPSK(passphrase string) bool {
	return len(passphrase) >= 8 && len(passphrase) <= 63
}
