package domain

import (
	"time"
)

// AuthOutcome classifies the result of one deliberate bad-credential attempt.
type AuthOutcome string

const (
	// RejectedAsExpected is the desired outcome for the bad client.
	RejectedAsExpected AuthOutcome = "rejected_as_expected"
	// UnexpectedSuccess means a wrong credential authenticated. This is a
	// first-class anomaly: it must be reversed and logged at error level,
	// never treated as a success state.
	UnexpectedSuccess AuthOutcome = "unexpected_success"
	// Inconclusive covers timeouts and tool failures where neither a
	// rejection nor an association was observed.
	Inconclusive AuthOutcome = "inconclusive"
)

// AttackPattern names the shape of a bad-client attempt sequence.
type AttackPattern string

const (
	PatternRapidFire    AttackPattern = "rapid_fire"
	PatternDictionary   AttackPattern = "dictionary"
	PatternSSIDDerived  AttackPattern = "ssid_derived"
	PatternConnectCycle AttackPattern = "connect_cycle"
)

// RoamEvent records one migration between BSSIDs under the same SSID.
// Append-only; kept for observability, never consulted for decisions.
type RoamEvent struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	Interface       string    `gorm:"index" json:"interface"`
	FromBSSID       string    `json:"from_bssid"`
	ToBSSID         string    `json:"to_bssid"`
	ResultingSignal int       `json:"resulting_signal_dbm"`
	Timestamp       time.Time `gorm:"index" json:"timestamp"`
}

// AuthAttempt records one deliberate authentication failure. The tried
// password is stored redacted; only its length survives.
type AuthAttempt struct {
	ID             uint          `gorm:"primaryKey" json:"-"`
	Interface      string        `gorm:"index" json:"interface"`
	CycleID        string        `gorm:"index" json:"cycle_id"`
	Pattern        AttackPattern `json:"pattern"`
	PasswordLength int           `json:"password_length"`
	Outcome        AuthOutcome   `json:"outcome"`
	Timestamp      time.Time     `gorm:"index" json:"timestamp"`
}

// Redact builds the stored form of a tried password.
func Redact(password string) int {
	return len(password)
}
