package domain

// Credentials is the target network identity loaded from the external
// two-line config file. Re-read periodically; a zero value means the file is
// missing or incomplete and the engine should wait, not fail.
type Credentials struct {
	SSID       string
	Passphrase string
}

// IsZero reports whether no usable target is configured yet.
func (c Credentials) IsZero() bool {
	return c.SSID == ""
}

// Masked returns the passphrase replaced by asterisks for status output.
func (c Credentials) Masked() string {
	if c.Passphrase == "" {
		return ""
	}
	out := make([]byte, len(c.Passphrase))
	for i := range out {
		out[i] = '*'
	}
	return string(out)
}
