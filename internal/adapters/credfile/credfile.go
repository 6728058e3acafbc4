// Package credfile reads the external two-line credential file: SSID on the
// first line, passphrase on the second. The file is owned by the dashboard
// and may change at any time; the engine re-reads it every cycle.
package credfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/lcalzada-xor/wifisim/internal/core/domain"
)

// Source implements ports.CredentialSource over a file path.
type Source struct {
	Path string
}

// New creates a credential source for the given file.
func New(path string) *Source {
	return &Source{Path: path}
}

// Load re-reads the file. A missing or incomplete file returns
// domain.ErrNoCredentials so callers treat it as a wait condition.
func (s *Source) Load() (domain.Credentials, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Credentials{}, domain.ErrNoCredentials
		}
		return domain.Credentials{}, fmt.Errorf("reading credential file: %w", err)
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return domain.Credentials{}, domain.ErrNoCredentials
	}

	creds := domain.Credentials{
		SSID:       strings.TrimSpace(lines[0]),
		Passphrase: strings.TrimSpace(lines[1]),
	}
	if creds.IsZero() {
		return domain.Credentials{}, domain.ErrNoCredentials
	}
	return creds, nil
}
