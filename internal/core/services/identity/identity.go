// Package identity enforces the one-client-per-interface rule through lock
// files. A lock names the holder's hostname, pid and claim time; locks left
// behind by a dead process go stale and are reclaimed instead of wedging the
// interface forever.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const staleAfter = 5 * time.Minute

// ErrInterfaceBusy means another live client already holds the interface.
var ErrInterfaceBusy = errors.New("interface already claimed")

type lockRecord struct {
	Hostname  string    `json:"hostname"`
	PID       int       `json:"pid"`
	Timestamp time.Time `json:"timestamp"`
}

// Locker implements ports.Identity over a lock directory.
type Locker struct {
	dir string
	log *slog.Logger

	now func() time.Time
	pid func() int
}

// New creates a locker rooted at dir.
func New(dir string, logger *slog.Logger) *Locker {
	return &Locker{dir: dir, log: logger, now: time.Now, pid: os.Getpid}
}

// Claim takes the interface for this process. Creation with O_EXCL is the
// claim itself: of two racing claimers exactly one creates the lock file, the
// loser sees EEXIST and inspects the holder. A fresh lock held by another pid
// yields ErrInterfaceBusy; a stale or own lock is removed and the exclusive
// create retried once.
func (l *Locker) Claim(iface, hostname string) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}
	path := l.path(iface)

	record := lockRecord{Hostname: hostname, PID: l.pid(), Timestamp: l.now()}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding lock record: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		err := l.create(path, data)
		if err == nil {
			l.log.Info("interface claimed", "interface", iface, "hostname", hostname)
			return nil
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("writing lock file: %w", err)
		}

		existing, rerr := l.read(path)
		switch {
		case rerr == nil && existing.PID == record.PID:
			// Our own earlier lock; replace it.
		case rerr == nil && l.now().Sub(existing.Timestamp) < staleAfter:
			return fmt.Errorf("%w: held by %s (pid %d)", ErrInterfaceBusy, existing.Hostname, existing.PID)
		case rerr == nil:
			l.log.Warn("reclaiming stale interface lock",
				"interface", iface, "stale_holder", existing.Hostname, "stale_pid", existing.PID)
		default:
			// Unreadable lock. The file clock tells a crashed holder apart
			// from one still mid-write.
			if info, serr := os.Stat(path); serr == nil && l.now().Sub(info.ModTime()) < staleAfter {
				return fmt.Errorf("%w: unreadable lock on %s", ErrInterfaceBusy, iface)
			}
			l.log.Warn("reclaiming unreadable interface lock", "interface", iface)
		}

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing stale lock: %w", err)
		}
	}
	return fmt.Errorf("%w: lock on %s recreated during reclaim", ErrInterfaceBusy, iface)
}

// create writes the lock record behind an exclusive create, so the file's
// existence and its content become visible together or not at all.
func (l *Locker) create(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// Release drops this process's lock. A lock held by someone else is left
// alone.
func (l *Locker) Release(iface string) error {
	path := l.path(iface)
	existing, err := l.read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		// Unreadable lock that we might own; remove it rather than leak.
		return os.Remove(path)
	}
	if existing.PID != l.pid() {
		l.log.Warn("not releasing lock held by another process",
			"interface", iface, "holder_pid", existing.PID)
		return nil
	}
	return os.Remove(path)
}

func (l *Locker) path(iface string) string {
	return filepath.Join(l.dir, iface+".lock")
}

func (l *Locker) read(path string) (lockRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return lockRecord{}, err
	}
	var rec lockRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return lockRecord{}, err
	}
	return rec, nil
}
