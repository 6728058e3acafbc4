// Package traffic performs the representative application transfers for one
// interface: a bounded download, a bounded upload and ICMP probes. Transfers
// report the byte counts that feed the persisted stats.
package traffic

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/lcalzada-xor/wifisim/internal/core/domain"
	"github.com/lcalzada-xor/wifisim/internal/core/ports"
)

// Runner implements ports.TrafficRunner.
type Runner struct {
	client      *http.Client
	exec        ports.Executor
	log         *slog.Logger
	downloadURL string
	uploadURL   string
	maxBytes    int64
}

// NewRunner creates a traffic runner. Timeouts come from the per-call
// contexts, not the client, so each sub-task stays independently bounded.
func NewRunner(exec ports.Executor, logger *slog.Logger, downloadURL, uploadURL string, maxBytes int64) *Runner {
	return &Runner{
		client:      &http.Client{},
		exec:        exec,
		log:         logger,
		downloadURL: downloadURL,
		uploadURL:   uploadURL,
		maxBytes:    maxBytes,
	}
}

// SetURLs updates the transfer endpoints from re-read settings.
func (r *Runner) SetURLs(downloadURL, uploadURL string, maxBytes int64) {
	r.downloadURL = downloadURL
	r.uploadURL = uploadURL
	r.maxBytes = maxBytes
}

// Download fetches at most maxBytes from the download URL and returns how
// many bytes actually arrived.
func (r *Runner) Download(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.downloadURL, nil)
	if err != nil {
		return 0, fmt.Errorf("building download request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: download: %v", domain.ErrToolFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("%w: download: HTTP %d", domain.ErrToolFailure, resp.StatusCode)
	}

	n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, r.maxBytes))
	if err != nil && n == 0 {
		return 0, fmt.Errorf("%w: download body: %v", domain.ErrToolFailure, err)
	}
	// A partial body still moved n bytes over the air; count them.
	return n, nil
}

// Upload posts a bounded payload and returns its size on success.
func (r *Runner) Upload(ctx context.Context) (int64, error) {
	size := r.maxBytes
	if size > 256<<10 {
		size = 256 << 10
	}
	payload := bytes.Repeat([]byte("wifisim-traffic-"), int(size/16)+1)[:size]

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.uploadURL, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: upload: %v", domain.ErrToolFailure, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("%w: upload: HTTP %d", domain.ErrToolFailure, resp.StatusCode)
	}
	return int64(len(payload)), nil
}

// Ping sends a short ICMP burst at the target from the given interface.
func (r *Runner) Ping(ctx context.Context, iface, target string) error {
	out, err := r.exec.Run(ctx, "ping", "-c", "3", "-W", "2", "-I", iface, target)
	if err != nil {
		return fmt.Errorf("%w: ping %s: %v", domain.ErrToolFailure, target, err)
	}
	r.log.Debug("ping completed", "target", target, "output_len", len(out))
	return nil
}
