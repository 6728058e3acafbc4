// Package connection implements the ordered connection fallback: a direct
// managed connect, then an ephemeral pinned profile, then the raw supplicant.
// Every rung is verified by reading session state back from the layer that
// claims to hold it; an unverified success is reversed, not trusted.
package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lcalzada-xor/wifisim/internal/core/domain"
	"github.com/lcalzada-xor/wifisim/internal/core/ports"
	"github.com/lcalzada-xor/wifisim/internal/telemetry"
)

// Driver implements ports.Driver.
type Driver struct {
	managed        ports.Managed
	supplicant     ports.Supplicant
	log            *slog.Logger
	attemptTimeout time.Duration

	mu         sync.Mutex
	lastMethod map[string]ports.ConnectMethod
}

// New creates the fallback driver. attemptTimeout bounds the whole fallback
// chain, not each individual method.
func New(managed ports.Managed, supplicant ports.Supplicant, logger *slog.Logger, attemptTimeout time.Duration) *Driver {
	return &Driver{
		managed:        managed,
		supplicant:     supplicant,
		log:            logger,
		attemptTimeout: attemptTimeout,
		lastMethod:     make(map[string]ports.ConnectMethod),
	}
}

// Connect walks the fallback chain until one method produces a verified
// session, under one shared deadline. DirectOnly requests stop after the
// first rung.
func (d *Driver) Connect(ctx context.Context, req ports.ConnectRequest) (ports.ConnectResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
	defer cancel()

	methods := []ports.ConnectMethod{ports.MethodDirect}
	if !req.DirectOnly {
		methods = append(methods, ports.MethodProfile, ports.MethodSupplicant)
	}

	var lastErr error
	for _, method := range methods {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return ports.ConnectResult{}, fmt.Errorf("%w: connect budget of %v exhausted",
					domain.ErrAttemptTimeout, d.attemptTimeout)
			}
			return ports.ConnectResult{}, err
		}

		status, err := d.attempt(ctx, method, req)
		if err == nil {
			d.mu.Lock()
			d.lastMethod[req.Interface] = method
			d.mu.Unlock()
			telemetry.ConnectAttempts.WithLabelValues(req.Interface, string(method), "success").Inc()
			d.log.Info("connection established",
				"method", string(method), "ssid", req.SSID, "bssid", status.BSSID, "ip", status.IPv4.String())
			return ports.ConnectResult{Method: method, Status: status}, nil
		}

		lastErr = err
		telemetry.ConnectAttempts.WithLabelValues(req.Interface, string(method), outcomeLabel(err)).Inc()
		d.log.Warn("connection method failed", "method", string(method), "ssid", req.SSID, "error", err)
	}
	return ports.ConnectResult{}, lastErr
}

func (d *Driver) attempt(ctx context.Context, method ports.ConnectMethod, req ports.ConnectRequest) (domain.LinkStatus, error) {
	switch method {
	case ports.MethodDirect:
		if err := d.managed.Connect(ctx, req.Interface, req.SSID, req.Password, req.BSSID, req.Hostname); err != nil {
			return domain.LinkStatus{}, err
		}
		return d.verifyManaged(ctx, req)

	case ports.MethodProfile:
		profile := "wifisim-" + req.Interface
		defer func() {
			if err := d.managed.DeleteProfile(context.WithoutCancel(ctx), profile); err != nil {
				d.log.Warn("ephemeral profile cleanup failed", "profile", profile, "error", err)
			}
		}()
		if err := d.managed.ProfileConnect(ctx, req.Interface, profile, req.SSID, req.Password, req.BSSID, req.Hostname); err != nil {
			return domain.LinkStatus{}, err
		}
		return d.verifyManaged(ctx, req)

	case ports.MethodSupplicant:
		return d.attemptSupplicant(ctx, req)
	}
	return domain.LinkStatus{}, fmt.Errorf("%w: unknown connect method %q", domain.ErrToolFailure, method)
}

// attemptSupplicant hands the device out of the managed layer for the
// duration of the attempt and hands it back on any failure. On success the
// device stays unmanaged; Disconnect restores it.
func (d *Driver) attemptSupplicant(ctx context.Context, req ports.ConnectRequest) (domain.LinkStatus, error) {
	if err := d.managed.SetManaged(ctx, req.Interface, false); err != nil {
		return domain.LinkStatus{}, err
	}

	fail := func(err error) (domain.LinkStatus, error) {
		cleanup := context.WithoutCancel(ctx)
		if terr := d.supplicant.Teardown(cleanup, req.Interface); terr != nil {
			d.log.Warn("supplicant teardown failed", "error", terr)
		}
		if merr := d.managed.SetManaged(cleanup, req.Interface, true); merr != nil {
			d.log.Warn("returning device to managed layer failed", "error", merr)
		}
		return domain.LinkStatus{}, err
	}

	if err := d.supplicant.Associate(ctx, req.Interface, req.SSID, req.Password, req.BSSID, req.Hostname); err != nil {
		return fail(err)
	}

	status, err := d.supplicant.Status(ctx, req.Interface)
	if err != nil {
		return fail(err)
	}
	if err := verify(status, req); err != nil {
		return fail(err)
	}
	return status, nil
}

// verifyManaged reads session state back from the managed layer and reverses
// the connection when the readback does not match the request.
func (d *Driver) verifyManaged(ctx context.Context, req ports.ConnectRequest) (domain.LinkStatus, error) {
	status, err := d.managed.Status(ctx, req.Interface)
	if err != nil {
		return domain.LinkStatus{}, err
	}
	if err := verify(status, req); err != nil {
		if derr := d.managed.Disconnect(context.WithoutCancel(ctx), req.Interface); derr != nil {
			d.log.Warn("reversing unverified connection failed", "error", derr)
		}
		return domain.LinkStatus{}, err
	}
	return status, nil
}

func verify(status domain.LinkStatus, req ports.ConnectRequest) error {
	if !status.Healthy(req.SSID) {
		return fmt.Errorf("%w: wanted ssid %q, readback ssid %q associated=%t ip=%v",
			domain.ErrVerifyMismatch, req.SSID, status.SSID, status.Associated, status.IPv4)
	}
	if req.BSSID != "" && domain.NormalizeBSSID(status.BSSID) != domain.NormalizeBSSID(req.BSSID) {
		return fmt.Errorf("%w: wanted bssid %s, readback %s", domain.ErrVerifyMismatch, req.BSSID, status.BSSID)
	}
	return nil
}

// Disconnect tears down the session through whichever layer holds it.
func (d *Driver) Disconnect(ctx context.Context, iface string) error {
	d.mu.Lock()
	method := d.lastMethod[iface]
	delete(d.lastMethod, iface)
	d.mu.Unlock()

	if method == ports.MethodSupplicant {
		if err := d.supplicant.Teardown(ctx, iface); err != nil {
			return err
		}
		return d.managed.SetManaged(ctx, iface, true)
	}
	return d.managed.Disconnect(ctx, iface)
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrRejected):
		return "rejected"
	case errors.Is(err, domain.ErrAttemptTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrVerifyMismatch):
		return "verify_mismatch"
	default:
		return "error"
	}
}
