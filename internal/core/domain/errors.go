package domain

import (
	"errors"
)

// Error taxonomy for connection and scan outcomes. Callers branch on these
// with errors.Is; adapters wrap them with context via fmt.Errorf and %w.
var (
	// ErrRejected is an explicit authentication/association refusal from
	// the infrastructure. Expected for the bad client, a recovery trigger
	// for the good one.
	ErrRejected = errors.New("connection rejected")

	// ErrAttemptTimeout means the attempt exceeded its deadline without an
	// explicit rejection. Kept distinct so retry policy can differ.
	ErrAttemptTimeout = errors.New("connection attempt timed out")

	// ErrVerifyMismatch means the tool reported success but the readback
	// BSSID/SSID did not match the requested target. Treated as failure and
	// actively reversed, never left standing.
	ErrVerifyMismatch = errors.New("post-connect verification mismatch")

	// ErrToolFailure means the underlying tool itself errored or produced
	// unparseable output.
	ErrToolFailure = errors.New("network tool failure")

	// ErrNoAccessPoints is the explicit empty-scan signal: the scan worked
	// and saw nothing matching. Not a failure.
	ErrNoAccessPoints = errors.New("no matching access points visible")

	// ErrScanUnavailable surfaces after bounded retries of a failing scan
	// tool. Distinct from ErrNoAccessPoints by construction.
	ErrScanUnavailable = errors.New("scan unavailable")

	// ErrNoCredentials means the external credential file is missing or
	// incomplete. A wait condition, never fatal.
	ErrNoCredentials = errors.New("no credentials configured")
)
