// Package usage supplies per-user usage snapshots for limit evaluation.
//
// The production source reads counters maintained by the access layer in
// Redis. A snapshot is a point-in-time read; the evaluator never mutates
// usage.
package usage

import (
	"context"

	"halcyon-net/warden/pkg/limits"
)

// Source produces usage snapshots for users.
type Source interface {
	// Snapshot returns the current usage for a user across all limit
	// kinds. A user with no recorded usage gets a zero-valued snapshot;
	// an unreachable backend yields an error wrapping
	// limits.ErrUsageUnavailable.
	Snapshot(ctx context.Context, username string) (limits.Usage, error)

	// Close releases backend resources.
	Close() error
}
