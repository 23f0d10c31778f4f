// Package persistence is the external collaborator that durably stores
// save_state() snapshots (spec §6, "persistence" collaborator
// interface). The core runtime never imports this package: a host wires
// a SnapshotStore alongside the engine of its own accord.
package persistence

import (
	"context"

	"github.com/weave-lang/weave/pkg/runtime"
)

// SnapshotStore persists opaque runtime.Snapshot values keyed by a
// story id and a caller-chosen session id (one player's save slot).
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, storyID, sessionID string, snap runtime.Snapshot) error
	LoadSnapshot(ctx context.Context, storyID, sessionID string) (runtime.Snapshot, error)
	DeleteSnapshot(ctx context.Context, storyID, sessionID string) error
}
