// Package nodestore defines the interface for storing and retrieving the
// mutable cook state of nodes: status, cached output and error.
//
// # Why Node Store Exists
//
// The node store isolates **mutable cook state** from the scene structure
// (hierarchy, wiring, parameters) and from the dependency graph kept by
// package dag. The scene decides when a node changes state; the store only
// records it, so cook results can be read while other nodes cook.
//
// # State Transitions
//
// Nodes follow this lifecycle:
//
//	Dirty → Cooking → Clean (with output) OR Errored (with error)
//	Clean | Errored → Dirty (when something upstream changes)
package nodestore

import (
	"context"

	"github.com/vk/cookgrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Store is the interface for managing the cook state of nodes.
//
// The node store is responsible for tracking:
//   - **Status**: Current cook state (Clean, Dirty, Cooking, Errored)
//   - **Output**: The value produced by the last successful cook
//   - **Error**: The error of the last failed cook
//
// # Thread-Safety Requirements
//
// Implementations MUST be thread-safe for concurrent reads and writes, as
// nodes cook on the goroutines of the callers asking for their outputs.
//
// # Typical Implementation
//
// See internal/inmemorystore for the reference in-memory implementation using
// sync.Map for fine-grained concurrent access without global lock contention.
type Store interface {
	// SetStatus updates the cook status of a node.
	SetStatus(ctx context.Context, id nodeid.ID, status Status) error

	// GetStatus retrieves the current cook status of a node.
	//
	// Returns StatusDirty if no status has been set for this node yet, since
	// a node that never cooked has nothing cached.
	GetStatus(ctx context.Context, id nodeid.ID) (Status, error)

	// SetOutput records the output of a successful cook.
	SetOutput(ctx context.Context, id nodeid.ID, output cty.Value) error

	// GetOutput retrieves the cached output of a node.
	//
	// Returns cty.NilVal if the node never cooked successfully. Callers must
	// check the status before trusting the value.
	GetOutput(ctx context.Context, id nodeid.ID) (cty.Value, error)

	// SetError records the error of a failed cook. A nil error clears it.
	SetError(ctx context.Context, id nodeid.ID, nodeErr error) error

	// GetError retrieves the recorded error of a failed node.
	//
	// Returns nil if the node's last cook succeeded or it never cooked.
	GetError(ctx context.Context, id nodeid.ID) (error, error)

	// Delete forgets everything recorded for a node.
	Delete(ctx context.Context, id nodeid.ID) error
}
