// Package inmemorystore provides a thread-safe, in-memory implementation of
// the nodestore.Store interface.
//
// # Concurrency Model
//
// The store uses sync.Map because:
//   - **Write-Heavy Workload:** every cook and every dirty mark updates a status
//   - **Independent Keys:** each node's state is independent of the others
//   - **Concurrent Reads + Writes:** expressions read outputs while other nodes cook
//
// Keeping status, output and error consistent with each other is the
// caller's job; the scene serializes its transitions.
package inmemorystore

import (
	"context"
	"sync"

	"github.com/vk/cookgrid/internal/nodeid"
	"github.com/vk/cookgrid/internal/nodestore"
	"github.com/zclconf/go-cty/cty"
)

// Store is an in-memory implementation of nodestore.Store.
//
// The store maintains three independent sync.Maps:
//   - states: node ID to nodestore.Status
//   - outputs: node ID to the cached cty.Value
//   - errors: node ID to the error of the last failed cook
type Store struct {
	states  sync.Map
	outputs sync.Map
	errors  sync.Map
}

// New creates a new, empty in-memory node state store.
func New() nodestore.Store {
	return &Store{}
}

// SetStatus updates the cook status of a specific node.
func (s *Store) SetStatus(_ context.Context, id nodeid.ID, status nodestore.Status) error {
	s.states.Store(id, status)
	return nil
}

// GetStatus retrieves the cook status of a specific node.
// If a status has not been set, it returns StatusDirty.
func (s *Store) GetStatus(_ context.Context, id nodeid.ID) (nodestore.Status, error) {
	status, ok := s.states.Load(id)
	if !ok {
		return nodestore.StatusDirty, nil
	}
	return status.(nodestore.Status), nil
}

// SetOutput records the output of a node.
func (s *Store) SetOutput(_ context.Context, id nodeid.ID, output cty.Value) error {
	s.outputs.Store(id, output)
	return nil
}

// GetOutput retrieves the recorded output of a node.
func (s *Store) GetOutput(_ context.Context, id nodeid.ID) (cty.Value, error) {
	output, ok := s.outputs.Load(id)
	if !ok {
		return cty.NilVal, nil
	}
	return output.(cty.Value), nil
}

// SetError records the failure error of a node; nil clears it.
func (s *Store) SetError(_ context.Context, id nodeid.ID, nodeErr error) error {
	if nodeErr == nil {
		s.errors.Delete(id)
		return nil
	}
	s.errors.Store(id, nodeErr)
	return nil
}

// GetError retrieves the recorded error of a failed node.
func (s *Store) GetError(_ context.Context, id nodeid.ID) (error, error) {
	err, ok := s.errors.Load(id)
	if !ok {
		return nil, nil
	}
	return err.(error), nil
}

// Delete removes all state recorded for a node.
func (s *Store) Delete(_ context.Context, id nodeid.ID) error {
	s.states.Delete(id)
	s.outputs.Delete(id)
	s.errors.Delete(id)
	return nil
}
