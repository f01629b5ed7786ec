package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/vk/cookgrid/internal/connection"
	"github.com/vk/cookgrid/internal/param"
	"github.com/vk/cookgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// GatedModule registers a "gated" node type whose cook blocks until the
// test releases it. It records every cook so tests can count them.
type GatedModule struct {
	mu      sync.Mutex
	records []ExecutionRecord
	started chan string
	release chan struct{}
}

// NewGatedModule creates a gated module. Cooks announce themselves on
// Started and block until Release is called.
func NewGatedModule() *GatedModule {
	return &GatedModule{
		started: make(chan string, 16),
		release: make(chan struct{}),
	}
}

// Register registers the "gated" node type, which outputs its "value"
// parameter.
func (m *GatedModule) Register(r *registry.Registry) {
	r.RegisterNodeType("gated", func() registry.Kind { return registry.KindFunc(m.cook) }, registry.TypeOptions{
		IO: connection.Declaration{
			Outputs: []connection.Point{connection.NewOutput("out", connection.TypeFloat)},
		},
		Params: []param.Spec{param.Float("value", "1")},
	})
}

func (m *GatedModule) cook(ctx context.Context, cc registry.CookContext) (cty.Value, error) {
	start := time.Now()
	m.started <- cc.NodePath()
	select {
	case <-m.release:
	case <-ctx.Done():
		return cty.NilVal, ctx.Err()
	}
	v, err := cc.Param(ctx, "value")

	m.mu.Lock()
	m.records = append(m.records, ExecutionRecord{Start: start, End: time.Now()})
	m.mu.Unlock()
	return v, err
}

// Started delivers the path of each node as its cook begins.
func (m *GatedModule) Started() <-chan string { return m.started }

// Release unblocks every current and future cook.
func (m *GatedModule) Release() { close(m.release) }

// Cooks returns the number of finished cooks.
func (m *GatedModule) Cooks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
