package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/cookgrid/internal/ctxlog"
	"github.com/vk/cookgrid/internal/registry"
	"github.com/vk/cookgrid/internal/scene"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Harness bundles a scene with everything a test needs to inspect it.
type Harness struct {
	Ctx      context.Context
	Registry *registry.Registry
	Scene    *scene.Scene
	Metrics  *prometheus.Registry
	Logs     *SafeBuffer
}

// NewHarness registers the modules, creates an empty scene and a context
// carrying a debug logger that writes into the harness buffer. Set
// COOKGRID_TEST_LOGS=true to dump the logs of every test.
func NewHarness(t *testing.T, modules ...registry.Module) *Harness {
	t.Helper()

	reg := registry.New()
	reg.RegisterModules(modules...)

	logs := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	metrics := prometheus.NewRegistry()
	h := &Harness{
		Ctx:      ctx,
		Registry: reg,
		Scene:    scene.New(reg, scene.WithRegisterer(metrics)),
		Metrics:  metrics,
		Logs:     logs,
	}
	t.Cleanup(func() {
		if os.Getenv("COOKGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return h
}

// Create adds a child of the given type under the root and fails the test
// on error.
func (h *Harness) Create(t *testing.T, typeName, name string) *scene.Node {
	t.Helper()
	n, err := h.Scene.Root().CreateChild(h.Ctx, typeName, name)
	if err != nil {
		t.Fatalf("create %s %q: %v", typeName, name, err)
	}
	return n
}

// Wire connects output 0 of source into slot index of n and fails the test
// on error.
func (h *Harness) Wire(t *testing.T, n *scene.Node, index int, source *scene.Node) {
	t.Helper()
	if err := n.SetInput(h.Ctx, index, source, 0); err != nil {
		t.Fatalf("wire %s into %s[%d]: %v", source.Path(), n.Path(), index, err)
	}
}

// Set sets a parameter and fails the test on error.
func (h *Harness) Set(t *testing.T, n *scene.Node, name, raw string) {
	t.Helper()
	if err := n.SetParam(h.Ctx, name, raw); err != nil {
		t.Fatalf("set %s.%s = %q: %v", n.Path(), name, raw, err)
	}
}
