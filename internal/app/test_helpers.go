package app

import (
	"os"
	"testing"

	"github.com/vk/cookgrid/internal/registry"
	"github.com/vk/cookgrid/internal/testutil"
)

// SetupAppTest creates an app for system tests. Its results and logs are
// captured in the returned buffers.
func SetupAppTest(t *testing.T, cfg Config, modules ...registry.Module) (*App, *testutil.SafeBuffer, *testutil.SafeBuffer) {
	t.Helper()

	cfg.LogLevel = "debug"
	config, err := NewConfig(cfg)
	if err != nil {
		t.Fatalf("invalid test config: %v", err)
	}

	out := &testutil.SafeBuffer{}
	logs := &testutil.SafeBuffer{}
	testApp := NewApp(out, logs, config, modules...)

	t.Cleanup(func() {
		if os.Getenv("COOKGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return testApp, out, logs
}
