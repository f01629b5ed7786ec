package env_vars_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/cookgrid/internal/scene"
	"github.com/vk/cookgrid/internal/testutil"
	"github.com/vk/cookgrid/modules/env_vars"
	"github.com/zclconf/go-cty/cty"
)

func TestEnvVar(t *testing.T) {
	t.Setenv("COOKGRID_TEST_GREETING", "hello")
	h := testutil.NewHarness(t, &env_vars.Module{})
	n := h.Create(t, "env_vars", "greeting")
	h.Set(t, n, "name", "COOKGRID_TEST_GREETING")

	v, err := n.Compute(h.Ctx)
	require.NoError(t, err)
	testutil.RequireValue(t, cty.StringVal("hello"), v)
}

func TestEnvVar_Default(t *testing.T) {
	h := testutil.NewHarness(t, &env_vars.Module{})
	n := h.Create(t, "env_vars", "missing")
	h.Set(t, n, "name", "COOKGRID_TEST_UNSET_VARIABLE")
	h.Set(t, n, "default", "fallback")

	v, err := n.Compute(h.Ctx)
	require.NoError(t, err)
	testutil.RequireValue(t, cty.StringVal("fallback"), v)

	h.Set(t, n, "required", "true")
	_, err = n.Compute(h.Ctx)
	var cerr *scene.ComputeError
	require.ErrorAs(t, err, &cerr)
	require.ErrorContains(t, err, "COOKGRID_TEST_UNSET_VARIABLE is not set")
}

func TestEnvVar_EmptyName(t *testing.T) {
	h := testutil.NewHarness(t, &env_vars.Module{})
	n := h.Create(t, "env_vars", "")

	_, err := n.Compute(h.Ctx)
	require.ErrorContains(t, err, "parameter 'name' is empty")
}
