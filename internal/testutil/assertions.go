package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// RequireValue fails the test unless got equals want exactly, types
// included.
func RequireValue(t *testing.T, want, got cty.Value) {
	t.Helper()
	require.True(t, want.RawEquals(got), "expected %#v, got %#v", want, got)
}

// RequireNumber fails the test unless got is the number want.
func RequireNumber(t *testing.T, want float64, got cty.Value) {
	t.Helper()
	require.Equal(t, cty.Number, got.Type(), "expected a number, got %#v", got)
	f, _ := got.AsBigFloat().Float64()
	require.InDelta(t, want, f, 1e-9)
}

// AssertLogged checks that the harness log contains substr.
func AssertLogged(t *testing.T, logs *SafeBuffer, substr string) {
	t.Helper()
	require.True(t,
		strings.Contains(logs.String(), substr),
		"expected log output to contain %q", substr,
	)
}
