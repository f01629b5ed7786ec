package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeScene(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func TestRun_CooksScene(t *testing.T) {
	t.Parallel()

	path := writeScene(t, `
node "vec3" "v" {
  params {
    value = [3, 4, 0]
  }
}

node "length" "len" {
  inputs  = ["v"]
  display = true
}
`)
	out, logs := &bytes.Buffer{}, &bytes.Buffer{}

	require.NoError(t, run(context.Background(), out, logs, []string{"-log-level", "warn", path}))

	var results map[string]float64
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Equal(t, map[string]float64{"/len": 5}, results)
}

func TestRun_ParseFailure(t *testing.T) {
	t.Parallel()

	path := writeScene(t, `
node "const" "a" {
  params {
// Missing closing brace here
`)
	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{path})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}
