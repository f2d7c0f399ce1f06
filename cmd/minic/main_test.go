package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunEmitsFlatIR(t *testing.T) {
	src := "fn foo() -> i64 { return 0; }"
	dir := t.TempDir()
	path := dir + "/test.mn"
	require.NoError(t, writeFile(path, src))

	var out bytes.Buffer
	err := run(&out, path, "flat", false)
	require.NoError(t, err)
	assert.Equal(t, "Function foo:\n0. MoveImm v0, 0\n1. Return v0\n", out.String())
}

func TestRunEmitsGraphIR(t *testing.T) {
	src := "fn foo() -> i64 { return 0; }"
	dir := t.TempDir()
	path := dir + "/test.mn"
	require.NoError(t, writeFile(path, src))

	var out bytes.Buffer
	err := run(&out, path, "graph", false)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Constant 0")
}

func TestRunRejectsUnknownEmit(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/test.mn"
	require.NoError(t, writeFile(path, "fn main() {}"))

	var out bytes.Buffer
	err := run(&out, path, "bogus", false)
	require.Error(t, err)
}

func TestRunReportsParseErrorAndFails(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/test.mn"
	require.NoError(t, writeFile(path, "fn main( {}"))

	var out bytes.Buffer
	err := run(&out, path, "flat", false)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "test.mn"))
}

// TestExecuteReportsOneDiagnosticLineOnly locks in the CLI's failure
// contract: on a parse failure, stderr carries exactly the one-line
// "<file>:<line>:<col>: <message>" diagnostic run() writes itself, with no
// cobra-added "Error: ..." or usage block
// stacked on top of it.
func TestExecuteReportsOneDiagnosticLineOnly(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/test.mn"
	require.NoError(t, writeFile(path, "fn main( {}"))

	cmd := newRootCmd()
	cmd.SetArgs([]string{path})
	cmd.SetOut(&bytes.Buffer{})

	stderr := captureStderr(t, func() {
		err := cmd.Execute()
		require.Error(t, err)
	})

	assert.Contains(t, stderr, "test.mn")
	assert.NotContains(t, stderr, "Error:")
	assert.NotContains(t, stderr, "Usage:")
}

func TestExecuteReportsBadEmitFlagWithoutCobraNoise(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/test.mn"
	require.NoError(t, writeFile(path, "fn main() {}"))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--emit=bogus", path})
	cmd.SetOut(&bytes.Buffer{})

	stderr := captureStderr(t, func() {
		err := cmd.Execute()
		require.Error(t, err)
	})

	assert.Contains(t, stderr, `--emit must be "flat" or "graph"`)
	assert.NotContains(t, stderr, "Error:")
	assert.NotContains(t, stderr, "Usage:")
}

func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stderr
	os.Stderr = w

	fn()

	require.NoError(t, w.Close())
	os.Stderr = orig

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)
	return buf.String()
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
