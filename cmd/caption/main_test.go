package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caption-service/internal/core/domain"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestLabelCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("tench\ngoldfish\n great white shark \n"), 0o644))

	out, err := run(t, "label", "2", "--labels", path)
	require.NoError(t, err)
	assert.Equal(t, "great white shark", strings.TrimSpace(out))

	_, err = run(t, "label", "9", "--labels", path)
	assert.Error(t, err)

	_, err = run(t, "label", "x", "--labels", path)
	assert.Error(t, err)
}

func TestPackageAndUnpackCmd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.StateFileName), []byte("state"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.GraphFileName), []byte("graph"), 0o644))

	out, err := run(t, "package", dir)
	require.NoError(t, err)
	bundlePath := strings.TrimSpace(out)
	assert.Equal(t, filepath.Join(dir, domain.BundleFileName), bundlePath)

	dest := t.TempDir()
	out, err = run(t, "unpack", bundlePath, dest)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dest, domain.StateFileName),
		filepath.Join(dest, domain.GraphFileName),
	}, strings.Fields(out))

	got, err := os.ReadFile(filepath.Join(dest, domain.GraphFileName))
	require.NoError(t, err)
	assert.Equal(t, "graph", string(got))
}

func TestPackageCmd_MissingMember(t *testing.T) {
	_, err := run(t, "package", t.TempDir())
	assert.Error(t, err)
}

func TestTriggerCmd_RequiresPipelineName(t *testing.T) {
	t.Setenv("PIPELINE_NAME", "")
	_, err := run(t, "trigger")
	assert.ErrorIs(t, err, domain.ErrMissingConfiguration)
}
