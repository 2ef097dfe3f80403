package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfigPath(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(present, []byte("server: {}\n"), 0o600))
	missing := filepath.Join(dir, "absent.yaml")

	assert.Equal(t, present, resolveConfigPath(present, false), "default file present")
	assert.Equal(t, "", resolveConfigPath(missing, false), "default file missing")
	assert.Equal(t, missing, resolveConfigPath(missing, true), "explicit file is kept")
	assert.Equal(t, "", resolveConfigPath("", true))
}

func TestRootCmd_ConfigDefault(t *testing.T) {
	cmd := newRootCmd()
	f := cmd.Flags().Lookup("config")
	require.NotNil(t, f)
	assert.Equal(t, "config.yaml", f.DefValue)
}

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "scanboard-server dev\n", out.String())
}
