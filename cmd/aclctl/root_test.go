// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFixture lays out a file-backed deployment and returns the
// config file path.
func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"permissions.txt": "v:View\ni:Insert\nc:Control\n",
		"groups.txt":      "app_admins:juhan,kaido\n",
		"_datasets.acl": "description:Dataset definitions\n" +
			"localgroup:app_admins:v,i\n" +
			"user:enriko:v\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}

	cfg := "persistence:\n" +
		"  provider: file\n" +
		"  files:\n" +
		"    acl_dir: " + dir + "\n" +
		"    local_groups: " + filepath.Join(dir, "groups.txt") + "\n" +
		"    local_users: \"\"\n" +
		"    permissions: " + filepath.Join(dir, "permissions.txt") + "\n"
	cfgPath := filepath.Join(dir, "acl.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return cfgPath
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Structure(t *testing.T) {
	cmd := NewRootCmd()
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"check", "perms", "list", "entries", "add", "remove", "rename", "migrate"} {
		assert.Contains(t, names, want)
	}
}

func TestListCmd(t *testing.T) {
	cfg := writeFixture(t)
	out, err := runCommand(t, "list", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "/datasets\n", out)
}

func TestCheckCmd(t *testing.T) {
	cfg := writeFixture(t)

	out, err := runCommand(t, "check", "/datasets", "juhan", "i", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "allowed\n", out)

	out, err = runCommand(t, "check", "/datasets", "enriko", "i", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "denied\n", out)
}

func TestPermsCmd(t *testing.T) {
	cfg := writeFixture(t)
	out, err := runCommand(t, "perms", "/datasets", "kaido", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "i,v\n", out)
}

func TestEntriesCmd(t *testing.T) {
	cfg := writeFixture(t)
	out, err := runCommand(t, "entries", "/datasets", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "# Dataset definitions\n")
	assert.Contains(t, out, "localgroup:app_admins:v,i\n")
	assert.Contains(t, out, "user:enriko:v\n")
}

func TestCheckCmd_UnknownAcl(t *testing.T) {
	cfg := writeFixture(t)
	_, err := runCommand(t, "check", "/nope", "juhan", "v", "--config", cfg)
	require.Error(t, err)
}

func TestMigrateCmd_NoDatabase(t *testing.T) {
	cfg := writeFixture(t)
	_, err := runCommand(t, "migrate", "--config", cfg)
	require.Error(t, err)
}
