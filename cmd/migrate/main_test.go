package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPrintsEmbeddedMigrations(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"list"})

	require.NoError(t, root.Execute())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Contains(t, lines, "000001_create_profiles.up.sql")
	assert.Contains(t, lines, "000002_create_demo_messages.down.sql")
}

func TestDownRejectsBadFlag(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"down", "--steps", "many"})

	assert.Error(t, root.Execute())
}

func TestSeedDefaults(t *testing.T) {
	cmd := newSeedCmd()
	assert.Equal(t, "user_demo", cmd.Flags().Lookup("clerk-user-id").DefValue)
	assert.Equal(t, "demo@helpflow.local", cmd.Flags().Lookup("email").DefValue)
}
