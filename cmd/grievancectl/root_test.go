package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubcommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["migrate"])
	assert.True(t, names["sweep"])
	assert.True(t, names["seed-admin"])
}

func TestMigrateRequiresDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	rootCmd.SetArgs([]string{"migrate"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_DSN")
}

func TestSweepOnMemoryStore(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("MINIO_ENDPOINT", "")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"sweep"})
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	}()

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "scanned=0 escalated=0 skipped=0 failed=0\n", out.String())
}
