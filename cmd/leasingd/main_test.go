package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/leasing/internal/application/dto"
)

func TestRootCommand_Subcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "migrate", "reconcile"})
}

func TestReconcileCommand_MemoryStore(t *testing.T) {
	t.Setenv("LEASING_ENGINE_STORE", "memory")
	t.Setenv("LEASING_LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"reconcile", "--as-of", "2024-03-01"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())

	var report dto.ReconciliationReportResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Zero(t, report.Agreements)
	assert.Zero(t, report.Failed)
}

func TestReconcileCommand_RejectsBadDate(t *testing.T) {
	rootCmd.SetArgs([]string{"reconcile", "--as-of", "March"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --as-of")
}

func TestMigrateCommand_RequiresPostgres(t *testing.T) {
	t.Setenv("LEASING_ENGINE_STORE", "memory")
	rootCmd.SetArgs([]string{"migrate", "up"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine.store=postgres")
}
