package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/reviewflow/internal/domain/workflow"
)

func runCLI(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--db", dbPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func setupCLI(t *testing.T) string {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("REVIEWFLOW_LOG_LEVEL", "error")
	return filepath.Join(t.TempDir(), "cli.db")
}

func TestCLI_ReviewLifecycle(t *testing.T) {
	db := setupCLI(t)

	out, err := runCLI(t, db, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Database ready")

	out, err = runCLI(t, db, "--as", "u1", "create", "item-1")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	out, err = runCLI(t, db, "phase", id)
	require.NoError(t, err)
	assert.Equal(t, "WAITING_TO_ACCEPT\n", out)

	out, err = runCLI(t, db, "--as", "A", "--role", "admin-editor", "next", id)
	require.NoError(t, err)
	assert.Equal(t, "EDITOR_POOL\nEND\n", out)

	_, err = runCLI(t, db, "--as", "A", "--role", "admin-editor", "transition", id, "editor-pool")
	require.NoError(t, err)

	out, err = runCLI(t, db, "list", "editor_pool")
	require.NoError(t, err)
	assert.Contains(t, out, "item-1")

	out, err = runCLI(t, db, "--as", "E1", "--role", "editor", "transition", id, "EDITOR")
	require.NoError(t, err)
	assert.Contains(t, out, "is now EDITOR")

	out, err = runCLI(t, db, "find", "item-1")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "E1")

	out, err = runCLI(t, db, "history", "--json", id)
	require.NoError(t, err)
	var history []workflow.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	require.Len(t, history, 3)
	assert.Equal(t, workflow.PhaseEditor, history[2].Phase)
	assert.Equal(t, "E1", history[2].EditorID)
}

func TestCLI_Errors(t *testing.T) {
	db := setupCLI(t)

	out, err := runCLI(t, db, "--as", "u1", "create", "item-1")
	require.NoError(t, err)
	id := strings.TrimSpace(out)

	_, err = runCLI(t, db, "--as", "u1", "create", "item-1")
	assert.ErrorIs(t, err, workflow.ErrDuplicateActiveWorkflow)

	_, err = runCLI(t, db, "phase", "missing")
	assert.ErrorIs(t, err, workflow.ErrWorkflowNotFound)

	_, err = runCLI(t, db, "--as", "E1", "--role", "editor", "transition", id, "EDITOR_POOL")
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	_, err = runCLI(t, db, "--as", "u1", "transition", id, "ARCHIVED")
	assert.ErrorIs(t, err, workflow.ErrInvalidPhase)

	_, err = runCLI(t, db, "create", "item-2")
	assert.ErrorContains(t, err, "--as is required")

	_, err = runCLI(t, db, "--as", "x", "--role", "superuser", "next", id)
	assert.ErrorContains(t, err, "unknown role")
}

func TestCLI_ListMine(t *testing.T) {
	db := setupCLI(t)

	_, err := runCLI(t, db, "--as", "u1", "create", "item-1")
	require.NoError(t, err)
	_, err = runCLI(t, db, "--as", "u2", "create", "item-2")
	require.NoError(t, err)

	out, err := runCLI(t, db, "--as", "u1", "list", "--mine", "--json", "waiting-to-accept")
	require.NoError(t, err)
	var snapshots []workflow.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snapshots))
	require.Len(t, snapshots, 1)
	assert.Equal(t, "item-1", snapshots[0].TrackedItemID)

	out, err = runCLI(t, db, "list", "end")
	require.NoError(t, err)
	assert.Equal(t, "No open workflows\n", out)
}

func TestRenderTable(t *testing.T) {
	assert.Empty(t, renderTable(nil, nil, nil))

	out := renderTable([]string{"#", "Phase"}, [][]string{{"0", "END"}, {"1"}}, []columnAlignment{alignRight})
	assert.Contains(t, out, "Phase")
	assert.Contains(t, out, "END")
}
