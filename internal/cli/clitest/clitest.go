// Package clitest builds command contexts over a throwaway SQLite database.
package clitest

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/julianstephens/routinely/internal/cli"
	"github.com/julianstephens/routinely/internal/clock"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/storage/sqlite"
)

// Now is a Wednesday morning in UTC.
var Now = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

type Env struct {
	Ctx   *cli.Context
	Out   *bytes.Buffer
	Clock *clock.Fixed
	Store *sqlite.Store
}

// New initialises a store in t.TempDir with UTC settings and a fixed clock.
func New(t *testing.T) *Env {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "routinely.db"))
	clk := clock.NewFixed(Now)
	store.SetClock(clk)
	require.NoError(t, store.Init())
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})

	settings := models.DefaultSettings()
	settings.Timezone = "UTC"
	require.NoError(t, store.SaveSettings(context.Background(), settings))

	out := &bytes.Buffer{}
	return &Env{
		Ctx:   &cli.Context{Store: store, Clock: clk, Out: out},
		Out:   out,
		Clock: clk,
		Store: store,
	}
}

// Routine stores a routine with the given active tasks and returns its id.
// Task ids and names are the given names.
func (e *Env) Routine(t *testing.T, name string, tasks ...string) string {
	t.Helper()
	ctx := context.Background()
	id := "r-" + name
	require.NoError(t, e.Store.AddRoutine(ctx, models.Routine{ID: id, Name: name, CreatedAt: Now}))
	for _, task := range tasks {
		require.NoError(t, e.Store.AddTask(ctx, models.Task{ID: task, RoutineID: id, Name: task, Active: true, CreatedAt: Now}))
	}
	return id
}

// Reset clears captured output.
func (e *Env) Reset() {
	e.Out.Reset()
}
