//go:build sqlite

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTrainThenQuerySQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sortforge.db")

	if err := run(context.Background(), []string{"init", "--store", "sqlite", "--db-path", dbPath}); err != nil {
		t.Fatalf("init command: %v", err)
	}

	trainArgs := []string{
		"train",
		"--store", "sqlite",
		"--db-path", dbPath,
		"--stage", "1",
		"--episodes", "60",
		"--seed", "11",
		"--log-level", "error",
	}
	out, err := captureStdout(t, func() error {
		return run(context.Background(), trainArgs)
	})
	if err != nil {
		t.Fatalf("train command: %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected sqlite db at %s: %v", dbPath, err)
	}

	runID := ""
	for _, field := range strings.Fields(out) {
		if strings.HasPrefix(field, "run=") {
			runID = strings.TrimPrefix(field, "run=")
			break
		}
	}
	if runID == "" {
		t.Fatalf("no run id in train output: %q", out)
	}

	for _, cmd := range []string{"discoveries", "checkpoint", "history", "summary"} {
		args := []string{cmd, "--store", "sqlite", "--db-path", dbPath, "--run-id", runID}
		if _, err := captureStdout(t, func() error {
			return run(context.Background(), args)
		}); err != nil {
			t.Fatalf("%s command: %v", cmd, err)
		}
	}
}
