package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/patient-records/internal/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBMICommand(t *testing.T) {
	out, err := run(t, "bmi", "--height", "1.75", "--weight", "90")
	require.NoError(t, err)
	assert.Equal(t, "bmi: 29.39\nverdict: Overweight\n", out)

	_, err = run(t, "bmi", "--height", "0", "--weight", "90")
	assert.Error(t, err)

	_, err = run(t, "bmi", "--height", "1.75")
	assert.Error(t, err)
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patient.json")

	out, err := run(t, "init", "--store", path)
	require.NoError(t, err)
	assert.Contains(t, out, "created")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	out, err = run(t, "init", "--store", path)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestServeStopsOnCancel(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	cfg := config.Load()
	cfg.Port = "0"
	cfg.ShutdownTimeout = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assert.NoError(t, serve(ctx, cfg, logger, true))
}
