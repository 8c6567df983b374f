package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/TariffIndex/internal/config"
	"github.com/MikeSquared-Agency/TariffIndex/internal/factors"
	"github.com/MikeSquared-Agency/TariffIndex/internal/source"
)

func testApp(t *testing.T) *app {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return &app{cfg: cfg, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestBuildSourceKinds(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(cfg *config.Config)
		wantErr       string
		wantCollector bool
	}{
		{name: "sample", setup: func(cfg *config.Config) {}},
		{name: "file", setup: func(cfg *config.Config) {
			cfg.Sources.Kind = "file"
			cfg.Sources.Dir = t.TempDir()
		}},
		{name: "file with upstream", setup: func(cfg *config.Config) {
			cfg.Sources.Kind = "file"
			cfg.Sources.Dir = t.TempDir()
			cfg.Sources.HTTP.URL = "http://factors.invalid"
		}, wantCollector: true},
		{name: "postgres without database", setup: func(cfg *config.Config) {
			cfg.Sources.Kind = "postgres"
		}, wantErr: "database.url"},
		{name: "http without url", setup: func(cfg *config.Config) {
			cfg.Sources.Kind = "http"
		}, wantErr: "sources.http.url"},
		{name: "unknown", setup: func(cfg *config.Config) {
			cfg.Sources.Kind = "ftp"
		}, wantErr: "unknown source kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testApp(t)
			tt.setup(a.cfg)
			src, collector, err := a.buildSource()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, src)
			assert.Equal(t, tt.wantCollector, collector != nil)
			if collector != nil {
				assert.Contains(t, collector.Factors, factors.HSTariff(factors.HSDCMotors))
			}
		})
	}
}

func TestFileSourceFallsBackToSample(t *testing.T) {
	a := testApp(t)
	a.cfg.Sources.Kind = "file"
	a.cfg.Sources.Dir = t.TempDir()

	src, _, err := a.buildSource()
	require.NoError(t, err)

	// empty snapshot dir, so the sample fallback answers
	tbl, err := src.Fetch(context.Background(), factors.LaborCost)
	require.NoError(t, err)
	assert.Len(t, tbl, 9)
}

func TestFileSourceReadsSnapshot(t *testing.T) {
	a := testApp(t)
	a.cfg.Sources.Kind = "file"
	a.cfg.Sources.Fallback = false
	a.cfg.Sources.Dir = t.TempDir()

	sample := factors.Sample()
	sample[factors.FreightCost]["KR"] = 9000
	require.NoError(t, source.NewFile(filepath.Join(a.cfg.Sources.Dir, "snapshot.json")).Record(context.Background(),
		source.Snapshot{CollectionDate: "2025-07-01", Data: sample}))

	src, _, err := a.buildSource()
	require.NoError(t, err)
	tbl, err := src.Fetch(context.Background(), factors.FreightCost)
	require.NoError(t, err)
	assert.Equal(t, 9000.0, tbl["KR"])
}

func TestNewLoggerLevels(t *testing.T) {
	l := newLogger(config.LoggingConfig{Level: "debug", Format: "text"})
	assert.True(t, l.Enabled(context.Background(), slog.LevelDebug))

	l = newLogger(config.LoggingConfig{Level: "bogus", Format: "json"})
	assert.False(t, l.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, l.Enabled(context.Background(), slog.LevelInfo))
}

func TestComputeCommandWritesText(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"compute", "manufacturing", "--category", "general"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 9)
	assert.Equal(t, "South Korea → US market: 100", lines[0])
	assert.Equal(t, "China → US market: 65", lines[2])
}

func TestSnapshotCommandSeedsFileSource(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"snapshot", "--dir", dir})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	_, err := os.Stat(filepath.Join(dir, "snapshot.json"))
	require.NoError(t, err)

	snap, err := source.NewFile(filepath.Join(dir, "snapshot.json")).Load()
	require.NoError(t, err)
	assert.Equal(t, factors.SampleCollectionDate, snap.CollectionDate)
	assert.Len(t, snap.Data, len(factors.Sample()))
}
