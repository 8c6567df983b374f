package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MikeSquared-Agency/TariffIndex/internal/index"
)

// File reads factor tables from a JSON snapshot on disk:
//
//	{"collection_date": "2025-06-30", "data": {"freight_cost": {"KR": 4500, ...}}}
//
// The file is re-read on every fetch so external updates are picked up.
type File struct {
	path string
}

func NewFile(path string) *File { return &File{path: path} }

func (f *File) Name() string { return "file" }

func (f *File) Fetch(_ context.Context, factor index.Factor) (index.Table, error) {
	snap, err := f.Load()
	if err != nil {
		return nil, err
	}
	t, ok := snap.Data[factor]
	if !ok {
		return nil, fmt.Errorf("%s in %s: %w", factor, f.path, ErrUnknownFactor)
	}
	return t, nil
}

// Load reads and decodes the snapshot. A missing file yields an empty
// snapshot.
func (f *File) Load() (Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{Data: index.FactorTables{}}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot %s: %w", f.path, err)
	}
	if snap.Data == nil {
		snap.Data = index.FactorTables{}
	}
	return snap, nil
}

// Record writes snap to disk, replacing the previous snapshot atomically.
func (f *File) Record(_ context.Context, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	return os.Rename(tmp.Name(), f.path)
}
