package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jwebster45206/easton-heights/pkg/actor"
	"github.com/jwebster45206/easton-heights/pkg/catalog"
	"github.com/jwebster45206/easton-heights/pkg/storage"
)

// ManifestFile lists the pack files to load, in order, relative to DATA_DIR/packs.
const ManifestFile = "packs.json"

// files serves packs and rosters from the data directory.
// Both session backends embed it.
type files struct {
	dataDir string
	logger  *slog.Logger
}

var _ storage.Library = files{}

// NewLibrary serves packs and rosters from dataDir without a session
// backend. The console host uses it.
func NewLibrary(dataDir string, logger *slog.Logger) storage.Library {
	return newFiles(dataDir, logger)
}

func newFiles(dataDir string, logger *slog.Logger) files {
	if dataDir == "" {
		dataDir = "./data"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return files{dataDir: dataDir, logger: logger}
}

func (f files) packsDir() string   { return filepath.Join(f.dataDir, "packs") }
func (f files) rostersDir() string { return filepath.Join(f.dataDir, "rosters") }

// ListPacks returns the manifest order. Without a manifest every .json file
// in the packs directory is listed in name order.
func (f files) ListPacks(ctx context.Context) ([]string, error) {
	manifest := filepath.Join(f.packsDir(), ManifestFile)
	data, err := os.ReadFile(manifest)
	if err == nil {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pack manifest: %w", err)
		}
		return list, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read pack manifest: %w", err)
	}

	f.logger.Debug("No pack manifest, listing pack directory", "dir", f.packsDir())
	return f.listJSON(f.packsDir(), ManifestFile)
}

// LoadCatalog loads and merges every listed pack. An invalid template in
// any pack fails the whole load.
func (f files) LoadCatalog(ctx context.Context) (catalog.Catalog, error) {
	packs, err := f.ListPacks(ctx)
	if err != nil {
		return nil, err
	}

	cats := make([]catalog.Catalog, 0, len(packs))
	for _, name := range packs {
		path, err := safeJoin(f.packsDir(), name)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read pack %s: %w", name, err)
		}
		cat, err := catalog.LoadCatalog(data)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", name, err)
		}
		f.logger.Debug("Loaded pack", "pack", name, "events", len(cat))
		cats = append(cats, cat)
	}

	merged := catalog.Merge(cats...)
	f.logger.Info("Catalog loaded", "packs", len(packs), "events", len(merged))
	return merged, nil
}

// ListRosters returns roster names (file names without extension).
func (f files) ListRosters(ctx context.Context) ([]string, error) {
	list, err := f.listJSON(f.rostersDir(), "")
	if err != nil {
		return nil, err
	}
	for i, name := range list {
		list[i] = strings.TrimSuffix(name, ".json")
	}
	return list, nil
}

func (f files) GetRoster(ctx context.Context, name string) (actor.Roster, error) {
	path, err := safeJoin(f.rostersDir(), name+".json")
	if err != nil {
		return nil, err
	}
	r, err := actor.LoadRoster(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrRosterNotFound, name)
		}
		return nil, err
	}
	return r, nil
}

func (f files) listJSON(dir, skip string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" || e.Name() == skip {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names, nil
}

// safeJoin rejects names that would escape dir.
func safeJoin(dir, name string) (string, error) {
	if name == "" || filepath.Base(name) != name || name == ".." {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(dir, name), nil
}
