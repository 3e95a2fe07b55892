package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/ampbuild/internal/config"
	"github.com/vk/ampbuild/internal/hcl"
	"github.com/vk/ampbuild/internal/legacyjson"
)

// DefaultTopologyNames are tried in order when no topology file is given.
var DefaultTopologyNames = []string{"amp_config.hcl", "amp_config.json", "amp_config.yaml", "amp_config.yml"}

// LoaderFor picks the topology loader from the file extension.
func LoaderFor(path string) (config.Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return hcl.NewLoader(), nil
	case ".json", ".yaml", ".yml":
		return legacyjson.NewLoader(), nil
	}
	return nil, fmt.Errorf("%w: unsupported topology file %s", ErrUsage, path)
}

// resolveTopology returns the configured topology path or the first default
// name present in the project directory.
func (a *App) resolveTopology() (string, error) {
	if a.cfg.TopologyPath != "" {
		return a.cfg.TopologyPath, nil
	}
	for _, name := range DefaultTopologyNames {
		p := filepath.Join(a.projectDir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: no topology file (%s) in %s", ErrUsage, strings.Join(DefaultTopologyNames, ", "), a.projectDir)
}

func (a *App) loadDocument(ctx context.Context) (*config.Document, error) {
	path, err := a.resolveTopology()
	if err != nil {
		return nil, err
	}
	loader, err := LoaderFor(path)
	if err != nil {
		return nil, err
	}
	doc, err := loader.Load(ctx, path, config.Variables{SDKDir: a.cfg.SDKDir, ProjectDir: a.projectDir})
	if err != nil {
		return nil, fmt.Errorf("failed to load topology: %w", err)
	}
	a.logger.Debug("Topology loaded.", "path", path, "configs", len(doc.Order))
	return doc, nil
}

// printDocument lists every configuration with its groups and units.
func (a *App) printDocument(doc *config.Document) {
	for _, name := range doc.Order {
		fmt.Fprintf(a.outW, "%s:\n", name)
		for _, g := range doc.Configs[name].Groups {
			fmt.Fprintf(a.outW, "  group %d:\n", g.Index)
			for _, u := range g.Units {
				fmt.Fprintf(a.outW, "    %-12s %-9s core=%-10s config=%s path=%s\n", u.Name, u.Role, u.Core, u.ConfigName, u.SourcePath)
			}
		}
	}
}
