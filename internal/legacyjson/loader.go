// Package legacyjson loads the amp_config.json topology layout used by the
// make-driven AMP flow. The file is a JSON array whose first element
// documents the format and whose second element holds the configurations:
//
//	[
//	  { "note": "example" },
//	  { "configs": {
//	      "config0": [
//	        { "bootstrap": ["./", 0, 0, "e2000q_boot.config"] },
//	        { "apu": ["apu_running", 1, 1, "apu.config"],
//	          "rpu": ["rpu_running", 2, 0, "rpu.config"] }
//	      ]
//	  } }
//	]
//
// Each unit is [path, core, master, config file]. A core of -1 leaves the
// unit unassigned, master is 0 or 1, and the unit named "bootstrap" is the
// bootstrap unit. JSON is read through the YAML decoder, so the same layout
// written as YAML is accepted as well.
package legacyjson

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-yaml"
	"github.com/vk/ampbuild/internal/config"
	"github.com/vk/ampbuild/internal/ctxlog"
)

// bootstrapName marks the bootstrap unit in the legacy layout.
const bootstrapName = "bootstrap"

type document struct {
	Configs map[string][]yaml.MapSlice `yaml:"configs"`
}

// Loader is the legacy JSON/YAML implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new legacy topology loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and translates a legacy topology file.
func (l *Loader) Load(ctx context.Context, path string, vars config.Variables) (*config.Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Legacy topology loader started.", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology %s: %w", path, err)
	}

	src, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode topology %s: %w", path, err)
	}

	names := make([]string, 0, len(src.Configs))
	for name := range src.Configs {
		names = append(names, name)
	}
	sort.Strings(names)

	doc := config.NewDocument(path)
	for _, name := range names {
		t, err := translate(name, src.Configs[name], vars)
		if err != nil {
			return nil, fmt.Errorf("failed to translate %s: %w", path, err)
		}
		if err := doc.Add(t); err != nil {
			return nil, err
		}
	}

	logger.Debug("Legacy topology loading complete.", "configs", len(doc.Order))
	return doc, nil
}

// decode accepts the array layout, using its second element when present,
// or a bare {"configs": ...} object.
func decode(data []byte) (*document, error) {
	var list []document
	if err := yaml.Unmarshal(data, &list); err == nil {
		switch len(list) {
		case 0:
			return nil, fmt.Errorf("empty configuration list")
		case 1:
			return &list[0], nil
		default:
			return &list[1], nil
		}
	}
	var single document
	if err := yaml.Unmarshal(data, &single); err != nil {
		return nil, err
	}
	return &single, nil
}

func translate(name string, groups []yaml.MapSlice, vars config.Variables) (*config.Topology, error) {
	t := &config.Topology{Name: name}
	for gi, g := range groups {
		group := &config.BuildGroup{Index: gi}
		for _, item := range g {
			unitName := fmt.Sprint(item.Key)
			u, err := translateUnit(unitName, item.Value, vars)
			if err != nil {
				return nil, fmt.Errorf("config %q, group %d, unit %q: %w", name, gi, unitName, err)
			}
			group.Units = append(group.Units, u)
		}
		t.Groups = append(t.Groups, group)
	}
	return t, nil
}

func translateUnit(name string, raw any, vars config.Variables) (*config.ImageUnit, error) {
	fields, ok := raw.([]any)
	if !ok || len(fields) != 4 {
		return nil, fmt.Errorf("expected [path, core, master, config], got %v", raw)
	}

	path, ok := fields[0].(string)
	if !ok {
		return nil, fmt.Errorf("path must be a string, got %v", fields[0])
	}
	core, err := toInt(fields[1])
	if err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	master, err := toInt(fields[2])
	if err != nil {
		return nil, fmt.Errorf("master: %w", err)
	}
	file, ok := fields[3].(string)
	if !ok {
		return nil, fmt.Errorf("config must be a string, got %v", fields[3])
	}

	u := &config.ImageUnit{
		Name:       name,
		Core:       config.Unassigned,
		Role:       config.RoleOrdinary,
		ConfigName: config.ConfigNameFromFile(file),
	}
	switch {
	case core >= 0:
		u.Core = config.Core(core)
	case core != -1:
		return nil, fmt.Errorf("core must be -1 or a core id, got %d", core)
	}
	switch {
	case name == bootstrapName:
		u.Role = config.RoleBootstrap
	case master == 1:
		u.Role = config.RoleMaster
	case master != 0:
		return nil, fmt.Errorf("master must be 0 or 1, got %d", master)
	}

	if path != "" {
		if !filepath.IsAbs(path) && vars.ProjectDir != "" {
			path = filepath.Join(vars.ProjectDir, path)
		}
		u.SourcePath = filepath.Clean(path)
	}
	return u, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("not an integer: %v", n)
		}
		return int(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("not an integer: %v", v)
}
