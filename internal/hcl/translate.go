package hcl

import (
	"fmt"
	"path/filepath"

	"github.com/vk/ampbuild/internal/config"
)

// translateConfig converts the HCL-specific config block into the agnostic model.
func (l *Loader) translateConfig(c *configBlock, vars config.Variables) (*config.Topology, error) {
	t := &config.Topology{Name: c.Name}
	for gi, g := range c.Groups {
		group := &config.BuildGroup{Index: gi}
		for _, img := range g.Images {
			u, err := l.translateImage(img, vars)
			if err != nil {
				return nil, fmt.Errorf("config %q, group %d: %w", c.Name, gi, err)
			}
			group.Units = append(group.Units, u)
		}
		t.Groups = append(t.Groups, group)
	}
	return t, nil
}

// translateImage converts one image block. A missing core attribute means
// the unit is not bound to a core; a negative core is rejected.
func (l *Loader) translateImage(img *imageBlock, vars config.Variables) (*config.ImageUnit, error) {
	role, err := config.ParseRole(img.Role)
	if err != nil {
		return nil, fmt.Errorf("image %q: %w", img.Name, err)
	}

	core := config.Unassigned
	if img.Core != nil {
		if *img.Core < 0 {
			return nil, fmt.Errorf("image %q: core must not be negative, omit it to leave the image unassigned", img.Name)
		}
		core = config.Core(*img.Core)
	}

	path := img.Path
	if path != "" {
		if !filepath.IsAbs(path) && vars.ProjectDir != "" {
			path = filepath.Join(vars.ProjectDir, path)
		}
		path = filepath.Clean(path)
	}

	return &config.ImageUnit{
		Name:       img.Name,
		SourcePath: path,
		Core:       core,
		Role:       role,
		ConfigName: config.ConfigNameFromFile(img.Config),
	}, nil
}
