package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/ampbuild/internal/config"
	"github.com/vk/ampbuild/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL topology loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses and decodes a topology file.
func (l *Loader) Load(ctx context.Context, path string, vars config.Variables) (*config.Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(file.Body, newEvalContext(vars), &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	doc := config.NewDocument(path)
	for _, c := range root.Configs {
		t, err := l.translateConfig(c, vars)
		if err != nil {
			return nil, fmt.Errorf("failed to translate %s: %w", path, err)
		}
		if err := doc.Add(t); err != nil {
			return nil, err
		}
	}

	logger.Debug("HCL loading complete.", "configs", len(doc.Order))
	return doc, nil
}
