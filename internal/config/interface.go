package config

import "context"

// Variables are values a topology file may reference, such as the SDK
// location.
type Variables struct {
	SDKDir     string
	ProjectDir string
}

// Loader is the interface for a format-specific topology loader.
type Loader interface {
	// Load reads the topology file at path and translates it into the
	// format-agnostic model. Relative source paths are resolved against
	// vars.ProjectDir.
	Load(ctx context.Context, path string, vars Variables) (*Document, error)
}
