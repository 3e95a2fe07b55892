package hcl

// fileRoot decodes every top-level block of a topology file.
type fileRoot struct {
	Configs []*configBlock `hcl:"config,block"`
}

// configBlock is one named AMP configuration, selected with AMP_CONFIG.
type configBlock struct {
	Name   string        `hcl:"name,label"`
	Groups []*groupBlock `hcl:"group,block"`
}

// groupBlock is a packaging unit. The first group is the main group.
type groupBlock struct {
	Images []*imageBlock `hcl:"image,block"`
}

// imageBlock is a single per-core image.
type imageBlock struct {
	Name   string `hcl:"name,label"`
	Path   string `hcl:"path"`
	Core   *int   `hcl:"core,optional"`
	Role   string `hcl:"role,optional"`
	Config string `hcl:"config"`
}
