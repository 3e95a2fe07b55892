package hcl

import (
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/ampbuild/internal/config"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// envFunc exposes env("NAME") to topology files.
var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{{Name: "name", Type: cty.String}},
	Type:   function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.StringVal(os.Getenv(args[0].AsString())), nil
	},
})

// newEvalContext makes sdk_dir and project_dir available as variables.
func newEvalContext(vars config.Variables) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"sdk_dir":     cty.StringVal(vars.SDKDir),
			"project_dir": cty.StringVal(vars.ProjectDir),
		},
		Functions: map[string]function.Function{
			"env": envFunc,
		},
	}
}
