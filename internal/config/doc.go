// Package config defines the format-agnostic topology model of an AMP build
// (documents, topologies, build groups, image units) together with the
// Loader interface and the structural validation every loaded topology must
// pass before any external tool runs.
//
// Concrete loaders live in separate packages: hcl for the native format and
// legacyjson for the amp_config.json layout.
package config
