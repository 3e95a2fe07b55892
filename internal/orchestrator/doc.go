// Package orchestrator sequences an AMP build: configuration load, the
// pre-flight consistency and overlap checks, per-group builds and packing,
// the bootstrap build and the final boot placement check.
//
// Groups 1..n are built in declaration order, group 0 last. Inside a group
// the ordinary units are built first (optionally in parallel), their
// artifacts are packed into the master's directory and the master is built
// on top. Every group output is then packed at the project level and
// embedded into the bootstrap image.
package orchestrator
