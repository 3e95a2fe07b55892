// Package app contains the core application logic. It defines the App
// struct, its configuration, topology file loading and the dispatch of
// each command to the orchestrator, decoupled from the CLI entrypoint.
package app
