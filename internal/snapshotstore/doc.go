// Package snapshotstore provides the per-run, thread-safe cache of parsed
// configuration snapshots and the artifacts each unit produced.
//
// # Characteristics
//
//   - **Ephemeral:** Created fresh for each orchestrator run, never persisted
//   - **Thread-Safe:** Uses sync.Map, parallel ordinary builds read and write
//     independent keys
//   - **Lazy:** A snapshot is parsed on first access and reused until it is
//     invalidated by a rewrite of the underlying file
//
// Keys are cleaned file paths for snapshots and unit names for artifacts.
package snapshotstore
