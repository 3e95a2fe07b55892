// Package kconfig reads and rewrites the flat KEY=VALUE configuration files
// (sdkconfig) that every image of an AMP build carries, and the generated
// C headers derived from them.
//
// Rewrites are not transactional. A crash in the middle of Upsert or
// RemoveLine leaves a partially written file behind.
package kconfig
