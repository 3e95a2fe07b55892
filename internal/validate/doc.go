// Package validate holds the checks an AMP image set has to pass before
// and after it is built: cross-image configuration consistency, memory
// region overlap, the bootstrap dispatch gate and the final boot placement
// against the board's available memory windows.
//
// The checks return structured results and typed errors; rendering them
// for humans is left to the report package.
package validate
