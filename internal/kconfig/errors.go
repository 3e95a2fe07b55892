package kconfig

import "fmt"

// ReadError reports a configuration file that could not be opened or read.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read config %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError reports a configuration file that could not be rewritten.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write config %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
