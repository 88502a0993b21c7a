// Package errors provides the classified error primitives used across the
// build pipeline.
//
// Every fatal condition of a build (malformed front matter, a bad command
// template, an external tool exiting non-zero) is reported as a
// ClassifiedError so the CLI can pick an exit code and print a diagnostic
// that names the offending source file.
//
// Example usage:
//
//	err := errors.ProcessError("external tool failed").
//		WithContext("source", "css/style.less").
//		WithContext("stderr", stderr).
//		WithCause(runErr).
//		Build()
package errors
