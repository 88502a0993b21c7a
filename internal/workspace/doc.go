// Package workspace hands out scratch directories for external tool runs.
//
// Each scratch directory is unique and lives under the manager's base folder
// (the system temp dir by default). Cleanup is best effort: removal failures
// are logged and never fail the caller.
package workspace
