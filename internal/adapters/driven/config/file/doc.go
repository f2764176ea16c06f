// Package file provides the file-based configuration adapter.
// Configuration persists to a TOML file on the local filesystem.
package file
