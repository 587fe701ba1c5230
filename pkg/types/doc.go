// Package types defines the inventory Record, the Repository contract shared
// by every storage backend, configuration and the standard errors.
package types
