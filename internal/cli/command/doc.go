// Package command provides CLI command definitions for statecache.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: App, global flags, per-invocation environment
//   - state.go: inspect, verify and purge of a cache directory
//   - estimate.go: chunk size estimate for the stored records
//   - generate.go: synthetic state generation
//   - config.go: effective configuration
//   - version.go: build information
//
// Commands follow a consistent pattern of parsing flags, calling the
// store, and rendering the result with the output package.
package command
