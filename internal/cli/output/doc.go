// Package output renders command results for the statecache CLI.
//
//   - formatter.go: Formatter interface and format selection
//   - table.go: aligned tables built from structs, slices and maps
//   - json.go, yaml.go: machine-readable output
package output
