// Package buildinfo reports the statecache version.
//
// Version, Commit and BuildTime are injected with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/statecache/internal/infra/buildinfo.Version=v0.3.0"
//
// Fields left unset fall back to what the Go toolchain embedded in the
// binary (VCS revision and time, Go version).
package buildinfo
