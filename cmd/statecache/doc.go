// Package main provides the entry point for statecache.
//
// statecache inspects, verifies and maintains the chunked state cache
// written by the storage package: the core state file plus its numbered
// chunk files.
package main
