// Package mmfile maps cache files read-only into memory.
//
// Mapping lets the chunk reader verify and decode a file of hundreds of
// megabytes without first copying it onto the Go heap. Platforms without
// mmap support fall back to reading the whole file.
package mmfile
