// Package envelope frames state and chunk files on disk.
//
// Every file written by statecache shares one layout:
//
//	[magic:8]            "SCSTATE\x01" (core state) or "SCCHUNK\x01" (chunk)
//	[HeaderLen:4]        big-endian uint32
//	[Header:HeaderLen]   protobuf wire format, see Header
//	[Body]               codec stream, runs up to the trailer
//	[checksum:32]        SHA-256 of all bytes above
//
// Files are written to "<name>.tmp", synced and renamed into place, so a
// reader never observes a half-written file under its final name. The body
// is streamed straight to disk; its encoded form is never buffered whole.
package envelope
