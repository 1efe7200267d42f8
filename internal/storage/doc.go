// Package storage persists a PersistedState to a cache directory and
// restores it.
//
// The state is split in two. The core object, everything except Records, is
// written to a single state file. Records can be far larger than any one
// encode buffer allows, so it goes to numbered chunk files sized by a
// sampling estimator (package chunk). Both kinds of file share the envelope
// format of package envelope: magic, header, codec body, SHA-256 trailer.
//
// A Store is not safe for concurrent use and assumes it is the only writer
// of its directory.
package storage
