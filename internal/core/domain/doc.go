// Package domain defines the core domain models for statecache.
//
// Domain models are plain values without any IO dependencies. This package
// contains:
//
//   - PersistedState: the cached application state and its core view
//   - Record / Entry: members of the large keyed collection
//   - Errors: coded errors shared by the storage layers
package domain
