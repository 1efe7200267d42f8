// Package config defines the statecache configuration and maps it onto a
// storage.Config.
//
// Keys are grouped in sections: cache.* for the directory layout and codec,
// chunk.* for the chunk size estimator, log.* and metrics.*. Load layers a
// YAML file, STATECACHE_* environment variables and flag overrides over
// Default().
package config
