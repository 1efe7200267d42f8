// Package confloader loads layered configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. Values already present in the target struct (defaults)
//  2. A YAML file
//  3. Environment variables under a prefix (STATECACHE_ by default)
//  4. Explicit overrides, typically command-line flags
package confloader
