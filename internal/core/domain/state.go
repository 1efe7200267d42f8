// Package domain defines the core domain models for statecache.
package domain

import (
	"crypto/rand"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// RecordID identifies one record in the large collection.
type RecordID string

// Record is a single entry of the large collection.
//
// Records are opaque to the persistence layer; any field must survive a
// round-trip through the configured codec.
type Record struct {
	ID            RecordID       `json:"id" codec:"id"`
	Type          string         `json:"type" codec:"type"`
	Parent        RecordID       `json:"parent,omitempty" codec:"parent,omitempty"`
	Children      []RecordID     `json:"children,omitempty" codec:"children,omitempty"`
	Owner         string         `json:"owner,omitempty" codec:"owner,omitempty"`
	ContentDigest string         `json:"content_digest,omitempty" codec:"content_digest,omitempty"`
	Fields        map[string]any `json:"fields,omitempty" codec:"fields,omitempty"`

	// Content is omitted when empty; an empty Content reads back as nil.
	Content []byte `json:"content,omitempty" codec:"content,omitempty"`
}

// Entry is one (RecordID, Record) pair as stored in a chunk file.
type Entry struct {
	ID     RecordID `json:"id" codec:"id"`
	Record *Record  `json:"record" codec:"record"`
}

// PersistedState is the application state cached between runs.
//
// Records is the dominant memory consumer and is persisted separately from
// the rest of the state, in chunk files.
type PersistedState struct {
	Version     int                   `json:"version" codec:"version"`
	ProgramPath string                `json:"program_path,omitempty" codec:"program_path,omitempty"`
	Schema      string                `json:"schema,omitempty" codec:"schema,omitempty"`
	Status      map[string]any        `json:"status,omitempty" codec:"status,omitempty"`
	Components  map[string]string     `json:"components,omitempty" codec:"components,omitempty"`
	TypeIndex   map[string][]RecordID `json:"type_index,omitempty" codec:"type_index,omitempty"`

	Records map[RecordID]*Record `json:"records,omitempty" codec:"records,omitempty"`
}

// Core returns a copy of the state without Records.
//
// The copy shares every other field with s; it is meant to be encoded and
// dropped, never modified.
func (s *PersistedState) Core() *PersistedState {
	core := *s
	core.Records = nil
	return &core
}

// HasRecords reports whether the state carries a non-nil Records mapping.
func (s *PersistedState) HasRecords() bool {
	return s.Records != nil
}

// Entries returns the Records mapping as a slice ordered by RecordID.
func (s *PersistedState) Entries() []Entry {
	if len(s.Records) == 0 {
		return nil
	}
	entries := make([]Entry, 0, len(s.Records))
	for id, rec := range s.Records {
		entries = append(entries, Entry{ID: id, Record: rec})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return entries
}

// EntriesToRecords builds a Records mapping from entries.
// A later entry for a duplicate key replaces the earlier one.
func EntriesToRecords(entries []Entry) map[RecordID]*Record {
	records := make(map[RecordID]*Record, len(entries))
	for _, e := range entries {
		records[e.ID] = e.Record
	}
	return records
}

// NewGeneration returns a fresh, time-ordered identifier for one write of
// the persisted state.
func NewGeneration() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInternal.WithCause(err)
	}
	return strings.ToLower(id.String()), nil
}
