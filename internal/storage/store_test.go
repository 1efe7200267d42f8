package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/statecache/internal/core/domain"
	"github.com/yndnr/statecache/internal/storage/chunk"
	"github.com/yndnr/statecache/internal/storage/codec"
	"github.com/yndnr/statecache/internal/storage/envelope"
	"github.com/yndnr/statecache/internal/telemetry/logger"
	"github.com/yndnr/statecache/internal/telemetry/metric"
)

func testLogger(t *testing.T, w io.Writer) logger.Logger {
	t.Helper()
	if w == nil {
		w = io.Discard
	}
	l, err := logger.New(logger.Config{Level: "warn", Format: "json", Output: w})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return l
}

func newTestStore(t *testing.T, mutate func(*Config)) *Store {
	t.Helper()
	cfg := DefaultConfig(t.TempDir())
	cfg.TargetBytes = 16 << 10
	cfg.Logger = testLogger(t, nil)
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func makeState(n, contentSize int) *domain.PersistedState {
	state := &domain.PersistedState{
		Version:     3,
		ProgramPath: "/srv/app/main",
		Schema:      "v7",
		Status:      map[string]any{"phase": "ready"},
		Components:  map[string]string{"indexer": "enabled"},
		TypeIndex:   map[string][]domain.RecordID{"Node": {"rec-000000"}},
	}
	if n < 0 {
		return state
	}
	state.Records = make(map[domain.RecordID]*domain.Record, n)
	for i := 0; i < n; i++ {
		id := domain.RecordID(fmt.Sprintf("rec-%06d", i))
		state.Records[id] = &domain.Record{
			ID:      id,
			Type:    "Node",
			Owner:   "owner-" + fmt.Sprint(i%7),
			Content: bytes.Repeat([]byte{byte(i)}, contentSize),
		}
	}
	return state
}

func chunkCount(t *testing.T, s *Store) int {
	t.Helper()
	paths, err := s.chunks.Chunks()
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	return len(paths)
}

func TestNew(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("New(empty) err = %v, want ErrInvalidConfig", err)
	}

	cfg := DefaultConfig(t.TempDir())
	cfg.Codec = "gob"
	if _, err := New(cfg); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("New(codec=gob) err = %v, want ErrInvalidConfig", err)
	}

	cfg = DefaultConfig(t.TempDir())
	cfg.ChunkPrefix = "redux."
	if _, err := New(cfg); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("New(chunk prefix covering state file) err = %v, want ErrInvalidConfig", err)
	}

	base := t.TempDir()
	s, err := New(Config{BaseDir: base})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got, want := s.StatePath(), filepath.Join(base, ".cache", "redux.state"); got != want {
		t.Errorf("StatePath() = %s, want %s", got, want)
	}
	if got, want := s.ChunkPrefix(), filepath.Join(base, ".cache", "redux.node.state_"); got != want {
		t.Errorf("ChunkPrefix() = %s, want %s", got, want)
	}
	if fi, err := os.Stat(s.Dir()); err != nil || !fi.IsDir() {
		t.Errorf("cache dir not created: %v", err)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		records int
		codec   string
		mmap    bool
	}{
		{"one record", 1, codec.NameMsgpack, true},
		{"multi chunk msgpack", 200, codec.NameMsgpack, true},
		{"multi chunk without mmap", 200, codec.NameMsgpack, false},
		{"multi chunk json", 120, codec.NameJSON, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, func(c *Config) {
				c.Codec = tt.codec
				c.UseMmap = tt.mmap
			})
			in := makeState(tt.records, 512)

			wres, err := s.Write(in)
			if err != nil {
				t.Fatalf("Write: %v", err)
			}
			if tt.records > 1 && wres.Chunks.Chunks < 2 {
				t.Fatalf("Chunks = %d, want several", wres.Chunks.Chunks)
			}

			out, rres, err := s.Read()
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if !reflect.DeepEqual(out.Records, in.Records) {
				t.Fatal("Records differ after round trip")
			}
			if out.Version != in.Version || out.ProgramPath != in.ProgramPath || out.Schema != in.Schema {
				t.Fatalf("core fields differ: %+v", out)
			}
			if !reflect.DeepEqual(out.Components, in.Components) || !reflect.DeepEqual(out.TypeIndex, in.TypeIndex) {
				t.Fatalf("core maps differ: %+v", out)
			}
			if out.Status["phase"] != "ready" {
				t.Fatalf("Status = %v", out.Status)
			}
			if rres.Generation != wres.Generation || !rres.Consistent {
				t.Fatalf("ReadResult = %+v, want generation %s and consistent", rres, wres.Generation)
			}
			if rres.Records != tt.records {
				t.Fatalf("ReadResult.Records = %d, want %d", rres.Records, tt.records)
			}
		})
	}
}

func TestStore_RoundTripDynamicValues(t *testing.T) {
	fields := func() map[string]any {
		return map[string]any{
			"count": 42,
			"big":   int64(1<<62 + 1),
			"ratio": 0.5,
			"nested": map[string]any{
				"depth": 2,
				"tags":  []any{"a", "b"},
			},
		}
	}

	for _, name := range codec.Names() {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t, func(c *Config) { c.Codec = name })
			in := makeState(3, 16)
			in.Status = fields()
			in.Records["rec-000001"].Fields = fields()

			if _, err := s.Write(in); err != nil {
				t.Fatalf("Write: %v", err)
			}
			out, _, err := s.Read()
			if err != nil {
				t.Fatalf("Read: %v", err)
			}

			// Codecs differ in the dynamic type of a decoded number, not
			// in its value.
			want := fmt.Sprint(fields())
			if got := fmt.Sprint(out.Status); got != want {
				t.Errorf("Status = %s, want %s", got, want)
			}
			rec := out.Records["rec-000001"]
			if got := fmt.Sprint(rec.Fields); got != want {
				t.Errorf("Fields = %s, want %s", got, want)
			}
			if got := fmt.Sprint(rec.Fields["big"]); got != "4611686018427387905" {
				t.Errorf("Fields[big] = %s, want 4611686018427387905", got)
			}
		})
	}
}

func TestStore_EmptyContentReadsBackNil(t *testing.T) {
	for _, name := range codec.Names() {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t, func(c *Config) { c.Codec = name })
			in := makeState(2, 0)
			in.Records["rec-000000"].Content = []byte{}

			if _, err := s.Write(in); err != nil {
				t.Fatalf("Write: %v", err)
			}
			out, _, err := s.Read()
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			for id, rec := range out.Records {
				if rec.Content != nil {
					t.Errorf("%s Content = %#v, want nil", id, rec.Content)
				}
			}
		})
	}
}

func TestStore_LogsComponentAndGeneration(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New(logger.Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	s := newTestStore(t, func(c *Config) { c.Logger = log })

	res, err := s.Write(makeState(5, 8))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("Unmarshal(%q): %v", line, err)
		}
		if entry["msg"] != "state persisted" {
			continue
		}
		found = true
		if entry["component"] != "store" || entry["generation"] != res.Generation {
			t.Errorf("state persisted line = %v, want component=store generation=%s", entry, res.Generation)
		}
		if entry["records"] != float64(5) {
			t.Errorf("records = %v, want 5", entry["records"])
		}
	}
	if !found {
		t.Fatalf("no state persisted line in:\n%s", buf.String())
	}
}

func TestStore_EmptyRecords(t *testing.T) {
	for name, state := range map[string]*domain.PersistedState{
		"absent": makeState(-1, 0),
		"empty":  makeState(0, 0),
	} {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t, nil)

			res, err := s.Write(state)
			if err != nil {
				t.Fatalf("Write: %v", err)
			}
			if res.Chunks.Chunks != 0 || chunkCount(t, s) != 0 {
				t.Fatalf("chunk files written for %s records", name)
			}

			out, rres, err := s.Read()
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if len(out.Records) != 0 {
				t.Fatalf("Records = %v, want none", out.Records)
			}
			if out.Schema != state.Schema || !rres.Consistent {
				t.Fatalf("core state did not round-trip: %+v %+v", out, rres)
			}
		})
	}
}

func TestStore_WriteLeavesCallerIntact(t *testing.T) {
	s := newTestStore(t, nil)
	in := makeState(50, 256)
	before := make(map[domain.RecordID]*domain.Record, len(in.Records))
	for k, v := range in.Records {
		before[k] = v
	}

	if _, err := s.Write(in); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !reflect.DeepEqual(in.Records, before) {
		t.Fatal("Write modified the caller's Records")
	}
}

func TestStore_CoreFileHasNoRecords(t *testing.T) {
	s := newTestStore(t, func(c *Config) { c.Codec = codec.NameJSON })
	in := makeState(10, 8)
	in.Records["rec-000003"].Owner = "needle-owner"

	if _, err := s.Write(in); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(s.StatePath())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if bytes.Contains(data, []byte("needle-owner")) || bytes.Contains(data, []byte(`"records"`)) {
		t.Fatal("state file contains records inline")
	}
}

func TestStore_ShrinkLeavesNoOrphans(t *testing.T) {
	s := newTestStore(t, nil)

	first, err := s.Write(makeState(300, 512))
	if err != nil {
		t.Fatalf("Write(300): %v", err)
	}
	second, err := s.Write(makeState(10, 512))
	if err != nil {
		t.Fatalf("Write(10): %v", err)
	}
	if second.Chunks.Chunks >= first.Chunks.Chunks {
		t.Fatalf("chunks %d -> %d, want fewer", first.Chunks.Chunks, second.Chunks.Chunks)
	}
	if got := chunkCount(t, s); got != second.Chunks.Chunks {
		t.Fatalf("chunk files on disk = %d, want %d", got, second.Chunks.Chunks)
	}

	out, res, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(out.Records) != 10 || !res.Consistent {
		t.Fatalf("Read = %d records, consistent=%v", len(out.Records), res.Consistent)
	}
}

func TestStore_AbsentRecordsRemovesStaleChunks(t *testing.T) {
	s := newTestStore(t, nil)

	if _, err := s.Write(makeState(100, 512)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	res, err := s.Write(makeState(-1, 0))
	if err != nil {
		t.Fatalf("Write(absent): %v", err)
	}
	if res.Chunks.Removed == 0 {
		t.Fatal("no stale chunks removed")
	}
	if got := chunkCount(t, s); got != 0 {
		t.Fatalf("chunk files left: %d", got)
	}
}

func TestStore_ChunkBound(t *testing.T) {
	s := newTestStore(t, nil)
	res, err := s.Write(makeState(250, 700))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if want := chunk.ChunkCount(250, res.Chunks.ChunkSize); res.Chunks.Chunks != want {
		t.Fatalf("Chunks = %d, want %d", res.Chunks.Chunks, want)
	}

	inv, err := s.Inspect()
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	for _, info := range inv.Chunks {
		if info.Entries > int64(res.Chunks.ChunkSize) {
			t.Fatalf("chunk %d holds %d entries, above %d", info.Index, info.Entries, res.Chunks.ChunkSize)
		}
	}
}

func TestStore_ReadMissing(t *testing.T) {
	s := newTestStore(t, nil)

	_, _, err := s.Read()
	if !errors.Is(err, domain.ErrStateNotFound) {
		t.Fatalf("Read err = %v, want ErrStateNotFound", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Read err = %v, want fs.ErrNotExist in chain", err)
	}
}

func TestStore_ReadCorruptState(t *testing.T) {
	s := newTestStore(t, nil)
	if _, err := s.Write(makeState(5, 16)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(s.StatePath())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	data[len(data)/2] ^= 0xFF
	if err := os.WriteFile(s.StatePath(), data, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, _, err = s.Read()
	if !errors.Is(err, domain.ErrStateCorrupted) {
		t.Fatalf("Read err = %v, want ErrStateCorrupted", err)
	}
}

func TestStore_ReadCorruptChunk(t *testing.T) {
	s := newTestStore(t, nil)
	if _, err := s.Write(makeState(100, 512)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := os.WriteFile(s.chunks.Path(0), []byte("SCCHUNK\x01 not a real chunk file at all, padded past the minimum"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, _, err := s.Read()
	if !errors.Is(err, domain.ErrChunkCorrupted) {
		t.Fatalf("Read err = %v, want ErrChunkCorrupted", err)
	}
}

func TestStore_GenerationMismatchWarns(t *testing.T) {
	var logs bytes.Buffer
	s := newTestStore(t, func(c *Config) { c.Logger = testLogger(t, &logs) })

	if _, err := s.Write(makeState(40, 512)); err != nil {
		t.Fatalf("Write(first): %v", err)
	}
	old := make(map[string][]byte)
	paths, _ := s.chunks.Chunks()
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		old[p] = data
	}

	if _, err := s.Write(makeState(40, 512)); err != nil {
		t.Fatalf("Write(second): %v", err)
	}
	// Simulate chunks surviving from the previous write.
	for p, data := range old {
		if err := os.WriteFile(p, data, 0600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	out, res, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(out.Records) != 40 {
		t.Fatalf("len(Records) = %d, want 40", len(out.Records))
	}
	if res.Consistent {
		t.Fatal("ReadResult.Consistent = true, want false")
	}
	if !strings.Contains(logs.String(), "chunk generation differs from state") {
		t.Fatalf("no generation warning logged:\n%s", logs.String())
	}

	inv, err := s.Inspect()
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if inv.Consistent {
		t.Fatal("Inventory.Consistent = true, want false")
	}
}

func TestStore_Inspect(t *testing.T) {
	s := newTestStore(t, nil)

	inv, err := s.Inspect()
	if err != nil {
		t.Fatalf("Inspect(empty): %v", err)
	}
	if inv.State != nil || len(inv.Chunks) != 0 || !inv.Consistent {
		t.Fatalf("Inspect(empty) = %+v", inv)
	}

	res, err := s.Write(makeState(150, 512))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	inv, err = s.Inspect()
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if inv.State == nil || inv.State.Generation != res.Generation || inv.State.Records != 150 {
		t.Fatalf("Inventory.State = %+v", inv.State)
	}
	if len(inv.Chunks) != res.Chunks.Chunks || inv.Records != 150 || !inv.Consistent {
		t.Fatalf("Inventory = %+v", inv)
	}
	if inv.TotalBytes != res.StateBytes+res.Chunks.Bytes {
		t.Fatalf("TotalBytes = %d, want %d", inv.TotalBytes, res.StateBytes+res.Chunks.Bytes)
	}
}

func TestStore_Purge(t *testing.T) {
	s := newTestStore(t, nil)
	res, err := s.Write(makeState(100, 512))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := os.WriteFile(s.StatePath()+envelope.TempSuffix, []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	removed, err := s.Purge()
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if want := res.Chunks.Chunks + 2; removed != want {
		t.Fatalf("Purge removed %d, want %d", removed, want)
	}
	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("files left after purge: %v", entries)
	}

	if _, _, err := s.Read(); !errors.Is(err, domain.ErrStateNotFound) {
		t.Fatalf("Read after purge err = %v, want ErrStateNotFound", err)
	}
}

func TestStore_Metrics(t *testing.T) {
	reg := metric.NewRegistry()
	s := newTestStore(t, func(c *Config) { c.Metrics = reg })

	if _, _, err := s.Read(); err == nil {
		t.Fatal("Read on empty dir succeeded")
	}
	if got := testutil.ToFloat64(reg.OperationErrors.WithLabelValues(metric.OpRead, "SC-STATE-4040")); got != 1 {
		t.Fatalf("read errors = %v, want 1", got)
	}

	res, err := s.Write(makeState(120, 512))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := testutil.ToFloat64(reg.BytesWritten); got != float64(res.StateBytes+res.Chunks.Bytes) {
		t.Fatalf("BytesWritten = %v, want %d", got, res.StateBytes+res.Chunks.Bytes)
	}
	if got := testutil.ToFloat64(reg.ChunkFiles); got != float64(res.Chunks.Chunks) {
		t.Fatalf("ChunkFiles = %v, want %d", got, res.Chunks.Chunks)
	}
	if got := testutil.ToFloat64(reg.ChunkSize); got != float64(res.Chunks.ChunkSize) {
		t.Fatalf("ChunkSize = %v, want %d", got, res.Chunks.ChunkSize)
	}

	if _, _, err := s.Read(); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := testutil.ToFloat64(reg.Records); got != 120 {
		t.Fatalf("Records = %v, want 120", got)
	}
	if got := testutil.ToFloat64(reg.BytesRead); got == 0 {
		t.Fatal("BytesRead not updated")
	}
}
