package metric

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDirCollector(t *testing.T) {
	dir := t.TempDir()
	for name, size := range map[string]int{
		"redux.state":        10,
		"redux.node.state_0": 20,
		"redux.node.state_1": 30,
		"other.txt":          1000,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "redux.sub"), 0700); err != nil {
		t.Fatal(err)
	}

	c := NewDirCollector(dir, "redux.")
	want := `
# HELP statecache_cache_bytes Total size of the files in the cache directory
# TYPE statecache_cache_bytes gauge
statecache_cache_bytes 60
# HELP statecache_cache_files Files in the cache directory
# TYPE statecache_cache_files gauge
statecache_cache_files 3
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(want)); err != nil {
		t.Error(err)
	}
}

func TestDirCollector_MissingDir(t *testing.T) {
	c := NewDirCollector(filepath.Join(t.TempDir(), "absent"))
	if got := testutil.CollectAndCount(c); got != 2 {
		t.Errorf("CollectAndCount = %d, want 2", got)
	}
	files, size := c.usage()
	if files != 0 || size != 0 {
		t.Errorf("usage() = (%d, %d), want zeros", files, size)
	}
}

func TestRegistry_RegisterDirCollector(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(NewDirCollector(t.TempDir())); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(NewDirCollector(t.TempDir())); err == nil {
		t.Error("registering a second DirCollector should fail")
	}
}
