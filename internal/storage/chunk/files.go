package chunk

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultPrefix is the file name prefix of chunk files.
const DefaultPrefix = "redux.node.state_"

// Files names the chunk files of one cache directory.
type Files struct {
	Dir    string
	Prefix string
}

// Path returns the path of chunk index.
func (f Files) Path(index int) string {
	return filepath.Join(f.Dir, f.Prefix+strconv.Itoa(index))
}

// Matching returns the paths of all files whose name carries the prefix,
// chunk files and leftovers alike.
func (f Files) Matching() ([]string, error) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), f.Prefix) {
			paths = append(paths, filepath.Join(f.Dir, e.Name()))
		}
	}
	return paths, nil
}

// Chunks returns the chunk file paths ordered by index. Files that carry the
// prefix but no numeric suffix, such as interrupted temp files, are skipped.
func (f Files) Chunks() ([]string, error) {
	paths, err := f.Matching()
	if err != nil {
		return nil, err
	}

	type indexed struct {
		index int
		path  string
	}
	var chunks []indexed
	for _, p := range paths {
		if idx, ok := f.Index(filepath.Base(p)); ok {
			chunks = append(chunks, indexed{idx, p})
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].index < chunks[j].index })

	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.path
	}
	return out, nil
}

// Index parses the chunk index from a file name.
func (f Files) Index(name string) (int, bool) {
	suffix, ok := strings.CutPrefix(name, f.Prefix)
	if !ok || suffix == "" {
		return 0, false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	idx, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}
	return idx, true
}
