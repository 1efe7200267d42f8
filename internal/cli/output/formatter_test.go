package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type sample struct {
	Name    string `json:"name" yaml:"name"`
	Records int    `json:"records" yaml:"records"`
	Path    string `json:"-" yaml:"-"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = (%q, %v), want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON, false).(*JSONFormatter); !ok {
		t.Error("NewFormatter(json) is not a JSONFormatter")
	}
	if _, ok := NewFormatter(FormatYAML, false).(*YAMLFormatter); !ok {
		t.Error("NewFormatter(yaml) is not a YAMLFormatter")
	}
	if tf, ok := NewFormatter(FormatTable, true).(*TableFormatter); !ok || !tf.Wide {
		t.Error("NewFormatter(table, wide) is not a wide TableFormatter")
	}
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONFormatter{}).Format(&buf, sample{Name: "redux.state", Records: 3, Path: "/x"}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got["name"] != "redux.state" || got["records"] != float64(3) {
		t.Errorf("decoded = %v", got)
	}
	if _, ok := got["Path"]; ok {
		t.Error("json:\"-\" field was written")
	}
	if !strings.Contains(buf.String(), "\n  \"name\"") {
		t.Errorf("output not indented:\n%s", buf.String())
	}
}

func TestYAMLFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	in := []sample{{Name: "a", Records: 1}, {Name: "b", Records: 2}}
	if err := (&YAMLFormatter{}).Format(&buf, in); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var got []sample
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, buf.String())
	}
	if len(got) != 2 || got[1].Name != "b" || got[1].Records != 2 {
		t.Errorf("decoded = %+v", got)
	}
	if !strings.Contains(buf.String(), "- name: a") {
		t.Errorf("unexpected YAML:\n%s", buf.String())
	}
}
