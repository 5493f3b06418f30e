package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type exported struct {
	ID         string `json:"id" yaml:"id"`
	Transcript string `json:"transcript" yaml:"transcript"`
}

func TestOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	err := Output([]exported{{ID: "a", Transcript: "hello"}}, OutputOptions{Format: FormatJSON, Writer: &buf})
	if err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	var got []exported
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got) != 1 || got[0].Transcript != "hello" {
		t.Errorf("decoded = %+v; want one session with transcript hello", got)
	}
}

func TestOutput_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(exported{ID: "a", Transcript: "hello"}, OutputOptions{Writer: &buf}); err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "transcript: hello") {
		t.Errorf("output = %q; want transcript: hello", out)
	}
}

func TestOutput_Raw(t *testing.T) {
	var buf bytes.Buffer
	if err := Output("plain", OutputOptions{Format: FormatRaw, Writer: &buf}); err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	if buf.String() != "plain" {
		t.Errorf("output = %q; want plain", buf.String())
	}
}

func TestOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := Output(exported{ID: "a"}, OutputOptions{Format: FormatForPath(path), File: path}); err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid(data) {
		t.Errorf("file content is not JSON: %s", data)
	}
}

func TestOutput_Unsupported(t *testing.T) {
	if err := Output(1, OutputOptions{Format: "csv", Writer: &bytes.Buffer{}}); err == nil {
		t.Error("Output(csv) = nil error; want error")
	}
}

func TestFormatForPath(t *testing.T) {
	tests := map[string]OutputFormat{
		"h.json": FormatJSON,
		"h.JSON": FormatJSON,
		"h.yaml": FormatYAML,
		"h":      FormatYAML,
	}
	for path, want := range tests {
		if got := FormatForPath(path); got != want {
			t.Errorf("FormatForPath(%q) = %q; want %q", path, got, want)
		}
	}
}

func TestOutput_FailedEncodeKeepsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte(`{"old":true}`), 0644); err != nil {
		t.Fatal(err)
	}
	// Channels cannot be encoded as JSON.
	if err := Output(make(chan int), OutputOptions{Format: FormatJSON, File: path}); err == nil {
		t.Fatal("Output(chan) = nil error; want error")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"old":true}` {
		t.Errorf("file = %s; want previous content", data)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries; want only the original file", len(entries))
	}
}
