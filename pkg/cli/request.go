package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadRequest loads a YAML or JSON file into v. A path of "-" reads stdin.
func LoadRequest(path string, v any) error {
	if path == "-" {
		return ReadRequest(os.Stdin, "", v)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()
	return ReadRequest(f, path, v)
}

// ReadRequest reads r to the end and parses it like ParseRequest.
func ReadRequest(r io.Reader, filename string, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}
	return ParseRequest(data, filename, v)
}

// ParseRequest parses data as YAML or JSON depending on the extension of
// filename. Without a known extension JSON is tried when the data looks
// like a JSON object, YAML otherwise.
func ParseRequest(data []byte, filename string, v any) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return parseYAML(data, v)
	case ".json":
		return parseJSON(data, v)
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if err := parseJSON(data, v); err == nil {
			return nil
		}
	}
	if err := parseYAML(data, v); err != nil {
		return errors.New("failed to parse request (tried JSON and YAML)")
	}
	return nil
}

func parseYAML(data []byte, v any) error {
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func parseJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}
