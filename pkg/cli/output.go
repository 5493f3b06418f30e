package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// OutputFormat selects the encoding used by Output.
type OutputFormat string

const (
	FormatYAML OutputFormat = "yaml"
	FormatJSON OutputFormat = "json"

	// FormatRaw writes strings and byte slices unchanged; anything else is
	// written as YAML.
	FormatRaw OutputFormat = "raw"
)

// FormatForPath picks the output format from a file extension. Unknown
// extensions default to YAML.
func FormatForPath(path string) OutputFormat {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// OutputOptions configures Output.
type OutputOptions struct {
	Format OutputFormat

	// File receives the output when set. It is replaced atomically, so a
	// failed export never leaves a truncated file behind.
	File string

	// Indent is the JSON indentation, two spaces by default.
	Indent string

	// Writer overrides File. Stdout is used when both are empty.
	Writer io.Writer
}

// Output encodes result and writes it to the configured destination.
func Output(result any, opts OutputOptions) error {
	var buf bytes.Buffer
	if err := encode(&buf, result, opts); err != nil {
		return err
	}
	switch {
	case opts.Writer != nil:
		_, err := opts.Writer.Write(buf.Bytes())
		return err
	case opts.File != "":
		return writeFileAtomic(opts.File, buf.Bytes())
	default:
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}
}

func encode(w io.Writer, result any, opts OutputOptions) error {
	switch opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		indent := opts.Indent
		if indent == "" {
			indent = "  "
		}
		enc.SetIndent("", indent)
		return enc.Encode(result)
	case FormatYAML, "":
		return encodeYAML(w, result)
	case FormatRaw:
		switch v := result.(type) {
		case []byte:
			_, err := w.Write(v)
			return err
		case string:
			_, err := io.WriteString(w, v)
			return err
		}
		return encodeYAML(w, result)
	}
	return fmt.Errorf("unsupported output format: %s", opts.Format)
}

func encodeYAML(w io.Writer, result any) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func writeFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// PrintSuccess prints a success message with checkmark
func PrintSuccess(format string, args ...any) {
	fmt.Printf("✓ "+format+"\n", args...)
}

// PrintError prints an error message to stderr
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...any) {
	fmt.Printf("ℹ "+format+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...any) {
	fmt.Printf("⚠ "+format+"\n", args...)
}
