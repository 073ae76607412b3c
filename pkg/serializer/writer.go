package serializer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Format represents the output format type
type Format string

const (
	// FormatJSON outputs data in JSON format
	FormatJSON Format = "json"
	// FormatYAML outputs data in YAML format
	FormatYAML Format = "yaml"
	// FormatTable outputs data in table format
	FormatTable Format = "table"
)

const defaultValueKey = "value"

func (f Format) IsUnknown() bool {
	switch f {
	case FormatJSON, FormatYAML, FormatTable:
		return false
	default:
		return true
	}
}

// Extension returns the file extension used for documents in this format.
func (f Format) Extension() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTable:
		return "txt"
	default:
		return "json"
	}
}

// SupportedFormats returns a list of all supported output formats
// for serialization.
func SupportedFormats() []string {
	return []string{
		string(FormatJSON),
		string(FormatYAML),
		string(FormatTable),
	}
}

// ParseFormat converts a user supplied name to a Format. The empty string
// selects JSON.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatJSON, nil
	}
	if f == "yml" {
		return FormatYAML, nil
	}
	if f.IsUnknown() {
		return "", fmt.Errorf("unknown format %q, supported: %s", s, strings.Join(SupportedFormats(), ", "))
	}
	return f, nil
}

func knownOrJSON(format Format) Format {
	if format.IsUnknown() {
		slog.Warn("unknown format, defaulting to JSON", "format", format)
		return FormatJSON
	}
	return format
}

// Marshal encodes v in the given format. Output always ends in a newline
// and is a pure function of v.
func Marshal(format Format, v any) ([]byte, error) {
	switch format {
	case FormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("failed to serialize to JSON: %w", err)
		}
		return buf.Bytes(), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("failed to serialize to YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to serialize to YAML: %w", err)
		}
		return buf.Bytes(), nil
	case FormatTable:
		return marshalTable(v)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Writer serializes values to an io.Writer.
type Writer struct {
	format Format
	output io.Writer
}

// NewWriter creates a new Writer with the specified format and output destination.
// If output is nil, os.Stdout will be used.
// If format is unknown, defaults to JSON format.
func NewWriter(format Format, output io.Writer) *Writer {
	if output == nil {
		output = os.Stdout
	}
	return &Writer{
		format: knownOrJSON(format),
		output: output,
	}
}

// NewStdoutWriter creates a new Writer that outputs to stdout in the specified format.
func NewStdoutWriter(format Format) *Writer {
	return NewWriter(format, os.Stdout)
}

// Serialize encodes v fully before issuing a single write.
func (w *Writer) Serialize(_ context.Context, v any) error {
	data, err := Marshal(w.format, v)
	if err != nil {
		return err
	}
	_, err = w.output.Write(data)
	return err
}

func (w *Writer) Describe() string {
	if w.output == os.Stdout {
		return "stdout"
	}
	return "writer"
}

// FileWriter replaces a file with each serialized value. Readers of the path
// see either the previous or the new document, never a truncated one.
type FileWriter struct {
	path   string
	format Format
	perm   os.FileMode
}

// NewFileWriter returns a FileWriter for path.
func NewFileWriter(format Format, path string) *FileWriter {
	return &FileWriter{
		path:   path,
		format: knownOrJSON(format),
		perm:   0o644,
	}
}

func (w *FileWriter) Serialize(_ context.Context, v any) error {
	data, err := Marshal(w.format, v)
	if err != nil {
		return err
	}
	return WriteFileAtomic(w.path, data, w.perm)
}

func (w *FileWriter) Describe() string {
	return w.path
}

// WriteFileAtomic writes data to a temporary file next to path, syncs it
// and renames it over path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	name := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(name)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync %s: %w", name, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		cleanup()
		return fmt.Errorf("failed to chmod %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// SinkOption configures sinks built by NewSink.
type SinkOption func(*sinkOptions)

type sinkOptions struct {
	cm []ConfigMapOption
}

// WithConfigMapOptions passes options to a ConfigMap sink.
func WithConfigMapOptions(opts ...ConfigMapOption) SinkOption {
	return func(o *sinkOptions) {
		o.cm = append(o.cm, opts...)
	}
}

// NewSink routes target to a Serializer: stdout for "" or "-", a ConfigMap
// for cm://namespace/name and an atomically replaced file otherwise.
func NewSink(target string, format Format, opts ...SinkOption) (Serializer, error) {
	var o sinkOptions
	for _, opt := range opts {
		opt(&o)
	}

	trimmed := strings.TrimSpace(target)
	switch {
	case trimmed == "" || trimmed == "-":
		return NewStdoutWriter(format), nil
	case strings.HasPrefix(trimmed, ConfigMapURIScheme):
		namespace, name, err := parseConfigMapURI(trimmed)
		if err != nil {
			return nil, err
		}
		return NewConfigMapWriter(namespace, name, format, o.cm...), nil
	case strings.Contains(trimmed, "://"):
		return nil, fmt.Errorf("unsupported output target %q", trimmed)
	default:
		return NewFileWriter(format, trimmed), nil
	}
}

func marshalTable(v any) ([]byte, error) {
	flat := make(map[string]any)
	flattenValue(flat, reflect.ValueOf(v), "")
	if len(flat) == 0 {
		return []byte("<empty>\n"), nil
	}

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tVALUE")
	fmt.Fprintln(tw, "-----\t-----")
	for _, key := range keys {
		fmt.Fprintf(tw, "%s\t%v\n", key, flat[key])
	}
	if err := tw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush table: %w", err)
	}
	return buf.Bytes(), nil
}

func flattenValue(out map[string]any, val reflect.Value, prefix string) {
	if !val.IsValid() {
		return
	}

	for val.Kind() == reflect.Pointer || val.Kind() == reflect.Interface {
		if val.IsNil() {
			if prefix != "" {
				out[prefix] = nil
			}
			return
		}
		val = val.Elem()
	}

	//nolint:exhaustive // scalars fall through to default
	switch val.Kind() {
	case reflect.Struct:
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			flattenValue(out, val.Field(i), joinKey(prefix, fieldKey(field)))
		}
	case reflect.Map:
		for _, mapKey := range val.MapKeys() {
			key := joinKey(prefix, fmt.Sprintf("%v", mapKey.Interface()))
			flattenValue(out, val.MapIndex(mapKey), key)
		}
	case reflect.Slice, reflect.Array:
		if val.Len() == 0 && prefix != "" {
			out[prefix] = "[]"
			return
		}
		for i := 0; i < val.Len(); i++ {
			key := joinKey(prefix, fmt.Sprintf("[%d]", i))
			flattenValue(out, val.Index(i), key)
		}
	default:
		if prefix == "" {
			prefix = defaultValueKey
		}
		out[prefix] = val.Interface()
	}
}

// fieldKey prefers the json tag name so table keys match the JSON document.
func fieldKey(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("json"); ok {
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

func joinKey(prefix, suffix string) string {
	if prefix == "" {
		return suffix
	}
	if suffix == "" {
		return prefix
	}
	return prefix + "." + suffix
}
