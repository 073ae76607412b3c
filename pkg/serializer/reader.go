package serializer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/netops-tools/invsync/pkg/k8s/client"
	"gopkg.in/yaml.v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// FormatFromPath determines the serialization format based on file extension.
// Extension matching is case-insensitive; unknown extensions are JSON.
func FormatFromPath(filePath string) Format {
	lower := strings.ToLower(filePath)
	switch {
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return FormatYAML
	case strings.HasSuffix(lower, ".table"), strings.HasSuffix(lower, ".txt"):
		return FormatTable
	default:
		slog.Debug("unknown file extension, defaulting to JSON", "path", filePath)
		return FormatJSON
	}
}

// Reader deserializes JSON or YAML from an io.Reader.
type Reader struct {
	format Format
	input  io.Reader
}

// NewReader returns a Reader. Table format cannot be read back.
func NewReader(format Format, input io.Reader) (*Reader, error) {
	if format.IsUnknown() {
		return nil, fmt.Errorf("unknown format: %s", format)
	}
	if format == FormatTable {
		return nil, fmt.Errorf("table format does not support deserialization")
	}
	if input == nil {
		return nil, fmt.Errorf("input source is nil")
	}
	return &Reader{format: format, input: input}, nil
}

// Deserialize decodes the input into v, which must be a pointer.
func (r *Reader) Deserialize(v any) error {
	switch r.format {
	case FormatJSON:
		if err := json.NewDecoder(r.input).Decode(v); err != nil {
			return fmt.Errorf("failed to decode JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r.input).Decode(v); err != nil {
			return fmt.Errorf("failed to decode YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format for deserialization: %s", r.format)
	}
	return nil
}

// Unmarshal decodes data in format into v.
func Unmarshal(format Format, data []byte, v any) error {
	r, err := NewReader(format, bytes.NewReader(data))
	if err != nil {
		return err
	}
	return r.Deserialize(v)
}

// ReadOption configures FromFile.
type ReadOption func(*readOptions)

type readOptions struct {
	kubeconfig string
	client     client.Interface
	http       *HttpReader
}

// WithKubeconfig selects the kubeconfig used for cm:// paths.
func WithKubeconfig(path string) ReadOption {
	return func(o *readOptions) {
		o.kubeconfig = path
	}
}

// WithKubeClient sets the client used for cm:// paths.
func WithKubeClient(c client.Interface) ReadOption {
	return func(o *readOptions) {
		o.client = c
	}
}

// WithHttpReader sets the reader used for http(s) paths.
func WithHttpReader(r *HttpReader) ReadOption {
	return func(o *readOptions) {
		o.http = r
	}
}

// FromFile reads a document into a new T from one of:
//
//	/path/to/inventory.json
//	https://example.com/inventory.yaml
//	cm://namespace/name
//
// Local and remote formats come from the extension. ConfigMaps record their
// format in data.format.
func FromFile[T any](ctx context.Context, location string, opts ...ReadOption) (*T, error) {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}

	data, format, err := readLocation(ctx, location, &o)
	if err != nil {
		return nil, err
	}

	var out T
	if err := Unmarshal(format, data, &out); err != nil {
		return nil, fmt.Errorf("failed to deserialize %q: %w", location, err)
	}
	slog.Debug("loaded document", "location", location, "format", format, "bytes", len(data))
	return &out, nil
}

func readLocation(ctx context.Context, location string, o *readOptions) ([]byte, Format, error) {
	switch {
	case strings.HasPrefix(location, ConfigMapURIScheme):
		namespace, name, err := parseConfigMapURI(location)
		if err != nil {
			return nil, "", err
		}
		return readConfigMap(ctx, namespace, name, o)

	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		u, err := url.Parse(location)
		if err != nil {
			return nil, "", fmt.Errorf("invalid url %q: %w", location, err)
		}
		hr := o.http
		if hr == nil {
			hr = NewHttpReader()
		}
		data, err := hr.ReadWithContext(ctx, location)
		if err != nil {
			return nil, "", err
		}
		return data, FormatFromPath(path.Base(u.Path)), nil

	default:
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %q: %w", location, err)
		}
		return data, FormatFromPath(location), nil
	}
}

func readConfigMap(ctx context.Context, namespace, name string, o *readOptions) ([]byte, Format, error) {
	kc := o.client
	if kc == nil {
		var err error
		if o.kubeconfig != "" {
			kc, _, err = client.GetKubeClientWithConfig(o.kubeconfig)
		} else {
			kc, _, err = client.GetKubeClient()
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to get kubernetes client: %w", err)
		}
	}

	cm, err := kc.CoreV1().ConfigMaps(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get ConfigMap %s/%s: %w", namespace, name, err)
	}

	format := FormatJSON
	if f, ok := cm.Data[configMapFormatKey]; ok {
		format = Format(f)
	}
	if content, ok := cm.Data[configMapDataPrefix+format.Extension()]; ok {
		return []byte(content), format, nil
	}
	for _, f := range []Format{FormatJSON, FormatYAML} {
		if content, ok := cm.Data[configMapDataPrefix+f.Extension()]; ok {
			return []byte(content), f, nil
		}
	}
	return nil, "", fmt.Errorf("ConfigMap %s/%s has no inventory data", namespace, name)
}
