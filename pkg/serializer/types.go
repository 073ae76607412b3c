package serializer

import "context"

// Serializer writes a value to some destination.
//
// The context bounds destinations that perform network I/O such as the
// ConfigMap writer.
type Serializer interface {
	Serialize(ctx context.Context, v any) error
}

// Closer is implemented by Serializers holding resources.
type Closer interface {
	Close() error
}

// Describer is implemented by Serializers that can name their destination
// for logs.
type Describer interface {
	Describe() string
}

// Close closes s when it implements Closer.
func Close(s Serializer) error {
	if c, ok := s.(Closer); ok {
		return c.Close()
	}
	return nil
}

// Describe returns the destination of s, or its type when unknown.
func Describe(s Serializer) string {
	if d, ok := s.(Describer); ok {
		return d.Describe()
	}
	return "unknown"
}
