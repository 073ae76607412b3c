package config

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/netops-tools/invsync/pkg/logging"
)

// Secret is a credential that never renders its value. Use Reveal to obtain
// the plaintext at the point of use.
type Secret string

// Reveal returns the plaintext value.
func (s Secret) Reveal() string {
	return string(s)
}

// IsZero reports whether the secret is empty.
func (s Secret) IsZero() bool {
	return s == ""
}

// String implements fmt.Stringer.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return logging.Redacted
}

// GoString implements fmt.GoStringer so %#v does not leak the value.
func (s Secret) GoString() string {
	return s.String()
}

// LogValue implements slog.LogValuer.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(s.String())
}

// MarshalText implements encoding.TextMarshaler so JSON and YAML output is
// redacted too.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Secret) UnmarshalText(text []byte) error {
	*s = Secret(strings.TrimSpace(string(text)))
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Secret) MarshalYAML() (any, error) {
	return s.String(), nil
}

// readTokenFile returns the token stored at path. When identityPath is set the
// file is age-encrypted, optionally ASCII-armored, to one of the identities in
// identityPath.
func readTokenFile(path, identityPath string) (Secret, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	if identityPath == "" {
		return Secret(strings.TrimSpace(string(data))), nil
	}

	plaintext, err := openSealed(data, identityPath)
	if err != nil {
		return "", err
	}
	return Secret(strings.TrimSpace(string(plaintext))), nil
}

func openSealed(data []byte, identityPath string) ([]byte, error) {
	f, err := os.Open(identityPath)
	if err != nil {
		return nil, fmt.Errorf("opening token identity file: %w", err)
	}
	defer f.Close()

	identities, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parsing token identity file: %w", err)
	}

	var src io.Reader = bytes.NewReader(data)
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(armor.Header)) {
		src = armor.NewReader(bytes.NewReader(bytes.TrimSpace(data)))
	}

	r, err := age.Decrypt(src, identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypting token file: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted token: %w", err)
	}
	return plaintext, nil
}
