/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/

package oci

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"maps"
	"net/http"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/memory"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"

	"github.com/netops-tools/invsync/pkg/defaults"
	"github.com/netops-tools/invsync/pkg/serializer"
)

const (
	// ArtifactType is the OCI artifact type of inventory documents.
	ArtifactType = "application/vnd.invsync.inventory.v1"

	mediaTypePrefix = "application/vnd.invsync.inventory.v1+"
)

// LayerMediaType returns the layer media type for a document format.
func LayerMediaType(format serializer.Format) string {
	switch format {
	case serializer.FormatYAML:
		return mediaTypePrefix + "yaml"
	case serializer.FormatTable:
		return "text/plain"
	default:
		return mediaTypePrefix + "json"
	}
}

// PushOptions configures a push.
type PushOptions struct {
	// Format selects the layer media type and file name.
	Format serializer.Format
	// Annotations are added to the manifest, for example the snapshot digest.
	Annotations map[string]string
	// PlainHTTP uses HTTP instead of HTTPS for the registry connection.
	PlainHTTP bool
	// InsecureTLS skips TLS certificate verification.
	InsecureTLS bool
}

// PushResult describes a pushed artifact.
type PushResult struct {
	// Digest is the manifest digest.
	Digest string
	// Reference is registry/repository:tag.
	Reference string
}

// Push uploads data as a single-layer artifact to ref.
func Push(ctx context.Context, ref *Reference, data []byte, opts PushOptions) (*PushResult, error) {
	repo, err := remote.NewRepository(ref.Repo())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote repository: %w", err)
	}
	repo.PlainHTTP = opts.PlainHTTP
	repo.Client = createAuthClient(opts.PlainHTTP, opts.InsecureTLS)

	desc, err := pushTo(ctx, repo, ref.Tag, data, opts)
	if err != nil {
		return nil, err
	}
	return &PushResult{
		Digest:    desc.Digest.String(),
		Reference: ref.ImageReference(),
	}, nil
}

// pushTo packs the artifact in memory, then copies it to dst under tag.
func pushTo(ctx context.Context, dst oras.Target, tag string, data []byte, opts PushOptions) (ociv1.Descriptor, error) {
	store := memory.New()

	layer, err := oras.PushBytes(ctx, store, LayerMediaType(opts.Format), data)
	if err != nil {
		return ociv1.Descriptor{}, fmt.Errorf("failed to stage document layer: %w", err)
	}
	layer.Annotations = map[string]string{
		ociv1.AnnotationTitle: "inventory." + opts.Format.Extension(),
	}

	annotations := map[string]string{
		ociv1.AnnotationTitle: "invsync inventory",
	}
	maps.Copy(annotations, opts.Annotations)

	manifest, err := oras.PackManifest(ctx, store, oras.PackManifestVersion1_1, ArtifactType, oras.PackManifestOptions{
		Layers:              []ociv1.Descriptor{layer},
		ManifestAnnotations: annotations,
	})
	if err != nil {
		return ociv1.Descriptor{}, fmt.Errorf("failed to pack manifest: %w", err)
	}
	if err := store.Tag(ctx, manifest, tag); err != nil {
		return ociv1.Descriptor{}, fmt.Errorf("failed to tag manifest in local store: %w", err)
	}

	desc, err := oras.Copy(ctx, store, tag, dst, tag, oras.DefaultCopyOptions)
	if err != nil {
		return ociv1.Descriptor{}, fmt.Errorf("failed to push artifact to registry: %w", err)
	}
	return desc, nil
}

// createAuthClient creates an HTTP client with optional TLS configuration
// and Docker credential support.
func createAuthClient(plainHTTP, insecureTLS bool) *auth.Client {
	credStore, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
	if err != nil {
		slog.Debug("docker credential store unavailable, pushing anonymously", "error", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !plainHTTP && insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	c := &auth.Client{
		Client: &http.Client{Transport: transport},
		Cache:  auth.NewCache(),
	}
	if credStore != nil {
		c.Credential = credentials.Credential(credStore)
	}
	return c
}

// Sink pushes every serialized value to a fixed reference.
type Sink struct {
	ref  *Reference
	opts PushOptions

	// push is replaced in tests.
	push func(ctx context.Context, ref *Reference, data []byte, opts PushOptions) (*PushResult, error)
}

// NewSink parses target and returns a serializer that pushes documents in
// format to it.
func NewSink(target string, format serializer.Format, opts ...func(*PushOptions)) (*Sink, error) {
	ref, err := ParseReference(target)
	if err != nil {
		return nil, err
	}
	po := PushOptions{Format: format}
	for _, opt := range opts {
		opt(&po)
	}
	return &Sink{ref: ref, opts: po, push: Push}, nil
}

// WithAnnotations adds manifest annotations to every push.
func WithAnnotations(a map[string]string) func(*PushOptions) {
	return func(o *PushOptions) {
		if o.Annotations == nil {
			o.Annotations = make(map[string]string, len(a))
		}
		maps.Copy(o.Annotations, a)
	}
}

// WithPlainHTTP talks to the registry over HTTP.
func WithPlainHTTP(plain bool) func(*PushOptions) {
	return func(o *PushOptions) {
		o.PlainHTTP = plain
	}
}

func (s *Sink) Serialize(ctx context.Context, v any) error {
	data, err := serializer.Marshal(s.opts.Format, v)
	if err != nil {
		return err
	}

	pushCtx, cancel := context.WithTimeout(ctx, defaults.OCIPushTimeout)
	defer cancel()

	res, err := s.push(pushCtx, s.ref, data, s.opts)
	if err != nil {
		return err
	}
	slog.Info("inventory pushed", "reference", res.Reference, "digest", res.Digest)
	return nil
}

func (s *Sink) Describe() string {
	return s.ref.String()
}
