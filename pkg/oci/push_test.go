package oci

import (
	"context"
	"encoding/json"
	"testing"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/memory"

	"github.com/netops-tools/invsync/pkg/serializer"
)

func TestPushTo_MemoryTarget(t *testing.T) {
	ctx := context.Background()
	dst := memory.New()
	doc := []byte(`{"groups":{}}` + "\n")

	desc, err := pushTo(ctx, dst, "prod", doc, PushOptions{
		Format:      serializer.FormatJSON,
		Annotations: map[string]string{"io.invsync.digest": "abc"},
	})
	require.NoError(t, err)
	assert.Equal(t, ociv1.MediaTypeImageManifest, desc.MediaType)

	_, raw, err := oras.FetchBytes(ctx, dst, "prod", oras.DefaultFetchBytesOptions)
	require.NoError(t, err)

	var manifest ociv1.Manifest
	require.NoError(t, json.Unmarshal(raw, &manifest))
	assert.Equal(t, ArtifactType, manifest.ArtifactType)
	assert.Equal(t, "abc", manifest.Annotations["io.invsync.digest"])
	require.Len(t, manifest.Layers, 1)
	assert.Equal(t, "application/vnd.invsync.inventory.v1+json", manifest.Layers[0].MediaType)
	assert.Equal(t, "inventory.json", manifest.Layers[0].Annotations[ociv1.AnnotationTitle])

	layer, err := content.FetchAll(ctx, dst, manifest.Layers[0])
	require.NoError(t, err)
	assert.Equal(t, doc, layer)
}

func TestLayerMediaType(t *testing.T) {
	assert.Equal(t, "application/vnd.invsync.inventory.v1+yaml", LayerMediaType(serializer.FormatYAML))
	assert.Equal(t, "application/vnd.invsync.inventory.v1+json", LayerMediaType(serializer.FormatJSON))
	assert.Equal(t, "text/plain", LayerMediaType(serializer.FormatTable))
}

func TestSink_Serialize(t *testing.T) {
	s, err := NewSink("oci://localhost:5000/inventory:dev", serializer.FormatYAML,
		WithAnnotations(map[string]string{"k": "v"}), WithPlainHTTP(true))
	require.NoError(t, err)

	var gotData []byte
	var gotOpts PushOptions
	s.push = func(_ context.Context, ref *Reference, data []byte, opts PushOptions) (*PushResult, error) {
		gotData, gotOpts = data, opts
		return &PushResult{Digest: "sha256:x", Reference: ref.ImageReference()}, nil
	}

	require.NoError(t, s.Serialize(context.Background(), map[string]int{"a": 1}))
	assert.Equal(t, "a: 1\n", string(gotData))
	assert.True(t, gotOpts.PlainHTTP)
	assert.Equal(t, "v", gotOpts.Annotations["k"])
	assert.Equal(t, "oci://localhost:5000/inventory:dev", s.Describe())

	_, err = NewSink("cm://a/b", serializer.FormatJSON)
	assert.Error(t, err)
}
