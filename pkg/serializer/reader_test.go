package serializer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"inv.json":       FormatJSON,
		"INV.YAML":       FormatYAML,
		"inv.yml":        FormatYAML,
		"inv.txt":        FormatTable,
		"inventory":      FormatJSON,
		"/a/b/inv.jsonc": FormatJSON,
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatFromPath(in), in)
	}
}

func TestNewReader_RejectsTable(t *testing.T) {
	_, err := NewReader(FormatTable, strings.NewReader("x"))
	assert.Error(t, err)
	_, err = NewReader(Format("xml"), strings.NewReader("x"))
	assert.Error(t, err)
	_, err = NewReader(FormatJSON, nil)
	assert.Error(t, err)
}

func TestFromFile_Local(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []Format{FormatJSON, FormatYAML} {
		path := filepath.Join(dir, "inv."+f.Extension())
		data, err := Marshal(f, sampleDoc())
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o600))

		got, err := FromFile[testDoc](context.Background(), path)
		require.NoError(t, err, f)
		assert.Equal(t, sampleDoc(), *got, f)
	}

	_, err := FromFile[testDoc](context.Background(), filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestFromFile_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inv.yaml" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "invsync-test", r.Header.Get("User-Agent"))
		data, _ := Marshal(FormatYAML, sampleDoc())
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	hr := NewHttpReader(WithUserAgent("invsync-test"))
	got, err := FromFile[testDoc](context.Background(), srv.URL+"/inv.yaml", WithHttpReader(hr))
	require.NoError(t, err)
	assert.Equal(t, []string{"R1", "SW1", "VYOS1"}, got.Hosts)

	_, err = FromFile[testDoc](context.Background(), srv.URL+"/missing.json", WithHttpReader(hr))
	assert.Error(t, err)
}

func TestFromFile_ConfigMap(t *testing.T) {
	data, err := Marshal(FormatJSON, sampleDoc())
	require.NoError(t, err)

	cs := fake.NewClientset(&corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "inventory", Namespace: "automation"},
		Data: map[string]string{
			"format":         "json",
			"inventory.json": string(data),
		},
	}, &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "empty", Namespace: "automation"},
		Data:       map[string]string{"format": "json"},
	})

	got, err := FromFile[testDoc](context.Background(), "cm://automation/inventory", WithKubeClient(cs))
	require.NoError(t, err)
	assert.Equal(t, sampleDoc(), *got)

	_, err = FromFile[testDoc](context.Background(), "cm://automation/empty", WithKubeClient(cs))
	assert.ErrorContains(t, err, "no inventory data")

	_, err = FromFile[testDoc](context.Background(), "cm://automation/missing", WithKubeClient(cs))
	assert.Error(t, err)
}
