package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveKubeconfig(t *testing.T) {
	t.Setenv(EnvKubeconfig, "/from/env")
	assert.Equal(t, "/explicit", ResolveKubeconfig("/explicit"))
	assert.Equal(t, "/from/env", ResolveKubeconfig(""))
}

func TestBuildKubeClient_InvalidPath(t *testing.T) {
	_, _, err := BuildKubeClient("/nonexistent/kubeconfig")
	assert.ErrorContains(t, err, "failed to build kube config")

	t.Setenv(EnvKubeconfig, "/nonexistent/env/kubeconfig")
	_, _, err = GetKubeClientWithConfig("")
	assert.ErrorContains(t, err, "/nonexistent/env/kubeconfig")
}

func TestBuildKubeClient_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	kubeconfig := `apiVersion: v1
kind: Config
clusters:
- name: lab
  cluster:
    server: https://127.0.0.1:6443
contexts:
- name: lab
  context:
    cluster: lab
    user: lab
current-context: lab
users:
- name: lab
  user:
    token: abc
`
	if err := os.WriteFile(path, []byte(kubeconfig), 0o600); err != nil {
		t.Fatal(err)
	}

	cs, cfg, err := BuildKubeClient(path)
	assert.NoError(t, err)
	assert.NotNil(t, cs)
	assert.Equal(t, "https://127.0.0.1:6443", cfg.Host)
	assert.Equal(t, "invsync", cfg.UserAgent)
}
