// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package serializer

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/netops-tools/invsync/pkg/defaults"
	"github.com/netops-tools/invsync/pkg/k8s/client"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	accorev1 "k8s.io/client-go/applyconfigurations/core/v1"
)

const (
	// ConfigMapURIScheme prefixes ConfigMap targets: cm://namespace/name.
	ConfigMapURIScheme = "cm://"

	// ConfigMapFieldManager owns the fields invsync applies.
	ConfigMapFieldManager = "invsync"

	configMapDataPrefix = "inventory."
	configMapFormatKey  = "format"
	configMapTimeKey    = "timestamp"
)

// ConfigMapOption configures a ConfigMapWriter.
type ConfigMapOption func(*ConfigMapWriter)

// WithConfigMapClient sets the Kubernetes client. Without it the shared
// client from k8s/client is used.
func WithConfigMapClient(c client.Interface) ConfigMapOption {
	return func(w *ConfigMapWriter) {
		w.client = c
	}
}

// WithConfigMapKubeconfig selects an explicit kubeconfig file.
func WithConfigMapKubeconfig(path string) ConfigMapOption {
	return func(w *ConfigMapWriter) {
		w.kubeconfig = path
	}
}

// WithConfigMapAnnotations adds annotations to the applied ConfigMap, for
// example the snapshot digest and version.
func WithConfigMapAnnotations(a map[string]string) ConfigMapOption {
	return func(w *ConfigMapWriter) {
		if w.annotations == nil {
			w.annotations = make(map[string]string, len(a))
		}
		maps.Copy(w.annotations, a)
	}
}

// ConfigMapWriter publishes a document into a Kubernetes ConfigMap using
// server-side apply, so create and update are one operation.
type ConfigMapWriter struct {
	namespace   string
	name        string
	format      Format
	kubeconfig  string
	client      client.Interface
	annotations map[string]string
	now         func() time.Time
}

// NewConfigMapWriter creates a new ConfigMapWriter that writes to the specified
// namespace and ConfigMap name in the given format.
func NewConfigMapWriter(namespace, name string, format Format, opts ...ConfigMapOption) *ConfigMapWriter {
	w := &ConfigMapWriter{
		namespace: namespace,
		name:      name,
		format:    knownOrJSON(format),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *ConfigMapWriter) kube() (client.Interface, error) {
	if w.client != nil {
		return w.client, nil
	}
	var (
		c   client.Interface
		err error
	)
	if w.kubeconfig != "" {
		c, _, err = client.GetKubeClientWithConfig(w.kubeconfig)
	} else {
		c, _, err = client.GetKubeClient()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kubernetes client: %w", err)
	}
	w.client = c
	return c, nil
}

// Serialize applies a ConfigMap holding:
//   - data.inventory.{json|yaml|txt}: the encoded document
//   - data.format: the format used
//   - data.timestamp: RFC 3339 time of the write
func (w *ConfigMapWriter) Serialize(ctx context.Context, v any) error {
	writeCtx, cancel := context.WithTimeout(ctx, defaults.ConfigMapWriteTimeout)
	defer cancel()

	content, err := Marshal(w.format, v)
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}

	kc, err := w.kube()
	if err != nil {
		return err
	}

	cm := accorev1.ConfigMap(w.name, w.namespace).
		WithLabels(map[string]string{
			"app.kubernetes.io/name":       "invsync",
			"app.kubernetes.io/component":  "inventory",
			"app.kubernetes.io/managed-by": ConfigMapFieldManager,
		}).
		WithData(map[string]string{
			configMapDataPrefix + w.format.Extension(): string(content),
			configMapFormatKey:                         string(w.format),
			configMapTimeKey:                           w.now().UTC().Format(time.RFC3339),
		})
	if len(w.annotations) > 0 {
		cm = cm.WithAnnotations(w.annotations)
	}

	slog.Debug("applying ConfigMap",
		"namespace", w.namespace,
		"name", w.name,
		"format", w.format,
		"bytes", len(content))

	// Force takes ownership from other managers such as a previous CLI run.
	_, err = kc.CoreV1().ConfigMaps(w.namespace).Apply(writeCtx, cm, metav1.ApplyOptions{
		FieldManager: ConfigMapFieldManager,
		Force:        true,
	})
	if err != nil {
		return fmt.Errorf("failed to apply ConfigMap %s/%s: %w", w.namespace, w.name, err)
	}
	return nil
}

func (w *ConfigMapWriter) Describe() string {
	return ConfigMapURIScheme + w.namespace + "/" + w.name
}

// parseConfigMapURI splits cm://namespace/name.
func parseConfigMapURI(uri string) (namespace, name string, err error) {
	if !strings.HasPrefix(uri, ConfigMapURIScheme) {
		return "", "", fmt.Errorf("invalid ConfigMap URI: must start with %s", ConfigMapURIScheme)
	}

	path := strings.TrimPrefix(uri, ConfigMapURIScheme)
	namespace, name, ok := strings.Cut(path, "/")
	if !ok {
		return "", "", fmt.Errorf("invalid ConfigMap URI format: expected %snamespace/name, got %s", ConfigMapURIScheme, uri)
	}

	namespace = strings.TrimSpace(namespace)
	name = strings.TrimSpace(name)
	if namespace == "" {
		return "", "", fmt.Errorf("invalid ConfigMap URI: namespace cannot be empty")
	}
	if name == "" {
		return "", "", fmt.Errorf("invalid ConfigMap URI: name cannot be empty")
	}
	return namespace, name, nil
}
