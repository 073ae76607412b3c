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

package client

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// Interface is kubernetes.Interface, satisfied by the fake clientset.
type Interface = kubernetes.Interface

// EnvKubeconfig names the kubeconfig environment variable.
const EnvKubeconfig = "KUBECONFIG"

var (
	clientOnce   sync.Once
	cachedClient *kubernetes.Clientset
	cachedConfig *rest.Config
	clientErr    error
)

// GetKubeClient returns the process-wide client, building it on first call
// with automatic kubeconfig discovery.
func GetKubeClient() (Interface, *rest.Config, error) {
	clientOnce.Do(func() {
		cachedClient, cachedConfig, clientErr = BuildKubeClient("")
	})
	if clientErr != nil {
		return nil, nil, clientErr
	}
	return cachedClient, cachedConfig, nil
}

// GetKubeClientWithConfig builds an uncached client from an explicit
// kubeconfig path.
func GetKubeClientWithConfig(kubeconfig string) (Interface, *rest.Config, error) {
	cs, cfg, err := BuildKubeClient(kubeconfig)
	if err != nil {
		return nil, nil, err
	}
	return cs, cfg, nil
}

// ResolveKubeconfig returns the kubeconfig path to use, or "" when only
// in-cluster configuration remains.
func ResolveKubeconfig(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvKubeconfig); env != "" {
		return env
	}
	home := filepath.Join(homedir.HomeDir(), ".kube", "config")
	if _, err := os.Stat(home); err == nil {
		return home
	}
	return ""
}

// BuildKubeClient creates a clientset from kubeconfig, following
// ResolveKubeconfig when it is empty.
func BuildKubeClient(kubeconfig string) (*kubernetes.Clientset, *rest.Config, error) {
	var (
		config *rest.Config
		err    error
	)

	path := ResolveKubeconfig(kubeconfig)
	if path == "" {
		// in-cluster directly, avoiding the "Neither --kubeconfig nor --master" warning
		config, err = rest.InClusterConfig()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get in-cluster config: %w", err)
		}
	} else {
		config, err = clientcmd.BuildConfigFromFlags("", path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build kube config from %s: %w", path, err)
		}
	}
	config.UserAgent = "invsync"

	cs, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	return cs, config, nil
}
