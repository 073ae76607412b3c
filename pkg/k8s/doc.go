// Package k8s groups the Kubernetes integration used by the ConfigMap
// output sink. The client sub-package owns the process-wide clientset.
package k8s
