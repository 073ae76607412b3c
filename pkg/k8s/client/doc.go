// Package client provides the shared Kubernetes clientset used to publish
// and read inventory documents stored in ConfigMaps.
//
// The clientset is built once per process. Configuration is discovered in
// order from an explicit kubeconfig path, the KUBECONFIG environment
// variable, ~/.kube/config and finally the in-cluster service account, so
// invsyncd works unchanged as a Deployment or on an operator workstation.
//
//	cs, _, err := client.GetKubeClient()
//	if err != nil {
//		return err
//	}
//	cm, err := cs.CoreV1().ConfigMaps("automation").Get(ctx, "inventory", metav1.GetOptions{})
//
// Tests inject k8s.io/client-go/kubernetes/fake through Interface.
package client
