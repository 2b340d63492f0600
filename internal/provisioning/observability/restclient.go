package observability

import (
	"encoding/base64"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
)

// restClientGetter implements genericclioptions.RESTClientGetter directly
// from the control plane endpoint and CA the provisioner already holds, so
// no kubeconfig ever touches the filesystem.
type restClientGetter struct {
	endpoint  string
	caCert    string // base64-encoded CA bundle
	token     string
	namespace string
}

func newRESTClientGetter(endpoint, caCert, token, namespace string) *restClientGetter {
	return &restClientGetter{endpoint: endpoint, caCert: caCert, token: token, namespace: namespace}
}

func (g *restClientGetter) ToRESTConfig() (*rest.Config, error) {
	ca, err := base64.StdEncoding.DecodeString(g.caCert)
	if err != nil {
		return nil, err
	}
	return &rest.Config{
		Host:            g.endpoint,
		BearerToken:     g.token,
		TLSClientConfig: rest.TLSClientConfig{CAData: ca},
	}, nil
}

func (g *restClientGetter) ToDiscoveryClient() (discovery.CachedDiscoveryInterface, error) {
	cfg, err := g.ToRESTConfig()
	if err != nil {
		return nil, err
	}
	dc, err := discovery.NewDiscoveryClientForConfig(cfg)
	if err != nil {
		return nil, err
	}
	return memory.NewMemCacheClient(dc), nil
}

func (g *restClientGetter) ToRESTMapper() (meta.RESTMapper, error) {
	dc, err := g.ToDiscoveryClient()
	if err != nil {
		return nil, err
	}
	return restmapper.NewDeferredDiscoveryRESTMapper(dc), nil
}

func (g *restClientGetter) ToRawKubeConfigLoader() clientcmd.ClientConfig {
	cfg := clientcmdapi.NewConfig()
	cfg.Clusters["cluster"] = &clientcmdapi.Cluster{Server: g.endpoint}
	cfg.AuthInfos["user"] = &clientcmdapi.AuthInfo{Token: g.token}
	cfg.Contexts["ctx"] = &clientcmdapi.Context{Cluster: "cluster", AuthInfo: "user", Namespace: g.namespace}
	cfg.CurrentContext = "ctx"
	return clientcmd.NewDefaultClientConfig(*cfg, &clientcmd.ConfigOverrides{})
}
