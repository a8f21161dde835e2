package util

import (
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpproxy"
)

// NewProxyFunc creates a proxy function for outbound clients (LLM providers,
// document fetches, webhook delivery). Hosts listed in noProxy bypass the
// proxy using the usual NO_PROXY rules. HTTPS requests use httpProxy when no
// httpsProxy is given. Without explicit proxy URLs the environment decides.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	cfg := httpproxy.FromEnvironment()
	switch {
	case httpProxy != "" || httpsProxy != "":
		if httpsProxy == "" {
			httpsProxy = httpProxy
		}
		cfg = &httpproxy.Config{HTTPProxy: httpProxy, HTTPSProxy: httpsProxy, NoProxy: noProxy}
	case noProxy != "":
		cfg.NoProxy = noProxy
	}

	proxy := cfg.ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return proxy(req.URL)
	}
}

// NewHTTPClient returns a client that routes through the configured proxies
func NewHTTPClient(httpProxy, httpsProxy, noProxy string) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: NewProxyFunc(httpProxy, httpsProxy, noProxy),
		},
	}
}
