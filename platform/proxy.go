package platform

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const dispatcherCacheSize = 256

// dispatcherCache memoizes one *http.Client per distinct proxy configuration
// process-wide (spec.md §4.C, §5 "Resource sharing").
var dispatcherCache = mustNewDispatcherCache()

func mustNewDispatcherCache() *lru.Cache[string, *http.Client] {
	c, err := lru.New[string, *http.Client](dispatcherCacheSize)
	if err != nil {
		panic(fmt.Errorf("platform: new dispatcher cache: %w", err))
	}
	return c
}

// urlEncodeCredential percent-encodes a proxy credential, then swaps the
// "%20" space encoding for "+" to match the form-style encoding the spec
// requires (spec.md §4.C).
func urlEncodeCredential(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "%20", "+")
}

func dispatcherCacheKey(p ProxyConfig) string {
	return strings.Join([]string{
		strings.ToLower(p.Protocol), p.Host, strconv.Itoa(p.Port), p.Username, p.Password,
	}, "|")
}

// dispatcherFor returns the memoized *http.Client that tunnels requests
// through p via HTTP CONNECT (net/http.Transport does this natively when
// Proxy resolves to a proxy URL on an https:// request).
func dispatcherFor(p ProxyConfig) (*http.Client, error) {
	key := dispatcherCacheKey(p)
	if client, ok := dispatcherCache.Get(key); ok {
		return client, nil
	}

	proxyURL, err := buildProxyURL(p)
	if err != nil {
		return nil, err
	}

	client := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		},
	}
	dispatcherCache.Add(key, client)
	return client, nil
}

func buildProxyURL(p ProxyConfig) (*url.URL, error) {
	scheme := strings.ToLower(p.Protocol)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("platform: unsupported proxy protocol %q", p.Protocol)
	}
	if p.Host == "" || p.Port < 1 || p.Port > 65535 {
		return nil, fmt.Errorf("platform: invalid proxy host/port %q:%d", p.Host, p.Port)
	}

	authority := fmt.Sprintf("%s:%d", p.Host, p.Port)
	if p.Username != "" {
		if p.Password != "" {
			authority = fmt.Sprintf("%s:%s@%s", urlEncodeCredential(p.Username), urlEncodeCredential(p.Password), authority)
		} else {
			authority = fmt.Sprintf("%s@%s", urlEncodeCredential(p.Username), authority)
		}
	}

	raw := fmt.Sprintf("%s://%s", scheme, authority)
	return url.Parse(raw)
}
