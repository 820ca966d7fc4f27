package extract

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultUserAgent is sent with all page requests so the site can identify
// the retrier and apply its own rate limits.
const DefaultUserAgent = "StubbornArchivist/1.0 (+https://github.com/stubborn-archivist)"

// HTTP timeouts so a single hung request doesn't eat the run's time budget.
const (
	connectTimeout        = 10 * time.Second
	responseHeaderTimeout = 25 * time.Second // time to first response header
	totalRequestTimeout   = 30 * time.Second // connect + headers + body
)

// challengeKeywords mark an anti-automation interstitial rather than real
// page content. Matched case-insensitively against the body.
var challengeKeywords = []string{
	"just a moment",
	"checking your browser",
	"please enable cookies",
	"attention required",
	"verify you are human",
	"enable javascript",
}

// SelectProxyFromPool returns one URL from pool (comma-separated) by hashing
// hostname, so each run host picks a deterministic proxy for multi-egress.
// Empty pool or hostname yields "".
func SelectProxyFromPool(pool, hostname string) string {
	parts := strings.Split(strings.TrimSpace(pool), ",")
	var valid []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		return ""
	}
	if hostname == "" {
		hostname = "0"
	}
	h := fnv.New32a()
	h.Write([]byte(hostname))
	idx := int(h.Sum32()) % len(valid)
	if idx < 0 {
		idx = -idx
	}
	return valid[idx]
}

// NewClient builds a fresh HTTP client with explicit connect and
// response-header timeouts, optionally routed through a proxy. The extractor
// builds one per item and discards it, so no connection state carries over
// between attempts.
func NewClient(proxyURL string) *http.Client {
	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
		ResponseHeaderTimeout: responseHeaderTimeout,
		DisableKeepAlives:     true,
	}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Transport: transport,
		Timeout:   totalRequestTimeout,
	}
}

// FetchPage retrieves the raw body for a page URL using the given client.
// Sets the DefaultUserAgent and treats any non-2xx status as an error.
func FetchPage(ctx context.Context, client *http.Client, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, pageURL)
	}

	return io.ReadAll(resp.Body)
}

// IsChallengePage reports whether the body looks like an anti-automation
// challenge rather than the requested page.
func IsChallengePage(body []byte) bool {
	lower := strings.ToLower(string(body))
	for _, keyword := range challengeKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
