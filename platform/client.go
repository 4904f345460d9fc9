package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// publishURL and tokenURL are vars, not consts, so tests can redirect them
// at an httptest server.
var (
	publishURL = "https://api.x.com/2/tweets"
	tokenURL   = "https://api.x.com/2/oauth2/token"
)

const (
	rateLimitLimitHeader     = "x-rate-limit-limit"
	rateLimitRemainingHeader = "x-rate-limit-remaining"
	rateLimitResetHeader     = "x-rate-limit-reset"
)

// Client is the Platform Client (spec.md §4.C). One Client is shared by
// every Publisher Cycle invocation; it holds no per-account state — every
// call is parameterized by the caller's credentials and proxy.
type Client struct {
	clientID     string
	clientSecret string
	mock         bool

	// limiter paces outbound calls process-wide; it is deliberately
	// generous (the per-account interval is the Risk Engine's job, see
	// spec.md §4.D) — this just keeps a burst of cycle invocations from
	// hammering the Platform's edge all at once.
	limiter *rate.Limiter
}

// NewClient wires a Platform Client from process configuration
// (spec.md §6 Configuration).
func NewClient(clientID, clientSecret string, mock bool) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		mock:         mock,
		limiter:      rate.NewLimiter(rate.Limit(5), 10),
	}
}

func (c *Client) httpClientFor(proxy *ProxyConfig) (*http.Client, error) {
	if proxy == nil {
		return http.DefaultClient, nil
	}
	return dispatcherFor(*proxy)
}

func parseRateLimit(h http.Header) RateLimit {
	var rl RateLimit
	if v := h.Get(rateLimitLimitHeader); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			rl.Limit = &n
		}
	}
	if v := h.Get(rateLimitRemainingHeader); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			rl.Remaining = &n
		}
	}
	if v := h.Get(rateLimitResetHeader); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			t := time.Unix(n, 0)
			rl.ResetAt = &t
		}
	}
	return rl
}

func doRequest(ctx context.Context, httpClient *http.Client, limiter *rate.Limiter, req *http.Request) (*http.Response, []byte, error) {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}
	return resp, body, nil
}

func jsonBody(v any) (io.Reader, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("platform: marshal request body: %w", err)
	}
	return bytes.NewReader(buf), nil
}
