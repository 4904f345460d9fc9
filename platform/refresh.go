package platform

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xfleet/publisher/utils"
)

// refreshSuccessBody is the shape of a 2xx token response.
type refreshSuccessBody struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// refreshErrorBody is the loosely-shaped non-2xx response, following the
// same tolerant-fallback shape as publishErrorBody (spec.md §9).
type refreshErrorBody struct {
	Error            *string `json:"error"`
	ErrorDescription *string `json:"error_description"`
	Message          *string `json:"message"`
}

func (b refreshErrorBody) resolveMessage() *string {
	for _, candidate := range []*string{b.ErrorDescription, b.Message, b.Error} {
		if candidate != nil && *candidate != "" {
			return candidate
		}
	}
	return nil
}

// RefreshToken exchanges a refresh token for a new access token (spec.md
// §4.C). The wire contract is exact: a form-encoded
// grant_type=refresh_token&refresh_token=…&client_id=… body, authenticated
// with HTTP Basic client_id:client_secret — both at once, so the request
// is built by hand rather than through golang.org/x/oauth2's
// Config.TokenSource, whose AuthStyleInHeader mode omits client_id from
// the form body entirely.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string, proxy *ProxyConfig) (RefreshResult, error) {
	if c.mock {
		accessToken := "mock-access-token"
		expiresAt := time.Now().Add(time.Hour)
		return RefreshResult{
			HTTPStatus:  http.StatusOK,
			AccessToken: &accessToken,
			ExpiresAt:   &expiresAt,
		}, nil
	}

	if c.clientID == "" || c.clientSecret == "" {
		msg := "OAuth client credentials are missing"
		return RefreshResult{
			HTTPStatus:   http.StatusInternalServerError,
			ErrorMessage: &msg,
		}, nil
	}

	httpClient, err := c.httpClientFor(proxy)
	if err != nil {
		return RefreshResult{}, err
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.clientID},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return RefreshResult{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, body, err := doRequest(ctx, httpClient, c.limiter, req)
	if err != nil {
		return RefreshResult{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyRefreshErrorBody(resp.StatusCode, body), nil
	}

	var ok refreshSuccessBody
	if err := utils.UnmarshalFromJSON(body, &ok); err != nil || ok.AccessToken == "" {
		msg := "refresh response missing access_token"
		return RefreshResult{HTTPStatus: resp.StatusCode, ErrorMessage: &msg}, nil
	}

	result := RefreshResult{
		HTTPStatus:  resp.StatusCode,
		AccessToken: &ok.AccessToken,
	}
	if ok.RefreshToken != "" {
		result.RefreshToken = &ok.RefreshToken
	}
	if ok.ExpiresIn > 0 {
		expiresAt := time.Now().Add(time.Duration(ok.ExpiresIn) * time.Second)
		result.ExpiresAt = &expiresAt
	}
	return result, nil
}

// classifyRefreshErrorBody maps a non-2xx token-endpoint response to a
// RefreshResult, tolerating a malformed or fieldless error body the same
// way Publish does (spec.md §9 "Dynamic JSON tolerance").
func classifyRefreshErrorBody(httpStatus int, body []byte) RefreshResult {
	var failure refreshErrorBody
	_ = utils.UnmarshalFromJSON(body, &failure)

	result := RefreshResult{HTTPStatus: httpStatus, ErrorCode: failure.Error}
	if msg := failure.resolveMessage(); msg != nil {
		result.ErrorMessage = msg
	} else {
		fallback := "x_refresh_failed"
		result.ErrorMessage = &fallback
	}
	return result
}
