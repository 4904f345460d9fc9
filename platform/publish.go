package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/xfleet/publisher/config"
)

type publishRequestBody struct {
	Text string `json:"text"`
}

// publishSuccessBody is the shape of a 2xx response.
type publishSuccessBody struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// publishErrorBody is the loosely-shaped non-2xx response (spec.md §9
// "Dynamic JSON tolerance"): fields are tried in order, first non-empty
// wins.
type publishErrorBody struct {
	Error   *string `json:"error"`
	Message *string `json:"message"`
	Detail  *string `json:"detail"`
	Title   *string `json:"title"`
	Errors  []struct {
		Message *string `json:"message"`
	} `json:"errors"`
}

func (b publishErrorBody) resolveMessage() *string {
	for _, candidate := range []*string{b.Message, b.Detail, b.Title} {
		if candidate != nil && *candidate != "" {
			return candidate
		}
	}
	for _, e := range b.Errors {
		if e.Message != nil && *e.Message != "" {
			return e.Message
		}
	}
	return nil
}

// Publish posts text to the Platform as accessToken's account, optionally
// through proxy. It never returns a Go error for ordinary Platform-level
// failures — those come back as a PublishResult with Success()==false; a
// returned error means the request could not be dispatched at all (proxy
// misconfiguration, network-layer failure, context cancellation).
func (c *Client) Publish(ctx context.Context, accessToken string, text string, proxy *ProxyConfig) (PublishResult, error) {
	ctx, span := config.Tracer.Start(ctx, "platform.Publish")
	defer span.End()

	if c.mock {
		postId := "mock-post-id"
		return PublishResult{
			HTTPStatus: http.StatusCreated,
			PostId:     &postId,
		}, nil
	}

	httpClient, err := c.httpClientFor(proxy)
	if err != nil {
		return PublishResult{}, err
	}

	body, err := jsonBody(publishRequestBody{Text: text})
	if err != nil {
		return PublishResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, publishURL, body)
	if err != nil {
		return PublishResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, respBody, err := doRequest(ctx, httpClient, c.limiter, req)
	if err != nil {
		return PublishResult{}, err
	}

	result := PublishResult{
		HTTPStatus: resp.StatusCode,
		RateLimit:  parseRateLimit(resp.Header),
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var ok publishSuccessBody
		if err := json.Unmarshal(respBody, &ok); err == nil && ok.Data.ID != "" {
			result.PostId = &ok.Data.ID
		}
		return result, nil
	}

	var failure publishErrorBody
	if err := json.Unmarshal(respBody, &failure); err == nil {
		result.ErrorCode = failure.Error
		result.ErrorMessage = failure.resolveMessage()
	}
	if result.ErrorMessage == nil {
		// Malformed or fieldless error body: never escalate, fall back to
		// a synthetic message the caller can still log (spec.md §9).
		fallback := fmt.Sprintf("x_publish_failed_%d", resp.StatusCode)
		result.ErrorMessage = &fallback
	}
	return result, nil
}
