// Package platform is the Platform Client (spec.md §4.C): the only code
// in this service that speaks to the third-party microblogging API.
package platform

import "time"

// RateLimit is the quota metadata the Platform reports on every response,
// success or failure (spec.md §4.C, §3 RateLimitSnapshot).
type RateLimit struct {
	Limit     *int
	Remaining *int
	ResetAt   *time.Time
}

// PublishResult is the tagged-variant outcome of Publish (spec.md §9):
// exactly one of PostId (success) or ErrorCode/ErrorMessage (failure) is
// meaningful; callers branch on Success().
type PublishResult struct {
	HTTPStatus   int
	PostId       *string
	ErrorCode    *string
	ErrorMessage *string
	RateLimit    RateLimit
}

// Success reports whether the call reached the Platform, got a 2xx, and
// the response carried a post id; a 2xx without data.id is not a success.
func (r PublishResult) Success() bool {
	return r.HTTPStatus >= 200 && r.HTTPStatus < 300 && r.PostId != nil
}

// RefreshResult is the outcome of RefreshToken (spec.md §4.C).
type RefreshResult struct {
	HTTPStatus   int
	AccessToken  *string
	RefreshToken *string
	ExpiresAt    *time.Time
	ErrorCode    *string
	ErrorMessage *string
	RateLimit    RateLimit
}

// Success reports whether the refresh produced a usable access token.
func (r RefreshResult) Success() bool {
	return r.HTTPStatus >= 200 && r.HTTPStatus < 300 && r.AccessToken != nil
}

// ProxyConfig describes an optional per-account egress proxy
// (spec.md §3 Account proxy fields, already decrypted by the caller).
type ProxyConfig struct {
	Protocol string // "HTTP" or "HTTPS"
	Host     string
	Port     int
	Username string
	Password string
}
