package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/xfleet/publisher/config"
	"github.com/xfleet/publisher/models"
	"github.com/xfleet/publisher/platform"
	"github.com/xfleet/publisher/risk"
)

// processSchedule runs the per-schedule state machine (spec.md §4.F):
// proxy resolve → token availability → risk gate → publish → settle. It
// returns the outcome tally bucket and, on a successful publish, the body
// that was just posted (for the caller to prepend to the cycle's corpus).
func (c *Cycle) processSchedule(ctx context.Context, sched *dueSchedule, corpus *[]string, now time.Time) (outcome, string) {
	ctx, span := config.Tracer.Start(ctx, "publisher.processSchedule")
	defer span.End()

	proxy, proxyErr := c.resolveProxy(&sched.Account)
	if proxyErr != "" {
		c.settleBlocked(ctx, sched, proxyErr)
		return outcomeBlocked, ""
	}

	accessToken, tokenErr := c.resolveAccessToken(ctx, &sched.Account, proxy, now)
	if tokenErr != "" {
		c.settleBlocked(ctx, sched, tokenErr)
		return outcomeBlocked, ""
	}

	decision, err := c.risk.Evaluate(&sched.Account, sched.Variant.Body, *corpus, now)
	if err != nil {
		c.logger.WithError(err).WithField("scheduleId", sched.ID).Error("risk evaluation failed")
		c.settleBlocked(ctx, sched, fmt.Sprintf("risk evaluation error: %v", err))
		return outcomeBlocked, ""
	}

	switch decision.Outcome {
	case risk.Rescheduled:
		c.settleRescheduled(ctx, sched, decision)
		return outcomeRescheduled, ""
	case risk.Blocked:
		c.settleBlocked(ctx, sched, decision.Message)
		return outcomeBlocked, ""
	}

	if reason := rateLimitedByCache(sched.AccountId, now); reason != "" {
		c.settleBlocked(ctx, sched, reason)
		return outcomeBlocked, ""
	}

	result, err := c.platform.Publish(ctx, accessToken, sched.Variant.Body, proxy)
	if err != nil {
		result = platform.PublishResult{HTTPStatus: 503}
		msg := err.Error()
		result.ErrorMessage = &msg
	}

	if result.Success() {
		c.settlePosted(ctx, sched, result, now)
		return outcomePosted, sched.Variant.Body
	}

	c.settleFailed(ctx, sched, result, now)
	if sched.Status == models.ScheduleStatusBlocked {
		return outcomeBlocked, ""
	}
	return outcomeFailed, ""
}

// resolveProxy builds the optional per-account proxy config (spec.md
// §4.F step 1). A non-empty reason string means BLOCK, no retry.
func (c *Cycle) resolveProxy(account *models.Account) (*platform.ProxyConfig, string) {
	if !account.ProxyEnabled {
		return nil, ""
	}
	if account.ProxyProtocol == nil || account.ProxyHost == nil || account.ProxyPort == nil {
		return nil, "Proxy is enabled but protocol/host/port is incomplete."
	}

	cfg := &platform.ProxyConfig{
		Protocol: *account.ProxyProtocol,
		Host:     *account.ProxyHost,
		Port:     *account.ProxyPort,
	}
	if account.ProxyUsername != nil {
		cfg.Username = *account.ProxyUsername
	}
	if account.ProxyPasswordEnc != nil {
		password, err := c.sealer.Open(*account.ProxyPasswordEnc)
		if err != nil {
			return nil, "Could not decrypt proxy password."
		}
		cfg.Password = password
	}
	return cfg, ""
}

// resolveAccessToken returns a usable plaintext access token, refreshing
// it first if expired (spec.md §4.F step 2). A non-empty reason means
// BLOCK. On every failure of the expired-token path (no refresh token,
// undecryptable refresh token, failed refresh) the account's status has
// already been demoted to TOKEN_EXPIRED by this call; an undecryptable
// access token on an unexpired account blocks without demoting it.
func (c *Cycle) resolveAccessToken(ctx context.Context, account *models.Account, proxy *platform.ProxyConfig, now time.Time) (string, string) {
	expired := account.TokenExpiresAt != nil && !account.TokenExpiresAt.After(now)
	if !expired {
		token, err := c.sealer.Open(account.AccessTokenEnc)
		if err != nil {
			return "", "Could not decrypt access token."
		}
		return token, ""
	}

	if account.RefreshTokenEnc == nil {
		c.demoteAccount(account, models.AccountStatusTokenExpired, "No refresh token available.")
		return "", "No refresh token available."
	}

	refreshToken, err := c.sealer.Open(*account.RefreshTokenEnc)
	if err != nil {
		c.demoteAccount(account, models.AccountStatusTokenExpired, "Could not decrypt refresh token.")
		return "", "Could not decrypt refresh token."
	}

	result, err := c.platform.RefreshToken(ctx, refreshToken, proxy)
	if err != nil {
		c.demoteAccount(account, models.AccountStatusTokenExpired, fmt.Sprintf("Token refresh failed: %v", err))
		return "", "Token refresh failed."
	}
	if !result.Success() {
		msg := "Token refresh failed."
		if result.ErrorMessage != nil {
			msg = *result.ErrorMessage
		}
		c.demoteAccount(account, models.AccountStatusTokenExpired, msg)
		return "", msg
	}

	c.applyRefreshedToken(account, result, now)
	return *result.AccessToken, ""
}

// demoteAccount persists a terminal account-status change outside of the
// schedule's own settlement transaction (spec.md §4.F step 2).
func (c *Cycle) demoteAccount(account *models.Account, status, healthMessage string) {
	account.Status = status
	account.HealthMessage = &healthMessage
	c.db.Model(&models.Account{}).Where("id = ?", account.ID).
		Updates(map[string]any{"status": status, "health_message": healthMessage})
}

func (c *Cycle) applyRefreshedToken(account *models.Account, result platform.RefreshResult, now time.Time) {
	sealedAccess := c.sealer.Seal(*result.AccessToken)
	updates := map[string]any{
		"access_token_enc": sealedAccess,
		"status":           models.AccountStatusActive,
		"health_message":   nil,
	}
	account.AccessTokenEnc = sealedAccess
	account.Status = models.AccountStatusActive
	account.HealthMessage = nil

	if result.RefreshToken != nil {
		sealedRefresh := c.sealer.Seal(*result.RefreshToken)
		updates["refresh_token_enc"] = sealedRefresh
		account.RefreshTokenEnc = &sealedRefresh
	}
	if result.ExpiresAt != nil {
		updates["token_expires_at"] = *result.ExpiresAt
		account.TokenExpiresAt = result.ExpiresAt
	}

	c.db.Model(&models.Account{}).Where("id = ?", account.ID).Updates(updates)
}
