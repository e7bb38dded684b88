package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	// refreshThreshold is the fraction of remaining lifetime below which the
	// token is refreshed proactively.
	refreshThreshold = 0.10
	// assumedLifetime is the lifetime basis for sessions that recorded an
	// expiry but no issue time.
	assumedLifetime = 8 * time.Hour
)

// RefreshResult reports the outcome of a refresh attempt.
type RefreshResult struct {
	Token     string
	Refreshed bool
	ExpiresAt time.Time
	ExpiresIn time.Duration
}

// TokenManager owns the session lifecycle: it decides when a refresh is due,
// performs it, and deduplicates concurrent refreshers. Providers may rotate
// the refresh token on each use, so only one refresh call may ever be in
// flight per session; concurrent callers share its result.
type TokenManager struct {
	Store      *SessionStore
	TokenURL   string
	ClientID   string
	HTTPClient *http.Client
	Logger     *zap.Logger

	group singleflight.Group
	now   func() time.Time
}

// Token implements the client token source: it returns a currently valid
// access token, refreshing first when the session is close to expiry.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	return m.GetValidToken(ctx)
}

// GetValidToken returns the session's access token, refreshing it when the
// remaining lifetime ratio drops to the threshold. A transient refresh
// failure on a not-yet-expired token returns the prior token; the session is
// only cleared when the provider rejects the refresh outright.
func (m *TokenManager) GetValidToken(ctx context.Context) (string, error) {
	sess, ok, err := m.Store.Load()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotAuthenticated
	}
	if sess.ExpiresAt.IsZero() {
		// No recorded expiry: the token is non-refreshable and used as-is.
		return sess.AccessToken, nil
	}
	if remainingRatio(sess, m.clock()()) > refreshThreshold {
		return sess.AccessToken, nil
	}
	res, err := m.Refresh(ctx, false)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrNotAuthenticated) {
			return "", err
		}
		// Transient failure: the prior token may still be accepted until its
		// real expiry.
		if m.clock()().Before(sess.ExpiresAt) {
			m.logger().Warn("token refresh failed, using existing token", zap.Error(err))
			return sess.AccessToken, nil
		}
		return "", err
	}
	return res.Token, nil
}

// Refresh performs at most one refresh HTTP call regardless of how many
// callers request one concurrently; all callers share the same result.
func (m *TokenManager) Refresh(ctx context.Context, force bool) (RefreshResult, error) {
	v, err, _ := m.group.Do("refresh", func() (any, error) {
		return m.refresh(ctx, force)
	})
	if err != nil {
		return RefreshResult{}, err
	}
	return v.(RefreshResult), nil
}

// Clear removes the session. Idempotent.
func (m *TokenManager) Clear() error {
	return m.Store.Clear()
}

func (m *TokenManager) refresh(ctx context.Context, force bool) (RefreshResult, error) {
	sess, ok, err := m.Store.Load()
	if err != nil {
		return RefreshResult{}, err
	}
	if !ok {
		return RefreshResult{}, ErrNotAuthenticated
	}
	now := m.clock()()
	if sess.ExpiresAt.IsZero() {
		return resultFor(sess, now), nil
	}
	if !force && remainingRatio(sess, now) > refreshThreshold {
		return resultFor(sess, now), nil
	}
	if sess.RefreshToken == "" {
		if now.Before(sess.ExpiresAt) {
			return resultFor(sess, now), nil
		}
		return RefreshResult{}, ErrSessionExpired
	}

	token, err := m.redeemRefreshToken(ctx, sess.RefreshToken)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode < 500 {
			// Explicit rejection: the refresh token is revoked or invalid.
			// The session is unusable and must not be reused.
			if clearErr := m.Store.Clear(); clearErr != nil {
				m.logger().Warn("failed to clear rejected session", zap.Error(clearErr))
			}
			return RefreshResult{}, fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		// Transport or provider-side failure: keep the session untouched so
		// the caller can keep using the still-possibly-valid token.
		return RefreshResult{}, fmt.Errorf("token refresh failed: %w", err)
	}

	updated := Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
		IssuedAt:     now,
	}
	if updated.RefreshToken == "" {
		// Provider did not rotate; keep using the prior refresh token.
		updated.RefreshToken = sess.RefreshToken
	}
	if err := m.Store.Save(updated); err != nil {
		return RefreshResult{}, fmt.Errorf("failed to persist refreshed session: %w", err)
	}
	m.logger().Debug("session refreshed", zap.Time("expiresAt", updated.ExpiresAt))
	res := resultFor(updated, now)
	res.Refreshed = true
	return res, nil
}

func (m *TokenManager) redeemRefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	cfg := oauth2.Config{
		ClientID: m.ClientID,
		Endpoint: oauth2.Endpoint{TokenURL: m.TokenURL},
	}
	if m.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.HTTPClient)
	}
	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	return src.Token()
}

func (m *TokenManager) clock() func() time.Time {
	if m.now != nil {
		return m.now
	}
	return time.Now
}

func (m *TokenManager) logger() *zap.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return zap.NewNop()
}

func resultFor(sess Session, now time.Time) RefreshResult {
	res := RefreshResult{Token: sess.AccessToken, ExpiresAt: sess.ExpiresAt}
	if !sess.ExpiresAt.IsZero() {
		res.ExpiresIn = sess.ExpiresAt.Sub(now)
	}
	return res
}

// remainingRatio is the remaining fraction of the token's lifetime. Sessions
// that recorded no issue time get an assumed lifetime ending at the expiry.
func remainingRatio(sess Session, now time.Time) float64 {
	issued := sess.IssuedAt
	if issued.IsZero() {
		issued = sess.ExpiresAt.Add(-assumedLifetime)
	}
	lifetime := sess.ExpiresAt.Sub(issued)
	if lifetime <= 0 {
		return 0
	}
	remaining := sess.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return float64(remaining) / float64(lifetime)
}
