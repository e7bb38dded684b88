package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/faultline/faultline-cli/pkg/flctl/authproxy"
)

const (
	// flowTimeout bounds one complete authorization attempt; the capture
	// proxy is force-closed when it elapses.
	flowTimeout = 300 * time.Second
	// maxPollNetworkErrors bounds consecutive transport failures tolerated
	// while polling. The device code is never reset on a transport failure.
	maxPollNetworkErrors = 5
)

// LoginConfig carries everything a device authorization attempt needs. The
// client secret is handed to the capture proxy and never sent by the device
// side of the flow.
type LoginConfig struct {
	AuthorizeURL string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	ProxyPort    int
	Logger       *zap.Logger
	Writer       io.Writer
}

type deviceCodeResponse struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	ExpiresIn               int    `json:"expires_in"`
	Interval                int    `json:"interval"`
}

type deviceTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorDesc    string `json:"error_description,omitempty"`
}

var (
	errAuthorizationPending = errors.New("authorization pending")
	errSlowDown             = errors.New("slow down")
)

// DeviceLogin runs one complete device authorization attempt: it starts the
// loopback capture proxy, requests a code pair, opens the browser, and polls
// until the token arrives, the flow expires, or ctx is cancelled.
func DeviceLogin(ctx context.Context, cfg LoginConfig) (*Session, error) {
	if cfg.AuthorizeURL == "" || cfg.TokenURL == "" || cfg.ClientID == "" {
		return nil, errors.New("authorize-url, token-url and client-id are required")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	out := cfg.Writer
	if out == nil {
		out = os.Stdout
	}

	proxy := authproxy.New(authproxy.Config{
		AuthorizeURL: cfg.AuthorizeURL,
		TokenURL:     cfg.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       cfg.Scopes,
		Port:         cfg.ProxyPort,
	}, log)
	if err := proxy.Start(); err != nil {
		return nil, err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = proxy.Shutdown(shutdownCtx)
	}()

	flowCtx, cancel := context.WithTimeout(ctx, flowTimeout)
	defer cancel()

	httpClient := &http.Client{Timeout: 15 * time.Second}
	codes, err := requestDeviceCode(flowCtx, httpClient, proxy.BaseURL())
	if err != nil {
		return nil, err
	}

	_, _ = fmt.Fprintf(out, "Visit %s and enter code: %s\n", codes.VerificationURI, codes.UserCode)
	browseURL := codes.VerificationURIComplete
	if browseURL == "" {
		browseURL = codes.VerificationURI
	}
	if !strings.EqualFold(os.Getenv("FLCTL_NO_BROWSER"), "true") {
		if err := openBrowser(browseURL); err != nil {
			log.Debug("failed to open browser", zap.Error(err))
		}
	}

	token, err := pollForToken(flowCtx, httpClient, proxy.BaseURL(), codes)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, ErrDeviceFlowExpired
		}
		return nil, err
	}

	now := time.Now()
	sess := &Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		IssuedAt:     now,
	}
	if token.ExpiresIn > 0 {
		sess.ExpiresAt = now.Add(time.Duration(token.ExpiresIn) * time.Second)
	}
	return sess, nil
}

func requestDeviceCode(ctx context.Context, client *http.Client, baseURL string) (*deviceCodeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/device/code", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("device code request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("device code request failed: %s", string(body))
	}
	var payload deviceCodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func pollForToken(ctx context.Context, client *http.Client, baseURL string, codes *deviceCodeResponse) (*deviceTokenResponse, error) {
	interval := time.Duration(codes.Interval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	deadline := time.Now().Add(time.Duration(codes.ExpiresIn) * time.Second)
	networkErrors := 0

	for {
		if time.Now().After(deadline) {
			return nil, ErrDeviceFlowExpired
		}
		token, err := pollDeviceToken(ctx, client, baseURL, codes.DeviceCode)
		switch {
		case err == nil:
			return token, nil
		case errors.Is(err, errAuthorizationPending):
			networkErrors = 0
		case errors.Is(err, errSlowDown):
			networkErrors = 0
			interval += 5 * time.Second
		case isTerminalPollError(err):
			return nil, err
		default:
			// Transport failure: retry with the same device code, bounded.
			networkErrors++
			if networkErrors >= maxPollNetworkErrors {
				return nil, fmt.Errorf("polling failed repeatedly: %w", err)
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

func isTerminalPollError(err error) bool {
	return errors.Is(err, ErrDeviceFlowExpired) || errors.Is(err, ErrDeviceFlowDenied) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func pollDeviceToken(ctx context.Context, client *http.Client, baseURL, deviceCode string) (*deviceTokenResponse, error) {
	body, err := json.Marshal(map[string]string{"device_code": deviceCode})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/device/token", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	var payload deviceTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Error != "" {
		switch payload.Error {
		case "authorization_pending":
			return nil, errAuthorizationPending
		case "slow_down":
			return nil, errSlowDown
		case "expired_token", "invalid_grant":
			return nil, ErrDeviceFlowExpired
		case "access_denied":
			return nil, ErrDeviceFlowDenied
		default:
			return nil, fmt.Errorf("device token error: %s", payload.Error)
		}
	}
	return &payload, nil
}
