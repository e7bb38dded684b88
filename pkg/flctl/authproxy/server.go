package authproxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	// codeTTL and pollInterval are the fixed values handed to device clients.
	codeTTL      = 900 * time.Second
	pollInterval = 5
)

// ErrPortInUse is returned when the loopback port is already bound, typically
// by another login attempt in a concurrent CLI invocation.
var ErrPortInUse = errors.New("login port already in use; another login may be running")

// Config describes the upstream OAuth provider the proxy brokers for. The
// client secret never leaves this process; devices only ever see the proxy's
// loopback endpoints.
type Config struct {
	AuthorizeURL string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Port         int
	Debug        bool
}

// Server is the ephemeral redirect-capture proxy. It pairs user codes with
// device codes, walks the browser through upstream authorization, performs
// the confidential code exchange, and hands the token to the polling device
// exactly once.
type Server struct {
	cfg        Config
	log        *zap.Logger
	store      *flowStore
	httpClient *http.Client

	srv      *http.Server
	listener net.Listener
}

func New(cfg Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:   cfg,
		log:   log,
		store: newFlowStore(codeTTL),
	}
}

// Start binds the loopback listener and begins serving in the background.
// A bound port is a hard error: two concurrent device flows on one machine
// are not queued.
func (s *Server) Start() error {
	if !s.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPortInUse, err)
	}
	s.listener = listener

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(s.log, time.RFC3339, true),
		ginzap.RecoveryWithZap(s.log, true),
	)
	engine.POST("/device/code", s.handleDeviceCode)
	engine.GET("/device/authorize", s.handleAuthorizePage)
	engine.GET("/device/verify", s.handleVerify)
	engine.GET("/callback", s.handleCallback)
	engine.POST("/device/token", s.handleDeviceToken)

	s.srv = &http.Server{Handler: engine}
	go func() {
		if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("capture proxy stopped", zap.Error(err))
		}
	}()
	return nil
}

// BaseURL returns the proxy's loopback origin, valid after Start.
func (s *Server) BaseURL() string {
	return "http://" + s.listener.Addr().String()
}

// Shutdown force-closes the listener and any open connections. Safe to call
// regardless of how the flow ended; pending polls fail.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return s.srv.Close()
	}
	return nil
}

func (s *Server) oauthConfig() oauth2.Config {
	return oauth2.Config{
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  s.cfg.AuthorizeURL,
			TokenURL: s.cfg.TokenURL,
		},
		RedirectURL: s.BaseURL() + "/callback",
		Scopes:      s.cfg.Scopes,
	}
}

type deviceCodeResponse struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete,omitempty"`
	ExpiresIn               int    `json:"expires_in"`
	Interval                int    `json:"interval"`
}

func (s *Server) handleDeviceCode(c *gin.Context) {
	st := s.store.Create()
	c.JSON(http.StatusOK, deviceCodeResponse{
		DeviceCode:              st.deviceCode,
		UserCode:                st.userCode,
		VerificationURI:         s.BaseURL() + "/device/authorize",
		VerificationURIComplete: s.BaseURL() + "/device/authorize?user_code=" + st.userCode,
		ExpiresIn:               int(codeTTL.Seconds()),
		Interval:                pollInterval,
	})
}

func (s *Server) handleAuthorizePage(c *gin.Context) {
	renderPage(c, http.StatusOK, pageData{
		ShowForm: true,
		UserCode: c.Query("user_code"),
	})
}

func (s *Server) handleVerify(c *gin.Context) {
	userCode := c.Query("user_code")
	deviceCode, ok := s.store.ResolveUserCode(userCode)
	if !ok {
		renderPage(c, http.StatusOK, pageData{
			ShowForm: true,
			Error:    "That code is unknown or has expired. Check the CLI and try again.",
		})
		return
	}
	// The device code doubles as the CSRF state on the upstream redirect.
	oc := s.oauthConfig()
	c.Redirect(http.StatusFound, oc.AuthCodeURL(deviceCode))
}

func (s *Server) handleCallback(c *gin.Context) {
	state := c.Query("state")
	if errCode := c.Query("error"); errCode != "" {
		s.store.MarkDenied(state)
		desc := c.Query("error_description")
		if desc == "" {
			desc = errCode
		}
		s.log.Warn("upstream authorization failed", zap.String("error", errCode))
		renderPage(c, http.StatusOK, pageData{Error: "Authorization failed: " + desc})
		return
	}
	code := c.Query("code")
	if code == "" || state == "" {
		renderPage(c, http.StatusBadRequest, pageData{Error: "Malformed callback from the authorization server."})
		return
	}

	ctx := c.Request.Context()
	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}
	oc := s.oauthConfig()
	token, err := oc.Exchange(ctx, code)
	if err != nil {
		s.log.Warn("code exchange failed", zap.Error(err))
		renderPage(c, http.StatusOK, pageData{Error: "The authorization server rejected the login. Close this window and retry from the CLI."})
		return
	}
	if !s.store.AttachToken(state, token) {
		renderPage(c, http.StatusOK, pageData{Error: "This login attempt has expired. Restart login from the CLI."})
		return
	}
	renderPage(c, http.StatusOK, pageData{Message: "Authentication complete. You can close this window and return to the CLI."})
}

type deviceTokenRequest struct {
	DeviceCode string `json:"device_code"`
}

type deviceTokenResponse struct {
	AccessToken  string `json:"access_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorDesc    string `json:"error_description,omitempty"`
}

func (s *Server) handleDeviceToken(c *gin.Context) {
	var req deviceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DeviceCode == "" {
		c.JSON(http.StatusBadRequest, deviceTokenResponse{
			Error:     "invalid_grant",
			ErrorDesc: "device_code is required",
		})
		return
	}
	token, status := s.store.Poll(req.DeviceCode)
	switch status {
	case pollPending:
		c.JSON(http.StatusBadRequest, deviceTokenResponse{
			Error:     "authorization_pending",
			ErrorDesc: "authorization request is still pending",
		})
	case pollExpired:
		c.JSON(http.StatusBadRequest, deviceTokenResponse{
			Error:     "expired_token",
			ErrorDesc: "device code has expired",
		})
	case pollDenied:
		c.JSON(http.StatusBadRequest, deviceTokenResponse{
			Error:     "access_denied",
			ErrorDesc: "authorization was denied",
		})
	case pollDelivered:
		resp := deviceTokenResponse{
			AccessToken:  token.AccessToken,
			TokenType:    token.TokenType,
			RefreshToken: token.RefreshToken,
		}
		if resp.TokenType == "" {
			resp.TokenType = "bearer"
		}
		if !token.Expiry.IsZero() {
			resp.ExpiresIn = int(time.Until(token.Expiry).Seconds())
		}
		if scope, ok := token.Extra("scope").(string); ok {
			resp.Scope = scope
		}
		c.JSON(http.StatusOK, resp)
	default:
		c.JSON(http.StatusBadRequest, deviceTokenResponse{
			Error:     "invalid_grant",
			ErrorDesc: "device code is not recognized",
		})
	}
}
