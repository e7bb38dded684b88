package cmd

import (
	"context"
	"time"

	"github.com/faultline/faultline-cli/pkg/flctl/auth"
	"github.com/faultline/faultline-cli/pkg/flctl/client"
	"github.com/faultline/faultline-cli/pkg/flctl/config"
	"github.com/faultline/faultline-cli/pkg/flctl/region"
)

func (rt *runtimeState) sessionStore() *auth.SessionStore {
	return &auth.SessionStore{
		Path:    config.DefaultSessionPath(),
		Storage: rt.TokenStorage(),
	}
}

func (rt *runtimeState) tokenManager() (*auth.TokenManager, error) {
	if err := rt.EnsureConfigLoaded(); err != nil {
		return nil, err
	}
	return &auth.TokenManager{
		Store:    rt.sessionStore(),
		TokenURL: rt.cfg.Auth.TokenURL,
		ClientID: rt.cfg.Auth.ClientID,
		Logger:   rt.logger,
	}, nil
}

// clientForHost builds an authenticated client for one backend host. A token
// passed via flag or env wins over the managed session.
func (rt *runtimeState) clientForHost(host string, mgr *auth.TokenManager) (*client.Client, error) {
	options := []client.Option{
		client.WithServer(host),
		client.WithUserAgent("flctl"),
	}
	if rt.tokenOverride != "" {
		options = append(options, client.WithToken(rt.tokenOverride))
	} else if mgr != nil {
		options = append(options, client.WithTokenSource(mgr))
	}
	if rt.cfg != nil && rt.cfg.Settings.Timeout != "" {
		if timeout, parseErr := time.ParseDuration(rt.cfg.Settings.Timeout); parseErr == nil {
			options = append(options, client.WithTimeout(timeout))
		}
	}
	if rt.verbose {
		log := rt.logger
		options = append(options, client.WithVerbose(func(format string, args ...any) {
			log.Sugar().Debugf(format, args...)
		}))
	}
	return client.New(options...)
}

func (rt *runtimeState) buildDirectory(mgr *auth.TokenManager) (*region.Directory, error) {
	server, err := rt.resolveServer()
	if err != nil {
		return nil, err
	}
	defaultClient, err := rt.clientForHost(server, mgr)
	if err != nil {
		return nil, err
	}
	return region.New(region.Options{
		Path:       config.DefaultRegionsPath(),
		DefaultURL: server,
		Client:     defaultClient,
		NewRegionClient: func(baseURL string) (*client.Client, error) {
			return rt.clientForHost(baseURL, mgr)
		},
		Logger: rt.logger,
	}), nil
}

func (rt *runtimeState) buildRouter(mgr *auth.TokenManager) (*region.Router, error) {
	dir, err := rt.buildDirectory(mgr)
	if err != nil {
		return nil, err
	}
	return region.NewRouter(region.RouterOptions{
		Directory: dir,
		ForceRefresh: func(ctx context.Context) error {
			if mgr == nil {
				return nil
			}
			_, err := mgr.Refresh(ctx, true)
			return err
		},
		NewClient: func(baseURL string) (*client.Client, error) {
			return rt.clientForHost(baseURL, mgr)
		},
		Logger: rt.logger,
	}), nil
}
