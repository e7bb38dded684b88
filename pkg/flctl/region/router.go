package region

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"go.uber.org/zap"

	"github.com/faultline/faultline-cli/pkg/flctl/client"
)

// Router resolves an organization's backend host and attaches a valid bearer
// token to outbound calls, refreshing once on a 401.
type Router struct {
	dir          *Directory
	forceRefresh func(ctx context.Context) error
	newClient    func(baseURL string) (*client.Client, error)
	log          *zap.Logger
}

// RouterOptions wires a Router. NewClient must build an authenticated client
// for the given base URL; ForceRefresh is invoked once when a routed call
// comes back 401.
type RouterOptions struct {
	Directory    *Directory
	ForceRefresh func(ctx context.Context) error
	NewClient    func(baseURL string) (*client.Client, error)
	Logger       *zap.Logger
}

func NewRouter(opts RouterOptions) *Router {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		dir:          opts.Directory,
		forceRefresh: opts.ForceRefresh,
		newClient:    opts.NewClient,
		log:          log,
	}
}

// RouteRequest performs one org-scoped API call against the org's region.
// On a 401 it forces exactly one refresh and retries exactly once before
// surfacing the error.
func (r *Router) RouteRequest(ctx context.Context, orgSlug, method, path string, body, out any) error {
	baseURL, err := r.dir.ResolveRegion(ctx, orgSlug)
	if err != nil {
		return err
	}
	c, err := r.newClient(baseURL)
	if err != nil {
		return err
	}
	err = c.Do(ctx, method, path, body, out)
	if !client.IsStatus(err, http.StatusUnauthorized) {
		return err
	}
	r.log.Debug("request unauthorized, forcing token refresh", zap.String("org", orgSlug))
	if r.forceRefresh != nil {
		if refreshErr := r.forceRefresh(ctx); refreshErr != nil {
			return refreshErr
		}
	}
	return c.Do(ctx, method, path, body, out)
}

// ListAllOrganizations fans out one list request per discovered region and
// merges the results. A failing region is skipped; the operation fails only
// when every region fails.
func (r *Router) ListAllOrganizations(ctx context.Context) ([]client.Organization, error) {
	regions, err := r.dir.Regions(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var merged []client.Organization
	var errs []error
	for _, reg := range regions {
		orgs, err := r.listRegion(ctx, reg)
		if err != nil {
			r.log.Warn("region unavailable during fan-out",
				zap.String("region", reg.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("region %s: %w", reg.Name, err))
			continue
		}
		for _, org := range orgs {
			if seen[org.Slug] {
				continue
			}
			seen[org.Slug] = true
			merged = append(merged, org)
		}
	}
	if len(errs) == len(regions) && len(errs) > 0 {
		return nil, fmt.Errorf("all regions failed: %w", errors.Join(errs...))
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Slug < merged[j].Slug })
	return merged, nil
}

func (r *Router) listRegion(ctx context.Context, reg client.Region) ([]client.Organization, error) {
	c, err := r.newClient(reg.URL)
	if err != nil {
		return nil, err
	}
	return c.Organizations().List(ctx)
}
