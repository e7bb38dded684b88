package region

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/faultline/faultline-cli/pkg/flctl/client"
)

// Binding maps an organization to the regional host serving it. Bindings
// carry no TTL; they are refreshed by discovery passes and cleared only on
// logout.
type Binding struct {
	OrgSlug   string    `json:"orgSlug"`
	RegionURL string    `json:"regionUrl"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type bindingFile struct {
	Bindings map[string]Binding `json:"bindings"`
}

// Options configures a Directory. Client talks to the default (control) host;
// NewRegionClient builds a client for a discovered regional host.
type Options struct {
	Path            string
	DefaultURL      string
	Client          *client.Client
	NewRegionClient func(baseURL string) (*client.Client, error)
	Logger          *zap.Logger
}

// Directory discovers reachable backend regions and caches organization to
// region bindings across CLI invocations. Backends without region
// partitioning (404 on enumeration) collapse to the single default host for
// the remainder of the process.
type Directory struct {
	mu     sync.Mutex
	opts   Options
	log    *zap.Logger
	now    func() time.Time

	bindings   map[string]Binding
	regions    []client.Region
	selfHosted bool
	loaded     bool
	discovered bool
}

func New(opts Options) *Directory {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Directory{
		opts:     opts,
		log:      log,
		now:      time.Now,
		bindings: map[string]Binding{},
	}
}

// ResolveRegion returns the backend host serving the organization, running a
// discovery pass on the first miss. Organizations unknown even after
// discovery are routed to the default host.
func (d *Directory) ResolveRegion(ctx context.Context, orgSlug string) (string, error) {
	d.mu.Lock()
	if err := d.loadLocked(); err != nil {
		d.mu.Unlock()
		return "", err
	}
	if b, ok := d.bindings[orgSlug]; ok {
		d.mu.Unlock()
		return b.RegionURL, nil
	}
	if d.selfHosted || d.discovered {
		d.mu.Unlock()
		return d.opts.DefaultURL, nil
	}
	d.mu.Unlock()

	if _, err := d.Discover(ctx); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.bindings[orgSlug]; ok {
		return b.RegionURL, nil
	}
	return d.opts.DefaultURL, nil
}

// Discover enumerates regions and upserts a binding for every organization
// each region reports. A region failing mid-pass is skipped. A 404 from the
// enumeration endpoint marks the backend self-hosted: the default host serves
// everything and no further enumeration calls are made in this process.
func (d *Directory) Discover(ctx context.Context) ([]Binding, error) {
	d.mu.Lock()
	if err := d.loadLocked(); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	if d.selfHosted {
		d.mu.Unlock()
		return nil, nil
	}
	d.mu.Unlock()

	regions, err := d.opts.Client.Users().Regions(ctx)
	if err != nil {
		if client.IsStatus(err, http.StatusNotFound) {
			d.mu.Lock()
			d.selfHosted = true
			d.discovered = true
			d.mu.Unlock()
			d.log.Debug("backend has no region partitioning, using default host",
				zap.String("host", d.opts.DefaultURL))
			return nil, nil
		}
		return nil, fmt.Errorf("region discovery failed: %w", err)
	}

	var updated []Binding
	for _, reg := range regions {
		orgs, err := d.listRegionOrgs(ctx, reg)
		if err != nil {
			// Best effort: one unreachable region must not fail discovery.
			d.log.Warn("skipping unavailable region",
				zap.String("region", reg.Name), zap.Error(err))
			continue
		}
		now := d.now()
		d.mu.Lock()
		for _, org := range orgs {
			b := Binding{OrgSlug: org.Slug, RegionURL: reg.URL, UpdatedAt: now}
			d.bindings[org.Slug] = b
			updated = append(updated, b)
		}
		d.mu.Unlock()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.regions = regions
	d.discovered = true
	if err := d.persistLocked(); err != nil {
		return nil, err
	}
	return updated, nil
}

// Regions returns the discovered region list, running discovery first when
// needed. Self-hosted backends report a single default region.
func (d *Directory) Regions(ctx context.Context) ([]client.Region, error) {
	d.mu.Lock()
	discovered := d.discovered
	d.mu.Unlock()
	if !discovered {
		if _, err := d.Discover(ctx); err != nil {
			return nil, err
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.selfHosted || len(d.regions) == 0 {
		return []client.Region{{Name: "default", URL: d.opts.DefaultURL}}, nil
	}
	out := make([]client.Region, len(d.regions))
	copy(out, d.regions)
	return out, nil
}

// SetOrgRegion upserts one binding, last write wins.
func (d *Directory) SetOrgRegion(orgSlug, regionURL string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.loadLocked(); err != nil {
		return err
	}
	d.bindings[orgSlug] = Binding{OrgSlug: orgSlug, RegionURL: regionURL, UpdatedAt: d.now()}
	return d.persistLocked()
}

// Bindings returns all cached bindings.
func (d *Directory) Bindings() ([]Binding, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.loadLocked(); err != nil {
		return nil, err
	}
	out := make([]Binding, 0, len(d.bindings))
	for _, b := range d.bindings {
		out = append(out, b)
	}
	return out, nil
}

// Clear drops all bindings and removes the on-disk table. Idempotent.
func (d *Directory) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindings = map[string]Binding{}
	d.regions = nil
	d.loaded = true
	if err := os.Remove(d.opts.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (d *Directory) listRegionOrgs(ctx context.Context, reg client.Region) ([]client.Organization, error) {
	rc, err := d.opts.NewRegionClient(reg.URL)
	if err != nil {
		return nil, err
	}
	return rc.Organizations().List(ctx)
}

func (d *Directory) loadLocked() error {
	if d.loaded {
		return nil
	}
	d.loaded = true
	content, err := os.ReadFile(d.opts.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var file bindingFile
	if err := json.Unmarshal(content, &file); err != nil {
		return fmt.Errorf("failed to parse region bindings: %w", err)
	}
	if file.Bindings != nil {
		d.bindings = file.Bindings
	}
	return nil
}

func (d *Directory) persistLocked() error {
	content, err := json.MarshalIndent(bindingFile{Bindings: d.bindings}, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(d.opts.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create regions dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".regions-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, d.opts.Path)
}
