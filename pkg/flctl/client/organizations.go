package client

import (
	"context"
	"net/http"
)

type Organization struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type Region struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type regionsResponse struct {
	Regions []Region `json:"regions"`
}

type OrganizationService struct {
	client *Client
}

func (c *Client) Organizations() *OrganizationService {
	return &OrganizationService{client: c}
}

// List returns the organizations accessible on this client's host.
func (s *OrganizationService) List(ctx context.Context) ([]Organization, error) {
	var orgs []Organization
	if err := s.client.Do(ctx, http.MethodGet, "organizations/", nil, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

type UserService struct {
	client *Client
}

func (c *Client) Users() *UserService {
	return &UserService{client: c}
}

// Regions enumerates the backend regions reachable by the current user. A 404
// means the backend is not region-partitioned; callers treat that as the
// single-region fallback, not a failure.
func (s *UserService) Regions(ctx context.Context) ([]Region, error) {
	var resp regionsResponse
	if err := s.client.Do(ctx, http.MethodGet, "users/me/regions/", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Regions, nil
}
