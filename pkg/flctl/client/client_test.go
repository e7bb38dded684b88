package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresServer(t *testing.T) {
	_, err := New()
	assert.Error(t, err)

	_, err = New(WithServer(""))
	assert.Error(t, err)
}

func TestDo_AttachesBearerToken(t *testing.T) {
	var gotAuth, gotAccept, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"ok": "yes"})
	}))
	t.Cleanup(srv.Close)

	c, err := New(WithServer(srv.URL), WithToken("secret"), WithUserAgent("flctl-test"))
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "things/", nil, &out))
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "flctl-test", gotUA)
	assert.Equal(t, "yes", out["ok"])
}

func TestDo_PreservesTrailingSlash(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	c, err := New(WithServer(srv.URL + "/api/0"))
	require.NoError(t, err)

	require.NoError(t, c.Do(context.Background(), http.MethodGet, "organizations/", nil, nil))
	assert.Equal(t, "/api/0/organizations/", gotPath)
}

func TestDo_SendsJSONBody(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)

	c, err := New(WithServer(srv.URL))
	require.NoError(t, err)

	require.NoError(t, c.Do(context.Background(), http.MethodPost, "things/", map[string]string{"name": "x"}, nil))
	assert.Equal(t, "x", got["name"])
}

func TestDo_DecodesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "no access"})
	}))
	t.Cleanup(srv.Close)

	c, err := New(WithServer(srv.URL))
	require.NoError(t, err)

	err = c.Do(context.Background(), http.MethodGet, "things/", nil, nil)
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	assert.Equal(t, "no access", httpErr.Message)
	assert.True(t, IsStatus(err, http.StatusForbidden))
	assert.False(t, IsStatus(err, http.StatusNotFound))
}

func TestIsStatus_NonHTTPError(t *testing.T) {
	assert.False(t, IsStatus(errors.New("plain"), http.StatusNotFound))
	assert.False(t, IsStatus(nil, http.StatusNotFound))
}

type failingTokenSource struct{}

func (failingTokenSource) Token(context.Context) (string, error) {
	return "", errors.New("token source broken")
}

func TestDo_TokenSourceErrorAborts(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	t.Cleanup(srv.Close)

	c, err := New(WithServer(srv.URL), WithTokenSource(failingTokenSource{}))
	require.NoError(t, err)

	err = c.Do(context.Background(), http.MethodGet, "things/", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token source broken")
	assert.False(t, called, "request must not be sent without a token")
}

func TestOrganizationsAndRegions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/organizations/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]Organization{{Slug: "acme", Name: "Acme"}})
	})
	mux.HandleFunc("/users/me/regions/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"regions": []Region{{Name: "east", URL: "https://east.example.com"}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := New(WithServer(srv.URL), WithToken("t"))
	require.NoError(t, err)

	orgs, err := c.Organizations().List(context.Background())
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, "acme", orgs[0].Slug)

	regions, err := c.Users().Regions(context.Background())
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, "east", regions[0].Name)
}
