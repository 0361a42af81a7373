package verifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSite(t *testing.T) {
	cases := map[string]string{
		"sc-domain:example.com":      "example.com",
		"sc-domain:Example.COM":      "example.com",
		"https://example.com/":       "example.com",
		"http://blog.example.com":    "blog.example.com",
		"https://example.com/path/x": "example.com",
	}

	for input, want := range cases {
		assert.Equal(t, want, NormalizeSite(input), "input: %s", input)
	}
}

func TestClient_ListVerifiedDomains(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"siteEntry":[
			{"siteUrl":"sc-domain:example.com","permissionLevel":"siteOwner"},
			{"siteUrl":"https://blog.example.com/","permissionLevel":"siteFullUser"},
			{"siteUrl":"sc-domain:pending.com","permissionLevel":"siteUnverifiedUser"}
		]}`))
	}))
	defer server.Close()

	c := &Client{httpClient: http.DefaultClient, endpoint: server.URL}

	domains, err := c.ListVerifiedDomains(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com", "blog.example.com"}, domains)
}

func TestClient_ListVerifiedDomains_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := &Client{httpClient: http.DefaultClient, endpoint: server.URL}

	_, err := c.ListVerifiedDomains(context.Background())
	assert.Error(t, err)
}
