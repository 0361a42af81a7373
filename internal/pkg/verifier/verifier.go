package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"

	"github.com/zr8c/index_go_server/config"
)

const (
	sitesEndpoint  = "https://www.googleapis.com/webmasters/v3/sites"
	webmasterScope = "https://www.googleapis.com/auth/webmasters.readonly"
)

// SourceLister 返回服务账号可见的已验证站点列表
type SourceLister interface {
	ListVerifiedDomains(ctx context.Context) ([]string, error)
}

// Client 查询 Search Console 站点清单
type Client struct {
	httpClient *http.Client
	endpoint   string
}

func NewClient(cfg *config.VerificationConfig) (*Client, error) {
	data, err := os.ReadFile(cfg.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account file: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, webmasterScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account: %w", err)
	}

	client := conf.Client(context.Background())
	client.Timeout = 30 * time.Second

	return &Client{
		httpClient: client,
		endpoint:   sitesEndpoint,
	}, nil
}

type sitesResponse struct {
	SiteEntry []struct {
		SiteURL         string `json:"siteUrl"`
		PermissionLevel string `json:"permissionLevel"`
	} `json:"siteEntry"`
}

// ListVerifiedDomains 一次请求返回全部已验证站点，归一化为裸域名
func (c *Client) ListVerifiedDomains(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sites list returned %d", resp.StatusCode)
	}

	var body sitesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode sites list: %w", err)
	}

	domains := make([]string, 0, len(body.SiteEntry))
	for _, entry := range body.SiteEntry {
		if entry.PermissionLevel == "siteUnverifiedUser" {
			continue
		}
		if d := NormalizeSite(entry.SiteURL); d != "" {
			domains = append(domains, d)
		}
	}
	return domains, nil
}

// NormalizeSite 把 Search Console 的站点标识归一化为域名。
// 支持 sc-domain:example.com 和 https://example.com/ 两种形式。
func NormalizeSite(site string) string {
	site = strings.TrimSpace(site)
	if d, ok := strings.CutPrefix(site, "sc-domain:"); ok {
		return strings.ToLower(d)
	}

	site = strings.TrimPrefix(site, "https://")
	site = strings.TrimPrefix(site, "http://")
	if idx := strings.IndexByte(site, '/'); idx >= 0 {
		site = site[:idx]
	}
	return strings.ToLower(site)
}
