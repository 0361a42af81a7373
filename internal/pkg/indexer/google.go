package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2/google"

	"github.com/zr8c/index_go_server/config"
)

const (
	indexingEndpoint = "https://indexing.googleapis.com/v3/urlNotifications:publish"
	indexingScope    = "https://www.googleapis.com/auth/indexing"
)

// GoogleSubmitter 调用 Google Indexing API（服务账号认证）
type GoogleSubmitter struct {
	httpClient *http.Client
	endpoint   string
}

func NewGoogleSubmitter(cfg *config.IndexingConfig) (*GoogleSubmitter, error) {
	data, err := os.ReadFile(cfg.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account file: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, indexingScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account: %w", err)
	}

	client := conf.Client(context.Background())
	client.Timeout = 30 * time.Second

	return &GoogleSubmitter{
		httpClient: client,
		endpoint:   indexingEndpoint,
	}, nil
}

func (s *GoogleSubmitter) Name() string {
	return "google"
}

type publishRequest struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

func (s *GoogleSubmitter) Submit(ctx context.Context, url string) error {
	body, err := json.Marshal(publishRequest{URL: url, Type: "URL_UPDATED"})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	return classifyStatus("google", resp)
}

// classifyStatus 按 HTTP 状态码区分暂时性/永久失败
func classifyStatus(provider string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := fmt.Errorf("%s returned %d: %s", provider, resp.StatusCode, string(snippet))

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &TransientError{Err: err}
	}
	return err
}
