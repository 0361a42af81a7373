package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/zr8c/index_go_server/config"
)

// RapidSubmitter 第三方收录服务通道（RapidAPI，按 key 认证）
type RapidSubmitter struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	apiHost    string
}

func NewRapidSubmitter(cfg *config.IndexingConfig) *RapidSubmitter {
	host := ""
	if u, err := url.Parse(cfg.RapidEndpoint); err == nil {
		host = u.Host
	}

	return &RapidSubmitter{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   cfg.RapidEndpoint,
		apiKey:     cfg.RapidAPIKey,
		apiHost:    host,
	}
}

func (s *RapidSubmitter) Name() string {
	return "rapid"
}

func (s *RapidSubmitter) Submit(ctx context.Context, target string) error {
	body, err := json.Marshal(map[string]interface{}{
		"url": target,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-RapidAPI-Key", s.apiKey)
	req.Header.Set("X-RapidAPI-Host", s.apiHost)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	return classifyStatus("rapid", resp)
}
