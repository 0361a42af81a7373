package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/zr8c/index_go_server/config"
)

// Submitter 将单条 URL 推送到收录通道
type Submitter interface {
	Submit(ctx context.Context, url string) error
	Name() string
}

// TransientError 暂时性失败（限流、5xx、网络错误），可重试
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient 判断是否值得重试
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// NewSubmitter 按配置选择提交通道
func NewSubmitter(cfg *config.IndexingConfig) (Submitter, error) {
	switch cfg.Provider {
	case "google":
		return NewGoogleSubmitter(cfg)
	case "rapid":
		return NewRapidSubmitter(cfg), nil
	case "hybrid":
		google, err := NewGoogleSubmitter(cfg)
		if err != nil {
			return nil, err
		}
		return NewHybridSubmitter(google, NewRapidSubmitter(cfg)), nil
	default:
		return nil, fmt.Errorf("unknown indexing provider: %s", cfg.Provider)
	}
}

// HybridSubmitter 先走 Google 官方通道，配额被拒时切到备用通道
type HybridSubmitter struct {
	primary  Submitter
	fallback Submitter
}

func NewHybridSubmitter(primary, fallback Submitter) *HybridSubmitter {
	return &HybridSubmitter{primary: primary, fallback: fallback}
}

func (s *HybridSubmitter) Name() string {
	return "hybrid"
}

func (s *HybridSubmitter) Submit(ctx context.Context, url string) error {
	err := s.primary.Submit(ctx, url)
	if err == nil || IsTransient(err) {
		return err
	}
	// 永久失败（通常是每日配额耗尽）走备用通道
	return s.fallback.Submit(ctx, url)
}
