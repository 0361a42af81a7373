package service

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/zr8c/index_go_server/config"
	"github.com/zr8c/index_go_server/internal/model"
	"github.com/zr8c/index_go_server/internal/repository"
)

// 限流类目
const (
	CategoryFileUploads = "file-uploads"
	CategoryURLVolume   = "url-volume"
	CategoryAPICalls    = "api-calls"
	CategoryCommands    = "commands"
)

var ErrUnknownCategory = errors.New("未知的限流类目")

// Admission 准入结果。滑动窗口类目给出重试等待时间，
// url-volume 类目给出剩余额度（额度在 UTC 零点整体重置，没有滑动边界）。
type Admission struct {
	Allowed    bool          `json:"allowed"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	Remaining  int64         `json:"remaining,omitempty"`
}

type windowKey struct {
	userID   int64
	category string
}

// QuotaService 滑动窗口限流。窗口状态仅存于本进程，
// 重启丢失只是暂时放宽限制，可接受。
type QuotaService struct {
	cfg       *config.Config
	rlRepo    *repository.RateLimitRepository
	batchRepo *repository.BatchRepository

	mu      sync.Mutex
	windows map[windowKey][]time.Time

	// 测试中可替换的时钟
	now func() time.Time
}

func NewQuotaService(
	rlRepo *repository.RateLimitRepository,
	batchRepo *repository.BatchRepository,
	cfg *config.Config,
) *QuotaService {
	return &QuotaService{
		cfg:       cfg,
		rlRepo:    rlRepo,
		batchRepo: batchRepo,
		windows:   make(map[windowKey][]time.Time),
		now:       time.Now,
	}
}

// Admit 滑动窗口准入检查。weight 表示本次动作占用的窗口配额数。
func (s *QuotaService) Admit(userID int64, category string, weight int) (*Admission, error) {
	window, limit, err := s.windowSpec(userID, category)
	if err != nil {
		return nil, err
	}
	if weight <= 0 {
		weight = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := windowKey{userID: userID, category: category}

	// 先清退出窗的时间戳
	events := s.windows[key]
	cutoff := now.Add(-window)
	kept := events[:0]
	for _, ts := range events {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept)+weight > limit {
		s.windows[key] = kept
		retryAfter := window
		if len(kept) > 0 {
			retryAfter = kept[0].Sub(cutoff)
		}
		s.logViolation(userID, category)
		return &Admission{Allowed: false, RetryAfter: retryAfter}, nil
	}

	for i := 0; i < weight; i++ {
		kept = append(kept, now)
	}
	s.windows[key] = kept
	return &Admission{Allowed: true}, nil
}

// AdmitVolume url-volume 类目：事件是任意大小的批次，
// 不走时间戳窗口，改查当日（UTC）已提交量的持久化聚合。
func (s *QuotaService) AdmitVolume(userID int64, count int64) (*Admission, error) {
	limit := int64(s.cfg.RateLimit.URLsPerDay)
	if override, err := s.rlRepo.GetOverride(userID); err == nil && override != nil && override.URLsPerDay != nil {
		limit = int64(*override.URLsPerDay)
	}

	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	used, err := s.batchRepo.SumAdmissibleSince(userID, midnight)
	if err != nil {
		return nil, err
	}

	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	if used+count > limit {
		s.logViolation(userID, CategoryURLVolume)
		return &Admission{Allowed: false, Remaining: remaining}, nil
	}

	return &Admission{Allowed: true, Remaining: remaining - count}, nil
}

// windowSpec 类目对应的窗口时长和限额，用户覆盖只替换限额
func (s *QuotaService) windowSpec(userID int64, category string) (time.Duration, int, error) {
	var window time.Duration
	var limit int

	switch category {
	case CategoryFileUploads:
		window, limit = time.Hour, s.cfg.RateLimit.FilesPerHour
	case CategoryAPICalls:
		window, limit = time.Minute, s.cfg.RateLimit.APICallsPerMinute
	case CategoryCommands:
		window, limit = time.Minute, s.cfg.RateLimit.CommandsPerMinute
	default:
		return 0, 0, ErrUnknownCategory
	}

	override, err := s.rlRepo.GetOverride(userID)
	if err != nil || override == nil {
		return window, limit, nil
	}

	switch category {
	case CategoryFileUploads:
		if override.FilesPerHour != nil {
			limit = *override.FilesPerHour
		}
	case CategoryAPICalls:
		if override.APICallsPerMinute != nil {
			limit = *override.APICallsPerMinute
		}
	case CategoryCommands:
		if override.CommandsPerMinute != nil {
			limit = *override.CommandsPerMinute
		}
	}
	return window, limit, nil
}

// DailyUsage 当日（UTC）已用的上传次数与 URL 量
func (s *QuotaService) DailyUsage(userID int64) (uploads, urls int64, err error) {
	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	uploads, err = s.batchRepo.CountSince(userID, midnight)
	if err != nil {
		return 0, 0, err
	}
	urls, err = s.batchRepo.SumAdmissibleSince(userID, midnight)
	return uploads, urls, err
}

// URLsPerDayLimit 用户当日 URL 量限额（含覆盖）
func (s *QuotaService) URLsPerDayLimit(userID int64) int {
	limit := s.cfg.RateLimit.URLsPerDay
	if override, err := s.rlRepo.GetOverride(userID); err == nil && override != nil && override.URLsPerDay != nil {
		limit = *override.URLsPerDay
	}
	return limit
}

// SetOverride 管理后台设置用户限额覆盖
func (s *QuotaService) SetOverride(userID int64, filesPerHour, urlsPerDay, apiPerMin, cmdPerMin *int) error {
	override, err := s.rlRepo.GetOverride(userID)
	if err != nil {
		return err
	}
	if override == nil {
		override = &model.RateLimitOverride{UserID: userID}
	}
	if filesPerHour != nil {
		override.FilesPerHour = filesPerHour
	}
	if urlsPerDay != nil {
		override.URLsPerDay = urlsPerDay
	}
	if apiPerMin != nil {
		override.APICallsPerMinute = apiPerMin
	}
	if cmdPerMin != nil {
		override.CommandsPerMinute = cmdPerMin
	}
	return s.rlRepo.UpsertOverride(override)
}

func (s *QuotaService) logViolation(userID int64, category string) {
	if err := s.rlRepo.LogViolation(userID, category); err != nil {
		log.Printf("Failed to log quota violation for user %d: %v", userID, err)
	}
}
