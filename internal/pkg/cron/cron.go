package cron

import (
	"context"
	"log"
	"time"

	"github.com/zr8c/index_go_server/internal/service"
	"github.com/zr8c/index_go_server/internal/worker"
)

type Service struct {
	sweeper       *worker.Sweeper
	verifyService *service.VerifyService
	statsService  *service.StatsService
	emailService  EmailSender
	adminEmail    string
	stopChan      chan struct{}
}

// EmailSender 日报发送依赖，测试里用假实现
type EmailSender interface {
	SendDailyReport(to string, activeUsers, txCount, creditsAdded, creditsUsed int64) error
}

func NewService(
	sweeper *worker.Sweeper,
	verifyService *service.VerifyService,
	statsService *service.StatsService,
	emailService EmailSender,
	adminEmail string,
) *Service {
	return &Service{
		sweeper:       sweeper,
		verifyService: verifyService,
		statsService:  statsService,
		emailService:  emailService,
		adminEmail:    adminEmail,
		stopChan:      make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runHourlySweep()
	go s.runDailyTasks()
	log.Println("Cron service started (stale batch sweep + cache purge + daily report)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

// runHourlySweep 每小时回收一轮悬挂批次
func (s *Service) runHourlySweep() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

func (s *Service) sweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	processed, err := s.sweeper.Sweep(ctx, false)
	if err != nil {
		log.Printf("Hourly sweep failed: %v", err)
		return
	}
	if processed > 0 {
		log.Printf("Hourly sweep reconciled %d stale batches", processed)
	}
}

// runDailyTasks 每日 UTC 零点执行缓存清理与日报
func (s *Service) runDailyTasks() {
	now := time.Now().UTC()
	nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	timer := time.NewTimer(nextMidnight.Sub(now))

	for {
		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			s.purgeVerificationCache()
			s.sendDailyReport()
			timer.Reset(24 * time.Hour)
		}
	}
}

// purgeVerificationCache 清理过期的域名验证缓存行
func (s *Service) purgeVerificationCache() {
	purged, err := s.verifyService.PurgeCache()
	if err != nil {
		log.Printf("Verification cache purge failed: %v", err)
		return
	}
	if purged > 0 {
		log.Printf("Verification cache purge removed %d expired rows", purged)
	}
}

// sendDailyReport 过去 24 小时的运营日报
func (s *Service) sendDailyReport() {
	if s.adminEmail == "" || s.emailService == nil {
		return
	}

	stats, err := s.statsService.ActivitySince(time.Now().UTC().Add(-24 * time.Hour))
	if err != nil {
		log.Printf("Daily report: failed to collect stats: %v", err)
		return
	}

	err = s.emailService.SendDailyReport(s.adminEmail,
		stats.ActiveUsers, stats.Transactions, stats.CreditsAddedToday, stats.CreditsUsedToday)
	if err != nil {
		log.Printf("Daily report: failed to send to %s: %v", s.adminEmail, err)
		return
	}
	log.Printf("Daily report sent to %s", s.adminEmail)
}

// RunNow 立即执行一轮全部任务（用于测试或手动触发）
func (s *Service) RunNow() {
	s.sweepOnce()
	s.purgeVerificationCache()
	s.sendDailyReport()
}
