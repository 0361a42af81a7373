package service

import (
	"time"

	"github.com/zr8c/index_go_server/internal/model"
	"github.com/zr8c/index_go_server/internal/model/dto"
	"github.com/zr8c/index_go_server/internal/repository"
)

// StatsService 管理后台的只读统计
type StatsService struct {
	accountRepo *repository.AccountRepository
	txRepo      *repository.TransactionRepository
	urlRepo     *repository.URLRepository
}

func NewStatsService(
	accountRepo *repository.AccountRepository,
	txRepo *repository.TransactionRepository,
	urlRepo *repository.URLRepository,
) *StatsService {
	return &StatsService{
		accountRepo: accountRepo,
		txRepo:      txRepo,
		urlRepo:     urlRepo,
	}
}

// Dashboard 首页汇总
func (s *StatsService) Dashboard() (*dto.DashboardResponse, error) {
	users, active, credits, purchased, used, err := s.accountRepo.Totals()
	if err != nil {
		return nil, err
	}

	total, success, failed, google, rapid, err := s.urlRepo.ProviderStats()
	if err != nil {
		return nil, err
	}

	return &dto.DashboardResponse{
		TotalUsers:         users,
		ActiveUsers:        active,
		CreditsOutstanding: credits,
		CreditsPurchased:   purchased,
		CreditsUsed:        used,
		TotalSubmissions:   total,
		SuccessSubmissions: success,
		FailedSubmissions:  failed,
		GoogleSubmissions:  google,
		RapidSubmissions:   rapid,
	}, nil
}

// TodayStats 当日活动（UTC 零点起算）
func (s *StatsService) TodayStats() (*dto.TodayStatsResponse, error) {
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return s.ActivitySince(midnight)
}

// ActivitySince 任意起点的活动统计（日报任务按过去 24 小时取）
func (s *StatsService) ActivitySince(since time.Time) (*dto.TodayStatsResponse, error) {
	activeUsers, count, added, used, err := s.txRepo.TodayStats(since)
	if err != nil {
		return nil, err
	}

	return &dto.TodayStatsResponse{
		ActiveUsers:       activeUsers,
		Transactions:      count,
		CreditsAddedToday: added,
		CreditsUsedToday:  used,
	}, nil
}

// TopUsers 按累计消耗排行
func (s *StatsService) TopUsers(limit int) ([]*dto.TopUserItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	accounts, err := s.accountRepo.TopByUsage(limit)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.TopUserItem, 0, len(accounts))
	for _, a := range accounts {
		items = append(items, &dto.TopUserItem{
			UserID:       a.UserID,
			Username:     a.Username,
			LifetimeUsed: a.LifetimeUsed,
			Credits:      a.Credits,
		})
	}
	return items, nil
}

// ListAccounts 分页账户列表
func (s *StatsService) ListAccounts(page, pageSize int) ([]*model.Account, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return s.accountRepo.List((page-1)*pageSize, pageSize)
}

// RecentTransactions 全局最近流水
func (s *StatsService) RecentTransactions(limit int) ([]*model.CreditTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.txRepo.ListRecent(limit)
}
