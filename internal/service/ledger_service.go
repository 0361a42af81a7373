package service

import (
	"errors"
	"log"

	"github.com/zr8c/index_go_server/config"
	"github.com/zr8c/index_go_server/internal/model"
	"github.com/zr8c/index_go_server/internal/repository"
)

// 账本错误直接复用仓储层定义，扣减归类必须发生在事务内部
var (
	ErrAccountNotFound = repository.ErrAccountNotFound
	ErrAccountInactive = repository.ErrAccountInactive
	ErrInvalidAmount   = errors.New("金额必须为正数")
)

// LedgerService 积分账本。所有余额变更（含管理后台调整）必须经由本服务，
// 保证每次变更都有对应流水。
type LedgerService struct {
	accountRepo *repository.AccountRepository
	txRepo      *repository.TransactionRepository
	cfg         *config.Config

	// 测试中可注入的建账前回调
	beforeCreate func()
}

func NewLedgerService(
	accountRepo *repository.AccountRepository,
	txRepo *repository.TransactionRepository,
	cfg *config.Config,
) *LedgerService {
	return &LedgerService{
		accountRepo: accountRepo,
		txRepo:      txRepo,
		cfg:         cfg,
	}
}

// EnsureAccount 首次接触时建账并赠送免费积分，已存在则直接返回
func (s *LedgerService) EnsureAccount(userID int64, username string) (*model.Account, error) {
	account, err := s.accountRepo.GetByID(userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	if s.beforeCreate != nil {
		s.beforeCreate()
	}

	account = &model.Account{
		UserID:   userID,
		Username: username,
		Credits:  s.cfg.Credit.FreeCredits,
		PlanTier: "free",
		Active:   true,
	}
	if err := s.accountRepo.Create(account); err != nil {
		// 并发首次接触：另一个请求先建了账，回读已存在的行
		if existing, gerr := s.accountRepo.GetByID(userID); gerr == nil {
			return existing, nil
		}
		return nil, err
	}

	if s.cfg.Credit.FreeCredits > 0 {
		log.Printf("Account %d created with %d free credits", userID, s.cfg.Credit.FreeCredits)
	}
	return account, nil
}

// Debit 扣减积分，失败无副作用
func (s *LedgerService) Debit(userID, amount int64, description string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return s.accountRepo.Debit(userID, amount, description)
}

// Refund 无批次关联的补偿退款（如批次落库失败）
func (s *LedgerService) Refund(userID, amount int64, description string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return s.accountRepo.Credit(userID, amount, model.TxKindRefund, description)
}

// RefundBatch 批次对账退款，恰好一次：同一批次重复调用只入账一笔
func (s *LedgerService) RefundBatch(batchID, userID, amount int64, description string) (int64, bool, error) {
	if amount <= 0 {
		return 0, false, ErrInvalidAmount
	}
	return s.accountRepo.RefundForBatch(batchID, userID, amount, description)
}

// Purchase 充值
func (s *LedgerService) Purchase(userID, amount int64, description string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return s.accountRepo.Credit(userID, amount, model.TxKindPurchase, description)
}

// GetAccount 查询账户
func (s *LedgerService) GetAccount(userID int64) (*model.Account, error) {
	return s.accountRepo.GetByID(userID)
}

// SetActive 启用/禁用账户
func (s *LedgerService) SetActive(userID int64, active bool) error {
	return s.accountRepo.SetActive(userID, active)
}

// ListTransactions 按提交顺序返回账户流水
func (s *LedgerService) ListTransactions(userID int64) ([]*model.CreditTransaction, error) {
	return s.txRepo.ListByUser(userID)
}

// ListRecentTransactions 最近流水
func (s *LedgerService) ListRecentTransactions(userID int64, limit int) ([]*model.CreditTransaction, error) {
	return s.txRepo.ListRecentByUser(userID, limit)
}
