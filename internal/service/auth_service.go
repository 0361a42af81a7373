package service

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/zr8c/index_go_server/config"
	"github.com/zr8c/index_go_server/internal/model/dto"
	"github.com/zr8c/index_go_server/internal/pkg/jwt"
)

var (
	ErrInvalidGatewaySecret = errors.New("网关密钥错误")
	ErrInvalidCredentials   = errors.New("用户名或密码错误")
)

// AuthService 两种主体的认证：
// 聊天网关持共享密钥为终端用户换取 token；管理员用账号密码登录后台。
type AuthService struct {
	ledger *LedgerService
	cfg    *config.Config
}

func NewAuthService(ledger *LedgerService, cfg *config.Config) *AuthService {
	return &AuthService{
		ledger: ledger,
		cfg:    cfg,
	}
}

// ExchangeGatewayToken 网关验密后为用户换取 token，顺带建账
func (s *AuthService) ExchangeGatewayToken(req *dto.GatewayTokenRequest) (*dto.GatewayTokenResponse, error) {
	err := bcrypt.CompareHashAndPassword([]byte(s.cfg.Gateway.SecretHash), []byte(req.Secret))
	if err != nil {
		return nil, ErrInvalidGatewaySecret
	}

	newAccount := false
	if _, err := s.ledger.GetAccount(req.UserID); errors.Is(err, ErrAccountNotFound) {
		newAccount = true
	}

	account, err := s.ledger.EnsureAccount(req.UserID, req.Username)
	if err != nil {
		return nil, err
	}

	token, err := jwt.GenerateToken(account.UserID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.GatewayTokenResponse{
		Token:      token,
		NewAccount: newAccount,
		Credits:    account.Credits,
		PlanTier:   account.PlanTier,
	}, nil
}

// AdminLogin 管理后台登录
func (s *AuthService) AdminLogin(req *dto.AdminLoginRequest) (*dto.AdminLoginResponse, error) {
	if req.Username != s.cfg.Admin.Username {
		return nil, ErrInvalidCredentials
	}
	err := bcrypt.CompareHashAndPassword([]byte(s.cfg.Admin.PasswordHash), []byte(req.Password))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := jwt.GenerateAdminToken(s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.AdminLoginResponse{Token: token}, nil
}
