package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/zr8c/index_go_server/internal/model/dto"
	"github.com/zr8c/index_go_server/internal/pkg/response"
	"github.com/zr8c/index_go_server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// GatewayToken 聊天网关用共享密钥为终端用户换取 token
// POST /api/v1/auth/gateway-token
func (h *AuthHandler) GatewayToken(c *gin.Context) {
	var req dto.GatewayTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.ExchangeGatewayToken(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidGatewaySecret):
			response.AuthError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, resp)
}

// AdminLogin 管理后台登录
// POST /api/v1/admin/login
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req dto.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.AdminLogin(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.AuthError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "登录成功", resp)
}
