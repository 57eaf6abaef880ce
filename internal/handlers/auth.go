package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snow-cube/paper-manager/internal/config"
	"github.com/snow-cube/paper-manager/internal/models"
	"github.com/snow-cube/paper-manager/internal/services"
	"github.com/snow-cube/paper-manager/internal/utils"
	"github.com/snow-cube/paper-manager/pkg/validator"
)

type AuthHandler struct {
	authService *services.AuthService
	config      *config.Config
}

func NewAuthHandler(authService *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		config:      cfg,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.UserRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "请求参数错误")
		return
	}

	// 验证请求参数
	if err := validator.ValidateStruct(&req); err != nil {
		utils.ValidationError(c, validator.Messages(err))
		return
	}

	// 注册用户
	user, err := h.authService.Register(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.respondWithToken(c, "注册成功", user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.UserLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "请求参数错误")
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		utils.ValidationError(c, validator.Messages(err))
		return
	}

	user, err := h.authService.Login(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.respondWithToken(c, "登录成功", user)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, message string, user *models.User) {
	// 生成 JWT Token
	token, err := utils.GenerateToken(
		user.ID, user.Username, user.Email, user.Role,
		h.config.JWT.Secret, h.config.JWT.ExpireHours)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessWithMessage(c, message, models.UserResponse{
		User:  user,
		Token: token,
	})
}

func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.Unauthorized(c, "请先登录")
		return
	}

	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, user)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	// JWT 是无状态的，客户端删除 token 即可
	utils.SuccessWithMessage(c, "退出成功", nil)
}
