// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"strings"

	"save-vault-go/internal/model"
	"save-vault-go/internal/service"
	"save-vault-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// UserHandler 负责处理所有与用户账号相关的 API 请求。
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// currentUser 从上下文中取出 AuthMiddleware 注入的 User 对象。
func currentUser(c *gin.Context) (*model.User, bool) {
	userValue, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "无法获取用户信息"})
		return nil, false
	}
	user, ok := userValue.(*model.User)
	if !ok || user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "用户数据类型错误"})
		return nil, false
	}
	return user, true
}

// RegisterRequest 定义了用户注册 API 的请求体结构。
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName"`
}

// Register 处理用户注册请求。
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Register: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：邮箱和密码不能为空",
		})
		return
	}

	user, err := h.userService.Register(req.Email, req.Password, req.DisplayName)
	if err != nil {
		log.Warnf("Register: registration failed for '%s', error: %v", req.Email, err)
		c.JSON(http.StatusConflict, gin.H{"code": http.StatusConflict, "message": err.Error()})
		return
	}

	log.Infof("User '%s' registered successfully", user.Email)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "注册成功",
	})
}

// LoginRequest 定义了用户登录 API 的请求体结构。
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 处理用户登录请求。
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Login: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：邮箱和密码不能为空",
		})
		return
	}

	accessToken, refreshToken, err := h.userService.Login(req.Email, req.Password)
	if err != nil {
		log.Warnf("Login: authentication failed for '%s', error: %v", req.Email, err)
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    http.StatusUnauthorized,
			"message": "无效的凭证",
		})
		return
	}

	log.Infof("User '%s' logged in successfully", req.Email)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "登录成功",
		"data": gin.H{
			"token":        accessToken,
			"refreshToken": refreshToken,
		},
	})
}

// Logout 处理用户登出请求。
func (h *UserHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	if err := h.userService.Logout(tokenString); err != nil {
		log.Error("Logout: Failed to logout", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "登出失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "登出成功",
	})
}

// GetProfile 获取当前登录用户的个人资料（头像附带限时访问链接）。
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(c.Request.Context(), user.ID)
	if err != nil {
		log.Errorf("GetProfile: failed for userID %d, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "获取用户资料失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": profile})
}

// UpdateProfileRequest 定义了更新个人资料 API 的请求体结构。
type UpdateProfileRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
}

// UpdateProfile 处理更新昵称的请求。
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：昵称不能为空",
		})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	updated, err := h.userService.UpdateDisplayName(user.ID, req.DisplayName)
	if err != nil {
		if errors.Is(err, service.ErrProfileUpdateFailed) {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error()})
			return
		}
		log.Errorf("UpdateProfile: failed for userID %d, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "更新个人资料失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "个人资料更新成功",
		"data":    gin.H{"displayName": updated.DisplayName},
	})
}

// UploadAvatar 处理上传头像的请求（multipart 表单，字段名 avatar）。
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "请选择要上传的头像文件"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "读取头像文件失败"})
		return
	}
	defer file.Close()

	avatarURL, err := h.userService.UploadAvatar(c.Request.Context(), user.ID, file, fileHeader.Size)
	if err != nil {
		if errors.Is(err, service.ErrProfileUpdateFailed) {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error()})
			return
		}
		log.Errorf("UploadAvatar: failed for userID %d, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "上传头像失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "头像上传成功",
		"data":    gin.H{"avatarUrl": avatarURL},
	})
}

// DeleteAccountRequest 定义了注销账号 API 的请求体结构。
type DeleteAccountRequest struct {
	Confirmation string `json:"confirmation" binding:"required"`
}

// DeleteAccount 处理注销账号的请求。
// 确认文本必须逐字输入 "DELETE"，否则不执行任何破坏性操作。
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	var req DeleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：确认文本不能为空",
		})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.userService.DeleteAccount(c.Request.Context(), user.ID, req.Confirmation); err != nil {
		if errors.Is(err, service.ErrConfirmationMismatch) {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "确认文本不正确，请输入 DELETE"})
			return
		}
		log.Errorf("DeleteAccount: failed for userID %d, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": err.Error()})
		return
	}

	log.Infof("User account %d deleted", user.ID)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "账号已注销",
	})
}
