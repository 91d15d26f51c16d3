package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"save-vault-go/internal/model"
	"save-vault-go/internal/repository"
	"save-vault-go/pkg/database"
	"save-vault-go/pkg/hash"
	"save-vault-go/pkg/log"
	"save-vault-go/pkg/tasks"
	"save-vault-go/pkg/token"

	"gorm.io/gorm"
)

const (
	// MaxAvatarSize 是头像文件的大小上限。
	MaxAvatarSize int64 = 5 * 1024 * 1024
	// maxDisplayNameLen 是昵称的最大长度（字符数）。
	maxDisplayNameLen = 50

	// deleteConfirmation 是注销账号必须逐字输入的确认文本（区分大小写）。
	deleteConfirmation = "DELETE"

	// avatarURLExpiry 是头像访问链接的有效期。
	avatarURLExpiry = 24 * time.Hour
)

// ProfileDTO 是返回给前端的用户资料。
// AvatarURL 是限时的预签名链接，未设置头像时为空串。
type ProfileDTO struct {
	ID          uint            `json:"id"`
	Email       string          `json:"email"`
	DisplayName string          `json:"displayName"`
	AvatarURL   string          `json:"avatarUrl"`
	Role        string          `json:"role"`
	CreatedAt   model.LocalTime `json:"createdAt"`
}

// UserService 接口定义了所有与用户账号相关的业务操作。
type UserService interface {
	Register(email, password, displayName string) (*model.User, error)
	Login(email, password string) (accessToken, refreshToken string, err error)
	RefreshToken(refreshTokenString string) (newAccessToken, newRefreshToken string, err error)
	Logout(tokenString string) error
	GetUserByID(userID uint) (*model.User, error)
	GetProfile(ctx context.Context, userID uint) (*ProfileDTO, error)
	UpdateDisplayName(userID uint, displayName string) (*model.User, error)
	UploadAvatar(ctx context.Context, userID uint, reader io.Reader, size int64) (string, error)
	DeleteAccount(ctx context.Context, userID uint, confirmationText string) error
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo     repository.UserRepository
	vaultRepo    repository.VaultRepository
	locationRepo repository.LocationRepository
	jwtManager   *token.JWTManager
	produceEvent func(task tasks.SaveEventTask) error
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, vaultRepo repository.VaultRepository, locationRepo repository.LocationRepository, jwtManager *token.JWTManager, produceEvent func(task tasks.SaveEventTask) error) UserService {
	return &userService{
		userRepo:     userRepo,
		vaultRepo:    vaultRepo,
		locationRepo: locationRepo,
		jwtManager:   jwtManager,
		produceEvent: produceEvent,
	}
}

// Register 处理用户注册的业务逻辑。
func (s *userService) Register(email, password, displayName string) (*model.User, error) {
	// 1. 检查邮箱是否已被注册
	_, err := s.userRepo.FindByEmail(email)
	if err == nil {
		return nil, errors.New("该邮箱已被注册")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 2. 基本校验
	if len(password) < 6 {
		return nil, errors.New("密码长度不能少于 6 位")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		// 默认昵称取邮箱 @ 前的部分
		displayName = email
		if at := strings.Index(email, "@"); at > 0 {
			displayName = email[:at]
		}
	}
	if utf8.RuneCountInString(displayName) > maxDisplayNameLen {
		return nil, fmt.Errorf("%w: 昵称不能超过 %d 个字符", ErrProfileUpdateFailed, maxDisplayNameLen)
	}

	// 3. 对密码进行哈希处理
	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}

	// 4. 创建新用户
	newUser := &model.User{
		Email:       email,
		Password:    hashedPassword,
		DisplayName: displayName,
		Role:        "USER", // 默认角色
	}
	if err := s.userRepo.Create(newUser); err != nil {
		return nil, err
	}
	return newUser, nil
}

// Login 处理用户登录的业务逻辑。
func (s *userService) Login(email, password string) (accessToken, refreshToken string, err error) {
	// 1. 查找用户
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", errors.New("invalid credentials")
		}
		return "", "", err
	}

	// 2. 验证密码
	if !hash.CheckPasswordHash(password, user.Password) {
		return "", "", errors.New("invalid credentials")
	}

	// 3. 生成 access token 和 refresh token
	accessToken, err = s.jwtManager.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = s.jwtManager.GenerateRefreshToken(user.ID, user.Email, user.Role)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// RefreshToken 校验 refresh token 并换发一对新令牌。
func (s *userService) RefreshToken(refreshTokenString string) (string, string, error) {
	claims, err := s.jwtManager.VerifyToken(refreshTokenString)
	if err != nil {
		return "", "", errors.New("invalid refresh token")
	}

	// 确认用户仍然存在（可能已注销账号）
	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		return "", "", errors.New("invalid refresh token")
	}

	newAccessToken, err := s.jwtManager.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return "", "", err
	}
	newRefreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Email, user.Role)
	if err != nil {
		return "", "", err
	}
	return newAccessToken, newRefreshToken, nil
}

// Logout 处理用户登出逻辑，将 token 加入 Redis 黑名单。
func (s *userService) Logout(tokenString string) error {
	claims, err := s.jwtManager.VerifyToken(tokenString)
	if err != nil {
		return err
	}
	// token 的剩余有效期作为黑名单 key 的过期时间
	expiration := time.Until(claims.ExpiresAt.Time)
	return database.RDB.Set(context.Background(), "blacklist:"+tokenString, "true", expiration).Err()
}

// GetUserByID 根据用户 ID 获取用户记录（鉴权中间件使用）。
func (s *userService) GetUserByID(userID uint) (*model.User, error) {
	return s.userRepo.FindByID(userID)
}

// GetProfile 获取用户资料，设置过头像时附带限时访问链接。
func (s *userService) GetProfile(ctx context.Context, userID uint) (*ProfileDTO, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}

	profile := &ProfileDTO{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		CreatedAt:   model.LocalTime(user.CreatedAt),
	}
	if user.AvatarPath != "" {
		avatarURL, err := s.vaultRepo.PresignedAvatarURL(ctx, userID, avatarURLExpiry)
		if err != nil {
			// 头像链接生成失败不阻断资料读取
			log.Warnf("[UserService] 生成头像链接失败, userID: %d, error: %v", userID, err)
		} else {
			profile.AvatarURL = avatarURL
		}
	}
	return profile, nil
}

// UpdateDisplayName 更新用户昵称。昵称不能为空白且不超过 50 个字符。
func (s *userService) UpdateDisplayName(userID uint, displayName string) (*model.User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, fmt.Errorf("%w: 昵称不能为空", ErrProfileUpdateFailed)
	}
	if utf8.RuneCountInString(displayName) > maxDisplayNameLen {
		return nil, fmt.Errorf("%w: 昵称不能超过 %d 个字符", ErrProfileUpdateFailed, maxDisplayNameLen)
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	user.DisplayName = displayName
	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileUpdateFailed, err)
	}
	return user, nil
}

// UploadAvatar 上传用户头像并返回新的限时访问链接。
// 头像存放在固定路径上，上传即覆盖；超出 5 MiB 的文件在任何网络调用前被拒绝。
func (s *userService) UploadAvatar(ctx context.Context, userID uint, reader io.Reader, size int64) (string, error) {
	if size > MaxAvatarSize {
		return "", fmt.Errorf("%w: 头像不能超过 5 MiB", ErrProfileUpdateFailed)
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return "", err
	}
	if err := s.vaultRepo.PutAvatar(ctx, userID, reader, size); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProfileUpdateFailed, err)
	}

	// 头像路径固定，首次上传后记到用户记录上
	if user.AvatarPath == "" {
		user.AvatarPath = fmt.Sprintf("avatars/%d/avatar.jpg", userID)
		if err := s.userRepo.Update(user); err != nil {
			return "", fmt.Errorf("%w: %v", ErrProfileUpdateFailed, err)
		}
	}
	return s.vaultRepo.PresignedAvatarURL(ctx, userID, avatarURLExpiry)
}

// DeleteAccount 注销账号。
// 确认文本必须逐字等于 "DELETE"（区分大小写），否则不做任何破坏性操作。
// 匹配后依次：尽力清空用户的全部存档对象（命名空间为空不算错误）、
// 尽力删除头像（不存在不算错误）、删除路径记录，最后删除用户身份本身。
// 身份删除失败时报告失败，已删除的存档保持已删除（接受部分完成）。
func (s *userService) DeleteAccount(ctx context.Context, userID uint, confirmationText string) error {
	if confirmationText != deleteConfirmation {
		return ErrConfirmationMismatch
	}

	// 1. 清空存档对象（尽力而为）
	if err := s.vaultRepo.RemoveAllSaveObjects(ctx, userID); err != nil {
		log.Errorf("[UserService] 注销账号时清空存档失败, userID: %d, error: %v", userID, err)
	}

	// 2. 删除头像（不存在不算错误）
	if err := s.vaultRepo.RemoveAvatar(ctx, userID); err != nil {
		log.Errorf("[UserService] 注销账号时删除头像失败, userID: %d, error: %v", userID, err)
	}

	// 3. 删除路径记录
	if err := s.locationRepo.DeleteAllForUser(userID); err != nil {
		log.Errorf("[UserService] 注销账号时删除路径记录失败, userID: %d, error: %v", userID, err)
	}

	// 4. 删除用户身份
	if err := s.userRepo.Delete(userID); err != nil {
		return fmt.Errorf("删除账号失败: %w", err)
	}

	// 5. 通知搜索索引清空该用户的全部文档
	if s.produceEvent != nil {
		if err := s.produceEvent(tasks.SaveEventTask{Type: tasks.EventPurge, UserID: userID}); err != nil {
			log.Errorf("[UserService] 发送账号清理事件失败, userID: %d, error: %v", userID, err)
		}
	}
	return nil
}
