package service

import (
	"context"
	"strings"
	"testing"

	"save-vault-go/pkg/tasks"
	"save-vault-go/pkg/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUserService(userRepo *fakeUserRepo, vaultRepo *fakeVaultRepo, locationRepo *fakeLocationRepo) (UserService, *eventRecorder) {
	recorder := &eventRecorder{}
	jwtManager := token.NewJWTManager("test-secret", 1, 7)
	return NewUserService(userRepo, vaultRepo, locationRepo, jwtManager, recorder.produce), recorder
}

func TestRegisterAndLogin(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc, _ := newTestUserService(userRepo, newFakeVaultRepo(), newFakeLocationRepo())

	user, err := svc.Register("player@example.com", "secret123", "")
	require.NoError(t, err)
	// 未填昵称时取邮箱 @ 前的部分
	assert.Equal(t, "player", user.DisplayName)
	assert.Equal(t, "USER", user.Role)

	// 重复注册同一邮箱被拒绝
	_, err = svc.Register("player@example.com", "secret123", "")
	require.Error(t, err)

	accessToken, refreshToken, err := svc.Login("player@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
	assert.NotEmpty(t, refreshToken)

	_, _, err = svc.Login("player@example.com", "wrong-password")
	require.Error(t, err)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _ := newTestUserService(newFakeUserRepo(), newFakeVaultRepo(), newFakeLocationRepo())

	_, err := svc.Register("player@example.com", "12345", "")
	require.Error(t, err)
}

func TestUpdateDisplayNameValidation(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc, _ := newTestUserService(userRepo, newFakeVaultRepo(), newFakeLocationRepo())
	user, err := svc.Register("player@example.com", "secret123", "Player One")
	require.NoError(t, err)

	// 空白昵称被拒绝
	_, err = svc.UpdateDisplayName(user.ID, "   ")
	require.ErrorIs(t, err, ErrProfileUpdateFailed)

	// 超过 50 个字符被拒绝
	_, err = svc.UpdateDisplayName(user.ID, strings.Repeat("名", 51))
	require.ErrorIs(t, err, ErrProfileUpdateFailed)

	// 恰好 50 个字符合法
	updated, err := svc.UpdateDisplayName(user.ID, strings.Repeat("名", 50))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("名", 50), updated.DisplayName)
}

func TestUploadAvatarRejectsOversizeBeforeTransfer(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc, _ := newTestUserService(userRepo, newFakeVaultRepo(), newFakeLocationRepo())
	user, err := svc.Register("player@example.com", "secret123", "")
	require.NoError(t, err)

	_, err = svc.UploadAvatar(context.Background(), user.ID, strings.NewReader("img"), MaxAvatarSize+1)
	require.ErrorIs(t, err, ErrProfileUpdateFailed)

	avatarURL, err := svc.UploadAvatar(context.Background(), user.ID, strings.NewReader("img"), 3)
	require.NoError(t, err)
	assert.NotEmpty(t, avatarURL)

	// 首次上传后头像路径记到用户记录上
	stored, err := userRepo.FindByID(user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.AvatarPath)
}

func TestDeleteAccountRequiresExactConfirmation(t *testing.T) {
	userRepo := newFakeUserRepo()
	vaultRepo := newFakeVaultRepo()
	locationRepo := newFakeLocationRepo()
	svc, recorder := newTestUserService(userRepo, vaultRepo, locationRepo)

	user, err := svc.Register("player@example.com", "secret123", "")
	require.NoError(t, err)
	vaultRepo.seed(user.ID, "save1.dat", "Foo", 1024)
	locationRepo.records[objectKey(user.ID, "save1.dat")] = []string{"C:/Saves"}

	// 大小写不符的确认文本不执行任何破坏性操作
	err = svc.DeleteAccount(context.Background(), user.ID, "delete")
	require.ErrorIs(t, err, ErrConfirmationMismatch)
	assert.Empty(t, vaultRepo.allRemoved)
	assert.False(t, vaultRepo.avatarRemoved)
	assert.Empty(t, userRepo.deleted)
	_, exists := locationRepo.records[objectKey(user.ID, "save1.dat")]
	assert.True(t, exists)

	// 逐字输入 DELETE 后，存档、头像、路径记录和账号本身全部清理
	err = svc.DeleteAccount(context.Background(), user.ID, "DELETE")
	require.NoError(t, err)
	assert.Equal(t, []uint{user.ID}, vaultRepo.allRemoved)
	assert.True(t, vaultRepo.avatarRemoved)
	assert.Equal(t, []uint{user.ID}, userRepo.deleted)
	_, exists = locationRepo.records[objectKey(user.ID, "save1.dat")]
	assert.False(t, exists)

	// 搜索索引收到 purge 事件
	require.Len(t, recorder.events, 1)
	assert.Equal(t, tasks.EventPurge, recorder.events[0].Type)
	assert.Equal(t, user.ID, recorder.events[0].UserID)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc, _ := newTestUserService(userRepo, newFakeVaultRepo(), newFakeLocationRepo())
	user, err := svc.Register("player@example.com", "secret123", "")
	require.NoError(t, err)

	_, refreshToken, err := svc.Login("player@example.com", "secret123")
	require.NoError(t, err)

	newAccess, newRefresh, err := svc.RefreshToken(refreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, newAccess)
	assert.NotEmpty(t, newRefresh)

	// 账号注销后 refresh token 不再可用
	require.NoError(t, svc.DeleteAccount(context.Background(), user.ID, "DELETE"))
	_, _, err = svc.RefreshToken(refreshToken)
	require.Error(t, err)

	_, _, err = svc.RefreshToken("not-a-token")
	require.Error(t, err)
}
