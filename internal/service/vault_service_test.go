package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"save-vault-go/internal/model"
	"save-vault-go/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID uint = 7

func newTestVaultService(vaultRepo *fakeVaultRepo) (VaultService, *fakeRenameRepo, *eventRecorder) {
	renameRepo := newFakeRenameRepo()
	recorder := &eventRecorder{}
	return NewVaultService(vaultRepo, renameRepo, recorder.produce), renameRepo, recorder
}

func pendingOf(fileName, label, content string) PendingUpload {
	return PendingUpload{
		FileName: fileName,
		Label:    label,
		Size:     int64(len(content)),
		Reader:   strings.NewReader(content),
	}
}

func TestValidateBatchQuotaExceededRejectsWholeBatch(t *testing.T) {
	vaultRepo := newFakeVaultRepo()
	svc, _, _ := newTestVaultService(vaultRepo)

	known := []model.SaveObjectInfo{{Name: "old.dat", Size: 45 * 1024 * 1024}}
	pending := []PendingUpload{
		{FileName: "a.dat", Size: 3 * 1024 * 1024},
		{FileName: "b.dat", Size: 3 * 1024 * 1024},
	}

	accepted, rejected, err := svc.ValidateBatch(pending, known)
	require.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Empty(t, accepted)
	// 整个批次一个不剩地被拒绝
	require.Len(t, rejected, 2)
	for _, r := range rejected {
		assert.Equal(t, ErrQuotaExceeded.Error(), r.Reason)
	}
}

func TestValidateBatchFileTooLargeRejectsOnlyThatFile(t *testing.T) {
	vaultRepo := newFakeVaultRepo()
	svc, _, _ := newTestVaultService(vaultRepo)

	pending := []PendingUpload{
		{FileName: "huge.dat", Size: MaxFileSize + 1},
		{FileName: "small.dat", Size: 1024},
	}

	accepted, rejected, err := svc.ValidateBatch(pending, nil)
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, "small.dat", accepted[0].FileName)
	require.Len(t, rejected, 1)
	assert.Equal(t, "huge.dat", rejected[0].FileName)
	assert.Equal(t, ErrFileTooLarge.Error(), rejected[0].Reason)
}

func TestUploadBatchContinuesAfterSingleFailure(t *testing.T) {
	vaultRepo := newFakeVaultRepo()
	vaultRepo.putErrs["bad.dat"] = errors.New("connection reset")
	svc, _, recorder := newTestVaultService(vaultRepo)

	pending := []PendingUpload{
		pendingOf("first.dat", "冒险存档", "aaaa"),
		pendingOf("bad.dat", "", "bbbb"),
		pendingOf("last.dat", "", "cccc"),
	}

	outcomes, rejected, err := svc.UploadBatch(context.Background(), testUserID, pending)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	require.Len(t, outcomes, 3)

	// 结果保持提交顺序，失败的文件不打断后续文件
	assert.Equal(t, "first.dat", outcomes[0].FileName)
	assert.True(t, outcomes[0].Succeeded)
	assert.False(t, outcomes[1].Succeeded)
	assert.Contains(t, outcomes[1].Error, ErrTransferFailed.Error())
	assert.Contains(t, outcomes[1].Error, "connection reset")
	assert.True(t, outcomes[2].Succeeded)

	// 成功的文件落入存储，失败的没有
	_, ok := vaultRepo.objects[objectKey(testUserID, "first.dat")]
	assert.True(t, ok)
	_, ok = vaultRepo.objects[objectKey(testUserID, "bad.dat")]
	assert.False(t, ok)

	// 批次结束后进度标记被清除
	assert.True(t, vaultRepo.progressCleared)

	// 只有成功的文件产生 upsert 事件
	require.Len(t, recorder.events, 2)
	assert.Equal(t, tasks.EventUpsert, recorder.events[0].Type)
	assert.Equal(t, "first.dat", recorder.events[0].FileName)
	assert.Equal(t, "冒险存档", recorder.events[0].Label)
	assert.Equal(t, "last.dat", recorder.events[1].FileName)
}

func TestUploadBatchQuotaCheckBlocksAllTransfers(t *testing.T) {
	vaultRepo := newFakeVaultRepo()
	vaultRepo.seed(testUserID, "existing.dat", "", 49*1024*1024)
	svc, _, recorder := newTestVaultService(vaultRepo)

	pending := []PendingUpload{pendingOf("new.dat", "", strings.Repeat("x", 2*1024*1024))}

	_, rejected, err := svc.UploadBatch(context.Background(), testUserID, pending)
	require.ErrorIs(t, err, ErrQuotaExceeded)
	require.Len(t, rejected, 1)

	// 没有任何传输发生
	assert.Zero(t, vaultRepo.progressWrites)
	assert.Empty(t, recorder.events)
	_, ok := vaultRepo.objects[objectKey(testUserID, "new.dat")]
	assert.False(t, ok)
}

func TestRenameSaveKeepsLabelAndRemovesOldObject(t *testing.T) {
	vaultRepo := newFakeVaultRepo()
	vaultRepo.seed(testUserID, "save1.dat", "Foo", 2048)
	svc, renameRepo, recorder := newTestVaultService(vaultRepo)

	err := svc.RenameSave(context.Background(), testUserID, "save1.dat", "save2.dat")
	require.NoError(t, err)

	_, oldExists := vaultRepo.objects[objectKey(testUserID, "save1.dat")]
	assert.False(t, oldExists)
	renamed, newExists := vaultRepo.objects[objectKey(testUserID, "save2.dat")]
	require.True(t, newExists)
	assert.Equal(t, "Foo", renamed.Label)
	assert.Equal(t, int64(2048), renamed.Size)

	// 重命名完成后意向记录被清除
	remaining, err := renameRepo.ListAll()
	require.NoError(t, err)
	assert.Empty(t, remaining)

	// 旧名字 delete、新名字 upsert 各一条事件
	require.Len(t, recorder.events, 2)
	assert.Equal(t, tasks.EventDelete, recorder.events[0].Type)
	assert.Equal(t, "save1.dat", recorder.events[0].FileName)
	assert.Equal(t, tasks.EventUpsert, recorder.events[1].Type)
	assert.Equal(t, "save2.dat", recorder.events[1].FileName)
	assert.Equal(t, "Foo", recorder.events[1].Label)
}

func TestRenameSaveSameNameIsNoop(t *testing.T) {
	vaultRepo := newFakeVaultRepo()
	vaultRepo.seed(testUserID, "save1.dat", "Foo", 2048)
	svc, _, recorder := newTestVaultService(vaultRepo)

	require.NoError(t, svc.RenameSave(context.Background(), testUserID, "save1.dat", "save1.dat"))
	_, exists := vaultRepo.objects[objectKey(testUserID, "save1.dat")]
	assert.True(t, exists)
	assert.Empty(t, recorder.events)
}

func TestRenameSaveMissingSourceFails(t *testing.T) {
	vaultRepo := newFakeVaultRepo()
	svc, _, _ := newTestVaultService(vaultRepo)

	err := svc.RenameSave(context.Background(), testUserID, "ghost.dat", "new.dat")
	require.ErrorIs(t, err, ErrRenameFailed)
}

func TestRenameSaveDeleteFailureLeavesIntentForRecovery(t *testing.T) {
	vaultRepo := newFakeVaultRepo()
	vaultRepo.seed(testUserID, "save1.dat", "Foo", 2048)
	vaultRepo.removeErrs["save1.dat"] = errors.New("temporarily unavailable")
	svc, renameRepo, _ := newTestVaultService(vaultRepo)

	err := svc.RenameSave(context.Background(), testUserID, "save1.dat", "save2.dat")
	require.ErrorIs(t, err, ErrRenameFailed)

	// 新旧对象并存，意向记录保留
	_, oldExists := vaultRepo.objects[objectKey(testUserID, "save1.dat")]
	_, newExists := vaultRepo.objects[objectKey(testUserID, "save2.dat")]
	assert.True(t, oldExists)
	assert.True(t, newExists)
	remaining, _ := renameRepo.ListAll()
	require.Len(t, remaining, 1)

	// 故障恢复后，启动时的收敛流程补删旧对象并清除意向
	delete(vaultRepo.removeErrs, "save1.dat")
	require.NoError(t, svc.RecoverPendingRenames(context.Background()))
	_, oldExists = vaultRepo.objects[objectKey(testUserID, "save1.dat")]
	assert.False(t, oldExists)
	remaining, _ = renameRepo.ListAll()
	assert.Empty(t, remaining)
}

func TestDeleteSaveFailureSurfacesCause(t *testing.T) {
	vaultRepo := newFakeVaultRepo()
	vaultRepo.seed(testUserID, "save1.dat", "", 1024)
	vaultRepo.removeErrs["save1.dat"] = errors.New("access denied")
	svc, _, recorder := newTestVaultService(vaultRepo)

	err := svc.DeleteSave(context.Background(), testUserID, "save1.dat")
	require.ErrorIs(t, err, ErrDeleteFailed)
	assert.Contains(t, err.Error(), "access denied")
	// 失败的删除不产生事件，对象保持原样
	assert.Empty(t, recorder.events)
	_, exists := vaultRepo.objects[objectKey(testUserID, "save1.dat")]
	assert.True(t, exists)
}

func TestDownloadURLUsesLabelWithOriginalExtension(t *testing.T) {
	vaultRepo := newFakeVaultRepo()
	vaultRepo.seed(testUserID, "slot01.sav", "塞尔达传说", 1024)
	vaultRepo.seed(testUserID, "plain.sav", "", 1024)
	svc, _, _ := newTestVaultService(vaultRepo)

	info, err := svc.DownloadURL(context.Background(), testUserID, "slot01.sav")
	require.NoError(t, err)
	assert.Equal(t, "塞尔达传说.sav", info.DownloadAs)

	// 未设置 label 时沿用原始文件名
	info, err = svc.DownloadURL(context.Background(), testUserID, "plain.sav")
	require.NoError(t, err)
	assert.Equal(t, "plain.sav", info.DownloadAs)
}

func TestComputeUsedBytes(t *testing.T) {
	known := []model.SaveObjectInfo{
		{Name: "a", Size: 100},
		{Name: "b", Size: 250},
	}
	assert.Equal(t, int64(350), ComputeUsedBytes(known))
	assert.Zero(t, ComputeUsedBytes(nil))
}
