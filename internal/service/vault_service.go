// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"save-vault-go/internal/model"
	"save-vault-go/internal/repository"
	"save-vault-go/pkg/log"
	"save-vault-go/pkg/tasks"
)

// 容量限制（固定常量）。
const (
	// MaxFileSize 是单个存档文件的大小上限。
	MaxFileSize int64 = 20 * 1024 * 1024
	// MaxTotalSize 是单个账号全部存档的总容量上限。
	MaxTotalSize int64 = 50 * 1024 * 1024

	// downloadURLExpiry 是存档下载链接的有效期。
	downloadURLExpiry = time.Hour
)

// PendingUpload 表示一个待上传的存档文件。
type PendingUpload struct {
	FileName string
	Label    string
	Size     int64
	Reader   io.Reader
}

// UploadRejection 表示一个在传输前即被拒绝的文件及其原因。
type UploadRejection struct {
	FileName string `json:"fileName"`
	Reason   string `json:"reason"`
}

// UploadOutcome 表示批次内单个文件的传输结果。
// 批次内各文件独立成败，一个文件失败不中断后续文件。
type UploadOutcome struct {
	FileName  string `json:"fileName"`
	Label     string `json:"label"`
	Size      int64  `json:"size"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
}

// QuotaSummary 是账号容量的使用概览。
type QuotaSummary struct {
	UsedBytes  int64 `json:"usedBytes"`
	LimitBytes int64 `json:"limitBytes"`
}

// DownloadInfoDTO 是下载接口返回的限时链接及展示文件名。
type DownloadInfoDTO struct {
	FileName    string `json:"fileName"`
	DownloadAs  string `json:"downloadAs"`
	DownloadURL string `json:"downloadUrl"`
}

// VaultService 接口定义了存档文件的核心业务操作。
type VaultService interface {
	ListSaves(ctx context.Context, userID uint) ([]model.SaveObjectInfo, *QuotaSummary, error)
	ValidateBatch(pending []PendingUpload, known []model.SaveObjectInfo) (accepted []PendingUpload, rejected []UploadRejection, err error)
	UploadBatch(ctx context.Context, userID uint, pending []PendingUpload) ([]UploadOutcome, []UploadRejection, error)
	RenameSave(ctx context.Context, userID uint, oldName, newName string) error
	DeleteSave(ctx context.Context, userID uint, fileName string) error
	DownloadURL(ctx context.Context, userID uint, fileName string) (*DownloadInfoDTO, error)
	GetProgress(ctx context.Context, userID uint) (*model.UploadProgress, error)
	RecoverPendingRenames(ctx context.Context) error
}

// vaultService 是 VaultService 接口的实现。
// produceEvent 在存储变更成功后发送存档事件（Kafka），由构造方注入以便测试。
type vaultService struct {
	vaultRepo    repository.VaultRepository
	renameRepo   repository.RenameIntentRepository
	produceEvent func(task tasks.SaveEventTask) error
}

// NewVaultService 创建一个新的 VaultService 实例。
func NewVaultService(vaultRepo repository.VaultRepository, renameRepo repository.RenameIntentRepository, produceEvent func(task tasks.SaveEventTask) error) VaultService {
	return &vaultService{
		vaultRepo:    vaultRepo,
		renameRepo:   renameRepo,
		produceEvent: produceEvent,
	}
}

// ComputeUsedBytes 计算已知存档集合占用的总字节数。
func ComputeUsedBytes(known []model.SaveObjectInfo) int64 {
	var used int64
	for _, info := range known {
		used += info.Size
	}
	return used
}

// ListSaves 返回某用户的全部存档及容量使用概览。
func (s *vaultService) ListSaves(ctx context.Context, userID uint) ([]model.SaveObjectInfo, *QuotaSummary, error) {
	infos, err := s.vaultRepo.ListSaveObjects(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	summary := &QuotaSummary{
		UsedBytes:  ComputeUsedBytes(infos),
		LimitBytes: MaxTotalSize,
	}
	return infos, summary, nil
}

// ValidateBatch 对一个候选上传批次做传输前校验。
// 先做批次级的总容量检查：已用空间加上批次全部文件的大小超出上限时，
// 整个批次被整体拒绝（all-or-nothing，任何文件都不开始传输）；
// 通过后再逐个检查单文件上限，超限的文件被单独拒绝，其余文件放行。
// 容量检查基于最近一次成功获取的元数据快照，并发会话下可能偏旧，
// 这是已接受的弱一致性行为。
func (s *vaultService) ValidateBatch(pending []PendingUpload, known []model.SaveObjectInfo) ([]PendingUpload, []UploadRejection, error) {
	var totalNew int64
	for _, p := range pending {
		totalNew += p.Size
	}
	if ComputeUsedBytes(known)+totalNew > MaxTotalSize {
		rejected := make([]UploadRejection, 0, len(pending))
		for _, p := range pending {
			rejected = append(rejected, UploadRejection{FileName: p.FileName, Reason: ErrQuotaExceeded.Error()})
		}
		return nil, rejected, ErrQuotaExceeded
	}

	accepted := make([]PendingUpload, 0, len(pending))
	rejected := make([]UploadRejection, 0)
	for _, p := range pending {
		if p.Size > MaxFileSize {
			rejected = append(rejected, UploadRejection{FileName: p.FileName, Reason: ErrFileTooLarge.Error()})
			continue
		}
		accepted = append(accepted, p)
	}
	return accepted, rejected, nil
}

// UploadBatch 校验并串行上传一个批次。
// 批次内严格一个文件传完（成功或失败）再传下一个，进度标记任意时刻
// 只描述一个文件；单个文件传输失败不中断后续文件。
func (s *vaultService) UploadBatch(ctx context.Context, userID uint, pending []PendingUpload) ([]UploadOutcome, []UploadRejection, error) {
	// 1. 取当前存档快照并做传输前校验
	known, err := s.vaultRepo.ListSaveObjects(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	accepted, rejected, err := s.ValidateBatch(pending, known)
	if err != nil {
		return nil, rejected, err
	}

	// 2. 逐个串行传输
	outcomes := make([]UploadOutcome, 0, len(accepted))
	for _, p := range accepted {
		outcome := UploadOutcome{FileName: p.FileName, Label: p.Label, Size: p.Size}
		if err := s.uploadOne(ctx, userID, p); err != nil {
			log.Errorf("[VaultService] 存档上传失败, userID: %d, fileName: %s, error: %v", userID, p.FileName, err)
			outcome.Error = fmt.Sprintf("%v: %v", ErrTransferFailed, err)
		} else {
			outcome.Succeeded = true
			s.emitEvent(tasks.SaveEventTask{
				Type:       tasks.EventUpsert,
				UserID:     userID,
				FileName:   p.FileName,
				Label:      p.Label,
				Size:       p.Size,
				UploadedAt: time.Now().Unix(),
			})
		}
		outcomes = append(outcomes, outcome)
	}

	// 3. 批次结束后清除进度标记
	if err := s.vaultRepo.ClearUploadProgress(ctx, userID); err != nil {
		log.Warnf("[VaultService] 清除上传进度失败, userID: %d, error: %v", userID, err)
	}
	return outcomes, rejected, nil
}

// uploadOne 传输单个文件，以累计字节数驱动进度标记。
func (s *vaultService) uploadOne(ctx context.Context, userID uint, p PendingUpload) error {
	if err := s.vaultRepo.SetUploadProgress(ctx, userID, p.FileName, 0, p.Size); err != nil {
		log.Warnf("[VaultService] 写入上传进度失败, userID: %d, error: %v", userID, err)
	}

	lastPercent := -1
	reader := &progressReader{
		r: p.Reader,
		onProgress: func(transferred int64) {
			// 进度只在整数百分比前进或传输完成时落一次 Redis
			percent := 100
			if p.Size > 0 {
				percent = int(transferred * 100 / p.Size)
			}
			if percent == lastPercent && transferred != p.Size {
				return
			}
			lastPercent = percent
			if err := s.vaultRepo.SetUploadProgress(ctx, userID, p.FileName, transferred, p.Size); err != nil {
				log.Warnf("[VaultService] 写入上传进度失败, userID: %d, error: %v", userID, err)
			}
		},
	}
	return s.vaultRepo.PutSaveObject(ctx, userID, p.FileName, reader, p.Size, p.Label)
}

// progressReader 包装上传数据流，以只增不减的累计字节数回调进度。
type progressReader struct {
	r           io.Reader
	transferred int64
	onProgress  func(transferred int64)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.transferred += int64(n)
		p.onProgress(p.transferred)
	}
	return n, err
}

// RenameSave 以"先复制后删除"的两阶段操作重命名一个存档，自定义元数据随对象保留。
// 复制前先落一条重命名意向记录，旧对象删除成功后清除；进程在两阶段之间
// 崩溃时残留的重复对象由启动恢复流程收敛。操作失败不改动任何已有列表状态。
func (s *vaultService) RenameSave(ctx context.Context, userID uint, oldName, newName string) error {
	if newName == "" {
		return fmt.Errorf("%w: 新文件名不能为空", ErrRenameFailed)
	}
	if newName == oldName {
		return nil
	}

	// 1. 确认旧对象存在并取其元数据（事件里带上 label 和大小）
	info, err := s.vaultRepo.StatSaveObject(ctx, userID, oldName)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRenameFailed, err)
	}

	// 2. 落重命名意向记录
	intent := &model.RenameIntent{UserID: userID, OldName: oldName, NewName: newName}
	if err := s.renameRepo.Create(intent); err != nil {
		return fmt.Errorf("%w: %v", ErrRenameFailed, err)
	}

	// 3. 服务端复制到新名字
	if err := s.vaultRepo.CopySaveObject(ctx, userID, oldName, newName); err != nil {
		// 复制未发生，旧对象完好，直接清除意向记录
		if delErr := s.renameRepo.Delete(intent.ID); delErr != nil {
			log.Warnf("[VaultService] 清除重命名意向失败, intentID: %d, error: %v", intent.ID, delErr)
		}
		return fmt.Errorf("%w: %v", ErrRenameFailed, err)
	}

	// 4. 删除旧对象
	if err := s.vaultRepo.RemoveSaveObject(ctx, userID, oldName); err != nil {
		// 新旧对象此时并存，意向记录保留，等启动恢复流程收敛
		log.Errorf("[VaultService] 重命名后删除旧对象失败, userID: %d, oldName: %s, error: %v", userID, oldName, err)
		return fmt.Errorf("%w: %v", ErrRenameFailed, err)
	}
	if err := s.renameRepo.Delete(intent.ID); err != nil {
		log.Warnf("[VaultService] 清除重命名意向失败, intentID: %d, error: %v", intent.ID, err)
	}

	s.emitEvent(tasks.SaveEventTask{Type: tasks.EventDelete, UserID: userID, FileName: oldName})
	s.emitEvent(tasks.SaveEventTask{
		Type:       tasks.EventUpsert,
		UserID:     userID,
		FileName:   newName,
		Label:      info.Label,
		Size:       info.Size,
		UploadedAt: time.Now().Unix(),
	})
	return nil
}

// DeleteSave 删除一个存档。失败时返回 ErrDeleteFailed 并附带底层原因，
// 不改动任何已有列表状态。
func (s *vaultService) DeleteSave(ctx context.Context, userID uint, fileName string) error {
	if err := s.vaultRepo.RemoveSaveObject(ctx, userID, fileName); err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	s.emitEvent(tasks.SaveEventTask{Type: tasks.EventDelete, UserID: userID, FileName: fileName})
	return nil
}

// DownloadURL 生成存档的限时下载链接。
// 设置了 label 的存档以 "label+原扩展名" 作为下载时的展示文件名。
func (s *vaultService) DownloadURL(ctx context.Context, userID uint, fileName string) (*DownloadInfoDTO, error) {
	info, err := s.vaultRepo.StatSaveObject(ctx, userID, fileName)
	if err != nil {
		return nil, err
	}

	downloadAs := fileName
	if info.Label != "" {
		downloadAs = info.Label + fileExt(fileName)
	}

	u, err := s.vaultRepo.PresignedDownloadURL(ctx, userID, fileName, downloadAs, downloadURLExpiry)
	if err != nil {
		return nil, err
	}
	return &DownloadInfoDTO{FileName: fileName, DownloadAs: downloadAs, DownloadURL: u}, nil
}

// fileExt 返回文件名的扩展名（含点号），没有扩展名时返回空串。
func fileExt(fileName string) string {
	for i := len(fileName) - 1; i >= 0; i-- {
		if fileName[i] == '.' {
			return fileName[i:]
		}
	}
	return ""
}

// GetProgress 读取当前进行中传输的进度标记，没有传输时返回 nil。
func (s *vaultService) GetProgress(ctx context.Context, userID uint) (*model.UploadProgress, error) {
	return s.vaultRepo.GetUploadProgress(ctx, userID)
}

// RecoverPendingRenames 收敛上次进程崩溃残留的重命名意向。
// 新对象已存在则补删旧对象；新对象不存在说明复制未发生，旧对象完好。
// 两种情况都清除意向记录。
func (s *vaultService) RecoverPendingRenames(ctx context.Context) error {
	intents, err := s.renameRepo.ListAll()
	if err != nil {
		return err
	}
	for _, intent := range intents {
		if _, err := s.vaultRepo.StatSaveObject(ctx, intent.UserID, intent.NewName); err == nil {
			if _, statErr := s.vaultRepo.StatSaveObject(ctx, intent.UserID, intent.OldName); statErr == nil {
				if rmErr := s.vaultRepo.RemoveSaveObject(ctx, intent.UserID, intent.OldName); rmErr != nil {
					log.Errorf("[VaultService] 恢复重命名时删除旧对象失败, userID: %d, oldName: %s, error: %v", intent.UserID, intent.OldName, rmErr)
					continue
				}
				s.emitEvent(tasks.SaveEventTask{Type: tasks.EventDelete, UserID: intent.UserID, FileName: intent.OldName})
			}
		}
		if err := s.renameRepo.Delete(intent.ID); err != nil {
			log.Warnf("[VaultService] 清除重命名意向失败, intentID: %d, error: %v", intent.ID, err)
		} else {
			log.Infof("[VaultService] 已收敛残留的重命名意向, userID: %d, %s -> %s", intent.UserID, intent.OldName, intent.NewName)
		}
	}
	return nil
}

// emitEvent 发送一个存档事件。事件发送失败只记日志，不影响主流程结果。
func (s *vaultService) emitEvent(task tasks.SaveEventTask) {
	if s.produceEvent == nil {
		return
	}
	if err := s.produceEvent(task); err != nil {
		log.Errorf("[VaultService] 发送存档事件失败, type: %s, fileName: %s, error: %v", task.Type, task.FileName, err)
	}
}
