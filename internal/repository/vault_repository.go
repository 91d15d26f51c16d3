package repository

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"save-vault-go/internal/config"
	"save-vault-go/internal/model"
	"save-vault-go/pkg/log"
	"save-vault-go/pkg/storage"

	"github.com/go-redis/redis/v8"
	"github.com/minio/minio-go/v7"
)

// labelMetaKey 是存档对象上携带游戏标题的自定义元数据键。
// MinIO 返回时会被规范化为首字母大写的 "Label"。
const labelMetaKey = "label"

// VaultRepository 接口定义了存档对象与上传进度的持久化操作。
// 对象存储按 "{userID}/{fileName}" 组织存档，头像固定存放在
// "avatars/{userID}/avatar.jpg"；上传进度以 Redis 标记维护。
type VaultRepository interface {
	// 存档对象操作 (MinIO)
	ListSaveObjects(ctx context.Context, userID uint) ([]model.SaveObjectInfo, error)
	StatSaveObject(ctx context.Context, userID uint, fileName string) (*model.SaveObjectInfo, error)
	PutSaveObject(ctx context.Context, userID uint, fileName string, reader io.Reader, size int64, label string) error
	CopySaveObject(ctx context.Context, userID uint, srcName, dstName string) error
	RemoveSaveObject(ctx context.Context, userID uint, fileName string) error
	RemoveAllSaveObjects(ctx context.Context, userID uint) error
	PresignedDownloadURL(ctx context.Context, userID uint, fileName, downloadAs string, expiry time.Duration) (string, error)

	// 头像对象操作 (MinIO)
	PutAvatar(ctx context.Context, userID uint, reader io.Reader, size int64) error
	RemoveAvatar(ctx context.Context, userID uint) error
	PresignedAvatarURL(ctx context.Context, userID uint, expiry time.Duration) (string, error)

	// 上传进度标记 (Redis)
	SetUploadProgress(ctx context.Context, userID uint, fileName string, transferred, total int64) error
	GetUploadProgress(ctx context.Context, userID uint) (*model.UploadProgress, error)
	ClearUploadProgress(ctx context.Context, userID uint) error
}

// vaultRepository 是 VaultRepository 接口的 MinIO+Redis 实现。
type vaultRepository struct {
	redisClient *redis.Client
	minioCfg    config.MinIOConfig
}

// NewVaultRepository 创建一个新的 VaultRepository 实例。
func NewVaultRepository(redisClient *redis.Client, minioCfg config.MinIOConfig) VaultRepository {
	return &vaultRepository{redisClient: redisClient, minioCfg: minioCfg}
}

// saveObjectName 拼接存档对象在桶内的完整路径。
func saveObjectName(userID uint, fileName string) string {
	return fmt.Sprintf("%d/%s", userID, fileName)
}

// avatarObjectName 拼接头像对象的固定路径。文件名固定为 avatar.jpg，上传即覆盖。
func avatarObjectName(userID uint) string {
	return fmt.Sprintf("avatars/%d/avatar.jpg", userID)
}

// progressKey generates the redis key for the per-user upload progress mark.
func progressKey(userID uint) string {
	return "upload:progress:" + strconv.FormatUint(uint64(userID), 10)
}

// ListSaveObjects 列出某用户命名空间下的全部存档对象。
// 列表接口不返回自定义元数据，因此对每个对象补一次 Stat 以取得 label。
func (r *vaultRepository) ListSaveObjects(ctx context.Context, userID uint) ([]model.SaveObjectInfo, error) {
	prefix := fmt.Sprintf("%d/", userID)
	objectCh := storage.MinioClient.ListObjects(ctx, r.minioCfg.BucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	infos := make([]model.SaveObjectInfo, 0)
	for object := range objectCh {
		if object.Err != nil {
			return nil, object.Err
		}
		fileName := strings.TrimPrefix(object.Key, prefix)
		if fileName == "" {
			continue
		}
		info, err := r.StatSaveObject(ctx, userID, fileName)
		if err != nil {
			// 列表与 Stat 之间对象可能刚被删除，跳过即可
			log.Warnf("[VaultRepository] Stat 存档对象失败, object: %s, error: %v", object.Key, err)
			continue
		}
		infos = append(infos, *info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// StatSaveObject 获取单个存档对象的元数据快照。
func (r *vaultRepository) StatSaveObject(ctx context.Context, userID uint, fileName string) (*model.SaveObjectInfo, error) {
	stat, err := storage.MinioClient.StatObject(ctx, r.minioCfg.BucketName, saveObjectName(userID, fileName), minio.StatObjectOptions{})
	if err != nil {
		return nil, err
	}
	return &model.SaveObjectInfo{
		Name:       fileName,
		Size:       stat.Size,
		UploadedAt: stat.LastModified,
		Label:      stat.UserMetadata["Label"],
	}, nil
}

// PutSaveObject 上传一个存档对象，并把游戏标题写入自定义元数据。
// 同名对象直接覆盖（last write wins），这也是文件名唯一性的来源。
func (r *vaultRepository) PutSaveObject(ctx context.Context, userID uint, fileName string, reader io.Reader, size int64, label string) error {
	_, err := storage.MinioClient.PutObject(ctx, r.minioCfg.BucketName, saveObjectName(userID, fileName), reader, size, minio.PutObjectOptions{
		ContentType:  "application/octet-stream",
		UserMetadata: map[string]string{labelMetaKey: label},
	})
	return err
}

// CopySaveObject 在同一用户命名空间内做服务端复制，自定义元数据随对象一起保留。
func (r *vaultRepository) CopySaveObject(ctx context.Context, userID uint, srcName, dstName string) error {
	src := minio.CopySrcOptions{
		Bucket: r.minioCfg.BucketName,
		Object: saveObjectName(userID, srcName),
	}
	dst := minio.CopyDestOptions{
		Bucket: r.minioCfg.BucketName,
		Object: saveObjectName(userID, dstName),
	}
	_, err := storage.MinioClient.CopyObject(ctx, dst, src)
	return err
}

// RemoveSaveObject 删除一个存档对象。
func (r *vaultRepository) RemoveSaveObject(ctx context.Context, userID uint, fileName string) error {
	return storage.MinioClient.RemoveObject(ctx, r.minioCfg.BucketName, saveObjectName(userID, fileName), minio.RemoveObjectOptions{})
}

// RemoveAllSaveObjects 删除某用户命名空间下的全部存档对象。
// 命名空间为空或不存在不视为错误（注销账号时的尽力清理语义）。
func (r *vaultRepository) RemoveAllSaveObjects(ctx context.Context, userID uint) error {
	prefix := fmt.Sprintf("%d/", userID)

	objectsCh := make(chan minio.ObjectInfo)
	go func() {
		defer close(objectsCh)
		for object := range storage.MinioClient.ListObjects(ctx, r.minioCfg.BucketName, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if object.Err != nil {
				log.Warnf("[VaultRepository] 遍历用户存档对象失败, userID: %d, error: %v", userID, object.Err)
				return
			}
			objectsCh <- object
		}
	}()

	for rErr := range storage.MinioClient.RemoveObjects(ctx, r.minioCfg.BucketName, objectsCh, minio.RemoveObjectsOptions{}) {
		if rErr.Err != nil {
			return fmt.Errorf("删除存档对象失败 (object=%s): %w", rErr.ObjectName, rErr.Err)
		}
	}
	return nil
}

// PresignedDownloadURL 生成存档对象的限时下载链接。
// downloadAs 非空时通过 response-content-disposition 指定另存为的文件名
// （下载文件名取 label + 原扩展名的展示语义在 service 层拼好传入）。
func (r *vaultRepository) PresignedDownloadURL(ctx context.Context, userID uint, fileName, downloadAs string, expiry time.Duration) (string, error) {
	reqParams := make(url.Values)
	if downloadAs != "" {
		reqParams.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", downloadAs))
	}
	return storage.GetPresignedURL(ctx, r.minioCfg.BucketName, saveObjectName(userID, fileName), expiry, reqParams)
}

// PutAvatar 上传用户头像到固定路径，总是覆盖旧头像。
// 路径固定以 .jpg 命名，与实际内容类型无关（沿用既有的存储约定）。
func (r *vaultRepository) PutAvatar(ctx context.Context, userID uint, reader io.Reader, size int64) error {
	_, err := storage.MinioClient.PutObject(ctx, r.minioCfg.BucketName, avatarObjectName(userID), reader, size, minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	return err
}

// RemoveAvatar 删除用户头像。头像不存在不视为错误。
func (r *vaultRepository) RemoveAvatar(ctx context.Context, userID uint) error {
	err := storage.MinioClient.RemoveObject(ctx, r.minioCfg.BucketName, avatarObjectName(userID), minio.RemoveObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil
		}
	}
	return err
}

// PresignedAvatarURL 生成头像的限时访问链接。
func (r *vaultRepository) PresignedAvatarURL(ctx context.Context, userID uint, expiry time.Duration) (string, error) {
	return storage.GetPresignedURL(ctx, r.minioCfg.BucketName, avatarObjectName(userID), expiry, nil)
}

// SetUploadProgress 写入当前传输的进度标记。
// 同一用户的上传严格串行，进度键直接覆盖即可。
func (r *vaultRepository) SetUploadProgress(ctx context.Context, userID uint, fileName string, transferred, total int64) error {
	key := progressKey(userID)
	if err := r.redisClient.HSet(ctx, key,
		"fileName", fileName,
		"transferred", transferred,
		"total", total,
	).Err(); err != nil {
		return err
	}
	return r.redisClient.Expire(ctx, key, time.Hour).Err()
}

// GetUploadProgress 读取当前传输的进度标记，没有进行中的传输时返回 nil。
func (r *vaultRepository) GetUploadProgress(ctx context.Context, userID uint) (*model.UploadProgress, error) {
	vals, err := r.redisClient.HGetAll(ctx, progressKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}

	transferred, _ := strconv.ParseInt(vals["transferred"], 10, 64)
	total, _ := strconv.ParseInt(vals["total"], 10, 64)
	progress := &model.UploadProgress{
		FileName:    vals["fileName"],
		Transferred: transferred,
		Total:       total,
	}
	if total > 0 {
		progress.Percent = float64(transferred) / float64(total) * 100
	}
	return progress, nil
}

// ClearUploadProgress 清除进度标记（批次结束或出错后调用）。
func (r *vaultRepository) ClearUploadProgress(ctx context.Context, userID uint) error {
	return r.redisClient.Del(ctx, progressKey(userID)).Err()
}
