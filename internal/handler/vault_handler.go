package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"save-vault-go/internal/service"
	"save-vault-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// VaultHandler 负责处理存档文件相关的 API 请求。
type VaultHandler struct {
	vaultService service.VaultService
}

// NewVaultHandler 创建一个新的 VaultHandler 实例。
func NewVaultHandler(vaultService service.VaultService) *VaultHandler {
	return &VaultHandler{vaultService: vaultService}
}

// validFileName 校验存档文件名：非空且不含路径分隔符。
func validFileName(fileName string) bool {
	if fileName == "" {
		return false
	}
	return !strings.ContainsAny(fileName, "/\\")
}

// ListSaves 返回当前用户的全部存档及容量使用概览。
func (h *VaultHandler) ListSaves(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	saves, quota, err := h.vaultService.ListSaves(c.Request.Context(), user.ID)
	if err != nil {
		log.Errorf("ListSaves: failed for userID %d, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "获取存档列表失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"files": saves,
			"quota": quota,
		},
	})
}

// Upload 处理存档批量上传（multipart 表单）。
// 文件放在 files 字段，labels 字段按相同顺序携带每个文件的游戏标题（可为空）。
// 整个批次先做容量校验，通过后逐个串行传输；单个文件失败不影响其余文件。
func (h *VaultHandler) Upload(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的上传表单"})
		return
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "请选择要上传的存档文件"})
		return
	}
	labels := form.Value["labels"]

	pending := make([]service.PendingUpload, 0, len(fileHeaders))
	openedFiles := make([]multipart.File, 0, len(fileHeaders))
	defer func() {
		for _, f := range openedFiles {
			_ = f.Close()
		}
	}()

	for i, fh := range fileHeaders {
		if !validFileName(fh.Filename) {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "存档文件名不合法: " + fh.Filename})
			return
		}
		file, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "读取上传文件失败"})
			return
		}
		openedFiles = append(openedFiles, file)

		label := ""
		if i < len(labels) {
			label = strings.TrimSpace(labels[i])
		}
		pending = append(pending, service.PendingUpload{
			FileName: fh.Filename,
			Label:    label,
			Size:     fh.Size,
			Reader:   file,
		})
	}

	outcomes, rejected, err := h.vaultService.UploadBatch(c.Request.Context(), user.ID, pending)
	if err != nil {
		if errors.Is(err, service.ErrQuotaExceeded) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"code":    http.StatusRequestEntityTooLarge,
				"message": err.Error(),
				"data":    gin.H{"rejected": rejected},
			})
			return
		}
		log.Errorf("Upload: batch failed for userID %d, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "上传失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"outcomes": outcomes,
			"rejected": rejected,
		},
	})
}

// RenameRequest 定义了重命名存档 API 的请求体结构。
type RenameRequest struct {
	OldName string `json:"oldName" binding:"required"`
	NewName string `json:"newName" binding:"required"`
}

// Rename 处理存档重命名请求。
func (h *VaultHandler) Rename(c *gin.Context) {
	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载：新旧文件名不能为空"})
		return
	}
	if !validFileName(req.NewName) {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "新文件名不合法"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.vaultService.RenameSave(c.Request.Context(), user.ID, req.OldName, req.NewName); err != nil {
		log.Errorf("Rename: failed for userID %d, %s -> %s, error: %v", user.ID, req.OldName, req.NewName, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "重命名成功"})
}

// Delete 处理删除存档请求。
func (h *VaultHandler) Delete(c *gin.Context) {
	fileName := c.Param("fileName")
	if !validFileName(fileName) {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "存档文件名不合法"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.vaultService.DeleteSave(c.Request.Context(), user.ID, fileName); err != nil {
		log.Errorf("Delete: failed for userID %d, fileName %s, error: %v", user.ID, fileName, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "删除成功"})
}

// Download 返回存档的限时下载链接。
// 设置了游戏标题的存档以 "标题+原扩展名" 作为下载展示文件名。
func (h *VaultHandler) Download(c *gin.Context) {
	fileName := c.Param("fileName")
	if !validFileName(fileName) {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "存档文件名不合法"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	info, err := h.vaultService.DownloadURL(c.Request.Context(), user.ID, fileName)
	if err != nil {
		log.Errorf("Download: failed for userID %d, fileName %s, error: %v", user.ID, fileName, err)
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "存档不存在或生成下载链接失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": info})
}

// GetProgress 返回当前进行中传输的进度标记（没有传输时 data 为 null）。
func (h *VaultHandler) GetProgress(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	progress, err := h.vaultService.GetProgress(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "获取上传进度失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": progress})
}
