package handler

import (
	"errors"
	"net/http"

	"save-vault-go/internal/service"
	"save-vault-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// LocationHandler 负责处理存档路径列表相关的 API 请求。
// 返回给前端的始终是内存形态的列表（至少一个条目，可为空串），
// 持久化形态的过滤与删除由 service 层的写穿逻辑处理。
type LocationHandler struct {
	locationService service.LocationService
}

// NewLocationHandler 创建一个新的 LocationHandler 实例。
func NewLocationHandler(locationService service.LocationService) *LocationHandler {
	return &LocationHandler{locationService: locationService}
}

// QueryLocationsRequest 定义了批量查询路径列表 API 的请求体结构。
type QueryLocationsRequest struct {
	FileNames []string `json:"fileNames" binding:"required"`
}

// Query 为一组存档文件批量加载路径列表。
// 没有记录的文件返回默认的单空串列表。
func (h *LocationHandler) Query(c *gin.Context) {
	var req QueryLocationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载：fileNames 不能为空"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	locations, err := h.locationService.LoadLocations(user.ID, req.FileNames)
	if err != nil {
		log.Errorf("QueryLocations: failed for userID %d, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "获取存档路径失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": locations})
}

// SetLocationRequest 定义了修改单个路径条目 API 的请求体结构。
type SetLocationRequest struct {
	FileName string `json:"fileName" binding:"required"`
	Index    *int   `json:"index" binding:"required"`
	Value    string `json:"value"`
}

// Set 替换指定序号的路径条目。
func (h *LocationHandler) Set(c *gin.Context) {
	var req SetLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	locations, err := h.locationService.SetLocation(user.ID, req.FileName, *req.Index, req.Value)
	if err != nil {
		h.respondMutationError(c, user.ID, req.FileName, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": locations})
}

// AddLocationRequest 定义了追加路径条目 API 的请求体结构。
type AddLocationRequest struct {
	FileName string `json:"fileName" binding:"required"`
}

// Add 追加一个空路径条目。
func (h *LocationHandler) Add(c *gin.Context) {
	var req AddLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	locations, err := h.locationService.AddLocation(user.ID, req.FileName)
	if err != nil {
		h.respondMutationError(c, user.ID, req.FileName, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": locations})
}

// RemoveLocationRequest 定义了删除路径条目 API 的请求体结构。
type RemoveLocationRequest struct {
	FileName string `json:"fileName" binding:"required"`
	Index    *int   `json:"index" binding:"required"`
}

// Remove 删除指定序号的路径条目。列表删空后回到默认的单空串形态。
func (h *LocationHandler) Remove(c *gin.Context) {
	var req RemoveLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	locations, err := h.locationService.RemoveLocation(user.ID, req.FileName, *req.Index)
	if err != nil {
		h.respondMutationError(c, user.ID, req.FileName, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": locations})
}

// respondMutationError 统一处理路径变更操作的错误响应。
func (h *LocationHandler) respondMutationError(c *gin.Context, userID uint, fileName string, err error) {
	if errors.Is(err, service.ErrLocationIndexOutOfRange) {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error()})
		return
	}
	log.Errorf("Location mutation failed, userID: %d, fileName: %s, error: %v", userID, fileName, err)
	c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "保存存档路径失败"})
}
