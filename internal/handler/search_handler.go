package handler

import (
	"net/http"
	"strconv"

	"save-vault-go/internal/service"
	"save-vault-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SearchHandler 负责处理存档搜索的 API 请求。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// Search 按游戏标题和文件名搜索当前用户的存档。
// 查询参数：q（关键词，必填）、topK（返回条数，默认 20）。
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "搜索关键词不能为空"})
		return
	}
	topK, err := strconv.Atoi(c.DefaultQuery("topK", "20"))
	if err != nil || topK <= 0 {
		topK = 20
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	results, err := h.searchService.SearchSaves(c.Request.Context(), query, topK, user.ID)
	if err != nil {
		log.Errorf("Search: failed for userID %d, query '%s', error: %v", user.ID, query, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "搜索失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": results})
}
