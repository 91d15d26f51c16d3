package model

import "fmt"

// SaveDocument 是写入 Elasticsearch 的存档搜索文档。
type SaveDocument struct {
	UserID     uint   `json:"user_id"`
	FileName   string `json:"file_name"`
	Label      string `json:"label"`
	Size       int64  `json:"size"`
	UploadedAt int64  `json:"uploaded_at"`
}

// DocID 返回文档在索引中的唯一 ID。
// 以 userID 和文件名复合，保证同名文件覆盖写入同一文档。
func (d SaveDocument) DocID() string {
	return fmt.Sprintf("%d:%s", d.UserID, d.FileName)
}

// SearchResultDTO 是搜索接口返回给前端的单条结果。
type SearchResultDTO struct {
	FileName   string  `json:"fileName"`
	Label      string  `json:"label"`
	Size       int64   `json:"size"`
	UploadedAt int64   `json:"uploadedAt"`
	Score      float64 `json:"score"`
}
