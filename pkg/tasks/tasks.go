// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// 存档事件类型。pipeline.Processor 依据该字段决定对搜索索引的操作。
const (
	EventUpsert = "upsert" // 新增或覆盖一个存档文档
	EventDelete = "delete" // 删除一个存档文档
	EventPurge  = "purge"  // 删除某用户的全部存档文档（注销账号）
)

// SaveEventTask 表示一次存档变更事件，由上传/重命名/删除等操作产生。
type SaveEventTask struct {
	Type       string `json:"type"`
	UserID     uint   `json:"user_id"`
	FileName   string `json:"file_name"`
	Label      string `json:"label,omitempty"`
	Size       int64  `json:"size,omitempty"`
	UploadedAt int64  `json:"uploaded_at,omitempty"` // unix 秒
}
