package model

import "time"

// SaveObjectInfo 是对象存储中一个存档文件的元数据快照。
// 文件名在单个用户命名空间内唯一（同名上传即覆盖），Label 来自对象的自定义元数据。
type SaveObjectInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
	Label      string    `json:"label"`
}

// UploadProgress 表示一次进行中的文件传输的进度。
// 同一批次的传输严格串行，任意时刻每个用户至多存在一条进度记录。
type UploadProgress struct {
	FileName    string  `json:"fileName"`
	Transferred int64   `json:"transferred"`
	Total       int64   `json:"total"`
	Percent     float64 `json:"percent"`
}
