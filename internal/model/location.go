package model

// SaveLocation 定义了 save_locations 表的 ORM 模型。
// 每个 (user_id, file_name) 至多一行，Locations 字段以 JSON 数组存储
// 过滤掉空白项之后的存档路径列表；列表为空时整行删除而不是存空数组。
type SaveLocation struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_user_file" json:"userId"`
	FileName  string `gorm:"type:varchar(255);not null;uniqueIndex:idx_user_file" json:"fileName"`
	Locations string `gorm:"type:text;not null" json:"locations"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (SaveLocation) TableName() string {
	return "save_locations"
}
