package service

import "errors"

// 业务错误集合。handler 层通过 errors.Is 匹配并映射为 HTTP 状态码，
// 任何一个错误都只终止当前操作，不影响进程存活。
var (
	// ErrQuotaExceeded 表示整个上传批次超出账号总容量上限（批次级，传输前检查）。
	ErrQuotaExceeded = errors.New("账号存储空间不足")
	// ErrFileTooLarge 表示单个文件超出单文件上限（文件级，传输前检查）。
	ErrFileTooLarge = errors.New("单个文件超出大小上限")
	// ErrTransferFailed 表示传输过程中失败，底层原因随错误一并返回。
	ErrTransferFailed = errors.New("文件传输失败")
	// ErrDeleteFailed 表示删除存档失败。
	ErrDeleteFailed = errors.New("删除存档失败")
	// ErrRenameFailed 表示重命名存档失败（两阶段操作，可能残留重复对象）。
	ErrRenameFailed = errors.New("重命名存档失败")
	// ErrConfirmationMismatch 表示注销账号时确认文本不匹配。
	ErrConfirmationMismatch = errors.New("确认文本不正确")
	// ErrProfileUpdateFailed 表示更新个人资料失败。
	ErrProfileUpdateFailed = errors.New("更新个人资料失败")
)
