// Package pipeline 定义了存档事件的后台处理流程。
package pipeline

import (
	"context"

	"save-vault-go/internal/config"
	"save-vault-go/internal/model"
	"save-vault-go/pkg/es"
	"save-vault-go/pkg/log"
	"save-vault-go/pkg/tasks"
)

// Processor 消费存档变更事件并维护 Elasticsearch 的存档索引。
// 事件以 userID 为 key 写入 Kafka，单一消费者顺序排空，保证同一用户的
// upsert/delete/purge 按产生次序生效。
type Processor struct {
	esCfg config.ElasticsearchConfig
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(esCfg config.ElasticsearchConfig) *Processor {
	return &Processor{esCfg: esCfg}
}

// Process 是存档事件处理的主函数。
func (p *Processor) Process(ctx context.Context, task tasks.SaveEventTask) error {
	switch task.Type {
	case tasks.EventUpsert:
		doc := model.SaveDocument{
			UserID:     task.UserID,
			FileName:   task.FileName,
			Label:      task.Label,
			Size:       task.Size,
			UploadedAt: task.UploadedAt,
		}
		if err := es.IndexSaveDocument(ctx, p.esCfg.IndexName, doc); err != nil {
			log.Errorf("[Processor] 写入存档文档失败, userID: %d, fileName: %s, error: %v", task.UserID, task.FileName, err)
			return err
		}
		log.Infof("[Processor] 存档文档已写入索引, userID: %d, fileName: %s", task.UserID, task.FileName)
		return nil

	case tasks.EventDelete:
		if err := es.DeleteSaveDocument(ctx, p.esCfg.IndexName, task.UserID, task.FileName); err != nil {
			log.Errorf("[Processor] 删除存档文档失败, userID: %d, fileName: %s, error: %v", task.UserID, task.FileName, err)
			return err
		}
		log.Infof("[Processor] 存档文档已从索引删除, userID: %d, fileName: %s", task.UserID, task.FileName)
		return nil

	case tasks.EventPurge:
		if err := es.PurgeUserDocuments(ctx, p.esCfg.IndexName, task.UserID); err != nil {
			log.Errorf("[Processor] 清空用户存档文档失败, userID: %d, error: %v", task.UserID, err)
			return err
		}
		log.Infof("[Processor] 用户的全部存档文档已清空, userID: %d", task.UserID)
		return nil

	default:
		// 未知事件类型直接丢弃，避免在队列里反复重试
		log.Warnf("[Processor] 未知的存档事件类型: %s", task.Type)
		return nil
	}
}
