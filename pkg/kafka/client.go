// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"save-vault-go/internal/config"
	"save-vault-go/pkg/database"
	"save-vault-go/pkg/log"
	"save-vault-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// TaskProcessor defines the interface for any service that can process a save event.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.SaveEventTask) error
}

var producer *kafka.Writer

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
}

// ProduceSaveEvent 发送一个存档变更事件到 Kafka。
// 以 userID 作为消息 key，保证同一用户的事件按序消费。
func ProduceSaveEvent(task tasks.SaveEventTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}

	return producer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(fmt.Sprintf("%d", task.UserID)),
			Value: taskBytes,
		},
	)
}

// StartConsumer 启动一个 Kafka 消费者，将存档事件交给 processor 处理。
// 单一消费者顺序排空队列，为同一用户的事件提供明确的先后次序。
func StartConsumer(cfg config.KafkaConfig, processor TaskProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.Topic,
		GroupID:  "save-vault-go-consumer",
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(context.Background())
		if err != nil {
			log.Error("从 Kafka 读取消息失败", err)
			break
		}

		var task tasks.SaveEventTask
		if err := json.Unmarshal(m.Value, &task); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			if err := r.CommitMessages(context.Background(), m); err != nil {
				log.Errorf("提交错误消息失败: %v", err)
			}
			continue
		}

		log.Infof("开始处理存档事件: type=%s, userID=%d, fileName=%s", task.Type, task.UserID, task.FileName)
		if err := processor.Process(context.Background(), task); err != nil {
			log.Errorf("处理存档事件失败: type=%s, fileName=%s, error: %v", task.Type, task.FileName, err)
			// 使用 Redis 计数失败次数，达到阈值后提交 offset 终止重试
			attemptsKey := fmt.Sprintf("kafka:attempts:%d:%s:%s", task.UserID, task.Type, task.FileName)
			attempts, incErr := database.RDB.Incr(context.Background(), attemptsKey).Result()
			if incErr != nil {
				// Redis 异常时保守处理：不提交 offset，让 Kafka 重试
				continue
			}
			_ = database.RDB.Expire(context.Background(), attemptsKey, 24*time.Hour).Err()
			if attempts >= 3 {
				log.Errorf("存档事件多次失败(>=3)，提交 offset 终止重试: fileName=%s", task.FileName)
				if err := r.CommitMessages(context.Background(), m); err != nil {
					log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
				}
			}
		} else {
			_ = database.RDB.Del(context.Background(), fmt.Sprintf("kafka:attempts:%d:%s:%s", task.UserID, task.Type, task.FileName)).Err()
			if err := r.CommitMessages(context.Background(), m); err != nil {
				log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
			}
		}
	}

	if err := r.Close(); err != nil {
		log.Fatalf("关闭 Kafka 消费者失败: %v", err)
	}
}
