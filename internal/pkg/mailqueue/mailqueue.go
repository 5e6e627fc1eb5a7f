// Package mailqueue 基于 Redis Streams 的欢迎邮件发件队列。
//
// 注册接口只负责入队，投递由后台 Worker 异步完成，
// SMTP 故障不会影响注册请求的响应时间。
package mailqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStream 默认的邮件 Stream 名称。
const DefaultStream = "felicidade:mail:welcome"

// Message 队列中的一封待发邮件。
type Message struct {
	UserID     uint      `json:"user_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Retry      int       `json:"retry"` // 已重试次数
}

// Queue 封装对邮件 Stream 的读写。
type Queue struct {
	rdb    *redis.Client
	logger *slog.Logger
	stream string
}

// NewQueue 创建邮件队列实例，stream 为空时使用 DefaultStream。
func NewQueue(rdb *redis.Client, logger *slog.Logger, stream string) *Queue {
	if stream == "" {
		stream = DefaultStream
	}
	return &Queue{
		rdb:    rdb,
		logger: logger,
		stream: stream,
	}
}

// Enqueue 将一封欢迎邮件写入队列。
func (q *Queue) Enqueue(ctx context.Context, msg *Message) error {
	if msg == nil {
		return fmt.Errorf("message is nil")
	}
	if msg.Email == "" {
		return fmt.Errorf("message has no recipient")
	}
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = time.Now()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return q.add(ctx, q.stream, map[string]interface{}{"data": string(data)})
}

func (q *Queue) add(ctx context.Context, stream string, values map[string]interface{}) error {
	msgID, err := q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: 10000,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd failed: %w", err)
	}

	q.logger.Debug("mail message enqueued",
		slog.String("stream", stream),
		slog.String("msg_id", msgID))
	return nil
}

// CreateConsumerGroup 创建消费者组，已存在时忽略。
func (q *Queue) CreateConsumerGroup(ctx context.Context, group string) error {
	err := q.rdb.XGroupCreateMkStream(ctx, q.stream, group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// Len 返回队列中的消息数量。
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.rdb.XLen(ctx, q.stream).Result()
	if err != nil {
		return 0, fmt.Errorf("xlen failed: %w", err)
	}
	return n, nil
}

func parseMessage(data string) (*Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	return &msg, nil
}
