package mailqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"felicidade/internal/pkg/metrics"
	"felicidade/internal/pkg/notify"

	"github.com/redis/go-redis/v9"
)

// Worker 后台消费邮件队列并通过 Notifier 投递。
//
// 投递失败的消息会重新入队，超过 maxRetry 次后进入死信 Stream。
type Worker struct {
	queue        *Queue
	notifier     notify.Notifier
	logger       *slog.Logger
	group        string
	consumerID   string
	blockTime    time.Duration
	batchSize    int64
	pendingIdle  time.Duration
	pendingStart string
	dlqStream    string
	maxRetry     int
}

// WorkerOption Worker 配置选项。
type WorkerOption func(*Worker)

// WithBlockTime 设置读取时的阻塞等待时间。
func WithBlockTime(d time.Duration) WorkerOption {
	return func(w *Worker) { w.blockTime = d }
}

// WithBatchSize 设置每次读取的消息数量。
func WithBatchSize(n int64) WorkerOption {
	return func(w *Worker) { w.batchSize = n }
}

// WithPendingIdle 设置接管其他消费者滞留消息的最小空闲时间。
func WithPendingIdle(d time.Duration) WorkerOption {
	return func(w *Worker) { w.pendingIdle = d }
}

// WithMaxRetry 设置最大重试次数。
func WithMaxRetry(n int) WorkerOption {
	return func(w *Worker) { w.maxRetry = n }
}

// NewWorker 创建邮件投递 Worker 并确保消费者组存在。
func NewWorker(rdb *redis.Client, notifier notify.Notifier, logger *slog.Logger, stream string, opts ...WorkerOption) (*Worker, error) {
	queue := NewQueue(rdb, logger, stream)
	w := &Worker{
		queue:        queue,
		notifier:     notifier,
		logger:       logger,
		group:        "mail-workers",
		consumerID:   fmt.Sprintf("worker-%d", time.Now().UnixNano()),
		blockTime:    1 * time.Second,
		batchSize:    10,
		pendingIdle:  1 * time.Minute,
		pendingStart: "0-0",
		dlqStream:    queue.stream + ":dlq",
		maxRetry:     3,
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := queue.CreateConsumerGroup(context.Background(), w.group); err != nil {
		return nil, err
	}
	return w, nil
}

// Run 持续消费队列直到上下文取消。
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("mail worker started",
		slog.String("stream", w.queue.stream),
		slog.String("consumer_id", w.consumerID))

	for {
		if ctx.Err() != nil {
			w.logger.Info("mail worker stopped")
			return
		}

		if err := w.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.logger.Error("mail worker read failed", slog.String("error", err.Error()))
			// 避免 Redis 故障时空转
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// RunOnce 读取并处理一批消息，队列为空时阻塞至多 blockTime。
func (w *Worker) RunOnce(ctx context.Context) error {
	msgs, err := w.read(ctx)
	if err != nil {
		return err
	}

	for _, msg := range msgs {
		w.deliver(ctx, msg)
	}
	return nil
}

type messageWithID struct {
	id  string
	msg *Message
}

func (w *Worker) read(ctx context.Context) ([]*messageWithID, error) {
	// 先接管其他消费者滞留的消息，再读新消息
	claimed, nextStart, err := w.queue.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   w.queue.stream,
		Group:    w.group,
		Consumer: w.consumerID,
		MinIdle:  w.pendingIdle,
		Start:    w.pendingStart,
		Count:    w.batchSize,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xautoclaim failed: %w", err)
	}
	if nextStart != "" {
		w.pendingStart = nextStart
	}
	if len(claimed) > 0 {
		return w.parse(ctx, claimed)
	}

	streams, err := w.queue.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    w.group,
		Consumer: w.consumerID,
		Streams:  []string{w.queue.stream, ">"},
		Count:    w.batchSize,
		Block:    w.blockTime,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("xreadgroup failed: %w", err)
	}

	var raw []redis.XMessage
	for _, stream := range streams {
		raw = append(raw, stream.Messages...)
	}
	return w.parse(ctx, raw)
}

func (w *Worker) parse(ctx context.Context, raw []redis.XMessage) ([]*messageWithID, error) {
	parsed := make([]*messageWithID, 0, len(raw))
	for _, m := range raw {
		data, ok := m.Values["data"].(string)
		if !ok || data == "" {
			w.poison(ctx, m.ID, fmt.Sprintf("%v", m.Values["data"]), "invalid message format")
			continue
		}
		msg, err := parseMessage(data)
		if err != nil {
			w.poison(ctx, m.ID, data, err.Error())
			continue
		}
		parsed = append(parsed, &messageWithID{id: m.ID, msg: msg})
	}
	return parsed, nil
}

func (w *Worker) deliver(ctx context.Context, m *messageWithID) {
	if err := w.notifier.SendWelcome(m.msg.Email, m.msg.Name); err != nil {
		w.logger.Error("send welcome mail failed",
			slog.String("email", m.msg.Email),
			slog.Int("retry", m.msg.Retry),
			slog.String("error", err.Error()))
		w.fail(ctx, m, err)
		return
	}

	metrics.MailSentTotal.Inc()
	w.logger.Info("welcome mail sent",
		slog.Uint64("user_id", uint64(m.msg.UserID)),
		slog.String("email", m.msg.Email))
	w.ack(ctx, m.id)
}

// fail 重新入队失败消息，超过 maxRetry 后转入死信 Stream。
func (w *Worker) fail(ctx context.Context, m *messageWithID, cause error) {
	m.msg.Retry++
	if m.msg.Retry > w.maxRetry {
		w.deadLetter(ctx, m.id, m.msg, cause.Error())
		w.ack(ctx, m.id)
		return
	}

	if err := w.queue.Enqueue(ctx, m.msg); err != nil {
		w.logger.Error("requeue mail failed",
			slog.String("msg_id", m.id),
			slog.String("error", err.Error()))
		return
	}
	w.ack(ctx, m.id)
}

func (w *Worker) poison(ctx context.Context, msgID, payload, reason string) {
	w.logger.Warn("poison mail message",
		slog.String("msg_id", msgID),
		slog.String("reason", reason))
	w.deadLetter(ctx, msgID, payload, reason)
	w.ack(ctx, msgID)
}

func (w *Worker) deadLetter(ctx context.Context, msgID string, payload interface{}, reason string) {
	raw := payload
	if msg, ok := payload.(*Message); ok {
		if data, err := json.Marshal(msg); err == nil {
			raw = string(data)
		}
	}

	if err := w.queue.add(ctx, w.dlqStream, map[string]interface{}{
		"original_id": msgID,
		"payload":     raw,
		"reason":      reason,
		"failed_at":   time.Now().UTC().Format(time.RFC3339Nano),
	}); err != nil {
		w.logger.Error("publish dead letter failed",
			slog.String("msg_id", msgID),
			slog.String("error", err.Error()))
		return
	}
	metrics.MailDLQTotal.Inc()
}

func (w *Worker) ack(ctx context.Context, msgID string) {
	if err := w.queue.rdb.XAck(ctx, w.queue.stream, w.group, msgID).Err(); err != nil {
		w.logger.Error("ack mail message failed",
			slog.String("msg_id", msgID),
			slog.String("error", err.Error()))
	}
}

// Pending 返回消费者组内未确认的消息数量。
func (w *Worker) Pending(ctx context.Context) (int64, error) {
	info, err := w.queue.rdb.XPending(ctx, w.queue.stream, w.group).Result()
	if err != nil {
		return 0, fmt.Errorf("xpending failed: %w", err)
	}
	return info.Count, nil
}
